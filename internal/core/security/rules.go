package security

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dangerous command categories.
const (
	CategoryDataLoss   = "data_loss"
	CategoryFilesystem = "filesystem"
	CategoryPrivilege  = "privilege"
	CategoryPower      = "power"
	CategoryDevice     = "raw_device"
)

var categoryImpacts = map[string][]string{
	CategoryDataLoss:   {ImpactDataLoss, ImpactSystem},
	CategoryFilesystem: {ImpactDataLoss, ImpactSystem},
	CategoryPrivilege:  {ImpactSecurity, ImpactSystem},
	CategoryPower:      {ImpactSystem},
	CategoryDevice:     {ImpactDataLoss, ImpactSystem},
}

// CommandRule matches a simple command by name and, optionally, its arguments.
type CommandRule struct {
	// Name is the command basename; a trailing "*" makes it a prefix match.
	Name string `yaml:"name"`
	// Args is a regular expression tested against the space-joined arguments.
	Args     string `yaml:"args,omitempty"`
	Category string `yaml:"category"`
	Reason   string `yaml:"reason"`

	args *regexp.Regexp
}

// Matches reports whether the rule applies to name invoked with args.
func (r *CommandRule) Matches(name string, args []string) bool {
	if strings.HasSuffix(r.Name, "*") {
		if !strings.HasPrefix(name, strings.TrimSuffix(r.Name, "*")) {
			return false
		}
	} else if name != r.Name {
		return false
	}
	if r.args == nil {
		return true
	}
	return r.args.MatchString(strings.Join(args, " "))
}

// Impacts returns the categorical impact descriptions for the rule.
func (r *CommandRule) Impacts() []string {
	if impacts, ok := categoryImpacts[r.Category]; ok {
		return append([]string(nil), impacts...)
	}
	return []string{ImpactSystem}
}

// PatternRule is a regular expression over the whole command line.
type PatternRule struct {
	Pattern string `yaml:"pattern"`
	Impact  string `yaml:"impact"`

	re *regexp.Regexp
}

// RuleSet is the data behind the classifier.
type RuleSet struct {
	Dangerous     []CommandRule `yaml:"dangerous"`
	SemiDangerous []PatternRule `yaml:"semi_dangerous"`
	Whitelist     []string      `yaml:"whitelist"`
	// RawDevices matches redirect targets that are block devices.
	RawDevices string `yaml:"raw_devices,omitempty"`

	whitelist  map[string]bool
	rawDevices *regexp.Regexp
}

const recursiveFlag = `(^|\s)(-[a-zA-Z]*[rR][a-zA-Z]*|--recursive)(\s|$)`

// DefaultRules returns the built-in rule set.
func DefaultRules() *RuleSet {
	rs := &RuleSet{
		Dangerous: []CommandRule{
			{Name: "rm", Args: recursiveFlag, Category: CategoryDataLoss, Reason: "recursive delete"},
			{Name: "shred", Category: CategoryDataLoss, Reason: "irreversible overwrite"},
			{Name: "mkfs*", Category: CategoryFilesystem, Reason: "filesystem format"},
			{Name: "mke2fs", Category: CategoryFilesystem, Reason: "filesystem format"},
			{Name: "mkswap", Category: CategoryFilesystem, Reason: "filesystem format"},
			{Name: "format", Category: CategoryFilesystem, Reason: "filesystem format"},
			{Name: "fdisk", Category: CategoryFilesystem, Reason: "partition table change"},
			{Name: "sfdisk", Category: CategoryFilesystem, Reason: "partition table change"},
			{Name: "parted", Category: CategoryFilesystem, Reason: "partition table change"},
			{Name: "wipefs", Category: CategoryFilesystem, Reason: "filesystem signature wipe"},
			{Name: "dd", Category: CategoryDevice, Reason: "raw device write"},
			{Name: "su", Category: CategoryPrivilege, Reason: "privilege escalation"},
			{Name: "passwd", Category: CategoryPrivilege, Reason: "credential change"},
			{Name: "visudo", Category: CategoryPrivilege, Reason: "sudoers change"},
			{Name: "useradd", Category: CategoryPrivilege, Reason: "account change"},
			{Name: "userdel", Category: CategoryPrivilege, Reason: "account removal"},
			{Name: "usermod", Category: CategoryPrivilege, Reason: "account change"},
			{Name: "groupdel", Category: CategoryPrivilege, Reason: "group removal"},
			{Name: "shutdown", Category: CategoryPower, Reason: "power control"},
			{Name: "reboot", Category: CategoryPower, Reason: "power control"},
			{Name: "halt", Category: CategoryPower, Reason: "power control"},
			{Name: "poweroff", Category: CategoryPower, Reason: "power control"},
			{Name: "init", Args: `^[06]$`, Category: CategoryPower, Reason: "power control"},
			{Name: "systemctl", Args: `(^|\s)(poweroff|reboot|halt|kexec)(\s|$)`, Category: CategoryPower, Reason: "power control"},
		},
		SemiDangerous: []PatternRule{
			{Pattern: `\brm\s+(?:-\S+\s+)*\S*\*`, Impact: "Wildcard deletion may remove more files than intended"},
			{Pattern: `\bfind\b.*\s(?:-delete\b|-exec\s+rm\b)`, Impact: "Deletes every file find matches"},
			{Pattern: `\bchmod\s+(?:-\S+\s+)*(?:0?[0-7]?[0-7][0-7][2367]\b|[ugoa]*[ao][ugoa]*\+[rwxXst]*w)`, Impact: "Makes files world-writable"},
			{Pattern: `\bchmod\s+(?:-\S+\s+)*[ugoa]*\+[rwxX]*s`, Impact: "Sets a setuid or setgid bit"},
			{Pattern: `\bchown\s+(?:-\S+\s+)*(?:root|\S*:(?:root|wheel))\b`, Impact: "Transfers ownership to a privileged account"},
			{Pattern: `\bchgrp\s+(?:-\S+\s+)*(?:root|wheel)\b`, Impact: "Transfers ownership to a privileged group"},
			{Pattern: `\b(?:mv|cp|ln|install|rsync)\s+(?:\S+\s+)+(?:/etc|/usr|/bin|/sbin|/boot|/lib|/lib64|/opt|/sys|/proc|/System|/Library)(?:/\S*)?\s*(?:$|[;&|])`, Impact: "Moves or copies files into a system path"},
			{Pattern: `>>?\s*(?:/etc|/usr|/bin|/sbin|/boot|/sys|/proc|/System|/Library)(?:/|\s|$)`, Impact: "Writes into a system path"},
			{Pattern: `\b(?:curl|wget)\b[^|]*\|\s*(?:sudo\s+)?(?:ba|z|da|k)?sh\b`, Impact: "Executes a downloaded script"},
			{Pattern: `\bcrontab\s+(?:-\S+\s+)*-r\b`, Impact: "Removes every cron job"},
			{Pattern: `\bgit\s+push\b.*\s(?:-f|--force)\b`, Impact: "Rewrites remote history"},
			{Pattern: `(?:^|[;&|(]\s*)(?:sudo|doas)\s`, Impact: "Runs with elevated privileges"},
		},
		Whitelist: strings.Fields(`ls pwd cd cat echo printf grep egrep fgrep rg find touch mkdir cp mv
			git curl wget tar zip unzip gzip gunzip head tail less more wc sort uniq cut tr sed awk
			date cal whoami id uname hostname uptime df du free ps top which whereis file stat diff
			tree env printenv basename dirname realpath readlink jq ping dig nslookup man history
			test true false sleep nl tee xargs md5sum sha256sum column`),
		RawDevices: `^/dev/(?:sd|hd|vd|xvd|nvme|mmcblk|disk|rdisk|dm-|md)`,
	}
	if err := rs.compile(); err != nil {
		panic(err)
	}
	return rs
}

// LoadRules reads a YAML rule file and returns the default rules extended
// with its entries.
func LoadRules(file string) (*RuleSet, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var extra RuleSet
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", file, err)
	}

	rs := DefaultRules()
	rs.Dangerous = append(rs.Dangerous, extra.Dangerous...)
	rs.SemiDangerous = append(rs.SemiDangerous, extra.SemiDangerous...)
	rs.Whitelist = append(rs.Whitelist, extra.Whitelist...)
	if extra.RawDevices != "" {
		rs.RawDevices = extra.RawDevices
	}
	if err := rs.compile(); err != nil {
		return nil, fmt.Errorf("rules %s: %w", file, err)
	}
	return rs, nil
}

func (rs *RuleSet) compile() error {
	for i := range rs.Dangerous {
		r := &rs.Dangerous[i]
		if r.Name == "" {
			return fmt.Errorf("dangerous rule %d has no name", i)
		}
		r.args = nil
		if r.Args != "" {
			re, err := regexp.Compile(r.Args)
			if err != nil {
				return fmt.Errorf("dangerous rule %q: %w", r.Name, err)
			}
			r.args = re
		}
	}
	for i := range rs.SemiDangerous {
		r := &rs.SemiDangerous[i]
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("semi-dangerous rule %d: %w", i, err)
		}
		r.re = re
	}
	rs.whitelist = make(map[string]bool, len(rs.Whitelist))
	for _, name := range rs.Whitelist {
		rs.whitelist[path.Base(name)] = true
	}
	rs.rawDevices = nil
	if rs.RawDevices != "" {
		re, err := regexp.Compile(rs.RawDevices)
		if err != nil {
			return fmt.Errorf("raw_devices: %w", err)
		}
		rs.rawDevices = re
	}
	return nil
}

// Whitelisted reports whether name is an allow-listed utility.
func (rs *RuleSet) Whitelisted(name string) bool {
	return rs.whitelist[name]
}
