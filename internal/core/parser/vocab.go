package parser

import "strings"

// commandPrefixes are the leading words accepted from inline backtick spans:
// file, process, network and text-processing utilities plus common tooling.
var commandPrefixes = map[string]bool{}

func init() {
	for _, group := range []string{
		// files and directories
		"ls cd pwd cat less more head tail touch mkdir rmdir rm cp mv ln find locate tree stat file du df chmod chown chgrp realpath readlink basename dirname",
		// archives
		"tar zip unzip gzip gunzip bzip2 xz 7z",
		// text processing
		"echo printf grep egrep fgrep rg sed awk cut sort uniq wc tr diff cmp tee xargs jq nl column od hexdump md5sum sha256sum",
		// processes and system
		"ps top htop kill killall pkill pgrep uptime uname whoami id date cal which whereis env printenv free lsof systemctl journalctl service crontab nohup sleep history shutdown reboot dd mkfs fdisk mount umount",
		// network
		"ping curl wget ssh scp rsync netstat ss ip ifconfig dig nslookup traceroute nc host",
		// package managers and toolchains
		"apt apt-get yum dnf pacman brew snap pip pip3 npm npx yarn pnpm go cargo python python3 node make git docker kubectl",
		// editors and viewers
		"nano vim vi code open man",
		"sudo",
	} {
		for _, name := range strings.Fields(group) {
			commandPrefixes[name] = true
		}
	}
}

// IsCommandPrefix reports whether word is in the known command vocabulary.
func IsCommandPrefix(word string) bool {
	return commandPrefixes[strings.ToLower(word)]
}
