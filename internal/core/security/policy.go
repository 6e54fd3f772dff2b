package security

// SecurityPolicy defines the classifier configuration.
type SecurityPolicy struct {
	// SafeMode requires confirmation for anything off the allow list and
	// blocks dangerous commands outright.
	SafeMode bool `mapstructure:"safe_mode"`

	// DangerousCheck enables detection of destructive commands.
	DangerousCheck bool `mapstructure:"dangerous_check"`

	// RestrictedPaths contains paths that are completely forbidden.
	RestrictedPaths []string `mapstructure:"restricted_paths"`

	// ReadOnlyPaths contains paths that cannot be written to.
	ReadOnlyPaths []string `mapstructure:"readonly_paths"`

	// RulesFile is an optional YAML file extending the built-in rules.
	RulesFile string `mapstructure:"rules_file"`
}

// DefaultPolicy returns the default security policy (balanced mode).
func DefaultPolicy() *SecurityPolicy {
	return &SecurityPolicy{
		SafeMode:        false,
		DangerousCheck:  true,
		RestrictedPaths: []string{},
		ReadOnlyPaths:   []string{},
	}
}

// Rules loads the rule set named by the policy, or the defaults.
func (p *SecurityPolicy) Rules() (*RuleSet, error) {
	if p.RulesFile == "" {
		return DefaultRules(), nil
	}
	return LoadRules(p.RulesFile)
}
