package security

// ShellCommandAnalyzer matches semi-dangerous patterns and reports the shell
// constructs a command relies on.
type ShellCommandAnalyzer struct {
	rules *RuleSet
}

// NewShellCommandAnalyzer creates a new shell analyzer.
func NewShellCommandAnalyzer(rules *RuleSet) *ShellCommandAnalyzer {
	return &ShellCommandAnalyzer{rules: rules}
}

// SemiDangerous returns the impact of the first semi-dangerous pattern that
// matches the command line.
func (sa *ShellCommandAnalyzer) SemiDangerous(cmdStr string) (string, bool) {
	for i := range sa.rules.SemiDangerous {
		r := &sa.rules.SemiDangerous[i]
		if r.re.MatchString(cmdStr) {
			return r.Impact, true
		}
	}
	return "", false
}

// NotWhitelisted returns the first command of the script that is not on
// the allow list.
func (sa *ShellCommandAnalyzer) NotWhitelisted(s *Script) (string, bool) {
	for _, call := range s.Calls {
		name, _ := call.Resolve()
		if !sa.rules.Whitelisted(name) {
			return name, true
		}
	}
	return "", false
}
