package security

import "fmt"

// DangerousCommandChecker detects destructive or irreversible commands.
type DangerousCommandChecker struct {
	rules *RuleSet
}

// NewDangerousCommandChecker creates a new danger checker.
func NewDangerousCommandChecker(rules *RuleSet) *DangerousCommandChecker {
	return &DangerousCommandChecker{rules: rules}
}

// DangerMatch describes why a script is dangerous.
type DangerMatch struct {
	Command  string
	Category string
	Reason   string
	Impacts  []string
}

// Check returns the first dangerous simple command in the script. Every
// command of a pipeline or list is checked, not only the first one.
func (dc *DangerousCommandChecker) Check(s *Script) (DangerMatch, bool) {
	for _, call := range s.Calls {
		name, args := call.Resolve()
		if name == "" {
			continue
		}
		for i := range dc.rules.Dangerous {
			rule := &dc.rules.Dangerous[i]
			if rule.Matches(name, args) {
				return DangerMatch{
					Command:  name,
					Category: rule.Category,
					Reason:   fmt.Sprintf("%s: %s", name, rule.Reason),
					Impacts:  rule.Impacts(),
				}, true
			}
		}
	}

	// Check redirects to raw devices
	if dc.rules.rawDevices != nil {
		for _, r := range s.Redirects {
			if r.Write && dc.rules.rawDevices.MatchString(r.Target) {
				return DangerMatch{
					Command:  r.Op,
					Category: CategoryDevice,
					Reason:   fmt.Sprintf("write to raw device %s", r.Target),
					Impacts:  append([]string(nil), categoryImpacts[CategoryDevice]...),
				}, true
			}
		}
	}
	return DangerMatch{}, false
}
