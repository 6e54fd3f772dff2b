package security

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
)

// Classifier coordinates all security checks.
type Classifier struct {
	policy        SecurityPolicy
	rules         *RuleSet
	dangerChecker *DangerousCommandChecker
	pathChecker   *PathAccessChecker
	shellAnalyzer *ShellCommandAnalyzer
}

// NewClassifier creates a classifier. A nil rule set uses DefaultRules.
func NewClassifier(policy *SecurityPolicy, rules *RuleSet) *Classifier {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{
		policy:        *policy,
		rules:         rules,
		dangerChecker: NewDangerousCommandChecker(rules),
		pathChecker:   NewPathAccessChecker(policy),
		shellAnalyzer: NewShellCommandAnalyzer(rules),
	}
}

// WithFlags returns a copy of the classifier with the two mode flags replaced.
func (c *Classifier) WithFlags(safeMode, dangerousCheck bool) *Classifier {
	cp := *c
	cp.policy.SafeMode = safeMode
	cp.policy.DangerousCheck = dangerousCheck
	return &cp
}

// Policy returns the effective policy.
func (c *Classifier) Policy() SecurityPolicy {
	return c.policy
}

// Assess classifies a command line. It never fails; malformed input is
// reported through the level.
func (c *Classifier) Assess(command string) Assessment {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return Assessment{
			Level:          LevelEmpty,
			Risk:           RiskLow,
			Recommendation: "Nothing to run.",
			Confidence:     1,
			Reason:         "empty command",
		}
	}

	if a, ok := c.assessPlan(trimmed); ok {
		return a
	}
	return c.assessCommand(trimmed)
}

func (c *Classifier) assessCommand(command string) Assessment {
	script, err := Tokenize(command)
	if err != nil {
		return Assessment{
			Level:          LevelRequiresShellEscape,
			Risk:           RiskLow,
			Recommendation: "The command could not be split into words; check its quoting.",
			Confidence:     1,
			Reason:         err.Error(),
		}
	}

	a := c.ordered(command, script)
	return c.applyPaths(a, script)
}

// ordered evaluates the rules after tokenizing, first match wins.
func (c *Classifier) ordered(command string, script *Script) Assessment {
	if c.policy.DangerousCheck {
		if m, ok := c.dangerChecker.Check(script); ok {
			return Assessment{
				Level:           LevelPotentiallyDangerous,
				Risk:            RiskHigh,
				RequiresAdmin:   true,
				PotentialImpact: m.Impacts,
				Recommendation:  "Review the command carefully; it may cause irreversible changes.",
				Confidence:      1,
				Reason:          m.Reason,
			}
		}
	}

	if impact, ok := c.shellAnalyzer.SemiDangerous(command); ok {
		return Assessment{
			Level:           LevelSemiDangerous,
			Risk:            RiskMedium,
			PotentialImpact: []string{impact},
			Recommendation:  "Confirm the targets before running.",
			Confidence:      1,
			Reason:          impact,
		}
	}

	if c.policy.SafeMode {
		if name, ok := c.shellAnalyzer.NotWhitelisted(script); ok {
			return Assessment{
				Level:          LevelNotInWhitelist,
				Risk:           RiskMedium,
				Recommendation: fmt.Sprintf("%q is not on the allow list; confirm to run it.", name),
				Confidence:     1,
				Reason:         "not in whitelist: " + name,
			}
		}
	}

	if script.NeedsShell() {
		return Assessment{
			Level:          LevelRequiresShellEscape,
			Risk:           RiskLow,
			Recommendation: "Runs through the shell.",
			Confidence:     1,
			Reason:         "shell features: " + strings.Join(script.ShellFeatures, ", "),
		}
	}

	return Assessment{
		Level:          LevelSafe,
		Risk:           RiskLow,
		Recommendation: "Safe to run.",
		Confidence:     1,
	}
}

// applyPaths raises the level of commands touching protected paths.
func (c *Classifier) applyPaths(a Assessment, script *Script) Assessment {
	paths := c.pathChecker.ExtractPaths(script)
	if len(paths) == 0 {
		return a
	}

	for _, p := range paths {
		if c.pathChecker.IsRestricted(p) {
			raised := a
			if severity[a.Level] < severity[LevelPotentiallyDangerous] {
				raised.Level = LevelPotentiallyDangerous
				raised.Risk = RiskHigh
				raised.RequiresAdmin = true
			}
			raised.Restricted = true
			raised.PotentialImpact = appendUnique(raised.PotentialImpact, ImpactSecurity)
			raised.Recommendation = fmt.Sprintf("Access denied: %s is restricted.", p)
			raised.Reason = "restricted path: " + p
			return raised
		}
	}

	write := IsWrite(script)
	for _, p := range paths {
		if c.pathChecker.IsReadOnly(p, write) && severity[a.Level] < severity[LevelSemiDangerous] {
			return Assessment{
				Level:           LevelSemiDangerous,
				Risk:            RiskMedium,
				PotentialImpact: []string{fmt.Sprintf("Writes to read-only path %s", p)},
				Recommendation:  "Confirm the write to a protected path.",
				Confidence:      a.Confidence,
				Reason:          "read-only path: " + p,
			}
		}
	}
	return a
}

// assessPlan recognises a JSON object with a "plan" key.
func (c *Classifier) assessPlan(trimmed string) (Assessment, bool) {
	if !strings.HasPrefix(trimmed, "{") {
		return Assessment{}, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return Assessment{}, false
	}
	if _, ok := obj["plan"]; !ok {
		return Assessment{}, false
	}

	plan, err := directive.DecodePlan([]byte(trimmed))
	if err != nil {
		a := Assessment{
			Level:          LevelJSONPlan,
			Risk:           RiskLow,
			Recommendation: planRecommendation,
			Confidence:     directive.DefaultPlanConfidence,
			Reason:         "json plan",
		}
		var conf float64
		if raw, ok := obj["overall_confidence"]; ok && json.Unmarshal(raw, &conf) == nil && conf >= 0 && conf <= 1 {
			a.Confidence = conf
		}
		return a, true
	}
	return c.AssessPlan(plan), true
}

const planRecommendation = "Each step is checked again before it runs."

// AssessPlan classifies a decoded plan. The risk is the highest risk among
// the steps that resolve to a command.
func (c *Classifier) AssessPlan(plan *directive.Plan) Assessment {
	a := Assessment{
		Level:          LevelJSONPlan,
		Risk:           RiskLow,
		Recommendation: planRecommendation,
		Confidence:     plan.OverallConfidence,
		Reason:         "json plan",
	}
	for _, step := range plan.Steps {
		cmd, err := step.Command()
		if err != nil {
			continue
		}
		sa := c.assessCommand(cmd)
		a.Risk = maxRisk(a.Risk, sa.Risk)
		a.RequiresAdmin = a.RequiresAdmin || sa.RequiresAdmin
		for _, impact := range sa.PotentialImpact {
			a.PotentialImpact = appendUnique(a.PotentialImpact, impact)
		}
	}
	return a
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
