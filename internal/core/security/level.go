package security

// SafetyLevel is the classifier's verdict for a command.
type SafetyLevel string

const (
	LevelEmpty                SafetyLevel = "EMPTY"
	LevelSafe                 SafetyLevel = "SAFE"
	LevelNotInWhitelist       SafetyLevel = "NOT_IN_WHITELIST"
	LevelSemiDangerous        SafetyLevel = "SEMI_DANGEROUS"
	LevelPotentiallyDangerous SafetyLevel = "POTENTIALLY_DANGEROUS"
	LevelRequiresShellEscape  SafetyLevel = "REQUIRES_SHELL_ESCAPE"
	LevelJSONPlan             SafetyLevel = "JSON_PLAN"
)

// severity orders levels for the path policy, which may only raise a level.
var severity = map[SafetyLevel]int{
	LevelEmpty:                0,
	LevelSafe:                 1,
	LevelRequiresShellEscape:  1,
	LevelJSONPlan:             1,
	LevelNotInWhitelist:       2,
	LevelSemiDangerous:        3,
	LevelPotentiallyDangerous: 4,
}

// RiskLevel is the coarse risk attached to an assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// Impact descriptions used for dangerous commands.
const (
	ImpactSystem   = "System modification"
	ImpactDataLoss = "Data loss"
	ImpactSecurity = "Security risk"
)

// Assessment is the result of classifying one command.
type Assessment struct {
	Level           SafetyLevel `json:"level"`
	Risk            RiskLevel   `json:"risk_level"`
	RequiresAdmin   bool        `json:"requires_admin"`
	PotentialImpact []string    `json:"potential_impact,omitempty"`
	Recommendation  string      `json:"recommendation"`
	Confidence      float64     `json:"confidence"`

	// Restricted is set when the command touches a restricted path. Such
	// commands are never executed.
	Restricted bool `json:"restricted,omitempty"`
	// Reason names the rule that decided the level.
	Reason string `json:"reason,omitempty"`
}

// Consistent reports whether Level and Risk agree.
func (a Assessment) Consistent() bool {
	switch a.Level {
	case LevelEmpty, LevelSafe, LevelRequiresShellEscape:
		return a.Risk == RiskLow
	case LevelNotInWhitelist, LevelSemiDangerous:
		return a.Risk == RiskMedium
	case LevelPotentiallyDangerous:
		return a.Risk == RiskMedium || a.Risk == RiskHigh
	case LevelJSONPlan:
		_, ok := riskRank[a.Risk]
		return ok
	}
	return false
}

// Executable reports whether the level describes something that can be run.
func (l SafetyLevel) Executable() bool {
	return l != LevelEmpty
}

func maxRisk(a, b RiskLevel) RiskLevel {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}
