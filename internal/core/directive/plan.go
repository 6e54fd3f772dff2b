package directive

import (
	"fmt"
	"strings"
)

// Plan is an ordered sequence of steps executed with fail-fast semantics.
type Plan struct {
	Steps             []PlanStep `json:"steps"`
	OverallConfidence float64    `json:"overall_confidence"`
}

// PlanStep is one unit of a Plan. Parameters are read-only during execution.
type PlanStep struct {
	Description string         `json:"description"`
	Operation   string         `json:"operation"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Confidence  float64        `json:"confidence"`
	Conditions  []string       `json:"conditions,omitempty"`
}

// commandOps are step operations that carry a literal command line.
var commandOps = map[string]bool{
	"":        true,
	"shell":   true,
	"command": true,
	"execute": true,
	"run":     true,
}

// Command resolves the step into a command line: an explicit "command"
// parameter wins, otherwise file operations are synthesized.
func (s PlanStep) Command() (string, error) {
	for _, key := range []string{"command", "cmd"} {
		if v, ok := s.Parameters[key].(string); ok && strings.TrimSpace(v) != "" {
			return v, nil
		}
	}

	op := strings.ToLower(strings.TrimSpace(s.Operation))
	if IsFileOp(op) {
		cmd, ok := Synthesize(op, s.Parameters)
		if !ok {
			return "", fmt.Errorf("file operation %q is missing required parameters", op)
		}
		return cmd, nil
	}
	if commandOps[op] {
		return "", fmt.Errorf("step %q has no command parameter", s.Description)
	}
	return "", fmt.Errorf("unsupported step operation %q", s.Operation)
}
