package directive

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultStructuredConfidence applies to JSON payloads that carry no confidence.
const DefaultStructuredConfidence = 0.9

// DefaultPlanConfidence applies to plans without an overall_confidence.
const DefaultPlanConfidence = 0.5

var errNotObject = errors.New("payload is not a JSON object")

// FromJSON decodes a model payload into a Directive. The discriminating keys
// are inspected once, in this order: command, plan, file_operation,
// info_type, error. An object matching none of them yields Unparseable.
func FromJSON(data []byte) (Directive, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Directive{}, fmt.Errorf("decode directive: %w", err)
	}
	if obj == nil {
		return Directive{}, errNotObject
	}

	confidence := floatField(obj, "confidence", DefaultStructuredConfidence)

	if cmd, ok := stringField(obj, "command"); ok {
		return NewShell(cmd, str(obj, "explanation"), stringsField(obj, "alternatives"), confidence), nil
	}

	if raw, ok := obj["plan"]; ok {
		if plan, err := decodeSteps(raw); err == nil {
			plan.OverallConfidence = floatField(obj, "overall_confidence", DefaultPlanConfidence)
			return NewPlan(plan, plan.OverallConfidence), nil
		}
	}

	if op, ok := stringField(obj, "file_operation"); ok {
		params := mapField(obj, "operation_params")
		if params == nil {
			params = map[string]any{}
		}
		for _, key := range []string{"filename", "content", "directory", "pattern", "search_term", "recursive", "force"} {
			if _, exists := params[key]; exists {
				continue
			}
			if v, ok := anyField(obj, key); ok {
				params[key] = v
			}
		}
		return NewFile(FileOperationFromParams(op, params), confidence), nil
	}

	if topic, ok := stringField(obj, "info_type"); ok {
		body := ""
		for _, key := range []string{"content", "info", "answer", "body", "explanation", "message"} {
			if s, ok := stringField(obj, key); ok {
				body = s
				break
			}
		}
		return NewInfo(topic, body, str(obj, "related_command"), confidence), nil
	}

	if raw, ok := obj["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil || msg == "" {
			msg = str(obj, "message")
		}
		if msg == "" {
			msg = "model reported an error"
		}
		suggested := str(obj, "suggested_approach")
		if suggested == "" {
			suggested = str(obj, "suggestion")
		}
		return NewError(msg, suggested), nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return NewUnparseable(string(data), "no known directive key in object with keys: "+strings.Join(keys, ", "), confidence), nil
}

// DecodePlan decodes an object carrying a "plan" list.
func DecodePlan(data []byte) (*Plan, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	raw, ok := obj["plan"]
	if !ok {
		return nil, errors.New("decode plan: no plan key")
	}
	plan, err := decodeSteps(raw)
	if err != nil {
		return nil, err
	}
	plan.OverallConfidence = floatField(obj, "overall_confidence", DefaultPlanConfidence)
	return plan, nil
}

type stepPayload struct {
	Description     string          `json:"description"`
	Operation       string          `json:"operation"`
	Parameters      map[string]any  `json:"parameters"`
	OperationParams map[string]any  `json:"operation_params"`
	Command         string          `json:"command"`
	Confidence      *float64        `json:"confidence"`
	Conditions      json.RawMessage `json:"conditions"`
}

func decodeSteps(raw json.RawMessage) (*Plan, error) {
	var items []stepPayload
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode plan steps: %w", err)
	}

	plan := &Plan{Steps: make([]PlanStep, 0, len(items))}
	for _, it := range items {
		params := it.Parameters
		if params == nil {
			params = it.OperationParams
		}
		if params == nil {
			params = map[string]any{}
		}
		if it.Command != "" {
			if _, ok := params["command"]; !ok {
				params["command"] = it.Command
			}
		}
		step := PlanStep{
			Description: it.Description,
			Operation:   it.Operation,
			Parameters:  params,
			Confidence:  DefaultStructuredConfidence,
			Conditions:  decodeConditions(it.Conditions),
		}
		if it.Confidence != nil {
			step.Confidence = clamp(*it.Confidence)
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan, nil
}

// decodeConditions accepts a string, a list of strings or a list of
// arbitrary values.
func decodeConditions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []any
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil
	}
	out := make([]string, 0, len(many))
	for _, v := range many {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func str(obj map[string]json.RawMessage, key string) string {
	s, _ := stringField(obj, key)
	return s
}

func stringsField(obj map[string]json.RawMessage, key string) []string {
	raw, ok := obj[key]
	if !ok {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	if s, ok := stringField(obj, key); ok && s != "" {
		return []string{s}
	}
	return nil
}

func floatField(obj map[string]json.RawMessage, key string, def float64) float64 {
	raw, ok := obj[key]
	if !ok {
		return def
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return def
	}
	return clamp(f)
}

func mapField(obj map[string]json.RawMessage, key string) map[string]any {
	raw, ok := obj[key]
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func anyField(obj map[string]json.RawMessage, key string) (any, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}
