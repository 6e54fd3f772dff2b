// Package directive defines the structured result of interpreting model output.
//
// A Directive is a tagged union: exactly one of its variant pointers is set,
// and Kind reports which one. Directives are immutable once constructed; the
// classifier and the coordinator derive new values alongside them.
package directive

import "fmt"

// Kind identifies the active variant of a Directive.
type Kind string

const (
	KindShellCommand  Kind = "shell_command"
	KindFileOperation Kind = "file_operation"
	KindInfo          Kind = "info_response"
	KindError         Kind = "error"
	KindPlan          Kind = "plan"
	KindUnparseable   Kind = "unparseable"
)

// Directive is the result of one extraction.
type Directive struct {
	Shell       *ShellCommand   `json:"shell,omitempty"`
	File        *FileOperation  `json:"file,omitempty"`
	Info        *InfoResponse   `json:"info,omitempty"`
	Error       *ErrorDirective `json:"error,omitempty"`
	Plan        *Plan           `json:"plan,omitempty"`
	Unparseable *Unparseable    `json:"unparseable,omitempty"`

	// Confidence is in [0,1] and set on every non-error variant.
	Confidence float64 `json:"confidence"`
}

// ShellCommand is a command line to run as-is.
type ShellCommand struct {
	Text         string   `json:"text"`
	Explanation  string   `json:"explanation,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// InfoResponse answers a question without running anything.
type InfoResponse struct {
	Topic          string `json:"topic"`
	Body           string `json:"body"`
	RelatedCommand string `json:"related_command,omitempty"`
}

// ErrorDirective means nothing executable could be recovered, or the model refused.
type ErrorDirective struct {
	Message           string `json:"message"`
	SuggestedApproach string `json:"suggested_approach,omitempty"`
}

// Unparseable holds a structured payload whose shape matched no known variant.
type Unparseable struct {
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Kind returns the active variant.
func (d Directive) Kind() Kind {
	switch {
	case d.Shell != nil:
		return KindShellCommand
	case d.File != nil:
		return KindFileOperation
	case d.Info != nil:
		return KindInfo
	case d.Plan != nil:
		return KindPlan
	case d.Unparseable != nil:
		return KindUnparseable
	default:
		return KindError
	}
}

// IsError reports whether the directive carries no executable content.
func (d Directive) IsError() bool {
	k := d.Kind()
	return k == KindError || k == KindUnparseable
}

// String renders a short human readable form, mostly for logs.
func (d Directive) String() string {
	switch d.Kind() {
	case KindShellCommand:
		return d.Shell.Text
	case KindFileOperation:
		if cmd, ok := d.File.Command(); ok {
			return cmd
		}
		return fmt.Sprintf("%s %s", d.File.Op, d.File.Filename)
	case KindInfo:
		return d.Info.Topic
	case KindPlan:
		return fmt.Sprintf("plan with %d steps", len(d.Plan.Steps))
	case KindUnparseable:
		return "unparseable: " + d.Unparseable.Reason
	default:
		if d.Error == nil {
			return "error"
		}
		return "error: " + d.Error.Message
	}
}

// NewShell builds a ShellCommand directive.
func NewShell(text, explanation string, alternatives []string, confidence float64) Directive {
	return Directive{
		Shell:      &ShellCommand{Text: text, Explanation: explanation, Alternatives: alternatives},
		Confidence: clamp(confidence),
	}
}

// NewFile builds a FileOperation directive.
func NewFile(op *FileOperation, confidence float64) Directive {
	return Directive{File: op, Confidence: clamp(confidence)}
}

// NewInfo builds an InfoResponse directive.
func NewInfo(topic, body, related string, confidence float64) Directive {
	return Directive{
		Info:       &InfoResponse{Topic: topic, Body: body, RelatedCommand: related},
		Confidence: clamp(confidence),
	}
}

// NewPlan builds a Plan directive.
func NewPlan(plan *Plan, confidence float64) Directive {
	return Directive{Plan: plan, Confidence: clamp(confidence)}
}

// NewError builds an ErrorDirective. Errors carry no confidence.
func NewError(message, suggested string) Directive {
	return Directive{Error: &ErrorDirective{Message: message, SuggestedApproach: suggested}}
}

// NewUnparseable builds an Unparseable directive.
func NewUnparseable(raw, reason string, confidence float64) Directive {
	return Directive{
		Unparseable: &Unparseable{Raw: raw, Reason: reason},
		Confidence:  clamp(confidence),
	}
}

func clamp(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
