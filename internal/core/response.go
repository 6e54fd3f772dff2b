package core

import (
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/parser"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

// Response is the structured result of one request. It always carries the
// directive kind and the safety level reached; Report holds stdout and
// stderr when something ran.
type Response struct {
	Request    string              `json:"request,omitempty"`
	Kind       directive.Kind      `json:"kind"`
	Directive  directive.Directive `json:"directive"`
	Metadata   parser.Metadata     `json:"metadata"`
	Command    string              `json:"command,omitempty"`
	Assessment security.Assessment `json:"assessment"`
	Report     *execution.Report   `json:"report,omitempty"`
	// Steps previews a plan in explain mode.
	Steps     []StepPreview `json:"steps,omitempty"`
	FromCache bool          `json:"from_cache"`
	Err       error         `json:"-"`
}

// StepPreview is one classified but unexecuted plan step.
type StepPreview struct {
	Index       int                 `json:"index"`
	Description string              `json:"description"`
	Command     string              `json:"command,omitempty"`
	Assessment  security.Assessment `json:"assessment"`
	Error       string              `json:"error,omitempty"`
}

func newResponse(request string, ext Extraction, hit bool) *Response {
	r := &Response{
		Request:   request,
		Kind:      ext.Directive.Kind(),
		Directive: ext.Directive,
		Metadata:  ext.Metadata,
		FromCache: hit,
	}
	if ext.Directive.Kind() == directive.KindShellCommand {
		r.Command = ext.Directive.Shell.Text
	}
	return r
}

// Level is the safety level the request reached.
func (r *Response) Level() security.SafetyLevel {
	return r.Assessment.Level
}

// Result returns the single command result, if one ran or was refused.
func (r *Response) Result() *execution.Result {
	if r.Report == nil {
		return nil
	}
	return r.Report.Result
}

// Plan returns the plan result, if a plan ran.
func (r *Response) Plan() *execution.PlanResult {
	if r.Report == nil {
		return nil
	}
	return r.Report.Plan
}

// Info returns the informational answer, if the model gave one.
func (r *Response) Info() *directive.InfoResponse {
	return r.Directive.Info
}

// Succeeded reports whether the request completed without a refusal or
// failure.
func (r *Response) Succeeded() bool {
	if r.Err != nil {
		return false
	}
	if r.Report == nil {
		return !r.Directive.IsError()
	}
	return r.Report.Succeeded()
}
