// Package core ties the pipeline together: a request goes to the model, the
// answer is parsed into a directive, and the directive is gated and run.
package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Lin-Jiong-HDU/nlsh/internal/ai"
	"github.com/Lin-Jiong-HDU/nlsh/internal/cache"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/parser"
	"github.com/Lin-Jiong-HDU/nlsh/internal/platform"
	"github.com/Lin-Jiong-HDU/nlsh/internal/prompt"
)

// StageProvider marks directives produced because the model could not be
// reached.
const StageProvider parser.Stage = "provider"

// Extraction is what the response cache holds for one request.
type Extraction struct {
	Directive directive.Directive
	Metadata  parser.Metadata
}

// Engine orchestrates one request from text to result.
type Engine struct {
	provider    ai.Provider
	parser      *parser.Parser
	cache       *cache.Cache[Extraction]
	coordinator *execution.Coordinator
	platform    platform.Info
	prompts     *prompt.Loader
	promptName  string
	log         *logrus.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache enables the response cache.
func WithCache(c *cache.Cache[Extraction]) Option {
	return func(e *Engine) { e.cache = c }
}

// WithPlatform overrides the detected host.
func WithPlatform(info platform.Info) Option {
	return func(e *Engine) { e.platform = info }
}

// WithParser replaces the default extraction cascade.
func WithParser(p *parser.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithPrompt selects a system prompt template by name from loader.
func WithPrompt(loader *prompt.Loader, name string) Option {
	return func(e *Engine) {
		e.prompts = loader
		e.promptName = name
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates a new engine. The platform is detected unless
// WithPlatform is given.
func NewEngine(provider ai.Provider, coordinator *execution.Coordinator, opts ...Option) *Engine {
	e := &Engine{
		provider:    provider,
		coordinator: coordinator,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parser == nil {
		e.parser = parser.New()
	}
	if e.coordinator == nil {
		e.coordinator = execution.NewCoordinator(nil, execution.Policy{DangerousCheck: true}, e.log)
	}
	if e.platform == (platform.Info{}) {
		e.platform = platform.Detect()
	}
	if e.log == nil {
		e.log = logrus.New()
		e.log.SetOutput(io.Discard)
	}
	return e
}

// Coordinator returns the coordinator requests run through.
func (e *Engine) Coordinator() *execution.Coordinator {
	return e.coordinator
}

// Platform returns the host the engine prompts for.
func (e *Engine) Platform() platform.Info {
	return e.platform
}

// CacheStats reports the response cache counters. ok is false when caching
// is off.
func (e *Engine) CacheStats() (stats cache.Stats, ok bool) {
	if e.cache == nil {
		return cache.Stats{}, false
	}
	return e.cache.Stats(), true
}

// ClearCache drops every cached extraction.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// Process handles a user request from input to output. Refusals, spawn
// failures and timeouts are reported in the Response, never as the error
// return; the error return is reserved for a canceled context.
func (e *Engine) Process(ctx context.Context, request string) (*Response, error) {
	request = strings.TrimSpace(request)
	ext, hit := e.extract(ctx, request)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.run(ctx, request, ext, hit), nil
}

// ProcessText runs raw model output through the pipeline without querying
// the model.
func (e *Engine) ProcessText(ctx context.Context, raw string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.run(ctx, "", e.parse(raw), false), nil
}

// Explain extracts and classifies a request without running anything.
func (e *Engine) Explain(ctx context.Context, request string) (*Response, error) {
	request = strings.TrimSpace(request)
	ext, hit := e.extract(ctx, request)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.explain(request, ext, hit), nil
}

// ExplainText classifies raw model output without running anything.
func (e *Engine) ExplainText(raw string) *Response {
	return e.explain("", e.parse(raw), false)
}

func (e *Engine) run(ctx context.Context, request string, ext Extraction, hit bool) *Response {
	resp := newResponse(request, ext, hit)
	rep := e.coordinator.Run(ctx, ext.Directive)
	resp.Report = rep
	resp.Assessment = rep.Assessment
	resp.Err = rep.Err
	if rep.Command != "" {
		resp.Command = rep.Command
	}

	e.log.WithFields(logrus.Fields{
		"kind":       resp.Kind,
		"source":     ext.Metadata.Source,
		"level":      resp.Assessment.Level,
		"outcome":    rep.Outcome(),
		"from_cache": hit,
	}).Debug("request processed")
	return resp
}

func (e *Engine) explain(request string, ext Extraction, hit bool) *Response {
	resp := newResponse(request, ext, hit)
	d := ext.Directive

	switch d.Kind() {
	case directive.KindShellCommand:
		resp.Command = d.Shell.Text
		resp.Assessment = e.coordinator.Assess(d.Shell.Text)

	case directive.KindFileOperation:
		cmd, ok := d.File.Command()
		if !ok {
			resp.Err = &execution.ExtractionError{Message: fmt.Sprintf("file operation %q is missing required parameters", d.File.Op)}
			break
		}
		resp.Command = cmd
		resp.Assessment = e.coordinator.Assess(cmd)

	case directive.KindPlan:
		resp.Assessment = e.coordinator.AssessPlan(d.Plan)
		for i, step := range d.Plan.Steps {
			p := StepPreview{Index: i, Description: step.Description}
			cmd, err := step.Command()
			if err != nil {
				p.Error = err.Error()
			} else {
				p.Command = cmd
				p.Assessment = e.coordinator.Assess(cmd)
			}
			resp.Steps = append(resp.Steps, p)
		}

	case directive.KindInfo:

	default:
		msg, suggested := "", ""
		if d.Error != nil {
			msg, suggested = d.Error.Message, d.Error.SuggestedApproach
		} else if d.Unparseable != nil {
			msg = d.Unparseable.Reason
		}
		resp.Err = &execution.ExtractionError{Message: msg, SuggestedApproach: suggested}
	}
	return resp
}

// extract returns the cached extraction for the request or asks the model.
func (e *Engine) extract(ctx context.Context, request string) (Extraction, bool) {
	if request == "" {
		return Extraction{
			Directive: directive.NewError("empty request", "describe what you want to do"),
			Metadata:  parser.Metadata{Source: parser.StageEmpty, IsError: true},
		}, false
	}

	key := cache.Key{Request: request, Platform: e.platform.Name()}
	if e.cache != nil {
		if ext, ok := e.cache.Get(key); ok {
			e.log.WithField("request", request).Debug("cache hit")
			return ext, true
		}
	}

	raw, err := e.query(ctx, request)
	if err != nil {
		e.log.WithError(err).Warn("AI provider failed")
		return Extraction{
			Directive: directive.NewError(fmt.Sprintf("AI provider failed: %v", err), "check the API key, base URL and network"),
			Metadata:  parser.Metadata{Source: StageProvider, IsError: true},
		}, false
	}
	e.log.WithField("response", raw).Debug("model response")

	ext := e.parse(raw)
	// Failed extractions are not cached so that asking again gets a new answer.
	if e.cache != nil && !ext.Directive.IsError() {
		e.cache.Put(key, ext)
	}
	return ext, false
}

func (e *Engine) query(ctx context.Context, request string) (string, error) {
	if e.provider == nil {
		return "", ai.ErrNoProvider
	}
	return e.provider.Query(ctx, e.systemPrompt(), prompt.User(request))
}

func (e *Engine) systemPrompt() string {
	if e.prompts == nil || e.promptName == "" {
		return prompt.System(e.platform)
	}
	system, err := e.prompts.System(e.promptName, e.platform)
	if err != nil {
		e.log.WithError(err).WithField("prompt", e.promptName).Warn("using the built-in system prompt")
		return prompt.System(e.platform)
	}
	return system
}

func (e *Engine) parse(raw string) Extraction {
	d, meta := e.parser.Extract(raw)
	return Extraction{Directive: d, Metadata: meta}
}
