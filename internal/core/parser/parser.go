// Package parser recovers a Directive from free-form model output.
//
// Extraction is an ordered cascade of strategies. The first strategy that
// recognises the text wins; later strategies only run when earlier ones found
// nothing. Extraction never fails: when nothing usable is found the result is
// an ErrorDirective. All strategies are pure, so a Parser is safe for
// concurrent use.
package parser

import (
	"strings"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core/directive"
)

// Stage names the strategy that produced a directive.
type Stage string

const (
	StageEmpty        Stage = "empty"
	StageRefusal      Stage = "refusal"
	StageJSON         Stage = "json"
	StageFenced       Stage = "fenced"
	StageBacktick     Stage = "backtick"
	StageCue          Stage = "cue"
	StageMultilingual Stage = "multilingual"
	StageFallback     Stage = "fallback"
)

// Confidence assigned by the unstructured stages.
const (
	ConfidenceFenced       = 0.8
	ConfidenceBacktick     = 0.7
	ConfidenceCue          = 0.6
	ConfidenceMultilingual = 0.6
	ConfidenceFallback     = 0.3
	ConfidenceRaw          = 0.1
)

// Metadata describes how a directive was extracted.
type Metadata struct {
	Source   Stage  `json:"source"`
	IsError  bool   `json:"is_error"`
	Language string `json:"language,omitempty"`
}

// Candidate is what a strategy returns on a match.
type Candidate struct {
	Directive directive.Directive
	Language  string
}

// Strategy is one step of the cascade.
type Strategy struct {
	Stage Stage
	Match func(text string) (Candidate, bool)
}

// DefaultStrategies is the standard cascade, in evaluation order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Stage: StageRefusal, Match: MatchRefusal},
		{Stage: StageJSON, Match: MatchJSON},
		{Stage: StageFenced, Match: MatchFenced},
		{Stage: StageBacktick, Match: MatchBacktick},
		{Stage: StageCue, Match: MatchCue},
		{Stage: StageMultilingual, Match: MatchMultilingual},
		{Stage: StageFallback, Match: MatchFallback},
	}
}

// Parser runs a strategy cascade.
type Parser struct {
	strategies []Strategy
}

// New creates a parser with the given strategies, or the default cascade
// when none are given.
func New(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

// Extract interprets raw model text.
func (p *Parser) Extract(raw string) (directive.Directive, Metadata) {
	if strings.TrimSpace(raw) == "" {
		return directive.NewError("empty response", "ask again with a more specific request"),
			Metadata{Source: StageEmpty, IsError: true}
	}

	for _, s := range p.strategies {
		c, ok := s.Match(raw)
		if !ok {
			continue
		}
		return c.Directive, Metadata{
			Source:   s.Stage,
			IsError:  c.Directive.IsError(),
			Language: c.Language,
		}
	}

	return directive.NewError("no command could be extracted from the response", ""),
		Metadata{Source: StageFallback, IsError: true}
}

var defaultParser = New()

// Extract runs the default cascade.
func Extract(raw string) (directive.Directive, Metadata) {
	return defaultParser.Extract(raw)
}
