// Package ai defines the boundary to the language model that turns a request
// into a raw response.
package ai

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no AI backend is configured.
var ErrNoProvider = errors.New("no AI provider configured")

// Provider sends a request to a model and returns its raw text answer.
type Provider interface {
	Query(ctx context.Context, system, request string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, system, request string) (string, error)

// Query calls f.
func (f ProviderFunc) Query(ctx context.Context, system, request string) (string, error) {
	return f(ctx, system, request)
}

// Static answers every request with the same response. It is used when the
// response text is already known, such as with --from-stdin.
type Static struct {
	Response string
	Err      error
}

// Query returns the fixed response.
func (s Static) Query(ctx context.Context, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.Response, s.Err
}
