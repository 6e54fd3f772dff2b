package ai

import (
	"context"
	"errors"
	"testing"
)

func TestStatic(t *testing.T) {
	p := Static{Response: `{"command":"ls"}`}
	got, err := p.Query(context.Background(), "sys", "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"command":"ls"}` {
		t.Errorf("got %q", got)
	}

	boom := errors.New("boom")
	if _, err := (Static{Err: boom}).Query(context.Background(), "", ""); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestStatic_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Static{Response: "x"}).Query(ctx, "", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProviderFunc(t *testing.T) {
	var gotSystem, gotRequest string
	p := ProviderFunc(func(_ context.Context, system, request string) (string, error) {
		gotSystem, gotRequest = system, request
		return "ok", nil
	})

	var _ Provider = p
	out, _ := p.Query(context.Background(), "s", "r")
	if out != "ok" || gotSystem != "s" || gotRequest != "r" {
		t.Errorf("unexpected call: %q %q %q", out, gotSystem, gotRequest)
	}
}
