package terminal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Lin-Jiong-HDU/nlsh/internal/ai"
	"github.com/Lin-Jiong-HDU/nlsh/internal/cache"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/platform"
	"github.com/Lin-Jiong-HDU/nlsh/internal/storage"
)

func newTestREPL(t *testing.T, response string, input string, opts ...core.Option) (*REPL, *strings.Builder, *storage.Session) {
	t.Helper()
	out := &strings.Builder{}
	coordinator := execution.NewCoordinator(nil, execution.Policy{DangerousCheck: true, Dir: t.TempDir()}, nil)
	opts = append([]core.Option{core.WithPlatform(platform.Info{OSName: "linux", Arch: "amd64"})}, opts...)
	engine := core.NewEngine(ai.Static{Response: response}, coordinator, opts...)
	session := storage.NewSession(t.TempDir())
	return NewREPL(engine, session, NewRenderer(out, 80, true), strings.NewReader(input), out), out, session
}

func TestREPL_ProcessInput(t *testing.T) {
	repl, out, session := newTestREPL(t, `{"info_type": "greeting", "content": "Hello there."}`, "")

	if err := repl.ProcessInput(context.Background(), "say hello"); err != nil {
		t.Fatalf("ProcessInput failed: %v", err)
	}

	if !strings.Contains(out.String(), "Hello there.") {
		t.Errorf("Expected the answer in the output, got:\n%s", out.String())
	}
	if len(session.Entries) != 1 || session.Entries[0].Request != "say hello" {
		t.Errorf("Expected the request in the history, got %+v", session.Entries)
	}
}

func TestREPL_ProcessInput_Blank(t *testing.T) {
	repl, out, session := newTestREPL(t, "", "")

	if err := repl.ProcessInput(context.Background(), "   "); err != nil {
		t.Fatalf("ProcessInput failed: %v", err)
	}
	if out.Len() != 0 || len(session.Entries) != 0 {
		t.Error("Expected blank input to be ignored")
	}
}

func TestREPL_HandleCommand(t *testing.T) {
	repl, out, _ := newTestREPL(t, "", "")
	ctx := context.Background()

	shouldExit, err := repl.HandleCommand(ctx, "/help")
	if err != nil || shouldExit {
		t.Errorf("Expected /help to continue, got %v, %v", shouldExit, err)
	}
	if !strings.Contains(out.String(), "/explain <text>") {
		t.Error("Expected help text")
	}

	out.Reset()
	repl.HandleCommand(ctx, "/bogus")
	if !strings.Contains(out.String(), "unknown command: /bogus") {
		t.Error("Expected unknown command message")
	}

	out.Reset()
	repl.HandleCommand(ctx, "/cache")
	if !strings.Contains(out.String(), "cache is disabled") {
		t.Errorf("Expected disabled cache message, got %q", out.String())
	}

	shouldExit, _ = repl.HandleCommand(ctx, "/exit")
	if !shouldExit {
		t.Error("Expected /exit to exit")
	}
}

func TestREPL_ExitCommand(t *testing.T) {
	repl, _, _ := newTestREPL(t, "", "")

	err := repl.ProcessInput(context.Background(), "/quit")
	if !errors.Is(err, ErrUserExit) {
		t.Errorf("Expected ErrUserExit, got %v", err)
	}
}

func TestREPL_Explain(t *testing.T) {
	repl, out, session := newTestREPL(t, "`rm -rf build`", "")

	if _, err := repl.HandleCommand(context.Background(), "/explain clean up"); err != nil {
		t.Fatalf("HandleCommand failed: %v", err)
	}
	if !strings.Contains(out.String(), "[POTENTIALLY_DANGEROUS]") {
		t.Errorf("Expected the level, got:\n%s", out.String())
	}
	if len(session.Entries) != 0 {
		t.Error("Explain should not be recorded")
	}
}

func TestREPL_CacheStats(t *testing.T) {
	c := cache.New[core.Extraction](cache.Options{})
	repl, out, _ := newTestREPL(t, `{"info_type": "x", "content": "y"}`, "", core.WithCache(c))
	ctx := context.Background()

	repl.ProcessInput(ctx, "question")
	repl.ProcessInput(ctx, "question")
	out.Reset()

	repl.HandleCommand(ctx, "/cache")
	if !strings.Contains(out.String(), "entries: 1, hits: 1") {
		t.Errorf("Unexpected stats: %q", out.String())
	}

	repl.HandleCommand(ctx, "/cache clear")
	if c.Stats().Size != 0 {
		t.Error("Expected the cache to be cleared")
	}
}

func TestREPL_Run(t *testing.T) {
	repl, out, session := newTestREPL(t, `{"info_type": "x", "content": "answer"}`, "first\n/history\n/exit\nnever\n")

	if err := repl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "  1  first") {
		t.Errorf("Expected the history listing, got:\n%s", got)
	}
	if len(session.Entries) != 1 {
		t.Errorf("Expected input after /exit to be ignored, got %d entries", len(session.Entries))
	}
}

func TestREPL_RunUntilEOF(t *testing.T) {
	repl, out, _ := newTestREPL(t, `{"info_type": "x", "content": "answer"}`, "only")

	if err := repl.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "answer") {
		t.Error("Expected the last unterminated line to be processed")
	}
	if !strings.Contains(out.String(), "1 requests") {
		t.Errorf("Expected the exit summary, got:\n%s", out.String())
	}
}
