package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core"
	"github.com/Lin-Jiong-HDU/nlsh/internal/storage"
)

// ErrUserExit means the user asked to leave the shell.
var ErrUserExit = errors.New("user requested exit")

// Prompt is printed before each request.
const Prompt = "nlsh> "

// REPL is the interactive shell. Its session carries the history that
// would otherwise be global state.
type REPL struct {
	engine   *core.Engine
	session  *storage.Session
	renderer *Renderer
	in       io.Reader
	out      io.Writer
}

// NewREPL creates a REPL reading requests from in.
func NewREPL(engine *core.Engine, session *storage.Session, renderer *Renderer, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		engine:   engine,
		session:  session,
		renderer: renderer,
		in:       in,
		out:      out,
	}
}

// Run reads requests until end of input or /exit.
func (r *REPL) Run(ctx context.Context) error {
	reader := lineReader(r.in)
	fmt.Fprintf(r.out, "nlsh on %s. Type /help for commands.\n", r.engine.Platform())

	for {
		fmt.Fprint(r.out, Prompt)
		line, err := reader.ReadString('\n')
		if line != "" {
			if perr := r.ProcessInput(ctx, line); perr != nil {
				if errors.Is(perr, ErrUserExit) {
					return nil
				}
				return perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				r.DisplayExitSummary()
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// ProcessInput handles one line: a slash command or a request.
func (r *REPL) ProcessInput(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	if strings.HasPrefix(input, "/") {
		shouldExit, err := r.HandleCommand(ctx, input)
		if err != nil {
			return err
		}
		if shouldExit {
			return ErrUserExit
		}
		return nil
	}

	resp, err := r.engine.Process(ctx, input)
	if err != nil {
		return err
	}
	r.renderer.Response(resp)
	r.record(resp)
	return nil
}

func (r *REPL) record(resp *core.Response) {
	if r.session == nil {
		return
	}
	entry := storage.HistoryEntry{
		Request: resp.Request,
		Command: resp.Command,
		Level:   string(resp.Level()),
	}
	if resp.Report != nil {
		entry.Outcome = string(resp.Report.Outcome())
	}
	if err := r.session.Add(entry); err != nil {
		fmt.Fprintf(r.out, "warning: history not saved: %v\n", err)
	}
}

// HandleCommand runs a slash command and reports whether the shell should
// exit.
func (r *REPL) HandleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/exit", "/quit":
		r.DisplayExitSummary()
		return true, nil

	case "/help":
		r.DisplayHelp()

	case "/clear":
		fmt.Fprint(r.out, "\033[H\033[2J")

	case "/explain":
		if len(parts) < 2 {
			fmt.Fprintln(r.out, "usage: /explain <request>")
			return false, nil
		}
		resp, err := r.engine.Explain(ctx, strings.Join(parts[1:], " "))
		if err != nil {
			return false, err
		}
		r.renderer.Explanation(resp)

	case "/cache":
		if len(parts) > 1 && parts[1] == "clear" {
			r.engine.ClearCache()
			fmt.Fprintln(r.out, "cache cleared")
			return false, nil
		}
		r.DisplayCacheStats()

	case "/history":
		r.DisplayHistory()

	default:
		fmt.Fprintf(r.out, "unknown command: %s\n", parts[0])
	}
	return false, nil
}

// DisplayHelp shows the slash commands.
func (r *REPL) DisplayHelp() {
	fmt.Fprint(r.out, `
Commands:
  /help              show this help
  /explain <text>    show the command and its safety level without running it
  /cache [clear]     show or clear the response cache
  /history           show the requests of this session
  /clear             clear the screen
  /exit, /quit       leave the shell

Anything else is sent to the model as a request.

`)
}

// DisplayCacheStats prints the cache counters.
func (r *REPL) DisplayCacheStats() {
	stats, ok := r.engine.CacheStats()
	if !ok {
		fmt.Fprintln(r.out, "cache is disabled")
		return
	}
	fmt.Fprintf(r.out, "entries: %d, hits: %d, misses: %d, hit rate: %.0f%%, evictions: %d\n",
		stats.Size, stats.Hits, stats.Misses, stats.HitRate*100, stats.Evictions)
}

// DisplayHistory prints this session's requests.
func (r *REPL) DisplayHistory() {
	if r.session == nil || len(r.session.Entries) == 0 {
		fmt.Fprintln(r.out, "no history yet")
		return
	}
	for i, e := range r.session.Entries {
		line := fmt.Sprintf("%3d  %s", i+1, e.Request)
		if e.Command != "" {
			line += "  →  " + e.Command
		}
		if e.Outcome != "" {
			line += " (" + e.Outcome + ")"
		}
		fmt.Fprintln(r.out, line)
	}
}

// DisplayExitSummary prints where the session was saved.
func (r *REPL) DisplayExitSummary() {
	if r.session == nil {
		return
	}
	fmt.Fprintf(r.out, "📝 session %s, %d requests\n", r.session.ID, len(r.session.Entries))
}
