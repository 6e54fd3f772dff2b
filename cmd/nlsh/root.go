package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configFile string
	verbose    bool
	safe       bool
	fast       bool
	timeout    time.Duration
	noRender   bool
	assumeYes  bool
	deferTasks bool
	fromStdin  bool
	jsonOutput bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "nlsh [request]",
		Short: "Natural language shell",
		Long: `nlsh turns a request in plain language into a shell command, checks how
dangerous it is and runs it, asks first, or refuses.

  nlsh list the five largest files here
  nlsh "run the test suite"
  echo '{"command": "df -h"}' | nlsh --from-stdin

Quote a request that starts with the name of a subcommand.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, opts, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default ~/.nlsh/config.yaml)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&opts.safe, "safe", false, "safe mode: block dangerous commands, confirm anything off the allow list")
	pf.BoolVar(&opts.fast, "fast", false, "fast mode: no safety prompts, short timeout")
	pf.DurationVar(&opts.timeout, "timeout", 0, "command timeout (default from config)")
	pf.BoolVar(&opts.noRender, "no-render", false, "plain output without colors or markdown")
	pf.BoolVarP(&opts.assumeYes, "yes", "y", false, "approve confirmations except the admin gate")
	pf.BoolVar(&opts.deferTasks, "defer", false, "queue confirmations as tasks instead of asking")

	cmd.Flags().BoolVar(&opts.fromStdin, "from-stdin", false, "read model output from stdin instead of asking the model")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the result as JSON")

	cmd.AddCommand(
		getExplainCommand(opts),
		getTasksCommand(opts),
		getRunCommand(opts),
		getShellCommand(opts),
		getConfigCommand(opts),
		getKeyCommand(opts),
	)
	return cmd
}

func runRequest(cmd *cobra.Command, opts *rootOptions, args []string) error {
	request := strings.Join(args, " ")
	if request == "" && !opts.fromStdin {
		return cmd.Help()
	}

	a, err := newApp(opts, appNeeds{provider: !opts.fromStdin, engine: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var resp *core.Response
	if opts.fromStdin {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		resp, err = a.engine.ProcessText(ctx, string(raw))
		if err != nil {
			return err
		}
	} else {
		resp, err = a.engine.Process(ctx, request)
		if err != nil {
			return err
		}
	}

	if opts.jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		a.renderer.Response(resp)
	}
	return responseExit(resp)
}

// responseExit maps a response to the process exit status.
func responseExit(resp *core.Response) error {
	if resp.Succeeded() {
		return nil
	}
	if res := resp.Result(); res != nil && res.ReturnCode != nil && *res.ReturnCode != 0 {
		return &exitError{code: *res.ReturnCode}
	}
	return &exitError{code: 1}
}

// jsonResponse adds the error text, which the Response itself does not
// serialize.
type jsonResponse struct {
	*core.Response
	Error string `json:"error,omitempty"`
}

func writeJSON(w io.Writer, resp *core.Response) error {
	out := jsonResponse{Response: resp}
	if resp.Err != nil {
		out.Error = resp.Err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func stdoutWidth() int {
	return terminalWidth(os.Stdout, 80)
}
