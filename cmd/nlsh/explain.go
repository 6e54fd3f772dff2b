package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/nlsh/internal/core"
)

func getExplainCommand(root *rootOptions) *cobra.Command {
	var fromStdin, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "explain [request]",
		Short: "Show the command for a request and its safety level without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			request := strings.Join(args, " ")
			if request == "" && !fromStdin {
				return fmt.Errorf("explain needs a request or --from-stdin")
			}

			a, err := newApp(root, appNeeds{provider: !fromStdin, engine: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var resp *core.Response
			if fromStdin {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				resp = a.engine.ExplainText(string(raw))
			} else {
				ctx := cmd.Context()
				if ctx == nil {
					ctx = context.Background()
				}
				resp, err = a.engine.Explain(ctx, request)
				if err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			a.renderer.Explanation(resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "from-stdin", false, "read model output from stdin instead of asking the model")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	return cmd
}
