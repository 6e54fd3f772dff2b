package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/nlsh/internal/storage"
	"github.com/Lin-Jiong-HDU/nlsh/internal/terminal"
)

func getShellCommand(root *rootOptions) *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Long:  "Read requests line by line. Responses are cached for the session and the history is saved under ~/.nlsh/history.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			session := storage.NewSession(cfg.Dir)

			a, err := newApp(root, appNeeds{provider: true, engine: true, sessionID: session.ID})
			if err != nil {
				return err
			}
			defer a.Close()

			if noHistory {
				session = nil
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			repl := terminal.NewREPL(a.engine, session, a.renderer, a.prompter.Lines(), os.Stdout)
			return repl.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not save the history")
	return cmd
}
