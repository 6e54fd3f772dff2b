package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Lin-Jiong-HDU/nlsh/internal/storage"
)

func getConfigCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration",
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storage.GetConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storage.GetConfigDir()
			if err != nil {
				return err
			}
			target := filepath.Join(dir, storage.ConfigFileName+"."+storage.ConfigFileType)
			if _, err := os.Stat(target); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", target)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			written, err := storage.SaveConfig(storage.DefaultConfig(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", written)
			fmt.Fprintln(cmd.OutOrStdout(), "store the API key with 'nlsh key set'")
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			printConfig(cmd, cfg)
			return nil
		},
	}

	cmd.AddCommand(path, initCmd, show)
	return cmd
}

func printConfig(cmd *cobra.Command, cfg *storage.Config) {
	w := cmd.OutOrStdout()
	key := "not set"
	if cfg.AI.APIKey != "" {
		key = "set (from " + cfg.KeySource + ")"
	}

	fmt.Fprintf(w, "dir:                %s\n", cfg.Dir)
	fmt.Fprintf(w, "ai.provider:        %s\n", cfg.AI.Provider)
	fmt.Fprintf(w, "ai.model:           %s\n", cfg.AI.Model)
	fmt.Fprintf(w, "ai.base_url:        %s\n", cfg.AI.BaseURL)
	fmt.Fprintf(w, "ai.api_key:         %s\n", key)
	fmt.Fprintf(w, "ai.prompt:          %s\n", orDefault(cfg.AI.Prompt))
	fmt.Fprintf(w, "security.safe_mode: %v\n", cfg.Security.SafeMode)
	fmt.Fprintf(w, "security.dangerous_check: %v\n", cfg.Security.DangerousCheck)
	fmt.Fprintf(w, "security.rules_file: %s\n", orDefault(cfg.Security.RulesFile))
	fmt.Fprintf(w, "execution.fast_mode: %v\n", cfg.Execution.FastMode)
	fmt.Fprintf(w, "execution.timeout:  %s\n", cfg.Execution.Timeout)
	fmt.Fprintf(w, "execution.shell:    %s\n", cfg.Execution.Shell)
	fmt.Fprintf(w, "cache.enabled:      %v (ttl %s, max %d)\n", cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.MaxEntries)
	fmt.Fprintf(w, "log.level:          %s\n", cfg.Log.Level)
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
