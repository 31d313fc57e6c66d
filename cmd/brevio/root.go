package main

import (
	"fmt"
	"os"

	"brevio/internal/config"
	"brevio/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debugFlag  bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "brevio",
	Short:         "Summarize the spoken content of online videos",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		if err := logger.Init(debugFlag || cfg.Log.Debug); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable development logging")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
