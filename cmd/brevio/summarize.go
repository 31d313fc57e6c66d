package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"brevio/pkg/logger"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	summarizeJSON bool
	summarizeCopy bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <url>",
	Short: "Summarize a single video from the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "print {summary, transcript} as JSON")
	summarizeCmd.Flags().BoolVar(&summarizeCopy, "copy", false, "copy the summary to the clipboard")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var release cleanups
	defer release.run()

	p, err := buildPipeline(ctx, cfg, &release)
	if err != nil {
		return err
	}

	res, err := p.Summarize(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if summarizeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]string{
			"summary":    res.Summary,
			"transcript": res.Transcript,
		}); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		fmt.Fprintln(out, res.Summary)
	}

	if summarizeCopy {
		if err := clipboard.WriteAll(res.Summary); err != nil {
			logger.Warn("Failed to copy summary to clipboard", zap.Error(err))
		}
	}

	return nil
}
