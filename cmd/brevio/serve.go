package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brevio/internal/server"
	"brevio/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP summarization service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("Starting brevio service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var release cleanups
	defer release.run()

	p, err := buildPipeline(ctx, cfg, &release)
	if err != nil {
		return err
	}

	srv := server.New(p, buildServerOptions(ctx, cfg, &release))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Listen(cfg.Server.Addr)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Service shutdown complete")
	return nil
}
