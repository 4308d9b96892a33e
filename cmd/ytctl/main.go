package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/yt_agent/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(submain(ctx, os.Args[1:]))
}

func submain(ctx context.Context, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

	root := newRootCmd(cfg)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("ytctl command failed", "error", err)
		return 1
	}
	return 0
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "ytctl",
		Short:         "Diagnostics for the yt_agent download companion",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newClassifyCmd())
	root.AddCommand(newSelectCmd())
	root.AddCommand(newProbeCmd(cfg))
	root.AddCommand(newStartServerCmd(cfg))
	root.AddCommand(newDownloadCmd(cfg))

	return root
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
