package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/yt_agent/internal/api"
	"github.com/dgnsrekt/yt_agent/internal/bridge"
	"github.com/dgnsrekt/yt_agent/internal/browser"
	"github.com/dgnsrekt/yt_agent/internal/config"
	"github.com/dgnsrekt/yt_agent/internal/coordinator"
	"github.com/dgnsrekt/yt_agent/internal/dispatch"
	"github.com/dgnsrekt/yt_agent/internal/netutil"
	"github.com/dgnsrekt/yt_agent/internal/probe"
	"github.com/dgnsrekt/yt_agent/internal/relay"
	"github.com/dgnsrekt/yt_agent/internal/tabs"
	"github.com/dgnsrekt/yt_agent/internal/watcher"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("yt_agent config loaded",
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"cdp_url", cfg.GetCDPURL(),
		"server_url", cfg.ServerBaseURL,
		"probe_timeout_ms", cfg.ProbeTimeoutMS,
		"native_host", cfg.NativeHostID,
		"manifest_dir", cfg.ManifestDir,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	catalog, err := config.LoadOptionCatalog(cfg.OptionsFile)
	if err != nil {
		slog.Error("failed to load option catalog", "path", cfg.OptionsFile, "error", err)
		os.Exit(1)
	}

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var launcher *browser.Launcher
	if cfg.BrowserAutoLaunch {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			ProfileDir: cfg.BrowserProfileDir,
			StartURLs:  []string{cfg.YouTubeHomeURL},
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	httpClient := &http.Client{}
	tabClient := tabs.NewClient(cfg.GetCDPURL(), cfg.EvalTimeout(), httpClient)
	if err := tabClient.Connect(ctx); err != nil {
		slog.Error("failed to connect to browser", "cdp_url", cfg.GetCDPURL(), "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := tabClient.Close(); err != nil {
			slog.Debug("tab client close failed", "error", err)
		}
	}()

	broker := relay.NewBroker()
	svc := coordinator.NewService(
		coordinator.Config{
			ServerHomeURL:     cfg.ServerHomeURL(),
			ServerTabPattern:  cfg.ServerTabPattern,
			NativeHostID:      cfg.NativeHostID,
			YouTubeHomeURL:    cfg.YouTubeHomeURL,
			YouTubeTabPattern: cfg.YouTubeTabPattern,
		},
		probe.New(httpClient, cfg.ServerBaseURL, cfg.ProbeTimeout()),
		tabClient,
		bridge.NewClient(cfg.ManifestDir, cfg.ExtensionOrigin, cfg.BridgeTimeout()),
		dispatch.New(httpClient, cfg.ServerBaseURL),
		coordinator.WithOptionValidator(catalog),
		coordinator.WithPublisher(coordinator.PublisherFunc(func(snap coordinator.Snapshot) {
			if err := broker.PublishJSON("snapshot", api.NewSnapshotView(snap)); err != nil {
				slog.Debug("snapshot publish failed", "error", err)
			}
		})),
	)

	svc.Activate(ctx)

	w := watcher.New(tabClient, watcher.RefresherFunc(func(ctx context.Context) { svc.Refresh(ctx) }), 0)
	if err := w.Start(ctx); err != nil {
		slog.Warn("tab watcher unavailable, refresh on demand only", "error", err)
	}
	defer w.Stop()

	h := api.NewServer(svc, api.Options{Catalog: catalog, Broker: broker, KeepAlive: cfg.SSEKeepAlive()})
	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("yt_agent listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("yt_agent server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("yt_agent shutdown failed", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(h))
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
