package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/yt_agent/internal/config"
	"github.com/dgnsrekt/yt_agent/internal/coordinator"
	"github.com/dgnsrekt/yt_agent/internal/dispatch"
	"github.com/dgnsrekt/yt_agent/internal/relay"
	"github.com/dgnsrekt/yt_agent/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	Snapshot() coordinator.Snapshot
	Activate(ctx context.Context) coordinator.Snapshot
	Refresh(ctx context.Context) coordinator.Snapshot
	StartServer(ctx context.Context) (coordinator.Snapshot, error)
	FocusServer(ctx context.Context) (types.Tab, error)
	FocusYouTube(ctx context.Context) (types.Tab, error)
	Submit(ctx context.Context, opts dispatch.Options) (dispatch.Job, error)
}

// Options wires optional collaborators into the server.
type Options struct {
	Catalog *config.OptionCatalog
	Broker  *relay.Broker
	// KeepAlive defaults to 15s when zero. Negative disables it.
	KeepAlive time.Duration
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("yt_agent Controller API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	router.Get("/docs/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(eventsDocsHTML)); err != nil {
			slog.Debug("events docs response write failed", "error", err)
		}
	})

	if opts.Broker != nil {
		keepAlive := opts.KeepAlive
		if keepAlive == 0 {
			keepAlive = 15 * time.Second
		}
		router.Get("/api/v1/events", relay.SSEHandler(opts.Broker, keepAlive))
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = config.DefaultOptionCatalog()
	}

	registerMiscHandlers(api, catalog)
	registerSessionHandlers(api, svc)
	registerDownloadHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *coordinator.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case coordinator.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case coordinator.CodeSubmissionInFlight:
			return huma.Error409Conflict(coded.Message)
		case coordinator.CodeTabUnavailable:
			return huma.Error503ServiceUnavailable(coded.Message)
		case coordinator.CodeProbeUnreachable, coordinator.CodeBridgeError, coordinator.CodeSubmissionError:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
