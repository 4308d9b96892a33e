package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/yt_agent/internal/config"
)

func registerMiscHandlers(api huma.API, catalog *config.OptionCatalog) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type optionsOutput struct {
		Body config.OptionCatalog
	}
	huma.Register(api, huma.Operation{OperationID: "list-options", Method: http.MethodGet, Path: "/api/v1/options", Summary: "List download form option groups", Tags: []string{"Download"}},
		func(ctx context.Context, input *struct{}) (*optionsOutput, error) {
			return &optionsOutput{Body: *catalog}, nil
		})
}
