package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/yt_agent/internal/dispatch"
)

type downloadInput struct {
	Body struct {
		Format   *string `json:"format,omitempty" doc:"Output format, e.g. mp4 or mp3"`
		Quantity *string `json:"quantity,omitempty" doc:"Number of search results to download"`
		Playlist *string `json:"playlist,omitempty" doc:"Download the whole playlist (true/false)"`
	}
}

type downloadOutput struct {
	Body struct {
		Status string       `json:"status"`
		Job    dispatch.Job `json:"job"`
	}
}

func registerDownloadHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "download", Method: http.MethodPost, Path: "/api/v1/download", Summary: "Send a download request for the active tab", Tags: []string{"Download"}},
		func(ctx context.Context, input *downloadInput) (*downloadOutput, error) {
			job, err := svc.Submit(ctx, dispatch.Options{
				Format:   input.Body.Format,
				Quantity: input.Body.Quantity,
				Playlist: input.Body.Playlist,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &downloadOutput{}
			out.Body.Status = "sent"
			out.Body.Job = job
			return out, nil
		})
}
