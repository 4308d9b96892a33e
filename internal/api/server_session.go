package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/yt_agent/internal/coordinator"
	"github.com/dgnsrekt/yt_agent/internal/types"
)

// SnapshotView is the wire form of coordinator.Snapshot, shared by the REST
// responses and the event stream.
type SnapshotView struct {
	Phase        string    `json:"phase" enum:"idle,probing,reachable,unreachable"`
	Reachability string    `json:"reachability" enum:"unknown,reachable,unreachable"`
	Category     string    `json:"category,omitempty"`
	URL          string    `json:"url,omitempty"`
	View         []string  `json:"view"`
	Status       string    `json:"status,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewSnapshotView(s coordinator.Snapshot) SnapshotView {
	ids := s.View.IDs()
	out := SnapshotView{
		Phase:        string(s.Phase),
		Reachability: string(s.Reachability),
		Category:     string(s.Category),
		URL:          s.URL,
		View:         make([]string, 0, len(ids)),
		Status:       s.Status,
		ErrorCode:    s.ErrorCode,
		UpdatedAt:    s.UpdatedAt,
	}
	for _, id := range ids {
		out.View = append(out.View, string(id))
	}
	return out
}

type snapshotOutput struct {
	Body SnapshotView
}

type tabOutput struct {
	Body types.Tab
}

func registerSessionHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "get-view", Method: http.MethodGet, Path: "/api/v1/view", Summary: "Get current view and status", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			return &snapshotOutput{Body: NewSnapshotView(svc.Snapshot())}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "activate", Method: http.MethodPost, Path: "/api/v1/activate", Summary: "Probe the helper server and classify the active tab", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			return &snapshotOutput{Body: NewSnapshotView(svc.Activate(ctx))}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "refresh", Method: http.MethodPost, Path: "/api/v1/refresh", Summary: "Reclassify the active tab", Tags: []string{"Session"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			return &snapshotOutput{Body: NewSnapshotView(svc.Refresh(ctx))}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "start-server", Method: http.MethodPost, Path: "/api/v1/server/start", Summary: "Ask the native host to start the helper server", Tags: []string{"Server"}},
		func(ctx context.Context, input *struct{}) (*snapshotOutput, error) {
			snap, err := svc.StartServer(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: NewSnapshotView(snap)}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "focus-server", Method: http.MethodPost, Path: "/api/v1/server/focus", Summary: "Focus or open the helper server tab", Tags: []string{"Server"}},
		func(ctx context.Context, input *struct{}) (*tabOutput, error) {
			tab, err := svc.FocusServer(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &tabOutput{Body: tab}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "focus-youtube", Method: http.MethodPost, Path: "/api/v1/youtube/focus", Summary: "Focus or open a YouTube tab", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*tabOutput, error) {
			tab, err := svc.FocusYouTube(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &tabOutput{Body: tab}, nil
		})
}
