package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/yt_agent/internal/classify"
	"github.com/dgnsrekt/yt_agent/internal/coordinator"
	"github.com/dgnsrekt/yt_agent/internal/dispatch"
	"github.com/dgnsrekt/yt_agent/internal/relay"
	"github.com/dgnsrekt/yt_agent/internal/types"
	"github.com/dgnsrekt/yt_agent/internal/view"
)

type stubService struct {
	snap      coordinator.Snapshot
	startErr  error
	focusErr  error
	submitErr error
	lastOpts  dispatch.Options
}

func (s *stubService) Snapshot() coordinator.Snapshot { return s.snap }
func (s *stubService) Activate(ctx context.Context) coordinator.Snapshot {
	return s.snap
}
func (s *stubService) Refresh(ctx context.Context) coordinator.Snapshot { return s.snap }
func (s *stubService) StartServer(ctx context.Context) (coordinator.Snapshot, error) {
	return s.snap, s.startErr
}
func (s *stubService) FocusServer(ctx context.Context) (types.Tab, error) {
	return types.Tab{ID: "srv", URL: "http://yt_downloader.local/"}, s.focusErr
}
func (s *stubService) FocusYouTube(ctx context.Context) (types.Tab, error) {
	return types.Tab{ID: "yt", URL: "https://www.youtube.com/"}, s.focusErr
}
func (s *stubService) Submit(ctx context.Context, opts dispatch.Options) (dispatch.Job, error) {
	s.lastOpts = opts
	if s.submitErr != nil {
		return dispatch.Job{}, s.submitErr
	}
	return dispatch.NewJob("https://www.youtube.com/watch?v=xyz", opts), nil
}

func readySnapshot() coordinator.Snapshot {
	return coordinator.Snapshot{
		Phase:        coordinator.PhaseReachable,
		Reachability: types.ReachabilityReachable,
		Category:     classify.SearchResults,
		URL:          "https://www.youtube.com/results?search_query=cats",
		View:         view.NewState(view.Form, view.QuantityOptions),
		Status:       coordinator.StatusReady,
		UpdatedAt:    time.Unix(1700000000, 0).UTC(),
	}
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDocsDarkMode(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := serve(h, http.MethodGet, "/docs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}

	w = serve(h, http.MethodGet, "/docs/events", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/v1/events") {
		t.Fatalf("events docs status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	w := serve(NewServer(&stubService{}, Options{}), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestGetView(t *testing.T) {
	h := NewServer(&stubService{snap: readySnapshot()}, Options{})
	w := serve(h, http.MethodGet, "/api/v1/view", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var got SnapshotView
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(got.View, ",") != "form,quantity_options" {
		t.Fatalf("view = %v", got.View)
	}
	if got.Category != "search_results" || got.Status != "Ready" || got.Phase != "reachable" {
		t.Fatalf("body = %+v", got)
	}
}

func TestEmptyViewEncodesAsArray(t *testing.T) {
	h := NewServer(&stubService{snap: coordinator.Snapshot{Phase: coordinator.PhaseIdle, Reachability: types.ReachabilityUnknown}}, Options{})
	w := serve(h, http.MethodPost, "/api/v1/activate", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"view":[]`) {
		t.Fatalf("activate = %d %s", w.Code, w.Body.String())
	}
}

func TestDownloadPassesOptions(t *testing.T) {
	svc := &stubService{}
	w := serve(NewServer(svc, Options{}), http.MethodPost, "/api/v1/download", `{"format":"mp3"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if svc.lastOpts.Format == nil || *svc.lastOpts.Format != "mp3" {
		t.Fatalf("format = %v", svc.lastOpts.Format)
	}
	if svc.lastOpts.Quantity != nil || svc.lastOpts.Playlist != nil {
		t.Fatalf("unset options should stay nil: %+v", svc.lastOpts)
	}
	if !strings.Contains(w.Body.String(), `"url":"https://www.youtube.com/watch?v=xyz"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		svc    *stubService
		method string
		path   string
		body   string
		want   int
	}{
		{"validation", &stubService{submitErr: &coordinator.CodedError{Code: coordinator.CodeValidation, Message: "format value flac is not allowed"}}, http.MethodPost, "/api/v1/download", `{"format":"flac"}`, http.StatusBadRequest},
		{"in flight", &stubService{submitErr: &coordinator.CodedError{Code: coordinator.CodeSubmissionInFlight, Message: "pending"}}, http.MethodPost, "/api/v1/download", `{}`, http.StatusConflict},
		{"submission", &stubService{submitErr: &coordinator.CodedError{Code: coordinator.CodeSubmissionError, Message: "failed"}}, http.MethodPost, "/api/v1/download", `{}`, http.StatusBadGateway},
		{"bridge", &stubService{startErr: &coordinator.CodedError{Code: coordinator.CodeBridgeError, Message: "host"}}, http.MethodPost, "/api/v1/server/start", "", http.StatusBadGateway},
		{"tab", &stubService{focusErr: &coordinator.CodedError{Code: coordinator.CodeTabUnavailable, Message: "cdp"}}, http.MethodPost, "/api/v1/server/focus", "", http.StatusServiceUnavailable},
		{"tab youtube", &stubService{focusErr: &coordinator.CodedError{Code: coordinator.CodeTabUnavailable, Message: "cdp"}}, http.MethodPost, "/api/v1/youtube/focus", "", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(NewServer(tt.svc, Options{}), tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d; want %d body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestFocusServer(t *testing.T) {
	w := serve(NewServer(&stubService{}, Options{}), http.MethodPost, "/api/v1/server/focus", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"id":"srv"`) {
		t.Fatalf("focus = %d %s", w.Code, w.Body.String())
	}
}

func TestOptionsCatalog(t *testing.T) {
	w := serve(NewServer(&stubService{}, Options{}), http.MethodGet, "/api/v1/options", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	for _, want := range []string{`"format"`, `"mp3"`, `"quantity"`, `"playlist"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Fatalf("options body %s missing %s", w.Body.String(), want)
		}
	}
}

func TestEventsStreamReplaysSnapshot(t *testing.T) {
	broker := relay.NewBroker()
	if err := broker.PublishJSON("snapshot", NewSnapshotView(readySnapshot())); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewServer(&stubService{}, Options{Broker: broker, KeepAlive: time.Hour}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			if !strings.Contains(line, `"status":"Ready"`) {
				t.Fatalf("data = %s", line)
			}
			return
		}
	}
}
