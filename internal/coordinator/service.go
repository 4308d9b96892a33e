package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/yt_agent/internal/bridge"
	"github.com/dgnsrekt/yt_agent/internal/classify"
	"github.com/dgnsrekt/yt_agent/internal/dispatch"
	"github.com/dgnsrekt/yt_agent/internal/tabs"
	"github.com/dgnsrekt/yt_agent/internal/types"
	"github.com/dgnsrekt/yt_agent/internal/view"
)

// Status texts shown next to the current view.
const (
	StatusServerDown   = "Server is not running."
	StatusReady        = "Ready"
	StatusBridgeError  = "Native host error."
	StatusStartSent    = "Server start signal sent."
	StatusSending      = "Sending download request..."
	StatusSent         = "Download request sent."
	StatusSubmitFailed = "Download request failed."
)

// Phase is the coordinator's position in the activation state machine.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseProbing     Phase = "probing"
	PhaseReachable   Phase = "reachable"
	PhaseUnreachable Phase = "unreachable"
)

// Prober reports whether the helper server answers its status endpoint.
type Prober interface {
	Probe(ctx context.Context) types.Reachability
}

// TabController looks up and manipulates browser tabs.
type TabController interface {
	QueryTabs(ctx context.Context, q types.TabQuery) ([]types.Tab, error)
	ActiveTab(ctx context.Context) (types.Tab, error)
	ActivateTab(ctx context.Context, tabID string) error
	FocusWindow(ctx context.Context, windowID int) error
	CreateTab(ctx context.Context, url string) (types.Tab, error)
}

// Bridge sends the start request to the native host.
type Bridge interface {
	StartServer(ctx context.Context, hostID string) (bridge.Reply, error)
}

// Submitter posts download jobs to the helper server.
type Submitter interface {
	Submit(ctx context.Context, job dispatch.Job) error
	InFlight() bool
}

// Publisher receives every snapshot the service produces.
type Publisher interface {
	Publish(snap Snapshot)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Snapshot)

func (f PublisherFunc) Publish(snap Snapshot) { f(snap) }

// OptionValidator reports whether value is allowed for an option group.
type OptionValidator interface {
	Allows(group, value string) bool
}

// Config holds the addresses and identifiers the coordinator acts on.
type Config struct {
	ServerHomeURL     string
	ServerTabPattern  string
	NativeHostID      string
	YouTubeHomeURL    string
	YouTubeTabPattern string
}

// Snapshot is the state a rendering layer needs: which views to show and
// the status line.
type Snapshot struct {
	Phase        Phase              `json:"phase"`
	Reachability types.Reachability `json:"reachability"`
	Category     classify.Category  `json:"category,omitempty"`
	URL          string             `json:"url,omitempty"`
	View         view.State         `json:"view"`
	Status       string             `json:"status,omitempty"`
	ErrorCode    string             `json:"error_code,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Service coordinates the helper server session and the popup view.
type Service struct {
	cfg       Config
	prober    Prober
	tabs      TabController
	bridge    Bridge
	submitter Submitter
	options   OptionValidator
	publisher Publisher
	now       func() time.Time

	mu   sync.Mutex
	snap Snapshot

	ensureMu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher sets the snapshot publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithOptionValidator restricts submitted option values.
func WithOptionValidator(v OptionValidator) Option {
	return func(s *Service) { s.options = v }
}

// WithClock replaces the snapshot timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, prober Prober, tc TabController, br Bridge, sub Submitter, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		prober:    prober,
		tabs:      tc,
		bridge:    br,
		submitter: sub,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.snap = Snapshot{
		Phase:        PhaseIdle,
		Reachability: types.ReachabilityUnknown,
		View:         view.NewState(),
		UpdatedAt:    s.now(),
	}
	return s
}

// Snapshot returns the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// update applies fn to a copy of the snapshot, stores it and publishes it.
func (s *Service) update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	next := s.snap
	fn(&next)
	next.UpdatedAt = s.now()
	s.snap = next
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.Publish(next)
	}
	return next
}

// Activate probes the helper server. When it is reachable the server tab is
// opened once and the active tab is classified; otherwise the server-down
// view is shown and classification is skipped.
func (s *Service) Activate(ctx context.Context) Snapshot {
	s.update(func(sn *Snapshot) {
		sn.Phase = PhaseProbing
		sn.Reachability = types.ReachabilityUnknown
	})

	reach := s.prober.Probe(ctx)
	if reach != types.ReachabilityReachable {
		slog.Info("activation: server down, classification skipped")
		return s.update(func(sn *Snapshot) {
			sn.Phase = PhaseUnreachable
			sn.Reachability = types.ReachabilityUnreachable
			sn.View = view.Select(sn.Category, types.ReachabilityUnreachable)
			sn.Status = StatusServerDown
			sn.ErrorCode = CodeProbeUnreachable
		})
	}

	s.update(func(sn *Snapshot) {
		sn.Phase = PhaseReachable
		sn.Reachability = types.ReachabilityReachable
		sn.Status = ""
		sn.ErrorCode = ""
	})

	if err := s.EnsureServerTab(ctx, s.cfg.ServerHomeURL); err != nil {
		slog.Warn("open server tab failed", "error", err)
	}
	return s.Refresh(ctx)
}

// Refresh classifies the active tab and recomputes the view. It is a no-op
// unless the last probe found the server reachable.
func (s *Service) Refresh(ctx context.Context) Snapshot {
	if cur := s.Snapshot(); cur.Reachability != types.ReachabilityReachable {
		return cur
	}

	url := s.activeURL(ctx)
	category := classify.Classify(url)
	state := view.Select(category, types.ReachabilityReachable)
	slog.Debug("view selected", "url", url, "category", category, "view", state.String())

	return s.update(func(sn *Snapshot) {
		sn.URL = url
		sn.Category = category
		sn.View = state
		if category != classify.NotYoutube {
			sn.Status = StatusReady
		}
	})
}

// activeURL returns the active tab's address, or "" when it cannot be read.
func (s *Service) activeURL(ctx context.Context) string {
	tab, err := s.tabs.ActiveTab(ctx)
	if err != nil {
		if !errors.Is(err, tabs.ErrNoActiveTab) {
			slog.Warn("active tab lookup failed", "error", err)
		}
		return ""
	}
	return tab.URL
}

// EnsureServerTab opens url in a new tab unless a tab matching the server
// pattern already exists. Concurrent callers are serialized so the check and
// the creation act as one step.
func (s *Service) EnsureServerTab(ctx context.Context, url string) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()

	existing, err := s.tabs.QueryTabs(ctx, types.TabQuery{URLPattern: s.cfg.ServerTabPattern})
	if err != nil {
		return newError(CodeTabUnavailable, "failed to query server tabs", err)
	}
	if len(existing) > 0 {
		slog.Debug("server tab already open", "tab_id", existing[0].ID)
		return nil
	}
	if _, err := s.tabs.CreateTab(ctx, url); err != nil {
		return newError(CodeTabUnavailable, "failed to open server tab", err)
	}
	slog.Info("server tab opened", "url", url)
	return nil
}

// StartServer asks the native host to launch the helper server. A reply
// carrying server_url opens that page once.
func (s *Service) StartServer(ctx context.Context) (Snapshot, error) {
	reply, err := s.bridge.StartServer(ctx, s.cfg.NativeHostID)
	if err != nil {
		slog.Error("native host request failed", "host", s.cfg.NativeHostID, "error", err)
		snap := s.update(func(sn *Snapshot) {
			sn.Status = StatusBridgeError
			sn.ErrorCode = CodeBridgeError
		})
		return snap, newError(CodeBridgeError, "native host request failed", err)
	}
	slog.Info("native host replied", "host", s.cfg.NativeHostID, "status", reply.Status, "message", reply.Message, "server_url", reply.ServerURL)

	if reply.ServerURL != "" {
		if err := s.EnsureServerTab(ctx, reply.ServerURL); err != nil {
			slog.Warn("open server tab failed", "url", reply.ServerURL, "error", err)
		}
	}
	return s.update(func(sn *Snapshot) {
		sn.Status = StatusStartSent
		sn.ErrorCode = ""
	}), nil
}

// FocusServer brings an existing server tab to the front, or opens one.
func (s *Service) FocusServer(ctx context.Context) (types.Tab, error) {
	return s.focusOrCreate(ctx, s.cfg.ServerTabPattern, s.cfg.ServerHomeURL, true)
}

// FocusYouTube activates any YouTube tab, or opens the YouTube home page.
func (s *Service) FocusYouTube(ctx context.Context) (types.Tab, error) {
	return s.focusOrCreate(ctx, s.cfg.YouTubeTabPattern, s.cfg.YouTubeHomeURL, false)
}

func (s *Service) focusOrCreate(ctx context.Context, pattern, url string, focusWindow bool) (types.Tab, error) {
	existing, err := s.tabs.QueryTabs(ctx, types.TabQuery{URLPattern: pattern})
	if err != nil {
		return types.Tab{}, newError(CodeTabUnavailable, "failed to query tabs", err)
	}
	if len(existing) == 0 {
		tab, err := s.tabs.CreateTab(ctx, url)
		if err != nil {
			return types.Tab{}, newError(CodeTabUnavailable, "failed to open tab", err)
		}
		return tab, nil
	}

	tab := existing[0]
	if err := s.tabs.ActivateTab(ctx, tab.ID); err != nil {
		return types.Tab{}, newError(CodeTabUnavailable, "failed to activate tab", err)
	}
	if focusWindow {
		if err := s.tabs.FocusWindow(ctx, tab.WindowID); err != nil {
			return types.Tab{}, newError(CodeTabUnavailable, "failed to focus window", err)
		}
	}
	return tab, nil
}

// Submit sends a download job for the active tab with the given options.
func (s *Service) Submit(ctx context.Context, opts dispatch.Options) (dispatch.Job, error) {
	if err := s.validateOptions(opts); err != nil {
		return dispatch.Job{}, err
	}
	if s.submitter.InFlight() {
		return dispatch.Job{}, newError(CodeSubmissionInFlight, "a download request is already pending", dispatch.ErrInFlight)
	}

	var prevStatus string
	s.update(func(sn *Snapshot) {
		prevStatus = sn.Status
		sn.Status = StatusSending
		sn.ErrorCode = ""
	})

	tab, err := s.tabs.ActiveTab(ctx)
	if err != nil {
		s.update(func(sn *Snapshot) {
			sn.Status = StatusSubmitFailed
			sn.ErrorCode = CodeTabUnavailable
		})
		return dispatch.Job{}, newError(CodeTabUnavailable, "no active tab to download", err)
	}

	job := dispatch.NewJob(tab.URL, opts)
	if err := s.submitter.Submit(ctx, job); err != nil {
		if errors.Is(err, dispatch.ErrInFlight) {
			// The winning request publishes its own outcome. Only roll back
			// the sending status when nothing is pending any more.
			pending := s.submitter.InFlight()
			s.update(func(sn *Snapshot) {
				if !pending && sn.Status == StatusSending {
					sn.Status = prevStatus
				}
				sn.ErrorCode = CodeSubmissionInFlight
			})
			return job, newError(CodeSubmissionInFlight, "a download request is already pending", err)
		}
		slog.Error("download request failed", "url", job.URL, "error", err)
		s.update(func(sn *Snapshot) {
			sn.Status = StatusSubmitFailed
			sn.ErrorCode = CodeSubmissionError
		})
		return job, newError(CodeSubmissionError, "download request failed", err)
	}

	s.update(func(sn *Snapshot) { sn.Status = StatusSent })
	return job, nil
}

func (s *Service) validateOptions(opts dispatch.Options) error {
	if s.options == nil {
		return nil
	}
	groups := []struct {
		name  string
		value *string
	}{
		{"format", opts.Format},
		{"quantity", opts.Quantity},
		{"playlist", opts.Playlist},
	}
	for _, g := range groups {
		if g.value == nil || strings.TrimSpace(*g.value) == "" {
			continue
		}
		if !s.options.Allows(g.name, strings.TrimSpace(*g.value)) {
			return newError(CodeValidation, g.name+" value "+*g.value+" is not allowed", nil)
		}
	}
	return nil
}
