package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/yt_agent/internal/types"
)

// StatusPath is the helper server endpoint answering availability checks.
const StatusPath = "/api/status"

// DefaultTimeout bounds a probe when none is configured.
const DefaultTimeout = 3 * time.Second

// Prober checks whether the helper server is reachable. A probe is a single
// attempt; it never retries.
type Prober struct {
	client    *http.Client
	statusURL string
	timeout   time.Duration
}

// New returns a Prober for the helper server at baseURL. A nil client uses
// http.DefaultClient; a non-positive timeout uses DefaultTimeout.
func New(client *http.Client, baseURL string, timeout time.Duration) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		client:    client,
		statusURL: strings.TrimRight(baseURL, "/") + StatusPath,
		timeout:   timeout,
	}
}

// Probe reports Reachable on any 2xx answer and Unreachable otherwise.
// Failure causes are logged, not returned.
func (p *Prober) Probe(ctx context.Context) types.Reachability {
	if err := p.Check(ctx); err != nil {
		slog.Info("helper server unreachable", "url", p.statusURL, "error", err)
		return types.ReachabilityUnreachable
	}
	slog.Debug("helper server reachable", "url", p.statusURL)
	return types.ReachabilityReachable
}

// Check performs the status request and returns the failure cause, if any.
func (p *Prober) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.statusURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status check failed: status=%d", resp.StatusCode)
	}
	return nil
}

// StatusURL returns the probed endpoint.
func (p *Prober) StatusURL() string { return p.statusURL }
