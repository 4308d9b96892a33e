package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DownloadPath is the helper server endpoint accepting download jobs.
const DownloadPath = "/api/download"

// ErrInFlight is returned when a submission is attempted while another one
// has not completed yet.
var ErrInFlight = errors.New("download request already in flight")

// Dispatcher posts download jobs to the helper server.
type Dispatcher struct {
	client   *http.Client
	endpoint string
	inFlight atomic.Bool
}

// New returns a Dispatcher for the helper server at baseURL. A nil client
// uses http.DefaultClient.
func New(client *http.Client, baseURL string) *Dispatcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Dispatcher{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + DownloadPath,
	}
}

// Submit sends job in a single POST. The response body is not inspected;
// only transport failures and non-2xx statuses are reported. Concurrent
// submissions are rejected with ErrInFlight rather than queued.
func (d *Dispatcher) Submit(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.URL) == "" {
		return errors.New("download job url is required")
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer d.inFlight.Store(false)

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode download job: %w", err)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		slog.Warn("download request failed", "request_id", requestID, "url", job.URL, "error", err)
		return fmt.Errorf("post download job: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	slog.Info("download request sent",
		"request_id", requestID,
		"url", job.URL,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download request rejected: status=%d", resp.StatusCode)
	}
	return nil
}

// InFlight reports whether a submission is currently pending.
func (d *Dispatcher) InFlight() bool { return d.inFlight.Load() }
