package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ActionStartServer asks the native host to launch the helper server.
const ActionStartServer = "start_server"

// ErrHostRejected is returned when the host answers with an error status.
var ErrHostRejected = errors.New("native host rejected request")

// Request is the message sent to the native host.
type Request struct {
	Action string `json:"action"`
}

// Reply is the native host's answer. ServerURL is optional.
type Reply struct {
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	ServerURL string `json:"server_url,omitempty"`
}

// Client performs one-shot request/response exchanges with native messaging
// hosts, launching the host executable for every message the way the
// browser's sendNativeMessage does.
type Client struct {
	manifestDir string
	origin      string
	timeout     time.Duration
	exitGrace   time.Duration
}

// NewClient returns a bridge client resolving hosts in manifestDir. origin is
// passed to the host as its first argument (e.g. "chrome-extension://<id>/").
func NewClient(manifestDir, origin string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		manifestDir: manifestDir,
		origin:      origin,
		timeout:     timeout,
		exitGrace:   time.Second,
	}
}

// StartServer sends the start_server action to hostID.
func (c *Client) StartServer(ctx context.Context, hostID string) (Reply, error) {
	var reply Reply
	if err := c.Send(ctx, hostID, Request{Action: ActionStartServer}, &reply); err != nil {
		return Reply{}, err
	}
	if strings.EqualFold(reply.Status, "error") {
		return reply, fmt.Errorf("%w: %s", ErrHostRejected, reply.Message)
	}
	return reply, nil
}

// Send launches hostID, writes msg, and decodes the first reply into out.
func (c *Client) Send(ctx context.Context, hostID string, msg, out any) error {
	manifest, err := LoadManifest(c.manifestDir, hostID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{}
	if c.origin != "" {
		args = append(args, c.origin)
	}
	cmd := exec.CommandContext(ctx, manifest.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{buf: &stderr, max: 4096}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("native host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("native host stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start native host %s: %w", hostID, err)
	}
	slog.Debug("native host started", "host", hostID, "path", manifest.Path, "pid", cmd.Process.Pid)

	done := make(chan error, 1)
	writeErr := WriteMessage(stdin, msg)
	_ = stdin.Close()

	var readErr error
	if writeErr == nil {
		readErr = ReadMessage(stdout, out)
	}
	go func() { done <- cmd.Wait() }()

	select {
	case waitErr := <-done:
		if waitErr != nil {
			slog.Debug("native host exited", "host", hostID, "error", waitErr, "stderr", strings.TrimSpace(stderr.String()))
		}
	case <-time.After(c.exitGrace):
		slog.Debug("native host still running after reply, killing", "host", hostID)
		_ = cmd.Process.Kill()
		<-done
	}

	if writeErr != nil {
		return writeErr
	}
	if readErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("native host %s: %w", hostID, ctx.Err())
		}
		return fmt.Errorf("native host %s: %w", hostID, readErr)
	}
	return nil
}

type limitedWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if room := w.max - w.buf.Len(); room > 0 {
		if len(p) > room {
			w.buf.Write(p[:room])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}
