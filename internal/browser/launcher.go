package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"syscall"
	"time"
)

// Config holds browser launch configuration.
type Config struct {
	CDPAddress   string
	CDPPort      int
	StartURLs    []string
	ProfileDir   string
	ExtraArgs    []string
	ReadyTimeout time.Duration
}

// Launcher starts a Chromium-family browser with remote debugging enabled
// when none is listening on the configured CDP port.
type Launcher struct {
	cfg      Config
	cmd      *exec.Cmd
	running  bool
	lookPath func(string) (string, error)
}

func NewLauncher(cfg Config) *Launcher {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 15 * time.Second
	}
	return &Launcher{cfg: cfg, lookPath: exec.LookPath}
}

var browserNames = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "brave-browser"}

// detectBrowser finds an available Chrome/Chromium binary.
func (l *Launcher) detectBrowser() (string, error) {
	for _, name := range browserNames {
		if path, err := l.lookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		macPath := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(macPath); err == nil {
			return macPath, nil
		}
	}
	return "", errors.New("no supported browser found")
}

func (l *Launcher) cdpHostPort() string {
	return net.JoinHostPort(l.cfg.CDPAddress, strconv.Itoa(l.cfg.CDPPort))
}

// listening reports whether something accepts connections on the CDP port.
func (l *Launcher) listening() bool {
	conn, err := net.DialTimeout("tcp", l.cdpHostPort(), time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (l *Launcher) args() []string {
	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(l.cfg.CDPPort),
		"--remote-debugging-address=" + l.cfg.CDPAddress,
		"--no-first-run",
		"--no-default-browser-check",
	}
	if l.cfg.ProfileDir != "" {
		args = append(args, "--user-data-dir="+l.cfg.ProfileDir)
	}
	args = append(args, l.cfg.ExtraArgs...)
	return append(args, l.cfg.StartURLs...)
}

// Launch starts the browser unless the CDP port is already in use, then
// waits for the DevTools endpoint to answer.
func (l *Launcher) Launch(ctx context.Context) error {
	if l.listening() {
		slog.Info("browser already running, skipping launch", "cdp", l.cdpHostPort())
		return nil
	}

	browserPath, err := l.detectBrowser()
	if err != nil {
		return err
	}
	if l.cfg.ProfileDir != "" {
		if err := os.MkdirAll(l.cfg.ProfileDir, 0o755); err != nil {
			return fmt.Errorf("create profile dir: %w", err)
		}
	}

	l.cmd = exec.Command(browserPath, l.args()...)
	if err := l.cmd.Start(); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	l.running = true
	slog.Info("browser process started", "path", browserPath, "pid", l.cmd.Process.Pid)

	if err := l.WaitReady(ctx); err != nil {
		l.Stop()
		return fmt.Errorf("waiting for CDP: %w", err)
	}
	slog.Info("CDP endpoint ready", "cdp", l.cdpHostPort())
	return nil
}

// WaitReady polls /json/version until it answers 200 or the ready timeout
// elapses.
func (l *Launcher) WaitReady(ctx context.Context) error {
	url := "http://" + l.cdpHostPort() + "/json/version"
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("CDP not ready at %s: %w", url, ctx.Err())
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// Running reports whether this launcher spawned a browser process.
func (l *Launcher) Running() bool {
	return l.running
}

// Stop terminates a browser this launcher started, SIGTERM then SIGKILL.
func (l *Launcher) Stop() {
	if l.cmd == nil || l.cmd.Process == nil || !l.running {
		return
	}
	slog.Info("stopping browser", "pid", l.cmd.Process.Pid)
	_ = l.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = l.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		slog.Warn("browser did not exit, sending SIGKILL")
		_ = l.cmd.Process.Kill()
		<-done
	}
	l.running = false
}
