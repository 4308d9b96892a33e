package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"YT_AGENT_SERVER_URL", "YT_AGENT_PROBE_TIMEOUT_MS", "YT_AGENT_PORT_CANDIDATES", "CHROMIUM_CDP_PORT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerBaseURL != "http://yt_downloader.local" {
		t.Fatalf("ServerBaseURL = %q", cfg.ServerBaseURL)
	}
	if cfg.ServerHomeURL() != "http://yt_downloader.local/" {
		t.Fatalf("ServerHomeURL() = %q", cfg.ServerHomeURL())
	}
	if cfg.ProbeTimeout() != 3*time.Second {
		t.Fatalf("ProbeTimeout() = %v", cfg.ProbeTimeout())
	}
	if cfg.NativeHostID != "com.sakib.ytdownloader" {
		t.Fatalf("NativeHostID = %q", cfg.NativeHostID)
	}
	if cfg.GetCDPURL() != "http://127.0.0.1:9222" {
		t.Fatalf("GetCDPURL() = %q", cfg.GetCDPURL())
	}
	if len(cfg.PortCandidates) != 3 {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("YT_AGENT_SERVER_URL", "http://127.0.0.1:5000/")
	t.Setenv("YT_AGENT_PROBE_TIMEOUT_MS", "10")
	t.Setenv("YT_AGENT_PORT_CANDIDATES", " 127.0.0.1:9001 ,,127.0.0.1:9002")
	t.Setenv("YT_AGENT_LOG_LEVEL", "DEBUG")
	t.Setenv("YT_AGENT_BROWSER_AUTOLAUNCH", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerBaseURL != "http://127.0.0.1:5000" {
		t.Fatalf("ServerBaseURL = %q", cfg.ServerBaseURL)
	}
	if cfg.ProbeTimeoutMS != 100 {
		t.Fatalf("ProbeTimeoutMS = %d; want clamp to 100", cfg.ProbeTimeoutMS)
	}
	if want := []string{"127.0.0.1:9001", "127.0.0.1:9002"}; !reflect.DeepEqual(cfg.PortCandidates, want) {
		t.Fatalf("PortCandidates = %v; want %v", cfg.PortCandidates, want)
	}
	if cfg.LogLevel != "debug" || !cfg.BrowserAutoLaunch {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestSSEKeepAlive(t *testing.T) {
	cfg := &Config{SSEKeepAliveMS: 500}
	if got := cfg.SSEKeepAlive(); got != 500*time.Millisecond {
		t.Fatalf("SSEKeepAlive() = %v", got)
	}
	cfg.SSEKeepAliveMS = 0
	if got := cfg.SSEKeepAlive(); got >= 0 {
		t.Fatalf("SSEKeepAlive() = %v; want disabled", got)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("YT_AGENT_NATIVE_HOST", "")
	os.Unsetenv("YT_AGENT_NATIVE_HOST")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("YT_AGENT_NATIVE_HOST=com.example.host\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.NativeHostID != "com.example.host" {
		t.Fatalf("NativeHostID = %q", cfg.NativeHostID)
	}
}

func TestDefaultOptionCatalog(t *testing.T) {
	cat := DefaultOptionCatalog()
	checks := []struct {
		group, value string
		want         bool
	}{
		{"format", "mp3", true},
		{"format", "flac", false},
		{"quantity", "25", true},
		{"quantity", "7", false},
		{"playlist", "true", true},
		{"resolution", "1080p", false},
	}
	for _, c := range checks {
		if got := cat.Allows(c.group, c.value); got != c.want {
			t.Fatalf("Allows(%q, %q) = %v; want %v", c.group, c.value, got, c.want)
		}
	}
}

func TestLoadOptionCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	yml := `groups:
  - name: format
    values: [mp4, mp3, webm]
    default: webm
  - name: quantity
    values: ["5", "100"]
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cat, err := LoadOptionCatalog(path)
	if err != nil {
		t.Fatalf("LoadOptionCatalog() error = %v", err)
	}
	if !cat.Allows("format", "webm") || !cat.Allows("quantity", "100") {
		t.Fatalf("catalog = %+v", cat)
	}
	if cat.Allows("playlist", "true") {
		t.Fatal("missing group should reject values")
	}
}

func TestLoadOptionCatalogMissingFileUsesDefaults(t *testing.T) {
	cat, err := LoadOptionCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOptionCatalog() error = %v", err)
	}
	if len(cat.Groups) != 3 {
		t.Fatalf("groups = %d; want defaults", len(cat.Groups))
	}
}

func TestLoadOptionCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"empty", "groups: []\n", "at least one group"},
		{"no name", "groups:\n  - values: [a]\n", "missing name"},
		{"no values", "groups:\n  - name: format\n", "has no values"},
		{"duplicate", "groups:\n  - name: a\n    values: [x]\n  - name: a\n    values: [y]\n", "duplicate group"},
		{"bad default", "groups:\n  - name: a\n    values: [x]\n    default: z\n", "is not one of its values"},
		{"bad yaml", "groups: [", "options config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "options.yaml")
			if err := os.WriteFile(path, []byte(tt.yml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadOptionCatalog(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("LoadOptionCatalog() error = %v; want %q", err, tt.want)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
