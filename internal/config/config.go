package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the yt_agent daemon.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Control API bind settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Helper server
	ServerBaseURL    string
	ServerTabPattern string
	ProbeTimeoutMS   int

	// Native messaging host
	NativeHostID    string
	ManifestDir     string
	ExtensionOrigin string
	BridgeTimeoutMS int

	// Tabs
	YouTubeHomeURL    string
	YouTubeTabPattern string
	EvalTimeoutMS     int
	SSEKeepAliveMS    int

	// Browser auto-launch
	BrowserAutoLaunch bool
	BrowserProfileDir string

	OptionsFile string
	LogLevel    string
	LogFile     string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:        getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:           getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		BindAddr:          getEnvOrDefault("YT_AGENT_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:    getEnvListOrDefault("YT_AGENT_PORT_CANDIDATES", []string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"}),
		PortAutoFallback:  getEnvBoolOrDefault("YT_AGENT_PORT_AUTO_FALLBACK", true),
		ServerBaseURL:     strings.TrimRight(getEnvOrDefault("YT_AGENT_SERVER_URL", "http://yt_downloader.local"), "/"),
		ServerTabPattern:  getEnvOrDefault("YT_AGENT_SERVER_TAB_PATTERN", "*://yt_downloader.local/*"),
		ProbeTimeoutMS:    getEnvIntOrDefault("YT_AGENT_PROBE_TIMEOUT_MS", 3000),
		NativeHostID:      getEnvOrDefault("YT_AGENT_NATIVE_HOST", "com.sakib.ytdownloader"),
		ManifestDir:       getEnvOrDefault("YT_AGENT_MANIFEST_DIR", defaultManifestDir()),
		ExtensionOrigin:   getEnvOrDefault("YT_AGENT_EXTENSION_ORIGIN", ""),
		BridgeTimeoutMS:   getEnvIntOrDefault("YT_AGENT_BRIDGE_TIMEOUT_MS", 10000),
		YouTubeHomeURL:    getEnvOrDefault("YT_AGENT_YOUTUBE_URL", "https://www.youtube.com/"),
		YouTubeTabPattern: getEnvOrDefault("YT_AGENT_YOUTUBE_TAB_PATTERN", "*://*.youtube.com/*"),
		EvalTimeoutMS:     getEnvIntOrDefault("YT_AGENT_EVAL_TIMEOUT_MS", 2000),
		SSEKeepAliveMS:    getEnvIntOrDefault("YT_AGENT_SSE_KEEPALIVE_MS", 15000),
		BrowserAutoLaunch: getEnvBoolOrDefault("YT_AGENT_BROWSER_AUTOLAUNCH", false),
		BrowserProfileDir: getEnvOrDefault("YT_AGENT_BROWSER_PROFILE_DIR", "./browser_profile"),
		OptionsFile:       getEnvOrDefault("YT_AGENT_OPTIONS_FILE", ""),
		LogLevel:          strings.ToLower(getEnvOrDefault("YT_AGENT_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("YT_AGENT_LOG_FILE", "logs/yt_agent.log"),
	}
	if cfg.ProbeTimeoutMS < 100 {
		cfg.ProbeTimeoutMS = 100
	}
	if cfg.BridgeTimeoutMS < 1000 {
		cfg.BridgeTimeoutMS = 1000
	}
	if cfg.ServerBaseURL == "" {
		return nil, fmt.Errorf("YT_AGENT_SERVER_URL must not be empty")
	}
	return cfg, nil
}

// GetCDPURL returns the full CDP HTTP endpoint.
func (c *Config) GetCDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// ServerHomeURL is the page opened for the helper server.
func (c *Config) ServerHomeURL() string {
	return c.ServerBaseURL + "/"
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

func (c *Config) BridgeTimeout() time.Duration {
	return time.Duration(c.BridgeTimeoutMS) * time.Millisecond
}

func (c *Config) EvalTimeout() time.Duration {
	return time.Duration(c.EvalTimeoutMS) * time.Millisecond
}

// SSEKeepAlive is the comment interval on the event stream. Zero or less
// disables keep-alives.
func (c *Config) SSEKeepAlive() time.Duration {
	if c.SSEKeepAliveMS <= 0 {
		return -1
	}
	return time.Duration(c.SSEKeepAliveMS) * time.Millisecond
}

// defaultManifestDir is the per-user NativeMessagingHosts directory Chrome
// reads on this platform.
func defaultManifestDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "NativeMessagingHosts")
	case "windows":
		return filepath.Join(home, "AppData", "Local", "Google", "Chrome", "User Data", "NativeMessagingHosts")
	default:
		return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts")
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
