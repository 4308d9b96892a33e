package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// hostNamePattern is the host id syntax Chrome accepts.
var hostNamePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// Manifest is a native messaging host manifest.
type Manifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// LoadManifest reads <dir>/<hostID>.json and resolves a relative host path
// against the manifest's directory.
func LoadManifest(dir, hostID string) (*Manifest, error) {
	if !hostNamePattern.MatchString(hostID) {
		return nil, fmt.Errorf("invalid native host name %q", hostID)
	}
	path := filepath.Join(dir, hostID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("native host manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("native host manifest %s: %w", path, err)
	}
	if m.Name != hostID {
		return nil, fmt.Errorf("native host manifest %s: name %q does not match %q", path, m.Name, hostID)
	}
	if m.Path == "" {
		return nil, fmt.Errorf("native host manifest %s: missing path", path)
	}
	if m.Type != "" && m.Type != "stdio" {
		return nil, fmt.Errorf("native host manifest %s: unsupported type %q", path, m.Type)
	}
	if !filepath.IsAbs(m.Path) {
		m.Path = filepath.Join(filepath.Dir(path), m.Path)
	}
	return &m, nil
}
