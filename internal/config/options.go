package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OptionGroup is one radio group of the download form.
type OptionGroup struct {
	Name    string   `yaml:"name" json:"name"`
	Label   string   `yaml:"label,omitempty" json:"label,omitempty"`
	Values  []string `yaml:"values" json:"values"`
	Default string   `yaml:"default,omitempty" json:"default,omitempty"`
}

// OptionCatalog lists the values the download form offers.
type OptionCatalog struct {
	Groups []OptionGroup `yaml:"groups" json:"groups"`
}

// DefaultOptionCatalog returns the form's built-in choices.
func DefaultOptionCatalog() *OptionCatalog {
	return &OptionCatalog{Groups: []OptionGroup{
		{Name: "format", Label: "Format", Values: []string{"mp4", "mp3"}, Default: "mp4"},
		{Name: "quantity", Label: "Videos from search", Values: []string{"5", "10", "25", "50"}, Default: "5"},
		{Name: "playlist", Label: "Download whole playlist", Values: []string{"true", "false"}, Default: "false"},
	}}
}

// LoadOptionCatalog reads an option catalog YAML file. An empty path yields
// the default catalog.
func LoadOptionCatalog(path string) (*OptionCatalog, error) {
	if path == "" {
		return DefaultOptionCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultOptionCatalog(), nil
		}
		return nil, fmt.Errorf("options config: %w", err)
	}
	var cat OptionCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("options config: %w", err)
	}
	if len(cat.Groups) == 0 {
		return nil, fmt.Errorf("options config: at least one group is required")
	}
	seen := make(map[string]bool, len(cat.Groups))
	for i, g := range cat.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("options config: groups[%d] missing name", i)
		}
		if seen[g.Name] {
			return nil, fmt.Errorf("options config: duplicate group %q", g.Name)
		}
		seen[g.Name] = true
		if len(g.Values) == 0 {
			return nil, fmt.Errorf("options config: group %q has no values", g.Name)
		}
		if g.Default != "" && !contains(g.Values, g.Default) {
			return nil, fmt.Errorf("options config: group %q default %q is not one of its values", g.Name, g.Default)
		}
	}
	return &cat, nil
}

// Group returns the named group.
func (c *OptionCatalog) Group(name string) (OptionGroup, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return OptionGroup{}, false
}

// Allows reports whether value is listed for group. Groups missing from the
// catalog accept nothing.
func (c *OptionCatalog) Allows(group, value string) bool {
	g, ok := c.Group(group)
	return ok && contains(g.Values, value)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
