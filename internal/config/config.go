package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTempShowInterval = 15
	DefaultPollInterval     = 5
	DefaultMoveTimeoutMS    = 25
	DefaultClickTimeoutMS   = 250
	DefaultMaxMoveAttempts  = 10

	// DefaultControlNamespace is the WM_CLASS of the marker windows the
	// daemon docks into the tray.
	DefaultControlNamespace = "traytile"
)

// ControlItems names the marker windows that split the tray into sections.
type ControlItems struct {
	Namespace    string `yaml:"namespace"`
	Hidden       string `yaml:"hidden"`
	AlwaysHidden string `yaml:"always_hidden"`
	Visible      string `yaml:"visible"`

	// DockAlwaysHidden controls whether the always-hidden marker is
	// created. Without it the tray has two sections.
	DockAlwaysHidden bool `yaml:"dock_always_hidden"`
}

// Config is the effective traytile configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// TempShowInterval is how long, in seconds, a temporarily shown item
	// stays visible before it is moved back.
	TempShowInterval int `yaml:"temp_show_interval"`

	// PollInterval is the period, in seconds, of the background cache
	// refresh. Process start and exit trigger earlier refreshes.
	PollInterval int `yaml:"poll_interval"`

	MoveTimeoutMS   int `yaml:"move_timeout_ms"`
	ClickTimeoutMS  int `yaml:"click_timeout_ms"`
	MaxMoveAttempts int `yaml:"max_move_attempts"`

	ControlItems ControlItems `yaml:"control_items"`

	// PinnedItems lists "namespace:title" tags that must never be moved
	// out of the visible section.
	PinnedItems []string `yaml:"pinned_items,omitempty"`

	// Notifications enables desktop notifications for user-visible
	// failures.
	Notifications bool `yaml:"notifications"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		TempShowInterval: DefaultTempShowInterval,
		PollInterval:     DefaultPollInterval,
		MoveTimeoutMS:    DefaultMoveTimeoutMS,
		ClickTimeoutMS:   DefaultClickTimeoutMS,
		MaxMoveAttempts:  DefaultMaxMoveAttempts,
		ControlItems: ControlItems{
			Namespace:        DefaultControlNamespace,
			Hidden:           "hidden",
			AlwaysHidden:     "always-hidden",
			Visible:          "visible",
			DockAlwaysHidden: true,
		},
		Notifications: true,
	}
}

// TempShowDuration returns TempShowInterval as a duration.
func (c *Config) TempShowDuration() time.Duration {
	return time.Duration(c.TempShowInterval) * time.Second
}

// PollDuration returns PollInterval as a duration.
func (c *Config) PollDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Config) MoveTimeout() time.Duration {
	return time.Duration(c.MoveTimeoutMS) * time.Millisecond
}

func (c *Config) ClickTimeout() time.Duration {
	return time.Duration(c.ClickTimeoutMS) * time.Millisecond
}

// SlogLevel maps log_level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath writes the configuration to path.
func (c *Config) SaveToPath(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.TempShowInterval < 1 {
		return &ValidationError{Path: "temp_show_interval", Err: fmt.Errorf("temp_show_interval must be >= 1")}
	}
	if c.PollInterval < 1 {
		return &ValidationError{Path: "poll_interval", Err: fmt.Errorf("poll_interval must be >= 1")}
	}
	if c.MoveTimeoutMS < 1 {
		return &ValidationError{Path: "move_timeout_ms", Err: fmt.Errorf("move_timeout_ms must be >= 1")}
	}
	if c.ClickTimeoutMS < 1 {
		return &ValidationError{Path: "click_timeout_ms", Err: fmt.Errorf("click_timeout_ms must be >= 1")}
	}
	if c.MaxMoveAttempts < 1 {
		return &ValidationError{Path: "max_move_attempts", Err: fmt.Errorf("max_move_attempts must be >= 1")}
	}

	ci := c.ControlItems
	if strings.TrimSpace(ci.Namespace) == "" {
		return &ValidationError{Path: "control_items.namespace", Err: fmt.Errorf("namespace is required")}
	}
	titles := map[string]string{
		"control_items.hidden":  ci.Hidden,
		"control_items.visible": ci.Visible,
	}
	if ci.DockAlwaysHidden {
		titles["control_items.always_hidden"] = ci.AlwaysHidden
	}
	seen := make(map[string]string, len(titles))
	for _, path := range sortedKeys(titles) {
		title := strings.TrimSpace(titles[path])
		if title == "" {
			return &ValidationError{Path: path, Err: fmt.Errorf("title is required")}
		}
		if other, ok := seen[title]; ok {
			return &ValidationError{Path: path, Err: fmt.Errorf("title %q is already used by %s", title, other)}
		}
		seen[title] = path
	}

	for i, tag := range c.PinnedItems {
		ns, title, ok := strings.Cut(tag, ":")
		if !ok || strings.TrimSpace(ns) == "" || strings.TrimSpace(title) == "" {
			return &ValidationError{Path: fmt.Sprintf("pinned_items.%d", i), Err: fmt.Errorf("%q is not of the form namespace:title", tag)}
		}
	}
	return nil
}
