package config

import (
	"fmt"
	"sort"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	cfg.TempShowInterval = derefInt(raw.TempShowInterval, cfg.TempShowInterval)
	cfg.PollInterval = derefInt(raw.PollInterval, cfg.PollInterval)
	cfg.MoveTimeoutMS = derefInt(raw.MoveTimeoutMS, cfg.MoveTimeoutMS)
	cfg.ClickTimeoutMS = derefInt(raw.ClickTimeoutMS, cfg.ClickTimeoutMS)
	cfg.MaxMoveAttempts = derefInt(raw.MaxMoveAttempts, cfg.MaxMoveAttempts)

	if ci := raw.ControlItems; ci != nil {
		cfg.ControlItems.Namespace = derefString(ci.Namespace, cfg.ControlItems.Namespace)
		cfg.ControlItems.Hidden = derefString(ci.Hidden, cfg.ControlItems.Hidden)
		cfg.ControlItems.AlwaysHidden = derefString(ci.AlwaysHidden, cfg.ControlItems.AlwaysHidden)
		cfg.ControlItems.Visible = derefString(ci.Visible, cfg.ControlItems.Visible)
		if ci.DockAlwaysHidden != nil {
			cfg.ControlItems.DockAlwaysHidden = *ci.DockAlwaysHidden
		}
	}

	if raw.PinnedItems != nil {
		cfg.PinnedItems = make([]string, 0, len(raw.PinnedItems))
		for _, tag := range raw.PinnedItems {
			cfg.PinnedItems = append(cfg.PinnedItems, strings.TrimSpace(tag))
		}
	}
	if raw.Notifications != nil {
		cfg.Notifications = *raw.Notifications
	}

	return cfg, nil
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefString(p *string, def string) string {
	if p == nil {
		return def
	}
	return strings.TrimSpace(*p)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
