package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	log_level
//	temp_show_interval
//	poll_interval
//	move_timeout_ms
//	click_timeout_ms
//	max_move_attempts
//	control_items.namespace
//	control_items.hidden
//	pinned_items
//	notifications
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if parts[0] == "control_items" {
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		ci := cfg.ControlItems
		switch parts[1] {
		case "namespace":
			return ci.Namespace, nil
		case "hidden":
			return ci.Hidden, nil
		case "always_hidden":
			return ci.AlwaysHidden, nil
		case "visible":
			return ci.Visible, nil
		case "dock_always_hidden":
			return ci.DockAlwaysHidden, nil
		}
		return nil, fmt.Errorf("unknown path: %s", path)
	}

	if len(parts) != 1 {
		return nil, fmt.Errorf("unknown path: %s", path)
	}
	switch parts[0] {
	case "log_level":
		return cfg.LogLevel, nil
	case "temp_show_interval":
		return cfg.TempShowInterval, nil
	case "poll_interval":
		return cfg.PollInterval, nil
	case "move_timeout_ms":
		return cfg.MoveTimeoutMS, nil
	case "click_timeout_ms":
		return cfg.ClickTimeoutMS, nil
	case "max_move_attempts":
		return cfg.MaxMoveAttempts, nil
	case "pinned_items":
		return append([]string(nil), cfg.PinnedItems...), nil
	case "notifications":
		return cfg.Notifications, nil
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}
