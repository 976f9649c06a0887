package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawControlItems struct {
	Namespace        *string `yaml:"namespace"`
	Hidden           *string `yaml:"hidden"`
	AlwaysHidden     *string `yaml:"always_hidden"`
	Visible          *string `yaml:"visible"`
	DockAlwaysHidden *bool   `yaml:"dock_always_hidden"`
}

// RawConfig is one YAML file as written. Nil fields were not set and fall
// back to earlier files or defaults.
type RawConfig struct {
	Include          IncludeList      `yaml:"include"`
	LogLevel         *string          `yaml:"log_level"`
	TempShowInterval *int             `yaml:"temp_show_interval"`
	PollInterval     *int             `yaml:"poll_interval"`
	MoveTimeoutMS    *int             `yaml:"move_timeout_ms"`
	ClickTimeoutMS   *int             `yaml:"click_timeout_ms"`
	MaxMoveAttempts  *int             `yaml:"max_move_attempts"`
	ControlItems     *RawControlItems `yaml:"control_items"`
	PinnedItems      []string         `yaml:"pinned_items"`
	Notifications    *bool            `yaml:"notifications"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.TempShowInterval != nil {
		out.TempShowInterval = overlay.TempShowInterval
	}
	if overlay.PollInterval != nil {
		out.PollInterval = overlay.PollInterval
	}
	if overlay.MoveTimeoutMS != nil {
		out.MoveTimeoutMS = overlay.MoveTimeoutMS
	}
	if overlay.ClickTimeoutMS != nil {
		out.ClickTimeoutMS = overlay.ClickTimeoutMS
	}
	if overlay.MaxMoveAttempts != nil {
		out.MaxMoveAttempts = overlay.MaxMoveAttempts
	}
	if overlay.ControlItems != nil {
		if out.ControlItems == nil {
			out.ControlItems = &RawControlItems{}
		}
		merged := mergeRawControlItems(*out.ControlItems, *overlay.ControlItems)
		out.ControlItems = &merged
	}
	// Lists replace rather than append so a later file can clear them.
	if overlay.PinnedItems != nil {
		out.PinnedItems = append([]string(nil), overlay.PinnedItems...)
	}
	if overlay.Notifications != nil {
		out.Notifications = overlay.Notifications
	}
	return out
}

func mergeRawControlItems(base RawControlItems, overlay RawControlItems) RawControlItems {
	out := base
	if overlay.Namespace != nil {
		out.Namespace = overlay.Namespace
	}
	if overlay.Hidden != nil {
		out.Hidden = overlay.Hidden
	}
	if overlay.AlwaysHidden != nil {
		out.AlwaysHidden = overlay.AlwaysHidden
	}
	if overlay.Visible != nil {
		out.Visible = overlay.Visible
	}
	if overlay.DockAlwaysHidden != nil {
		out.DockAlwaysHidden = overlay.DockAlwaysHidden
	}
	return out
}
