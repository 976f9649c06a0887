package daemon

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/1broseidon/traytile/internal/config"
	"github.com/1broseidon/traytile/internal/menubar"
)

// Settings holds the live configuration. It implements menubar.Settings.
type Settings struct {
	cfg atomic.Pointer[config.Config]
}

// NewSettings creates settings holding cfg.
func NewSettings(cfg *config.Config) *Settings {
	s := &Settings{}
	s.Store(cfg)
	return s
}

// Config returns the current configuration.
func (s *Settings) Config() *config.Config {
	return s.cfg.Load()
}

// Store replaces the configuration.
func (s *Settings) Store(cfg *config.Config) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s.cfg.Store(cfg)
}

// TempShowInterval returns how long temporarily shown items stay visible.
func (s *Settings) TempShowInterval() time.Duration {
	return s.Config().TempShowDuration()
}

// Identity builds the control item tags and pinned set from cfg.
func Identity(cfg *config.Config, logger *slog.Logger) menubar.Identity {
	ci := cfg.ControlItems
	id := menubar.Identity{
		Hidden:  menubar.Tag{Namespace: ci.Namespace, Title: ci.Hidden},
		Visible: menubar.Tag{Namespace: ci.Namespace, Title: ci.Visible},
		Pinned:  make(map[menubar.Tag]bool, len(cfg.PinnedItems)),
	}
	if ci.DockAlwaysHidden {
		id.AlwaysHidden = menubar.Tag{Namespace: ci.Namespace, Title: ci.AlwaysHidden}
	}
	for _, s := range cfg.PinnedItems {
		tag, err := menubar.ParseTag(s)
		if err != nil {
			if logger != nil {
				logger.Warn("ignoring pinned item", "tag", s, "error", err)
			}
			continue
		}
		id.Pinned[tag] = true
	}
	return id
}

// Timing applies the configured event timeouts to the default timing.
func Timing(cfg *config.Config) menubar.Timing {
	t := menubar.DefaultTiming()
	t.MoveTimeout = cfg.MoveTimeout()
	t.ClickTimeout = cfg.ClickTimeout()
	t.MaxMoveAttempts = cfg.MaxMoveAttempts
	t.TempShowInterval = cfg.TempShowDuration()
	return t
}
