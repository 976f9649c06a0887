// Package daemon ties the item manager to its periodic refresh, the
// configuration and the IPC surface.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/traytile/internal/config"
	"github.com/1broseidon/traytile/internal/menubar"
)

// Service is a long-running component supervised by the daemon.
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervise runs services until ctx is cancelled or one of them fails.
// The first failure cancels the rest and is returned.
func Supervise(ctx context.Context, logger *slog.Logger, services ...Service) error {
	if logger == nil {
		logger = slog.Default()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range services {
		g.Go(func() error {
			logger.Debug("service started", "service", svc.Name)
			err := svc.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("service failed", "service", svc.Name, "error", err)
				return fmt.Errorf("%s: %w", svc.Name, err)
			}
			logger.Debug("service stopped", "service", svc.Name)
			return nil
		})
	}
	return g.Wait()
}

// IdentitySetter receives a new control item identity.
type IdentitySetter interface {
	SetIdentity(id menubar.Identity)
}

// Reloader applies configuration changes to a running daemon.
type Reloader struct {
	path      string
	settings  *Settings
	items     IdentitySetter
	refresher *Refresher
	level     *slog.LevelVar
	logger    *slog.Logger

	mu sync.Mutex
}

// NewReloader creates a reloader reading path. level may be nil.
func NewReloader(path string, settings *Settings, items IdentitySetter, refresher *Refresher, level *slog.LevelVar, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		path:      path,
		settings:  settings,
		items:     items,
		refresher: refresher,
		level:     level,
		logger:    logger,
	}
}

// Reload reads the configuration file and applies it.
func (r *Reloader) Reload() error {
	res, err := config.LoadFromPath(r.path)
	if err != nil {
		return err
	}
	r.Apply(res.Config)
	return nil
}

// Apply installs cfg. Control item titles are read once at startup, so a
// change to them only takes effect on restart.
func (r *Reloader) Apply(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.settings.Config()
	if prev.ControlItems != cfg.ControlItems {
		r.logger.Warn("control item changes take effect after restart")
		cfg.ControlItems = prev.ControlItems
	}

	r.settings.Store(cfg)
	if r.items != nil {
		r.items.SetIdentity(Identity(cfg, r.logger))
	}
	if r.refresher != nil {
		r.refresher.SetInterval(cfg.PollDuration())
	}
	if r.level != nil {
		r.level.Set(cfg.SlogLevel())
	}
	r.logger.Info("configuration applied", "path", r.path)
}
