package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"

	"github.com/1broseidon/traytile/internal/config"
	"github.com/1broseidon/traytile/internal/daemon"
	"github.com/1broseidon/traytile/internal/dbusnotify"
	"github.com/1broseidon/traytile/internal/event"
	"github.com/1broseidon/traytile/internal/inputmon"
	"github.com/1broseidon/traytile/internal/ipc"
	"github.com/1broseidon/traytile/internal/menubar"
	"github.com/1broseidon/traytile/internal/platform"
	"github.com/1broseidon/traytile/internal/runtimepath"
	"github.com/1broseidon/traytile/internal/x11"
	"github.com/1broseidon/traytile/internal/xinput"
)

// controlItemSize is the edge length of the docked marker windows.
const controlItemSize = 16

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "daemon [--config PATH]", "Start the traytile daemon in the foreground.")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/traytile/config.yaml)")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config

	level := &slog.LevelVar{}
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	unlock, err := acquireLock()
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer unlock()

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()
	conn := backend.Connection()

	markers, err := dockControlItems(conn, cfg.ControlItems)
	if err != nil {
		log.Fatalf("Failed to dock control items: %v", err)
	}
	defer func() {
		for _, w := range markers {
			conn.DestroyWindow(w)
		}
	}()
	log.Printf("Docked %d control items", len(markers))

	pipeline := event.NewPipeline(xinput.NewSink(conn, logger), logger)
	tracker := inputmon.NewTracker(backend, 0, logger)
	injectors := &inputmon.Registry{}
	injectors.Register(tracker)

	settings := daemon.NewSettings(cfg)
	opts := menubar.Options{
		Backend:    backend,
		Pointer:    backend,
		Dispatcher: pipeline,
		Input:      tracker,
		Suppressor: xinput.NewSuppressor(conn),
		Injectors:  injectors,
		Settings:   settings,
		Identity:   daemon.Identity(cfg, logger),
		Timing:     daemon.Timing(cfg),
		Logger:     logger,
	}

	var services []daemon.Service
	var triggers <-chan struct{}

	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Printf("Warning: session bus unavailable, running without notifications: %v", err)
	} else {
		defer bus.Close()
		if cfg.Notifications {
			opts.Notifier = dbusnotify.NewNotifier(bus)
		}
		watcher, err := dbusnotify.NewProcessWatcher(bus, logger)
		if err != nil {
			log.Printf("Warning: failed to watch bus clients: %v", err)
		} else {
			triggers = watcher.Changes()
			services = append(services, daemon.Service{Name: "process-watcher", Run: watcher.Run})
		}
	}

	mgr := menubar.NewManager(opts)
	defer mgr.Close()

	refresher := daemon.NewRefresher(daemon.RefresherConfig{
		Interval: cfg.PollDuration(),
		Logger:   logger,
	}, mgr, triggers)

	reloader := daemon.NewReloader(path, settings, mgr, refresher, level, logger)
	controller := daemon.NewController(mgr, reloader.Reload)

	ipcServer, err := ipc.NewServer(controller)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}

	cfgWatcher := config.NewWatcher(path, logger)
	cfgWatcher.OnConfigChange(func(res *config.LoadResult) {
		reloader.Apply(res.Config)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Println("Received SIGHUP, reloading config...")
				if err := reloader.Reload(); err != nil {
					log.Printf("Config reload failed: %v", err)
				}
			}
		}
	}()

	services = append(services,
		daemon.Service{Name: "event-pipeline", Run: pipeline.Run},
		daemon.Service{Name: "input-tracker", Run: tracker.Run},
		daemon.Service{Name: "refresher", Run: refresher.Run},
		daemon.Service{Name: "config-watcher", Run: cfgWatcher.Run},
		daemon.Service{Name: "ipc", Run: ipcServer.Serve},
	)

	log.Println("traytile daemon started successfully")
	if err := daemon.Supervise(ctx, logger, services...); err != nil {
		log.Printf("Daemon stopped: %v", err)
		return 1
	}
	log.Println("Shutting down traytile daemon...")
	return 0
}

// acquireLock takes an exclusive lock on the runtime lock file so only one
// daemon manages the tray.
func acquireLock() (func(), error) {
	path, err := runtimepath.LockPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lock path: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("another traytile daemon is already running")
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

// dockControlItems docks the section markers. The always-hidden marker is
// optional.
func dockControlItems(conn *x11.Connection, ci config.ControlItems) ([]xproto.Window, error) {
	titles := []string{ci.Visible, ci.Hidden}
	if ci.DockAlwaysHidden {
		titles = append(titles, ci.AlwaysHidden)
	}

	var docked []xproto.Window
	for _, title := range titles {
		w, err := conn.DockControlItem(ci.Namespace, title, controlItemSize, controlItemSize)
		if err != nil {
			for _, id := range docked {
				conn.DestroyWindow(id)
			}
			return nil, fmt.Errorf("dock %q: %w", title, err)
		}
		docked = append(docked, w)
	}
	return docked, nil
}
