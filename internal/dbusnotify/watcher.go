// Package dbusnotify talks to the session bus: it reports when processes
// join or leave the bus and shows desktop notifications.
package dbusnotify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
)

const nameOwnerChanged = "org.freedesktop.DBus.NameOwnerChanged"

// ProcessWatcher signals whenever a client connects to or disconnects from
// the session bus. Tray applications nearly always hold a bus connection, so
// these signals are a cheap proxy for apps launching and exiting.
type ProcessWatcher struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	signals chan *dbus.Signal
	changes chan struct{}
}

// NewProcessWatcher subscribes to NameOwnerChanged on conn.
func NewProcessWatcher(conn *dbus.Conn, logger *slog.Logger) (*ProcessWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	)
	if err != nil {
		return nil, fmt.Errorf("match NameOwnerChanged: %w", err)
	}

	w := &ProcessWatcher{
		conn:    conn,
		logger:  logger,
		signals: make(chan *dbus.Signal, 16),
		changes: make(chan struct{}, 1),
	}
	conn.Signal(w.signals)
	return w, nil
}

// Changes delivers one value per burst of bus membership changes. Values
// are coalesced when the reader is slow.
func (w *ProcessWatcher) Changes() <-chan struct{} {
	return w.changes
}

// Run forwards signals until ctx is done.
func (w *ProcessWatcher) Run(ctx context.Context) error {
	defer func() {
		w.conn.RemoveSignal(w.signals)
		w.conn.RemoveMatchSignal(
			dbus.WithMatchInterface("org.freedesktop.DBus"),
			dbus.WithMatchSender("org.freedesktop.DBus"),
			dbus.WithMatchMember("NameOwnerChanged"),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-w.signals:
			if !ok {
				return nil
			}
			w.handle(sig)
		}
	}
}

func (w *ProcessWatcher) handle(sig *dbus.Signal) {
	if !isClientChange(sig) {
		return
	}
	w.logger.Debug("bus client changed", "name", sig.Body[0])
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// isClientChange reports whether sig announces a unique connection name
// appearing or disappearing. Well-known name handovers are ignored.
func isClientChange(sig *dbus.Signal) bool {
	if sig == nil || sig.Name != nameOwnerChanged || len(sig.Body) < 3 {
		return false
	}
	name, ok := sig.Body[0].(string)
	if !ok || !strings.HasPrefix(name, ":") {
		return false
	}
	oldOwner, ok1 := sig.Body[1].(string)
	newOwner, ok2 := sig.Body[2].(string)
	if !ok1 || !ok2 {
		return false
	}
	return (oldOwner == "") != (newOwner == "")
}
