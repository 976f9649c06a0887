package dbusnotify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName   = "org.freedesktop.Notifications"
	notificationsPath   = "/org/freedesktop/Notifications"
	notificationsNotify = notificationsName + ".Notify"

	appName = "traytile"

	// urgencyCritical keeps the notice up until dismissed.
	urgencyCritical byte = 2
)

// caller is the part of dbus.BusObject the notifier uses.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier shows desktop notifications through the freedesktop
// notification service.
type Notifier struct {
	obj caller
}

// NewNotifier creates a notifier on conn.
func NewNotifier(conn *dbus.Conn) *Notifier {
	return &Notifier{obj: conn.Object(notificationsName, dbus.ObjectPath(notificationsPath))}
}

// Alert shows a critical notification and returns once the server accepted
// it.
func (n *Notifier) Alert(ctx context.Context, title, message string) error {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgencyCritical),
	}
	call := n.obj.CallWithContext(ctx, notificationsNotify, 0,
		appName,
		uint32(0),
		"dialog-warning",
		title,
		message,
		[]string{},
		hints,
		int32(-1),
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
