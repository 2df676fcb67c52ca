// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package notice

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/vorlif/spreak"
)

const (
	notificationsDest   = "org.freedesktop.Notifications"
	notificationsPath   = "/org/freedesktop/Notifications"
	notificationsNotify = "org.freedesktop.Notifications.Notify"

	urgencyNormal   byte = 1
	urgencyCritical byte = 2

	dismissAction = "default"
)

// caller is the part of dbus.BusObject the notifier needs.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// DesktopNotifier shows notices through the freedesktop notification service on the session
// bus. Blocking notices are sent with critical urgency, which keeps them on screen until
// dismissed.
type DesktopNotifier struct {
	appName   string
	conn      *dbus.Conn
	obj       caller
	localizer *spreak.Localizer
	timeout   time.Duration
}

func NewDesktopNotifier(appName string, loc *spreak.Localizer, timeout time.Duration) (*DesktopNotifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DesktopNotifier{
		appName:   appName,
		conn:      conn,
		obj:       conn.Object(notificationsDest, notificationsPath),
		localizer: loc,
		timeout:   timeout,
	}, nil
}

func (d *DesktopNotifier) Name() string {
	return "desktop"
}

func (d *DesktopNotifier) Show(ctx context.Context, n Notice) error {
	text := n.Localize(d.localizer)
	urgency := urgencyNormal
	expire := int32(-1)
	if d.timeout > 0 {
		expire = int32(d.timeout.Milliseconds()) //nolint:gosec
	}
	if n.Blocking {
		urgency = urgencyCritical
		expire = 0
	}
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgency),
	}
	actions := []string{dismissAction, text.Dismiss}

	var id uint32
	call := d.obj.CallWithContext(ctx, notificationsNotify, 0, d.appName, uint32(0), "dialog-warning",
		text.Title, text.Body, actions, hints, expire)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to send desktop notification: %w", err)
	}
	return nil
}

func (d *DesktopNotifier) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
