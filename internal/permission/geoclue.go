// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/userlocation/internal/logger"
)

const (
	geoClueDest        = "org.freedesktop.GeoClue2"
	geoClueManagerPath = "/org/freedesktop/GeoClue2/Manager"
	geoClueManager     = "org.freedesktop.GeoClue2.Manager"
	geoClueClient      = "org.freedesktop.GeoClue2.Client"

	dbusNameHasOwner      = "org.freedesktop.DBus.NameHasOwner"
	dbusListActivatable   = "org.freedesktop.DBus.ListActivatableNames"
	dbusErrAccessDenied   = "org.freedesktop.DBus.Error.AccessDenied"
	geoClueAccuracyNone   = uint32(0)
	geoClueAccuracyExact  = uint32(8)
	defaultGeoClueTimeout = 5 * time.Second
)

// GeoClue derives the authorization state from GeoClue2 on the system bus. An available accuracy
// level of "none" means location access is disabled by policy. Whether the application itself may
// use the location is decided by the GeoClue agent when a client is started.
type GeoClue struct {
	conn      *dbus.Conn
	desktopID string
	logger    *logger.Logger

	mu       sync.Mutex
	decided  State
	last     State
	onChange []func()
}

func NewGeoClue(desktopID string, log *logger.Logger) (*GeoClue, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return &GeoClue{
		conn:      conn,
		desktopID: desktopID,
		logger:    log,
		decided:   NotDetermined,
		last:      NotDetermined,
	}, nil
}

func (g *GeoClue) Name() string {
	return "geoclue"
}

// ServicesEnabled reports whether GeoClue2 is running or can be activated on the system bus.
func (g *GeoClue) ServicesEnabled(ctx context.Context) (bool, error) {
	var hasOwner bool
	if err := g.conn.BusObject().CallWithContext(ctx, dbusNameHasOwner, 0, geoClueDest).Store(&hasOwner); err != nil {
		return false, fmt.Errorf("failed to query GeoClue2 name owner: %w", err)
	}
	if hasOwner {
		return true, nil
	}

	var activatable []string
	if err := g.conn.BusObject().CallWithContext(ctx, dbusListActivatable, 0).Store(&activatable); err != nil {
		return false, fmt.Errorf("failed to list activatable bus names: %w", err)
	}
	return slices.Contains(activatable, geoClueDest), nil
}

func (g *GeoClue) Status(ctx context.Context) (State, error) {
	manager := g.conn.Object(geoClueDest, geoClueManagerPath)
	variant, err := manager.GetProperty(geoClueManager + ".AvailableAccuracyLevel")
	if err != nil {
		return Unknown, fmt.Errorf("failed to get GeoClue2 accuracy level: %w", err)
	}
	level, ok := variant.Value().(uint32)
	if !ok {
		return Unknown, fmt.Errorf("unexpected GeoClue2 accuracy level type %T", variant.Value())
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return stateFor(level, g.decided), nil
}

// RequestWhenInUse starts a GeoClue2 client, which makes the agent ask the user. The client is
// stopped again right away, the location itself is delivered by the location providers.
func (g *GeoClue) RequestWhenInUse(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultGeoClueTimeout)
	defer cancel()

	decision, err := g.startClient(ctx)
	if err != nil && decision == Unknown {
		g.logger.Error("GeoClue2 permission request failed", logger.Err(err))
	}

	g.mu.Lock()
	g.decided = decision
	fns := g.onChange
	g.mu.Unlock()

	notify(fns)
	return err
}

func (g *GeoClue) startClient(ctx context.Context) (State, error) {
	var clientPath dbus.ObjectPath
	manager := g.conn.Object(geoClueDest, geoClueManagerPath)
	if err := manager.CallWithContext(ctx, geoClueManager+".GetClient", 0).Store(&clientPath); err != nil {
		return decisionFor(err), fmt.Errorf("failed to get GeoClue2 client: %w", err)
	}

	client := g.conn.Object(geoClueDest, clientPath)
	if err := client.SetProperty(geoClueClient+".DesktopId", dbus.MakeVariant(g.desktopID)); err != nil {
		return decisionFor(err), fmt.Errorf("failed to set desktop id: %w", err)
	}
	if err := client.SetProperty(geoClueClient+".RequestedAccuracyLevel",
		dbus.MakeVariant(geoClueAccuracyExact)); err != nil {
		return decisionFor(err), fmt.Errorf("failed to set requested accuracy level: %w", err)
	}
	if err := client.CallWithContext(ctx, geoClueClient+".Start", 0).Err; err != nil {
		return decisionFor(err), fmt.Errorf("failed to start GeoClue2 client: %w", err)
	}
	if err := client.CallWithContext(ctx, geoClueClient+".Stop", 0).Err; err != nil {
		g.logger.Warn("failed to stop GeoClue2 client", logger.Err(err))
	}
	return AuthorizedWhenInUse, nil
}

func (g *GeoClue) OnChange(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = append(g.onChange, fn)
}

// Watch polls the GeoClue2 state in the given interval and runs the change callbacks when it
// differs from the last observed one. It returns when ctx is cancelled.
func (g *GeoClue) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := g.Status(ctx)
			if err != nil {
				g.logger.Debug("failed to poll GeoClue2 state", logger.Err(err))
			}
			g.mu.Lock()
			changed := state != g.last
			g.last = state
			fns := g.onChange
			g.mu.Unlock()
			if changed {
				g.logger.Debug("GeoClue2 authorization changed", slog.String("state", state.String()))
				notify(fns)
			}
		}
	}
}

func (g *GeoClue) Close() error {
	return g.conn.Close()
}

// stateFor combines the system wide accuracy level with the decision of the agent.
func stateFor(level uint32, decided State) State {
	if level == geoClueAccuracyNone {
		return Restricted
	}
	return decided
}

// decisionFor maps a failed GeoClue2 call to the resulting authorization state.
func decisionFor(err error) State {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == dbusErrAccessDenied {
		return Denied
	}
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) && dbusErrPtr.Name == dbusErrAccessDenied {
		return Denied
	}
	return Unknown
}
