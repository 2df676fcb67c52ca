// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/userlocation/internal/logger"
)

const (
	login1Interface   = "org.freedesktop.login1.Manager"
	login1SleepMember = "PrepareForSleep"

	resumeDebounce   = 2 * time.Second
	signalBufferSize = 8

	busReconnectDelay   = 5 * time.Second
	networkWakeupDelay  = 10 * time.Second
	reconnectDelay      = 2 * time.Second
	subscribeRetryDelay = 10 * time.Second
)

// monitorSleepResume watches logind for resume events until ctx is cancelled. Lost bus
// connections are re-established.
func (s *Service) monitorSleepResume(ctx context.Context) {
	var lastResume atomic.Int64

	for {
		conn := s.connectToSystemBus(ctx)
		if conn == nil {
			return
		}
		if !s.subscribeSleepSignal(ctx, conn) {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		sigCh := make(chan *dbus.Signal, signalBufferSize)
		conn.Signal(sigCh)
		s.logger.Debug("subscribed to dbus signal", slog.String("interface", login1Interface),
			slog.String("member", login1SleepMember))
		s.handleSleepSignals(ctx, sigCh, &lastResume)

		conn.RemoveSignal(sigCh)
		if err := conn.Close(); err != nil {
			s.logger.Debug("failed to close system bus connection", logger.Err(err))
		}
		if !sleepOrDone(ctx, reconnectDelay) {
			return
		}
	}
}

// connectToSystemBus retries until the system bus is reachable. It returns nil once ctx is
// cancelled. The returned connection is closed with ctx.
func (s *Service) connectToSystemBus(ctx context.Context) *dbus.Conn {
	for {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			s.logger.Debug("failed to connect to system bus", logger.Err(err))
			if !sleepOrDone(ctx, busReconnectDelay) {
				return nil
			}
			continue
		}
		context.AfterFunc(ctx, func() { _ = conn.Close() })
		return conn
	}
}

func (s *Service) subscribeSleepSignal(ctx context.Context, conn *dbus.Conn) bool {
	err := conn.AddMatchSignal(dbus.WithMatchInterface(login1Interface), dbus.WithMatchMember(login1SleepMember))
	if err == nil {
		return true
	}
	s.logger.Error("failed to subscribe to dbus signal", slog.String("interface", login1Interface),
		slog.String("member", login1SleepMember), logger.Err(err))
	if err = conn.Close(); err != nil {
		s.logger.Debug("failed to close system bus connection", logger.Err(err))
	}
	sleepOrDone(ctx, subscribeRetryDelay)
	return false
}

// handleSleepSignals returns when ctx is cancelled or the signal channel was closed.
func (s *Service) handleSleepSignals(ctx context.Context, sigCh chan *dbus.Signal, lastResume *atomic.Int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case sgn, ok := <-sigCh:
			if !ok {
				return
			}
			if resumed(sgn) {
				s.handleResumeEvent(ctx, lastResume)
			}
		}
	}
}

// resumed reports whether sgn is a PrepareForSleep(false) signal.
func resumed(sgn *dbus.Signal) bool {
	if sgn == nil || len(sgn.Body) != 1 {
		return false
	}
	sleeping, ok := sgn.Body[0].(bool)
	return ok && !sleeping
}

// handleResumeEvent re-evaluates the authorization after the system woke up, since location
// services may have changed in the meantime.
func (s *Service) handleResumeEvent(ctx context.Context, lastResume *atomic.Int64) {
	now := time.Now()
	if now.Sub(time.Unix(0, lastResume.Load())) < resumeDebounce {
		return
	}
	lastResume.Store(now.UnixNano())

	// network and GeoClue need a moment after wakeup
	if !sleepOrDone(ctx, networkWakeupDelay) {
		return
	}

	s.ctrlLock.RLock()
	ctrl := s.controller
	s.ctrlLock.RUnlock()
	if ctrl == nil {
		return
	}
	s.logger.Debug("resuming from sleep, re-evaluating location authorization")
	ctrl.AuthorizationChanged()
	s.printOutput(ctx)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
