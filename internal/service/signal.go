// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/logger"
)

const directionsTimeout = 5 * time.Second

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

func (s *Service) startSignalHandler(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(ctx, sigChan)
	}()
}

// HandleSignals requests directions to the map center on SIGUSR1 and logs the current address
// on SIGUSR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				s.requestDirections(ctx)
			case syscall.SIGUSR2:
				s.logState()
			}
		}
	}
}

func (s *Service) requestDirections(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, directionsTimeout)
	defer cancel()

	id, err := s.RequestDirections(reqCtx)
	if err != nil {
		// the controller already showed a notice for its own failures
		if _, ok := controller.KindOf(err); ok {
			s.logger.Debug("directions request was not issued", logger.Err(err))
			return
		}
		s.logger.Error("failed to request directions", logger.Err(err))
		return
	}
	s.logger.Debug("directions requested", slog.String("request_id", id))
}
