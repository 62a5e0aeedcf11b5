// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/syncthing/fsevent/lib/svcutil"
)

// servicePollInterval bounds how long the event loop waits for an event
// before checking for cancellation.
const servicePollInterval = 250 * time.Millisecond

// Service runs an observation under a supervisor and hands every event to
// a handler on the service goroutine. Each Serve starts a fresh stream, so
// events between a failure and the restart are not seen unless the config
// starts from a stored event ID.
type Service struct {
	observer *Observer
	cfg      *WatchConfig
	handler  func(Event)
}

var _ suture.Service = (*Service)(nil)

func NewService(observer *Observer, cfg *WatchConfig, handler func(Event)) *Service {
	return &Service{
		observer: observer,
		cfg:      cfg,
		handler:  handler,
	}
}

func (s *Service) Serve(ctx context.Context) error {
	l.Debugln(s, "starting")
	defer l.Debugln(s, "exiting")

	tx, rx := NewChannel()
	defer rx.Close()

	h, err := s.observer.ObserveAsync(s.cfg, tx)
	if err != nil {
		var cerr *StreamCreationError
		if errors.As(err, &cerr) {
			// The same config will fail the same way.
			return svcutil.NoRestartErr(err)
		}
		return err
	}

	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			if err := h.Wait(); err != nil {
				return err
			}
			s.drain(rx)
			return ctx.Err()
		default:
		}

		ev, err := rx.Poll(servicePollInterval)
		switch {
		case err == nil:
			s.handler(ev)
		case errors.Is(err, ErrTimeout):
		case errors.Is(err, ErrClosed):
			// The observation ended on its own.
			return h.Wait()
		default:
			return err
		}
	}
}

// drain hands over the events flushed while the observation stopped.
func (s *Service) drain(rx *Receiver) {
	for {
		ev, err := rx.Poll(0)
		if err != nil {
			return
		}
		s.handler(ev)
	}
}

func (s *Service) String() string {
	return fmt.Sprintf("fsevent.Service@%p for %v", s, s.cfg.Paths())
}
