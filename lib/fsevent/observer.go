// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package fsevent delivers file system change notifications from a native
// event stream facility (FSEvents on macOS) as a queue of typed events.
//
// An observation creates a stream for a WatchConfig, schedules it on the run
// loop of an OS thread and drives that run loop until asked to stop. The
// facility calls back on that thread with batches of events which are
// decoded and queued on a Sender. ObserveBlocking runs the observation on
// the calling goroutine; ObserveAsync runs it on a goroutine of its own and
// returns a Handle to stop it with.
package fsevent

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultHandoffTimeout bounds how long ObserveAsync waits for the observer
// goroutine to report that its stream is running.
const DefaultHandoffTimeout = 5 * time.Second

// An Observer runs observations against one Native facility.
type Observer struct {
	native Native

	// HandoffTimeout is how long ObserveAsync waits for the stream to
	// start. Zero means DefaultHandoffTimeout.
	HandoffTimeout time.Duration
}

func NewObserver(native Native) *Observer {
	return &Observer{
		native:         native,
		HandoffTimeout: DefaultHandoffTimeout,
	}
}

// ObserveBlocking runs an observation with the platform facility. See
// (*Observer).ObserveBlocking.
func ObserveBlocking(ctx context.Context, cfg *WatchConfig, tx *Sender) error {
	native, err := DefaultNative()
	if err != nil {
		tx.Close()
		return err
	}
	return NewObserver(native).ObserveBlocking(ctx, cfg, tx)
}

// ObserveAsync starts an observation with the platform facility. See
// (*Observer).ObserveAsync.
func ObserveAsync(cfg *WatchConfig, tx *Sender) (*Handle, error) {
	native, err := DefaultNative()
	if err != nil {
		tx.Close()
		return nil, err
	}
	return NewObserver(native).ObserveAsync(cfg, tx)
}

// ObserveBlocking watches cfg on the calling goroutine, which stays locked
// to its OS thread, and sends events to tx until ctx is cancelled. Events
// the facility has already seen are flushed to tx before it returns. The
// observation takes ownership of tx and closes it on return.
func (o *Observer) ObserveBlocking(ctx context.Context, cfg *WatchConfig, tx *Sender) error {
	metricObservations.WithLabelValues(modeBlocking).Inc()
	defer metricObservations.WithLabelValues(modeBlocking).Dec()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Stopping a released run loop is a no-op, so unregistering after
	// observe has returned is fine.
	var stop func() bool
	defer func() {
		if stop != nil {
			stop()
		}
	}()

	return o.observe(cfg.snapshot(), tx, func(rl RunLoopRef) bool {
		stop = context.AfterFunc(ctx, func() {
			o.native.RunLoopStop(rl)
		})
		return true
	}, nil)
}

// ObserveAsync watches cfg on a new goroutine locked to its own OS thread.
// It returns once the stream is running, or with ErrHandoffTimeout if that
// took longer than HandoffTimeout. Errors creating the stream are returned
// as is. The observation takes ownership of tx and closes it when it ends.
func (o *Observer) ObserveAsync(cfg *WatchConfig, tx *Sender) (*Handle, error) {
	snap := cfg.snapshot()
	ho := newHandoff()
	h := &Handle{
		native: o.native,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		metricObservations.WithLabelValues(modeAsync).Inc()
		defer metricObservations.WithLabelValues(modeAsync).Dec()

		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		h.err = o.observe(snap, tx, ho.publish, ho.fail)
	}()

	timeout := o.HandoffTimeout
	if timeout <= 0 {
		timeout = DefaultHandoffTimeout
	}
	rl, err := ho.wait(timeout)
	if err != nil {
		if errors.Is(err, ErrHandoffTimeout) {
			metricHandoffTimeoutsTotal.Inc()
			l.Infof("Event stream for %v did not start within %v", snap.paths, timeout)
		}
		return nil, err
	}
	h.rl = rl
	return h, nil
}

// observe is the stream lifecycle shared by both modes. It must run on a
// goroutine locked to its OS thread. running is called with the thread's
// run loop once the stream has started; if it returns false the run loop is
// not entered. failed, if set, is called when the stream cannot be set up.
func (o *Observer) observe(cfg snapshot, tx *Sender, running func(RunLoopRef) bool, failed func(error)) error {
	defer tx.Close()

	info := contexts.add(tx)
	defer contexts.delete(info)

	l.Debugf("Stream context %d: creating stream for %v (since %d, latency %v, flags %#x)", info, cfg.paths, cfg.since, cfg.latency, uint32(cfg.flags))
	stream := o.native.CreateStream(info, cfg.paths, cfg.since, cfg.latency, cfg.flags)
	if stream == 0 {
		err := newStreamCreationError("FSEventStreamCreate", cfg.paths, "NULL")
		if failed != nil {
			failed(err)
		}
		return err
	}
	defer o.native.ReleaseStream(stream)

	rl := o.native.CurrentRunLoop()
	defer o.native.ReleaseRunLoop(rl)

	o.native.ScheduleWithRunLoop(stream, rl)
	if !o.native.StartStream(stream) {
		err := newStreamCreationError("FSEventStreamStart", cfg.paths, "false")
		if failed != nil {
			failed(err)
		}
		return err
	}

	if !running(rl) {
		l.Debugf("Stream context %d: abandoned before the run loop started", info)
		o.native.StopStream(stream)
		return ErrHandoffTimeout
	}

	l.Debugf("Stream context %d: running", info)
	o.native.RunLoopRun(rl)
	l.Debugf("Stream context %d: run loop stopped, flushing", info)

	o.native.FlushSync(stream)
	o.native.StopStream(stream)
	return nil
}

// A Handle stops an asynchronous observation.
type Handle struct {
	native  Native
	rl      RunLoopRef
	stopped atomic.Bool
	done    chan struct{}
	err     error
}

// Shutdown asks the observation's run loop to stop. It returns immediately;
// use Wait to join the observation. Only the first call has an effect, and
// calling it after the observation ended is harmless.
func (h *Handle) Shutdown() {
	if !h.stopped.CompareAndSwap(false, true) {
		return
	}
	h.native.RunLoopStop(h.rl)
}

// Done is closed when the observation has ended and its sender is closed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the observation has ended and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// handoff passes the run loop from the observer goroutine to ObserveAsync
// exactly once. If the caller gives up waiting first, the observer learns
// about it when it publishes and tears its stream down instead of running.
type handoff struct {
	mut       sync.Mutex
	ch        chan handoffResult
	abandoned bool
}

type handoffResult struct {
	rl  RunLoopRef
	err error
}

func newHandoff() *handoff {
	return &handoff{ch: make(chan handoffResult, 1)}
}

func (h *handoff) publish(rl RunLoopRef) bool {
	h.mut.Lock()
	defer h.mut.Unlock()
	if h.abandoned {
		return false
	}
	h.ch <- handoffResult{rl: rl}
	return true
}

func (h *handoff) fail(err error) {
	h.mut.Lock()
	defer h.mut.Unlock()
	if h.abandoned {
		return
	}
	h.ch <- handoffResult{err: err}
}

func (h *handoff) wait(timeout time.Duration) (RunLoopRef, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-h.ch:
		return res.rl, res.err
	case <-timer.C:
	}

	h.mut.Lock()
	defer h.mut.Unlock()
	select {
	case res := <-h.ch:
		// Published while the timer fired.
		return res.rl, res.err
	default:
		h.abandoned = true
		return 0, ErrHandoffTimeout
	}
}
