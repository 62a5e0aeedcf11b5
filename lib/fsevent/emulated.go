// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// emulated implements the Native stream and run loop primitives in Go, for
// facilities that are not built on CoreFoundation. Event sources push
// records into streams; streams coalesce them into batches and deliver
// those on the goroutine running their run loop.
type emulated struct {
	mu      sync.Mutex
	loops   map[RunLoopRef]*emuLoop
	streams map[StreamRef]*emuStream
	last    uintptr
	nextID  atomic.Uint64

	// feed starts an event source for a started stream and returns the
	// function stopping it. Nil means events are only injected by hand.
	feed func(s *emuStream) (stop func(), err error)
}

func newEmulated() *emulated {
	return &emulated{
		loops:   make(map[RunLoopRef]*emuLoop),
		streams: make(map[StreamRef]*emuStream),
	}
}

// canonicalPath resolves p the way the OS reports paths in events:
// absolute, with symlinks evaluated where the path exists.
func canonicalPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func (e *emulated) CreateStream(info uintptr, paths []string, since uint64, latency time.Duration, flags CreateFlags) StreamRef {
	roots := make([]string, len(paths))
	for i, p := range paths {
		roots[i] = canonicalPath(p)
	}
	if since != SinceNow {
		l.Debugln("Emulated streams have no history, ignoring start event ID", since)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.last++
	s := &emuStream{
		ref:     StreamRef(e.last),
		info:    info,
		roots:   roots,
		latency: latency,
		flags:   flags,
		ids:     &e.nextID,
	}
	e.streams[s.ref] = s
	return s.ref
}

func (e *emulated) stream(ref StreamRef) *emuStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streams[ref]
}

func (e *emulated) loop(rl RunLoopRef) *emuLoop {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loops[rl]
}

// started returns the streams that currently accept events.
func (e *emulated) started() []*emuStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	var res []*emuStream
	for _, s := range e.streams {
		if s.accepting() {
			res = append(res, s)
		}
	}
	return res
}

func (e *emulated) ScheduleWithRunLoop(ref StreamRef, rl RunLoopRef) {
	s := e.stream(ref)
	loop := e.loop(rl)
	if s == nil || loop == nil {
		return
	}
	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()
}

func (e *emulated) StartStream(ref StreamRef) bool {
	s := e.stream(ref)
	if s == nil {
		return false
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return true
	}
	s.started = true
	s.mu.Unlock()

	if e.feed != nil {
		stop, err := e.feed(s)
		if err != nil {
			l.Debugln("Starting event source for stream", ref, "failed:", err)
			s.mu.Lock()
			s.started = false
			s.mu.Unlock()
			return false
		}
		s.mu.Lock()
		s.stopFeed = stop
		s.mu.Unlock()
	}
	return true
}

func (e *emulated) FlushSync(ref StreamRef) {
	if s := e.stream(ref); s != nil {
		s.flush()
	}
}

func (e *emulated) StopStream(ref StreamRef) {
	if s := e.stream(ref); s != nil {
		s.stop()
	}
}

func (e *emulated) ReleaseStream(ref StreamRef) {
	e.mu.Lock()
	s := e.streams[ref]
	delete(e.streams, ref)
	e.mu.Unlock()
	if s == nil {
		return
	}
	s.stop()
	s.mu.Lock()
	s.released = true
	s.queue = nil
	s.mu.Unlock()
}

func (e *emulated) CurrentRunLoop() RunLoopRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last++
	rl := RunLoopRef(e.last)
	e.loops[rl] = &emuLoop{wake: make(chan struct{}, 1)}
	return rl
}

func (e *emulated) RunLoopRun(rl RunLoopRef) {
	if loop := e.loop(rl); loop != nil {
		loop.run()
	}
}

func (e *emulated) RunLoopStop(rl RunLoopRef) {
	if loop := e.loop(rl); loop != nil {
		loop.stop()
	}
}

func (e *emulated) ReleaseRunLoop(rl RunLoopRef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.loops, rl)
}

func (e *emulated) activeStreams() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.streams)
}

func (e *emulated) activeRunLoops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loops)
}

// emuLoop is a run loop: a queue of work performed by whichever goroutine
// is inside run, until stopped.
type emuLoop struct {
	mu      sync.Mutex
	work    []func()
	stopped bool
	wake    chan struct{}
}

func (lp *emuLoop) signal() {
	select {
	case lp.wake <- struct{}{}:
	default:
	}
}

func (lp *emuLoop) perform(fn func()) {
	lp.mu.Lock()
	lp.work = append(lp.work, fn)
	lp.mu.Unlock()
	lp.signal()
}

// stop is sticky: if the loop is not running the next run returns after at
// most finishing the work it picked up.
func (lp *emuLoop) stop() {
	lp.mu.Lock()
	lp.stopped = true
	lp.mu.Unlock()
	lp.signal()
}

func (lp *emuLoop) run() {
	for {
		lp.mu.Lock()
		if lp.stopped {
			lp.stopped = false
			lp.mu.Unlock()
			return
		}
		work := lp.work
		lp.work = nil
		lp.mu.Unlock()

		for _, fn := range work {
			fn()
		}
		if len(work) == 0 {
			<-lp.wake
		}
	}
}

// emuStream collects records into batches. Records are added to pending,
// committed to queue when the latency expires, and dispatched from queue on
// the run loop or by flush.
type emuStream struct {
	ref     StreamRef
	info    uintptr
	roots   []string
	latency time.Duration
	flags   CreateFlags
	ids     *atomic.Uint64

	mu       sync.Mutex
	loop     *emuLoop
	pending  rawBatch
	queue    []rawBatch
	timer    *time.Timer
	started  bool
	stopped  bool
	released bool
	stopFeed func()

	// deliverMut keeps batches in order when flush and the run loop
	// drain concurrently.
	deliverMut sync.Mutex
}

func (s *emuStream) accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}

// add records one event with the next event ID.
func (s *emuStream) add(path string, flags StreamFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	s.pending.paths = append(s.pending.paths, path)
	s.pending.flags = append(s.pending.flags, uint32(flags))
	s.pending.ids = append(s.pending.ids, s.ids.Add(1))

	switch {
	case s.latency <= 0:
		s.commitLocked()
	case s.timer == nil:
		if s.flags&CreateFlagNoDefer != 0 {
			// Deliver the first event after a quiet period right away,
			// coalesce what follows.
			s.commitLocked()
		}
		s.timer = time.AfterFunc(s.latency, s.expire)
	}
}

// enqueue delivers b as one batch, as is.
func (s *emuStream) enqueue(b rawBatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return false
	}
	s.queue = append(s.queue, b)
	s.postLocked()
	return true
}

func (s *emuStream) expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = nil
	if s.stopped {
		return
	}
	s.commitLocked()
}

func (s *emuStream) commitLocked() {
	if s.pending.len() == 0 {
		return
	}
	s.queue = append(s.queue, s.pending)
	s.pending = rawBatch{}
	s.postLocked()
}

func (s *emuStream) postLocked() {
	if s.loop != nil {
		s.loop.perform(s.deliver)
	}
}

// deliver dispatches every queued batch on the calling goroutine.
func (s *emuStream) deliver() {
	s.deliverMut.Lock()
	defer s.deliverMut.Unlock()
	for {
		s.mu.Lock()
		if s.released || len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		b := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		dispatch(s.info, b)
	}
}

func (s *emuStream) flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.commitLocked()
	s.mu.Unlock()
	s.deliver()
}

func (s *emuStream) stop() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.stopped = true
	stopFeed := s.stopFeed
	s.stopFeed = nil
	s.mu.Unlock()

	if stopFeed != nil {
		stopFeed()
	}
}
