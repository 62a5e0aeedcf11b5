// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"sync/atomic"
	"time"
)

// FakeNative is an in memory facility. Nothing is watched; batches are
// injected with Emit. It is safe for concurrent use, but the hook fields
// must be set before the first observation starts.
type FakeNative struct {
	*emulated

	// BeforeCreate, if set, is called on the observing thread before each
	// stream is created. Blocking in it simulates a slow thread start.
	BeforeCreate func()

	failCreate atomic.Bool
	failStart  atomic.Bool
}

var _ Native = (*FakeNative)(nil)

func NewFakeNative() *FakeNative {
	return &FakeNative{emulated: newEmulated()}
}

// SetFailCreate makes subsequent CreateStream calls fail.
func (f *FakeNative) SetFailCreate(fail bool) {
	f.failCreate.Store(fail)
}

// SetFailStart makes subsequent StartStream calls fail.
func (f *FakeNative) SetFailStart(fail bool) {
	f.failStart.Store(fail)
}

func (f *FakeNative) CreateStream(info uintptr, paths []string, since uint64, latency time.Duration, flags CreateFlags) StreamRef {
	if f.BeforeCreate != nil {
		f.BeforeCreate()
	}
	if f.failCreate.Load() {
		return 0
	}
	return f.emulated.CreateStream(info, paths, since, latency, flags)
}

func (f *FakeNative) StartStream(ref StreamRef) bool {
	if f.failStart.Load() {
		return false
	}
	return f.emulated.StartStream(ref)
}

// Emit delivers the parallel arrays as a single callback batch to every
// started stream that watches at least one path, and returns the number of
// streams it went to. The arrays are passed on unchecked, so malformed
// batches can be produced too.
func (f *FakeNative) Emit(paths []string, flags []uint32, ids []uint64) int {
	n := 0
	for _, s := range f.started() {
		if len(s.roots) == 0 {
			continue
		}
		b := rawBatch{
			paths: append([]string(nil), paths...),
			flags: append([]uint32(nil), flags...),
			ids:   append([]uint64(nil), ids...),
		}
		if s.enqueue(b) {
			n++
		}
	}
	return n
}

// Record adds a single event to every started stream that watches at least
// one path. It is subject to the stream latency and gets the next event ID.
func (f *FakeNative) Record(path string, flags StreamFlags) int {
	n := 0
	for _, s := range f.started() {
		if len(s.roots) == 0 {
			continue
		}
		s.add(path, flags)
		n++
	}
	return n
}

// StartedStreams returns the number of streams currently accepting events.
func (f *FakeNative) StartedStreams() int {
	return len(f.started())
}

// ActiveStreams returns the number of created and not yet released streams.
func (f *FakeNative) ActiveStreams() int {
	return f.activeStreams()
}

// ActiveRunLoops returns the number of run loops not yet released.
func (f *FakeNative) ActiveRunLoops() int {
	return f.activeRunLoops()
}
