// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"sync"
	"time"
)

// StreamRef identifies a stream created by a Native facility. Zero is never
// a valid stream.
type StreamRef uintptr

// RunLoopRef identifies the run loop of one OS thread as seen by a Native
// facility. It is only ever used to request a stop from another thread.
type RunLoopRef uintptr

// Native is the change notification facility an Observer drives: the
// FSEvents stream API and the run loop primitives it is scheduled on.
//
// Streams deliver batches by calling dispatch with the context value given
// to CreateStream, on the thread that runs the run loop the stream is
// scheduled on, or on the thread calling FlushSync.
type Native interface {
	// CreateStream returns zero if the stream could not be created.
	CreateStream(info uintptr, paths []string, since uint64, latency time.Duration, flags CreateFlags) StreamRef
	ScheduleWithRunLoop(s StreamRef, rl RunLoopRef)
	StartStream(s StreamRef) bool
	// FlushSync delivers every event the facility has already seen before
	// returning.
	FlushSync(s StreamRef)
	StopStream(s StreamRef)
	// ReleaseStream unschedules and frees the stream. No callbacks for it
	// happen afterwards.
	ReleaseStream(s StreamRef)

	// CurrentRunLoop returns the run loop of the calling OS thread. The
	// reference stays valid until ReleaseRunLoop.
	CurrentRunLoop() RunLoopRef
	// RunLoopRun drives rl, which must belong to the calling thread, until
	// RunLoopStop is called for it.
	RunLoopRun(rl RunLoopRef)
	// RunLoopStop may be called from any goroutine. A stop requested before
	// the loop is running takes effect as soon as it runs. Stopping a
	// released run loop does nothing.
	RunLoopStop(rl RunLoopRef)
	ReleaseRunLoop(rl RunLoopRef)
}

var defaultNative = sync.OnceValues(newPlatformNative)

// DefaultNative returns the facility for the current platform, or
// ErrUnsupported.
func DefaultNative() (Native, error) {
	return defaultNative()
}
