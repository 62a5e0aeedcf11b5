// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// sendFailureWarningIntv is the minimum time between warnings about events
// dropped for a closed receiver.
const sendFailureWarningIntv = time.Minute

// The facility hands the callback an opaque context value. Passing Go
// pointers through C is not allowed, so the context is a key into this
// registry. An observation registers its Sender before creating the stream
// and removes it only after the stream is released, so the entry outlives
// every callback for that stream.
var contexts = newContextRegistry()

type contextRegistry struct {
	m    *xsync.MapOf[uintptr, *Sender]
	last atomic.Uintptr
}

func newContextRegistry() *contextRegistry {
	return &contextRegistry{m: xsync.NewMapOf[uintptr, *Sender]()}
}

func (r *contextRegistry) add(s *Sender) uintptr {
	info := r.last.Add(1)
	r.m.Store(info, s)
	return info
}

func (r *contextRegistry) get(info uintptr) *Sender {
	s, _ := r.m.Load(info)
	return s
}

func (r *contextRegistry) delete(info uintptr) {
	r.m.Delete(info)
}

func (r *contextRegistry) len() int {
	return r.m.Size()
}

// rawBatch holds the parallel arrays of one callback invocation, copied out
// of foreign memory but not yet decoded.
type rawBatch struct {
	paths []string
	flags []uint32
	ids   []uint64
}

func (b rawBatch) len() int {
	return len(b.paths)
}

// each calls fn once per record, in order. This is the only place the three
// arrays are indexed, so it is the only place their lengths are checked.
func (b rawBatch) each(fn func(i int, path string, flags uint32, id uint64)) {
	n := len(b.paths)
	if len(b.flags) != n || len(b.ids) != n {
		panic(&DecodeError{
			Index:  -1,
			Reason: fmt.Sprintf("batch array lengths differ: %d paths, %d flags, %d ids", n, len(b.flags), len(b.ids)),
		})
	}
	for i := 0; i < n; i++ {
		fn(i, b.paths[i], b.flags[i], b.ids[i])
	}
}

// decodeEvent turns one raw record into an Event. A record the facility
// should never have produced panics with a *DecodeError.
func decodeEvent(i int, path string, rawFlags uint32, id uint64) Event {
	if !utf8.ValidString(path) {
		panic(&DecodeError{Index: i, Path: path, Flags: rawFlags, Reason: "path is not valid UTF-8"})
	}
	flags, err := DecodeFlags(rawFlags)
	if err != nil {
		derr := err.(*DecodeError)
		derr.Index = i
		derr.Path = path
		panic(derr)
	}
	return Event{ID: id, Flags: flags, Path: path}
}

var sendFailureWarnings = rate.NewLimiter(rate.Every(sendFailureWarningIntv), 1)

// dispatch is called by every facility, on the thread driving the stream's
// run loop, once per delivered batch.
func dispatch(info uintptr, b rawBatch) {
	tx := contexts.get(info)
	if tx == nil {
		l.Debugf("Dropping batch of %d events for released stream context %d", b.len(), info)
		return
	}

	metricBatchesTotal.Inc()
	l.Debugf("Stream context %d: batch of %d events", info, b.len())

	b.each(func(i int, path string, flags uint32, id uint64) {
		ev := decodeEvent(i, path, flags, id)
		metricEventsTotal.Inc()
		if err := tx.Send(ev); err != nil {
			// Receiver gone. The rest of the batch is still decoded
			// and offered.
			metricSendFailuresTotal.Inc()
			if sendFailureWarnings.Allow() {
				l.Infof("Dropping events for stream context %d: %v", info, err)
			}
			l.Debugln("Stream context", info, "dropping", ev, err)
			return
		}
		l.Debugln("Stream context", info, "sent", ev)
	})
}
