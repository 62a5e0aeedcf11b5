// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
)

// queueHint is the initial capacity of the event queue. The queue grows
// without bound; consumers are expected to keep up.
const queueHint = 64

// endOfStream is queued behind the last event when the sender closes.
type endOfStream struct{}

// NewChannel returns the two ends of an unbounded event queue. The Sender
// is handed to an observation, which closes it when the stream is torn
// down.
func NewChannel() (*Sender, *Receiver) {
	q := queue.New(queueHint)
	return &Sender{q: q}, &Receiver{q: q}
}

// Sender is the producing end of an event queue. Only the bridge sends.
type Sender struct {
	q         *queue.Queue
	closeOnce sync.Once
}

// Send queues ev. It fails with ErrClosed once either end has been closed.
func (s *Sender) Send(ev Event) error {
	if err := s.q.Put(ev); err != nil {
		return ErrClosed
	}
	return nil
}

// Close marks the end of the stream. The receiver sees ErrClosed after
// draining everything sent before.
func (s *Sender) Close() {
	s.closeOnce.Do(func() {
		// Fails only when the receiver is already gone.
		_ = s.q.Put(endOfStream{})
	})
}

// Receiver is the consuming end of an event queue. It must not be used from
// more than one goroutine at a time.
type Receiver struct {
	q *queue.Queue
}

// Poll returns the next event, waiting at most timeout for one to arrive.
// It returns ErrTimeout if none did and ErrClosed when the stream has ended.
// A non-positive timeout only checks for an already queued event.
func (r *Receiver) Poll(timeout time.Duration) (Event, error) {
	if timeout <= 0 {
		if r.q.Disposed() {
			return Event{}, ErrClosed
		}
		if r.q.Empty() {
			return Event{}, ErrTimeout
		}
		// The single consumer guarantees the item is still there.
		timeout = time.Millisecond
	}
	items, err := r.q.Poll(1, timeout)
	return r.take(items, err)
}

// Recv blocks until an event arrives or the stream ends.
func (r *Receiver) Recv() (Event, error) {
	items, err := r.q.Get(1)
	return r.take(items, err)
}

func (r *Receiver) take(items []interface{}, err error) (Event, error) {
	switch {
	case err == queue.ErrTimeout:
		return Event{}, ErrTimeout
	case err != nil:
		return Event{}, ErrClosed
	case len(items) == 0:
		return Event{}, ErrTimeout
	}
	switch it := items[0].(type) {
	case Event:
		return it, nil
	case endOfStream:
		r.q.Dispose()
		return Event{}, ErrClosed
	default:
		panic("bug: unexpected item in event queue")
	}
}

// Len returns the number of queued events, including the end of stream
// marker if present.
func (r *Receiver) Len() int {
	return int(r.q.Len())
}

// Close drops the receiver. Queued events are discarded and further sends
// fail.
func (r *Receiver) Close() {
	r.q.Dispose()
}
