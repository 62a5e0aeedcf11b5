// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrHandoffTimeout is returned by ObserveAsync when the observer
	// goroutine did not publish its run loop in time.
	ErrHandoffTimeout = errors.New("timed out waiting for the observer run loop")
	// ErrUnsupported is returned when the platform has no usable change
	// notification facility.
	ErrUnsupported    = errors.New("file system event streams are not supported on this platform")
	ErrInvalidLatency = errors.New("latency must not be negative")
	ErrTimeout        = errors.New("timeout")
	ErrClosed         = errors.New("closed")
)

// An EncodingError is returned for a watch path that cannot be handed to
// the facility.
type EncodingError struct {
	Path   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("path %q is not representable: %s", e.Path, e.Reason)
}

// A StreamCreationError is returned when the facility refuses to create or
// start a stream. It unwraps to an *os.SyscallError naming the failed call.
type StreamCreationError struct {
	Op    string
	Paths []string
	err   error
}

func newStreamCreationError(op string, paths []string, result string) *StreamCreationError {
	return &StreamCreationError{
		Op:    op,
		Paths: paths,
		err:   os.NewSyscallError(op, errors.New(result)),
	}
}

func (e *StreamCreationError) Error() string {
	return fmt.Sprintf("creating event stream for [%s]: %v", strings.Join(e.Paths, ", "), e.err)
}

func (e *StreamCreationError) Unwrap() error {
	return e.err
}

// A DecodeError means the facility delivered a record that breaks its own
// contract: a path that is not UTF-8, unknown flag bits, or parallel arrays
// of different lengths. Inside the callback it is raised with panic.
type DecodeError struct {
	// Index is the position of the record in its batch, or -1 when not
	// applicable.
	Index  int
	Path   string
	Flags  uint32
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return "decoding event: " + e.Reason
	}
	return fmt.Sprintf("decoding event %d (%q, flags %#x): %s", e.Index, e.Path, e.Flags, e.Reason)
}
