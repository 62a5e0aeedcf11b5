// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CreateFlags are the FSEventStreamCreateFlags a stream is created with.
type CreateFlags uint32

const (
	CreateFlagNone        CreateFlags = 0x00000000
	CreateFlagNoDefer     CreateFlags = 0x00000002
	CreateFlagWatchRoot   CreateFlags = 0x00000004
	CreateFlagIgnoreSelf  CreateFlags = 0x00000008
	CreateFlagFileEvents  CreateFlags = 0x00000010
	CreateFlagMarkSelf    CreateFlags = 0x00000020
	CreateFlagFullHistory CreateFlags = 0x00000080

	// kFSEventStreamCreateFlagUseCFTypes and UseExtendedData change the
	// shape of the callback payload, which the bridge does not decode.
	createFlagUseCFTypes      CreateFlags = 0x00000001
	createFlagUseExtendedData CreateFlags = 0x00000040

	DefaultCreateFlags = CreateFlagFileEvents | CreateFlagNoDefer
)

// supported strips the flags that would change the callback payload.
func (f CreateFlags) supported() CreateFlags {
	return f &^ (createFlagUseCFTypes | createFlagUseExtendedData)
}

// WatchConfig describes what a stream watches. It may be changed freely
// until it is handed to an Observer; the observation works on a snapshot.
type WatchConfig struct {
	paths   []string
	since   uint64
	latency time.Duration
	flags   CreateFlags
}

// NewWatchConfig returns a config watching the given paths from now on,
// with no coalescing latency and per file, non deferred delivery.
func NewWatchConfig(paths ...string) (*WatchConfig, error) {
	c := &WatchConfig{
		since: SinceNow,
		flags: DefaultCreateFlags,
	}
	for _, p := range paths {
		if err := c.AppendPath(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AppendPath registers another path. The path is passed to the facility as
// is; the facility resolves it to the canonical form that events carry.
func (c *WatchConfig) AppendPath(path string) error {
	if i := strings.IndexByte(path, 0); i >= 0 {
		return &EncodingError{Path: path, Reason: "contains NUL byte"}
	}
	if !utf8.ValidString(path) {
		return &EncodingError{Path: path, Reason: "not valid UTF-8"}
	}
	c.paths = append(c.paths, path)
	return nil
}

// Paths returns the registered paths in registration order.
func (c *WatchConfig) Paths() []string {
	return append([]string(nil), c.paths...)
}

// SinceWhen is the event ID the stream starts from.
func (c *WatchConfig) SinceWhen() uint64 {
	return c.since
}

func (c *WatchConfig) SetSinceWhen(id uint64) {
	c.since = id
}

// Latency is how long the facility coalesces events before delivering a
// batch.
func (c *WatchConfig) Latency() time.Duration {
	return c.latency
}

func (c *WatchConfig) SetLatency(d time.Duration) error {
	if d < 0 {
		return ErrInvalidLatency
	}
	c.latency = d
	return nil
}

func (c *WatchConfig) Flags() CreateFlags {
	return c.flags
}

func (c *WatchConfig) SetFlags(f CreateFlags) {
	c.flags = f
}

// snapshot is the immutable copy an observation runs with.
type snapshot struct {
	paths   []string
	since   uint64
	latency time.Duration
	flags   CreateFlags
}

func (c *WatchConfig) snapshot() snapshot {
	return snapshot{
		paths:   c.Paths(),
		since:   c.since,
		latency: c.latency,
		flags:   c.flags.supported(),
	}
}
