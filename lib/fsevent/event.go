// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import "fmt"

// SinceNow as the starting event ID requests only events that happen after
// the stream is created.
const SinceNow uint64 = 0xffffffffffffffff

// Event is a single notification from the facility.
//
// ID is assigned by the OS and increases monotonically; when it wraps the
// event carries EventIDsWrapped. Path is the absolute path of the item in
// the form the OS resolved it to, which may differ from the registered
// watch path when symlinks are involved. Several events in one batch may
// share a path, and one mutation may be reported as several events.
type Event struct {
	ID    uint64
	Flags StreamFlags
	Path  string
}

func (e Event) String() string {
	return fmt.Sprintf("%d %s [%v]", e.ID, e.Path, e.Flags)
}
