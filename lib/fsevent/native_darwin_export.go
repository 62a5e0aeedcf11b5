// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build darwin && cgo
// +build darwin,cgo

package fsevent

// The exported callback lives in its own file as a preamble next to an
// //export may only hold declarations.

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import "unsafe"

//export fseventBridge
func fseventBridge(_, info uintptr, n C.size_t, paths, flags, ids uintptr) {
	count := int(n)
	if count == 0 {
		return
	}

	cpaths := unsafe.Slice((**C.char)(unsafe.Pointer(paths)), count)
	cflags := unsafe.Slice((*uint32)(unsafe.Pointer(flags)), count)
	cids := unsafe.Slice((*uint64)(unsafe.Pointer(ids)), count)

	b := rawBatch{
		paths: make([]string, count),
		flags: make([]uint32, count),
		ids:   make([]uint64, count),
	}
	for i, p := range cpaths {
		b.paths[i] = C.GoString(p)
	}
	copy(b.flags, cflags)
	copy(b.ids, cids)

	dispatch(info, b)
}
