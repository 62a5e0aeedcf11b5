// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build darwin && cgo
// +build darwin,cgo

package fsevent

/*
#cgo LDFLAGS: -framework CoreServices
#include <stdlib.h>
#include <CoreServices/CoreServices.h>

void fseventBridge(uintptr_t, uintptr_t, size_t, uintptr_t, uintptr_t, uintptr_t);

static FSEventStreamRef createStream(uintptr_t info, CFArrayRef paths, FSEventStreamEventId since, CFTimeInterval latency, FSEventStreamCreateFlags flags) {
	FSEventStreamContext ctx = {0, (void *) info, NULL, NULL, NULL};
	return FSEventStreamCreate(NULL, (FSEventStreamCallback) fseventBridge, &ctx, paths, since, latency, flags);
}

static void stopCurrentRunLoop(void *info) {
	CFRunLoopStop(CFRunLoopGetCurrent());
}

// A signalled source stays signalled until its run loop runs, which makes
// a stop requested before CFRunLoopRun take effect once it does.
static CFRunLoopSourceRef createStopSource(void) {
	CFRunLoopSourceContext ctx = {0};
	ctx.perform = stopCurrentRunLoop;
	return CFRunLoopSourceCreate(NULL, 0, &ctx);
}
*/
import "C"

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

var (
	nilstream C.FSEventStreamRef
	nilstring C.CFStringRef
)

// minDarwinMajor is the kernel major version of OS X 10.7, the first
// release with per file events.
const minDarwinMajor = 11

func newPlatformNative() (Native, error) {
	release, err := unix.Sysctl("kern.osrelease")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	major, err := strconv.Atoi(strings.SplitN(release, ".", 2)[0])
	if err != nil {
		return nil, fmt.Errorf("%w: kernel release %q", ErrUnsupported, release)
	}
	if major < minDarwinMajor {
		return nil, fmt.Errorf("%w: kernel release %s predates file level events", ErrUnsupported, release)
	}
	l.Debugln("Using FSEvents, kernel release", release)
	return newDarwinNative(), nil
}

// darwinNative drives CoreServices FSEvents streams on CoreFoundation run
// loops.
type darwinNative struct {
	mu      sync.Mutex
	streams map[StreamRef]C.FSEventStreamRef
	loops   map[RunLoopRef]*darwinRunLoop
	last    uintptr
}

type darwinRunLoop struct {
	ref    C.CFRunLoopRef
	source C.CFRunLoopSourceRef
}

func newDarwinNative() *darwinNative {
	return &darwinNative{
		streams: make(map[StreamRef]C.FSEventStreamRef),
		loops:   make(map[RunLoopRef]*darwinRunLoop),
	}
}

func (d *darwinNative) CreateStream(info uintptr, paths []string, since uint64, latency time.Duration, flags CreateFlags) StreamRef {
	refs := make([]C.CFStringRef, 0, len(paths))
	defer func() {
		for _, s := range refs {
			C.CFRelease(C.CFTypeRef(unsafe.Pointer(s)))
		}
	}()
	for _, p := range paths {
		cs := C.CString(p)
		s := C.CFStringCreateWithCString(C.kCFAllocatorDefault, cs, C.kCFStringEncodingUTF8)
		C.free(unsafe.Pointer(cs))
		if s == nilstring {
			l.Debugf("CFStringCreateWithCString failed for %q", p)
			return 0
		}
		refs = append(refs, s)
	}

	var values *unsafe.Pointer
	if len(refs) > 0 {
		values = (*unsafe.Pointer)(unsafe.Pointer(&refs[0]))
	}
	arr := C.CFArrayCreate(C.kCFAllocatorDefault, values, C.CFIndex(len(refs)), &C.kCFTypeArrayCallBacks)
	defer C.CFRelease(C.CFTypeRef(unsafe.Pointer(arr)))

	ref := C.createStream(C.uintptr_t(info), arr, C.FSEventStreamEventId(since), C.CFTimeInterval(latency.Seconds()), C.FSEventStreamCreateFlags(flags))
	if ref == nilstream {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.last++
	s := StreamRef(d.last)
	d.streams[s] = ref
	return s
}

func (d *darwinNative) stream(s StreamRef) (C.FSEventStreamRef, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref, ok := d.streams[s]
	return ref, ok
}

func (d *darwinNative) loop(rl RunLoopRef) *darwinRunLoop {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loops[rl]
}

func (d *darwinNative) ScheduleWithRunLoop(s StreamRef, rl RunLoopRef) {
	ref, ok := d.stream(s)
	loop := d.loop(rl)
	if !ok || loop == nil {
		return
	}
	C.FSEventStreamScheduleWithRunLoop(ref, loop.ref, C.kCFRunLoopDefaultMode)
}

func (d *darwinNative) StartStream(s StreamRef) bool {
	ref, ok := d.stream(s)
	if !ok {
		return false
	}
	return C.FSEventStreamStart(ref) != C.Boolean(0)
}

func (d *darwinNative) FlushSync(s StreamRef) {
	if ref, ok := d.stream(s); ok {
		C.FSEventStreamFlushSync(ref)
	}
}

func (d *darwinNative) StopStream(s StreamRef) {
	if ref, ok := d.stream(s); ok {
		C.FSEventStreamStop(ref)
	}
}

func (d *darwinNative) ReleaseStream(s StreamRef) {
	d.mu.Lock()
	ref, ok := d.streams[s]
	delete(d.streams, s)
	d.mu.Unlock()
	if !ok {
		return
	}
	C.FSEventStreamInvalidate(ref)
	C.FSEventStreamRelease(ref)
}

func (d *darwinNative) CurrentRunLoop() RunLoopRef {
	ref := C.CFRunLoopGetCurrent()
	C.CFRetain(C.CFTypeRef(unsafe.Pointer(ref)))
	source := C.createStopSource()
	C.CFRunLoopAddSource(ref, source, C.kCFRunLoopDefaultMode)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.last++
	rl := RunLoopRef(d.last)
	d.loops[rl] = &darwinRunLoop{ref: ref, source: source}
	return rl
}

func (d *darwinNative) RunLoopRun(rl RunLoopRef) {
	if d.loop(rl) == nil {
		return
	}
	C.CFRunLoopRun()
}

func (d *darwinNative) RunLoopStop(rl RunLoopRef) {
	// Holding the lock keeps ReleaseRunLoop from invalidating the source
	// between lookup and signal.
	d.mu.Lock()
	defer d.mu.Unlock()
	loop, ok := d.loops[rl]
	if !ok {
		return
	}
	C.CFRunLoopSourceSignal(loop.source)
	C.CFRunLoopWakeUp(loop.ref)
}

func (d *darwinNative) ReleaseRunLoop(rl RunLoopRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	loop, ok := d.loops[rl]
	if !ok {
		return
	}
	delete(d.loops, rl)
	C.CFRunLoopRemoveSource(loop.ref, loop.source, C.kCFRunLoopDefaultMode)
	C.CFRunLoopSourceInvalidate(loop.source)
	C.CFRelease(C.CFTypeRef(unsafe.Pointer(loop.source)))
	C.CFRelease(C.CFTypeRef(unsafe.Pointer(loop.ref)))
}
