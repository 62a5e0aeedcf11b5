// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

//go:build !darwin && !(solaris && !cgo)
// +build !darwin
// +build !solaris cgo

package fsevent

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/syncthing/notify"
)

// Notify does not block on sending to channel, so the channel must be buffered.
// The actual number is magic.
// Not meant to be changed, but must be changeable for tests
var backendBuffer = 500

const watchEventMask = notify.Create | notify.Remove | notify.Write | notify.Rename

// newPlatformNative returns an emulated facility whose streams are fed by
// recursive notify watches.
func newPlatformNative() (Native, error) {
	e := newEmulated()
	e.feed = notifyFeed
	l.Debugln("Using notify backed emulated streams")
	return e, nil
}

func notifyFeed(s *emuStream) (func(), error) {
	backendChan := make(chan notify.EventInfo, backendBuffer)
	scope := newNotifyScope()
	for _, root := range s.roots {
		fi, err := os.Lstat(root)
		if err != nil {
			// FSEvents accepts paths that do not exist (yet). Recursive
			// watches cannot be set up for them.
			l.Debugln("Not watching missing root", root)
			continue
		}
		watchPath := filepath.Join(root, "...")
		if fi.IsDir() {
			scope.dirs = append(scope.dirs, root)
		} else {
			// Only directories can be watched. Watch the parent and keep
			// the events for the root itself.
			watchPath = filepath.Dir(root)
			scope.files[root] = struct{}{}
		}
		if err := notify.Watch(watchPath, backendChan, watchEventMask); err != nil {
			notify.Stop(backendChan)
			return nil, err
		}
	}

	done := make(chan struct{})
	go notifyLoop(s, scope, backendChan, done)
	return func() {
		notify.Stop(backendChan)
		close(done)
	}, nil
}

// notifyScope is the set of paths a stream reports events for: everything
// below a directory root, and file roots exactly.
type notifyScope struct {
	dirs  []string
	files map[string]struct{}
}

func newNotifyScope() *notifyScope {
	return &notifyScope{files: make(map[string]struct{})}
}

func (sc *notifyScope) contains(path string) bool {
	if _, ok := sc.files[path]; ok {
		return true
	}
	for _, dir := range sc.dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func notifyLoop(s *emuStream, scope *notifyScope, backendChan chan notify.EventInfo, done <-chan struct{}) {
	for {
		// Detect channel overflow
		if len(backendChan) == backendBuffer {
		outer:
			for {
				select {
				case <-backendChan:
				default:
					break outer
				}
			}
			// Events were lost; tell the consumer to rescan every root.
			for _, root := range s.roots {
				s.add(root, MustScanSubDirs|UserDropped)
			}
			l.Debugln("Stream", s.ref, "event overflow, requesting rescan")
		}

		select {
		case ev := <-backendChan:
			if !scope.contains(ev.Path()) {
				l.Debugln("Stream", s.ref, "ignoring sibling event for", ev.Path())
				continue
			}
			s.add(ev.Path(), notifyFlags(ev.Event(), ev.Path()))
		case <-done:
			return
		}
	}
}

// notifyFlags maps a notify event to stream flags, adding the item type as
// it is on disk now.
func notifyFlags(ev notify.Event, path string) StreamFlags {
	var f StreamFlags
	if ev&notify.Create != 0 {
		f |= ItemCreated
	}
	if ev&notify.Remove != 0 {
		f |= ItemRemoved
	}
	if ev&notify.Write != 0 {
		f |= ItemModified
	}
	if ev&notify.Rename != 0 {
		f |= ItemRenamed
	}
	return f | itemType(path)
}

func itemType(path string) StreamFlags {
	fi, err := os.Lstat(path)
	switch {
	case err != nil:
		return None
	case fi.Mode()&os.ModeSymlink != 0:
		return ItemIsSymlink
	case fi.IsDir():
		return ItemIsDir
	default:
		return ItemIsFile
	}
}
