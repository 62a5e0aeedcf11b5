// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/syncthing/fsevent/lib/fsevent"
	"github.com/syncthing/fsevent/lib/svcutil"
)

func TestFilter(t *testing.T) {
	f, err := newFilter([]string{"*.swp", "/tmp/build/**", ".DS_Store"})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		path    string
		ignored bool
	}{
		{"/home/user/file.txt", false},
		{"/home/user/.file.txt.swp", true},
		{"/home/user/.DS_Store", true},
		{"/tmp/build/out/a.o", true},
		{"/tmp/builder/a.o", false},
	}
	for _, tc := range cases {
		if res := f.ignored(tc.path); res != tc.ignored {
			t.Errorf("%s: got ignored=%v, expected %v", tc.path, res, tc.ignored)
		}
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	flt, _ := newFilter([]string{"*.tmp"})
	p := newPrinter(&buf, flt, true)

	// "e" followed by a combining acute accent.
	p.print(fsevent.Event{ID: 5, Flags: fsevent.ItemCreated | fsevent.ItemIsFile, Path: "/w/cafe\u0301"})
	p.print(fsevent.Event{ID: 6, Flags: fsevent.ItemRemoved, Path: "/w/x.tmp"})
	p.flush()

	expected := "5 /w/caf\u00e9 [ITEM_CREATED IS_FILE]\n"
	if buf.String() != expected {
		t.Errorf("got %q, expected %q", buf.String(), expected)
	}
}

func TestWatchConfigFromFlags(t *testing.T) {
	c := CLI{Paths: []string{"/a", "/b"}, Since: 17, Defer: true, WatchRoot: true}
	cfg, err := c.watchConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SinceWhen() != 17 {
		t.Errorf("since is %d", cfg.SinceWhen())
	}
	if cfg.Flags() != fsevent.CreateFlagFileEvents|fsevent.CreateFlagWatchRoot {
		t.Errorf("flags are %#x", uint32(cfg.Flags()))
	}

	c = CLI{Paths: []string{"/a"}, Latency: -1}
	if _, err := c.watchConfig(); !errors.Is(err, fsevent.ErrInvalidLatency) {
		t.Errorf("expected ErrInvalidLatency, got %v", err)
	}
}

func TestExitStatus(t *testing.T) {
	cases := []struct {
		err         error
		interrupted bool
		status      svcutil.ExitStatus
	}{
		{nil, false, svcutil.ExitSuccess},
		{context.DeadlineExceeded, false, svcutil.ExitSuccess},
		{context.Canceled, true, svcutil.ExitInterrupted},
		{svcutil.AsFatalErr(errors.New("boom"), svcutil.ExitError), false, svcutil.ExitError},
		{errors.New("other"), false, svcutil.ExitError},
	}
	for i, tc := range cases {
		if s := exitStatus(tc.err, tc.interrupted); s != tc.status {
			t.Errorf("%d: got %d, expected %d", i, s, tc.status)
		}
	}
}
