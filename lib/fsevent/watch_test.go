// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// These tests run against the platform facility and a real directory.

func platformNative(t *testing.T) Native {
	t.Helper()
	native, err := DefaultNative()
	if errors.Is(err, ErrUnsupported) {
		t.Skip(err)
	}
	if err != nil {
		t.Fatal(err)
	}
	return native
}

// watchDir returns a new temporary directory in the form events report it.
func watchDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

type expectedEvent struct {
	path  string
	flags StreamFlags
}

// awaitEvents reads from rx until every expected event was seen, ignoring
// others. Extra flags on a matching event are fine.
func awaitEvents(t *testing.T, rx *Receiver, expected []expectedEvent) {
	t.Helper()
	missing := append([]expectedEvent(nil), expected...)
	deadline := time.Now().Add(testTimeout)
	for len(missing) > 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timed out, still missing %v", missing)
		}
		ev, err := rx.Poll(remaining)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			t.Fatalf("still missing %v: %v", missing, err)
		}
		t.Log("got", ev)
		for i, m := range missing {
			if ev.Path == m.path && ev.Flags.Contains(m.flags) {
				missing = append(missing[:i], missing[i+1:]...)
				break
			}
		}
	}
}

func createFile(t *testing.T, dir string) []expectedEvent {
	t.Helper()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return []expectedEvent{{path, ItemCreated | ItemIsFile}}
}

func createDirs(t *testing.T, dir string) []expectedEvent {
	t.Helper()
	var exp []expectedEvent
	for _, name := range []string{"dest1", "dest2", "dest3"} {
		path := filepath.Join(dir, name)
		if err := os.Mkdir(path, 0o755); err != nil {
			t.Fatal(err)
		}
		exp = append(exp, expectedEvent{path, ItemCreated | ItemIsDir})
	}
	return exp
}

func TestWatchAsync(t *testing.T) {
	cases := map[string]func(*testing.T, string) []expectedEvent{
		"file": createFile,
		"dirs": createDirs,
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := NewObserver(platformNative(t))
			dir := watchDir(t)
			cfg, err := NewWatchConfig(dir)
			if err != nil {
				t.Fatal(err)
			}
			tx, rx := NewChannel()
			defer rx.Close()

			h, err := o.ObserveAsync(cfg, tx)
			if err != nil {
				t.Fatal(err)
			}
			defer func() {
				h.Shutdown()
				if err := h.Wait(); err != nil {
					t.Error(err)
				}
			}()

			awaitEvents(t, rx, mutate(t, dir))
		})
	}
}

func TestWatchBlocking(t *testing.T) {
	cases := map[string]func(*testing.T, string) []expectedEvent{
		"file": createFile,
		"dirs": createDirs,
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := NewObserver(platformNative(t))
			dir := watchDir(t)
			cfg, err := NewWatchConfig(dir)
			if err != nil {
				t.Fatal(err)
			}
			tx, rx := NewChannel()
			defer rx.Close()

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				done <- o.ObserveBlocking(ctx, cfg, tx)
			}()
			defer func() {
				cancel()
				if err := <-done; err != nil {
					t.Error(err)
				}
			}()

			// Blocking mode does not report when the stream is up.
			time.Sleep(500 * time.Millisecond)
			awaitEvents(t, rx, mutate(t, dir))
		})
	}
}

func TestWatchFileRoot(t *testing.T) {
	o := NewObserver(platformNative(t))
	dir := watchDir(t)
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("data\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewWatchConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	tx, rx := NewChannel()
	defer rx.Close()

	h, err := o.ObserveAsync(cfg, tx)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		h.Shutdown()
		if err := h.Wait(); err != nil {
			t.Error(err)
		}
	}()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(testTimeout)
	for {
		ev, err := rx.Poll(time.Until(deadline))
		if err != nil {
			t.Fatal("waiting for removal:", err)
		}
		t.Log("got", ev)
		if ev.Path != file {
			t.Fatalf("event outside the watched file: %v", ev)
		}
		if ev.Flags.Contains(ItemRemoved) {
			return
		}
	}
}
