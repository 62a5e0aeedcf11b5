// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"errors"
	"testing"
	"time"
)

func TestChannelOrderAndClose(t *testing.T) {
	tx, rx := NewChannel()
	for i := 1; i <= 200; i++ {
		if err := tx.Send(Event{ID: uint64(i), Path: "/p"}); err != nil {
			t.Fatal(err)
		}
	}
	tx.Close()
	tx.Close()

	for i := 1; i <= 200; i++ {
		ev, err := rx.Poll(time.Second)
		if err != nil {
			t.Fatal(i, err)
		}
		if ev.ID != uint64(i) {
			t.Fatalf("got event %d, expected %d", ev.ID, i)
		}
	}
	if _, err := rx.Poll(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	// Stays closed.
	if _, err := rx.Recv(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestChannelPollTimeout(t *testing.T) {
	_, rx := NewChannel()
	defer rx.Close()

	if _, err := rx.Poll(0); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	t0 := time.Now()
	if _, err := rx.Poll(20 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if time.Since(t0) < 20*time.Millisecond {
		t.Error("poll returned early")
	}
}

func TestChannelPollNonBlocking(t *testing.T) {
	tx, rx := NewChannel()
	tx.Send(Event{ID: 7})
	ev, err := rx.Poll(0)
	if err != nil || ev.ID != 7 {
		t.Errorf("got %v, %v", ev, err)
	}
	tx.Close()
	if _, err := rx.Poll(0); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestChannelRecvWakesOnSend(t *testing.T) {
	tx, rx := NewChannel()
	go func() {
		time.Sleep(10 * time.Millisecond)
		tx.Send(Event{ID: 1})
		tx.Close()
	}()
	ev, err := rx.Recv()
	if err != nil || ev.ID != 1 {
		t.Fatalf("got %v, %v", ev, err)
	}
	if _, err := rx.Recv(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestChannelSendAfterReceiverClose(t *testing.T) {
	tx, rx := NewChannel()
	rx.Close()
	if err := tx.Send(Event{ID: 1}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	// Must not panic or block.
	tx.Close()
}
