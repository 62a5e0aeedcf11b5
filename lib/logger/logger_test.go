// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestAPI(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)

	debug := 0
	l.AddHandler(LevelDebug, checkFunc(t, LevelDebug, &debug))
	info := 0
	l.AddHandler(LevelInfo, checkFunc(t, LevelInfo, &info))
	warn := 0
	l.AddHandler(LevelWarn, checkFunc(t, LevelWarn, &warn))

	l.Debugf("test %d", 0)
	l.Debugln("test", 0)
	l.Infof("test %d", 1)
	l.Infoln("test", 1)
	l.Warnf("test %d", 3)
	l.Warnln("test", 3)

	if debug != 6 {
		t.Errorf("Debug handler called %d != 6 times", debug)
	}
	if info != 4 {
		t.Errorf("Info handler called %d != 4 times", info)
	}
	if warn != 2 {
		t.Errorf("Warn handler called %d != 2 times", warn)
	}
	if !strings.Contains(buf.String(), "WARNING: test 3") {
		t.Errorf("Missing warning line in output:\n%s", buf.String())
	}
}

func checkFunc(t *testing.T, expectl LogLevel, counter *int) func(LogLevel, string) {
	return func(l LogLevel, msg string) {
		*counter++
		if l < expectl {
			t.Errorf("Incorrect message level %d < %d", l, expectl)
		}
	}
}

func TestFacilityDebugging(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)

	f0 := l.NewFacility("f0", "foo#0")
	f1 := l.NewFacility("f1", "foo#1")

	l.SetDebug("f0", true)
	l.SetDebug("f1", false)

	f0.Debugln("Debug line from f0")
	f1.Debugln("Debug line from f1")

	if !strings.Contains(buf.String(), "Debug line from f0") {
		t.Error("Debug line from f0 missing")
	}
	if strings.Contains(buf.String(), "Debug line from f1") {
		t.Error("Debug line from f1 should be suppressed")
	}

	if got := l.FacilityDebugging(); len(got) != 1 || got[0] != "f0" {
		t.Errorf("Unexpected debugging facilities %v", got)
	}
	if descr := l.Facilities()["f1"]; descr != "foo#1" {
		t.Errorf("Unexpected description %q", descr)
	}
}

func TestTraceFromEnvironment(t *testing.T) {
	t.Setenv("STTRACE", "fsevent, other")
	l := newLogger(&bytes.Buffer{})

	l.NewFacility("fsevent", "bridge")
	l.NewFacility("quiet", "not traced")

	if !l.ShouldDebug("fsevent") {
		t.Error("fsevent should be traced")
	}
	if l.ShouldDebug("quiet") {
		t.Error("quiet should not be traced")
	}
}

func TestControlStripper(t *testing.T) {
	b := new(bytes.Buffer)
	l := newLogger(controlStripper{b})

	l.Infoln("testing\x07testing\ntesting")
	res := b.String()

	if !strings.Contains(res, "testing testing\ntesting") {
		t.Logf("%q", res)
		t.Error("Control character should become space")
	}
	if strings.Contains(res, "\x07") {
		t.Logf("%q", res)
		t.Error("Control character should be removed")
	}
}
