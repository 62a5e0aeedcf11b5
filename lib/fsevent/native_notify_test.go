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
	"path/filepath"
	"testing"
)

func TestNotifyScope(t *testing.T) {
	root := filepath.FromSlash("/w/dir")
	file := filepath.FromSlash("/w/single.txt")

	sc := newNotifyScope()
	sc.dirs = append(sc.dirs, root)
	sc.files[file] = struct{}{}

	cases := []struct {
		path     string
		contains bool
	}{
		{root, true},
		{filepath.FromSlash("/w/dir/a"), true},
		{filepath.FromSlash("/w/dir/sub/b"), true},
		{filepath.FromSlash("/w/dirt/a"), false},
		{file, true},
		{filepath.FromSlash("/w/single.txt.swp"), false},
		{filepath.FromSlash("/w/other.txt"), false},
	}
	for _, tc := range cases {
		if res := sc.contains(tc.path); res != tc.contains {
			t.Errorf("%s: got %v, expected %v", tc.path, res, tc.contains)
		}
	}
}
