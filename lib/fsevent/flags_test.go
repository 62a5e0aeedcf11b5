// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"errors"
	"testing"
)

func TestFlagsString(t *testing.T) {
	cases := []struct {
		flags StreamFlags
		str   string
	}{
		{None, "NONE"},
		{ItemCreated, "ITEM_CREATED"},
		{ItemCreated | ItemIsFile, "ITEM_CREATED IS_FILE"},
		{ItemIsFile | ItemCreated | MustScanSubDirs, "MUST_SCAN_SUBDIRS ITEM_CREATED IS_FILE"},
		{ItemIsHardlink | ItemIsLastHardlink, "IS_LAST_HARDLINK IS_HARDLINK"},
		{EventIDsWrapped | ItemCloned, "IDS_WRAPPED ITEM_CLONED"},
		{ItemCreated | 0x01000000, "ITEM_CREATED 0x1000000"},
	}

	for _, tc := range cases {
		if s := tc.flags.String(); s != tc.str {
			t.Errorf("%#x: got %q, expected %q", uint32(tc.flags), s, tc.str)
		}
	}
}

func TestFlagNamesCoverKnownFlags(t *testing.T) {
	var all StreamFlags
	seen := make(map[string]bool)
	for _, fn := range flagNames {
		if all&fn.flag != 0 {
			t.Errorf("%s overlaps another flag", fn.name)
		}
		if seen[fn.name] {
			t.Errorf("duplicate name %s", fn.name)
		}
		seen[fn.name] = true
		all |= fn.flag
	}
	if all != KnownFlags {
		t.Errorf("names cover %#x, known flags are %#x", uint32(all), uint32(KnownFlags))
	}
	// Plus NONE.
	if len(flagNames)+1 != 24 {
		t.Errorf("got %d flag names", len(flagNames)+1)
	}
}

func TestFlagsRoundTrip(t *testing.T) {
	step := uint32(1)
	if testing.Short() {
		step = 997
	}
	for raw := uint32(0); raw <= uint32(KnownFlags); raw += step {
		f, err := DecodeFlags(raw)
		if err != nil {
			t.Fatalf("%#x: %v", raw, err)
		}
		back, err := ParseStreamFlags(f.String())
		if err != nil {
			t.Fatalf("%#x: parsing %q: %v", raw, f.String(), err)
		}
		if back != f {
			t.Fatalf("%#x: round trip via %q gave %#x", raw, f.String(), uint32(back))
		}
	}
}

func TestDecodeFlagsRejectsUnknownBits(t *testing.T) {
	for bit := uint(23); bit < 32; bit++ {
		raw := uint32(ItemCreated) | 1<<bit
		_, err := DecodeFlags(raw)
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Errorf("bit %d: expected DecodeError, got %v", bit, err)
			continue
		}
		if derr.Flags != raw {
			t.Errorf("bit %d: error carries flags %#x", bit, derr.Flags)
		}
	}
}

func TestParseStreamFlagsUnknownName(t *testing.T) {
	if _, err := ParseStreamFlags("ITEM_CREATED ITEM_EXPLODED"); err == nil {
		t.Error("expected error for unknown name")
	}
	if f, err := ParseStreamFlags(""); err != nil || f != None {
		t.Errorf("empty string: got %v, %v", f, err)
	}
}

func TestFlagsContainsUnion(t *testing.T) {
	f := ItemCreated.Union(ItemIsDir).Union(ItemXattrMod)
	if !f.Contains(ItemCreated | ItemIsDir) {
		t.Error("should contain ItemCreated|ItemIsDir")
	}
	if f.Contains(ItemCreated | ItemIsFile) {
		t.Error("should not contain ItemIsFile")
	}
	if !f.Contains(None) {
		t.Error("everything contains None")
	}
}
