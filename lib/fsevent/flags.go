// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"fmt"
	"strings"
)

// StreamFlags describes what happened to the item an Event refers to. The
// values mirror FSEventStreamEventFlags in FSEvents.h.
type StreamFlags uint32

const (
	None               StreamFlags = 0x00000000
	MustScanSubDirs    StreamFlags = 0x00000001
	UserDropped        StreamFlags = 0x00000002
	KernelDropped      StreamFlags = 0x00000004
	EventIDsWrapped    StreamFlags = 0x00000008
	HistoryDone        StreamFlags = 0x00000010
	RootChanged        StreamFlags = 0x00000020
	Mount              StreamFlags = 0x00000040
	Unmount            StreamFlags = 0x00000080
	ItemCreated        StreamFlags = 0x00000100
	ItemRemoved        StreamFlags = 0x00000200
	ItemInodeMetaMod   StreamFlags = 0x00000400
	ItemRenamed        StreamFlags = 0x00000800
	ItemModified       StreamFlags = 0x00001000
	ItemFinderInfoMod  StreamFlags = 0x00002000
	ItemChangeOwner    StreamFlags = 0x00004000
	ItemXattrMod       StreamFlags = 0x00008000
	ItemIsFile         StreamFlags = 0x00010000
	ItemIsDir          StreamFlags = 0x00020000
	ItemIsSymlink      StreamFlags = 0x00040000
	OwnEvent           StreamFlags = 0x00080000
	ItemIsHardlink     StreamFlags = 0x00100000
	ItemIsLastHardlink StreamFlags = 0x00200000
	ItemCloned         StreamFlags = 0x00400000

	// KnownFlags is the union of every flag above. Anything outside it
	// cannot have come from a conforming facility.
	KnownFlags StreamFlags = 0x007fffff
)

// flagNames lists the flags in the order String renders them.
var flagNames = []struct {
	flag StreamFlags
	name string
}{
	{MustScanSubDirs, "MUST_SCAN_SUBDIRS"},
	{UserDropped, "USER_DROPPED"},
	{KernelDropped, "KERNEL_DROPPED"},
	{EventIDsWrapped, "IDS_WRAPPED"},
	{HistoryDone, "HISTORY_DONE"},
	{RootChanged, "ROOT_CHANGED"},
	{Mount, "MOUNT"},
	{Unmount, "UNMOUNT"},
	{ItemCreated, "ITEM_CREATED"},
	{ItemRemoved, "ITEM_REMOVED"},
	{ItemInodeMetaMod, "INODE_META_MOD"},
	{ItemRenamed, "ITEM_RENAMED"},
	{ItemModified, "ITEM_MODIFIED"},
	{ItemFinderInfoMod, "FINDER_INFO_MOD"},
	{ItemChangeOwner, "ITEM_CHANGE_OWNER"},
	{ItemXattrMod, "ITEM_XATTR_MOD"},
	{ItemIsFile, "IS_FILE"},
	{ItemIsDir, "IS_DIR"},
	{ItemIsSymlink, "IS_SYMLINK"},
	{OwnEvent, "OWN_EVENT"},
	{ItemIsLastHardlink, "IS_LAST_HARDLINK"},
	{ItemIsHardlink, "IS_HARDLINK"},
	{ItemCloned, "ITEM_CLONED"},
}

const noneName = "NONE"

// DecodeFlags converts the raw flag word delivered by the facility. Bits
// outside KnownFlags are an error.
func DecodeFlags(raw uint32) (StreamFlags, error) {
	f := StreamFlags(raw)
	if unknown := f &^ KnownFlags; unknown != 0 {
		return None, &DecodeError{
			Index:  -1,
			Flags:  raw,
			Reason: fmt.Sprintf("unknown flag bits %#x", uint32(unknown)),
		}
	}
	return f, nil
}

// Union returns the flags set in either f or o.
func (f StreamFlags) Union(o StreamFlags) StreamFlags {
	return f | o
}

// Contains returns true if every flag in o is also set in f.
func (f StreamFlags) Contains(o StreamFlags) bool {
	return f&o == o
}

// String lists the names of the set flags, separated by spaces, in a fixed
// order. The empty set is "NONE".
func (f StreamFlags) String() string {
	if f == None {
		return noneName
	}
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	if unknown := f &^ KnownFlags; unknown != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(unknown)))
	}
	return strings.Join(names, " ")
}

// ParseStreamFlags is the inverse of StreamFlags.String.
func ParseStreamFlags(s string) (StreamFlags, error) {
	fields := strings.Fields(s)
	if len(fields) == 1 && fields[0] == noneName {
		return None, nil
	}
	var f StreamFlags
next:
	for _, field := range fields {
		for _, fn := range flagNames {
			if fn.name == field {
				f |= fn.flag
				continue next
			}
		}
		return None, fmt.Errorf("unknown stream flag %q", field)
	}
	return f, nil
}
