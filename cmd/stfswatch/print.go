// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/gobwas/glob"
	"golang.org/x/text/unicode/norm"

	"github.com/syncthing/fsevent/lib/fsevent"
)

// filter matches event paths against ignore globs. A pattern without a
// slash matches the base name, anything else the full path.
type filter struct {
	full []glob.Glob
	base []glob.Glob
}

func newFilter(patterns []string) (*filter, error) {
	f := &filter{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		if filepath.Base(p) == p {
			f.base = append(f.base, g)
		} else {
			f.full = append(f.full, g)
		}
	}
	return f, nil
}

func (f *filter) ignored(path string) bool {
	for _, g := range f.full {
		if g.Match(path) {
			return true
		}
	}
	if len(f.base) == 0 {
		return false
	}
	base := filepath.Base(path)
	for _, g := range f.base {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// printer writes one line per event. It is called from the service
// goroutine only, the mutex orders it against the final flush.
type printer struct {
	mut sync.Mutex
	w   *bufio.Writer
	flt *filter
	nfc bool
}

func newPrinter(w io.Writer, flt *filter, nfc bool) *printer {
	return &printer{w: bufio.NewWriter(w), flt: flt, nfc: nfc}
}

func (p *printer) print(ev fsevent.Event) {
	if p.flt.ignored(ev.Path) {
		return
	}
	if p.nfc {
		ev.Path = norm.NFC.String(ev.Path)
	}
	p.mut.Lock()
	defer p.mut.Unlock()
	fmt.Fprintln(p.w, ev)
	p.w.Flush()
}

func (p *printer) flush() {
	p.mut.Lock()
	defer p.mut.Unlock()
	p.w.Flush()
}
