// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package automaxprocs sets GOMAXPROCS to the container CPU quota when
// imported. Threads locked by running observations do not count against
// it.
package automaxprocs

import (
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/syncthing/fsevent/lib/logger"
)

var l = logger.DefaultLogger.NewFacility("automaxprocs", "GOMAXPROCS from the CPU quota")

func init() {
	if _, err := maxprocs.Set(maxprocs.Logger(l.Debugf)); err != nil {
		l.Debugln("Setting GOMAXPROCS:", err)
	}
}
