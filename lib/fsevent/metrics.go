// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package fsevent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	modeBlocking = "blocking"
	modeAsync    = "async"
)

var (
	metricBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncthing",
		Subsystem: "fsevent",
		Name:      "batches_total",
		Help:      "Total number of callback batches delivered by the facility",
	})
	metricEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncthing",
		Subsystem: "fsevent",
		Name:      "events_total",
		Help:      "Total number of events decoded from callback batches",
	})
	metricSendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncthing",
		Subsystem: "fsevent",
		Name:      "send_failures_total",
		Help:      "Total number of events dropped because the receiver was closed",
	})
	metricObservations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "syncthing",
		Subsystem: "fsevent",
		Name:      "observations",
		Help:      "Number of running observations",
	}, []string{"mode"})
	metricHandoffTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "syncthing",
		Subsystem: "fsevent",
		Name:      "handoff_timeouts_total",
		Help:      "Total number of asynchronous observations that failed to start in time",
	})
)
