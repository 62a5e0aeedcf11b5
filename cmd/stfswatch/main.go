// Copyright (C) 2026 The Syncthing Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command stfswatch prints the file system events reported for a set of
// paths, one per line, until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"

	_ "github.com/syncthing/fsevent/lib/automaxprocs"
	"github.com/syncthing/fsevent/lib/fsevent"
	"github.com/syncthing/fsevent/lib/logger"
	"github.com/syncthing/fsevent/lib/svcutil"
)

var l = logger.DefaultLogger.NewFacility("main", "Main package")

type CLI struct {
	Paths         []string      `arg:"" optional:"" help:"Paths to watch" default:"."`
	Latency       time.Duration `help:"How long events are coalesced before a batch is delivered" default:"0s" env:"STFSWATCH_LATENCY"`
	Since         uint64        `help:"Event ID to start from" default:"${since_now}" env:"STFSWATCH_SINCE"`
	Defer         bool          `help:"Hold back the first event after a quiet period until the latency has passed" env:"STFSWATCH_DEFER"`
	WatchRoot     bool          `help:"Report changes to the watched paths themselves" env:"STFSWATCH_WATCH_ROOT"`
	IgnoreSelf    bool          `help:"Do not report changes made by this process" env:"STFSWATCH_IGNORE_SELF"`
	Ignore        []string      `help:"Glob pattern of paths not to print (repeatable)" placeholder:"GLOB" env:"STFSWATCH_IGNORE"`
	NFC           bool          `name:"nfc" help:"Print paths in Unicode normalization form C" env:"STFSWATCH_NFC"`
	Duration      time.Duration `help:"Stop after this long; zero means until interrupted" default:"0s" env:"STFSWATCH_DURATION"`
	MetricsListen string        `help:"Address to serve Prometheus metrics on" placeholder:"ADDR" env:"STFSWATCH_METRICS_LISTEN"`
	Debug         bool          `help:"Enable debug output for the event stream" env:"STFSWATCH_DEBUG"`
}

func main() {
	var params CLI
	kong.Parse(&params,
		kong.Description("Print file system events for the given paths."),
		kong.Vars{"since_now": strconv.FormatUint(fsevent.SinceNow, 10)},
	)
	os.Exit(params.run().AsInt())
}

func (c *CLI) watchConfig() (*fsevent.WatchConfig, error) {
	cfg, err := fsevent.NewWatchConfig(c.Paths...)
	if err != nil {
		return nil, err
	}
	cfg.SetSinceWhen(c.Since)
	if err := cfg.SetLatency(c.Latency); err != nil {
		return nil, err
	}
	flags := fsevent.DefaultCreateFlags
	if c.Defer {
		flags &^= fsevent.CreateFlagNoDefer
	}
	if c.WatchRoot {
		flags |= fsevent.CreateFlagWatchRoot
	}
	if c.IgnoreSelf {
		flags |= fsevent.CreateFlagIgnoreSelf
	}
	cfg.SetFlags(flags)
	return cfg, nil
}

func (c *CLI) run() svcutil.ExitStatus {
	if c.Debug {
		l.SetDebug("fsevent", true)
	}

	native, err := fsevent.DefaultNative()
	if err != nil {
		l.Warnln("Event streams unavailable:", err)
		if errors.Is(err, fsevent.ErrUnsupported) {
			return svcutil.ExitUnsupported
		}
		return svcutil.ExitError
	}

	cfg, err := c.watchConfig()
	if err != nil {
		l.Warnln("Invalid watch configuration:", err)
		return svcutil.ExitError
	}
	flt, err := newFilter(c.Ignore)
	if err != nil {
		l.Warnln("Invalid ignore pattern:", err)
		return svcutil.ExitError
	}
	pr := newPrinter(os.Stdout, flt, c.NFC)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx := sigCtx
	if c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(sigCtx, c.Duration)
		defer cancel()
	}

	sup := suture.New("stfswatch", supervisorSpec(c.Debug))
	watch := fsevent.NewService(fsevent.NewObserver(native), cfg, pr.print)
	sup.Add(svcutil.AsService(func(ctx context.Context) error {
		err := watch.Serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		// Anything else ends the watch, there is nothing to restart into.
		if err == nil {
			err = errors.New("event stream ended")
		}
		return svcutil.AsFatalErr(err, svcutil.ExitError)
	}, "stfswatch"))
	if c.MetricsListen != "" {
		sup.Add(svcutil.AsService(serveMetrics(c.MetricsListen), "metrics"))
	}

	l.Verbosef("Watching %v (since %d, latency %v)", cfg.Paths(), cfg.SinceWhen(), cfg.Latency())
	err = sup.Serve(ctx)
	pr.flush()
	return exitStatus(err, sigCtx.Err() != nil)
}

// supervisorSpec logs supervisor events at debug level, or at info level
// when debugging the event stream so restarts show up next to it.
func supervisorSpec(debug bool) suture.Spec {
	if debug {
		return svcutil.SpecWithInfoLogger(l)
	}
	return svcutil.SpecWithDebugLogger(l)
}

// exitStatus maps the supervisor result to the process exit status.
func exitStatus(err error, interrupted bool) svcutil.ExitStatus {
	var ferr *svcutil.FatalErr
	switch {
	case errors.As(err, &ferr):
		l.Warnln("Watch failed:", ferr.Err)
		return ferr.Status
	case interrupted:
		return svcutil.ExitInterrupted
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return svcutil.ExitSuccess
	default:
		l.Warnln("Supervisor:", err)
		return svcutil.ExitError
	}
}

func serveMetrics(addr string) func(context.Context) error {
	return func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			srv.Close()
		}()
		l.Infoln("Serving metrics on", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return ctx.Err()
	}
}
