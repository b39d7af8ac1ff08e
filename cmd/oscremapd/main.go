// Command oscremapd runs the OSC<->MIDI remapping proxy described in
// SPEC_FULL.md: it loads a configuration file and a persisted FX
// parameter map, then relays translated traffic between a DAW and a
// hardware controller until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mwicat/oscremap/config"
	"github.com/mwicat/oscremap/fxmap"
	"github.com/mwicat/oscremap/logging"
	"github.com/mwicat/oscremap/supervisor"
)

func main() {
	configPath := flag.String("config", "", "path to the proxy configuration YAML file")
	fxmapPath := flag.String("fxmap", "", "path to the persisted FX parameter map (default: ~/.oscremap_fxmaps.yaml)")
	logLevel := flag.String("log-level", "info", "default log level for all categories (debug, info, warn, error)")
	flag.Parse()

	appLog := logging.Get(logging.App)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: oscremapd -config <path> [-fxmap <path>] [-log-level <level>]")
		os.Exit(2)
	}

	if level, ok := parseLevel(*logLevel); ok {
		for _, cat := range logCategories {
			logging.SetLevel(cat, level)
		}
	} else {
		appLog.Warn("unrecognized -log-level, keeping defaults", slog.String("value", *logLevel))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal("loading configuration", slog.Any("err", err))
	}

	path := *fxmapPath
	if path == "" {
		p, err := fxmap.DefaultPath()
		if err != nil {
			logging.Fatal("resolving default fxmap path", slog.Any("err", err))
		}
		path = p
	}
	store, err := fxmap.Load(path, logging.Get(logging.Store))
	if err != nil {
		logging.Fatal("loading fx map", slog.String("path", path), slog.Any("err", err))
	}

	sup, err := supervisor.New(cfg, store)
	if err != nil {
		// Fatal per §7: a missing MIDI port is a startup configuration
		// error, not a runtime condition to recover from.
		logging.Fatal("starting proxy", slog.Any("err", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Start(ctx); err != nil {
		logging.Fatal("starting proxy", slog.Any("err", err))
	}

	<-ctx.Done()
	appLog.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sup.Shutdown(shutdownCtx); err != nil {
		appLog.Error("shutdown did not complete cleanly", slog.Any("err", err))
		os.Exit(1)
	}
}

var logCategories = []logging.Category{
	logging.DawOscIn, logging.DawOscOut,
	logging.CtlOscIn, logging.CtlOscOut,
	logging.MidiIn, logging.MidiOut,
	logging.Remap, logging.Store, logging.App,
}

func parseLevel(s string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, false
	}
	return level, true
}
