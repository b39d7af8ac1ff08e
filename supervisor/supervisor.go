// Package supervisor implements ProxySupervisor: it wires the OSC and
// MIDI transports and RemapCore together, starts every required
// worker (§5), and tears them down on shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/mwicat/oscremap/config"
	"github.com/mwicat/oscremap/fxmap"
	"github.com/mwicat/oscremap/logging"
	"github.com/mwicat/oscremap/midiio"
	"github.com/mwicat/oscremap/oscio"
	"github.com/mwicat/oscremap/remap"
	"github.com/mwicat/oscremap/throttle"
)

// Supervisor is ProxySupervisor (§4.5): it owns every worker and the
// transports they drive.
type Supervisor struct {
	cfg   *config.Config
	store *fxmap.Store

	dawDevice *oscio.Device
	ctlDevice *oscio.Device
	midi      *midiio.Adapter
	throttler *throttle.Throttler
	core      *remap.Core

	wg     sync.WaitGroup
	cancel context.CancelFunc

	log *slog.Logger
}

// New resolves the MIDI ports and wires the transports and RemapCore,
// but does not yet start any worker — that happens in Start. A
// missing MIDI port is a fatal configuration error per §7, reported
// here as a plain error so cmd/oscremapd can pass it to logging.Fatal.
func New(cfg *config.Config, store *fxmap.Store) (*Supervisor, error) {
	inPort, err := midiio.FindInPort(cfg.Midi.InputPortName)
	if err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	outPort, err := midiio.FindOutPort(cfg.Midi.OutputPortName)
	if err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}

	dawDevice := oscio.NewDevice(cfg.DawOSC.ListenIP, cfg.DawOSC.ListenPort, cfg.DawOSC.RemoteIP, cfg.DawOSC.RemotePort, logging.DawOscIn, logging.DawOscOut)
	ctlDevice := oscio.NewDevice(cfg.ControllerOSC.ListenIP, cfg.ControllerOSC.ListenPort, cfg.ControllerOSC.RemoteIP, cfg.ControllerOSC.RemotePort, logging.CtlOscIn, logging.CtlOscOut)
	midiAdapter := midiio.NewAdapter(inPort, outPort)
	throttler := throttle.NewThrottler(ctlDevice)
	core := remap.NewCore(cfg, store, dawDevice, throttler, midiAdapter)

	return &Supervisor{
		cfg:       cfg,
		store:     store,
		dawDevice: dawDevice,
		ctlDevice: ctlDevice,
		midi:      midiAdapter,
		throttler: throttler,
		core:      core,
		log:       logging.Get(logging.App),
	}, nil
}

// Start wires every inbound listener to submit events onto RemapCore
// and starts the five required workers (§5) plus the RemapCore
// worker itself. It returns once every worker has been launched;
// RemapCore's startup sequence (init_osc_device, init_midi_device,
// refresh_fx) happens inside its own goroutine, not before Start
// returns.
func (s *Supervisor) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.dawDevice.Bind("*", func(addr string, args []any) {
		s.core.Submit(remap.DawOscEvent(addr, args))
	})
	s.ctlDevice.Bind("*", func(addr string, args []any) {
		if handleMetaLogging(addr, args) {
			return
		}
		s.core.Submit(remap.CtlOscEvent(addr, args))
	})
	if err := s.midi.Listen(func(channel, controller, value uint8) {
		s.core.Submit(remap.CtlMidiEvent(channel, controller, value))
	}); err != nil {
		cancel()
		return fmt.Errorf("supervisor: %w", err)
	}

	s.wg.Add(5)
	go func() {
		defer s.wg.Done()
		if err := s.dawDevice.Run(); err != nil {
			s.log.Error("DAW OSC listener stopped", slog.Any("err", err))
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.ctlDevice.Run(); err != nil {
			s.log.Error("controller OSC listener stopped", slog.Any("err", err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.throttler.Run()
	}()
	go func() {
		defer s.wg.Done()
		if err := s.midi.RunOutbound(); err != nil {
			s.log.Error("MIDI outbound worker stopped", slog.Any("err", err))
		}
	}()
	go func() {
		defer s.wg.Done()
		s.core.Run(runCtx)
	}()

	s.log.Info("proxy started",
		slog.String("daw_osc", fmt.Sprintf("%s:%d", s.cfg.DawOSC.ListenIP, s.cfg.DawOSC.ListenPort)),
		slog.String("controller_osc", fmt.Sprintf("%s:%d", s.cfg.ControllerOSC.ListenIP, s.cfg.ControllerOSC.ListenPort)),
	)
	return nil
}

// Shutdown cancels the context RemapCore observes, flushes the
// throttler's pending bundle, closes both OSC listeners and both MIDI
// ports, and waits (bounded by ctx) for every worker to finish its
// in-flight message, per §5's cancellation contract.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.throttler.Close()

	var errs []error
	if err := s.dawDevice.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.ctlDevice.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.midi.Close(); err != nil {
		errs = append(errs, err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	s.log.Info("proxy stopped")
	return errors.Join(errs...)
}

// handleMetaLogging folds the runtime log-level control facility into
// the controller-OSC catch-all dispatcher (SPEC_FULL.md's Logging
// section) instead of a second dedicated OSC listener.
func handleMetaLogging(addr string, args []any) bool {
	segments := strings.Split(strings.TrimPrefix(addr, "/"), "/")
	level, ok := argInt(args, 0)
	if !ok {
		level = int(slog.LevelInfo)
	}
	return logging.HandleLevelAddress(segments, level)
}

func argInt(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	switch v := args[i].(type) {
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case int:
		return v, true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
