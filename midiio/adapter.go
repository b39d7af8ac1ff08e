// Package midiio implements the MIDI transport: exact-name port
// lookup, a non-blocking inbound CC callback, and a single-consumer
// outbound CC queue. Narrowed from a general MIDI device abstraction
// to CC-only, since this proxy's Non-goals exclude note, pitch-bend,
// sysex, and aftertouch handling.
package midiio

import (
	"errors"
	"fmt"
	"log/slog"

	midi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	// Registers the system's native MIDI driver so FindInPort/FindOutPort
	// below have ports to enumerate.
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/mwicat/oscremap/logging"
)

// CCHandler is invoked for every inbound Control Change message. It
// is called on the MIDI library's own goroutine and must not block.
type CCHandler func(channel, controller, value uint8)

// Adapter opens one named MIDI input and one named MIDI output and
// exposes a CC-only send/receive surface.
type Adapter struct {
	inPort  drivers.In
	outPort drivers.Out

	outQueue chan ccMessage
	stopIn   func()
	done     chan struct{}

	inLog  *slog.Logger
	outLog *slog.Logger
}

type ccMessage struct {
	channel, controller, value uint8
}

// FindInPort returns the input port whose name exactly matches name,
// as reported by the enumerated port list.
func FindInPort(name string) (drivers.In, error) {
	p, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("midiio: no input port named %q: %w", name, err)
	}
	return p, nil
}

// FindOutPort returns the output port whose name exactly matches
// name, as reported by the enumerated port list.
func FindOutPort(name string) (drivers.Out, error) {
	p, err := midi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("midiio: no output port named %q: %w", name, err)
	}
	return p, nil
}

// NewAdapter constructs an Adapter over already-resolved ports. Port
// resolution is left to FindInPort/FindOutPort so a missing port can
// be treated as the fatal startup error §7 requires, before any
// Adapter exists.
func NewAdapter(inPort drivers.In, outPort drivers.Out) *Adapter {
	return &Adapter{
		inPort:   inPort,
		outPort:  outPort,
		outQueue: make(chan ccMessage, 4096),
		done:     make(chan struct{}),
		inLog:    logging.Get(logging.MidiIn),
		outLog:   logging.Get(logging.MidiOut),
	}
}

// Listen opens the input port and starts delivering inbound CC
// messages to handler. It returns once listening has started;
// delivery continues on the MIDI library's own goroutine until Close.
func (a *Adapter) Listen(handler CCHandler) error {
	if err := a.inPort.Open(); err != nil {
		return fmt.Errorf("midiio: opening input port %s: %w", a.inPort.String(), err)
	}
	stop, err := midi.ListenTo(a.inPort, func(msg midi.Message, _ int32) {
		if msg.Type() != midi.ControlChangeMsg {
			return
		}
		var channel, controller, value uint8
		if !msg.GetControlChange(&channel, &controller, &value) {
			a.inLog.Warn("failed to parse Control Change message", logging.AsAttr("raw", []byte(msg)))
			return
		}
		a.inLog.Debug("received Control Change", slog.Int("channel", int(channel)), slog.Int("controller", int(controller)), slog.Int("value", int(value)))
		handler(channel, controller, value)
	})
	if err != nil {
		return fmt.Errorf("midiio: listening on %s: %w", a.inPort.String(), err)
	}
	a.stopIn = stop
	return nil
}

// RunOutbound drains the outbound CC queue on the calling goroutine,
// writing each message to the output port, until Close is called.
// This is the "single-consumer queue drained by a dedicated thread"
// required by §4.3.
func (a *Adapter) RunOutbound() error {
	select {
	case <-a.done:
		return nil
	default:
	}
	if err := a.outPort.Open(); err != nil {
		return fmt.Errorf("midiio: opening output port %s: %w", a.outPort.String(), err)
	}
	for {
		select {
		case m, ok := <-a.outQueue:
			if !ok {
				return nil
			}
			if err := a.outPort.Send(midi.ControlChange(m.channel, m.controller, m.value)); err != nil {
				a.outLog.Error("failed to send Control Change", slog.Any("err", err))
			}
		case <-a.done:
			return nil
		}
	}
}

// SendCC enqueues an outbound Control Change message. Enqueue is
// non-blocking; if the queue is saturated the message is dropped and
// logged, matching the transport-error handling of §7.
func (a *Adapter) SendCC(channel, controller, value uint8) {
	select {
	case a.outQueue <- ccMessage{channel, controller, value}:
	default:
		a.outLog.Error("outbound MIDI queue full, dropping Control Change", slog.Int("channel", int(channel)), slog.Int("controller", int(controller)))
	}
}

// Close stops inbound listening and the outbound drain loop, and
// closes both ports.
func (a *Adapter) Close() error {
	if a.stopIn != nil {
		a.stopIn()
	}
	close(a.done)
	var errs []error
	if err := a.inPort.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.outPort.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
