// Package midiiotesting provides an in-memory MIDI port implementing
// drivers.In and drivers.Out so midiio.Adapter can be exercised
// without a real MIDI backend.
package midiiotesting

import (
	"errors"
	"sync"

	midi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// MockPort implements both drivers.In and drivers.Out.
type MockPort struct {
	name string

	mu        sync.Mutex
	isOpen    bool
	sent      []midi.Message
	listeners []func(msg []byte, timestampms int32)
}

// NewMockPort returns a closed, unopened mock port with the given
// display name.
func NewMockPort(name string) *MockPort {
	return &MockPort{name: name}
}

// Open implements drivers.In and drivers.Out.
func (p *MockPort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = true
	return nil
}

// Close implements drivers.In and drivers.Out.
func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isOpen = false
	return nil
}

// IsOpen implements drivers.In and drivers.Out.
func (p *MockPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isOpen
}

// Number implements drivers.In and drivers.Out.
func (p *MockPort) Number() int { return 0 }

// String implements drivers.In and drivers.Out.
func (p *MockPort) String() string { return p.name }

// Underlying implements drivers.In and drivers.Out.
func (p *MockPort) Underlying() any { return p }

// Send implements drivers.Out.
func (p *MockPort) Send(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isOpen {
		return errors.New("midiiotesting: port not open")
	}
	p.sent = append(p.sent, midi.Message(data))
	return nil
}

// Listen implements drivers.In.
func (p *MockPort) Listen(onMsg func(msg []byte, timestampms int32), _ drivers.ListenConfig) (func(), error) {
	if !p.IsOpen() {
		return nil, errors.New("midiiotesting: port not open")
	}
	p.mu.Lock()
	p.listeners = append(p.listeners, onMsg)
	idx := len(p.listeners) - 1
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.listeners[idx] = nil
	}, nil
}

// SimulateCC delivers an inbound Control Change message to every
// registered listener, as if it had arrived on the wire.
func (p *MockPort) SimulateCC(channel, controller, value uint8) {
	msg := midi.ControlChange(channel, controller, value)
	p.mu.Lock()
	listeners := make([]func(msg []byte, timestampms int32), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(msg, 0)
		}
	}
}

// SentMessages returns every message written via Send.
func (p *MockPort) SentMessages() []midi.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]midi.Message, len(p.sent))
	copy(out, p.sent)
	return out
}
