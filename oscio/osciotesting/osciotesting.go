// Package osciotesting provides in-memory OSC test doubles so
// RemapCore and throttle tests can run without a UDP socket.
package osciotesting

import (
	"sync"

	"github.com/hypebeast/go-osc/osc"
)

// SentMessage records one outbound send, bundled or not.
type SentMessage struct {
	Address string
	Args    []any
}

// MockClient records every message a component sends instead of
// putting it on the wire, matching oscio.Device's Send/SendBundle
// signatures (errors are logged and swallowed at that boundary, not
// surfaced to callers, so the mock mirrors that by not returning one
// either).
type MockClient struct {
	mu      sync.Mutex
	sent    []SentMessage
	bundles [][]SentMessage
}

// Send implements the single-message send path.
func (c *MockClient) Send(address string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, SentMessage{Address: address, Args: args})
}

// SendBundle implements the bundle send path used by the throttler.
func (c *MockClient) SendBundle(msgs []*osc.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := make([]SentMessage, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, SentMessage{Address: m.Address, Args: m.Arguments})
	}
	c.bundles = append(c.bundles, batch)
	c.sent = append(c.sent, batch...)
}

// Sent returns every message sent so far, flattening bundles in send
// order.
func (c *MockClient) Sent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

// Bundles returns every bundle sent so far, each as its own slice of
// messages in the order they were appended to the bundle.
func (c *MockClient) Bundles() [][]SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]SentMessage, len(c.bundles))
	copy(out, c.bundles)
	return out
}

// Dispatcher is an in-memory stand-in for oscio.Dispatcher: tests
// call SimulateMessage to inject an inbound OSC message without a
// socket. A pattern matches either as the catch-all "*" or as an
// exact address; the trailing "/*" suffix form that oscio.Dispatcher
// accepts is not supported.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[string]func(addr string, args []any)
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]func(addr string, args []any))}
}

// Bind registers handler under pattern, mirroring oscio.Device.Bind's
// signature so RemapCore code under test is unaware it's talking to a
// mock.
func (d *Dispatcher) Bind(pattern string, handler func(addr string, args []any)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[pattern] = handler
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers, pattern)
	}
}

// SimulateMessage invokes every handler whose pattern matches addr
// (see Dispatcher for the supported pattern forms).
func (d *Dispatcher) SimulateMessage(addr string, args ...any) {
	d.mu.Lock()
	handlers := make([]func(addr string, args []any), 0, len(d.handlers))
	for pattern, h := range d.handlers {
		if patternMatches(pattern, addr) {
			handlers = append(handlers, h)
		}
	}
	d.mu.Unlock()
	for _, h := range handlers {
		h(addr, args)
	}
}

func patternMatches(pattern, addr string) bool {
	if pattern == "*" {
		return true
	}
	return pattern == addr
}
