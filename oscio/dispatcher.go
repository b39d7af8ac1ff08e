package oscio

import (
	"strings"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

type namedHandler struct {
	pattern string
	handler func(*osc.Message)
}

// Dispatcher routes inbound OSC packets to handlers registered by
// address pattern. A single trailing "*" segment matches any suffix;
// there is no other wildcard form, per the spec's explicit design
// choice to match fixed address prefixes inside handlers rather than
// register one route per address.
type Dispatcher struct {
	handlers []namedHandler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// AddMsgHandler registers handler for pattern and returns a function
// that unregisters it.
func (d *Dispatcher) AddMsgHandler(pattern string, handler func(*osc.Message)) func() {
	d.handlers = append(d.handlers, namedHandler{pattern, handler})
	idx := len(d.handlers) - 1
	return func() {
		d.handlers[idx].handler = nil
	}
}

func matchAddr(pattern, addr string) bool {
	if pattern == "*" {
		return true
	}
	patSegs := strings.Split(pattern, "/")
	addrSegs := strings.Split(addr, "/")

	endsWithStar := len(patSegs) > 0 && patSegs[len(patSegs)-1] == "*"
	matchLen := len(patSegs)
	if endsWithStar {
		matchLen--
		if len(addrSegs) < matchLen {
			return false
		}
	} else if len(patSegs) != len(addrSegs) {
		return false
	}

	for i := 0; i < matchLen; i++ {
		if patSegs[i] != addrSegs[i] {
			return false
		}
	}
	return true
}

func (d *Dispatcher) dispatchMessage(msg *osc.Message) {
	for _, h := range d.handlers {
		if h.handler == nil {
			continue
		}
		if matchAddr(h.pattern, msg.Address) {
			h.handler(msg)
		}
	}
}

// Dispatch implements osc.Dispatcher. Bundles are delayed until their
// timetag expires before their contained messages (and nested
// bundles) are dispatched, matching OSC 1.0 bundle timetag semantics.
func (d *Dispatcher) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		d.dispatchMessage(p)
	case *osc.Bundle:
		wait := p.Timetag.ExpiresIn()
		if wait <= 0 {
			d.dispatchBundle(p)
			return
		}
		timer := time.NewTimer(wait)
		go func() {
			<-timer.C
			d.dispatchBundle(p)
		}()
	}
}

func (d *Dispatcher) dispatchBundle(b *osc.Bundle) {
	for _, m := range b.Messages {
		d.dispatchMessage(m)
	}
	for _, nested := range b.Bundles {
		d.Dispatch(nested)
	}
}
