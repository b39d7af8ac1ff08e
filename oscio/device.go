// Package oscio implements the OSC transport used on both sides of
// the proxy: a UDP client for outbound sends, a UDP server paired
// with a prefix-matching Dispatcher for inbound routing, and bundle
// construction for the throttled controller-bound path.
package oscio

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/mwicat/oscremap/logging"
)

// Device is one side of an OSC link: a client bound to one remote
// endpoint and a server bound to one local endpoint, sharing a single
// Dispatcher for inbound routing.
type Device struct {
	Client     *osc.Client
	Dispatcher *Dispatcher

	listenAddr string
	server     *osc.Server
	conn       net.PacketConn

	inLog  *slog.Logger
	outLog *slog.Logger
}

// NewDevice constructs a Device. inCategory/outCategory select which
// logging categories this device's traffic is logged under, since the
// DAW-facing and controller-facing devices log to distinct categories.
func NewDevice(listenIP string, listenPort int, remoteIP string, remotePort int, inCategory, outCategory logging.Category) *Device {
	return &Device{
		Client:     osc.NewClient(remoteIP, remotePort),
		Dispatcher: NewDispatcher(),
		listenAddr: fmt.Sprintf("%s:%d", listenIP, listenPort),
		inLog:      logging.Get(inCategory),
		outLog:     logging.Get(outCategory),
	}
}

// Bind registers a raw handler for an address pattern. Unlike the
// typed per-address binders of a fixed-layout control surface,
// RemapCore needs the full address string (to parse an embedded
// parameter index) and the raw argument slice, so this is the only
// binding primitive oscio exposes.
func (d *Device) Bind(pattern string, handler func(addr string, args []any)) func() {
	return d.Dispatcher.AddMsgHandler(pattern, func(msg *osc.Message) {
		d.inLog.Debug("received OSC message", slog.String("address", msg.Address), slog.Any("arguments", msg.Arguments))
		handler(msg.Address, msg.Arguments)
	})
}

// Run starts the blocking UDP receive loop. It returns when the
// listener is closed (via Close) or encounters a fatal error. The
// listener socket is opened here, rather than left to
// osc.Server.ListenAndServe, so Close has a conn to shut down and
// Run's blocking recv loop can be unblocked on shutdown.
func (d *Device) Run() error {
	conn, err := net.ListenPacket("udp", d.listenAddr)
	if err != nil {
		return fmt.Errorf("oscio: listening on %s: %w", d.listenAddr, err)
	}
	d.conn = conn
	d.server = &osc.Server{Dispatcher: d.Dispatcher}
	return d.server.Serve(conn)
}

// Close releases the server's listening socket, unblocking Run.
func (d *Device) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Send transmits a single message immediately (unbundled), used for
// direct DAW-bound sends per §4.4 ("DAW sends are direct, unbundled").
func (d *Device) Send(address string, args ...any) {
	d.outLog.Debug("sending OSC message", slog.String("address", address), slog.Any("arguments", args))
	if err := d.Client.Send(osc.NewMessage(address, args...)); err != nil {
		d.outLog.Error("failed to send OSC message", slog.String("address", address), slog.Any("err", err))
	}
}

// SendBundle transmits msgs as a single OSC bundle with an immediate
// timetag, used by the outbound throttler to coalesce controller-bound
// traffic into one datagram.
func (d *Device) SendBundle(msgs []*osc.Message) {
	if len(msgs) == 0 {
		return
	}
	bundle := osc.NewBundle(time.Now())
	for _, m := range msgs {
		bundle.Append(m)
	}
	d.outLog.Debug("sending OSC bundle", slog.Int("count", len(msgs)))
	if err := d.Client.Send(bundle); err != nil {
		d.outLog.Error("failed to send OSC bundle", slog.Any("err", err))
	}
}
