// Package throttle implements OutboundThrottler: coalescing of
// controller-bound OSC messages into bundles flushed at a fixed
// interval, per §4.2.
package throttle

import (
	"log/slog"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/mwicat/oscremap/logging"
)

const (
	sendInterval = 10 * time.Millisecond
	idleSleep    = 5 * time.Millisecond
	queueBound   = 4096
)

// BundleSender is the minimal capability the throttler needs from an
// OSC device: transmitting a batch of messages as one bundle.
type BundleSender interface {
	SendBundle(msgs []*osc.Message)
}

// Throttler coalesces bursts of outbound messages into bundles, one
// flush every sendInterval at most. Enqueue is non-blocking; the
// queue is a large but finite buffered channel rather than a truly
// unbounded structure (§9 Open Question resolution).
type Throttler struct {
	sender BundleSender
	queue  chan *osc.Message
	done   chan struct{}

	log *slog.Logger
}

// NewThrottler returns a Throttler that flushes to sender.
func NewThrottler(sender BundleSender) *Throttler {
	return &Throttler{
		sender: sender,
		queue:  make(chan *osc.Message, queueBound),
		done:   make(chan struct{}),
		log:    logging.Get(logging.CtlOscOut),
	}
}

// Enqueue appends a message to the outbound queue. Non-blocking: if
// the queue is saturated the message is dropped and logged rather
// than blocking the caller (a RemapCore handler).
func (t *Throttler) Enqueue(address string, args ...any) {
	t.EnqueueMessage(osc.NewMessage(address, args...))
}

// EnqueueMessage is the same as Enqueue but takes a pre-built message,
// used when a caller already constructed one (e.g. forwarding).
func (t *Throttler) EnqueueMessage(msg *osc.Message) {
	select {
	case t.queue <- msg:
	default:
		t.log.Error("outbound OSC queue full, dropping message", slog.String("address", msg.Address))
	}
}

// Run drains the queue, accumulating messages into a pending bundle
// and flushing it once at least one message is buffered and
// sendInterval has elapsed since the previous flush. It sleeps
// idleSleep only when the queue was empty on that iteration, so an
// idle throttler does not spin. Run returns once Close is called and
// the pending bundle (if any), together with any messages still
// queued, has been flushed.
func (t *Throttler) Run() {
	var pending []*osc.Message
	lastFlush := time.Now()

	for {
		select {
		case <-t.done:
			for drained := false; !drained; {
				select {
				case msg := <-t.queue:
					pending = append(pending, msg)
				default:
					drained = true
				}
			}
			t.flush(&pending)
			return
		case msg := <-t.queue:
			pending = append(pending, msg)
		default:
			time.Sleep(idleSleep)
		}

		if len(pending) > 0 && time.Since(lastFlush) >= sendInterval {
			t.flush(&pending)
			lastFlush = time.Now()
		}
	}
}

func (t *Throttler) flush(pending *[]*osc.Message) {
	if len(*pending) == 0 {
		return
	}
	t.sender.SendBundle(*pending)
	*pending = nil
}

// Close signals Run to flush its pending bundle and return.
func (t *Throttler) Close() {
	close(t.done)
}
