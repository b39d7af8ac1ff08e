package remap

// eventSource identifies which listener produced an Event, so the
// RemapCore worker can route it to the right handler without needing
// three separate channels (and therefore without needing to select
// over three channels fairly).
type eventSource int

const (
	fromDawOsc eventSource = iota
	fromCtlOsc
	fromCtlMidi
)

// Event is the merged inbound unit: every DAW-OSC message,
// controller-OSC message, and controller-MIDI CC funnels through one
// of these onto the central channel described in §5, giving a total
// order over RemapState mutations.
type Event struct {
	source eventSource

	address string
	args    []any

	channel, controller, value uint8
}

// DawOscEvent constructs an Event carrying an inbound DAW OSC message.
func DawOscEvent(address string, args []any) Event {
	return Event{source: fromDawOsc, address: address, args: args}
}

// CtlOscEvent constructs an Event carrying an inbound controller OSC
// message.
func CtlOscEvent(address string, args []any) Event {
	return Event{source: fromCtlOsc, address: address, args: args}
}

// CtlMidiEvent constructs an Event carrying an inbound controller MIDI
// Control Change message.
func CtlMidiEvent(channel, controller, value uint8) Event {
	return Event{source: fromCtlMidi, channel: channel, controller: controller, value: value}
}
