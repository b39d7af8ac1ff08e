// Package remap implements RemapCore: the per-FX bidirectional
// parameter-remapping state machine described in §4.4, serialized
// behind one merged inbound channel per §5.
package remap

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/mwicat/oscremap/config"
	"github.com/mwicat/oscremap/fxmap"
	"github.com/mwicat/oscremap/logging"
)

const eventQueueBound = 4096

// DawSender is the capability RemapCore needs to talk to the DAW:
// direct, unbundled OSC sends.
type DawSender interface {
	Send(address string, args ...any)
}

// CtlThrottler is the capability RemapCore needs to talk to the
// controller over OSC: enqueueing onto the outbound throttler rather
// than sending directly, per §4.4's "controller sends always go
// through the throttler queue."
type CtlThrottler interface {
	Enqueue(address string, args ...any)
}

// MidiSender is the capability RemapCore needs to drive the
// controller's LED rings / motor faders over MIDI.
type MidiSender interface {
	SendCC(channel, controller, value uint8)
}

// state is RemapState (§3): mutable, single-writer, touched only from
// within Core.Run's goroutine. learnSource and learnTarget use 0 as
// "unset" since every valid source/target is >= 1 per the bijection
// invariant.
type state struct {
	currentFx   string
	activeMap   *fxmap.Map
	learnActive bool
	learnSource int
	learnTarget int
	bypassFx    bool
	fxVisible   bool
	fxFollow    bool
}

// Core is RemapCore: it owns RemapState, the merged inbound event
// channel, and the single worker goroutine that drains it.
type Core struct {
	cfg   *config.Config
	store *fxmap.Store
	ccMap config.CCParamMap

	daw  DawSender
	ctl  CtlThrottler
	midi MidiSender

	events chan Event

	log *slog.Logger

	st state
}

// NewCore constructs a Core. The active map starts unbound (current_fx
// = "") until the DAW announces an FX name, matching §3's initial
// state.
func NewCore(cfg *config.Config, store *fxmap.Store, daw DawSender, ctl CtlThrottler, midi MidiSender) *Core {
	return &Core{
		cfg:    cfg,
		store:  store,
		ccMap:  cfg.Midi.CCParamMap(cfg.Params),
		daw:    daw,
		ctl:    ctl,
		midi:   midi,
		events: make(chan Event, eventQueueBound),
		log:    logging.Get(logging.Remap),
		st:     state{activeMap: fxmap.NewMap(), fxFollow: true},
	}
}

// Submit enqueues e onto the merged inbound channel. Non-blocking per
// §5; if the channel is saturated the event is dropped and logged,
// matching this system's "log and continue, no retries" error policy.
func (c *Core) Submit(e Event) {
	select {
	case c.events <- e:
	default:
		c.log.Error("inbound event queue full, dropping event")
	}
}

// Run is the RemapCore worker: it performs the startup sequence §4.5
// requires (init_osc_device, init_midi_device, refresh_fx) and then
// drains the merged channel until ctx is cancelled, processing one
// event at a time so all RemapState mutations are totally ordered.
// The in-flight event (if any) finishes before Run returns.
func (c *Core) Run(ctx context.Context) {
	c.initOscDevice()
	c.initMidiDeviceParams()
	c.refreshFx()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-c.events:
			c.Dispatch(e)
		}
	}
}

// Dispatch processes a single Event synchronously against RemapState.
// Run calls this for every event it drains from the merged channel;
// it is also the entry point tests use to drive RemapCore
// deterministically without the channel and worker goroutine in the
// way, per §5's note that the single-consumer design "gives
// deterministic ordering for tests."
func (c *Core) Dispatch(e Event) {
	switch e.source {
	case fromDawOsc:
		c.handleOscFromDaw(e.address, e.args)
	case fromCtlOsc:
		c.handleOscFromCtl(e.address, e.args)
	case fromCtlMidi:
		c.handleMidiFromCtl(e.channel, e.controller, e.value)
	}
}

// handleOscFromDaw implements §4.4.1.
func (c *Core) handleOscFromDaw(addr string, args []any) {
	switch addr {
	case "/fx/name":
		name, ok := argString(args, 0)
		if !ok {
			return
		}
		c.setFx(name)
	case "/fx/bypass":
		v, ok := argBool(args, 0)
		if !ok {
			return
		}
		c.st.bypassFx = v
	case "/fx/openui":
		v, ok := argBool(args, 0)
		if !ok {
			return
		}
		c.st.fxVisible = v
	default:
		if t, attr, ok := parseParamAddr(addr); ok {
			c.handleDawParam(t, attr, args)
		}
	}
}

func (c *Core) handleDawParam(t int, attr string, args []any) {
	switch attr {
	case "val":
		if c.st.learnActive {
			c.setLearnTarget(t)
		}
		s, ok := c.st.activeMap.Inverse(t)
		if !ok {
			return
		}
		v, ok := argFloat(args, 0)
		if !ok {
			return
		}
		c.ctl.Enqueue(fmt.Sprintf("/fx/param/%d/val", s), float32(v))
		if cc, ok := c.ccMap.CC(s); ok {
			c.midi.SendCC(c.cfg.Midi.ParamChannel, cc, scaleToCC(v))
		}
	case "name":
		s, ok := c.st.activeMap.Inverse(t)
		if !ok {
			return
		}
		str, ok := argString(args, 0)
		if !ok {
			return
		}
		c.ctl.Enqueue(fmt.Sprintf("/fx/param/%d/name", s), str)
	case "str":
		s, ok := c.st.activeMap.Inverse(t)
		if !ok {
			return
		}
		str, ok := argString(args, 0)
		if !ok {
			return
		}
		c.ctl.Enqueue(fmt.Sprintf("/fx/param/%d/str", s), str)
	}
}

// handleOscFromCtl implements §4.4.2.
func (c *Core) handleOscFromCtl(addr string, args []any) {
	switch addr {
	case "/fx/learn":
		c.toggleLearn()
	case "/fx/clear":
		c.clear()
	default:
		if s, attr, ok := parseParamAddr(addr); ok && attr == "val" {
			c.handleCtlParamVal(s, args)
		}
	}
}

func (c *Core) handleCtlParamVal(s int, args []any) {
	if c.st.learnActive {
		c.setLearnSource(s)
	}
	t, ok := c.st.activeMap.Get(s)
	if !ok {
		return
	}
	v, ok := argFloat(args, 0)
	if !ok {
		return
	}
	c.daw.Send(fmt.Sprintf("/fx/param/%d/val", t), float32(v))
}

// handleMidiFromCtl implements §4.4.3.
func (c *Core) handleMidiFromCtl(channel, cc, value uint8) {
	switch channel {
	case c.cfg.Midi.CmdChannel:
		if value != 127 {
			return
		}
		c.handleCmdCC(cc)
	case c.cfg.Midi.ParamChannel:
		c.handleParamCC(cc, value)
	}
}

func (c *Core) handleCmdCC(cc uint8) {
	m := c.cfg.Midi
	switch cc {
	case m.CCToggleUI:
		c.toggleFxUI()
	case m.CCBypassFx:
		c.toggleBypassFx()
	case m.CCPrevFx:
		c.daw.Send("/fx/select/prev", int32(1))
	case m.CCNextFx:
		c.daw.Send("/fx/select/next", int32(1))
	case m.CCFxFollow:
		c.toggleFxFollow()
	case m.CCLearn:
		c.toggleLearn()
	}
}

func (c *Core) handleParamCC(cc, value uint8) {
	if !c.cfg.Midi.InParamRange(cc, c.cfg.Params) {
		return
	}
	s, ok := c.ccMap.Source(cc)
	if !ok {
		return
	}
	if c.st.learnActive {
		c.setLearnSource(s)
		return
	}
	t, ok := c.st.activeMap.Get(s)
	if !ok {
		return
	}
	c.daw.Send(fmt.Sprintf("/fx/param/%d/val", t), float32(value)/127.0)
}

// setFx switches the active FX, per the "/fx/name" row of §4.4.1.
func (c *Core) setFx(name string) {
	c.st.currentFx = name
	c.st.activeMap = c.store.GetOrCreate(name)
	c.ctl.Enqueue("/fx/name", name)
	c.initOscDeviceParams()
	c.initMidiDeviceParams()
}

// toggleFxUI implements "cc_toggle_ui -> toggle_fx_ui()".
func (c *Core) toggleFxUI() {
	c.st.fxVisible = !c.st.fxVisible
	c.daw.Send("/fx/openui", boolToInt(c.st.fxVisible))
}

// toggleBypassFx implements "cc_bypass_fx -> toggle_bypass_fx()".
func (c *Core) toggleBypassFx() {
	c.st.bypassFx = !c.st.bypassFx
	v := boolToInt(c.st.bypassFx)
	c.daw.Send("/fx/bypass", v)
	c.ctl.Enqueue("/fx/bypass", v)
}

// toggleFxFollow implements "cc_fx_follow -> toggle_fx_follow()",
// supplementing spec.md from original_source/oscproxy.py per
// SPEC_FULL.md's RemapCore section.
func (c *Core) toggleFxFollow() {
	c.st.fxFollow = !c.st.fxFollow
	if c.st.fxFollow {
		c.daw.Send("/device/fx/follows/focused", int32(1))
	} else {
		c.daw.Send("/device/fx/follows/device", int32(1))
	}
}

// toggleLearn implements the learn protocol's Idle<->Armed transition
// (§4.4.5), calling refreshFx on both directions per the REDESIGN
// FLAG resolution recorded in SPEC_FULL.md.
func (c *Core) toggleLearn() {
	c.st.learnActive = !c.st.learnActive
	if c.st.learnActive {
		c.st.learnSource = 0
		c.st.learnTarget = 0
		c.ctl.Enqueue("/fx/learn", int32(1))
	} else {
		c.persist()
		c.ctl.Enqueue("/fx/learn", int32(0))
	}
	c.refreshFx()
}

func (c *Core) setLearnSource(s int) {
	c.st.learnSource = s
	c.learnCheck()
}

// setLearnTarget only takes effect once learnSource is already set,
// enforcing controller-first ordering. This also immunizes learn mode
// against the DAW re-announcement storm toggleLearn's own refreshFx
// triggers: without this guard, every re-announced /fx/param/<T>/val
// would pin learnTarget before the controller ever moves.
func (c *Core) setLearnTarget(t int) {
	if c.st.learnSource == 0 {
		return
	}
	c.st.learnTarget = t
	c.learnCheck()
}

// learnCheck commits a capture once both learnSource and learnTarget
// are filled. Learn stays Armed afterward — further pairs can be
// captured until toggleLearn flips it off.
func (c *Core) learnCheck() {
	if !c.st.learnActive || c.st.learnSource == 0 || c.st.learnTarget == 0 {
		return
	}
	c.st.activeMap.ForcePut(c.st.learnSource, c.st.learnTarget)
	c.st.learnSource = 0
	c.st.learnTarget = 0
	c.persist()
	c.initOscDeviceParams()
	c.initMidiDeviceParams()
	c.refreshFx()
}

// clear implements "/fx/clear -> clear()".
func (c *Core) clear() {
	c.st.activeMap.Clear()
	c.persist()
	c.initOscDeviceParams()
	c.initMidiDeviceParams()
	c.refreshFx()
}

// initOscDeviceParams implements §4.4.4's param-reinit sweep.
func (c *Core) initOscDeviceParams() {
	for p := 1; p <= c.cfg.Params; p++ {
		c.ctl.Enqueue(fmt.Sprintf("/fx/param/%d/str", p), "")
		c.ctl.Enqueue(fmt.Sprintf("/fx/param/%d/name", p), "")
		c.ctl.Enqueue(fmt.Sprintf("/fx/param/%d/val", p), float32(0))
	}
}

// initOscDevice additionally resets /fx/learn and /fx/name, per
// §4.4.4; used only at ProxySupervisor startup.
func (c *Core) initOscDevice() {
	c.initOscDeviceParams()
	c.ctl.Enqueue("/fx/learn", int32(0))
	c.ctl.Enqueue("/fx/name", "")
}

// initMidiDeviceParams sends CC=0 for every mapped CC, resetting LED
// rings / motor faders.
func (c *Core) initMidiDeviceParams() {
	for _, cc := range c.ccMap.CCs() {
		c.midi.SendCC(c.cfg.Midi.ParamChannel, cc, 0)
	}
}

// refreshFx bounces FX selection to induce the DAW to re-announce
// current FX state.
func (c *Core) refreshFx() {
	c.daw.Send("/fx/select/prev", int32(1))
	c.daw.Send("/fx/select/next", int32(1))
}

func (c *Core) persist() {
	if err := c.store.Save(); err != nil {
		c.log.Error("failed to persist fx map store", slog.Any("err", err))
	}
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// scaleToCC converts a [0.0, 1.0] OSC float to a clamped [0, 127] CC
// value, per §9's "round(v·127) clamped to [0,127]".
func scaleToCC(v float64) uint8 {
	r := math.Round(v * 127)
	if r < 0 {
		r = 0
	}
	if r > 127 {
		r = 127
	}
	return uint8(r)
}
