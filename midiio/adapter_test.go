package midiio_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwicat/oscremap/midiio"
	"github.com/mwicat/oscremap/midiio/midiiotesting"
)

func TestAdapterListenDeliversControlChange(t *testing.T) {
	in := midiiotesting.NewMockPort("ctl-in")
	out := midiiotesting.NewMockPort("ctl-out")
	a := midiio.NewAdapter(in, out)

	var mu sync.Mutex
	var got []struct{ channel, controller, value uint8 }
	require.NoError(t, a.Listen(func(channel, controller, value uint8) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, struct{ channel, controller, value uint8 }{channel, controller, value})
	}))

	in.SimulateCC(0, 1, 64)
	in.SimulateCC(2, 5, 127)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, uint8(1), got[0].controller)
	assert.Equal(t, uint8(64), got[0].value)
	assert.Equal(t, uint8(5), got[1].controller)
	assert.Equal(t, uint8(127), got[1].value)
}

func TestAdapterSendCCWritesToOutputPort(t *testing.T) {
	in := midiiotesting.NewMockPort("ctl-in")
	out := midiiotesting.NewMockPort("ctl-out")
	a := midiio.NewAdapter(in, out)

	done := make(chan struct{})
	go func() {
		a.RunOutbound()
		close(done)
	}()

	a.SendCC(0, 10, 100)

	require.Eventually(t, func() bool {
		return len(out.SentMessages()) == 1
	}, time.Second, time.Millisecond)

	a.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunOutbound did not return after Close")
	}
}

func TestAdapterCloseStopsListeningAndClosesPorts(t *testing.T) {
	in := midiiotesting.NewMockPort("ctl-in")
	out := midiiotesting.NewMockPort("ctl-out")
	a := midiio.NewAdapter(in, out)

	require.NoError(t, a.Listen(func(channel, controller, value uint8) {}))
	go a.RunOutbound()

	require.NoError(t, a.Close())
	assert.False(t, in.IsOpen())
	assert.False(t, out.IsOpen())
}
