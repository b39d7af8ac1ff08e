package throttle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwicat/oscremap/oscio/osciotesting"
	"github.com/mwicat/oscremap/throttle"
)

func TestThrottlerCoalescesBurstIntoOneBundle(t *testing.T) {
	sender := &osciotesting.MockClient{}
	th := throttle.NewThrottler(sender)
	go th.Run()
	defer th.Close()

	th.Enqueue("/fx/param/1/val", float32(0.1))
	th.Enqueue("/fx/param/2/val", float32(0.2))
	th.Enqueue("/fx/param/3/val", float32(0.3))

	require.Eventually(t, func() bool {
		return len(sender.Sent()) == 3
	}, time.Second, time.Millisecond)

	bundles := sender.Bundles()
	require.Len(t, bundles, 1)
	assert.Len(t, bundles[0], 3)
}

func TestThrottlerRespectsSendInterval(t *testing.T) {
	// Property law 6: no two bundles within less than send_interval.
	sender := &osciotesting.MockClient{}
	th := throttle.NewThrottler(sender)
	go th.Run()
	defer th.Close()

	th.Enqueue("/fx/param/1/val", float32(0.1))
	require.Eventually(t, func() bool { return len(sender.Bundles()) == 1 }, time.Second, time.Millisecond)
	first := time.Now()

	th.Enqueue("/fx/param/2/val", float32(0.2))
	require.Eventually(t, func() bool { return len(sender.Bundles()) == 2 }, time.Second, time.Millisecond)
	second := time.Now()

	assert.GreaterOrEqual(t, second.Sub(first), 9*time.Millisecond)
}

func TestThrottlerFlushesPendingBundleOnClose(t *testing.T) {
	sender := &osciotesting.MockClient{}
	th := throttle.NewThrottler(sender)
	done := make(chan struct{})
	go func() {
		th.Run()
		close(done)
	}()

	th.Enqueue("/fx/param/1/val", float32(0.1))
	th.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}

	assert.Len(t, sender.Sent(), 1)
}

func TestThrottlerDropsWhenQueueSaturated(t *testing.T) {
	// Enqueue is non-blocking even under saturation; excess messages
	// are dropped rather than blocking the caller.
	sender := &osciotesting.MockClient{}
	th := throttle.NewThrottler(sender)
	// No Run() goroutine draining: queue backs up until full, and
	// Enqueue must still return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			th.Enqueue("/fx/param/1/val", float32(0.1))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked under queue saturation")
	}
}
