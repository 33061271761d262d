package handshake

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twincast/libs"
)

func TestParseKey(t *testing.T) {
	key, found := ParseKey("Opening capture.cap\nKEY FOUND! [ hunter2 ]\n")
	require.True(t, found)
	assert.Equal(t, "hunter2", key)

	key, found = ParseKey("KEY FOUND! [hunter2]")
	require.True(t, found)
	assert.Equal(t, "hunter2", key)

	_, found = ParseKey("Passphrase not in dictionary")
	assert.False(t, found)
}

func TestHasHandshake(t *testing.T) {
	assert.True(t, HasHandshake("   1  AA:BB:CC:DD:EE:FF  Home-5G  WPA (1 handshake)"))
	assert.True(t, HasHandshake("WPA (0 handshake)\nWPA handshake detected"))
	assert.False(t, HasHandshake("No networks found, exiting."))
}

func TestCommonPasswordsShape(t *testing.T) {
	assert.Len(t, CommonPasswords, 12)
	assert.Contains(t, CommonPasswords, "12345678")
	assert.Contains(t, CommonPasswords, "password1")
}

func newTestPipeline() *Pipeline {
	p := NewPipeline(libs.Colors{}, "wlan0", "AA:BB:CC:DD:EE:FF", 6, "/tmp")
	p.RetryDelay = 10 * time.Millisecond
	p.IsConnected = func(mac string) bool { return true }
	return p
}

func TestEligibilityRules(t *testing.T) {
	p := newTestPipeline()
	assert.True(t, p.Eligible("AA:AA:AA:AA:AA:01"))

	require.True(t, p.Offer("AA:AA:AA:AA:AA:01"))
	assert.False(t, p.Offer("AA:AA:AA:AA:AA:01"), "already queued")

	p.mu.Lock()
	p.captured["AA:AA:AA:AA:AA:02"] = true
	p.attempts["AA:AA:AA:AA:AA:03"] = p.MaxAttempts
	p.mu.Unlock()
	assert.False(t, p.Eligible("AA:AA:AA:AA:AA:02"), "already captured")
	assert.False(t, p.Eligible("AA:AA:AA:AA:AA:03"), "attempt cap reached")
}

func TestOfferRejectsDisconnected(t *testing.T) {
	p := newTestPipeline()
	p.IsConnected = func(mac string) bool { return false }
	assert.False(t, p.Offer("AA:AA:AA:AA:AA:01"))
}

// The bound holds no matter how deep the queue is
func TestConcurrencyBound(t *testing.T) {
	p := newTestPipeline()
	var inFlight atomic.Int32
	var peak atomic.Int32
	release := make(chan struct{})
	p.Capture = func(ctx context.Context, client string) (string, bool) {
		current := inFlight.Add(1)
		for {
			old := peak.Load()
			if current <= old || peak.CompareAndSwap(old, current) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return "/tmp/" + client + ".cap", true
	}

	for i := 0; i < 6; i++ {
		require.True(t, p.Offer(fmt.Sprintf("AA:AA:AA:AA:AA:%02d", i+1)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	time.Sleep(2 * time.Second)
	assert.LessOrEqual(t, p.ActiveCount(), p.MaxConcurrent)
	assert.LessOrEqual(t, int(peak.Load()), p.MaxConcurrent)
	close(release)
	time.Sleep(2 * time.Second)
	assert.LessOrEqual(t, int(peak.Load()), p.MaxConcurrent)
	cancel()
}

func TestAttemptCapAndRetry(t *testing.T) {
	p := newTestPipeline()
	var calls atomic.Int32
	p.Capture = func(ctx context.Context, client string) (string, bool) {
		calls.Add(1)
		return "", false
	}

	var client string = "AA:AA:AA:AA:AA:01"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// Keep re-offering the failed client the way the monitor loop does
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		p.Offer(client)
		if p.Attempts(client) >= p.MaxAttempts && p.ActiveCount() == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, p.MaxAttempts, p.Attempts(client))
	assert.False(t, p.Eligible(client))
	// Each admitted attempt runs the capture twice: once plus one retry
	assert.Equal(t, int32(p.MaxAttempts*2), calls.Load())
}

func TestSuccessRecordsAndCracks(t *testing.T) {
	p := newTestPipeline()
	p.Capture = func(ctx context.Context, client string) (string, bool) {
		return "/tmp/hs.cap", true
	}
	var mu sync.Mutex
	var gotClient, gotFile string
	p.OnHandshake = func(mac string, capFile string) {
		mu.Lock()
		gotClient, gotFile = mac, capFile
		mu.Unlock()
	}
	// Cracking shells out to the real tool, skip it here
	p.Wordlist = ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.True(t, p.Offer("AA:AA:AA:AA:AA:09"))
	go p.Run(ctx)

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		var done bool = gotClient != ""
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "AA:AA:AA:AA:AA:09", gotClient)
	assert.Equal(t, "/tmp/hs.cap", gotFile)
	assert.False(t, p.Eligible("AA:AA:AA:AA:AA:09"), "captured clients never re-enter")
}
