package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twincast/libs"
	"twincast/libs/confreader"
	"twincast/libs/handshake"
	"twincast/libs/rogue"
)

func TestNewSessionDefaultsRogueToProbe(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	assert.Equal(t, "wlan0", s.rogueIface)
	assert.True(t, s.singleRadio())
	assert.True(t, s.cleanup.SingleRadio)

	s = newSession(libs.Colors{}, confreader.Defaults(), "wlan0mon", "wlan1")
	assert.False(t, s.singleRadio())
	assert.Equal(t, []string{"wlan0mon", "wlan1"}, s.cleanup.Interfaces)
}

func TestSingleRadioSeesThroughMonitorAlias(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0mon", "wlan0")
	assert.True(t, s.singleRadio(), "wlan0mon and wlan0 are the same radio")
}

func TestEnterFallbackSeedsOnce(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	assert.Equal(t, 0, s.pnlSize())

	s.enterFallback()
	assert.Equal(t, len(fallbackSsids), s.pnlSize())
	assert.Contains(t, s.pnlSnapshot(), "linksys")
	assert.Contains(t, s.pnlSnapshot(), "xfinitywifi")

	// Probes gathered afterwards still land; re-entering never reseeds
	s.addProbe(libs.Probe{Client: "AA:BB:CC:DD:EE:FF", Ssid: "Home-5G"})
	s.enterFallback()
	assert.Equal(t, len(fallbackSsids)+1, s.pnlSize())
}

func TestAddProbeDeduplicates(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	s.addProbe(libs.Probe{Client: "AA:BB:CC:DD:EE:01", Ssid: "Home-5G"})
	s.addProbe(libs.Probe{Client: "AA:BB:CC:DD:EE:02", Ssid: "Home-5G"})
	assert.Equal(t, 1, s.pnlSize())
	assert.Equal(t, []string{"Home-5G"}, s.pnlSnapshot())
}

func TestStopFlipsOnce(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	var cancels int
	s.cancel = func() { cancels++ }

	s.stop()
	assert.Equal(t, 0, cancels, "stop before start is a no-op")

	s.running.Store(true)
	s.stop()
	assert.False(t, s.isRunning())
	assert.Equal(t, 1, cancels)

	s.stop()
	assert.Equal(t, 1, cancels, "second stop is a no-op")
}

func TestOnClientConnectedDeduplicates(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	var mac string = "DE:AD:BE:EF:00:01"
	assert.False(t, s.isConnected(mac))

	s.onClientConnected(context.Background(), mac)
	assert.True(t, s.isConnected(mac))
	assert.Equal(t, 1, s.connectedCount())

	s.onClientConnected(context.Background(), mac)
	assert.Equal(t, 1, s.connectedCount())
}

func TestRecordHandshakeAndCracked(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	var mac string = "DE:AD:BE:EF:00:01"
	s.onClientConnected(context.Background(), mac)
	s.recordHandshake(mac, "/tmp/twincast/hs_1.cap")
	s.recordCracked(mac, "hunter2")

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, "/tmp/twincast/hs_1.cap", s.capturedHandshakes[mac])
	assert.Equal(t, "hunter2", s.crackedPasswords[mac])
	// Handshakes only come from clients the monitor saw connect
	for captured := range s.capturedHandshakes {
		assert.True(t, s.connectedClients[captured])
	}
}

func TestReofferDrivesAttemptCap(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	p := handshake.NewPipeline(libs.Colors{}, "wlan0", "AA:BB:CC:DD:EE:FF", 6, t.TempDir())
	p.RetryDelay = 10 * time.Millisecond
	p.IsConnected = s.isConnected
	p.Capture = func(ctx context.Context, client string) (string, bool) { return "", false }
	s.pipeline = p

	var mac string = "DE:AD:BE:EF:00:07"
	s.onClientConnected(context.Background(), mac)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// The connection monitor re-offers connected clients every cycle; the
	// pipeline's own dedupe turns that into exactly MaxAttempts tries.
	var deadline time.Time = time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		s.offerCaptures()
		if p.Attempts(mac) >= p.MaxAttempts && p.ActiveCount() == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, p.MaxAttempts, p.Attempts(mac))
	assert.False(t, p.Eligible(mac), "exhausted client stays out")
}

func TestShowFinalResultsPrintsOnce(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	var buf bytes.Buffer
	s.out = &buf

	s.showFinalResults()
	s.showFinalResults()
	assert.Equal(t, 1, strings.Count(buf.String(), "PNL networks"))
}

func TestStartPipelineSharesSessionRegistry(t *testing.T) {
	s := newSession(libs.Colors{}, confreader.Defaults(), "wlan0", "")
	s.rogueCtl = &rogue.Controller{WorkDir: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.startPipeline(ctx)
	assert.Same(t, s.registry, s.pipeline.Registry)
	assert.Same(t, s.registry, s.harvester.Registry)
	s.wg.Wait()
}

func TestFallbackSsidList(t *testing.T) {
	require.Len(t, fallbackSsids, 22)
	assert.Equal(t, "linksys", fallbackSsids[0])
	assert.Contains(t, fallbackSsids, "attwifi")
	assert.Contains(t, fallbackSsids, "CenturyLinkWiFi")
}
