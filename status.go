package main

import (
	"fmt"
	"time"

	"github.com/eiannone/keyboard"
	colo "github.com/fatih/color"
	"github.com/rodaine/table"
	"golang.org/x/exp/slices"

	"twincast/libs"
)

// statusKeys reads runtime keys from the controlling terminal:
// s prints a status report, q stops the session gracefully.
func statusKeys(session *karmaSession) {
	if err := keyboard.Open(); err != nil {
		return // no TTY, headless run
	}
	defer keyboard.Close()
	for {
		char, key, err := keyboard.GetKey()
		if err != nil {
			return
		}
		switch {
		case char == 's' || char == 'S':
			session.printStatus()
		case char == 'q' || char == 'Q' || key == keyboard.KeyCtrlC:
			libs.Warning(session.color, "Stop requested")
			session.cleanup.Cleanup()
			session.showFinalResults()
			return
		}
	}
}

// printStatus renders the live session snapshot
func (s *karmaSession) printStatus() {
	s.clientMu.Lock()
	var connected []string
	for mac := range s.connectedClients {
		connected = append(connected, mac)
	}
	s.clientMu.Unlock()
	slices.Sort(connected)

	s.mu.Lock()
	var elapsed string = libs.SecondsToHMS(int(time.Since(s.started).Seconds()))
	var pnlCount int = len(s.pnl)
	var networks int = len(s.realNetworks)
	var handshakes int = len(s.capturedHandshakes)
	var cracked int = len(s.crackedPasswords)
	var intensities map[string]int = make(map[string]int, len(s.deauthIntensity))
	for bssid, intensity := range s.deauthIntensity {
		intensities[bssid] = intensity
	}
	var primaryEssid string = s.primary.Essid
	s.mu.Unlock()

	fmt.Println()
	headerFmt := colo.New(colo.FgCyan, colo.Underline).SprintfFunc()
	tbl := table.New("Field", "Value")
	tbl.WithHeaderFormatter(headerFmt)
	tbl.AddRow("Elapsed", elapsed)
	tbl.AddRow("Cloning", primaryEssid)
	tbl.AddRow("PNL networks", pnlCount)
	tbl.AddRow("Clone candidates", networks)
	tbl.AddRow("Victims connected", len(connected))
	tbl.AddRow("Handshakes", handshakes)
	tbl.AddRow("Cracked", cracked)
	var active int
	if s.pipeline != nil {
		active = s.pipeline.ActiveCount()
	}
	tbl.AddRow("Active captures", active)
	for bssid, intensity := range intensities {
		tbl.AddRow("Deauth "+bssid, intensity)
	}
	tbl.Print()
	fmt.Println()
}
