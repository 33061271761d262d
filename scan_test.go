package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twincast/libs"
)

var sampleScanCSV = `
BSSID, First time seen, Last time seen, channel, Speed, Privacy, Cipher, Authentication, Power, # beacons, # IV, LAN IP, ID-length, ESSID, Key
AA:BB:CC:DD:EE:FF, 2026-08-24 10:00:00, 2026-08-24 10:01:00,  6,  54, WPA2, CCMP, PSK, -45,  120,  0,   0.  0.  0.  0,   7, Home-5G,
11:22:33:44:55:66, 2026-08-24 10:00:00, 2026-08-24 10:01:00, 11,  54, WPA2, CCMP, PSK, -70,   80,  0,   0.  0.  0.  0,   5, guest,
22:33:44:55:66:77, 2026-08-24 10:00:00, 2026-08-24 10:01:00,  1,  54, WPA2, CCMP, PSK, -80,   20,  0,   0.  0.  0.  0,   6, lonely,

Station MAC, First time seen, Last time seen, Power, # packets, BSSID, Probed ESSIDs
DE:AD:BE:EF:00:01, 2026-08-24 10:00:10, 2026-08-24 10:01:00, -50,  300, AA:BB:CC:DD:EE:FF, Home-5G
DE:AD:BE:EF:00:02, 2026-08-24 10:00:20, 2026-08-24 10:01:00, -55,  150, AA:BB:CC:DD:EE:FF,
DE:AD:BE:EF:00:03, 2026-08-24 10:00:30, 2026-08-24 10:01:00, -60,   90, 11:22:33:44:55:66, guest
DE:AD:BE:EF:00:04, 2026-08-24 10:00:40, 2026-08-24 10:01:00, -65,   10, (not associated), CoxWiFi
`

func TestParseScanCSV(t *testing.T) {
	networks := parseScanCSV(sampleScanCSV)
	require.Len(t, networks, 3)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", networks[0].Bssid)
	assert.Equal(t, "Home-5G", networks[0].Essid)
	assert.Equal(t, 6, networks[0].Channel)
	assert.Equal(t, -45, networks[0].Power)
	assert.Equal(t, []string{"DE:AD:BE:EF:00:01", "DE:AD:BE:EF:00:02"}, networks[0].Clients)

	assert.Equal(t, []string{"DE:AD:BE:EF:00:03"}, networks[1].Clients)
	assert.Empty(t, networks[2].Clients, "no stations attached")
}

func TestParseScanCSVEmpty(t *testing.T) {
	assert.Empty(t, parseScanCSV(""))
	assert.Empty(t, parseScanCSV("garbage,line\nanother"))
}

func TestParseScanCSVHexESSID(t *testing.T) {
	var csv string = "AA:BB:CC:DD:EE:01, a, b,  6, 54, WPA2, CCMP, PSK, -50, 1, 0, ip, 4, 74657374, \n"
	networks := parseScanCSV(csv)
	require.Len(t, networks, 1)
	assert.Equal(t, "test", networks[0].Essid)
}

func TestKeepCloneTargets(t *testing.T) {
	networks := []libs.Network{
		{Bssid: "AA:BB:CC:DD:EE:01", Essid: "Home-5G", Clients: []string{"C1"}},
		{Bssid: "AA:BB:CC:DD:EE:02", Essid: "lonely"},
		{Bssid: "AA:BB:CC:DD:EE:03", Essid: "", Clients: []string{"C2"}},
		{Bssid: "AA:BB:CC:DD:EE:04", Essid: "unassociated", Clients: []string{"C3", "C4"}},
	}
	targets := keepCloneTargets(libs.Colors{}, networks)
	require.Len(t, targets, 1)
	assert.Equal(t, "Home-5G", targets[0].Essid)
}
