package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStationDump(t *testing.T) {
	var output string = `Station de:ad:be:ef:00:01 (on wlan1)
	inactive time:	50 ms
	rx bytes:	12345
Station de:ad:be:ef:00:02 (on wlan1)
	inactive time:	80 ms
`
	macs := parseStationDump(output)
	assert.Equal(t, []string{"DE:AD:BE:EF:00:01", "DE:AD:BE:EF:00:02"}, macs)
	assert.Empty(t, parseStationDump(""))
}

func TestParseLeases(t *testing.T) {
	var text string = `1756040000 de:ad:be:ef:00:03 10.0.0.15 android-phone 01:de:ad:be:ef:00:03
1756040100 not-a-mac 10.0.0.16 * *
`
	macs := parseLeases(text)
	require.Len(t, macs, 1)
	assert.Equal(t, "DE:AD:BE:EF:00:03", macs[0])
}

func TestParseArp(t *testing.T) {
	var output string = `? (10.0.0.15) at de:ad:be:ef:00:04 [ether] on wlan1
? (192.168.1.1) at 11:22:33:44:55:66 [ether] on eth0
? (10.0.0.16) at <incomplete> on wlan1
`
	macs := parseArp(output, "10.0.0.")
	require.Len(t, macs, 1)
	assert.Equal(t, "DE:AD:BE:EF:00:04", macs[0], "other subnets are ignored")
}
