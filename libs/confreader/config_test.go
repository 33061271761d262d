package confreader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	config := Defaults()
	assert.Equal(t, 60, config.ProbeWindowSeconds)
	assert.Equal(t, 10, config.MinProbes)
	assert.Equal(t, 30, config.ScanWindowSeconds)
	assert.Equal(t, 2, config.MaxConcurrentCaps)
	assert.Equal(t, 3, config.MaxAttemptsPerClient)
	assert.False(t, config.DNSSpoofing)
	assert.Equal(t, "10.0.0.1", config.GatewayIP)
}

func TestLoadEmptyPath(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), config)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	var path string = filepath.Join(t.TempDir(), "twincast.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"min_probes: 3\ndns_spoofing: true\nwordlist: /usr/share/wordlists/rockyou.txt\n"), 0644))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, config.MinProbes)
	assert.True(t, config.DNSSpoofing)
	assert.Equal(t, "/usr/share/wordlists/rockyou.txt", config.Wordlist)
	// Untouched keys keep their defaults
	assert.Equal(t, 60, config.ProbeWindowSeconds)
	assert.Equal(t, "10.0.0.250", config.DHCPRangeEnd)
}

func TestLoadClampsLimits(t *testing.T) {
	var path string = filepath.Join(t.TempDir(), "twincast.yml")
	require.NoError(t, os.WriteFile(path, []byte(
		"max_concurrent_captures: 0\nmax_handshakes_per_client: -2\n"), 0644))

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, config.MaxConcurrentCaps)
	assert.Equal(t, 1, config.MaxAttemptsPerClient)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/twincast.yml")
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	var path string = filepath.Join(t.TempDir(), "twincast.yml")
	require.NoError(t, os.WriteFile(path, []byte("min_probes: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
