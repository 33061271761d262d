// Package confreader loads the optional YAML session configuration.
// Flags override anything read here.
package confreader

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ProbeWindowSeconds   int    `yaml:"probe_window_seconds"`
	MinProbes            int    `yaml:"min_probes"`
	ScanWindowSeconds    int    `yaml:"scan_window_seconds"`
	CaptureWindowSeconds int    `yaml:"capture_window_seconds"`
	MaxConcurrentCaps    int    `yaml:"max_concurrent_captures"`
	MaxAttemptsPerClient int    `yaml:"max_handshakes_per_client"`
	DNSSpoofing          bool   `yaml:"dns_spoofing"`
	Wordlist             string `yaml:"wordlist"`
	Target               string `yaml:"target"`
	WorkDir              string `yaml:"work_dir"`
	GatewayIP            string `yaml:"gateway_ip"`
	DHCPRangeStart       string `yaml:"dhcp_range_start"`
	DHCPRangeEnd         string `yaml:"dhcp_range_end"`
}

func Defaults() Config {
	return Config{
		ProbeWindowSeconds:   60,
		MinProbes:            10,
		ScanWindowSeconds:    30,
		CaptureWindowSeconds: 60,
		MaxConcurrentCaps:    2,
		MaxAttemptsPerClient: 3,
		DNSSpoofing:          false,
		WorkDir:              "/tmp/twincast",
		GatewayIP:            "10.0.0.1",
		DHCPRangeStart:       "10.0.0.10",
		DHCPRangeEnd:         "10.0.0.250",
	}
}

// Load overlays the file's values on the defaults
func Load(path string) (Config, error) {
	config := Defaults()
	if path == "" {
		return config, nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(text, &config); err != nil {
		return config, err
	}
	if config.MaxConcurrentCaps < 1 {
		config.MaxConcurrentCaps = 1
	}
	if config.MaxAttemptsPerClient < 1 {
		config.MaxAttemptsPerClient = 1
	}
	return config, nil
}
