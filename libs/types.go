package libs

import (
	"time"
)

type Colors struct {
	Red       string
	White     string
	Yellow    string
	Blue      string
	Purple    string
	Cyan      string
	Orange    string
	Green     string
	Lightblue string
	Null      string
}

type Ifaces struct {
	Name string
	Mac  string
}

// A network observed during discovery, immutable for the scan cycle.
type Network struct {
	Bssid   string
	Essid   string
	Channel int
	Power   int
	Clients []string
	Seen    time.Time
}

// A (client, ssid) pair extracted from a probe request.
type Probe struct {
	Client string
	Ssid   string
}
