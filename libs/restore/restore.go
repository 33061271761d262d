// Package restore is the one exit path: it tears down everything the
// attack started and puts the network stack back the way scanning
// tools expect to find it. Safe to call from any stage and from signal
// handlers; the second call is a no-op.
package restore

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"twincast/libs"
	"twincast/libs/iface"
	"twincast/libs/proc"
)

// runCmd is swappable so restoration is testable without touching the host.
var runCmd = func(command string) (string, bool) {
	return libs.Rtexec(exec.Command("bash", "-c", command))
}

type Controller struct {
	Color       libs.Colors
	Registry    *proc.Registry
	Ifaces      *iface.Manager
	Interfaces  []string // radios touched during the attack
	ConfigFiles []string
	DNSSpoofing bool
	SingleRadio bool // probe and rogue share one physical interface

	Stop func() // flips the session's running flag and joins its loops

	mu   sync.Mutex
	done bool
}

// Done reports whether cleanup already ran
func (c *Controller) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Cleanup restores everything. Latched: only the first call acts.
func (c *Controller) Cleanup() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.mu.Unlock()

	libs.Stage(c.Color, "Cleaning up attack session")
	if c.Stop != nil {
		c.Stop()
	}
	if c.Registry != nil {
		c.Registry.StopAll(3 * time.Second)
	}
	if c.SingleRadio && len(c.Interfaces) > 0 {
		// Teardown symmetry: shared radio goes back through monitor
		c.Ifaces.SetMode(c.Interfaces[0], iface.ModeMonitor)
	}
	for _, confFile := range c.ConfigFiles {
		os.Remove(confFile)
	}
	if c.DNSSpoofing {
		runCmd("iptables -F")
		runCmd("iptables -t nat -F")
		libs.Log(c.Color, "Flushed iptables rules")
	}
	if err := c.restoreNetwork(); err {
		libs.Warning(c.Color, "Full restore failed, falling back to basic cleanup")
		c.basicCleanup()
	}
	libs.Success(c.Color, "Cleanup complete")
	if out, _ := runCmd("rfkill list"); strings.Contains(out, "Soft blocked: yes") {
		libs.Warning(c.Color, "Some radios are still soft-blocked, run: rfkill unblock all")
	}
}

func (c *Controller) restoreNetwork() (failed bool) {
	runCmd("pkill -f hostapd")
	if c.DNSSpoofing {
		runCmd("pkill -f dnsmasq")
	}
	runCmd("pkill -f airodump; pkill -f aireplay; pkill -f airmon")
	runCmd("sysctl -w net.ipv4.ip_forward=0")
	runCmd("iptables -t nat -F; iptables -F")
	if _, err := runCmd("rfkill unblock all"); err {
		libs.Warning(c.Color, "Could not unblock rfkill, run manually: rfkill unblock all")
		failed = true
	}
	c.restoreInterfaces()
	c.restartServices()
	time.Sleep(3 * time.Second)
	c.verify()
	return failed
}

func (c *Controller) restoreInterfaces() {
	var targets []string = append([]string{}, c.Interfaces...)
	// Pick up any radio left behind under a common name
	for _, name := range []string{"wlan0", "wlan1", "wlan2", "wlp3s0", "wlp4s0"} {
		if _, err := runCmd("iwconfig " + name); !err && !contains(targets, name) {
			targets = append(targets, name)
		}
	}
	for _, name := range targets {
		var base string = iface.CleanName(name)
		libs.Log(c.Color, "Restoring interface "+c.Color.Green+base+c.Color.White)
		runCmd("airmon-ng stop " + name)
		runCmd("ip link set " + base + " down")
		time.Sleep(time.Second)
		runCmd("iw dev " + base + " set type managed")
		runCmd("ip addr flush dev " + base)
		runCmd("ip link set " + base + " up")
		time.Sleep(2 * time.Second)
		if out, err := runCmd("iwconfig " + base); err || !strings.Contains(out, "Mode:Managed") {
			libs.Warning(c.Color, "Interface "+base+" may not be fully restored")
		}
	}
}

func (c *Controller) restartServices() {
	for _, service := range []string{"NetworkManager", "systemd-resolved"} {
		if _, err := runCmd("systemctl is-active " + service); !err {
			runCmd("systemctl restart " + service)
		} else {
			runCmd("systemctl start " + service)
		}
	}
}

func (c *Controller) verify() {
	if out, _ := runCmd("rfkill list"); strings.Contains(out, "Soft blocked: yes") {
		libs.Warning(c.Color, "Some interfaces are still blocked, run: rfkill unblock all")
	}
	if out, _ := runCmd("systemctl is-active NetworkManager"); !strings.Contains(out, "active") {
		libs.Warning(c.Color, "NetworkManager is not active")
	}
	if out, _ := runCmd("iwconfig"); !strings.Contains(out, "Mode:Managed") {
		libs.Warning(c.Color, "Some interfaces may not be in managed mode")
	}
}

// basicCleanup is the minimum viable restore when the full path fails
func (c *Controller) basicCleanup() {
	if _, err := runCmd("rfkill unblock all"); err {
		fmt.Println("CRITICAL: basic cleanup failed, run manually: rfkill unblock all")
	}
	runCmd("pkill -f hostapd; pkill -f dnsmasq")
}

func contains(list []string, element string) bool {
	for _, item := range list {
		if item == element {
			return true
		}
	}
	return false
}
