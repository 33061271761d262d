// Package iface owns every radio the attack touches: one lock per
// interface serializing mode transitions, and the transitions
// themselves (managed / monitor / ap) with alias resolution for
// airmon-ng renamed monitor interfaces.
package iface

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"twincast/libs"
	"twincast/libs/werr"
)

type Mode int

const (
	ModeUnknown Mode = iota
	ModeManaged
	ModeMonitor
	ModeAP
)

func (m Mode) String() string {
	switch m {
	case ModeManaged:
		return "managed"
	case ModeMonitor:
		return "monitor"
	case ModeAP:
		return "ap"
	}
	return "unknown"
}

// Locks held longer than this are treated as leaked and may be broken
// by a conflicting acquirer.
const staleLockAfter = 30 * time.Second

// runCmd is swappable so mode transitions are testable without a radio.
var runCmd = func(command string) (string, bool) {
	return libs.Rtexec(exec.Command("bash", "-c", command))
}

type operation struct {
	name  string
	since time.Time
}

type state struct {
	sem     chan struct{}
	mu      sync.Mutex
	holder  *operation
	resolve string // adopted monitor-alias name, if any
}

type Manager struct {
	mu     sync.Mutex
	ifaces map[string]*state
}

func NewManager() *Manager {
	return &Manager{ifaces: make(map[string]*state)}
}

func (m *Manager) get(name string) *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = CleanName(name)
	st, ok := m.ifaces[name]
	if !ok {
		st = &state{sem: make(chan struct{}, 1)}
		m.ifaces[name] = st
	}
	return st
}

// Strip airmon-ng monitor-alias suffixes back to the base interface name
func CleanName(name string) string {
	for _, suffix := range []string{"mon0", "mon1", "mon"} {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// Acquire exclusive rights to change the interface mode. A holder past
// the stale bound is broken and the lock taken over.
func (m *Manager) Acquire(name string, op string, timeout time.Duration) bool {
	st := m.get(name)
	select {
	case st.sem <- struct{}{}:
		st.mu.Lock()
		st.holder = &operation{name: op, since: time.Now()}
		st.mu.Unlock()
		return true
	case <-time.After(timeout):
	}
	// Stale check, break and takeover happen under one critical section
	// so two timed-out contenders cannot both claim the broken lock.
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.holder == nil || time.Since(st.holder.since) <= staleLockAfter {
		return false
	}
	select {
	case <-st.sem:
	default:
	}
	select {
	case st.sem <- struct{}{}:
	default:
		// A waiter slipped in between drain and refill, it owns the lock now
		return false
	}
	st.holder = &operation{name: op, since: time.Now()}
	return true
}

func (m *Manager) Release(name string) {
	st := m.get(name)
	st.mu.Lock()
	st.holder = nil
	st.mu.Unlock()
	select {
	case <-st.sem:
	default:
	}
}

// Holder reports the in-flight operation, if any
func (m *Manager) Holder(name string) (string, bool) {
	st := m.get(name)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.holder == nil {
		return "", false
	}
	return st.holder.name, true
}

// Resolved returns the working name for an interface: the adopted
// monitor alias while in monitor mode, the base name otherwise.
func (m *Manager) Resolved(name string) string {
	st := m.get(name)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.resolve != "" {
		return st.resolve
	}
	return CleanName(name)
}

// CurrentMode re-reads the interface's advertised mode
func CurrentMode(name string) Mode {
	out, err := runCmd(fmt.Sprintf("iw dev %s info | grep type | awk '{print $2}'", name))
	if err {
		return ModeUnknown
	}
	switch strings.ToLower(strings.TrimSpace(out)) {
	case "managed":
		return ModeManaged
	case "monitor":
		return ModeMonitor
	case "ap", "__ap", "master":
		return ModeAP
	}
	// iwconfig as second opinion, some drivers hide the nl80211 type
	out, err = runCmd(fmt.Sprintf("iwconfig %s | grep -o 'Mode:[A-Za-z-]*'", name))
	if err {
		return ModeUnknown
	}
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(out), "mode:")) {
	case "managed":
		return ModeManaged
	case "monitor":
		return ModeMonitor
	case "master":
		return ModeAP
	}
	return ModeUnknown
}

// SetMode performs down -> set-type -> up -> verify, retrying once.
// Returns the resolved interface name (the monitor alias when airmon-ng
// renamed the radio).
func (m *Manager) SetMode(name string, target Mode) (string, error) {
	var resolved string = CleanName(name)
	var lastErr string
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Second)
		}
		var out string
		var failed bool
		switch target {
		case ModeMonitor:
			out, failed = m.toMonitor(resolved)
		case ModeManaged:
			out, failed = m.toManaged(name)
		case ModeAP:
			out, failed = m.toAP(resolved)
		default:
			return "", werr.Newf(werr.ModeTransitionFailed, "no transition to %s", target)
		}
		if failed {
			lastErr = strings.TrimSpace(out)
			continue
		}
		var verifyName string = resolved
		if target == ModeMonitor {
			verifyName = m.Resolved(name)
		}
		if CurrentMode(verifyName) == target {
			return verifyName, nil
		}
		lastErr = fmt.Sprintf("%s did not report %s after transition", verifyName, target)
	}
	return "", werr.WithStderr(werr.ModeTransitionFailed, fmt.Sprintf("%s -> %s", name, target), lastErr)
}

func (m *Manager) toMonitor(name string) (string, bool) {
	runCmd("airmon-ng check kill")
	runCmd(fmt.Sprintf("ip link set %s down", name))
	if out, err := runCmd(fmt.Sprintf("iw dev %s set type monitor", name)); err {
		// Driver refused the native type set, let airmon-ng do it
		if out2, err2 := runCmd(fmt.Sprintf("airmon-ng start %s", name)); err2 || strings.Contains(strings.ToLower(out2), "fail") {
			return out + out2, true
		}
		if alias, found := findMonitorAlias(name); found {
			st := m.get(name)
			st.mu.Lock()
			st.resolve = alias
			st.mu.Unlock()
			runCmd(fmt.Sprintf("ip link set %s up", alias))
			return "", false
		}
	}
	out, err := runCmd(fmt.Sprintf("ip link set %s up", name))
	return out, err
}

func (m *Manager) toManaged(name string) (string, bool) {
	var base string = CleanName(name)
	st := m.get(name)
	st.mu.Lock()
	var alias string = st.resolve
	st.resolve = ""
	st.mu.Unlock()
	if alias != "" {
		// airmon-ng stop removes the alias interface it created
		runCmd(fmt.Sprintf("airmon-ng stop %s", alias))
	}
	runCmd(fmt.Sprintf("ip link set %s down", base))
	out, err := runCmd(fmt.Sprintf("iw dev %s set type managed", base))
	if err {
		out, err = runCmd(fmt.Sprintf("iwconfig %s mode managed", base))
		if err {
			return out, true
		}
	}
	runCmd(fmt.Sprintf("ip addr flush dev %s", base))
	out, err = runCmd(fmt.Sprintf("ip link set %s up", base))
	return out, err
}

func (m *Manager) toAP(name string) (string, bool) {
	var base string = CleanName(name)
	st := m.get(name)
	st.mu.Lock()
	var alias string = st.resolve
	st.resolve = ""
	st.mu.Unlock()
	if alias != "" {
		runCmd(fmt.Sprintf("airmon-ng stop %s", alias))
	}
	runCmd(fmt.Sprintf("ip link set %s down", base))
	out, err := runCmd(fmt.Sprintf("iw dev %s set type __ap", base))
	if err {
		out, err = runCmd(fmt.Sprintf("iwconfig %s mode master", base))
		if err {
			return out, true
		}
	}
	out, err = runCmd(fmt.Sprintf("ip link set %s up", base))
	return out, err
}

func findMonitorAlias(base string) (string, bool) {
	for _, candidate := range []string{base + "mon", "mon0", "mon1"} {
		if _, err := runCmd(fmt.Sprintf("ip link show %s", candidate)); !err {
			return candidate, true
		}
	}
	return "", false
}
