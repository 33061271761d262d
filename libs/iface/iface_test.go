package iface

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	assert.Equal(t, "wlan0", CleanName("wlan0mon"))
	assert.Equal(t, "wlan1", CleanName("wlan1mon0"))
	assert.Equal(t, "wlan0", CleanName("wlan0"))
	assert.Equal(t, "mon0", CleanName("mon0"), "bare alias names stay put")
}

func TestAcquireIsExclusive(t *testing.T) {
	manager := NewManager()
	require.True(t, manager.Acquire("wlan0", "first", time.Second))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if manager.Acquire("wlan0", "contender", 100*time.Millisecond) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(0), wins.Load(), "no contender may win while held")

	manager.Release("wlan0")
	assert.True(t, manager.Acquire("wlan0", "after-release", time.Second))
	manager.Release("wlan0")
}

func TestAcquireAliasSharesLock(t *testing.T) {
	manager := NewManager()
	require.True(t, manager.Acquire("wlan0", "mode-switch", time.Second))
	assert.False(t, manager.Acquire("wlan0mon", "same-radio", 50*time.Millisecond),
		"the monitor alias is the same physical radio")
	manager.Release("wlan0")
}

func TestAcquireRecordsHolder(t *testing.T) {
	manager := NewManager()
	require.True(t, manager.Acquire("wlan0", "probe-capture", time.Second))
	op, held := manager.Holder("wlan0")
	assert.True(t, held)
	assert.Equal(t, "probe-capture", op)
	manager.Release("wlan0")
	_, held = manager.Holder("wlan0")
	assert.False(t, held)
}

func TestAcquireBreaksStaleLock(t *testing.T) {
	manager := NewManager()
	require.True(t, manager.Acquire("wlan0", "leaked", time.Second))
	// Backdate the holder past the stale bound
	st := manager.get("wlan0")
	st.mu.Lock()
	st.holder.since = time.Now().Add(-time.Minute)
	st.mu.Unlock()

	assert.True(t, manager.Acquire("wlan0", "conflict-breaker", 50*time.Millisecond))
	op, _ := manager.Holder("wlan0")
	assert.Equal(t, "conflict-breaker", op)
	manager.Release("wlan0")
}

func TestStaleBreakAdmitsExactlyOne(t *testing.T) {
	for round := 0; round < 50; round++ {
		manager := NewManager()
		require.True(t, manager.Acquire("wlan0", "leaked", time.Second))
		st := manager.get("wlan0")
		st.mu.Lock()
		st.holder.since = time.Now().Add(-time.Minute)
		st.mu.Unlock()

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if manager.Acquire("wlan0", "breaker", 10*time.Millisecond) {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load(), "exactly one contender may break a stale lock")
		manager.Release("wlan0")
	}
}

func TestSetModeRetriesAndReportsFailure(t *testing.T) {
	var calls []string
	original := runCmd
	defer func() { runCmd = original }()
	runCmd = func(command string) (string, bool) {
		calls = append(calls, command)
		if strings.Contains(command, "set type") {
			return "Operation not permitted", true
		}
		return "", false
	}

	manager := NewManager()
	_, err := manager.SetMode("wlan0", ModeAP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ModeTransitionFailed")

	var typeSets int
	for _, call := range calls {
		if strings.Contains(call, "set type __ap") {
			typeSets++
		}
	}
	assert.Equal(t, 2, typeSets, "one retry after the first failure")
}

func TestSetModeVerifies(t *testing.T) {
	original := runCmd
	defer func() { runCmd = original }()
	runCmd = func(command string) (string, bool) {
		if strings.Contains(command, "iw dev wlan0 info") {
			return "managed\n", false
		}
		return "", false
	}

	manager := NewManager()
	resolved, err := manager.SetMode("wlan0", ModeManaged)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", resolved)
}

func TestCurrentModeParsing(t *testing.T) {
	original := runCmd
	defer func() { runCmd = original }()
	for reported, want := range map[string]Mode{
		"managed": ModeManaged,
		"monitor": ModeMonitor,
		"AP":      ModeAP,
	} {
		reported := reported
		runCmd = func(command string) (string, bool) {
			return reported + "\n", false
		}
		assert.Equal(t, want, CurrentMode("wlan0"), reported)
	}
}
