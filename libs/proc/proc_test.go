package proc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twincast/libs/werr"
)

func TestRunCapturesOutput(t *testing.T) {
	out, err := Run(context.Background(), 5*time.Second, "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Contains(t, out, "hello")
}

func TestRunTimeoutKillsGroup(t *testing.T) {
	start := time.Now()
	_, err := Run(context.Background(), 300*time.Millisecond, "sleep", "30")
	assert.True(t, werr.Is(err, werr.ProcessTimeout))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, err := Run(ctx, time.Minute, "sleep", "30")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunStdin(t *testing.T) {
	out, err := RunStdin(context.Background(), 5*time.Second, "from-stdin\n", "cat")
	require.NoError(t, err)
	assert.Contains(t, out, "from-stdin")
}

func TestRunMissingTool(t *testing.T) {
	_, err := Run(context.Background(), time.Second, "definitely-not-a-tool-xyz")
	assert.True(t, werr.Is(err, werr.ToolStartupFailed))
}

func TestRegistryLifecycle(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, 0, registry.Active())

	handle, err := registry.Background("sleeper", 0, "sleep", "60")
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Active())
	assert.True(t, handle.Alive())

	registry.StopAll(time.Second)
	assert.Equal(t, 0, registry.Active())
	// The group kill needs a moment to land
	time.Sleep(300 * time.Millisecond)
	assert.False(t, handle.Alive())
}

func TestBackgroundTimeoutIsEnforced(t *testing.T) {
	registry := NewRegistry()
	handle, err := registry.Background("sleeper", 300*time.Millisecond, "sleep", "60")
	require.NoError(t, err)
	assert.True(t, handle.Alive())

	// The watcher fires after the timeout and tears the process down
	time.Sleep(2 * time.Second)
	assert.False(t, handle.Alive(), "overdue process gets force-terminated")
	assert.Equal(t, 0, registry.Active())
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	handle, err := registry.Background("sleeper", 0, "sleep", "60")
	require.NoError(t, err)
	registry.Unregister(handle)
	assert.Equal(t, 0, registry.Active())
	handle.Stop(time.Second)
}
