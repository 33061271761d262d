package werr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(LockTimeout, "wlan0 busy")
	assert.Equal(t, "LockTimeout: wlan0 busy", err.Error())

	err = WithStderr(ToolStartupFailed, "hostapd exited during startup", "nl80211: Failed to set interface into AP mode")
	assert.Contains(t, err.Error(), "ToolStartupFailed")
	assert.Contains(t, err.Error(), "nl80211: Failed to set interface into AP mode")
}

func TestIs(t *testing.T) {
	err := Newf(ProcessTimeout, "%s exceeded %ds", "aireplay-ng", 10)
	assert.True(t, Is(err, ProcessTimeout))
	assert.False(t, Is(err, CrackNotFound))

	wrapped := fmt.Errorf("stage failed: %w", err)
	assert.True(t, Is(wrapped, ProcessTimeout))
	assert.False(t, Is(nil, ProcessTimeout))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "InterfaceConflict", InterfaceConflict.String())
	assert.Equal(t, "CaptureInsufficientData", CaptureInsufficientData.String())
}
