package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScannerInvalidPattern(t *testing.T) {
	_, err := NewScanner([]string{"["})
	assert.Error(t, err)
}

func TestScannerExcludePatterns(t *testing.T) {
	s, err := NewScanner([]string{`^/dev/ttyS\d+$`, `Bluetooth`})
	require.NoError(t, err)

	assert.True(t, s.isExcluded("/dev/ttyS0"))
	assert.True(t, s.isExcluded("/dev/cu.Bluetooth-Incoming-Port"))
	assert.False(t, s.isExcluded("/dev/ttyUSB0"))
	assert.False(t, s.isExcluded("COM3"))
}

func TestScannerCachedCopy(t *testing.T) {
	s, err := NewScanner(nil)
	require.NoError(t, err)

	assert.Nil(t, s.GetCached())

	s.mu.Lock()
	s.cachedPorts = []PortInfo{{Name: "COM9"}}
	s.mu.Unlock()

	cached := s.GetCached()
	require.Len(t, cached, 1)
	cached[0].Name = "mutated"
	assert.Equal(t, "COM9", s.GetCached()[0].Name, "cache must not alias caller slices")
}

func TestPortTypeString(t *testing.T) {
	assert.Equal(t, "USB", PortTypeUSB.String())
	assert.Equal(t, "Native", PortTypeNative.String())
	assert.Equal(t, "Bluetooth", PortTypeBluetooth.String())
	assert.Equal(t, "Virtual", PortTypeVirtual.String())
	assert.Equal(t, "Unknown", PortTypeUnknown.String())
}
