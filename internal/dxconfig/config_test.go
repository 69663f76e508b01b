package dxconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsForOmittedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dxwifi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: wlan0\ncoderate: 0.5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wlan0", cfg.Device)
	assert.Equal(t, 0.5, cfg.Coderate)
	assert.Equal(t, 1275, cfg.BlockSize) // default preserved
	assert.Equal(t, 5, cfg.MaxHammingDist)
}

func TestValidateRejectsOutOfRangeBlockSize(t *testing.T) {
	cfg := Default()
	cfg.BlockSize = 100
	assert.Error(t, cfg.Validate())
}

func TestSenderMACParsesColonHex(t *testing.T) {
	cfg := Default()
	mac, err := cfg.SenderMAC()
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}, mac)
}
