package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/spectral/as726x"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spectral.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, uint16(0x49), cfg.Address)
	assert.Equal(t, as726x.DefaultConfig(), cfg.Sensor)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
adapter: periph
bus: /dev/i2c-1
variant: as7263
status_poll:
  interval: 2ms
  limit: 50
data_ready_poll:
  timeout: 1s
sensor:
  gain: 16x
  mode: continuous
  bulb_current: 50mA
  integration_time: 100
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, AdapterPeriph, cfg.Adapter)
	assert.Equal(t, "/dev/i2c-1", cfg.Bus)
	assert.Equal(t, as726x.VariantAS7263, cfg.Variant)
	assert.Equal(t, as726x.Poll{Interval: 2 * time.Millisecond, Limit: 50}, cfg.StatusPoll)
	assert.Equal(t, as726x.Poll{Interval: 5 * time.Millisecond, Timeout: time.Second}, cfg.DataReadyPoll)
	assert.Equal(t, as726x.Gain16x, cfg.Sensor.Gain)
	assert.Equal(t, as726x.ModeContinuous, cfg.Sensor.Mode)
	assert.Equal(t, as726x.BulbCurrent50mA, cfg.Sensor.BulbCurrent)
	assert.Equal(t, 100, cfg.Sensor.IntegrationTime)
	// untouched values keep their defaults
	assert.Equal(t, as726x.IndicatorCurrent8mA, cfg.Sensor.IndicatorCurrent)
	assert.Equal(t, uint16(0x49), cfg.Address)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown adapter", "adapter: serial"},
		{"address out of range", "address: 0x80"},
		{"unknown gain", "sensor:\n  gain: 128x"},
		{"unknown field", "adress: 0x49"},
		{"negative retries", "step_retries: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWrite_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Adapter = AdapterNanoPi
	cfg.Bus = "2"
	cfg.Sensor.Gain = as726x.Gain3x7
	path := filepath.Join(t.TempDir(), "out.yaml")

	require.NoError(t, Write(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestOpts(t *testing.T) {
	cfg := Default()
	cfg.Variant = as726x.VariantAS7263
	s := as726x.New(nil, cfg.Opts()...)
	assert.Equal(t, as726x.VariantAS7263, s.Variant())
}
