// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	// Defaults match the device firmware's fixed constants.
	assert.Equal(t, "localhost:4000", cfg.Device.Endpoint)
	assert.Equal(t, 115200, cfg.Device.Rate)
	assert.Equal(t, time.Second, cfg.Device.ReadTimeout)
	assert.Equal(t, 10*time.Millisecond, cfg.Device.IdlePollInterval)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "calc-bridge", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("CALC_BRIDGE_DEVICE_ENDPOINT", "/dev/ttyACM0")
	t.Setenv("CALC_BRIDGE_DEVICE_RATE", "9600")
	t.Setenv("CALC_BRIDGE_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Device.Endpoint)
	assert.Equal(t, 9600, cfg.Device.Rate)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad log level", "CALC_BRIDGE_LOGGING_LEVEL", "verbose"},
		{"bad environment", "CALC_BRIDGE_APP_ENVIRONMENT", "prod"},
		{"zero rate", "CALC_BRIDGE_DEVICE_RATE", "0"},
		{"zero read timeout", "CALC_BRIDGE_DEVICE_READ_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}
