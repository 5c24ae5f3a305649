package configs

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()

	config, err := LoadConfig()
	require.NoError(t, err)
	return config
}

func TestDefaultValues(t *testing.T) {
	config := loadDefaults(t)

	assert.Equal(t, 1000, config.Sensor.SampleRate)
	assert.Equal(t, 10, config.Spectral.AverageInterval)
	assert.Equal(t, 150, config.Spectral.MaxFrequency)
	assert.False(t, config.Spectral.CalcMax)
	assert.Equal(t, 10.0, config.Spectral.TauSeconds)
	assert.Equal(t, 100, config.Pipeline.Length)
	assert.Equal(t, 2*time.Millisecond, config.Pipeline.PollInterval)
	assert.Equal(t, ".", config.Output.Directory)
	assert.False(t, config.Output.WAV)
	assert.Empty(t, config.Publish.Broker)
}

func TestDefaultsValidate(t *testing.T) {
	config := loadDefaults(t)
	assert.NoError(t, ValidateConfig(config))
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Sensor.SampleRate = 0 }},
		{"zero attach timeout", func(c *Config) { c.Sensor.AttachTimeout = 0 }},
		{"zero retry backoff", func(c *Config) { c.Sensor.RetryBackoff = 0 }},
		{"zero interval", func(c *Config) { c.Spectral.AverageInterval = 0 }},
		{"negative max frequency", func(c *Config) { c.Spectral.MaxFrequency = -1 }},
		{"max frequency above nyquist", func(c *Config) { c.Spectral.MaxFrequency = 501 }},
		{"zero tau", func(c *Config) { c.Spectral.TauSeconds = 0 }},
		{"short pipeline", func(c *Config) { c.Pipeline.Length = 1 }},
		{"zero poll interval", func(c *Config) { c.Pipeline.PollInterval = 0 }},
		{"empty output directory", func(c *Config) { c.Output.Directory = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := loadDefaults(t)
			tt.mutate(config)
			assert.Error(t, ValidateConfig(config))
		})
	}
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("spectral.average_interval", 60)
	viper.Set("output.directory", "/var/lib/accelspec")
	SetDefaults()

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 60, config.Spectral.AverageInterval)
	assert.Equal(t, "/var/lib/accelspec", config.Output.Directory)
	assert.Equal(t, 1000, config.Sensor.SampleRate, "untouched keys keep defaults")
}
