package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/emsysdev/accelspec/internal/publish"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose  bool   `mapstructure:"verbose"`
	LogLevel string `mapstructure:"log_level"`

	// Sensor settings
	Sensor SensorConfig `mapstructure:"sensor"`

	// Spectral analysis settings
	Spectral SpectralConfig `mapstructure:"spectral"`

	// Pipeline sizing
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// Output settings
	Output OutputConfig `mapstructure:"output"`

	// Optional MQTT mirroring of summary rows
	Publish publish.Config `mapstructure:"publish"`
}

// SensorConfig contains data source settings
type SensorConfig struct {
	SampleRate    int           `mapstructure:"sample_rate"`
	AttachTimeout time.Duration `mapstructure:"attach_timeout"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	Simulate      bool          `mapstructure:"simulate"`
}

// SpectralConfig contains accumulation and reduction settings
type SpectralConfig struct {
	AverageInterval int     `mapstructure:"average_interval"`
	MaxFrequency    int     `mapstructure:"max_frequency"`
	CalcMax         bool    `mapstructure:"calcmax"`
	TauSeconds      float64 `mapstructure:"tau_seconds"`
}

// PipelineConfig contains frame pipeline sizing
type PipelineConfig struct {
	Length       int           `mapstructure:"length"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// OutputConfig contains output file settings
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
	WAV       bool   `mapstructure:"wav"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Sensor.SampleRate < 1 {
		return fmt.Errorf("sensor sample rate must be positive")
	}

	if config.Sensor.AttachTimeout <= 0 {
		return fmt.Errorf("sensor attach timeout must be positive")
	}

	if config.Sensor.RetryBackoff <= 0 {
		return fmt.Errorf("sensor retry backoff must be positive")
	}

	if config.Spectral.AverageInterval < 1 {
		return fmt.Errorf("averaging interval must be at least 1 second")
	}

	if config.Spectral.MaxFrequency < 0 {
		return fmt.Errorf("max frequency cannot be negative")
	}

	if config.Spectral.MaxFrequency > config.Sensor.SampleRate/2 {
		return fmt.Errorf("max frequency %d exceeds the Nyquist limit for sample rate %d",
			config.Spectral.MaxFrequency, config.Sensor.SampleRate)
	}

	if config.Spectral.TauSeconds <= 0 {
		return fmt.Errorf("baseline tau must be positive")
	}

	if config.Pipeline.Length < 2 {
		return fmt.Errorf("pipeline length must be at least 2")
	}

	if config.Pipeline.PollInterval <= 0 {
		return fmt.Errorf("pipeline poll interval must be positive")
	}

	if config.Output.Directory == "" {
		return fmt.Errorf("output directory cannot be empty")
	}

	return nil
}
