package configs

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets default configuration values for all components
func setDefaults(v *viper.Viper) {
	// Sensor defaults
	if !v.IsSet("sensor.sample_rate") {
		v.Set("sensor.sample_rate", 1000)
	}
	if !v.IsSet("sensor.attach_timeout") {
		v.Set("sensor.attach_timeout", 10*time.Second)
	}
	if !v.IsSet("sensor.retry_backoff") {
		v.Set("sensor.retry_backoff", 5*time.Second)
	}
	if !v.IsSet("sensor.simulate") {
		v.Set("sensor.simulate", false)
	}

	// Spectral defaults
	if !v.IsSet("spectral.average_interval") {
		v.Set("spectral.average_interval", 10)
	}
	if !v.IsSet("spectral.max_frequency") {
		v.Set("spectral.max_frequency", 150)
	}
	if !v.IsSet("spectral.calcmax") {
		v.Set("spectral.calcmax", false)
	}
	if !v.IsSet("spectral.tau_seconds") {
		v.Set("spectral.tau_seconds", 10.0)
	}

	// Pipeline defaults: 100 slots gives the consumer ~100 seconds of
	// headroom before an overrun.
	if !v.IsSet("pipeline.length") {
		v.Set("pipeline.length", 100)
	}
	if !v.IsSet("pipeline.poll_interval") {
		v.Set("pipeline.poll_interval", 2*time.Millisecond)
	}

	// Output defaults
	if !v.IsSet("output.directory") {
		v.Set("output.directory", ".")
	}
	if !v.IsSet("output.wav") {
		v.Set("output.wav", false)
	}

	// Publish defaults (disabled until a broker is configured)
	if !v.IsSet("publish.topic") {
		v.Set("publish.topic", "accelspec")
	}
	if !v.IsSet("publish.qos") {
		v.Set("publish.qos", 0)
	}
}

// SetDefaults applies defaults to the global viper instance
func SetDefaults() {
	setDefaults(viper.GetViper())
}
