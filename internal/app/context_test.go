package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emsysdev/accelspec/configs"
	"github.com/emsysdev/accelspec/pkg/spatial"
	"github.com/emsysdev/accelspec/pkg/spatial/sim"
)

func testConfig(dir string) *configs.Config {
	return &configs.Config{
		Sensor: configs.SensorConfig{
			SampleRate:    100,
			AttachTimeout: time.Second,
			RetryBackoff:  100 * time.Millisecond,
			Simulate:      true,
		},
		Spectral: configs.SpectralConfig{
			AverageInterval: 1,
			MaxFrequency:    20,
			TauSeconds:      10,
		},
		Pipeline: configs.PipelineConfig{
			Length:       100,
			PollInterval: 2 * time.Millisecond,
		},
		Output: configs.OutputConfig{Directory: dir},
	}
}

func TestNewRequiresConfigAndSource(t *testing.T) {
	_, err := New(&Context{Source: sim.New(sim.Config{})})
	assert.Error(t, err)

	_, err = New(&Context{Config: testConfig(t.TempDir())})
	assert.Error(t, err)
}

func TestRunInfoMode(t *testing.T) {
	application, err := New(&Context{
		Config:   testConfig(t.TempDir()),
		Source:   sim.New(sim.Config{Seed: 5}),
		InfoOnly: true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, application.Run(ctx))
}

// TestRunCaptureProducesSummaryFiles drives the whole stack against the
// synthetic source in real time, so it needs a couple of seconds.
func TestRunCaptureProducesSummaryFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("real-time capture test")
	}

	dir := t.TempDir()
	application, err := New(&Context{
		Config: testConfig(dir),
		Source: sim.New(sim.Config{
			Tones: [spatial.NumAxes][]sim.Tone{
				{{FreqHz: 10, Amplitude: 0.001}},
				{},
				{},
			},
			Seed: 11,
		}),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	// Wait for the first complete window to land on disk.
	day := time.Now().Format("2006-01-02")
	deadline := time.Now().Add(15 * time.Second)
	var found bool
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(dir, day+"_x_accel.csv")); err == nil {
			found = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	cancel()
	require.NoError(t, <-done)
	require.True(t, found, "no summary file appeared")

	for _, axis := range []string{"x", "y", "z"} {
		_, err := os.Stat(filepath.Join(dir, day+"_"+axis+"_accel.csv"))
		assert.NoErrorf(t, err, "axis %s", axis)
	}
}
