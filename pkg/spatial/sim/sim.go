// Package sim provides a synthetic spatial.Source that emits deterministic
// triaxial waveforms at a configured data rate. It stands in for real
// hardware in demos and end-to-end tests.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/emsysdev/accelspec/pkg/spatial"
)

// Tone is one sinusoidal component on a single axis.
type Tone struct {
	FreqHz    float64
	Amplitude float64
}

// Config controls the synthetic waveform.
type Config struct {
	// Tones per axis; an axis with no tones emits zeros (plus noise).
	Tones [spatial.NumAxes][]Tone

	// NoiseAmplitude adds uniform noise in [-a, a] to every sample.
	NoiseAmplitude float64

	// Seed for the noise generator. Same seed, same signal.
	Seed int64

	// BatchInterval is the delivery cadence; samples accumulate between
	// ticks and are handed to OnData in one batch, mirroring how real
	// sensors deliver event batches. Default 8ms.
	BatchInterval time.Duration
}

// Source is a synthetic sensor. It attaches immediately on Open.
type Source struct {
	cfg      Config
	handlers spatial.Handlers

	mu      sync.Mutex
	rateHz  int
	opened  bool
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Compile-time interface check.
var _ spatial.Source = (*Source)(nil)

// New creates a synthetic source with the given waveform config.
func New(cfg Config) *Source {
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = 8 * time.Millisecond
	}
	return &Source{cfg: cfg}
}

func (s *Source) deviceInfo() spatial.DeviceInfo {
	return spatial.DeviceInfo{
		DeviceType:       "Simulated Spatial",
		SerialNumber:     100000 + int(s.cfg.Seed%900000),
		Version:          1,
		AccelAxisCount:   spatial.NumAxes,
		GyroAxisCount:    0,
		CompassAxisCount: 0,
		DataRateMax:      1000,
		DataRateMin:      1,
	}
}

// Open registers handlers and reports an immediate attach.
func (s *Source) Open(h spatial.Handlers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return fmt.Errorf("sim: source already open")
	}
	s.opened = true
	s.handlers = h
	if h.OnAttach != nil {
		h.OnAttach(s.deviceInfo())
	}
	return nil
}

// WaitAttachment always succeeds once the source is open.
func (s *Source) WaitAttachment(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return spatial.ErrNotAttached
	}
	return nil
}

// Info returns the simulated device metadata.
func (s *Source) Info() (spatial.DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return spatial.DeviceInfo{}, spatial.ErrNotAttached
	}
	return s.deviceInfo(), nil
}

// SetDataRate starts sample delivery at the given rate.
func (s *Source) SetDataRate(hz int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return spatial.ErrNotAttached
	}
	if hz < 1 || hz > 1000 {
		return fmt.Errorf("sim: data rate %d out of range [1, 1000]", hz)
	}
	if s.running {
		return fmt.Errorf("sim: data rate already set")
	}
	s.rateHz = hz
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(hz, s.handlers.OnData, s.stop, s.done)
	return nil
}

func (s *Source) run(rateHz int, onData func([]spatial.Sample), stop chan struct{}, done chan struct{}) {
	defer close(done)

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	ticker := time.NewTicker(s.cfg.BatchInterval)
	defer ticker.Stop()

	samplePeriod := 1.0 / float64(rateHz)
	var n int64 // samples emitted so far
	start := time.Now()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			// Emit every sample whose nominal timestamp has passed.
			due := int64(now.Sub(start).Seconds() * float64(rateHz))
			if due <= n {
				continue
			}
			batch := make([]spatial.Sample, 0, due-n)
			for ; n < due; n++ {
				t := float64(n) * samplePeriod
				var sample spatial.Sample
				for axis := 0; axis < spatial.NumAxes; axis++ {
					v := 0.0
					for _, tone := range s.cfg.Tones[axis] {
						v += tone.Amplitude * math.Sin(2*math.Pi*tone.FreqHz*t)
					}
					if s.cfg.NoiseAmplitude > 0 {
						v += s.cfg.NoiseAmplitude * (2*rng.Float64() - 1)
					}
					sample[axis] = v
				}
				batch = append(batch, sample)
			}
			if onData != nil {
				onData(batch)
			}
		}
	}
}

// Close stops delivery and reports a detach.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}
	if s.running {
		close(s.stop)
		<-s.done
		s.running = false
	}
	s.opened = false
	if s.handlers.OnDetach != nil {
		s.handlers.OnDetach(s.deviceInfo())
	}
	return nil
}
