package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/go-audio/wav"

	"github.com/emsysdev/accelspec/internal/spectral"
	"github.com/emsysdev/accelspec/pkg/spatial"
)

// MaxG is the acceleration mapped to full scale (1.0) in the raw
// stream; the sensor's useful vibration range is a few milli-g.
const MaxG = 0.005

const wavFloatFormat = 3 // IEEE float

// WavWriter emits the optional raw signal path: triaxial samples,
// scaled to full scale and detrended by an exponential baseline
// tracker, written as 3-channel 32-bit float frames to one WAV file per
// calendar day. The baseline reseeds whenever a new file opens so a
// fresh stream starts without a ramp transient.
type WavWriter struct {
	dir        string
	sampleRate int
	baseline   *spectral.Baseline
	clock      func() time.Time
	logger     logging.Logger

	day  string
	file *os.File
	enc  *wav.Encoder
}

// NewWavWriter creates a raw stream writer rooted at dir.
func NewWavWriter(dir string, sampleRate int, tauSeconds float64, logger logging.Logger) *WavWriter {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &WavWriter{
		dir:        dir,
		sampleRate: sampleRate,
		baseline:   spectral.NewBaseline(tauSeconds, sampleRate),
		clock:      time.Now,
		logger: logger.WithFields(logging.Fields{
			"component": "wav_writer",
			"directory": dir,
		}),
	}
}

// WriteBatch appends one delivery batch to the current day's file. The
// day-roll check runs once per batch, on its first sample, mirroring
// the per-event cadence of the data source. Write failures are
// returned; the caller logs and keeps the pipeline running.
func (w *WavWriter) WriteBatch(batch []spatial.Sample) error {
	if len(batch) == 0 {
		return nil
	}
	if err := w.roll(); err != nil {
		return err
	}
	for _, sample := range batch {
		var scaled spatial.Sample
		for i := range sample {
			scaled[i] = sample[i] / MaxG
		}
		detrended := w.baseline.Update(scaled)
		for i := range detrended {
			if err := w.enc.WriteFrame(float32(detrended[i])); err != nil {
				return fmt.Errorf("could not write raw frame: %w", err)
			}
		}
	}
	return nil
}

// roll opens a new file when the local day changes. The RIFF encoder
// finalizes its header on close and cannot resume an existing file, so
// a restart within the same day writes to a numbered sibling instead of
// clobbering the earlier recording.
func (w *WavWriter) roll() error {
	day := w.clock().Format("2006-01-02")
	if w.enc != nil && day == w.day {
		return nil
	}
	if err := w.Close(); err != nil {
		w.logger.Error(err, "Failed closing previous raw file")
	}

	name := filepath.Join(w.dir, fmt.Sprintf("%s_%s.wav", day, Marker))
	for n := 1; ; n++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			break
		}
		name = filepath.Join(w.dir, fmt.Sprintf("%s_%s-%d.wav", day, Marker, n))
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("could not create raw output file %s: %w", name, err)
	}
	w.file = f
	w.enc = wav.NewEncoder(f, w.sampleRate, 32, spatial.NumAxes, wavFloatFormat)
	w.day = day
	w.baseline.Reset()

	w.logger.Info("Opened raw output file", logging.Fields{
		"file":        name,
		"sample_rate": w.sampleRate,
	})
	return nil
}

// Close finalizes the current day's file, if any.
func (w *WavWriter) Close() error {
	if w.enc == nil {
		return nil
	}
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	w.enc = nil
	w.file = nil
	if encErr != nil {
		return fmt.Errorf("could not finalize raw output file: %w", encErr)
	}
	return fileErr
}
