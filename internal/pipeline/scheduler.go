package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/emsysdev/accelspec/internal/spectral"
	"github.com/emsysdev/accelspec/pkg/spatial"
)

// Sink receives one summary row per axis per completed window.
type Sink interface {
	Append(axis spatial.Axis, ts time.Time, values []float64) error
}

// Config holds the scheduler's sizing and behavior knobs.
type Config struct {
	SampleRate      int
	PipelineLength  int
	AverageInterval int
	MaxFrequency    int
	Mode            spectral.Mode

	// PollInterval is the consumer loop cadence. Default 2ms.
	PollInterval time.Duration

	// Clock stamps summary rows. Default time.Now.
	Clock func() time.Time

	Logger logging.Logger
}

// Stats are cumulative pipeline counters.
type Stats struct {
	FramesProcessed uint64
	RowsEmitted     uint64
	Overruns        uint64
	SinkErrors      uint64
}

// Scheduler orchestrates the two actors of the sample pipeline. The
// producer face, Ingest, is called from the data source callback and
// must stay fast: it copies samples into the frame store and flips
// ready flags. The consumer face, Run, polls the store on its own
// cadence, transforms ready frames, accumulates spectra and emits
// summary rows once per completed window.
type Scheduler struct {
	store    *FrameStore
	analyzer *spectral.Analyzer
	acc      *spectral.Accumulator
	sink     Sink

	pollInterval time.Duration
	clock        func() time.Time
	logger       logging.Logger

	// Producer state. Only the ingest caller touches offset and
	// dropping; head is read by the consumer for its lookahead scan.
	head     atomic.Int64
	offset   int
	dropping bool

	spectrum []float64 // consumer scratch

	framesProcessed atomic.Uint64
	rowsEmitted     atomic.Uint64
	overruns        atomic.Uint64
	sinkErrors      atomic.Uint64
}

// NewScheduler builds the pipeline around a sink for summary rows.
func NewScheduler(cfg Config, sink Sink) (*Scheduler, error) {
	if sink == nil {
		return nil, fmt.Errorf("scheduler requires a row sink")
	}
	store, err := NewFrameStore(cfg.PipelineLength, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	acc, err := spectral.NewAccumulator(cfg.Mode, cfg.SampleRate, cfg.AverageInterval, cfg.MaxFrequency)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Millisecond
	}

	return &Scheduler{
		store:        store,
		analyzer:     spectral.NewAnalyzer(cfg.SampleRate),
		acc:          acc,
		sink:         sink,
		pollInterval: pollInterval,
		clock:        clock,
		logger:       logger,
		spectrum:     make([]float64, cfg.SampleRate/2+1),
	}, nil
}

// Ingest copies a batch of samples into the frame store. Called from
// the data source's delivery goroutine; never blocks. When the consumer
// has fallen a full pipeline cycle behind, the incoming second is
// dropped and reported rather than overwriting an unconsumed slot.
func (s *Scheduler) Ingest(batch []spatial.Sample) {
	head := int(s.head.Load())
	for _, sample := range batch {
		if s.offset == 0 && !s.dropping && s.store.Ready(head) {
			s.overruns.Add(1)
			s.dropping = true
			s.logger.Warn("Pipeline overrun, dropping incoming samples", logging.Fields{
				"slot":     head,
				"overruns": s.overruns.Load(),
			})
		}
		if !s.dropping {
			for axis := spatial.Axis(0); axis < spatial.NumAxes; axis++ {
				s.store.WriteSample(head, axis, s.offset, sample[axis])
			}
		}
		s.offset++
		if s.offset < s.store.SampleRate() {
			continue
		}
		s.offset = 0
		if s.dropping {
			// Dropped a full second; re-check the slot next second.
			s.dropping = false
			continue
		}
		if overrun := s.store.MarkReady(head); overrun {
			// Unreachable given the pre-write check, but the flag
			// state must win over the producer either way.
			s.overruns.Add(1)
			s.logger.Warn("Slot still ready at publish, keeping old frame", logging.Fields{
				"slot": head,
			})
		}
		head = (head + 1) % s.store.Slots()
		s.head.Store(int64(head))
	}
}

// Run polls the frame store until ctx is canceled. Any partially filled
// accumulation window at shutdown is discarded.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Debug("Pipeline consumer loop starting", logging.Fields{
		"poll_interval": s.pollInterval.String(),
		"slots":         s.store.Slots(),
	})
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Pipeline consumer loop stopped", logging.Fields{
				"frames_processed": s.framesProcessed.Load(),
				"rows_emitted":     s.rowsEmitted.Load(),
				"overruns":         s.overruns.Load(),
			})
			return
		case <-ticker.C:
			s.drain()
		}
	}
}

// drain is one consumer pass: scan every slot at a fixed lookahead
// offset from the producer's write head so the scan visits slots
// comfortably behind the slot currently being filled.
func (s *Scheduler) drain() {
	slots := s.store.Slots()
	head := int(s.head.Load())
	lookahead := slots / 10

	for k := 0; k < slots; k++ {
		slot := (head + k + lookahead) % slots
		frames, ok := s.store.TryTake(slot)
		if !ok {
			continue
		}
		for axis := spatial.Axis(0); axis < spatial.NumAxes; axis++ {
			s.spectrum = s.analyzer.AmplitudeSpectrum(frames[axis], s.spectrum)
			s.acc.Add(axis, s.spectrum)
		}
		s.framesProcessed.Add(1)

		if s.acc.WindowComplete() {
			s.emit()
		}
	}
}

// emit reduces each axis's window and hands the rows to the sink. Sink
// failures lose that row only; the pipeline keeps running.
func (s *Scheduler) emit() {
	ts := s.clock()
	for axis := spatial.Axis(0); axis < spatial.NumAxes; axis++ {
		values := s.acc.ReduceAndReset(axis)
		if err := s.sink.Append(axis, ts, values); err != nil {
			s.sinkErrors.Add(1)
			s.logger.Error(err, "Failed to emit summary row", logging.Fields{
				"axis": axis.Letter(),
			})
			continue
		}
		s.rowsEmitted.Add(1)
	}
}

// Stats returns a snapshot of the pipeline counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		FramesProcessed: s.framesProcessed.Load(),
		RowsEmitted:     s.rowsEmitted.Load(),
		Overruns:        s.overruns.Load(),
		SinkErrors:      s.sinkErrors.Load(),
	}
}
