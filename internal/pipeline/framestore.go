package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/emsysdev/accelspec/pkg/spatial"
)

// FrameStore holds a ring of pipeline slots, each storing one second of
// samples for all three axes plus a ready flag. The producer fills a
// slot and marks it ready; the consumer takes ready slots and clears
// the flag. The flag is the only synchronization between the two: its
// atomic store publishes the slot's samples (release) and its atomic
// load on take acquires them. Neither side ever blocks on the other.
//
// All frame memory is allocated once at construction.
type FrameStore struct {
	sampleRate int
	frames     [][spatial.NumAxes][]float64
	ready      []atomic.Bool
}

// NewFrameStore creates a store of slots × 3 axes × sampleRate samples.
func NewFrameStore(slots, sampleRate int) (*FrameStore, error) {
	if slots < 2 {
		return nil, fmt.Errorf("pipeline length must be at least 2, got %d", slots)
	}
	if sampleRate < 1 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	fs := &FrameStore{
		sampleRate: sampleRate,
		frames:     make([][spatial.NumAxes][]float64, slots),
		ready:      make([]atomic.Bool, slots),
	}
	for j := range fs.frames {
		for axis := range fs.frames[j] {
			fs.frames[j][axis] = make([]float64, sampleRate)
		}
	}
	return fs, nil
}

// Slots returns the pipeline length.
func (fs *FrameStore) Slots() int {
	return len(fs.frames)
}

// SampleRate returns the frame length in samples.
func (fs *FrameStore) SampleRate() int {
	return fs.sampleRate
}

// Ready reports whether the slot holds an unconsumed frame. The
// producer checks this before starting to fill a slot; writing a ready
// slot would corrupt data already visible to the consumer.
func (fs *FrameStore) Ready(slot int) bool {
	return fs.ready[slot].Load()
}

// WriteSample stores one value. The caller holds the producer role and
// guarantees offset < sampleRate and that the slot is not ready.
func (fs *FrameStore) WriteSample(slot int, axis spatial.Axis, offset int, v float64) {
	fs.frames[slot][axis][offset] = v
}

// MarkReady publishes a fully written slot to the consumer. Producer
// only. If the slot is still ready from a previous cycle the call
// reports an overrun and leaves the flag and the old frames untouched:
// old data wins until consumed.
func (fs *FrameStore) MarkReady(slot int) (overrun bool) {
	return !fs.ready[slot].CompareAndSwap(false, true)
}

// TryTake returns the slot's three frames and clears the ready flag, or
// ok=false if the slot has no unconsumed frame. Consumer only. The
// frames are returned by reference and remain valid until the producer
// wraps back onto the slot, which the flag discipline defers until at
// least one full pipeline cycle after the take.
func (fs *FrameStore) TryTake(slot int) (frames [spatial.NumAxes][]float64, ok bool) {
	if !fs.ready[slot].CompareAndSwap(true, false) {
		return frames, false
	}
	return fs.frames[slot], true
}
