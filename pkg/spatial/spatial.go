package spatial

import (
	"errors"
	"time"
)

// Axis identifies one of the three acceleration axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ

	// NumAxes is fixed for triaxial sensors.
	NumAxes = 3
)

// Letter returns the lowercase axis letter used in output file names.
func (a Axis) Letter() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "?"
}

// Sample is one triaxial reading in g, ordered x, y, z.
type Sample [NumAxes]float64

// DeviceInfo contains metadata about an attached sensor, as reported
// by the device itself.
type DeviceInfo struct {
	DeviceType       string `json:"device_type"`
	SerialNumber     int    `json:"serial_number"`
	Version          int    `json:"version"`
	AccelAxisCount   int    `json:"accel_axis_count"`
	GyroAxisCount    int    `json:"gyro_axis_count"`
	CompassAxisCount int    `json:"compass_axis_count"`
	DataRateMax      int    `json:"data_rate_max"`
	DataRateMin      int    `json:"data_rate_min"`
}

// Handlers holds the callbacks a Source fires. Any handler may be nil.
//
// OnData is invoked from the source's delivery goroutine with a batch of
// one or more samples; it must return quickly and must never block on the
// consumer side of the pipeline.
type Handlers struct {
	OnAttach func(info DeviceInfo)
	OnDetach func(info DeviceInfo)
	OnError  func(code int, description string)
	OnData   func(batch []Sample)
}

// ErrNotAttached is returned by WaitAttachment when no device shows up
// within the given timeout. Callers retry with backoff.
var ErrNotAttached = errors.New("spatial: device not attached")

// Source abstracts the physical sensor. Open registers the handlers and
// begins watching for the device; samples start flowing only after
// SetDataRate has been called on an attached device.
type Source interface {
	Open(h Handlers) error
	WaitAttachment(timeout time.Duration) error
	Info() (DeviceInfo, error)
	SetDataRate(hz int) error
	Close() error
}
