// Package output persists summary rows and the optional raw signal
// stream to per-day files in the configured output directory.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/emsysdev/accelspec/pkg/spatial"
)

// Marker is the fixed tag embedded in every output file name.
const Marker = "accel"

// Writer appends summary rows to one CSV file per calendar day per
// axis. Files are created with a header row on first write; the day
// roll falls out of resolving the file name from the row timestamp on
// every append.
type Writer struct {
	dir     string
	maxFreq int
	logger  logging.Logger
}

// NewWriter creates a writer rooted at dir for rows of maxFreq+1 bins.
func NewWriter(dir string, maxFreq int, logger logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Writer{
		dir:     dir,
		maxFreq: maxFreq,
		logger: logger.WithFields(logging.Fields{
			"component": "csv_writer",
			"directory": dir,
		}),
	}
}

// FileName returns the CSV path for the given axis and local day.
func (w *Writer) FileName(axis spatial.Axis, ts time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.csv", ts.Format("2006-01-02"), axis.Letter(), Marker)
	return filepath.Join(w.dir, name)
}

// Append writes one summary row, creating the day's file with a header
// when it does not exist yet.
func (w *Writer) Append(axis spatial.Axis, ts time.Time, values []float64) error {
	name := w.FileName(axis, ts)

	header := false
	if _, err := os.Stat(name); os.IsNotExist(err) {
		header = true
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open output file %s: %w", name, err)
	}

	var sb strings.Builder
	if header {
		sb.WriteString("timestamp")
		for k := 0; k <= w.maxFreq; k++ {
			fmt.Fprintf(&sb, ",%d Hz", k)
		}
		sb.WriteByte('\n')
		w.logger.Debug("Created output file", logging.Fields{
			"file": name,
			"axis": axis.Letter(),
		})
	}

	sb.WriteString(ts.Format("2006-01-02 15:04:05"))
	for _, v := range values {
		fmt.Fprintf(&sb, ",%f", v)
	}
	sb.WriteByte('\n')

	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return fmt.Errorf("could not append to output file %s: %w", name, err)
	}
	return f.Close()
}
