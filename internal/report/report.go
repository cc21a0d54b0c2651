// Package report persists evaluated report steps as a stream of
// length-prefixed msgpack records, one per step, so a run can be
// replayed or inspected without the simulator.
package report

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/shamaton/msgpack/v2"

	"github.com/stratumworks/reservoir-wellsim/internal/sim/state"
)

// maxFrameSize bounds a single record so a corrupt length prefix cannot
// drive a huge allocation.
const maxFrameSize = 64 << 20

var (
	ErrClosed      = errors.New("report: writer closed")
	ErrFrameTooBig = errors.New("report: frame exceeds size limit")
)

// WellReport is the persisted view of one well after a step.
type WellReport struct {
	Name           string
	Status         string
	Control        string
	Switched       bool
	BHP            float64
	THP            float64
	SurfaceRates   []float64
	ReservoirRates []float64
}

// StepReport is the persisted form of one evaluated report step.
type StepReport struct {
	Step    int
	SimTime float64
	RunID   string

	Switched    []string
	ClosedWells []string
	Wells       []WellReport
}

// FromOutcome converts a step outcome into its persisted form.
func FromOutcome(out *state.StepOutcome) StepReport {
	rep := StepReport{
		Step:        out.Step,
		SimTime:     out.SimTime,
		RunID:       out.RunID,
		Switched:    append([]string(nil), out.Switched...),
		ClosedWells: append([]string(nil), out.ClosedWells...),
		Wells:       make([]WellReport, 0, len(out.Wells)),
	}
	for _, w := range out.Wells {
		rep.Wells = append(rep.Wells, WellReport{
			Name:           w.Name,
			Status:         w.Status.String(),
			Control:        w.Control,
			Switched:       w.Switched,
			BHP:            w.BHP,
			THP:            w.THP,
			SurfaceRates:   append([]float64(nil), w.SurfaceRates...),
			ReservoirRates: append([]float64(nil), w.ReservoirRates...),
		})
	}
	return rep
}

// Writer appends step reports to an underlying stream. Each record is a
// uvarint length prefix followed by the msgpack body. Writers are safe
// for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	steps  int
	closed bool
}

// NewWriter wraps an open stream. The caller keeps ownership of w; Close
// only flushes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Create opens (or truncates) the file at path for writing. Close flushes
// and closes the file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create %s: %w", path, err)
	}
	return &Writer{w: bufio.NewWriter(f), closer: f}, nil
}

// Append writes one step record to the stream.
func (w *Writer) Append(rep StepReport) error {
	body, err := msgpack.Marshal(rep)
	if err != nil {
		return fmt.Errorf("report: encode step %d: %w", rep.Step, err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooBig, len(body))
	}

	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(body)))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.w.Write(prefix[:n]); err != nil {
		return fmt.Errorf("report: write step %d: %w", rep.Step, err)
	}
	if _, err := w.w.Write(body); err != nil {
		return fmt.Errorf("report: write step %d: %w", rep.Step, err)
	}
	w.steps++
	return nil
}

// AppendOutcome converts and writes a step outcome in one call.
func (w *Writer) AppendOutcome(out *state.StepOutcome) error {
	return w.Append(FromOutcome(out))
}

// Steps returns the number of records appended so far.
func (w *Writer) Steps() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps
}

// Close flushes buffered records and, when the writer owns the file,
// closes it. Appending after Close returns ErrClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return fmt.Errorf("report: close: %w", err)
		}
	}
	return nil
}

// Reader decodes step records in sequence.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
}

// NewReader wraps an open stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Open opens the report file at path for reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %s: %w", path, err)
	}
	return &Reader{r: bufio.NewReader(f), closer: f}, nil
}

// Next returns the next record. It returns io.EOF at a clean end of
// stream and io.ErrUnexpectedEOF when a record is cut short.
func (r *Reader) Next() (StepReport, error) {
	var rep StepReport

	length, err := binary.ReadUvarint(r.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return rep, io.EOF
		}
		return rep, fmt.Errorf("report: read frame length: %w", err)
	}
	if length > maxFrameSize {
		return rep, fmt.Errorf("%w: %d bytes", ErrFrameTooBig, length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return rep, fmt.Errorf("report: truncated frame: %w", io.ErrUnexpectedEOF)
		}
		return rep, fmt.Errorf("report: read frame: %w", err)
	}

	if err := msgpack.Unmarshal(body, &rep); err != nil {
		return rep, fmt.Errorf("report: decode frame: %w", err)
	}
	return rep, nil
}

// Close closes the underlying file when the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadAll decodes every record remaining in the stream.
func ReadAll(r io.Reader) ([]StepReport, error) {
	rd := NewReader(r)
	var out []StepReport
	for {
		rep, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rep)
	}
}
