package report

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratumworks/reservoir-wellsim/internal/sim/state"
	"github.com/stratumworks/reservoir-wellsim/model"
)

func sampleOutcome(step int) *state.StepOutcome {
	return &state.StepOutcome{
		Step:        step,
		SimTime:     float64(step) * 3600,
		RunID:       "run-report-test",
		Switched:    []string{"P-1"},
		ClosedWells: []string{"P-2"},
		Wells: []state.WellRecord{
			{
				Name:           "P-1",
				Status:         model.WellOpen,
				Control:        "WRAT",
				Switched:       true,
				BHP:            200e5,
				THP:            20e5,
				SurfaceRates:   []float64{-100, -100, -100},
				ReservoirRates: []float64{-102, -125, -0.5},
			},
			{
				Name:    "P-2",
				Status:  model.WellShut,
				Control: "ORAT",
				BHP:     1e5,
			},
		},
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	for step := 0; step < 3; step++ {
		require.NoError(t, w.AppendOutcome(sampleOutcome(step)))
	}
	assert.Equal(t, 3, w.Steps())
	require.NoError(t, w.Close())

	reps, err := ReadAll(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, reps, 3)

	for step, rep := range reps {
		assert.Equal(t, step, rep.Step)
		assert.Equal(t, float64(step)*3600, rep.SimTime)
		assert.Equal(t, "run-report-test", rep.RunID)
		assert.Equal(t, []string{"P-1"}, rep.Switched)
		assert.Equal(t, []string{"P-2"}, rep.ClosedWells)
		require.Len(t, rep.Wells, 2)

		p1 := rep.Wells[0]
		assert.Equal(t, "P-1", p1.Name)
		assert.Equal(t, "OPEN", p1.Status)
		assert.Equal(t, "WRAT", p1.Control)
		assert.True(t, p1.Switched)
		assert.Equal(t, []float64{-100, -100, -100}, p1.SurfaceRates)
		assert.Equal(t, []float64{-102, -125, -0.5}, p1.ReservoirRates)

		p2 := rep.Wells[1]
		assert.Equal(t, "SHUT", p2.Status)
		assert.False(t, p2.Switched)
	}
}

func TestWriterFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.wsr")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.AppendOutcome(sampleOutcome(0)))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	rep, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Step)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestAppendAfterClose(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	require.NoError(t, w.Close())

	err := w.Append(FromOutcome(sampleOutcome(0)))
	assert.ErrorIs(t, err, ErrClosed)

	// Closing twice stays quiet.
	assert.NoError(t, w.Close())
}

func TestReaderTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.AppendOutcome(sampleOutcome(0)))
	require.NoError(t, w.Close())

	cut := buf.Bytes()[:buf.Len()-4]
	r := NewReader(bytes.NewReader(cut))

	_, err := r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFromOutcomeCopiesSlices(t *testing.T) {
	out := sampleOutcome(0)
	rep := FromOutcome(out)

	rep.Wells[0].SurfaceRates[0] = 999
	rep.Switched[0] = "clobbered"

	assert.Equal(t, -100.0, out.Wells[0].SurfaceRates[0])
	assert.Equal(t, "P-1", out.Switched[0])
}
