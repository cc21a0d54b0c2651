package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stratumworks/reservoir-wellsim/core"
	"github.com/stratumworks/reservoir-wellsim/model"
	"github.com/stratumworks/reservoir-wellsim/sched"
)

// steadyProducer builds an open producer flowing 100 sm3/d of oil and
// 100 sm3/d of water (water cut one half, GOR one) with no decline, so
// every step sees the same surface rates.
func steadyProducer(name string, conns int) *model.Well {
	w := &model.Well{
		Name:             name,
		Group:            "PLAT-A",
		Producer:         true,
		Status:           model.WellOpen,
		PredictionMode:   true,
		EfficiencyFactor: 1.0,
		Rates: model.RateParams{
			OilRate:     100,
			WaterCut:    0.5,
			GasOilRatio: 1.0,
			BHP:         200e5,
			THP:         20e5,
		},
	}
	w.Production.Prediction = true
	for i := 0; i < conns; i++ {
		w.Connections = append(w.Connections, model.Connection{
			I: 1, J: 1, K: i + 1,
			Completion: -(i + 1),
			Open:       true,
		})
	}
	return w
}

// steadyInjector builds an open injector pushing the given fluid at a
// fixed surface rate through a single connection.
func steadyInjector(name string, fluid model.InjectorFluid, rate float64) *model.Well {
	w := &model.Well{
		Name:             name,
		Group:            "PLAT-A",
		Status:           model.WellOpen,
		PredictionMode:   true,
		EfficiencyFactor: 1.0,
		Connections: []model.Connection{
			{I: 1, J: 1, K: 1, Completion: -1, Open: true},
		},
		Rates: model.RateParams{
			InjectionRate: rate,
			BHP:           250e5,
			THP:           30e5,
		},
	}
	w.Injection.Fluid = fluid
	return w
}

// testSchedule registers FIELD, PLAT-A under it, and the given wells over
// an open-ended range starting at step zero.
func testSchedule(t *testing.T, wells ...*model.Well) *sched.Schedule {
	t.Helper()
	s := sched.NewSchedule()
	if err := s.AddGroup(&model.Group{Name: "FIELD"}, 0, -1); err != nil {
		t.Fatalf("AddGroup FIELD: %v", err)
	}
	if err := s.AddGroup(&model.Group{Name: "PLAT-A", Parent: "FIELD"}, 0, -1); err != nil {
		t.Fatalf("AddGroup PLAT-A: %v", err)
	}
	for _, w := range wells {
		if err := s.AddWell(w, 0, -1); err != nil {
			t.Fatalf("AddWell %s: %v", w.Name, err)
		}
	}
	return s
}

// newTestRun builds a RunState over a unit-factor PVT table so reservoir
// rates equal surface rates.
func newTestRun(t *testing.T, sch *sched.Schedule, opts ...Option) *RunState {
	t.Helper()
	pu := core.ThreePhase()
	conv := core.NewTableRateConverter(pu, map[int]core.PVTProperties{
		0: {Bw: 1, Bo: 1, Bg: 1},
	})
	return NewRunState(sch, pu, conv, nil, opts...)
}

// advance runs one report step and fails the test on a fatal evaluation
// error.
func advance(t *testing.T, run *RunState, step int, simTime float64) *StepOutcome {
	t.Helper()
	out, err := run.AdvanceStep(context.Background(), step, simTime)
	if err != nil {
		t.Fatalf("AdvanceStep(%d): %v", step, err)
	}
	return out
}

func mustWellState(t *testing.T, run *RunState, name string) *core.WellState {
	t.Helper()
	ws, err := run.WellState(name)
	if err != nil {
		t.Fatalf("WellState(%q): %v", name, err)
	}
	return ws
}

func approxEqual(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	scale := want
	if scale < 0 {
		scale = -scale
	}
	return diff <= 1e-9*(1+scale)
}

func findRecord(t *testing.T, out *StepOutcome, name string) WellRecord {
	t.Helper()
	for _, rec := range out.Wells {
		if rec.Name == name {
			return rec
		}
	}
	t.Fatalf("no record for well %q in step %d outcome", name, out.Step)
	return WellRecord{}
}

type wellCounts struct {
	open, stopped, shut int
}

// recordingMetrics captures recorder calls for assertions. The state layer
// may invoke it from several goroutines of one step, so every method locks.
type recordingMetrics struct {
	mu          sync.Mutex
	switches    map[string][]string
	closures    map[string]string
	completions map[string]int
	stepsTimed  int
	counts      wellCounts
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		switches:    make(map[string][]string),
		closures:    make(map[string]string),
		completions: make(map[string]int),
	}
}

func (r *recordingMetrics) RecordModeSwitch(well, mode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.switches[well] = append(r.switches[well], mode)
}

func (r *recordingMetrics) RecordWellClosure(well, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closures[well] = reason
}

func (r *recordingMetrics) RecordCompletionClosure(well string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions[well]++
}

func (r *recordingMetrics) ObserveStepDuration(_ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepsTimed++
}

func (r *recordingMetrics) SetWellCounts(open, stopped, shut int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = wellCounts{open: open, stopped: stopped, shut: shut}
}

func (r *recordingMetrics) lastSwitch(well string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	modes := r.switches[well]
	if len(modes) == 0 {
		return ""
	}
	return modes[len(modes)-1]
}

func (r *recordingMetrics) closureReason(well string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closures[well]
}

func (r *recordingMetrics) completionClosures(well string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completions[well]
}

func (r *recordingMetrics) wellCounts() wellCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}
