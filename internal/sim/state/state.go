// Package state owns the mutable per-run data of a simulation: the
// dynamic well states, the group aggregates, and the well-test closure
// record, coordinated against the immutable schedule.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stratumworks/reservoir-wellsim/core"
	"github.com/stratumworks/reservoir-wellsim/logging"
	"github.com/stratumworks/reservoir-wellsim/model"
	"github.com/stratumworks/reservoir-wellsim/sched"
)

const tracerName = "github.com/stratumworks/reservoir-wellsim/internal/sim/state"

// ErrNoWellState indicates a well has no dynamic state yet, meaning it
// has not been active at any evaluated step.
var ErrNoWellState = errors.New("no state for well")

// RunMetricsRecorder receives run progress updates from the state layer.
type RunMetricsRecorder interface {
	RecordModeSwitch(well, mode string)
	RecordWellClosure(well, reason string)
	RecordCompletionClosure(well string)
	ObserveStepDuration(d time.Duration)
	SetWellCounts(open, stopped, shut int)
}

// RunState coordinates the dynamic state of one simulation run.
//
// The schedule it reads is shared and immutable apart from completion
// closures, which RunState itself applies; well states are owned here
// and mutated only inside AdvanceStep.
type RunState struct {
	// mu is the coarse run-level lock. AdvanceStep holds it for the whole
	// step so snapshot readers never observe a half-evaluated step.
	mu sync.RWMutex

	schedule *sched.Schedule
	pu       core.PhaseUsage
	conv     core.RateConverter

	runID string

	wells  map[string]*core.WellState
	groups *core.GroupState
	wtest  *core.WellTestState

	summary model.SummaryState

	log      logging.Logger
	metrics  RunMetricsRecorder
	comm     core.Communicator
	helper   core.GroupHelper
	physical core.PhysicalLimitChecker
	tracer   trace.Tracer

	// parallelism bounds the per-well goroutines of one phase; zero
	// means unbounded.
	parallelism int
}

// WellRecord is a copied view of one well's state after evaluation.
type WellRecord struct {
	Name           string
	Status         model.WellStatus
	Control        string
	Switched       bool
	BHP            float64
	THP            float64
	SurfaceRates   []float64
	ReservoirRates []float64
}

// StepOutcome summarises one evaluated report step.
type StepOutcome struct {
	Step    int
	SimTime float64
	RunID   string

	// Switched lists wells whose governing control changed this step,
	// ClosedWells the wells newly closed by the well-test pass. Both are
	// sorted by name.
	Switched    []string
	ClosedWells []string

	Wells []WellRecord
}

// Option customises RunState construction.
type Option func(*RunState)

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m RunMetricsRecorder) Option {
	return func(s *RunState) { s.metrics = m }
}

// WithCommunicator overrides the cross-rank reduction used during
// completion scans.
func WithCommunicator(c core.Communicator) Option {
	return func(s *RunState) { s.comm = c }
}

// WithGroupHelper overrides the group constraint helper.
func WithGroupHelper(h core.GroupHelper) Option {
	return func(s *RunState) { s.helper = h }
}

// WithPhysicalChecker attaches a physical closure hook run before the
// economic well tests.
func WithPhysicalChecker(p core.PhysicalLimitChecker) Option {
	return func(s *RunState) { s.physical = p }
}

// WithSummary seeds the summary-state vector limits resolve against.
func WithSummary(sum model.SummaryState) Option {
	return func(s *RunState) { s.summary = sum }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(s *RunState) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithParallelism bounds the number of wells evaluated concurrently.
func WithParallelism(n int) Option {
	return func(s *RunState) { s.parallelism = n }
}

// NewRunState wires a run against its schedule, phase layout, and rate
// converter. A nil logger falls back to the noop logger.
func NewRunState(schedule *sched.Schedule, pu core.PhaseUsage, conv core.RateConverter, log logging.Logger, opts ...Option) *RunState {
	if log == nil {
		log = logging.Noop()
	}
	s := &RunState{
		schedule: schedule,
		pu:       pu,
		conv:     conv,
		runID:    uuid.NewString(),
		wells:    make(map[string]*core.WellState),
		groups:   core.NewGroupState(),
		wtest:    core.NewWellTestState(),
		log:      log,
		comm:     core.SerialComm{},
		helper:   core.GuideRateGroupHelper{},
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RunID returns the id identifying this run in logs and reports.
func (s *RunState) RunID() string { return s.runID }

// WellTestState exposes the closure record shared with the evaluators.
func (s *RunState) WellTestState() *core.WellTestState { return s.wtest }

// WellState returns the dynamic state of the named well.
func (s *RunState) WellState(name string) (*core.WellState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.wells[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoWellState, name)
	}
	return ws, nil
}

// GroupState returns the group aggregates of the last evaluated step.
func (s *RunState) GroupState() *core.GroupState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groups
}

// SetSummaryValue updates one summary vector between steps, creating the
// summary state on first use.
func (s *RunState) SetSummaryValue(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.summary == nil {
		s.summary = make(model.SummaryState)
	}
	s.summary[key] = value
}

// AdvanceStep runs the full evaluation pipeline for one report step:
// advance well rates, recompute voidage rates and group aggregates, check
// constraints, run the well tests, and apply the resulting closures.
// The only error path is a fatal evaluation error, which aborts the step.
func (s *RunState) AdvanceStep(ctx context.Context, step int, simTime float64) (*StepOutcome, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "run/step", trace.WithAttributes(
		attribute.Int("step", step),
		attribute.Float64("sim_time_seconds", simTime),
		attribute.String("run_id", s.runID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	wells := s.schedule.Wells(step)
	s.syncWellsLocked(wells)
	s.advanceRatesLocked(wells, simTime)
	s.refreshGroupAggregatesLocked(step, wells)

	dl := logging.NewDeferredLogger()

	switched, err := s.evaluateConstraintsLocked(ctx, step, wells, dl)
	if err != nil {
		dl.Flush(ctx, s.log)
		span.RecordError(err)
		return nil, err
	}

	s.runWellTestsLocked(ctx, step, wells, simTime, dl)
	closed := s.applyClosuresLocked(wells)

	dl.Flush(ctx, s.log)
	s.updateGaugesLocked(wells)
	if s.metrics != nil {
		s.metrics.ObserveStepDuration(time.Since(start))
	}

	return s.buildOutcomeLocked(step, simTime, wells, switched, closed), nil
}

// Snapshot returns the state of every well active at the step, sorted by
// name. The records are copies and safe to retain.
func (s *RunState) Snapshot(step int) []WellRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []WellRecord
	for _, w := range s.schedule.Wells(step) {
		if ws, ok := s.wells[w.Name]; ok {
			out = append(out, newWellRecord(w, ws, false))
		}
	}
	return out
}

// syncWellsLocked creates state for wells entering the schedule. Wells
// already tracked keep their run status even when a schedule override
// re-declares them, so closures stay monotonic.
func (s *RunState) syncWellsLocked(wells []*model.Well) {
	np := s.pu.NumActive()
	for _, w := range wells {
		ws, ok := s.wells[w.Name]
		if !ok {
			ws = core.NewWellState(s.pu, len(w.Connections))
			ws.Status = w.Status
			ws.BHP = w.Rates.BHP
			ws.THP = w.Rates.THP
			if w.IsProducer() {
				ws.ProductionControl = initialProductionControl(w)
			} else {
				ws.InjectionControl = initialInjectionControl(w)
			}
			s.wells[w.Name] = ws
			continue
		}
		if want := np * len(w.Connections); len(ws.ConnectionRates) != want {
			ws.ConnectionRates = make([]float64, want)
		}
	}
}

// advanceRatesLocked drives each well's synthetic rate model forward and
// recomputes its reservoir voidage rates.
func (s *RunState) advanceRatesLocked(wells []*model.Well, simTime float64) {
	var g errgroup.Group
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for _, w := range wells {
		ws := s.wells[w.Name]
		g.Go(func() error {
			core.NewRateModel(w, s.pu).UpdateRates(simTime, ws)
			core.NewWellEvaluator(w, 0, s.pu, s.conv).CalculateReservoirRates(ws)
			return nil
		})
	}
	_ = g.Wait()
}

// refreshGroupAggregatesLocked rebuilds the per-group rate sums the group
// constraint checks read. Rates are accumulated up the whole parent
// chain as positive magnitudes with efficiency factors applied.
func (s *RunState) refreshGroupAggregatesLocked(step int, wells []*model.Well) {
	np := s.pu.NumActive()
	gs := core.NewGroupState()

	for _, w := range wells {
		ws := s.wells[w.Name]
		if ws == nil || ws.Stopped() {
			continue
		}
		eff := w.EfficiencyFactor
		for group := w.Group; group != ""; {
			if w.IsProducer() {
				accumulateRates(gs.ProductionRates, group, ws.SurfaceRates, -eff, np)
				accumulateRates(gs.ProductionReservoirRates, group, ws.ReservoirRates, -eff, np)
			} else {
				accumulateRates(gs.InjectionSurfaceRates, group, ws.SurfaceRates, eff, np)
				accumulateRates(gs.InjectionReservoirRates, group, ws.ReservoirRates, eff, np)
			}
			g, ok := s.schedule.Group(step, group)
			if !ok {
				break
			}
			group = g.Parent
		}
	}
	s.groups = gs
}

func accumulateRates(m map[string][]float64, group string, rates []float64, scale float64, np int) {
	dst, ok := m[group]
	if !ok {
		dst = make([]float64, np)
		m[group] = dst
	}
	for p := 0; p < np && p < len(rates); p++ {
		dst[p] += scale * rates[p]
	}
}

// evaluateConstraintsLocked checks individual and group constraints for
// every open well, in parallel. It returns the sorted names of wells
// whose governing control changed. A fatal evaluation error aborts the
// whole pass.
func (s *RunState) evaluateConstraintsLocked(ctx context.Context, step int, wells []*model.Well, dl *logging.DeferredLogger) ([]string, error) {
	var (
		switchedMu sync.Mutex
		switched   []string
	)

	g, gctx := errgroup.WithContext(ctx)
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for _, w := range wells {
		ws := s.wells[w.Name]
		g.Go(func() error {
			if ws.Stopped() {
				return nil
			}
			_, span := s.tracer.Start(gctx, "well/evaluate", trace.WithAttributes(
				attribute.String("well", w.Name),
				attribute.Int("step", step),
			))
			defer span.End()

			ev := s.evaluatorFor(w, step)
			changed, err := ev.CheckConstraints(ws, s.groups, s.schedule, s.summary, dl)
			if err != nil {
				span.RecordError(err)
				return fmt.Errorf("well %q: %w", w.Name, err)
			}
			if changed {
				if s.metrics != nil {
					s.metrics.RecordModeSwitch(w.Name, controlName(w, ws))
				}
				switchedMu.Lock()
				switched = append(switched, w.Name)
				switchedMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(switched)
	return switched, nil
}

// runWellTestsLocked runs the physical and economic closure checks for
// every well. The well-test state and the deferred logger are both
// internally synchronized, so wells proceed in parallel.
func (s *RunState) runWellTestsLocked(ctx context.Context, step int, wells []*model.Well, simTime float64, dl *logging.DeferredLogger) {
	g, gctx := errgroup.WithContext(ctx)
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for _, w := range wells {
		ws := s.wells[w.Name]
		g.Go(func() error {
			_, span := s.tracer.Start(gctx, "well/test", trace.WithAttributes(
				attribute.String("well", w.Name),
				attribute.Int("step", step),
			))
			defer span.End()

			s.evaluatorFor(w, step).UpdateWellTestState(ws, simTime, true, s.wtest, dl)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *RunState) evaluatorFor(w *model.Well, step int) *core.WellEvaluator {
	return core.NewWellEvaluator(w, step, s.pu, s.conv,
		core.WithCommunicator(s.comm),
		core.WithGroupHelper(s.helper),
		core.WithPhysicalChecker(s.physical),
	)
}

// applyClosuresLocked turns well-test closures into state: closed
// completions stop flowing and are marked shut on the schedule entry,
// closed wells are shut or stopped per their automatic shut-in flag.
// Returns the sorted names of wells newly closed this step.
func (s *RunState) applyClosuresLocked(wells []*model.Well) []string {
	np := s.pu.NumActive()
	var closed []string

	for _, w := range wells {
		ws := s.wells[w.Name]
		if ws == nil {
			continue
		}

		for i := range w.Connections {
			conn := &w.Connections[i]
			if conn.Open && s.wtest.HasCompletion(w.Name, conn.Completion) {
				conn.Open = false
				for p := 0; p < np; p++ {
					ws.SetConnRate(np, i, p, 0)
				}
				if s.metrics != nil {
					s.metrics.RecordCompletionClosure(w.Name)
				}
			}
		}

		if s.wtest.WellClosed(w.Name) && !ws.Stopped() {
			if w.AutoShutIn {
				ws.Status = model.WellShut
			} else {
				ws.Status = model.WellStop
			}
			zeroWellRates(ws)
			closed = append(closed, w.Name)

			reason := "UNKNOWN"
			if r, _, ok := s.wtest.WellCloseReason(w.Name); ok {
				reason = r.String()
			}
			s.log.Info(context.Background(), "well closed",
				logging.Well(w.Name),
				logging.String("reason", reason),
				logging.String("status", ws.Status.String()),
				logging.Float64("bhp", ws.BHP),
			)
			if s.metrics != nil {
				s.metrics.RecordWellClosure(w.Name, reason)
			}
		}
	}

	sort.Strings(closed)
	return closed
}

func (s *RunState) updateGaugesLocked(wells []*model.Well) {
	if s.metrics == nil {
		return
	}
	var open, stopped, shut int
	for _, w := range wells {
		ws := s.wells[w.Name]
		if ws == nil {
			continue
		}
		switch ws.Status {
		case model.WellStop:
			stopped++
		case model.WellShut:
			shut++
		default:
			open++
		}
	}
	s.metrics.SetWellCounts(open, stopped, shut)
}

func (s *RunState) buildOutcomeLocked(step int, simTime float64, wells []*model.Well, switched, closed []string) *StepOutcome {
	out := &StepOutcome{
		Step:        step,
		SimTime:     simTime,
		RunID:       s.runID,
		Switched:    switched,
		ClosedWells: closed,
		Wells:       make([]WellRecord, 0, len(wells)),
	}
	for _, w := range wells {
		ws := s.wells[w.Name]
		if ws == nil {
			continue
		}
		out.Wells = append(out.Wells, newWellRecord(w, ws, containsName(switched, w.Name)))
	}
	return out
}

func newWellRecord(w *model.Well, ws *core.WellState, switched bool) WellRecord {
	return WellRecord{
		Name:           w.Name,
		Status:         ws.Status,
		Control:        controlName(w, ws),
		Switched:       switched,
		BHP:            ws.BHP,
		THP:            ws.THP,
		SurfaceRates:   append([]float64(nil), ws.SurfaceRates...),
		ReservoirRates: append([]float64(nil), ws.ReservoirRates...),
	}
}

// zeroWellRates clears every rate vector of a closed well so group
// aggregates and reports see it as non-flowing from the next step on.
func zeroWellRates(ws *core.WellState) {
	for i := range ws.SurfaceRates {
		ws.SurfaceRates[i] = 0
	}
	for i := range ws.ReservoirRates {
		ws.ReservoirRates[i] = 0
	}
	for i := range ws.Potentials {
		ws.Potentials[i] = 0
	}
	for i := range ws.ConnectionRates {
		ws.ConnectionRates[i] = 0
	}
}

func controlName(w *model.Well, ws *core.WellState) string {
	if w.IsProducer() {
		return ws.ProductionControl.String()
	}
	return ws.InjectionControl.String()
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// initialProductionControl picks the control a producer starts the run
// under: its primary declared rate target, falling back through the
// pressure limits.
func initialProductionControl(w *model.Well) model.ProducerCMode {
	for _, m := range []model.ProducerCMode{
		model.ProducerCModeORAT,
		model.ProducerCModeWRAT,
		model.ProducerCModeGRAT,
		model.ProducerCModeLRAT,
		model.ProducerCModeRESV,
		model.ProducerCModeBHP,
		model.ProducerCModeTHP,
	} {
		if w.Production.Present.Has(m) {
			return m
		}
	}
	return model.ProducerCModeNone
}

func initialInjectionControl(w *model.Well) model.InjectorCMode {
	for _, m := range []model.InjectorCMode{
		model.InjectorCModeRATE,
		model.InjectorCModeRESV,
		model.InjectorCModeBHP,
		model.InjectorCModeTHP,
	} {
		if w.Injection.Present.Has(m) {
			return m
		}
	}
	return model.InjectorCModeNone
}
