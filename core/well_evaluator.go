package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/stratumworks/reservoir-wellsim/logging"
	"github.com/stratumworks/reservoir-wellsim/model"
)

var (
	ErrUnknownInjectorFluid = errors.New("unknown injector fluid")
	ErrGroupNotFound        = errors.New("group not found")
)

// WellEvaluator runs the per-step constraint and economic-limit checks for
// one well. It reads the schedule-side well description and mutates the
// well's dynamic state in place; one evaluator instance serves one well
// for one report step.
type WellEvaluator struct {
	well      *model.Well
	step      int
	usage     PhaseUsage
	pvtRegion int

	rateConv RateConverter
	comm     Communicator
	groups   GroupHelper
	physical PhysicalLimitChecker

	// completions maps completion id to the indices of its connections in
	// the well's connection list. Bare connections carry synthetic
	// negative ids assigned by the deck loader.
	completions     map[int][]int
	completionOrder []int
}

// EvaluatorOption adjusts optional collaborators of a WellEvaluator.
type EvaluatorOption func(*WellEvaluator)

// WithCommunicator sets the cross-rank reduction used for completion
// scans. Defaults to SerialComm.
func WithCommunicator(c Communicator) EvaluatorOption {
	return func(e *WellEvaluator) { e.comm = c }
}

// WithGroupHelper sets the group constraint collaborator. Defaults to
// GuideRateGroupHelper.
func WithGroupHelper(h GroupHelper) EvaluatorOption {
	return func(e *WellEvaluator) { e.groups = h }
}

// WithPhysicalChecker sets the physical-limit closure collaborator. When
// unset the physical pass is skipped.
func WithPhysicalChecker(p PhysicalLimitChecker) EvaluatorOption {
	return func(e *WellEvaluator) { e.physical = p }
}

// NewWellEvaluator builds an evaluator for the well at the given report
// step.
func NewWellEvaluator(well *model.Well, step int, pu PhaseUsage, conv RateConverter, opts ...EvaluatorOption) *WellEvaluator {
	e := &WellEvaluator{
		well:        well,
		step:        step,
		usage:       pu,
		pvtRegion:   well.PVTRegion,
		rateConv:    conv,
		comm:        SerialComm{},
		groups:      GuideRateGroupHelper{},
		completions: make(map[int][]int),
	}
	for i, c := range well.Connections {
		if _, ok := e.completions[c.Completion]; !ok {
			e.completionOrder = append(e.completionOrder, c.Completion)
		}
		e.completions[c.Completion] = append(e.completions[c.Completion], i)
	}
	// Completion scans walk ids in ascending order so ties resolve the
	// same way on every rank.
	sort.Ints(e.completionOrder)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the well's name.
func (e *WellEvaluator) Name() string { return e.well.Name }

// Well returns the schedule-side well description.
func (e *WellEvaluator) Well() *model.Well { return e.well }

// rate reads the dense vector entry for a phase, zero when the phase is
// inactive in this run.
func (e *WellEvaluator) rate(rates []float64, ph model.Phase) float64 {
	return phaseRate(rates, e.usage, ph)
}

// CheckIndividualConstraints walks the well's own limits in fixed priority
// order and switches the control mode to the first limit that is violated
// and not already active. It reports whether the mode changed. Injection
// rates are compared as positive quantities; production rates are stored
// negative and negated before comparison.
func (e *WellEvaluator) CheckIndividualConstraints(ws *WellState, sum model.SummaryState) (bool, error) {
	if e.well.IsInjector() {
		return e.checkInjectorConstraints(ws, sum)
	}
	return e.checkProducerConstraints(ws, sum)
}

// Injector priority: BHP, RATE, RESV, THP.
func (e *WellEvaluator) checkInjectorConstraints(ws *WellState, sum model.SummaryState) (bool, error) {
	controls := e.well.InjectionControls(sum)
	current := ws.InjectionControl

	if controls.Has(model.InjectorCModeBHP) && current != model.InjectorCModeBHP {
		if controls.BHPLimit < ws.BHP {
			ws.InjectionControl = model.InjectorCModeBHP
			return true, nil
		}
	}

	if controls.Has(model.InjectorCModeRATE) && current != model.InjectorCModeRATE {
		ph, ok := controls.Fluid.PhaseOf()
		if !ok {
			return false, fmt.Errorf("%w: %s for well %s", ErrUnknownInjectorFluid, controls.Fluid, e.well.Name)
		}
		if controls.SurfaceRate < e.rate(ws.SurfaceRates, ph) {
			ws.InjectionControl = model.InjectorCModeRATE
			return true, nil
		}
	}

	if controls.Has(model.InjectorCModeRESV) && current != model.InjectorCModeRESV {
		var total float64
		for p := 0; p < e.usage.NumActive(); p++ {
			total += ws.ReservoirRates[p]
		}
		if controls.ReservoirRate < total {
			ws.InjectionControl = model.InjectorCModeRESV
			return true, nil
		}
	}

	if controls.Has(model.InjectorCModeTHP) && current != model.InjectorCModeTHP {
		if controls.THPLimit < ws.THP {
			ws.InjectionControl = model.InjectorCModeTHP
			return true, nil
		}
	}

	return false, nil
}

// Producer priority: BHP, ORAT, WRAT, GRAT, LRAT, RESV, THP.
func (e *WellEvaluator) checkProducerConstraints(ws *WellState, sum model.SummaryState) (bool, error) {
	controls := e.well.ProductionControls(sum)
	current := ws.ProductionControl

	if controls.Has(model.ProducerCModeBHP) && current != model.ProducerCModeBHP {
		if controls.BHPLimit > ws.BHP {
			ws.ProductionControl = model.ProducerCModeBHP
			return true, nil
		}
	}

	if controls.Has(model.ProducerCModeORAT) && current != model.ProducerCModeORAT {
		if controls.OilRate < -e.rate(ws.SurfaceRates, model.Oil) {
			ws.ProductionControl = model.ProducerCModeORAT
			return true, nil
		}
	}

	if controls.Has(model.ProducerCModeWRAT) && current != model.ProducerCModeWRAT {
		if controls.WaterRate < -e.rate(ws.SurfaceRates, model.Water) {
			ws.ProductionControl = model.ProducerCModeWRAT
			return true, nil
		}
	}

	if controls.Has(model.ProducerCModeGRAT) && current != model.ProducerCModeGRAT {
		if controls.GasRate < -e.rate(ws.SurfaceRates, model.Gas) {
			ws.ProductionControl = model.ProducerCModeGRAT
			return true, nil
		}
	}

	if controls.Has(model.ProducerCModeLRAT) && current != model.ProducerCModeLRAT {
		liquid := -e.rate(ws.SurfaceRates, model.Oil) - e.rate(ws.SurfaceRates, model.Water)
		if controls.LiquidRate < liquid {
			ws.ProductionControl = model.ProducerCModeLRAT
			return true, nil
		}
	}

	if controls.Has(model.ProducerCModeRESV) && current != model.ProducerCModeRESV {
		var total float64
		for p := 0; p < e.usage.NumActive(); p++ {
			total -= ws.ReservoirRates[p]
		}

		if controls.Prediction {
			if controls.ResvRate < total {
				ws.ProductionControl = model.ProducerCModeRESV
				return true, nil
			}
		} else {
			// History mode: the voidage target is recomputed from the
			// history surface-rate targets instead of the stored
			// reservoir rates.
			const fipRegion = 0 // region selection not wired up yet
			np := e.usage.NumActive()
			surface := make([]float64, np)
			if i := e.usage.Pos(model.Water); i >= 0 {
				surface[i] = controls.WaterRate
			}
			if i := e.usage.Pos(model.Oil); i >= 0 {
				surface[i] = controls.OilRate
			}
			if i := e.usage.Pos(model.Gas); i >= 0 {
				surface[i] = controls.GasRate
			}

			voidage := make([]float64, np)
			e.rateConv.CalcReservoirVoidageRates(fipRegion, e.pvtRegion, surface, voidage)

			var resvRate float64
			for p := 0; p < np; p++ {
				resvRate += voidage[p]
			}
			if resvRate < total {
				ws.ProductionControl = model.ProducerCModeRESV
				return true, nil
			}
		}
	}

	if controls.Has(model.ProducerCModeTHP) && current != model.ProducerCModeTHP {
		if controls.THPLimit > ws.THP {
			ws.ProductionControl = model.ProducerCModeTHP
			return true, nil
		}
	}

	return false, nil
}

// CheckGroupConstraints tests the well against its immediate parent
// group's aggregate limit, skipping wells already under group control.
// Only the parent is checked; there could be violated limits higher up
// the tree, and then every ancestor but the currently applied one should
// be tested. On violation the control mode becomes GRUP and every phase
// surface rate is scaled by the conformance factor.
func (e *WellEvaluator) CheckGroupConstraints(ws *WellState, gs *GroupState, sch ScheduleView, sum model.SummaryState, dl *logging.DeferredLogger) (bool, error) {
	if e.well.IsInjector() && ws.InjectionControl == model.InjectorCModeGRUP {
		return false, nil
	}
	if e.well.IsProducer() && ws.ProductionControl == model.ProducerCModeGRUP {
		return false, nil
	}

	grp, ok := sch.Group(e.step, e.well.Group)
	if !ok {
		return false, fmt.Errorf("%w: %q for well %s", ErrGroupNotFound, e.well.Group, e.well.Name)
	}

	eff := e.well.EfficiencyFactor
	if eff <= 0 {
		eff = 1.0
	}

	// Conversion coefficients for RESV targets. Fluid-in-place region 0;
	// the well's own region should be used here.
	resvCoeff := make([]float64, e.usage.NumActive())
	e.rateConv.CalcCoeff(0, e.pvtRegion, resvCoeff)

	args := GroupConstraintArgs{
		WellName:         e.well.Name,
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Step:             e.step,
		GuideRate:        e.well.GuideRate,
		Usage:            e.usage,
		EfficiencyFactor: eff,
		Schedule:         sch,
		Summary:          sum,
		ResvCoeff:        resvCoeff,
	}

	var violated bool
	var factor float64
	if e.well.IsInjector() {
		ph, ok := e.well.InjectorFluid().PhaseOf()
		if !ok {
			return false, fmt.Errorf("%w: %s for well %s", ErrUnknownInjectorFluid, e.well.InjectorFluid(), e.well.Name)
		}
		args.InjectionPhase = ph
		violated, factor = e.groups.CheckInjectionConstraints(args, dl)
		if violated {
			ws.InjectionControl = model.InjectorCModeGRUP
		}
	} else {
		violated, factor = e.groups.CheckProductionConstraints(args, dl)
		if violated {
			ws.ProductionControl = model.ProducerCModeGRUP
		}
	}

	if violated {
		for p := 0; p < e.usage.NumActive(); p++ {
			ws.SurfaceRates[p] *= factor
		}
	}
	return violated, nil
}

// CheckConstraints runs the individual check and, only when it did not
// switch the mode, the group check. The order is load bearing: a well
// that just conformed to one of its own limits must not be scaled onto a
// group share in the same pass.
func (e *WellEvaluator) CheckConstraints(ws *WellState, gs *GroupState, sch ScheduleView, sum model.SummaryState, dl *logging.DeferredLogger) (bool, error) {
	changed, err := e.CheckIndividualConstraints(ws, sum)
	if err != nil || changed {
		return changed, err
	}
	return e.CheckGroupConstraints(ws, gs, sch, sum, dl)
}

// CalculateReservoirRates refreshes the well's reservoir voidage rates
// from its current surface rates.
func (e *WellEvaluator) CalculateReservoirRates(ws *WellState) {
	const fipRegion = 0 // region selection not wired up yet
	np := e.usage.NumActive()

	surface := make([]float64, np)
	copy(surface, ws.SurfaceRates)

	voidage := make([]float64, np)
	e.rateConv.CalcReservoirVoidageRates(fipRegion, e.pvtRegion, surface, voidage)

	copy(ws.ReservoirRates, voidage)
}
