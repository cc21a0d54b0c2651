package core

import (
	"fmt"
	"math"

	"github.com/stratumworks/reservoir-wellsim/logging"
	"github.com/stratumworks/reservoir-wellsim/model"
)

// InvalidCompletion marks a ratio report that names no completion. Bare
// connections carry negative completion ids, so the sentinel is the
// largest int32 rather than -1.
const InvalidCompletion = 1<<31 - 1

// RatioLimitCheckReport accumulates the outcome of the ratio economic
// limit checks for one well. When RatioLimitViolated is set the report
// names the worst-offending completion and its violation extent, the
// ratio value divided by the limit.
type RatioLimitCheckReport struct {
	RatioLimitViolated       bool
	ViolationExtent          float64
	WorstOffendingCompletion int
}

// NewRatioLimitCheckReport returns a report with no violation recorded.
func NewRatioLimitCheckReport() RatioLimitCheckReport {
	return RatioLimitCheckReport{WorstOffendingCompletion: InvalidCompletion}
}

// PhysicalLimitChecker closes wells that cannot operate within their
// physical pressure limits. The physics behind that decision lives
// outside this package.
type PhysicalLimitChecker interface {
	UpdateWellTestStatePhysical(ws *WellState, simTime float64, writeMessage bool, wts *WellTestState, dl *logging.DeferredLogger)
}

// ratioFunc computes one produced-fluid ratio from a dense rate vector.
type ratioFunc func(rates []float64, pu PhaseUsage) float64

func phaseRate(rates []float64, pu PhaseUsage, ph model.Phase) float64 {
	if i := pu.Pos(ph); i >= 0 && i < len(rates) {
		return rates[i]
	}
	return 0
}

// waterCut is water over liquid, zero when no liquid flows.
func waterCut(rates []float64, pu PhaseUsage) float64 {
	oil := phaseRate(rates, pu, model.Oil)
	water := phaseRate(rates, pu, model.Water)

	// both rates should flow in the same direction
	assertf(oil*water >= 0, "water cut rates of mixed sign: oil %v water %v", oil, water)

	liquid := oil + water
	if liquid != 0 {
		return water / liquid
	}
	return 0
}

// gasOilRatio is gas over oil. Gas without oil yields a huge value so the
// ratio always reads as violated.
func gasOilRatio(rates []float64, pu PhaseUsage) float64 {
	oil := phaseRate(rates, pu, model.Oil)
	gas := phaseRate(rates, pu, model.Gas)

	assertf(oil*gas >= 0, "gas-oil ratio rates of mixed sign: oil %v gas %v", oil, gas)

	if oil != 0 {
		return gas / oil
	}
	if gas != 0 {
		return 1e100 // big value to mark it as violated
	}
	return 0
}

// waterGasRatio is water over gas, with the same sentinel handling as
// gasOilRatio.
func waterGasRatio(rates []float64, pu PhaseUsage) float64 {
	water := phaseRate(rates, pu, model.Water)
	gas := phaseRate(rates, pu, model.Gas)

	assertf(water*gas >= 0, "water-gas ratio rates of mixed sign: water %v gas %v", water, gas)

	if gas != 0 {
		return water / gas
	}
	if water != 0 {
		return 1e100 // big value to mark it as violated
	}
	return 0
}

// checkRateEconLimits reports whether any active minimum-rate limit is
// violated by the given rates or potentials. Rates are compared by
// magnitude, so the producer sign convention does not matter here.
func (e *WellEvaluator) checkRateEconLimits(econ model.EconProductionLimits, rates []float64, dl *logging.DeferredLogger) bool {
	pu := e.usage

	if econ.OnMinOilRate() {
		assertf(pu.Used(model.Oil), "min oil rate limit with oil phase inactive")
		if math.Abs(phaseRate(rates, pu, model.Oil)) < econ.MinOilRate {
			return true
		}
	}

	if econ.OnMinGasRate() {
		assertf(pu.Used(model.Gas), "min gas rate limit with gas phase inactive")
		if math.Abs(phaseRate(rates, pu, model.Gas)) < econ.MinGasRate {
			return true
		}
	}

	if econ.OnMinLiquidRate() {
		assertf(pu.Used(model.Oil) && pu.Used(model.Water), "min liquid rate limit with oil or water phase inactive")
		liquid := phaseRate(rates, pu, model.Oil) + phaseRate(rates, pu, model.Water)
		if math.Abs(liquid) < econ.MinLiquidRate {
			return true
		}
	}

	if econ.OnMinReservoirRate() {
		dl.Warning("NOT_SUPPORTING_MIN_RESERVOIR_FLUID_RATE", "minimum reservoir fluid production rate limit is not supported yet")
	}

	return false
}

// checkMaxRatioLimitWell reports whether the well-level ratio exceeds the
// limit.
func (e *WellEvaluator) checkMaxRatioLimitWell(ws *WellState, maxRatioLimit float64, ratio ratioFunc) bool {
	np := e.usage.NumActive()
	wellRates := make([]float64, np)
	copy(wellRates, ws.SurfaceRates)
	return ratio(wellRates, e.usage) > maxRatioLimit
}

// checkMaxRatioLimitCompletions finds the completion with the largest
// ratio and records it in the report if its violation extent beats the
// extent already recorded. Connection rates owned by other ranks are
// filled in through the communicator, so every rank owning a connection
// of this well must make this call.
func (e *WellEvaluator) checkMaxRatioLimitCompletions(ws *WellState, maxRatioLimit float64, ratio ratioFunc, report *RatioLimitCheckReport) {
	worstOffendingCompletion := InvalidCompletion
	maxRatioCompletion := 0.0
	np := e.usage.NumActive()

	for _, completion := range e.completionOrder {
		completionRates := make([]float64, np)
		for _, c := range e.completions[completion] {
			for p := 0; p < np; p++ {
				completionRates[p] += ws.ConnRate(np, c, p)
			}
		}
		e.comm.Sum(completionRates)

		ratioCompletion := ratio(completionRates, e.usage)
		if ratioCompletion > maxRatioCompletion {
			worstOffendingCompletion = completion
			maxRatioCompletion = ratioCompletion
		}
	}

	assertf(maxRatioCompletion > maxRatioLimit, "completion scan found no completion over the limit %v", maxRatioLimit)
	assertf(worstOffendingCompletion != InvalidCompletion, "completion scan settled on no completion")

	violationExtent := maxRatioCompletion / maxRatioLimit
	assertf(violationExtent > 1.0, "violation extent %v not above one", violationExtent)

	if violationExtent > report.ViolationExtent {
		report.WorstOffendingCompletion = worstOffendingCompletion
		report.ViolationExtent = violationExtent
	}
}

func (e *WellEvaluator) checkMaxWaterCutLimit(econ model.EconProductionLimits, ws *WellState, report *RatioLimitCheckReport) {
	assertf(e.usage.Used(model.Oil) && e.usage.Used(model.Water), "water cut limit with oil or water phase inactive")
	limit := econ.MaxWaterCut
	assertf(limit > 0, "water cut limit not positive: %v", limit)

	if e.checkMaxRatioLimitWell(ws, limit, waterCut) {
		report.RatioLimitViolated = true
		e.checkMaxRatioLimitCompletions(ws, limit, waterCut, report)
	}
}

func (e *WellEvaluator) checkMaxGORLimit(econ model.EconProductionLimits, ws *WellState, report *RatioLimitCheckReport) {
	assertf(e.usage.Used(model.Oil) && e.usage.Used(model.Gas), "gas-oil ratio limit with oil or gas phase inactive")
	limit := econ.MaxGasOilRatio
	assertf(limit > 0, "gas-oil ratio limit not positive: %v", limit)

	if e.checkMaxRatioLimitWell(ws, limit, gasOilRatio) {
		report.RatioLimitViolated = true
		e.checkMaxRatioLimitCompletions(ws, limit, gasOilRatio, report)
	}
}

func (e *WellEvaluator) checkMaxWGRLimit(econ model.EconProductionLimits, ws *WellState, report *RatioLimitCheckReport) {
	assertf(e.usage.Used(model.Water) && e.usage.Used(model.Gas), "water-gas ratio limit with water or gas phase inactive")
	limit := econ.MaxWaterGasRatio
	assertf(limit > 0, "water-gas ratio limit not positive: %v", limit)

	if e.checkMaxRatioLimitWell(ws, limit, waterGasRatio) {
		report.RatioLimitViolated = true
		e.checkMaxRatioLimitCompletions(ws, limit, waterGasRatio, report)
	}
}

// checkRatioEconLimits runs every active ratio limit against the well.
// When several limits are violated, each one picks its worst-offending
// completion by violation extent (ratio value over limit) and the
// completion with the biggest extent wins overall.
func (e *WellEvaluator) checkRatioEconLimits(econ model.EconProductionLimits, ws *WellState, report *RatioLimitCheckReport, dl *logging.DeferredLogger) {
	if econ.OnMaxWaterCut() {
		e.checkMaxWaterCutLimit(econ, ws, report)
	}

	if econ.OnMaxGasOilRatio() {
		e.checkMaxGORLimit(econ, ws, report)
	}

	if econ.OnMaxWaterGasRatio() {
		e.checkMaxWGRLimit(econ, ws, report)
	}

	if econ.OnMaxGasLiquidRatio() {
		dl.Warning("NOT_SUPPORTING_MAX_GLR", "the support for max gas-liquid ratio is not implemented yet")
	}

	if report.RatioLimitViolated {
		assertf(report.WorstOffendingCompletion != InvalidCompletion, "violated ratio report names no completion")
		assertf(report.ViolationExtent > 1, "violated ratio report extent %v not above one", report.ViolationExtent)
	}
}

// UpdateWellTestStateEconomic closes the well or its worst completion when
// economic limits are violated. Stopped wells are left alone.
func (e *WellEvaluator) UpdateWellTestStateEconomic(ws *WellState, simTime float64, writeMessage bool, wts *WellTestState, dl *logging.DeferredLogger) {
	if ws.Stopped() {
		return
	}

	econ := e.well.Econ
	if !econ.OnAnyEffectiveLimit() {
		return
	}

	rateLimitViolated := false
	if econ.OnAnyRateLimit() {
		if econ.Quantity == model.QuantityPotential {
			rateLimitViolated = e.checkRateEconLimits(econ, ws.Potentials, dl)
		} else {
			rateLimitViolated = e.checkRateEconLimits(econ, ws.SurfaceRates, dl)
		}
	}

	if rateLimitViolated {
		if econ.EndRun {
			dl.Warning("NOT_SUPPORTING_ENDRUN",
				"ending the run after a well closed due to economic limits is not supported yet; the run will continue after "+e.well.Name+" is closed")
		}
		if econ.ValidFollowonWell() {
			dl.Warning("NOT_SUPPORTING_FOLLOWONWELL", "opening the follow-on well after well closure is not supported yet")
		}

		wts.CloseWell(e.well.Name, CloseEconomic, simTime)
		if writeMessage {
			if e.well.AutoShutIn {
				dl.Info("well " + e.well.Name + " will be shut due to rate economic limit")
			} else {
				dl.Info("well " + e.well.Name + " will be stopped due to rate economic limit")
			}
		}
		// the well is closed, no need to check the ratio limits
		return
	}

	if !econ.OnAnyRatioLimit() {
		return
	}

	report := NewRatioLimitCheckReport()
	e.checkRatioEconLimits(econ, ws, &report, dl)
	if !report.RatioLimitViolated {
		return
	}

	switch econ.Workover {
	case model.EconWorkoverCon:
		worst := report.WorstOffendingCompletion
		wts.AddClosedCompletion(e.well.Name, worst, simTime)
		if writeMessage {
			if worst < 0 {
				dl.Info(fmt.Sprintf("connection %d of well %s will be closed due to economic limit", -worst, e.well.Name))
			} else {
				dl.Info(fmt.Sprintf("completion %d of well %s will be closed due to economic limit", worst, e.well.Name))
			}
		}

		allCompletionsClosed := true
		for _, conn := range e.well.Connections {
			if conn.Open && !wts.HasCompletion(e.well.Name, conn.Completion) {
				allCompletionsClosed = false
			}
		}
		if allCompletionsClosed {
			wts.CloseWell(e.well.Name, CloseEconomic, simTime)
			if writeMessage {
				if e.well.AutoShutIn {
					dl.Info("well " + e.well.Name + " will be shut due to last completion closed")
				} else {
					dl.Info("well " + e.well.Name + " will be stopped due to last completion closed")
				}
			}
		}

	case model.EconWorkoverWell:
		wts.CloseWell(e.well.Name, CloseEconomic, simTime)
		if writeMessage {
			if e.well.AutoShutIn {
				dl.Info("well " + e.well.Name + " will be shut due to ratio economic limit")
			} else {
				dl.Info("well " + e.well.Name + " will be stopped due to ratio economic limit")
			}
		}

	case model.EconWorkoverNone:
		// nothing to do

	default:
		dl.Warning("NOT_SUPPORTED_WORKOVER_TYPE", "not supporting workover type "+econ.Workover.String())
	}
}

// UpdateWellTestState runs the physical and economic closure checks.
// Only producers are tested, and only while they are under prediction
// mode.
func (e *WellEvaluator) UpdateWellTestState(ws *WellState, simTime float64, writeMessage bool, wts *WellTestState, dl *logging.DeferredLogger) {
	if e.well.IsInjector() {
		return
	}
	if !e.well.PredictionMode {
		return
	}

	if e.physical != nil {
		e.physical.UpdateWellTestStatePhysical(ws, simTime, writeMessage, wts, dl)
	}

	e.UpdateWellTestStateEconomic(ws, simTime, writeMessage, wts, dl)
}
