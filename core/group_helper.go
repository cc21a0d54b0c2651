package core

import (
	"fmt"

	"github.com/stratumworks/reservoir-wellsim/logging"
	"github.com/stratumworks/reservoir-wellsim/model"
)

// ScheduleView is the slice of schedule data constraint evaluation reads.
type ScheduleView interface {
	// Group returns the group with the given name at the report step.
	Group(step int, name string) (*model.Group, bool)
	// WellsInGroup returns the wells whose parent is the named group at
	// the report step.
	WellsInGroup(step int, group string) []*model.Well
}

// GroupConstraintArgs bundles the inputs of one group constraint check for
// a single well against its immediate parent group.
type GroupConstraintArgs struct {
	WellName         string
	Group            *model.Group
	WellState        *WellState
	GroupState       *GroupState
	Step             int
	GuideRate        float64
	Usage            PhaseUsage
	EfficiencyFactor float64
	Schedule         ScheduleView
	Summary          model.SummaryState

	// ResvCoeff converts surface rates to reservoir conditions for RESV
	// targets, one coefficient per active phase.
	ResvCoeff []float64

	// InjectionPhase is the phase checked for injectors; unused for
	// producers.
	InjectionPhase model.Phase
}

// GroupHelper decides whether a well violates its parent group's aggregate
// limit and by how much the well's rates must shrink to conform. The
// returned factor is meaningful only when the first value is true.
type GroupHelper interface {
	CheckProductionConstraints(args GroupConstraintArgs, dl *logging.DeferredLogger) (bool, float64)
	CheckInjectionConstraints(args GroupConstraintArgs, dl *logging.DeferredLogger) (bool, float64)
}

// GuideRateGroupHelper apportions a violated group target among member
// wells in proportion to their guide rates. Wells without a guide rate
// weigh in at one, so a group with no guide rates splits its target
// evenly. A member well violates when its own rate exceeds its
// apportioned share; the returned factor scales the well onto that share.
type GuideRateGroupHelper struct{}

// CheckProductionConstraints implements GroupHelper for producers.
func (GuideRateGroupHelper) CheckProductionConstraints(args GroupConstraintArgs, dl *logging.DeferredLogger) (bool, float64) {
	grp := args.Group
	if grp == nil || !grp.HasProductionControl() {
		return false, 1.0
	}
	mode := grp.Production.Mode
	if mode == model.GroupProductionCModeFLD {
		// The parent is itself under higher-level control; walking the
		// ancestor chain is not done here.
		return false, 1.0
	}

	target := grp.Production.Target.Resolve(args.Summary)
	aggregate := groupProductionQuantity(args, mode)
	if aggregate <= target {
		return false, 1.0
	}

	share := target * productionGuideFraction(args)
	if args.EfficiencyFactor > 0 {
		share /= args.EfficiencyFactor
	}
	current := wellProductionQuantity(args, mode)
	if current <= share {
		return false, 1.0
	}

	if dl != nil {
		dl.Debug(fmt.Sprintf("well %s exceeds its share of group %s %s target", args.WellName, grp.Name, mode))
	}
	return true, share / current
}

// CheckInjectionConstraints implements GroupHelper for injectors.
func (GuideRateGroupHelper) CheckInjectionConstraints(args GroupConstraintArgs, dl *logging.DeferredLogger) (bool, float64) {
	grp := args.Group
	if grp == nil || !grp.HasInjectionControl(args.InjectionPhase) {
		return false, 1.0
	}
	ctrl := grp.Injection[args.InjectionPhase]
	if ctrl.Mode == model.GroupInjectionCModeFLD {
		return false, 1.0
	}

	pos := args.Usage.Pos(args.InjectionPhase)
	if pos < 0 {
		return false, 1.0
	}

	target := ctrl.Target.Resolve(args.Summary)
	var aggregate, current float64
	switch ctrl.Mode {
	case model.GroupInjectionCModeRATE:
		aggregate = args.GroupState.InjectionSurfaceRate(grp.Name, pos)
		current = args.WellState.SurfaceRates[pos]
	case model.GroupInjectionCModeRESV:
		if rates, ok := args.GroupState.InjectionReservoirRates[grp.Name]; ok && pos < len(rates) {
			aggregate = rates[pos]
		}
		current = args.WellState.SurfaceRates[pos]
		if pos < len(args.ResvCoeff) {
			current *= args.ResvCoeff[pos]
		}
	default:
		return false, 1.0
	}

	if aggregate <= target {
		return false, 1.0
	}

	share := target * injectionGuideFraction(args)
	if args.EfficiencyFactor > 0 {
		share /= args.EfficiencyFactor
	}
	if current <= share {
		return false, 1.0
	}

	if dl != nil {
		dl.Debug(fmt.Sprintf("well %s exceeds its share of group %s %s injection target", args.WellName, grp.Name, args.InjectionPhase))
	}
	return true, share / current
}

// groupProductionQuantity returns the group's aggregate production of the
// quantity controlled by mode, as a positive magnitude.
func groupProductionQuantity(args GroupConstraintArgs, mode model.GroupProductionCMode) float64 {
	gs := args.GroupState
	pu := args.Usage
	name := args.Group.Name

	switch mode {
	case model.GroupProductionCModeORAT:
		return gs.ProductionRate(name, pu.Pos(model.Oil))
	case model.GroupProductionCModeWRAT:
		return gs.ProductionRate(name, pu.Pos(model.Water))
	case model.GroupProductionCModeGRAT:
		return gs.ProductionRate(name, pu.Pos(model.Gas))
	case model.GroupProductionCModeLRAT:
		return gs.ProductionRate(name, pu.Pos(model.Oil)) + gs.ProductionRate(name, pu.Pos(model.Water))
	case model.GroupProductionCModeRESV:
		var sum float64
		for p := 0; p < pu.NumActive(); p++ {
			coeff := 1.0
			if p < len(args.ResvCoeff) {
				coeff = args.ResvCoeff[p]
			}
			sum += coeff * gs.ProductionRate(name, p)
		}
		return sum
	default:
		return 0
	}
}

// wellProductionQuantity returns the well's own production of the
// controlled quantity as a positive magnitude. Production rates are
// stored negative in the well state.
func wellProductionQuantity(args GroupConstraintArgs, mode model.GroupProductionCMode) float64 {
	ws := args.WellState
	pu := args.Usage

	rate := func(ph model.Phase) float64 {
		if i := pu.Pos(ph); i >= 0 {
			return -ws.SurfaceRates[i]
		}
		return 0
	}

	switch mode {
	case model.GroupProductionCModeORAT:
		return rate(model.Oil)
	case model.GroupProductionCModeWRAT:
		return rate(model.Water)
	case model.GroupProductionCModeGRAT:
		return rate(model.Gas)
	case model.GroupProductionCModeLRAT:
		return rate(model.Oil) + rate(model.Water)
	case model.GroupProductionCModeRESV:
		var sum float64
		for p := 0; p < pu.NumActive(); p++ {
			coeff := 1.0
			if p < len(args.ResvCoeff) {
				coeff = args.ResvCoeff[p]
			}
			sum -= coeff * ws.SurfaceRates[p]
		}
		return sum
	default:
		return 0
	}
}

// productionGuideFraction returns this well's guide-rate fraction among
// the group's open producers.
func productionGuideFraction(args GroupConstraintArgs) float64 {
	return guideFraction(args, func(w *model.Well) bool {
		return w.IsProducer() && w.Status == model.WellOpen
	})
}

// injectionGuideFraction returns this well's guide-rate fraction among the
// group's open injectors of the checked phase.
func injectionGuideFraction(args GroupConstraintArgs) float64 {
	return guideFraction(args, func(w *model.Well) bool {
		if !w.IsInjector() || w.Status != model.WellOpen {
			return false
		}
		ph, ok := w.InjectorFluid().PhaseOf()
		return ok && ph == args.InjectionPhase
	})
}

func guideFraction(args GroupConstraintArgs, member func(*model.Well) bool) float64 {
	if args.Schedule == nil || args.Group == nil {
		return 1.0
	}
	var total, own float64
	for _, w := range args.Schedule.WellsInGroup(args.Step, args.Group.Name) {
		if !member(w) {
			continue
		}
		weight := w.GuideRate
		if weight <= 0 {
			weight = 1.0
		}
		total += weight
		if w.Name == args.WellName {
			own = weight
		}
	}
	if total <= 0 || own <= 0 {
		// The well is not among the listed members; let it keep the whole
		// target rather than zeroing it.
		return 1.0
	}
	return own / total
}
