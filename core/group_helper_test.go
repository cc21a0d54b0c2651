package core

import (
	"testing"

	"github.com/stratumworks/reservoir-wellsim/logging"
	"github.com/stratumworks/reservoir-wellsim/model"
)

func prodGroup(mode model.GroupProductionCMode, target float64) *model.Group {
	return &model.Group{
		Name:       "G-1",
		Production: model.GroupProductionControls{Mode: mode, Target: model.UDA(target)},
	}
}

func injGroup(phase model.Phase, mode model.GroupInjectionCMode, target float64) *model.Group {
	return &model.Group{
		Name: "G-1",
		Injection: map[model.Phase]model.GroupInjectionControls{
			phase: {Mode: mode, Target: model.UDA(target)},
		},
	}
}

// TestGroupHelperUnderTargetNoViolation verifies a group flowing inside
// its target leaves every member untouched.
func TestGroupHelperUnderTargetNoViolation(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeORAT, 100)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{0, 80, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, -80, 0)

	a := testProducer("A", 1)
	args := GroupConstraintArgs{
		WellName:         "A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a}},
	}

	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if violated || factor != 1.0 {
		t.Fatalf("under-target group flagged: violated=%v factor=%v", violated, factor)
	}
}

// TestGroupHelperApportionsByGuideRate verifies a violated target is split
// by guide rate: the well with guide 3 of a combined 4 owns three quarters
// of the target, and the factor scales it onto that share.
func TestGroupHelperApportionsByGuideRate(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeORAT, 100)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{0, 150, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, -90, 0)

	a := testProducer("A", 1)
	a.GuideRate = 3
	b := testProducer("B", 1)
	b.GuideRate = 1
	args := GroupConstraintArgs{
		WellName:         "A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a, b}},
	}

	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if !violated {
		t.Fatalf("expected a violation at oil 90 over share 75")
	}
	if !approxEqual(factor, 75.0/90.0) {
		t.Fatalf("conformance factor %v, want %v", factor, 75.0/90.0)
	}
}

// TestGroupHelperEvenSplitWithoutGuideRates verifies members without guide
// rates weigh in equally.
func TestGroupHelperEvenSplitWithoutGuideRates(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeORAT, 100)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{0, 150, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, -60, 0)

	a := testProducer("A", 1)
	b := testProducer("B", 1)
	args := GroupConstraintArgs{
		WellName:         "A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a, b}},
	}

	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if !violated {
		t.Fatalf("expected a violation at oil 60 over the even share 50")
	}
	if !approxEqual(factor, 50.0/60.0) {
		t.Fatalf("conformance factor %v, want %v", factor, 50.0/60.0)
	}
}

// TestGroupHelperEfficiencyWidensShare verifies a well that is only open
// half the time may flow at twice its nominal share.
func TestGroupHelperEfficiencyWidensShare(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeORAT, 100)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{0, 150, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, -90, 0)

	a := testProducer("A", 1)
	b := testProducer("B", 1)
	args := GroupConstraintArgs{
		WellName:         "A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 0.5,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a, b}},
	}

	violated, _ := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if violated {
		t.Fatalf("oil 90 under the efficiency-widened share 100 was flagged")
	}
}

// TestGroupHelperFLDDefers verifies a parent that is itself under
// higher-level control imposes nothing here.
func TestGroupHelperFLDDefers(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeFLD, 1)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{0, 1e9, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, -1e9, 0)

	args := GroupConstraintArgs{
		WellName:   "A",
		Group:      grp,
		WellState:  ws,
		GroupState: gs,
		Usage:      pu,
	}

	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if violated || factor != 1.0 {
		t.Fatalf("FLD group imposed a limit: violated=%v factor=%v", violated, factor)
	}
}

// TestGroupHelperLiquidTarget verifies the LRAT quantity combines oil and
// water on both the group and the well side.
func TestGroupHelperLiquidTarget(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeLRAT, 120)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{60, 80, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -30, -40, 0)

	a := testProducer("A", 1)
	b := testProducer("B", 1)
	args := GroupConstraintArgs{
		WellName:         "A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a, b}},
	}

	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if !violated {
		t.Fatalf("expected a violation at liquid 70 over share 60")
	}
	if !approxEqual(factor, 60.0/70.0) {
		t.Fatalf("conformance factor %v, want %v", factor, 60.0/70.0)
	}
}

// TestGroupHelperResvTargetUsesCoeff verifies the voidage quantity runs
// surface rates through the conversion coefficients on both sides.
func TestGroupHelperResvTargetUsesCoeff(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeRESV, 100)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{30, 40, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -30, -40, 0)

	a := testProducer("A", 1)
	args := GroupConstraintArgs{
		WellName:         "A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a}},
		ResvCoeff:        []float64{1, 2, 1},
	}

	// aggregate 1*30 + 2*40 = 110 over target 100; the lone member's own
	// voidage is the same 110 against a share of 100.
	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if !violated {
		t.Fatalf("expected a voidage violation at 110 over 100")
	}
	if !approxEqual(factor, 100.0/110.0) {
		t.Fatalf("conformance factor %v, want %v", factor, 100.0/110.0)
	}
}

// TestGroupHelperUnlistedMemberKeepsTarget verifies a well missing from
// the member listing falls back to the whole target instead of a zero
// share.
func TestGroupHelperUnlistedMemberKeepsTarget(t *testing.T) {
	pu := ThreePhase()
	grp := prodGroup(model.GroupProductionCModeORAT, 100)

	gs := NewGroupState()
	gs.ProductionRates["G-1"] = []float64{0, 150, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, -120, 0)

	b := testProducer("B", 1)
	args := GroupConstraintArgs{
		WellName:         "A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{b}},
	}

	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if !violated {
		t.Fatalf("expected a violation at oil 120 over the whole target 100")
	}
	if !approxEqual(factor, 100.0/120.0) {
		t.Fatalf("conformance factor %v, want %v", factor, 100.0/120.0)
	}
}

// TestGroupHelperInjectionRateTarget verifies the injection side splits a
// surface rate target among the open injectors of the checked phase.
func TestGroupHelperInjectionRateTarget(t *testing.T) {
	pu := ThreePhase()
	grp := injGroup(model.Water, model.GroupInjectionCModeRATE, 100)

	gs := NewGroupState()
	gs.InjectionSurfaceRates["G-1"] = []float64{150, 0, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 80, 0, 0)

	a := testInjector("I-A", model.InjectorWater)
	b := testInjector("I-B", model.InjectorWater)
	args := GroupConstraintArgs{
		WellName:         "I-A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a, b}},
		InjectionPhase:   model.Water,
	}

	violated, factor := GuideRateGroupHelper{}.CheckInjectionConstraints(args, logging.NewDeferredLogger())
	if !violated {
		t.Fatalf("expected a violation at water 80 over the even share 50")
	}
	if !approxEqual(factor, 50.0/80.0) {
		t.Fatalf("conformance factor %v, want %v", factor, 50.0/80.0)
	}
}

// TestGroupHelperInjectionResvTarget verifies the injection voidage target
// converts the member's surface rate with the reservoir coefficient.
func TestGroupHelperInjectionResvTarget(t *testing.T) {
	pu := ThreePhase()
	grp := injGroup(model.Water, model.GroupInjectionCModeRESV, 100)

	gs := NewGroupState()
	gs.InjectionReservoirRates["G-1"] = []float64{150, 0, 0}

	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 100, 0, 0)

	a := testInjector("I-A", model.InjectorWater)
	args := GroupConstraintArgs{
		WellName:         "I-A",
		Group:            grp,
		WellState:        ws,
		GroupState:       gs,
		Usage:            pu,
		EfficiencyFactor: 1,
		Schedule:         &stubSchedule{group: grp, wells: []*model.Well{a}},
		ResvCoeff:        []float64{1.02, 1.2, 0.005},
		InjectionPhase:   model.Water,
	}

	// surface 100 converts to voidage 102 against the lone member's share
	// of 100.
	violated, factor := GuideRateGroupHelper{}.CheckInjectionConstraints(args, logging.NewDeferredLogger())
	if !violated {
		t.Fatalf("expected a voidage violation at 102 over 100")
	}
	if !approxEqual(factor, 100.0/102.0) {
		t.Fatalf("conformance factor %v, want %v", factor, 100.0/102.0)
	}
}

// TestGroupHelperNoControlNoViolation verifies groups without a target
// never flag members.
func TestGroupHelperNoControlNoViolation(t *testing.T) {
	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, -1e6, 0)

	args := GroupConstraintArgs{
		WellName:   "A",
		Group:      plainGroup("G-1"),
		WellState:  ws,
		GroupState: NewGroupState(),
		Usage:      pu,
	}

	violated, factor := GuideRateGroupHelper{}.CheckProductionConstraints(args, logging.NewDeferredLogger())
	if violated || factor != 1.0 {
		t.Fatalf("a target-less group flagged a member: violated=%v factor=%v", violated, factor)
	}

	violated, factor = GuideRateGroupHelper{}.CheckInjectionConstraints(args, logging.NewDeferredLogger())
	if violated || factor != 1.0 {
		t.Fatalf("a target-less group flagged an injector: violated=%v factor=%v", violated, factor)
	}
}
