package state

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stratumworks/reservoir-wellsim/core"
	"github.com/stratumworks/reservoir-wellsim/model"
)

// TestInjectorFeedsGroupAggregates runs a steady water injector and
// verifies its surface and reservoir rates land in the group aggregates
// with positive sign.
func TestInjectorFeedsGroupAggregates(t *testing.T) {
	w := steadyInjector("I-1", model.InjectorWater, 120)
	w.Injection.Present.Add(model.InjectorCModeRATE)
	w.Injection.SurfaceRate = model.UDA(150)

	run := newTestRun(t, testSchedule(t, w))
	out := advance(t, run, 0, 0)

	if len(out.Switched) != 0 {
		t.Fatalf("Switched = %v, want none below the rate limit", out.Switched)
	}

	water := core.ThreePhase().Pos(model.Water)
	rec := findRecord(t, out, "I-1")
	if got := rec.SurfaceRates[water]; got != 120 {
		t.Errorf("surface water rate = %v, want 120", got)
	}
	if rec.Control != "RATE" {
		t.Errorf("control = %s, want RATE", rec.Control)
	}

	gs := run.GroupState()
	for _, group := range []string{"PLAT-A", "FIELD"} {
		if got := gs.InjectionSurfaceRate(group, water); got != 120 {
			t.Errorf("group %s water injection aggregate = %v, want 120", group, got)
		}
	}
}

// TestInjectorEfficiencyScalesAggregates checks the efficiency factor is
// applied on the way into the group sums but not to the well itself.
func TestInjectorEfficiencyScalesAggregates(t *testing.T) {
	w := steadyInjector("I-1", model.InjectorWater, 120)
	w.EfficiencyFactor = 0.75

	run := newTestRun(t, testSchedule(t, w))
	out := advance(t, run, 0, 0)

	water := core.ThreePhase().Pos(model.Water)
	if got := findRecord(t, out, "I-1").SurfaceRates[water]; got != 120 {
		t.Errorf("well surface rate = %v, want unscaled 120", got)
	}
	if got := run.GroupState().InjectionSurfaceRate("PLAT-A", water); got != 90 {
		t.Errorf("group aggregate = %v, want 90 after efficiency", got)
	}
}

// TestInjectorGroupTargetScalesRates places one injector under a group
// water injection target below its rate.
func TestInjectorGroupTargetScalesRates(t *testing.T) {
	w := steadyInjector("I-1", model.InjectorWater, 120)
	w.Injection.Present.Add(model.InjectorCModeRATE)
	w.Injection.SurfaceRate = model.UDA(500)

	sch := testSchedule(t, w)
	plat, ok := sch.Group(0, "PLAT-A")
	if !ok {
		t.Fatal("PLAT-A not registered")
	}
	plat.Injection = map[model.Phase]model.GroupInjectionControls{
		model.Water: {Mode: model.GroupInjectionCModeRATE, Target: model.UDA(90)},
	}

	run := newTestRun(t, sch)
	out := advance(t, run, 0, 0)

	if len(out.Switched) != 1 || out.Switched[0] != "I-1" {
		t.Fatalf("Switched = %v, want [I-1]", out.Switched)
	}
	rec := findRecord(t, out, "I-1")
	if rec.Control != "GRUP" {
		t.Errorf("control = %s, want GRUP", rec.Control)
	}
	water := core.ThreePhase().Pos(model.Water)
	if got := rec.SurfaceRates[water]; got != 90 {
		t.Errorf("scaled water rate = %v, want 90", got)
	}
}

// TestInjectorUnknownFluidAbortsStep drives an injector with no declared
// fluid. The first step conforms to the pressure limit without touching
// the rate check; the second step must resolve the injected phase and
// fails the whole step.
func TestInjectorUnknownFluidAbortsStep(t *testing.T) {
	w := steadyInjector("I-9", model.InjectorFluidNone, 120)
	w.Injection.Present.Add(model.InjectorCModeRATE)
	w.Injection.SurfaceRate = model.UDA(150)
	w.Injection.Present.Add(model.InjectorCModeBHP)
	w.Injection.BHPLimit = model.UDA(200e5)

	run := newTestRun(t, testSchedule(t, w))

	out := advance(t, run, 0, 0)
	if len(out.Switched) != 1 || out.Switched[0] != "I-9" {
		t.Fatalf("step 0 Switched = %v, want [I-9]", out.Switched)
	}
	if rec := findRecord(t, out, "I-9"); rec.Control != "BHP" {
		t.Errorf("control = %s, want BHP", rec.Control)
	}

	_, err := run.AdvanceStep(context.Background(), 1, 3600)
	if err == nil {
		t.Fatal("AdvanceStep(1) succeeded with an unresolvable injector fluid")
	}
	if !errors.Is(err, core.ErrUnknownInjectorFluid) {
		t.Errorf("error = %v, want ErrUnknownInjectorFluid", err)
	}
	if !strings.Contains(err.Error(), "I-9") {
		t.Errorf("error %q does not name the well", err)
	}
}
