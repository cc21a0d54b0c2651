package core

import (
	"testing"

	"github.com/stratumworks/reservoir-wellsim/model"
)

// TestPhaseUsageLayout verifies active phases receive dense positions in
// canonical order and inactive ones read as position -1.
func TestPhaseUsageLayout(t *testing.T) {
	pu := ThreePhase()
	if pu.NumActive() != 3 {
		t.Fatalf("three-phase NumActive %d, want 3", pu.NumActive())
	}
	if pu.Pos(model.Water) != 0 || pu.Pos(model.Oil) != 1 || pu.Pos(model.Gas) != 2 {
		t.Fatalf("three-phase layout %d/%d/%d, want 0/1/2",
			pu.Pos(model.Water), pu.Pos(model.Oil), pu.Pos(model.Gas))
	}

	ow, err := NewPhaseUsage(false, true, true)
	if err != nil {
		t.Fatalf("NewPhaseUsage: %v", err)
	}
	if ow.NumActive() != 2 {
		t.Fatalf("oil-gas NumActive %d, want 2", ow.NumActive())
	}
	if ow.Pos(model.Water) != -1 {
		t.Fatalf("inactive water position %d, want -1", ow.Pos(model.Water))
	}
	if ow.Pos(model.Oil) != 0 || ow.Pos(model.Gas) != 1 {
		t.Fatalf("oil-gas layout %d/%d, want 0/1", ow.Pos(model.Oil), ow.Pos(model.Gas))
	}
	if ow.Used(model.Water) || !ow.Used(model.Oil) {
		t.Fatalf("usage flags inconsistent with layout")
	}
}

// TestPhaseUsageRequiresAPhase verifies a run without any active phase is
// rejected.
func TestPhaseUsageRequiresAPhase(t *testing.T) {
	if _, err := NewPhaseUsage(false, false, false); err == nil {
		t.Fatalf("expected an error without active phases")
	}
}

// TestPhaseUsageRates verifies the convenience vector is sized to the
// active phase count.
func TestPhaseUsageRates(t *testing.T) {
	pu, err := NewPhaseUsage(true, true, false)
	if err != nil {
		t.Fatalf("NewPhaseUsage: %v", err)
	}
	if got := len(pu.Rates()); got != 2 {
		t.Fatalf("rates length %d, want 2", got)
	}
}
