package core

import (
	"fmt"

	"github.com/stratumworks/reservoir-wellsim/model"
)

// PhaseUsage describes which surface phases a run simulates and where each
// one sits in the dense rate vectors. Rate slices carry one entry per
// active phase, in water/oil/gas order with inactive phases squeezed out,
// so every lookup goes through Pos.
type PhaseUsage struct {
	used [model.NumPhases]bool
	pos  [model.NumPhases]int
	n    int
}

// NewPhaseUsage builds the phase layout for the given active phases. At
// least one phase must be active.
func NewPhaseUsage(water, oil, gas bool) (PhaseUsage, error) {
	var pu PhaseUsage
	pu.used[model.Water] = water
	pu.used[model.Oil] = oil
	pu.used[model.Gas] = gas

	for p := 0; p < model.NumPhases; p++ {
		pu.pos[p] = -1
		if pu.used[p] {
			pu.pos[p] = pu.n
			pu.n++
		}
	}
	if pu.n == 0 {
		return PhaseUsage{}, fmt.Errorf("phase usage: no active phases")
	}
	return pu, nil
}

// ThreePhase returns the standard water/oil/gas layout.
func ThreePhase() PhaseUsage {
	pu, _ := NewPhaseUsage(true, true, true)
	return pu
}

// Used reports whether the phase is active in this run.
func (pu PhaseUsage) Used(p model.Phase) bool { return pu.used[p] }

// Pos returns the index of the phase in dense rate vectors, -1 when the
// phase is inactive.
func (pu PhaseUsage) Pos(p model.Phase) int { return pu.pos[p] }

// NumActive returns the number of active phases, which is the length of
// every dense rate vector.
func (pu PhaseUsage) NumActive() int { return pu.n }

// Rates returns a zeroed dense rate vector for this layout.
func (pu PhaseUsage) Rates() []float64 { return make([]float64, pu.n) }
