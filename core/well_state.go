package core

import "github.com/stratumworks/reservoir-wellsim/model"

// WellState is the dynamic operating state of one well, mutated in place
// by each evaluation pass. Rate vectors are dense per the run's PhaseUsage.
// Production rates are stored negative, injection rates positive.
type WellState struct {
	Status model.WellStatus

	ProductionControl model.ProducerCMode
	InjectionControl  model.InjectorCMode

	// BHP is the bottom-hole pressure, THP the wellhead (tubing head)
	// pressure, both in Pascal.
	BHP float64
	THP float64

	// SurfaceRates and ReservoirRates hold one entry per active phase.
	SurfaceRates   []float64
	ReservoirRates []float64

	// Potentials are the per-phase production potentials, stored as
	// magnitudes.
	Potentials []float64

	// ConnectionRates holds per-connection per-phase surface rates, laid
	// out flat with one stride of NumActive() per connection, matching the
	// order of the well's connection list. Connections owned by other
	// ranks carry zeros; the cross-rank sum fills them in during
	// completion scans.
	ConnectionRates []float64
}

// NewWellState returns a zeroed state sized for the given layout and
// connection count.
func NewWellState(pu PhaseUsage, numConnections int) *WellState {
	np := pu.NumActive()
	return &WellState{
		Status:          model.WellOpen,
		SurfaceRates:    make([]float64, np),
		ReservoirRates:  make([]float64, np),
		Potentials:      make([]float64, np),
		ConnectionRates: make([]float64, np*numConnections),
	}
}

// ConnRate returns the rate of phase position p at connection c.
func (ws *WellState) ConnRate(np, c, p int) float64 {
	return ws.ConnectionRates[c*np+p]
}

// SetConnRate sets the rate of phase position p at connection c.
func (ws *WellState) SetConnRate(np, c, p int, v float64) {
	ws.ConnectionRates[c*np+p] = v
}

// Stopped reports whether the well is stopped or shut.
func (ws *WellState) Stopped() bool {
	return ws.Status == model.WellStop || ws.Status == model.WellShut
}

// GroupState carries the per-group aggregates one evaluation pass reads.
// Rates are stored as positive magnitudes per active phase. The
// surrounding loop refreshes the aggregates before constraint evaluation;
// the evaluators only read them.
type GroupState struct {
	// ProductionRates sums the surface production of each group's member
	// wells, efficiency factors applied.
	ProductionRates map[string][]float64

	// ProductionReservoirRates sums the reservoir voidage production of
	// each group's member wells.
	ProductionReservoirRates map[string][]float64

	// InjectionSurfaceRates and InjectionReservoirRates sum each group's
	// injection per phase.
	InjectionSurfaceRates   map[string][]float64
	InjectionReservoirRates map[string][]float64
}

// NewGroupState returns an empty group state.
func NewGroupState() *GroupState {
	return &GroupState{
		ProductionRates:          make(map[string][]float64),
		ProductionReservoirRates: make(map[string][]float64),
		InjectionSurfaceRates:    make(map[string][]float64),
		InjectionReservoirRates:  make(map[string][]float64),
	}
}

// ProductionRate returns the group's aggregate production of the phase at
// dense position p, zero when the group has no recorded production.
func (gs *GroupState) ProductionRate(group string, p int) float64 {
	rates, ok := gs.ProductionRates[group]
	if !ok || p < 0 || p >= len(rates) {
		return 0
	}
	return rates[p]
}

// InjectionSurfaceRate returns the group's aggregate surface injection of
// the phase at dense position p.
func (gs *GroupState) InjectionSurfaceRate(group string, p int) float64 {
	rates, ok := gs.InjectionSurfaceRates[group]
	if !ok || p < 0 || p >= len(rates) {
		return 0
	}
	return rates[p]
}
