package core

import (
	"math"

	"github.com/stratumworks/reservoir-wellsim/model"
)

// RateModel updates a well's operating state for a given simulation time.
type RateModel interface {
	UpdateRates(simTime float64, ws *WellState)
}

// StaticRateModel leaves the well's rates unchanged.
type StaticRateModel struct{}

// UpdateRates for a static well does nothing.
func (StaticRateModel) UpdateRates(float64, *WellState) {}

// DeclineRateModel evolves a producer along an exponential oil decline
// with a rising water cut and gas-oil ratio. Water enters from below, so
// the deepest open connection always carries the largest water share;
// closing it improves the well's ratios on the next update. Rates are
// written with the production sign convention, negative.
type DeclineRateModel struct {
	well   *model.Well
	usage  PhaseUsage
	params model.RateParams
}

// NewDeclineRateModel builds the decline driver for a producer.
func NewDeclineRateModel(w *model.Well, pu PhaseUsage) *DeclineRateModel {
	return &DeclineRateModel{well: w, usage: pu, params: w.Rates}
}

// UpdateRates implements RateModel.
func (m *DeclineRateModel) UpdateRates(simTime float64, ws *WellState) {
	np := m.usage.NumActive()
	if ws.Status != model.WellOpen {
		zeroRates(ws, np)
		return
	}

	p := m.params
	oil := p.OilRate * math.Exp(-p.DeclineRate*simTime)
	wc := p.WaterCut + p.WaterCutGrowth*simTime
	if wc > 0.98 {
		wc = 0.98
	}
	if wc < 0 {
		wc = 0
	}
	water := 0.0
	if wc < 1 {
		water = oil * wc / (1 - wc)
	}
	gor := p.GasOilRatio + p.GORGrowth*simTime
	if gor < 0 {
		gor = 0
	}

	open := make([]int, 0, len(m.well.Connections))
	for i, c := range m.well.Connections {
		if c.Open {
			open = append(open, i)
		}
	}

	for i := range ws.SurfaceRates {
		ws.SurfaceRates[i] = 0
	}
	for i := range ws.ConnectionRates {
		ws.ConnectionRates[i] = 0
	}

	n := len(open)
	if n > 0 {
		// Triangular weights: oil favors the shallow end of the well,
		// water the deep end.
		total := float64(n*(n+1)) / 2
		for k, ci := range open {
			oilShare := oil * float64(n-k) / total
			waterShare := water * float64(k+1) / total
			gasShare := oilShare * gor

			if i := m.usage.Pos(model.Oil); i >= 0 {
				ws.SetConnRate(np, ci, i, -oilShare)
				ws.SurfaceRates[i] -= oilShare
			}
			if i := m.usage.Pos(model.Water); i >= 0 {
				ws.SetConnRate(np, ci, i, -waterShare)
				ws.SurfaceRates[i] -= waterShare
			}
			if i := m.usage.Pos(model.Gas); i >= 0 {
				ws.SetConnRate(np, ci, i, -gasShare)
				ws.SurfaceRates[i] -= gasShare
			}
		}
	}

	ws.BHP = p.BHP - p.BHPDecline*simTime
	if ws.BHP < 1e5 {
		ws.BHP = 1e5
	}
	ws.THP = p.THP

	factor := p.PotentialFactor
	if factor <= 0 {
		factor = 1.0
	}
	for i := 0; i < np; i++ {
		ws.Potentials[i] = math.Abs(ws.SurfaceRates[i]) * factor
	}
}

// SteadyInjectionModel holds an injector at its configured surface rate.
type SteadyInjectionModel struct {
	well   *model.Well
	usage  PhaseUsage
	params model.RateParams
}

// NewSteadyInjectionModel builds the steady driver for an injector.
func NewSteadyInjectionModel(w *model.Well, pu PhaseUsage) *SteadyInjectionModel {
	return &SteadyInjectionModel{well: w, usage: pu, params: w.Rates}
}

// UpdateRates implements RateModel.
func (m *SteadyInjectionModel) UpdateRates(simTime float64, ws *WellState) {
	np := m.usage.NumActive()
	if ws.Status != model.WellOpen {
		zeroRates(ws, np)
		return
	}

	for i := range ws.SurfaceRates {
		ws.SurfaceRates[i] = 0
	}
	for i := range ws.ConnectionRates {
		ws.ConnectionRates[i] = 0
	}

	ph, ok := m.well.InjectorFluid().PhaseOf()
	if !ok {
		return
	}
	pos := m.usage.Pos(ph)
	if pos < 0 {
		return
	}

	rate := m.params.InjectionRate
	ws.SurfaceRates[pos] = rate

	open := 0
	for _, c := range m.well.Connections {
		if c.Open {
			open++
		}
	}
	if open > 0 {
		share := rate / float64(open)
		for i, c := range m.well.Connections {
			if c.Open {
				ws.SetConnRate(np, i, pos, share)
			}
		}
	}

	ws.BHP = m.params.BHP
	ws.THP = m.params.THP

	factor := m.params.PotentialFactor
	if factor <= 0 {
		factor = 1.0
	}
	for i := 0; i < np; i++ {
		ws.Potentials[i] = math.Abs(ws.SurfaceRates[i]) * factor
	}
}

// NewRateModel chooses an appropriate driver for the well. Wells without
// rate parameters keep whatever state the surrounding loop put there.
func NewRateModel(w *model.Well, pu PhaseUsage) RateModel {
	switch {
	case w.IsProducer() && w.Rates.OilRate > 0:
		return NewDeclineRateModel(w, pu)
	case w.IsInjector() && w.Rates.InjectionRate > 0:
		return NewSteadyInjectionModel(w, pu)
	default:
		return StaticRateModel{}
	}
}

func zeroRates(ws *WellState, np int) {
	for p := 0; p < np; p++ {
		ws.SurfaceRates[p] = 0
		ws.ReservoirRates[p] = 0
		ws.Potentials[p] = 0
	}
	for i := range ws.ConnectionRates {
		ws.ConnectionRates[i] = 0
	}
}
