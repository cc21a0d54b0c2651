package core

import (
	"fmt"

	"github.com/stratumworks/reservoir-wellsim/model"
)

// RateConverter translates between surface rates and reservoir voidage
// rates for a fluid-in-place region and a PVT region. Rate vectors are
// dense per the converter's PhaseUsage.
type RateConverter interface {
	// CalcReservoirVoidageRates fills voidage with the reservoir-condition
	// rates corresponding to the given surface rates.
	CalcReservoirVoidageRates(fipRegion, pvtRegion int, surface, voidage []float64)

	// CalcCoeff fills coeff with per-phase surface-to-reservoir
	// conversion coefficients, one entry per active phase.
	CalcCoeff(fipRegion, pvtRegion int, coeff []float64)
}

// PVTProperties are the formation volume factors and dissolution ratios of
// one PVT region, evaluated at the region's average pressure.
type PVTProperties struct {
	// Bw, Bo and Bg are the water, oil and gas formation volume factors,
	// reservoir volume per surface volume.
	Bw float64
	Bo float64
	Bg float64

	// Rs is the solution gas-oil ratio (surface gas dissolved per surface
	// oil), Rv the vaporized oil-gas ratio.
	Rs float64
	Rv float64
}

// TableRateConverter converts rates using per-region PVT property tables.
// Dissolved gas travels inside the oil phase at reservoir conditions and
// vaporized oil inside the gas phase, so the voidage of each hydrocarbon
// phase is computed from its free surface rate.
type TableRateConverter struct {
	usage   PhaseUsage
	regions map[int]PVTProperties
}

// NewTableRateConverter builds a converter over the given PVT regions.
// Region keys are PVT region indices; every region a well references must
// be present.
func NewTableRateConverter(pu PhaseUsage, regions map[int]PVTProperties) *TableRateConverter {
	if regions == nil {
		regions = make(map[int]PVTProperties)
	}
	return &TableRateConverter{usage: pu, regions: regions}
}

func (c *TableRateConverter) props(pvtRegion int) PVTProperties {
	if p, ok := c.regions[pvtRegion]; ok {
		return p
	}
	// Unknown regions fall back to unit factors so conversion degrades to
	// identity instead of zeroing rates.
	return PVTProperties{Bw: 1, Bo: 1, Bg: 1}
}

// CalcReservoirVoidageRates implements RateConverter. The fluid-in-place
// region selects which in-place averages the PVT properties were built
// from; the table form carries one entry per PVT region, so fipRegion only
// participates through the caller's choice of table.
func (c *TableRateConverter) CalcReservoirVoidageRates(fipRegion, pvtRegion int, surface, voidage []float64) {
	_ = fipRegion
	p := c.props(pvtRegion)
	pu := c.usage

	var qw, qo, qg float64
	if i := pu.Pos(model.Water); i >= 0 {
		qw = surface[i]
	}
	if i := pu.Pos(model.Oil); i >= 0 {
		qo = surface[i]
	}
	if i := pu.Pos(model.Gas); i >= 0 {
		qg = surface[i]
	}

	// Free rates at surface conditions: dissolved gas is carried by oil,
	// vaporized oil by gas.
	freeOil := qo - p.Rv*qg
	freeGas := qg - p.Rs*qo

	if i := pu.Pos(model.Water); i >= 0 {
		voidage[i] = p.Bw * qw
	}
	if i := pu.Pos(model.Oil); i >= 0 {
		voidage[i] = p.Bo * freeOil
	}
	if i := pu.Pos(model.Gas); i >= 0 {
		voidage[i] = p.Bg * freeGas
	}
}

// CalcCoeff implements RateConverter. Coefficients ignore dissolution so
// they stay per-phase multiplicative, which is how group-level voidage
// targets consume them.
func (c *TableRateConverter) CalcCoeff(fipRegion, pvtRegion int, coeff []float64) {
	_ = fipRegion
	p := c.props(pvtRegion)
	pu := c.usage

	if i := pu.Pos(model.Water); i >= 0 {
		coeff[i] = p.Bw
	}
	if i := pu.Pos(model.Oil); i >= 0 {
		coeff[i] = p.Bo
	}
	if i := pu.Pos(model.Gas); i >= 0 {
		coeff[i] = p.Bg
	}
}

// Validate checks that every property set is physically usable.
func (c *TableRateConverter) Validate() error {
	for region, p := range c.regions {
		if p.Bw <= 0 || p.Bo <= 0 || p.Bg <= 0 {
			return fmt.Errorf("pvt region %d: formation volume factors must be positive", region)
		}
		if p.Rs < 0 || p.Rv < 0 {
			return fmt.Errorf("pvt region %d: dissolution ratios must be non-negative", region)
		}
	}
	return nil
}
