package model

// QuantityLimit selects which quantity the minimum-rate economic limits are
// compared against.
type QuantityLimit int

const (
	// QuantityRate compares against the actual production rates.
	QuantityRate QuantityLimit = iota
	// QuantityPotential compares against the well production potentials.
	QuantityPotential
)

func (q QuantityLimit) String() string {
	if q == QuantityPotential {
		return "POTN"
	}
	return "RATE"
}

// EconWorkover selects the remedy applied when a ratio economic limit is
// violated.
type EconWorkover int

const (
	EconWorkoverNone EconWorkover = iota
	// EconWorkoverCon closes the worst-offending completion.
	EconWorkoverCon
	// EconWorkoverConPlus closes the worst-offending completion and all
	// completions below it.
	EconWorkoverConPlus
	// EconWorkoverWell closes the well.
	EconWorkoverWell
	// EconWorkoverPlug plugs the well back.
	EconWorkoverPlug
)

func (w EconWorkover) String() string {
	switch w {
	case EconWorkoverCon:
		return "CON"
	case EconWorkoverConPlus:
		return "+CON"
	case EconWorkoverWell:
		return "WELL"
	case EconWorkoverPlug:
		return "PLUG"
	default:
		return "NONE"
	}
}

// EconProductionLimits holds the economic limit settings for one producer.
// A limit of zero means the limit is not active; the On* predicates encode
// that convention.
type EconProductionLimits struct {
	MinOilRate       float64
	MinGasRate       float64
	MinLiquidRate    float64
	MinReservoirRate float64

	MaxWaterCut       float64
	MaxGasOilRatio    float64
	MaxWaterGasRatio  float64
	MaxGasLiquidRatio float64

	Quantity     QuantityLimit
	Workover     EconWorkover
	EndRun       bool
	FollowonWell string
}

// OnMinOilRate reports whether the minimum oil rate limit is active.
func (e EconProductionLimits) OnMinOilRate() bool { return e.MinOilRate > 0 }

// OnMinGasRate reports whether the minimum gas rate limit is active.
func (e EconProductionLimits) OnMinGasRate() bool { return e.MinGasRate > 0 }

// OnMinLiquidRate reports whether the minimum liquid rate limit is active.
func (e EconProductionLimits) OnMinLiquidRate() bool { return e.MinLiquidRate > 0 }

// OnMinReservoirRate reports whether the minimum reservoir fluid rate limit
// is active.
func (e EconProductionLimits) OnMinReservoirRate() bool { return e.MinReservoirRate > 0 }

// OnMaxWaterCut reports whether the maximum water cut limit is active.
func (e EconProductionLimits) OnMaxWaterCut() bool { return e.MaxWaterCut > 0 }

// OnMaxGasOilRatio reports whether the maximum gas-oil ratio limit is active.
func (e EconProductionLimits) OnMaxGasOilRatio() bool { return e.MaxGasOilRatio > 0 }

// OnMaxWaterGasRatio reports whether the maximum water-gas ratio limit is
// active.
func (e EconProductionLimits) OnMaxWaterGasRatio() bool { return e.MaxWaterGasRatio > 0 }

// OnMaxGasLiquidRatio reports whether the maximum gas-liquid ratio limit is
// active.
func (e EconProductionLimits) OnMaxGasLiquidRatio() bool { return e.MaxGasLiquidRatio > 0 }

// OnAnyRateLimit reports whether any minimum-rate limit is active.
func (e EconProductionLimits) OnAnyRateLimit() bool {
	return e.OnMinOilRate() || e.OnMinGasRate() || e.OnMinLiquidRate() || e.OnMinReservoirRate()
}

// OnAnyRatioLimit reports whether any ratio limit is active.
func (e EconProductionLimits) OnAnyRatioLimit() bool {
	return e.OnMaxWaterCut() || e.OnMaxGasOilRatio() || e.OnMaxWaterGasRatio() || e.OnMaxGasLiquidRatio()
}

// OnAnyEffectiveLimit reports whether any economic limit is active at all.
// When false the whole economic evaluation is skipped.
func (e EconProductionLimits) OnAnyEffectiveLimit() bool {
	return e.OnAnyRateLimit() || e.OnAnyRatioLimit()
}

// ValidFollowonWell reports whether a follow-on well is configured.
func (e EconProductionLimits) ValidFollowonWell() bool {
	return e.FollowonWell != ""
}
