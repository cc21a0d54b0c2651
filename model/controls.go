package model

// ProducerCMode identifies the constraint currently governing a producing
// well. The evaluator walks these in a fixed priority order; the order of
// the constants is not that order.
type ProducerCMode int

const (
	ProducerCModeNone ProducerCMode = iota
	ProducerCModeORAT               // surface oil rate
	ProducerCModeWRAT               // surface water rate
	ProducerCModeGRAT               // surface gas rate
	ProducerCModeLRAT               // surface liquid (oil+water) rate
	ProducerCModeRESV               // reservoir voidage rate
	ProducerCModeBHP
	ProducerCModeTHP
	ProducerCModeGRUP
)

func (m ProducerCMode) String() string {
	switch m {
	case ProducerCModeORAT:
		return "ORAT"
	case ProducerCModeWRAT:
		return "WRAT"
	case ProducerCModeGRAT:
		return "GRAT"
	case ProducerCModeLRAT:
		return "LRAT"
	case ProducerCModeRESV:
		return "RESV"
	case ProducerCModeBHP:
		return "BHP"
	case ProducerCModeTHP:
		return "THP"
	case ProducerCModeGRUP:
		return "GRUP"
	default:
		return "NONE"
	}
}

// InjectorCMode identifies the constraint currently governing an injection
// well.
type InjectorCMode int

const (
	InjectorCModeNone InjectorCMode = iota
	InjectorCModeRATE               // surface rate of the injected fluid
	InjectorCModeRESV               // reservoir voidage rate
	InjectorCModeBHP
	InjectorCModeTHP
	InjectorCModeGRUP
)

func (m InjectorCMode) String() string {
	switch m {
	case InjectorCModeRATE:
		return "RATE"
	case InjectorCModeRESV:
		return "RESV"
	case InjectorCModeBHP:
		return "BHP"
	case InjectorCModeTHP:
		return "THP"
	case InjectorCModeGRUP:
		return "GRUP"
	default:
		return "NONE"
	}
}

// ProducerCModeSet is a bit set of producer control modes, marking which
// limits are present for the current report step.
type ProducerCModeSet uint16

// Add marks a mode as present.
func (s *ProducerCModeSet) Add(m ProducerCMode) { *s |= 1 << uint(m) }

// Has reports whether a limit for the given mode is present.
func (s ProducerCModeSet) Has(m ProducerCMode) bool { return s&(1<<uint(m)) != 0 }

// InjectorCModeSet is a bit set of injector control modes.
type InjectorCModeSet uint16

// Add marks a mode as present.
func (s *InjectorCModeSet) Add(m InjectorCMode) { *s |= 1 << uint(m) }

// Has reports whether a limit for the given mode is present.
func (s InjectorCModeSet) Has(m InjectorCMode) bool { return s&(1<<uint(m)) != 0 }

// ProductionProperties is the schedule-side description of a producer's
// limits. Limit values may be UDA references; Controls resolves them.
type ProductionProperties struct {
	Present    ProducerCModeSet
	OilRate    UDAValue
	WaterRate  UDAValue
	GasRate    UDAValue
	LiquidRate UDAValue
	ResvRate   UDAValue
	BHPLimit   UDAValue
	THPLimit   UDAValue

	// Prediction is false when the well is under history matching; the RESV
	// check then recomputes the voidage target from the history surface
	// rates instead of trusting the stored reservoir rates.
	Prediction bool
}

// Controls resolves every limit against the summary state.
func (p ProductionProperties) Controls(sum SummaryState) ProductionControls {
	return ProductionControls{
		Present:    p.Present,
		OilRate:    p.OilRate.Resolve(sum),
		WaterRate:  p.WaterRate.Resolve(sum),
		GasRate:    p.GasRate.Resolve(sum),
		LiquidRate: p.LiquidRate.Resolve(sum),
		ResvRate:   p.ResvRate.Resolve(sum),
		BHPLimit:   p.BHPLimit.Resolve(sum),
		THPLimit:   p.THPLimit.Resolve(sum),
		Prediction: p.Prediction,
	}
}

// ProductionControls is a producer's limit set with every value resolved to
// a plain number, ready for comparison.
type ProductionControls struct {
	Present    ProducerCModeSet
	OilRate    float64
	WaterRate  float64
	GasRate    float64
	LiquidRate float64
	ResvRate   float64
	BHPLimit   float64
	THPLimit   float64
	Prediction bool
}

// Has reports whether a limit for the given mode is present.
func (c ProductionControls) Has(m ProducerCMode) bool { return c.Present.Has(m) }

// InjectionProperties is the schedule-side description of an injector's
// limits.
type InjectionProperties struct {
	Present       InjectorCModeSet
	Fluid         InjectorFluid
	SurfaceRate   UDAValue
	ReservoirRate UDAValue
	BHPLimit      UDAValue
	THPLimit      UDAValue
}

// Controls resolves every limit against the summary state.
func (p InjectionProperties) Controls(sum SummaryState) InjectionControls {
	return InjectionControls{
		Present:       p.Present,
		Fluid:         p.Fluid,
		SurfaceRate:   p.SurfaceRate.Resolve(sum),
		ReservoirRate: p.ReservoirRate.Resolve(sum),
		BHPLimit:      p.BHPLimit.Resolve(sum),
		THPLimit:      p.THPLimit.Resolve(sum),
	}
}

// InjectionControls is an injector's limit set with every value resolved.
type InjectionControls struct {
	Present       InjectorCModeSet
	Fluid         InjectorFluid
	SurfaceRate   float64
	ReservoirRate float64
	BHPLimit      float64
	THPLimit      float64
}

// Has reports whether a limit for the given mode is present.
func (c InjectionControls) Has(m InjectorCMode) bool { return c.Present.Has(m) }
