package model

// Connection is one perforation of a well into the reservoir grid.
type Connection struct {
	I, J, K int
	// Completion groups connections that are worked over together. Bare
	// connections carry a synthetic negative id so they never collide with
	// deck-assigned completion numbers.
	Completion int
	Open       bool
}

// Well is the schedule-side description of one well for a report step.
type Well struct {
	Name  string
	Group string

	Producer bool
	Status   WellStatus

	// PredictionMode is false while the well follows observed history
	// rates rather than predicted ones.
	PredictionMode bool

	// AutoShutIn selects whether an economic closure shuts the well or
	// merely stops it.
	AutoShutIn bool

	EfficiencyFactor float64
	PVTRegion        int

	GuideRate      float64
	GuideRatePhase Phase

	Connections []Connection

	Production ProductionProperties
	Injection  InjectionProperties
	Econ       EconProductionLimits

	// Rates drives the well's synthetic rate evolution between steps.
	Rates RateParams
}

// IsProducer reports whether the well produces.
func (w *Well) IsProducer() bool { return w.Producer }

// IsInjector reports whether the well injects.
func (w *Well) IsInjector() bool { return !w.Producer }

// InjectorFluid returns the injected fluid, InjectorFluidNone for
// producers.
func (w *Well) InjectorFluid() InjectorFluid {
	if w.Producer {
		return InjectorFluidNone
	}
	return w.Injection.Fluid
}

// ProductionControls resolves the producer limit set against the summary
// state.
func (w *Well) ProductionControls(sum SummaryState) ProductionControls {
	return w.Production.Controls(sum)
}

// InjectionControls resolves the injector limit set against the summary
// state.
func (w *Well) InjectionControls(sum SummaryState) InjectionControls {
	return w.Injection.Controls(sum)
}

// OpenConnections counts connections currently open to flow.
func (w *Well) OpenConnections() int {
	n := 0
	for _, c := range w.Connections {
		if c.Open {
			n++
		}
	}
	return n
}
