package model

// Phase identifies one of the surface fluids tracked by the simulator.
type Phase int

const (
	Water Phase = iota
	Oil
	Gas
)

// NumPhases is the size of the canonical phase enumeration; rate arrays
// indexed through a PhaseUsage are at most this long.
const NumPhases = 3

func (p Phase) String() string {
	switch p {
	case Water:
		return "WATER"
	case Oil:
		return "OIL"
	case Gas:
		return "GAS"
	default:
		return "UNKNOWN"
	}
}

// InjectorFluid declares which fluid an injection well pushes into the
// formation. The zero value is deliberately not a valid fluid: a well that
// reaches the constraint evaluator with an unrecognised fluid is a contract
// violation and aborts the step.
type InjectorFluid int

const (
	InjectorFluidNone InjectorFluid = iota
	InjectorWater
	InjectorOil
	InjectorGas
)

func (f InjectorFluid) String() string {
	switch f {
	case InjectorWater:
		return "WATER"
	case InjectorOil:
		return "OIL"
	case InjectorGas:
		return "GAS"
	default:
		return "NONE"
	}
}

// PhaseOf maps an injector fluid to the phase it injects.
func (f InjectorFluid) PhaseOf() (Phase, bool) {
	switch f {
	case InjectorWater:
		return Water, true
	case InjectorOil:
		return Oil, true
	case InjectorGas:
		return Gas, true
	default:
		return 0, false
	}
}

// WellStatus is the lifecycle state of a well: flowing, stopped at surface
// (crossflow through the wellbore still possible), or shut in completely.
type WellStatus int

const (
	WellOpen WellStatus = iota
	WellStop
	WellShut
)

func (s WellStatus) String() string {
	switch s {
	case WellOpen:
		return "OPEN"
	case WellStop:
		return "STOP"
	case WellShut:
		return "SHUT"
	default:
		return "UNKNOWN"
	}
}
