package model

// GroupProductionCMode is the control mode a group imposes on its member
// producers.
type GroupProductionCMode int

const (
	GroupProductionCModeNone GroupProductionCMode = iota
	GroupProductionCModeORAT
	GroupProductionCModeWRAT
	GroupProductionCModeGRAT
	GroupProductionCModeLRAT
	GroupProductionCModeRESV
	GroupProductionCModeFLD
)

func (m GroupProductionCMode) String() string {
	switch m {
	case GroupProductionCModeORAT:
		return "ORAT"
	case GroupProductionCModeWRAT:
		return "WRAT"
	case GroupProductionCModeGRAT:
		return "GRAT"
	case GroupProductionCModeLRAT:
		return "LRAT"
	case GroupProductionCModeRESV:
		return "RESV"
	case GroupProductionCModeFLD:
		return "FLD"
	default:
		return "NONE"
	}
}

// GroupInjectionCMode is the control mode a group imposes on its member
// injectors of one phase.
type GroupInjectionCMode int

const (
	GroupInjectionCModeNone GroupInjectionCMode = iota
	GroupInjectionCModeRATE
	GroupInjectionCModeRESV
	GroupInjectionCModeFLD
)

func (m GroupInjectionCMode) String() string {
	switch m {
	case GroupInjectionCModeRATE:
		return "RATE"
	case GroupInjectionCModeRESV:
		return "RESV"
	case GroupInjectionCModeFLD:
		return "FLD"
	default:
		return "NONE"
	}
}

// GroupProductionControls is a group's production target for one report
// step.
type GroupProductionControls struct {
	Mode   GroupProductionCMode
	Target UDAValue
}

// GroupInjectionControls is a group's injection target for one phase.
type GroupInjectionControls struct {
	Mode   GroupInjectionCMode
	Target UDAValue
}

// Group is one node of the well group tree. The field group has Parent ""
// and is its own root.
type Group struct {
	Name   string
	Parent string

	Production GroupProductionControls
	Injection  map[Phase]GroupInjectionControls
}

// HasProductionControl reports whether the group imposes a production
// target.
func (g *Group) HasProductionControl() bool {
	return g.Production.Mode != GroupProductionCModeNone
}

// HasInjectionControl reports whether the group imposes an injection target
// for the given phase.
func (g *Group) HasInjectionControl(p Phase) bool {
	c, ok := g.Injection[p]
	return ok && c.Mode != GroupInjectionCModeNone
}
