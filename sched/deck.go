package sched

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/stratumworks/reservoir-wellsim/core"
	"github.com/stratumworks/reservoir-wellsim/model"
)

// Deck is a fully loaded run description: the schedule plus the run-wide
// settings the schedule does not carry.
type Deck struct {
	Title       string
	Steps       int
	StepSeconds float64

	Water, Oil, Gas bool

	PVT      map[int]core.PVTProperties
	Schedule *Schedule

	// Summary holds the initial summary vectors that UDA limit references
	// resolve against. Never nil after LoadDeck.
	Summary model.SummaryState
}

// PhaseUsage returns the phase layout of the deck.
func (d *Deck) PhaseUsage() (core.PhaseUsage, error) {
	return core.NewPhaseUsage(d.Water, d.Oil, d.Gas)
}

// RateConverter builds the PVT-table rate converter of the deck.
func (d *Deck) RateConverter() (*core.TableRateConverter, error) {
	pu, err := d.PhaseUsage()
	if err != nil {
		return nil, err
	}
	conv := core.NewTableRateConverter(pu, d.PVT)
	if err := conv.Validate(); err != nil {
		return nil, err
	}
	return conv, nil
}

// internal JSON shapes, unexported so the wire format can evolve freely.
type deckJSON struct {
	Title       string             `json:"title"`
	Steps       int                `json:"steps"`
	StepSeconds float64            `json:"step_seconds"`
	Phases      *phasesJSON        `json:"phases"`
	PVTRegions  []pvtJSON          `json:"pvt_regions"`
	Summary     map[string]float64 `json:"summary"`
	Groups      []groupJSON        `json:"groups"`
	Wells       []wellJSON         `json:"wells"`
}

type phasesJSON struct {
	Water *bool `json:"water"`
	Oil   *bool `json:"oil"`
	Gas   *bool `json:"gas"`
}

type pvtJSON struct {
	Region int     `json:"region"`
	Bw     float64 `json:"bw"`
	Bo     float64 `json:"bo"`
	Bg     float64 `json:"bg"`
	Rs     float64 `json:"rs"`
	Rv     float64 `json:"rv"`
}

type groupJSON struct {
	Name       string         `json:"name"`
	Parent     string         `json:"parent"`
	FromStep   int            `json:"from_step"`
	UntilStep  *int           `json:"until_step"`
	Production *groupProdJSON `json:"production"`
	Injection  []groupInjJSON `json:"injection"`
}

type groupProdJSON struct {
	Mode   string  `json:"mode"`
	Target udaJSON `json:"target"`
}

type groupInjJSON struct {
	Phase  string  `json:"phase"`
	Mode   string  `json:"mode"`
	Target udaJSON `json:"target"`
}

type wellJSON struct {
	Name             string  `json:"name"`
	Group            string  `json:"group"`
	Type             string  `json:"type"` // "producer" | "injector"
	Status           string  `json:"status"`
	PredictionMode   *bool   `json:"prediction_mode"`
	AutoShutIn       bool    `json:"auto_shut_in"`
	EfficiencyFactor float64 `json:"efficiency_factor"`
	PVTRegion        int     `json:"pvt_region"`
	GuideRate        float64 `json:"guide_rate"`
	GuideRatePhase   string  `json:"guide_rate_phase"`
	FromStep         int     `json:"from_step"`
	UntilStep        *int    `json:"until_step"`

	Connections []connJSON      `json:"connections"`
	Production  *prodCtrlJSON   `json:"production"`
	Injection   *injCtrlJSON    `json:"injection"`
	Econ        *econLimitsJSON `json:"econ"`
	Rates       *rateParamsJSON `json:"rates"`
}

type connJSON struct {
	I          int   `json:"i"`
	J          int   `json:"j"`
	K          int   `json:"k"`
	Completion *int  `json:"completion"`
	Open       *bool `json:"open"`
}

type prodCtrlJSON struct {
	OilRate    *udaJSON `json:"oil_rate"`
	WaterRate  *udaJSON `json:"water_rate"`
	GasRate    *udaJSON `json:"gas_rate"`
	LiquidRate *udaJSON `json:"liquid_rate"`
	ResvRate   *udaJSON `json:"resv_rate"`
	BHPLimit   *udaJSON `json:"bhp_limit"`
	THPLimit   *udaJSON `json:"thp_limit"`
}

type injCtrlJSON struct {
	Fluid         string   `json:"fluid"`
	SurfaceRate   *udaJSON `json:"surface_rate"`
	ReservoirRate *udaJSON `json:"reservoir_rate"`
	BHPLimit      *udaJSON `json:"bhp_limit"`
	THPLimit      *udaJSON `json:"thp_limit"`
}

type econLimitsJSON struct {
	MinOilRate       float64 `json:"min_oil_rate"`
	MinGasRate       float64 `json:"min_gas_rate"`
	MinLiquidRate    float64 `json:"min_liquid_rate"`
	MinReservoirRate float64 `json:"min_reservoir_rate"`

	MaxWaterCut       float64 `json:"max_water_cut"`
	MaxGasOilRatio    float64 `json:"max_gas_oil_ratio"`
	MaxWaterGasRatio  float64 `json:"max_water_gas_ratio"`
	MaxGasLiquidRatio float64 `json:"max_gas_liquid_ratio"`

	Quantity     string `json:"quantity"` // "rate" | "potential"
	Workover     string `json:"workover"` // "none" | "con" | "+con" | "well" | "plug"
	EndRun       bool   `json:"end_run"`
	FollowonWell string `json:"followon_well"`
}

type rateParamsJSON struct {
	OilRate         float64 `json:"oil_rate"`
	DeclineRate     float64 `json:"decline_rate"`
	WaterCut        float64 `json:"water_cut"`
	WaterCutGrowth  float64 `json:"water_cut_growth"`
	GasOilRatio     float64 `json:"gas_oil_ratio"`
	GORGrowth       float64 `json:"gor_growth"`
	BHP             float64 `json:"bhp"`
	BHPDecline      float64 `json:"bhp_decline"`
	THP             float64 `json:"thp"`
	PotentialFactor float64 `json:"potential_factor"`
	InjectionRate   float64 `json:"injection_rate"`
}

// udaJSON accepts either a plain number or a summary-state key string.
type udaJSON struct {
	value float64
	key   string
}

func (u *udaJSON) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		u.value = f
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		u.key = s
		return nil
	}
	return fmt.Errorf("limit value must be a number or a summary key, got %s", string(b))
}

func (u udaJSON) toUDA() model.UDAValue {
	if u.key != "" {
		return model.UDAKey(u.key)
	}
	return model.UDA(u.value)
}

// LoadDeck reads a JSON deck from r and builds the schedule. The loader
// fails on structural problems: unknown enum strings, wells without
// groups, missing parents over the run's steps.
func LoadDeck(r io.Reader) (*Deck, error) {
	var payload deckJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadDeck: decode failed: %w", err)
	}

	deck := &Deck{
		Title:       payload.Title,
		Steps:       payload.Steps,
		StepSeconds: payload.StepSeconds,
		Water:       true,
		Oil:         true,
		Gas:         true,
		PVT:         make(map[int]core.PVTProperties),
		Schedule:    NewSchedule(),
	}
	if deck.Steps <= 0 {
		deck.Steps = 1
	}
	if deck.StepSeconds <= 0 {
		deck.StepSeconds = 86400 // one day
	}
	if p := payload.Phases; p != nil {
		if p.Water != nil {
			deck.Water = *p.Water
		}
		if p.Oil != nil {
			deck.Oil = *p.Oil
		}
		if p.Gas != nil {
			deck.Gas = *p.Gas
		}
	}

	for _, pvt := range payload.PVTRegions {
		deck.PVT[pvt.Region] = core.PVTProperties{
			Bw: pvt.Bw, Bo: pvt.Bo, Bg: pvt.Bg, Rs: pvt.Rs, Rv: pvt.Rv,
		}
	}

	deck.Summary = make(model.SummaryState, len(payload.Summary))
	for key, value := range payload.Summary {
		deck.Summary[key] = value
	}

	for _, jg := range payload.Groups {
		g, err := groupFromJSON(jg)
		if err != nil {
			return nil, fmt.Errorf("LoadDeck: %w", err)
		}
		if err := deck.Schedule.AddGroup(g, jg.FromStep, until(jg.UntilStep)); err != nil {
			return nil, fmt.Errorf("LoadDeck: %w", err)
		}
	}

	for _, jw := range payload.Wells {
		w, err := wellFromJSON(jw)
		if err != nil {
			return nil, fmt.Errorf("LoadDeck: %w", err)
		}
		if err := deck.Schedule.AddWell(w, jw.FromStep, until(jw.UntilStep)); err != nil {
			return nil, fmt.Errorf("LoadDeck: %w", err)
		}
	}

	if err := deck.Schedule.Validate(deck.Steps); err != nil {
		return nil, fmt.Errorf("LoadDeck: %w", err)
	}

	return deck, nil
}

func until(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func groupFromJSON(jg groupJSON) (*model.Group, error) {
	if jg.Name == "" {
		return nil, fmt.Errorf("group with empty name")
	}

	g := &model.Group{
		Name:      jg.Name,
		Parent:    jg.Parent,
		Injection: make(map[model.Phase]model.GroupInjectionControls),
	}

	if jp := jg.Production; jp != nil {
		mode, err := groupProdModeFromString(jp.Mode)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", jg.Name, err)
		}
		g.Production = model.GroupProductionControls{Mode: mode, Target: jp.Target.toUDA()}
	}

	for _, ji := range jg.Injection {
		ph, err := phaseFromString(ji.Phase)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", jg.Name, err)
		}
		mode, err := groupInjModeFromString(ji.Mode)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", jg.Name, err)
		}
		g.Injection[ph] = model.GroupInjectionControls{Mode: mode, Target: ji.Target.toUDA()}
	}

	return g, nil
}

func wellFromJSON(jw wellJSON) (*model.Well, error) {
	if jw.Name == "" {
		return nil, fmt.Errorf("well with empty name")
	}

	w := &model.Well{
		Name:             jw.Name,
		Group:            jw.Group,
		PredictionMode:   true,
		AutoShutIn:       jw.AutoShutIn,
		EfficiencyFactor: jw.EfficiencyFactor,
		PVTRegion:        jw.PVTRegion,
		GuideRate:        jw.GuideRate,
	}
	if w.EfficiencyFactor <= 0 {
		w.EfficiencyFactor = 1.0
	}
	if jw.PredictionMode != nil {
		w.PredictionMode = *jw.PredictionMode
	}

	switch strings.ToLower(strings.TrimSpace(jw.Type)) {
	case "producer", "":
		w.Producer = true
	case "injector":
		w.Producer = false
	default:
		return nil, fmt.Errorf("well %q: unknown type %q", jw.Name, jw.Type)
	}

	status, err := statusFromString(jw.Status)
	if err != nil {
		return nil, fmt.Errorf("well %q: %w", jw.Name, err)
	}
	w.Status = status

	if jw.GuideRatePhase != "" {
		ph, err := phaseFromString(jw.GuideRatePhase)
		if err != nil {
			return nil, fmt.Errorf("well %q: %w", jw.Name, err)
		}
		w.GuideRatePhase = ph
	} else {
		w.GuideRatePhase = model.Oil
	}

	// Bare connections get synthetic negative completion ids so they
	// never collide with deck-assigned completion numbers.
	nextBare := -1
	for _, jc := range jw.Connections {
		conn := model.Connection{I: jc.I, J: jc.J, K: jc.K, Open: true}
		if jc.Open != nil {
			conn.Open = *jc.Open
		}
		if jc.Completion != nil {
			if *jc.Completion < 0 {
				return nil, fmt.Errorf("well %q: completion ids must be non-negative, got %d", jw.Name, *jc.Completion)
			}
			conn.Completion = *jc.Completion
		} else {
			conn.Completion = nextBare
			nextBare--
		}
		w.Connections = append(w.Connections, conn)
	}

	if w.Producer {
		if jp := jw.Production; jp != nil {
			w.Production = prodPropsFromJSON(jp)
		}
		w.Production.Prediction = w.PredictionMode
	} else {
		props, err := injPropsFromJSON(jw.Name, jw.Injection)
		if err != nil {
			return nil, err
		}
		w.Injection = props
	}

	if je := jw.Econ; je != nil {
		econ, err := econFromJSON(jw.Name, je)
		if err != nil {
			return nil, err
		}
		w.Econ = econ
	}

	if jr := jw.Rates; jr != nil {
		w.Rates = model.RateParams{
			OilRate:         jr.OilRate,
			DeclineRate:     jr.DeclineRate,
			WaterCut:        jr.WaterCut,
			WaterCutGrowth:  jr.WaterCutGrowth,
			GasOilRatio:     jr.GasOilRatio,
			GORGrowth:       jr.GORGrowth,
			BHP:             jr.BHP,
			BHPDecline:      jr.BHPDecline,
			THP:             jr.THP,
			PotentialFactor: jr.PotentialFactor,
			InjectionRate:   jr.InjectionRate,
		}
	}

	return w, nil
}

func prodPropsFromJSON(jp *prodCtrlJSON) model.ProductionProperties {
	var props model.ProductionProperties
	set := func(mode model.ProducerCMode, v *udaJSON) model.UDAValue {
		if v == nil {
			return model.UDAValue{}
		}
		props.Present.Add(mode)
		return v.toUDA()
	}
	props.OilRate = set(model.ProducerCModeORAT, jp.OilRate)
	props.WaterRate = set(model.ProducerCModeWRAT, jp.WaterRate)
	props.GasRate = set(model.ProducerCModeGRAT, jp.GasRate)
	props.LiquidRate = set(model.ProducerCModeLRAT, jp.LiquidRate)
	props.ResvRate = set(model.ProducerCModeRESV, jp.ResvRate)
	props.BHPLimit = set(model.ProducerCModeBHP, jp.BHPLimit)
	props.THPLimit = set(model.ProducerCModeTHP, jp.THPLimit)
	return props
}

func injPropsFromJSON(well string, ji *injCtrlJSON) (model.InjectionProperties, error) {
	var props model.InjectionProperties
	if ji == nil {
		return props, fmt.Errorf("well %q: injector without injection controls", well)
	}

	switch strings.ToLower(strings.TrimSpace(ji.Fluid)) {
	case "water":
		props.Fluid = model.InjectorWater
	case "oil":
		props.Fluid = model.InjectorOil
	case "gas":
		props.Fluid = model.InjectorGas
	default:
		return props, fmt.Errorf("well %q: unknown injection fluid %q", well, ji.Fluid)
	}

	set := func(mode model.InjectorCMode, v *udaJSON) model.UDAValue {
		if v == nil {
			return model.UDAValue{}
		}
		props.Present.Add(mode)
		return v.toUDA()
	}
	props.SurfaceRate = set(model.InjectorCModeRATE, ji.SurfaceRate)
	props.ReservoirRate = set(model.InjectorCModeRESV, ji.ReservoirRate)
	props.BHPLimit = set(model.InjectorCModeBHP, ji.BHPLimit)
	props.THPLimit = set(model.InjectorCModeTHP, ji.THPLimit)
	return props, nil
}

func econFromJSON(well string, je *econLimitsJSON) (model.EconProductionLimits, error) {
	econ := model.EconProductionLimits{
		MinOilRate:        je.MinOilRate,
		MinGasRate:        je.MinGasRate,
		MinLiquidRate:     je.MinLiquidRate,
		MinReservoirRate:  je.MinReservoirRate,
		MaxWaterCut:       je.MaxWaterCut,
		MaxGasOilRatio:    je.MaxGasOilRatio,
		MaxWaterGasRatio:  je.MaxWaterGasRatio,
		MaxGasLiquidRatio: je.MaxGasLiquidRatio,
		EndRun:            je.EndRun,
		FollowonWell:      je.FollowonWell,
	}

	switch strings.ToLower(strings.TrimSpace(je.Quantity)) {
	case "rate", "":
		econ.Quantity = model.QuantityRate
	case "potential", "potn":
		econ.Quantity = model.QuantityPotential
	default:
		return econ, fmt.Errorf("well %q: unknown econ quantity %q", well, je.Quantity)
	}

	switch strings.ToLower(strings.TrimSpace(je.Workover)) {
	case "none", "":
		econ.Workover = model.EconWorkoverNone
	case "con":
		econ.Workover = model.EconWorkoverCon
	case "+con", "conp":
		econ.Workover = model.EconWorkoverConPlus
	case "well":
		econ.Workover = model.EconWorkoverWell
	case "plug":
		econ.Workover = model.EconWorkoverPlug
	default:
		return econ, fmt.Errorf("well %q: unknown workover %q", well, je.Workover)
	}

	return econ, nil
}

func statusFromString(s string) (model.WellStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "":
		return model.WellOpen, nil
	case "stop", "stopped":
		return model.WellStop, nil
	case "shut":
		return model.WellShut, nil
	default:
		return model.WellOpen, fmt.Errorf("unknown well status %q", s)
	}
}

func phaseFromString(s string) (model.Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "water":
		return model.Water, nil
	case "oil":
		return model.Oil, nil
	case "gas":
		return model.Gas, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}

func groupProdModeFromString(s string) (model.GroupProductionCMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return model.GroupProductionCModeNone, nil
	case "ORAT":
		return model.GroupProductionCModeORAT, nil
	case "WRAT":
		return model.GroupProductionCModeWRAT, nil
	case "GRAT":
		return model.GroupProductionCModeGRAT, nil
	case "LRAT":
		return model.GroupProductionCModeLRAT, nil
	case "RESV":
		return model.GroupProductionCModeRESV, nil
	case "FLD":
		return model.GroupProductionCModeFLD, nil
	default:
		return 0, fmt.Errorf("unknown group production mode %q", s)
	}
}

func groupInjModeFromString(s string) (model.GroupInjectionCMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return model.GroupInjectionCModeNone, nil
	case "RATE":
		return model.GroupInjectionCModeRATE, nil
	case "RESV":
		return model.GroupInjectionCModeRESV, nil
	case "FLD":
		return model.GroupInjectionCModeFLD, nil
	default:
		return 0, fmt.Errorf("unknown group injection mode %q", s)
	}
}
