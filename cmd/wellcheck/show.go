package main

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratumworks/reservoir-wellsim/model"
)

var showStep int

var showCmd = &cobra.Command{
	Use:   "show DECKFILE",
	Short: "Show the wells and groups in effect at a report step",
	Args:  cobra.ExactArgs(1),
	Run:   showCommand,
}

func init() {
	showCmd.Flags().IntVar(&showStep, "step", 0, "Report step to show")
}

func showCommand(cmd *cobra.Command, args []string) {
	deck := loadDeckFile(args[0])
	if showStep < 0 || showStep >= deck.Steps {
		log.Fatal().Int("step", showStep).Int("steps", deck.Steps).Msg("Step out of range")
	}

	fmt.Printf("%s (step %d of %d, %.0fs per step)\n\n", deck.Title, showStep, deck.Steps, deck.StepSeconds)

	groups := deck.Schedule.Groups(showStep)
	fmt.Println(color.Cyan.Sprintf("GROUPS (%d)", len(groups)))
	for _, g := range groups {
		fmt.Printf("  %s\n", groupLine(g))
	}

	wells := deck.Schedule.Wells(showStep)
	fmt.Println()
	fmt.Println(color.Cyan.Sprintf("WELLS (%d)", len(wells)))
	for _, w := range wells {
		fmt.Printf("  %s\n", wellLine(w))
		if econ := econLine(w.Econ); econ != "" {
			fmt.Printf("      econ: %s\n", econ)
		}
	}
}

func groupLine(g *model.Group) string {
	var parts []string
	if g.Parent != "" {
		parts = append(parts, "parent="+g.Parent)
	}
	if g.HasProductionControl() {
		parts = append(parts, fmt.Sprintf("prod %s=%s", g.Production.Mode, udaString(g.Production.Target)))
	}
	for _, p := range []model.Phase{model.Water, model.Oil, model.Gas} {
		if !g.HasInjectionControl(p) {
			continue
		}
		c := g.Injection[p]
		parts = append(parts, fmt.Sprintf("inj[%s] %s=%s", strings.ToLower(p.String()), c.Mode, udaString(c.Target)))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%-10s no targets", g.Name)
	}
	return fmt.Sprintf("%-10s %s", g.Name, strings.Join(parts, "  "))
}

func wellLine(w *model.Well) string {
	kind := "producer"
	controls := producerControls(w.Production)
	if w.IsInjector() {
		kind = strings.ToLower(w.Injection.Fluid.String()) + " injector"
		controls = injectorControls(w.Injection)
	}
	return fmt.Sprintf("%-10s %-15s %-5s %-10s %d/%d  %s",
		w.Name, kind, w.Status, w.Group, w.OpenConnections(), len(w.Connections), controls)
}

func producerControls(p model.ProductionProperties) string {
	entries := []struct {
		mode model.ProducerCMode
		val  model.UDAValue
	}{
		{model.ProducerCModeORAT, p.OilRate},
		{model.ProducerCModeWRAT, p.WaterRate},
		{model.ProducerCModeGRAT, p.GasRate},
		{model.ProducerCModeLRAT, p.LiquidRate},
		{model.ProducerCModeRESV, p.ResvRate},
		{model.ProducerCModeBHP, p.BHPLimit},
		{model.ProducerCModeTHP, p.THPLimit},
	}
	var parts []string
	for _, e := range entries {
		if p.Present.Has(e.mode) {
			parts = append(parts, fmt.Sprintf("%s=%s", e.mode, udaString(e.val)))
		}
	}
	if len(parts) == 0 {
		return "no controls"
	}
	return strings.Join(parts, " ")
}

func injectorControls(p model.InjectionProperties) string {
	entries := []struct {
		mode model.InjectorCMode
		val  model.UDAValue
	}{
		{model.InjectorCModeRATE, p.SurfaceRate},
		{model.InjectorCModeRESV, p.ReservoirRate},
		{model.InjectorCModeBHP, p.BHPLimit},
		{model.InjectorCModeTHP, p.THPLimit},
	}
	var parts []string
	for _, e := range entries {
		if p.Present.Has(e.mode) {
			parts = append(parts, fmt.Sprintf("%s=%s", e.mode, udaString(e.val)))
		}
	}
	if len(parts) == 0 {
		return "no controls"
	}
	return strings.Join(parts, " ")
}

func econLine(e model.EconProductionLimits) string {
	if !e.OnAnyEffectiveLimit() && !e.EndRun && e.FollowonWell == "" {
		return ""
	}
	var parts []string
	if e.OnMinOilRate() {
		parts = append(parts, fmt.Sprintf("min_oil=%g", e.MinOilRate))
	}
	if e.OnMinGasRate() {
		parts = append(parts, fmt.Sprintf("min_gas=%g", e.MinGasRate))
	}
	if e.OnMinLiquidRate() {
		parts = append(parts, fmt.Sprintf("min_liquid=%g", e.MinLiquidRate))
	}
	if e.OnMinReservoirRate() {
		parts = append(parts, fmt.Sprintf("min_resv=%g", e.MinReservoirRate))
	}
	if e.OnMaxWaterCut() {
		parts = append(parts, fmt.Sprintf("max_wcut=%g", e.MaxWaterCut))
	}
	if e.OnMaxGasOilRatio() {
		parts = append(parts, fmt.Sprintf("max_gor=%g", e.MaxGasOilRatio))
	}
	if e.OnMaxWaterGasRatio() {
		parts = append(parts, fmt.Sprintf("max_wgr=%g", e.MaxWaterGasRatio))
	}
	if e.OnMaxGasLiquidRatio() {
		parts = append(parts, fmt.Sprintf("max_glr=%g", e.MaxGasLiquidRatio))
	}
	if e.OnAnyRateLimit() && e.Quantity == model.QuantityPotential {
		parts = append(parts, "quantity=potential")
	}
	if e.OnAnyRatioLimit() || e.OnAnyRateLimit() {
		parts = append(parts, "workover="+e.Workover.String())
	}
	if e.EndRun {
		parts = append(parts, "endrun")
	}
	if e.FollowonWell != "" {
		parts = append(parts, "followon="+e.FollowonWell)
	}
	return strings.Join(parts, " ")
}
