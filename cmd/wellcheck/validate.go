package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratumworks/reservoir-wellsim/model"
	"github.com/stratumworks/reservoir-wellsim/sched"
)

var validateCmd = &cobra.Command{
	Use:   "validate DECKFILE",
	Short: "Validate a deck file",
	Long:  "Load a deck, check its schedule references and PVT tables, and summarise what it contains.",
	Args:  cobra.ExactArgs(1),
	Run:   validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) {
	deck := loadDeckFile(args[0])

	if _, err := deck.PhaseUsage(); err != nil {
		log.Fatal().Err(err).Msg("Invalid phase selection")
	}
	if _, err := deck.RateConverter(); err != nil {
		log.Fatal().Err(err).Msg("Invalid PVT tables")
	}

	stats := collectStats(deck)
	fmt.Printf("deck:    %s\n", deck.Title)
	fmt.Printf("steps:   %d x %.0fs\n", stats.Steps, stats.StepSeconds)
	fmt.Printf("phases:  %s\n", strings.Join(stats.Phases, " "))
	fmt.Printf("pvt:     %d region(s)\n", len(stats.PVTRegions))
	if len(deck.Summary) > 0 {
		fmt.Printf("summary: %d vector(s)\n", len(deck.Summary))
	}
	fmt.Printf("groups:  %d\n", stats.Groups)
	fmt.Printf("wells:   %d (%d producing, %d injecting)\n", stats.Wells, stats.Producers, stats.Injectors)

	for _, w := range stats.MissingPVT {
		fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("! %s (conversion falls back to unit factors)", w))
	}
	for _, w := range stats.DanglingKeys {
		fmt.Fprintln(os.Stderr, color.Yellow.Sprintf("! %s (limit resolves to zero)", w))
	}

	fmt.Fprintln(os.Stderr, color.Green.Sprint("✓ deck is valid"))
}

// loadDeckFile reads and parses a deck, exiting on any failure. Shared by
// the subcommands that take a DECKFILE argument.
func loadDeckFile(path string) *sched.Deck {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't open deck file")
	}
	defer f.Close()

	deck, err := sched.LoadDeck(f)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load deck")
	}
	return deck
}

// deckStats summarises a deck across its whole schedule, counting each
// well and group once no matter how many steps it spans.
type deckStats struct {
	Steps       int
	StepSeconds float64
	Phases      []string
	PVTRegions  []int
	Groups      int
	Wells       int
	Producers   int
	Injectors   int

	// MissingPVT lists wells whose PVT region has no table in the deck.
	MissingPVT []string

	// DanglingKeys lists limits referencing summary vectors the deck never
	// defines. Those limits resolve to zero at run time.
	DanglingKeys []string
}

func collectStats(deck *sched.Deck) deckStats {
	stats := deckStats{
		Steps:       deck.Steps,
		StepSeconds: deck.StepSeconds,
	}
	if deck.Water {
		stats.Phases = append(stats.Phases, "water")
	}
	if deck.Oil {
		stats.Phases = append(stats.Phases, "oil")
	}
	if deck.Gas {
		stats.Phases = append(stats.Phases, "gas")
	}
	for region := range deck.PVT {
		stats.PVTRegions = append(stats.PVTRegions, region)
	}
	sort.Ints(stats.PVTRegions)

	dangling := make(map[string]bool)
	checkKey := func(owner string, v model.UDAValue) {
		if v.Key == "" {
			return
		}
		if _, ok := deck.Summary[v.Key]; ok {
			return
		}
		dangling[fmt.Sprintf("%s references undefined summary vector %s", owner, v.Key)] = true
	}

	seenWells := make(map[string]bool)
	seenGroups := make(map[string]bool)
	for step := 0; step < deck.Steps; step++ {
		for _, g := range deck.Schedule.Groups(step) {
			if !seenGroups[g.Name] {
				seenGroups[g.Name] = true
			}
			checkKey("group "+g.Name, g.Production.Target)
			for _, c := range g.Injection {
				checkKey("group "+g.Name, c.Target)
			}
		}
		for _, w := range deck.Schedule.Wells(step) {
			p := w.Production
			for _, v := range []model.UDAValue{p.OilRate, p.WaterRate, p.GasRate, p.LiquidRate, p.ResvRate, p.BHPLimit, p.THPLimit} {
				checkKey("well "+w.Name, v)
			}
			inj := w.Injection
			for _, v := range []model.UDAValue{inj.SurfaceRate, inj.ReservoirRate, inj.BHPLimit, inj.THPLimit} {
				checkKey("well "+w.Name, v)
			}

			if seenWells[w.Name] {
				continue
			}
			seenWells[w.Name] = true
			stats.Wells++
			if w.IsProducer() {
				stats.Producers++
			} else {
				stats.Injectors++
			}
			if _, ok := deck.PVT[w.PVTRegion]; !ok {
				stats.MissingPVT = append(stats.MissingPVT,
					fmt.Sprintf("well %s references pvt region %d with no table", w.Name, w.PVTRegion))
			}
		}
	}
	stats.Groups = len(seenGroups)
	for msg := range dangling {
		stats.DanglingKeys = append(stats.DanglingKeys, msg)
	}
	sort.Strings(stats.MissingPVT)
	sort.Strings(stats.DanglingKeys)
	return stats
}

// udaString renders a limit for display, as either its literal value or
// the summary key it resolves through.
func udaString(v model.UDAValue) string {
	if v.Key != "" {
		return "@" + v.Key
	}
	return fmt.Sprintf("%g", v.Value)
}
