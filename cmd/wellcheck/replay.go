package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stratumworks/reservoir-wellsim/internal/report"
)

var replayWells bool

var replayCmd = &cobra.Command{
	Use:   "replay REPORTFILE",
	Short: "Replay a recorded report stream",
	Long:  "Read a report stream written by the simulator and print one line per step, with per-well detail on request.",
	Args:  cobra.ExactArgs(1),
	Run:   replayCommand,
}

func init() {
	replayCmd.Flags().BoolVar(&replayWells, "wells", false, "Print per-well rows for every step")
}

func replayCommand(cmd *cobra.Command, args []string) {
	r, err := report.Open(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't open report stream")
	}
	defer r.Close()

	var (
		steps   int
		runID   string
		closed  []string
		lastSim float64
	)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Int("steps_read", steps).Msg("Report stream is corrupt")
		}
		steps++
		runID = rec.RunID
		closed = append(closed, rec.ClosedWells...)
		lastSim = rec.SimTime

		fmt.Println(stepLine(rec))
		if replayWells {
			for _, w := range rec.Wells {
				fmt.Printf("    %s\n", wellRow(w))
			}
		}
	}

	if steps == 0 {
		log.Fatal().Msg("Report stream holds no steps")
	}
	summary := fmt.Sprintf("run %s: %d steps, t=%.0fs, %d wells closed", runID, steps, lastSim, len(closed))
	if len(closed) > 0 {
		summary += " (" + strings.Join(closed, ", ") + ")"
	}
	fmt.Println(color.Green.Sprint(summary))
}

func stepLine(rec report.StepReport) string {
	line := fmt.Sprintf("[step %3d] t=%8.0fs wells=%d", rec.Step, rec.SimTime, len(rec.Wells))
	if len(rec.Switched) > 0 {
		line += " switched=" + strings.Join(rec.Switched, ",")
	}
	if len(rec.ClosedWells) > 0 {
		line += " closed=" + strings.Join(rec.ClosedWells, ",")
	}
	return line
}

func wellRow(w report.WellReport) string {
	mark := " "
	if w.Switched {
		mark = "*"
	}
	return fmt.Sprintf("%s%-10s %-5s %-5s bhp=%.3e surf=%s",
		mark, w.Name, w.Status, w.Control, w.BHP, rateList(w.SurfaceRates))
}

func rateList(rates []float64) string {
	parts := make([]string, 0, len(rates))
	for _, r := range rates {
		parts = append(parts, fmt.Sprintf("%.4g", r))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
