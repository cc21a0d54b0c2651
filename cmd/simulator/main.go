// Command simulator evaluates well constraints over a JSON deck, one
// report step at a time: advance the synthetic rate models, rebuild the
// group aggregates, check constraints, run the economic well tests, and
// apply the resulting closures. Progress is printed per step, run
// metrics are served over HTTP, and each step can be appended to a
// binary report stream for later inspection.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/stratumworks/reservoir-wellsim/internal/observability"
	"github.com/stratumworks/reservoir-wellsim/internal/report"
	"github.com/stratumworks/reservoir-wellsim/internal/sim/state"
	"github.com/stratumworks/reservoir-wellsim/logging"
	"github.com/stratumworks/reservoir-wellsim/sched"
	"github.com/stratumworks/reservoir-wellsim/timectrl"
)

// RunConfig is the optional TOML run configuration. Flags explicitly set
// on the command line win over values from the file.
type RunConfig struct {
	Deck        string `toml:"deck"`
	Report      string `toml:"report"`
	MetricsAddr string `toml:"metrics_addr"`
	RealTime    bool   `toml:"real_time"`
	Parallelism int    `toml:"parallelism"`
	MaxSteps    int    `toml:"max_steps"`
	RunID       string `toml:"run_id"`
}

func loadRunConfig(path string) (*RunConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out RunConfig
	if _, err := toml.NewDecoder(f).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func main() {
	configPath := flag.String("config", "", "path to an optional TOML run configuration")
	deckPath := flag.String("deck", "", "path to the JSON deck to run")
	reportPath := flag.String("report", "", "path to append the binary step-report stream to (empty disables)")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty disables)")
	realTime := flag.Bool("realtime", false, "pace report steps by wall-clock ticks instead of running flat out")
	parallelism := flag.Int("parallelism", 0, "bound on wells evaluated concurrently per step (0 = unbounded)")
	maxSteps := flag.Int("max-steps", 0, "cap on report steps to run (0 = all steps in the deck)")
	runID := flag.String("run-id", "", "fixed run id for logs and reports (empty generates one)")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *configPath != "" {
		fc, err := loadRunConfig(*configPath)
		if err != nil {
			log.Error(ctx, "failed to load run config", logging.String("path", *configPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		if !set["deck"] && fc.Deck != "" {
			*deckPath = fc.Deck
		}
		if !set["report"] && fc.Report != "" {
			*reportPath = fc.Report
		}
		if !set["metrics-addr"] && fc.MetricsAddr != "" {
			*metricsAddr = fc.MetricsAddr
		}
		if !set["realtime"] && fc.RealTime {
			*realTime = true
		}
		if !set["parallelism"] && fc.Parallelism > 0 {
			*parallelism = fc.Parallelism
		}
		if !set["max-steps"] && fc.MaxSteps > 0 {
			*maxSteps = fc.MaxSteps
		}
		if !set["run-id"] && fc.RunID != "" {
			*runID = fc.RunID
		}
	}

	if *deckPath == "" {
		fmt.Fprintln(os.Stderr, "usage: simulator -deck run.json [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewRunCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	f, err := os.Open(*deckPath)
	if err != nil {
		log.Error(ctx, "failed to open deck", logging.String("path", *deckPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	deck, err := sched.LoadDeck(f)
	f.Close()
	if err != nil {
		log.Error(ctx, "failed to load deck", logging.String("path", *deckPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	pu, err := deck.PhaseUsage()
	if err != nil {
		log.Error(ctx, "invalid phase selection", logging.String("error", err.Error()))
		os.Exit(1)
	}
	conv, err := deck.RateConverter()
	if err != nil {
		log.Error(ctx, "invalid PVT tables", logging.String("error", err.Error()))
		os.Exit(1)
	}

	run := state.NewRunState(deck.Schedule, pu, conv, log,
		state.WithMetricsRecorder(collector),
		state.WithSummary(deck.Summary),
		state.WithParallelism(*parallelism),
		state.WithRunID(*runID),
	)

	var reportWriter *report.Writer
	if *reportPath != "" {
		reportWriter, err = report.Create(*reportPath)
		if err != nil {
			log.Error(ctx, "failed to create report stream", logging.String("path", *reportPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	steps := deck.Steps
	if *maxSteps > 0 && *maxSteps < steps {
		steps = *maxSteps
	}
	mode := timectrl.Accelerated
	if *realTime {
		mode = timectrl.RealTime
	}
	tc := timectrl.NewStepController(steps, deck.StepSeconds, mode)

	var runErr error
	tc.AddListener(func(step int, simTime float64) {
		if runErr != nil {
			return
		}

		out, err := run.AdvanceStep(ctx, step, simTime)
		if err != nil {
			runErr = err
			return
		}

		if reportWriter != nil {
			if err := reportWriter.Append(report.FromOutcome(out)); err != nil {
				log.Warn(ctx, "failed to append step report", logging.Int("step", step), logging.String("error", err.Error()))
			}
		}

		line := fmt.Sprintf("[step %3d] t=%8.0fs wells=%d", step, simTime, len(out.Wells))
		if len(out.Switched) > 0 {
			line += " switched=" + strings.Join(out.Switched, ",")
		}
		if len(out.ClosedWells) > 0 {
			line += " closed=" + strings.Join(out.ClosedWells, ",")
		}
		fmt.Println(line)
	})

	log.Info(ctx, "starting run",
		logging.String("run_id", run.RunID()),
		logging.String("deck", *deckPath),
		logging.String("title", deck.Title),
		logging.Int("steps", steps),
		logging.Float64("step_seconds", deck.StepSeconds),
	)

	<-tc.Run()

	if reportWriter != nil {
		if err := reportWriter.Close(); err != nil {
			log.Warn(ctx, "failed to close report stream", logging.String("error", err.Error()))
		}
	}

	wtest := run.WellTestState()
	fmt.Printf("Run %s complete: %d steps, %d wells closed", run.RunID(), steps, wtest.NumClosedWells())
	if closed := wtest.ClosedWells(); len(closed) > 0 {
		fmt.Printf(" (%s)", strings.Join(closed, ", "))
	}
	fmt.Println()

	observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}

	if runErr != nil {
		log.Error(ctx, "run aborted", logging.String("error", runErr.Error()))
		os.Exit(1)
	}
}

func serveMetrics(addr string, collector *observability.RunCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
