package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RunCollector bundles the Prometheus metrics of a simulation run and
// provides a ready-to-serve /metrics handler.
type RunCollector struct {
	gatherer prometheus.Gatherer

	ModeSwitches       *prometheus.CounterVec
	WellClosures       *prometheus.CounterVec
	CompletionClosures *prometheus.CounterVec
	StepDuration       prometheus.Histogram

	WellsOpen    prometheus.Gauge
	WellsStopped prometheus.Gauge
	WellsShut    prometheus.Gauge
}

// NewRunCollector registers run metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	switches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "well_mode_switches_total",
		Help: "Total number of control mode switches, labeled by well and new governing mode.",
	}, []string{"well", "mode"})
	switches, err := registerCounterVec(reg, switches, "well_mode_switches_total")
	if err != nil {
		return nil, err
	}

	closures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "well_closures_total",
		Help: "Total number of well closures, labeled by well and close reason.",
	}, []string{"well", "reason"})
	closures, err = registerCounterVec(reg, closures, "well_closures_total")
	if err != nil {
		return nil, err
	}

	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "completion_closures_total",
		Help: "Total number of completions closed by economic workovers, labeled by well.",
	}, []string{"well"})
	completions, err = registerCounterVec(reg, completions, "completion_closures_total")
	if err != nil {
		return nil, err
	}

	stepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "step_duration_seconds",
		Help:    "Wall-clock duration of one report step evaluation.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	stepDuration, err = registerHistogram(reg, stepDuration, "step_duration_seconds")
	if err != nil {
		return nil, err
	}

	open, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wells_open",
		Help: "Current number of open wells in the run.",
	}), "wells_open")
	if err != nil {
		return nil, err
	}
	stopped, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wells_stopped",
		Help: "Current number of stopped wells in the run.",
	}), "wells_stopped")
	if err != nil {
		return nil, err
	}
	shut, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wells_shut",
		Help: "Current number of shut wells in the run.",
	}), "wells_shut")
	if err != nil {
		return nil, err
	}

	return &RunCollector{
		gatherer:           gatherer,
		ModeSwitches:       switches,
		WellClosures:       closures,
		CompletionClosures: completions,
		StepDuration:       stepDuration,
		WellsOpen:          open,
		WellsStopped:       stopped,
		WellsShut:          shut,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *RunCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// RecordModeSwitch counts a control mode change on a well.
func (c *RunCollector) RecordModeSwitch(well, mode string) {
	if c == nil || c.ModeSwitches == nil {
		return
	}
	c.ModeSwitches.WithLabelValues(well, mode).Inc()
}

// RecordWellClosure counts a well closure with its reason.
func (c *RunCollector) RecordWellClosure(well, reason string) {
	if c == nil || c.WellClosures == nil {
		return
	}
	c.WellClosures.WithLabelValues(well, reason).Inc()
}

// RecordCompletionClosure counts one completion closed on a well.
func (c *RunCollector) RecordCompletionClosure(well string) {
	if c == nil || c.CompletionClosures == nil {
		return
	}
	c.CompletionClosures.WithLabelValues(well).Inc()
}

// ObserveStepDuration records the wall-clock cost of one report step.
func (c *RunCollector) ObserveStepDuration(d time.Duration) {
	if c == nil || c.StepDuration == nil {
		return
	}
	c.StepDuration.Observe(d.Seconds())
}

// SetWellCounts drives the well status gauges so the run state can update
// them directly after applying closures.
func (c *RunCollector) SetWellCounts(open, stopped, shut int) {
	if c == nil {
		return
	}
	if c.WellsOpen != nil {
		c.WellsOpen.Set(float64(open))
	}
	if c.WellsStopped != nil {
		c.WellsStopped.Set(float64(stopped))
	}
	if c.WellsShut != nil {
		c.WellsShut.Set(float64(shut))
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
