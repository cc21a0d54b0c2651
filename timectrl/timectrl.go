package timectrl

import (
	"sync"
	"time"
)

// StepClock is an interface for accessing simulation progress. Components
// depend on this abstraction rather than the concrete controller type,
// which keeps them testable.
type StepClock interface {
	// Step returns the current report step.
	Step() int
	// SimTime returns the elapsed simulation time in seconds.
	SimTime() float64
}

// Mode describes how the StepController paces report steps.
type Mode int

const (
	// RealTime paces steps by wall-clock ticks.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run.
	Accelerated
)

// StepController drives the run through its report steps and notifies
// registered listeners on every step. It implements StepClock.
type StepController struct {
	mu          sync.RWMutex
	Steps       int
	StepSeconds float64
	Mode        Mode

	// Tick is the wall-clock pacing per step in RealTime mode.
	Tick time.Duration

	step      int
	listeners []func(step int, simTime float64)
}

// NewStepController constructs a controller for the given number of
// report steps, each spanning stepSeconds of simulation time.
func NewStepController(steps int, stepSeconds float64, mode Mode) *StepController {
	return &StepController{
		Steps:       steps,
		StepSeconds: stepSeconds,
		Mode:        mode,
		Tick:        time.Second,
	}
}

// Step returns the current report step. Implements StepClock.
func (sc *StepController) Step() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.step
}

// SimTime returns the elapsed simulation time in seconds. Implements
// StepClock.
func (sc *StepController) SimTime() float64 {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return float64(sc.step) * sc.StepSeconds
}

// SetStep jumps the controller to the given report step.
func (sc *StepController) SetStep(step int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.step = step
}

// AddListener registers a callback invoked on every step. Listeners run
// synchronously in registration order, so a listener that mutates run
// state finishes before the next step starts.
func (sc *StepController) AddListener(fn func(step int, simTime float64)) {
	sc.listeners = append(sc.listeners, fn)
}

// Run walks the controller through all report steps in a separate
// goroutine and returns a channel that is closed when the run finishes.
func (sc *StepController) Run() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var ticker *time.Ticker
		if sc.Mode == RealTime {
			ticker = time.NewTicker(sc.Tick)
			defer ticker.Stop()
		}

		for step := 0; step < sc.Steps; step++ {
			if ticker != nil {
				<-ticker.C
			}

			sc.mu.Lock()
			sc.step = step
			sc.mu.Unlock()

			simTime := float64(step) * sc.StepSeconds
			for _, fn := range sc.listeners {
				fn(step, simTime)
			}
		}
	}()
	return done
}
