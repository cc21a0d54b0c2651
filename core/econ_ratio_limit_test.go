package core

import (
	"testing"

	"github.com/stratumworks/reservoir-wellsim/logging"
	"github.com/stratumworks/reservoir-wellsim/model"
)

// scriptedComm adds a preset remote contribution on each reduction call,
// in call order.
type scriptedComm struct {
	adds [][]float64
	call int
}

func (c *scriptedComm) Sum(buf []float64) {
	if c.call < len(c.adds) {
		for i, v := range c.adds[c.call] {
			if i < len(buf) {
				buf[i] += v
			}
		}
	}
	c.call++
}

// TestWaterCutViolationExtent verifies the textbook case: a well flowing
// oil 50 and water 50 against a maximum water cut of 0.4 is violated with
// extent 0.5/0.4 = 1.25, and its single connection is the worst offender.
func TestWaterCutViolationExtent(t *testing.T) {
	w := testProducer("P-50", 1)
	w.Econ.MaxWaterCut = 0.4

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -50, -50, 0)
	setConnRates(ws, pu, 0, -50, -50, 0)

	report := NewRatioLimitCheckReport()
	ev := NewWellEvaluator(w, 0, pu, identityConverter())
	ev.checkRatioEconLimits(w.Econ, ws, &report, logging.NewDeferredLogger())

	if !report.RatioLimitViolated {
		t.Fatalf("expected a water cut violation at cut 0.5 over limit 0.4")
	}
	if !approxEqual(report.ViolationExtent, 1.25) {
		t.Fatalf("violation extent %v, want 1.25", report.ViolationExtent)
	}
	if report.WorstOffendingCompletion != -1 {
		t.Fatalf("worst offending completion %d, want -1", report.WorstOffendingCompletion)
	}
}

// TestRatioWorstOffenderRetention verifies that across several violated
// ratio types the report keeps the completion with the greatest violation
// extent: a later check only overwrites a strictly larger one.
func TestRatioWorstOffenderRetention(t *testing.T) {
	pu := ThreePhase()

	setup := func(name string) (*model.Well, *WellState) {
		w := testProducer(name, 2)
		ws := NewWellState(pu, 2)
		setSurfaceRates(ws, pu, -20, -50, -200)
		// Connection 0 carries cut 0.33 and GOR 1.0, connection 1 cut 0.20
		// and GOR 8.5.
		setConnRates(ws, pu, 0, -15, -30, -30)
		setConnRates(ws, pu, 1, -5, -20, -170)
		return w, ws
	}

	// The GOR extent 8.5/2 = 4.25 beats the water cut extent
	// 0.33/0.25 = 1.33, so the gassy completion -2 wins.
	w, ws := setup("P-51")
	w.Econ.MaxWaterCut = 0.25
	w.Econ.MaxGasOilRatio = 2.0
	report := NewRatioLimitCheckReport()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		checkRatioEconLimits(w.Econ, ws, &report, logging.NewDeferredLogger())
	if !report.RatioLimitViolated {
		t.Fatalf("expected both ratio types violated")
	}
	if report.WorstOffendingCompletion != -2 {
		t.Fatalf("worst offending completion %d, want the gassy -2", report.WorstOffendingCompletion)
	}
	if !approxEqual(report.ViolationExtent, 4.25) {
		t.Fatalf("violation extent %v, want 4.25", report.ViolationExtent)
	}

	// With laxer GOR and stricter water cut the order flips: GOR extent
	// 8.5/3 = 2.83 must not overwrite the water cut extent 0.33/0.1 = 3.33.
	w2, ws2 := setup("P-52")
	w2.Econ.MaxWaterCut = 0.1
	w2.Econ.MaxGasOilRatio = 3.0
	report2 := NewRatioLimitCheckReport()
	NewWellEvaluator(w2, 0, pu, identityConverter()).
		checkRatioEconLimits(w2.Econ, ws2, &report2, logging.NewDeferredLogger())
	if report2.WorstOffendingCompletion != -1 {
		t.Fatalf("worst offending completion %d, want the wet -1 retained", report2.WorstOffendingCompletion)
	}
	if !approxEqual(report2.ViolationExtent, 1.0/0.3) {
		t.Fatalf("violation extent %v, want %v", report2.ViolationExtent, 1.0/0.3)
	}
}

// TestGasWithoutOilViolatesGOR verifies the sentinel convention: gas flow
// with a dead oil phase reads as an arbitrarily large gas-oil ratio.
func TestGasWithoutOilViolatesGOR(t *testing.T) {
	w := testProducer("P-53", 1)
	w.Econ.MaxGasOilRatio = 5

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, 0, 0, -100)
	setConnRates(ws, pu, 0, 0, 0, -100)

	report := NewRatioLimitCheckReport()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		checkRatioEconLimits(w.Econ, ws, &report, logging.NewDeferredLogger())

	if !report.RatioLimitViolated {
		t.Fatalf("gas without oil did not violate the GOR limit")
	}
	if report.WorstOffendingCompletion == InvalidCompletion {
		t.Fatalf("violated report names no completion")
	}
	if report.ViolationExtent <= 1 {
		t.Fatalf("violation extent %v not above one", report.ViolationExtent)
	}
}

// TestWaterGasRatioLimit verifies the WGR limit runs with the same
// completion scan as the other ratios.
func TestWaterGasRatioLimit(t *testing.T) {
	w := testProducer("P-54", 1)
	w.Econ.MaxWaterGasRatio = 2

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -50, 0, -10)
	setConnRates(ws, pu, 0, -50, 0, -10)

	report := NewRatioLimitCheckReport()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		checkRatioEconLimits(w.Econ, ws, &report, logging.NewDeferredLogger())

	if !report.RatioLimitViolated {
		t.Fatalf("expected a WGR violation at ratio 5 over limit 2")
	}
	if !approxEqual(report.ViolationExtent, 2.5) {
		t.Fatalf("violation extent %v, want 2.5", report.ViolationExtent)
	}
}

// TestCompletionScanCrossRank verifies connection rates owned by another
// rank enter the completion ratios through the reduction.
func TestCompletionScanCrossRank(t *testing.T) {
	w := testProducer("P-55", 1)
	w.Econ.MaxWaterCut = 0.4

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	// The well level sees the full picture; this rank's connection only
	// carries part of the water.
	setSurfaceRates(ws, pu, -60, -40, 0)
	setConnRates(ws, pu, 0, -10, -40, 0)

	comm := &scriptedComm{adds: [][]float64{{-50, 0, 0}}}
	report := NewRatioLimitCheckReport()
	NewWellEvaluator(w, 0, pu, identityConverter(), WithCommunicator(comm)).
		checkRatioEconLimits(w.Econ, ws, &report, logging.NewDeferredLogger())

	if comm.call != 1 {
		t.Fatalf("reduction called %d times, want once per completion", comm.call)
	}
	if !report.RatioLimitViolated {
		t.Fatalf("expected a violation once the remote water is summed in")
	}
	// cut 60/100 over limit 0.4
	if !approxEqual(report.ViolationExtent, 1.5) {
		t.Fatalf("violation extent %v, want 1.5 from the summed rates", report.ViolationExtent)
	}
}

// TestWorkoverConClosesWorstCompletion verifies the CON workover closes
// only the worst offending completion and leaves the well flowing through
// the rest.
func TestWorkoverConClosesWorstCompletion(t *testing.T) {
	w := testProducer("P-56", 2)
	w.Econ.MaxWaterCut = 0.4
	w.Econ.Workover = model.EconWorkoverCon

	pu := ThreePhase()
	ws := NewWellState(pu, 2)
	setSurfaceRates(ws, pu, -50, -50, 0)
	setConnRates(ws, pu, 0, -10, -40, 0) // cut 0.2
	setConnRates(ws, pu, 1, -40, -10, 0) // cut 0.8

	wts := NewWellTestState()
	dl := logging.NewDeferredLogger()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		UpdateWellTestStateEconomic(ws, 0, true, wts, dl)

	if !wts.HasCompletion("P-56", -2) {
		t.Fatalf("worst completion -2 not closed, closed %v", wts.ClosedCompletions("P-56"))
	}
	if wts.HasCompletion("P-56", -1) {
		t.Fatalf("healthy completion -1 closed")
	}
	if wts.WellClosed("P-56") {
		t.Fatalf("well closed although a completion remains open")
	}
	messages, _ := drainLog(dl)
	if !containsText(messages, "connection 2 of well P-56 will be closed due to economic limit") {
		t.Fatalf("missing connection closure message, got %v", messages)
	}
}

// TestWorkoverConLastCompletionClosesWell verifies closing the only open
// completion takes the whole well with it.
func TestWorkoverConLastCompletionClosesWell(t *testing.T) {
	w := testProducer("P-57", 1)
	w.Econ.MaxWaterCut = 0.4
	w.Econ.Workover = model.EconWorkoverCon

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -50, -50, 0)
	setConnRates(ws, pu, 0, -50, -50, 0)

	wts := NewWellTestState()
	dl := logging.NewDeferredLogger()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		UpdateWellTestStateEconomic(ws, 0, true, wts, dl)

	if !wts.HasCompletion("P-57", -1) {
		t.Fatalf("completion -1 not closed")
	}
	if !wts.WellClosed("P-57") {
		t.Fatalf("well not closed after its last completion closed")
	}
	messages, _ := drainLog(dl)
	if !containsText(messages, "connection 1 of well P-57 will be closed due to economic limit") {
		t.Fatalf("missing connection closure message, got %v", messages)
	}
	if !containsText(messages, "well P-57 will be shut due to last completion closed") {
		t.Fatalf("missing last completion message, got %v", messages)
	}
}

// TestWorkoverConDeckCompletion verifies connections grouped under a
// deck-assigned completion id are summed together and announced as a
// completion, not a connection.
func TestWorkoverConDeckCompletion(t *testing.T) {
	w := testProducer("P-58", 0)
	w.Connections = []model.Connection{
		{I: 10, J: 10, K: 1, Completion: 7, Open: true},
		{I: 10, J: 10, K: 2, Completion: 7, Open: true},
	}
	w.Econ.MaxWaterCut = 0.4
	w.Econ.Workover = model.EconWorkoverCon

	pu := ThreePhase()
	ws := NewWellState(pu, 2)
	setSurfaceRates(ws, pu, -50, -50, 0)
	// Both connections belong to completion 7; their summed cut is 0.5.
	setConnRates(ws, pu, 0, -30, -10, 0)
	setConnRates(ws, pu, 1, -20, -40, 0)

	wts := NewWellTestState()
	dl := logging.NewDeferredLogger()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		UpdateWellTestStateEconomic(ws, 0, true, wts, dl)

	if !wts.HasCompletion("P-58", 7) {
		t.Fatalf("completion 7 not closed, closed %v", wts.ClosedCompletions("P-58"))
	}
	if !wts.WellClosed("P-58") {
		t.Fatalf("well not closed with every connection in the closed completion")
	}
	messages, _ := drainLog(dl)
	if !containsText(messages, "completion 7 of well P-58 will be closed due to economic limit") {
		t.Fatalf("missing completion closure message, got %v", messages)
	}
}

// TestWorkoverWellClosesWell verifies the WELL workover closes the whole
// well without touching completions.
func TestWorkoverWellClosesWell(t *testing.T) {
	w := testProducer("P-59", 2)
	w.Econ.MaxWaterCut = 0.4
	w.Econ.Workover = model.EconWorkoverWell

	pu := ThreePhase()
	ws := NewWellState(pu, 2)
	setSurfaceRates(ws, pu, -50, -50, 0)
	setConnRates(ws, pu, 0, -25, -25, 0)
	setConnRates(ws, pu, 1, -25, -25, 0)

	wts := NewWellTestState()
	dl := logging.NewDeferredLogger()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		UpdateWellTestStateEconomic(ws, 0, true, wts, dl)

	if !wts.WellClosed("P-59") {
		t.Fatalf("well not closed under a WELL workover")
	}
	if got := wts.ClosedCompletions("P-59"); len(got) != 0 {
		t.Fatalf("WELL workover closed completions %v", got)
	}
	messages, _ := drainLog(dl)
	if !containsText(messages, "well P-59 will be shut due to ratio economic limit") {
		t.Fatalf("missing ratio closure message, got %v", messages)
	}
}

// TestWorkoverNoneLeavesWellOpen verifies a violated ratio with the NONE
// workover is observed but acted on by nobody.
func TestWorkoverNoneLeavesWellOpen(t *testing.T) {
	w := testProducer("P-60", 1)
	w.Econ.MaxWaterCut = 0.4
	w.Econ.Workover = model.EconWorkoverNone

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -50, -50, 0)
	setConnRates(ws, pu, 0, -50, -50, 0)

	wts := NewWellTestState()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		UpdateWellTestStateEconomic(ws, 0, true, wts, logging.NewDeferredLogger())

	if wts.NumClosedWells() != 0 {
		t.Fatalf("NONE workover closed a well")
	}
	if got := wts.ClosedCompletions("P-60"); len(got) != 0 {
		t.Fatalf("NONE workover closed completions %v", got)
	}
}

// TestUnsupportedWorkoverWarns verifies a recognised but unsupported
// workover procedure is reported and skipped.
func TestUnsupportedWorkoverWarns(t *testing.T) {
	w := testProducer("P-61", 1)
	w.Econ.MaxWaterCut = 0.4
	w.Econ.Workover = model.EconWorkoverPlug

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -50, -50, 0)
	setConnRates(ws, pu, 0, -50, -50, 0)

	wts := NewWellTestState()
	dl := logging.NewDeferredLogger()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		UpdateWellTestStateEconomic(ws, 0, true, wts, dl)

	if wts.NumClosedWells() != 0 {
		t.Fatalf("unsupported workover closed a well")
	}
	messages, codes := drainLog(dl)
	if !containsText(codes, "NOT_SUPPORTED_WORKOVER_TYPE") {
		t.Fatalf("missing workover warning, got codes %v", codes)
	}
	if !containsText(messages, "not supporting workover type PLUG") {
		t.Fatalf("missing workover message, got %v", messages)
	}
}

// TestGasLiquidRatioWarnsOnly verifies the recognised but unimplemented
// GLR limit warns without ever flagging a violation.
func TestGasLiquidRatioWarnsOnly(t *testing.T) {
	w := testProducer("P-62", 1)
	w.Econ.MaxGasLiquidRatio = 1
	w.Econ.Workover = model.EconWorkoverWell

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -10, -10, -1000)

	wts := NewWellTestState()
	dl := logging.NewDeferredLogger()
	NewWellEvaluator(w, 0, pu, identityConverter()).
		UpdateWellTestStateEconomic(ws, 0, true, wts, dl)

	if wts.NumClosedWells() != 0 {
		t.Fatalf("the GLR limit closed a well")
	}
	_, codes := drainLog(dl)
	if !containsText(codes, "NOT_SUPPORTING_MAX_GLR") {
		t.Fatalf("missing GLR warning, got codes %v", codes)
	}
}

// TestEconomicClosureIdempotent verifies re-evaluating a closed well keeps
// the first closure reason and time.
func TestEconomicClosureIdempotent(t *testing.T) {
	w := testProducer("P-63", 1)
	w.Econ.MaxWaterCut = 0.4
	w.Econ.Workover = model.EconWorkoverWell

	pu := ThreePhase()
	ws := NewWellState(pu, 1)
	setSurfaceRates(ws, pu, -50, -50, 0)
	setConnRates(ws, pu, 0, -50, -50, 0)

	wts := NewWellTestState()
	ev := NewWellEvaluator(w, 0, pu, identityConverter())
	ev.UpdateWellTestStateEconomic(ws, 100, false, wts, logging.NewDeferredLogger())
	ev.UpdateWellTestStateEconomic(ws, 200, false, wts, logging.NewDeferredLogger())

	reason, simTime, ok := wts.WellCloseReason("P-63")
	if !ok || reason != CloseEconomic {
		t.Fatalf("close reason %v ok=%v, want ECONOMIC", reason, ok)
	}
	if simTime != 100 {
		t.Fatalf("close time %v, want the first closure at 100", simTime)
	}
	if wts.NumClosedWells() != 1 {
		t.Fatalf("closed well count %d, want 1", wts.NumClosedWells())
	}
}
