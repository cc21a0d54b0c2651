package timectrl

import "testing"

func TestStepControllerSetStep(t *testing.T) {
	sc := NewStepController(10, 86400, RealTime)

	sc.SetStep(4)

	if got := sc.Step(); got != 4 {
		t.Fatalf("Step() = %d, want 4", got)
	}
	if got := sc.SimTime(); got != 4*86400 {
		t.Fatalf("SimTime() = %v, want %v", got, 4*86400.0)
	}
}

func TestStepControllerRunVisitsEveryStep(t *testing.T) {
	sc := NewStepController(5, 3600, Accelerated)

	var steps []int
	var times []float64
	sc.AddListener(func(step int, simTime float64) {
		steps = append(steps, step)
		times = append(times, simTime)
	})

	<-sc.Run()

	if len(steps) != 5 {
		t.Fatalf("listener fired %d times, want 5", len(steps))
	}
	for i, s := range steps {
		if s != i {
			t.Errorf("visit %d: step = %d, want %d", i, s, i)
		}
		if times[i] != float64(i)*3600 {
			t.Errorf("visit %d: simTime = %v, want %v", i, times[i], float64(i)*3600)
		}
	}
	if got := sc.Step(); got != 4 {
		t.Fatalf("Step() after run = %d, want 4", got)
	}
}

func TestStepControllerListenersRunInOrder(t *testing.T) {
	sc := NewStepController(1, 1, Accelerated)

	var order []string
	sc.AddListener(func(int, float64) { order = append(order, "first") })
	sc.AddListener(func(int, float64) { order = append(order, "second") })

	<-sc.Run()

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("listener order = %v", order)
	}
}
