package core

import (
	"sort"
	"sync"
)

// CloseReason records why a well was closed.
type CloseReason int

const (
	ClosePhysical CloseReason = iota
	CloseEconomic
	CloseGroup
	CloseCompletion
)

func (r CloseReason) String() string {
	switch r {
	case ClosePhysical:
		return "PHYSICAL"
	case CloseEconomic:
		return "ECONOMIC"
	case CloseGroup:
		return "GROUP"
	case CloseCompletion:
		return "COMPLETION"
	default:
		return "UNKNOWN"
	}
}

type closedWell struct {
	reason  CloseReason
	simTime float64
}

// WellTestState tracks wells and completions closed during the run.
// Closures are monotonic: recording the same closure again keeps the
// first reason and time. Reopening is an outside policy decision and not
// offered here.
type WellTestState struct {
	mu          sync.RWMutex
	wells       map[string]closedWell
	completions map[string]map[int]float64
}

// NewWellTestState returns an empty closure record.
func NewWellTestState() *WellTestState {
	return &WellTestState{
		wells:       make(map[string]closedWell),
		completions: make(map[string]map[int]float64),
	}
}

// CloseWell records the closure of a well. Idempotent.
func (s *WellTestState) CloseWell(well string, reason CloseReason, simTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wells[well]; ok {
		return
	}
	s.wells[well] = closedWell{reason: reason, simTime: simTime}
}

// WellClosed reports whether the well has been closed.
func (s *WellTestState) WellClosed(well string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.wells[well]
	return ok
}

// WellCloseReason returns the recorded closure reason and time.
func (s *WellTestState) WellCloseReason(well string) (CloseReason, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.wells[well]
	if !ok {
		return 0, 0, false
	}
	return c.reason, c.simTime, true
}

// AddClosedCompletion records the closure of one completion of a well.
// Idempotent.
func (s *WellTestState) AddClosedCompletion(well string, completion int, simTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.completions[well]
	if !ok {
		m = make(map[int]float64)
		s.completions[well] = m
	}
	if _, ok := m[completion]; ok {
		return
	}
	m[completion] = simTime
}

// HasCompletion reports whether the completion of the well has been
// closed.
func (s *WellTestState) HasCompletion(well string, completion int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.completions[well]
	if !ok {
		return false
	}
	_, ok = m[completion]
	return ok
}

// ClosedCompletions returns the closed completion ids of the well in
// ascending order.
func (s *WellTestState) ClosedCompletions(well string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.completions[well]
	if !ok {
		return nil
	}
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ClosedWells returns the names of all closed wells in ascending order.
func (s *WellTestState) ClosedWells() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.wells))
	for name := range s.wells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumClosedWells returns the count of closed wells.
func (s *WellTestState) NumClosedWells() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wells)
}
