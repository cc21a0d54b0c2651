package sched

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/stratumworks/reservoir-wellsim/model"
)

var (
	ErrWellBadInput  = errors.New("invalid well")
	ErrWellNotFound  = errors.New("well not found")
	ErrGroupBadInput = errors.New("invalid group")
	ErrGroupNotFound = errors.New("group not found")
	ErrBadStepRange  = errors.New("invalid step range")
)

// Schedule stores the step-ranged well and group descriptions of a run.
// Entries carry a [from, until) step range; re-adding a name with a later
// range models a schedule modification, and lookups return the most
// recently added entry covering the step.
//
// The schedule is concurrency-safe via an internal RWMutex so evaluation
// passes may read it from several goroutines at once.
type Schedule struct {
	mu     sync.RWMutex
	wells  map[string][]wellEntry
	groups map[string][]groupEntry
}

type wellEntry struct {
	from, until int
	well        *model.Well
}

type groupEntry struct {
	from, until int
	group       *model.Group
}

// openEnd marks a range with no upper bound.
const openEnd = -1

// NewSchedule creates an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{
		wells:  make(map[string][]wellEntry),
		groups: make(map[string][]groupEntry),
	}
}

// AddWell registers a well for the step range [from, until). Pass until
// < 0 for an open-ended range.
func (s *Schedule) AddWell(w *model.Well, from, until int) error {
	if w == nil || w.Name == "" {
		return fmt.Errorf("%w: nil or unnamed", ErrWellBadInput)
	}
	if w.Group == "" {
		return fmt.Errorf("%w: well %q has no group", ErrWellBadInput, w.Name)
	}
	if err := checkRange(from, until); err != nil {
		return fmt.Errorf("well %q: %w", w.Name, err)
	}
	if until < 0 {
		until = openEnd
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wells[w.Name] = append(s.wells[w.Name], wellEntry{from: from, until: until, well: w})
	return nil
}

// AddGroup registers a group for the step range [from, until). Pass until
// < 0 for an open-ended range.
func (s *Schedule) AddGroup(g *model.Group, from, until int) error {
	if g == nil || g.Name == "" {
		return fmt.Errorf("%w: nil or unnamed", ErrGroupBadInput)
	}
	if err := checkRange(from, until); err != nil {
		return fmt.Errorf("group %q: %w", g.Name, err)
	}
	if until < 0 {
		until = openEnd
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.Name] = append(s.groups[g.Name], groupEntry{from: from, until: until, group: g})
	return nil
}

func checkRange(from, until int) error {
	if from < 0 {
		return fmt.Errorf("%w: from %d", ErrBadStepRange, from)
	}
	if until >= 0 && until <= from {
		return fmt.Errorf("%w: [%d, %d)", ErrBadStepRange, from, until)
	}
	return nil
}

// Well returns the well active under the given name at the report step.
func (s *Schedule) Well(step int, name string) (*model.Well, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookupWell(s.wells[name], step)
}

// Group returns the group active under the given name at the report step.
func (s *Schedule) Group(step int, name string) (*model.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookupGroup(s.groups[name], step)
}

func lookupWell(entries []wellEntry, step int) (*model.Well, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if step >= e.from && (e.until == openEnd || step < e.until) {
			return e.well, true
		}
	}
	return nil, false
}

func lookupGroup(entries []groupEntry, step int) (*model.Group, bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if step >= e.from && (e.until == openEnd || step < e.until) {
			return e.group, true
		}
	}
	return nil, false
}

// Wells returns all wells active at the report step, sorted by name.
func (s *Schedule) Wells(step int) []*model.Well {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Well, 0, len(s.wells))
	for _, entries := range s.wells {
		if w, ok := lookupWell(entries, step); ok {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Groups returns all groups active at the report step, sorted by name.
func (s *Schedule) Groups(step int) []*model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Group, 0, len(s.groups))
	for _, entries := range s.groups {
		if g, ok := lookupGroup(entries, step); ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WellsInGroup returns the wells whose parent is the named group at the
// report step, sorted by name.
func (s *Schedule) WellsInGroup(step int, group string) []*model.Well {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Well
	for _, entries := range s.wells {
		if w, ok := lookupWell(entries, step); ok && w.Group == group {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Parent returns the parent group of the named group at the report step.
// The root group has no parent.
func (s *Schedule) Parent(step int, group string) (*model.Group, bool) {
	s.mu.RLock()
	g, ok := lookupGroup(s.groups[group], step)
	s.mu.RUnlock()
	if !ok || g.Parent == "" {
		return nil, false
	}
	return s.Group(step, g.Parent)
}

// Validate checks the referential integrity of the schedule over the
// given number of steps: every well's parent group and every group's
// parent must exist whenever the child is active.
func (s *Schedule) Validate(steps int) error {
	for step := 0; step < steps; step++ {
		for _, w := range s.Wells(step) {
			if _, ok := s.Group(step, w.Group); !ok {
				return fmt.Errorf("%w: %q, parent of well %q at step %d", ErrGroupNotFound, w.Group, w.Name, step)
			}
		}
		for _, g := range s.Groups(step) {
			if g.Parent == "" {
				continue
			}
			if _, ok := s.Group(step, g.Parent); !ok {
				return fmt.Errorf("%w: %q, parent of group %q at step %d", ErrGroupNotFound, g.Parent, g.Name, step)
			}
		}
	}
	return nil
}
