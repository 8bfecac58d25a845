// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package placer bin-packs switch data structures into pipeline stages.
//
// A Placer tracks the remaining budget of every stage. CanPlace simulates a
// placement without committing it; Place commits it and panics when the
// simulation would not succeed, so callers are expected to check first.
package placer

import (
	"fmt"
	"slices"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/target"
)

// Status is the outcome of a placement simulation.
type Status int

const (
	Success Status = iota
	TooLarge
	TooManyKeys
	XbarExceedsLimit
	NoAvailableStage
	Unknown
)

// String returns a human-readable name for the Status.
func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case TooLarge:
		return "TOO_LARGE"
	case TooManyKeys:
		return "TOO_MANY_KEYS"
	case XbarExceedsLimit:
		return "XBAR_EXCEEDS_LIMIT"
	case NoAvailableStage:
		return "NO_AVAILABLE_STAGE"
	case Unknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Stage is the remaining budget of one pipeline stage.
type Stage struct {
	Index      int
	SRAMBits   int64
	TCAMBits   int64
	MapRAMBits int64
	XbarBits   int64

	// Tables is the number of free logical table slots.
	Tables int

	// Resident lists the data structures with at least one piece here.
	Resident []ds.ID
}

func (s *Stage) hosts(id ds.ID) bool {
	return slices.Contains(s.Resident, id)
}

func (s *Stage) admit(id ds.ID) {
	if !s.hosts(id) {
		s.Resident = append(s.Resident, id)
	}
}

// Placer tracks stage budgets for one switch.
type Placer struct {
	constraints target.SwitchConstraints
	stages      []Stage
	placed      map[ds.ID][]int
}

// New returns a Placer with every stage at its full budget.
func New(c target.SwitchConstraints) *Placer {
	stages := make([]Stage, c.Stages)
	for i := range stages {
		stages[i] = Stage{
			Index:      i,
			SRAMBits:   c.SRAMBitsPerStage,
			TCAMBits:   c.TCAMBitsPerStage,
			MapRAMBits: c.MapRAMBitsPerStage,
			XbarBits:   c.XbarBitsPerStage,
			Tables:     c.MaxLogicalTablesPerStage,
		}
	}
	return &Placer{constraints: c, stages: stages, placed: map[ds.ID][]int{}}
}

// Constraints returns the budget the Placer was created with.
func (p *Placer) Constraints() target.SwitchConstraints { return p.constraints }

// Clone returns an independent copy of p.
func (p *Placer) Clone() *Placer {
	return &Placer{constraints: p.constraints, stages: cloneStages(p.stages), placed: clonePlaced(p.placed)}
}

// Stages returns a snapshot of the stage budgets.
func (p *Placer) Stages() []Stage { return cloneStages(p.stages) }

// Has reports whether id has been placed.
func (p *Placer) Has(id ds.ID) bool {
	_, ok := p.placed[id]
	return ok
}

// StagesOf returns the indices of the stages hosting id.
func (p *Placer) StagesOf(id ds.ID) []int { return slices.Clone(p.placed[id]) }

// CanPlace reports whether d fits after its dependencies. Dependencies that
// were never placed on this switch do not constrain the placement.
func (p *Placer) CanPlace(d ds.DS, deps []ds.ID) Status {
	status, _, _ := p.simulate(d, deps)
	return status
}

// Place commits d. It panics if CanPlace(d, deps) would not return Success or
// if d was already placed.
func (p *Placer) Place(d ds.DS, deps []ds.ID) {
	if p.Has(d.ID()) {
		panic(fmt.Sprintf("placer: %s already placed", d.ID()))
	}
	status, stages, placed := p.simulate(d, deps)
	if status != Success {
		panic(fmt.Sprintf("placer: cannot place %s: %s", d, status))
	}
	p.stages = stages
	p.placed = placed
}

func (p *Placer) simulate(d ds.DS, deps []ds.ID) (Status, []Stage, map[ds.ID][]int) {
	sim := &simulation{c: p.constraints, stages: cloneStages(p.stages), placed: clonePlaced(p.placed)}
	status := sim.place(d, deps)
	return status, sim.stages, sim.placed
}

type simulation struct {
	c      target.SwitchConstraints
	stages []Stage
	placed map[ds.ID][]int
}

func (s *simulation) place(d ds.DS, deps []ds.ID) Status {
	switch v := d.(type) {
	case *ds.Table:
		return s.placeTable(v, deps)
	case *ds.Register:
		return s.placeRegister(v, deps)
	case ds.Composite:
		prev := deps
		var hosting []int
		for _, c := range v.Components() {
			if st := s.place(c, prev); st != Success {
				return st
			}
			hosting = append(hosting, s.placed[c.ID()]...)
			prev = []ds.ID{c.ID()}
		}
		slices.Sort(hosting)
		hosting = slices.Compact(hosting)
		for _, i := range hosting {
			s.stages[i].admit(v.ID())
		}
		s.placed[v.ID()] = hosting
		return Success
	}
	return Unknown
}

// soonest returns the first stage after the last stage hosting any of deps.
func (s *simulation) soonest(deps []ds.ID) int {
	first := 0
	for _, dep := range deps {
		if stages := s.placed[dep]; len(stages) > 0 {
			first = max(first, stages[len(stages)-1]+1)
		}
	}
	return first
}

func (s *simulation) placeTable(t *ds.Table, deps []ds.ID) Status {
	r := t.Resources()
	if r.Keys > s.c.MaxExactMatchKeys {
		return TooManyKeys
	}
	if r.XbarBits > s.c.XbarBitsPerStage {
		return XbarExceedsLimit
	}
	lookup := -1
	for i := s.soonest(deps); i < len(s.stages); i++ {
		st := &s.stages[i]
		if st.Tables > 0 && st.XbarBits >= r.XbarBits && st.SRAMBits > 0 {
			lookup = i
			break
		}
	}
	if lookup < 0 {
		return NoAvailableStage
	}
	s.stages[lookup].Tables--
	s.stages[lookup].XbarBits -= r.XbarBits

	// Storage spills into the stages right after the lookup; a full stage
	// ends the run.
	var hosting []int
	remaining := r.SRAMBits
	for i := lookup; i < len(s.stages) && (remaining > 0 || i == lookup); i++ {
		st := &s.stages[i]
		take := min(st.SRAMBits, remaining)
		if take == 0 && i != lookup {
			break
		}
		st.SRAMBits -= take
		remaining -= take
		st.admit(t.ID())
		hosting = append(hosting, i)
	}
	if remaining > 0 {
		return TooLarge
	}
	s.placed[t.ID()] = hosting
	return Success
}

func (s *simulation) placeRegister(r *ds.Register, deps []ds.ID) Status {
	res := r.Resources()
	if res.SRAMBits > s.c.SRAMBitsPerStage || res.MapRAMBits > s.c.MapRAMBitsPerStage || res.XbarBits > s.c.XbarBitsPerStage {
		return TooLarge
	}
	for i := s.soonest(deps); i < len(s.stages); i++ {
		st := &s.stages[i]
		if st.Tables > 0 && st.SRAMBits >= res.SRAMBits && st.MapRAMBits >= res.MapRAMBits && st.XbarBits >= res.XbarBits {
			st.Tables--
			st.SRAMBits -= res.SRAMBits
			st.MapRAMBits -= res.MapRAMBits
			st.XbarBits -= res.XbarBits
			st.admit(r.ID())
			s.placed[r.ID()] = []int{i}
			return Success
		}
	}
	return NoAvailableStage
}

func cloneStages(stages []Stage) []Stage {
	out := make([]Stage, len(stages))
	for i, st := range stages {
		out[i] = st
		out[i].Resident = slices.Clone(st.Resident)
	}
	return out
}

func clonePlaced(m map[ds.ID][]int) map[ds.ID][]int {
	out := make(map[ds.ID][]int, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}
