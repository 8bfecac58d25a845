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

package heuristic

import (
	"math/rand/v2"
	"sort"

	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/score"
)

type entry struct {
	ep    *plan.EP
	score score.Score
}

// Heuristic owns the search frontier, kept sorted best first. Ties are
// broken by a seeded random choice within the tied best group, so the same
// seed always reproduces the same order. A Heuristic is not safe for
// concurrent use.
type Heuristic[P Policy] struct {
	policy   P
	rng      *rand.Rand
	frontier []entry

	// pending counts the non-terminal plans in the frontier.
	pending int
}

// New returns an empty Heuristic for policy, seeding the tie-break RNG.
func New[P Policy](policy P, seed uint64) *Heuristic[P] {
	return &Heuristic[P]{
		policy: policy,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Policy returns the heuristic's policy.
func (h *Heuristic[P]) Policy() P { return h.policy }

// Score returns the score of ep under the policy.
func (h *Heuristic[P]) Score(ep *plan.EP) score.Score {
	return score.Of(ep, h.policy.Criteria())
}

// Better reports whether a ranks strictly above b.
func (h *Heuristic[P]) Better(a, b *plan.EP) bool {
	return h.Score(a).Better(h.Score(b))
}

// Len returns the frontier size.
func (h *Heuristic[P]) Len() int { return len(h.frontier) }

// Push adds ep to the frontier. Among equal scores, earlier pushes stay
// earlier.
func (h *Heuristic[P]) Push(ep *plan.EP) {
	e := entry{ep: ep, score: h.Score(ep)}
	i := sort.Search(len(h.frontier), func(i int) bool {
		return e.score.Better(h.frontier[i].score)
	})
	h.frontier = append(h.frontier, entry{})
	copy(h.frontier[i+1:], h.frontier[i:])
	h.frontier[i] = e
	if !ep.IsTerminal() {
		h.pending++
	}
}

// Pop removes and returns a best plan, nil if the frontier is empty.
func (h *Heuristic[P]) Pop() *plan.EP {
	if len(h.frontier) == 0 {
		return nil
	}
	tied := h.tied()
	i := 0
	if tied > 1 {
		i = h.rng.IntN(tied)
	}
	ep := h.frontier[i].ep
	h.frontier = append(h.frontier[:i], h.frontier[i+1:]...)
	if !ep.IsTerminal() {
		h.pending--
	}
	return ep
}

// tied returns the size of the group tied with the best entry.
func (h *Heuristic[P]) tied() int {
	if len(h.frontier) == 0 {
		return 0
	}
	best := h.frontier[0].score
	n := 1
	for n < len(h.frontier) && h.frontier[n].score.Compare(best) == 0 {
		n++
	}
	return n
}

// AllTerminal reports whether every plan left in the frontier is terminal.
func (h *Heuristic[P]) AllTerminal() bool { return h.pending == 0 }
