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

// Package heuristic orders the search frontier according to a policy.
package heuristic

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ajroetker/netsynth/score"
)

// Policy decides how plans are ranked and when the search may stop.
type Policy interface {
	Name() string

	// Criteria returns the lexicographic ranking, best first.
	Criteria() []score.Criterion

	// TerminateOnFirstSolution reports whether the first terminal plan popped
	// from the frontier is the result.
	TerminateOnFirstSolution() bool
}

type policy struct {
	name      string
	criteria  []score.Criterion
	terminate bool
}

func (p policy) Name() string                   { return p.name }
func (p policy) Criteria() []score.Criterion    { return slices.Clone(p.criteria) }
func (p policy) TerminateOnFirstSolution() bool { return p.terminate }
func (p policy) String() string                 { return p.name }

// Built-in policies.
var (
	BFS Policy = policy{
		name: "bfs",
		criteria: []score.Criterion{
			{Category: score.Depth, Objective: score.Min},
			{Category: score.NumberOfNodes, Objective: score.Min},
		},
	}

	DFS Policy = policy{
		name: "dfs",
		criteria: []score.Criterion{
			{Category: score.Depth, Objective: score.Max},
			{Category: score.NumberOfNodes, Objective: score.Max},
		},
		terminate: true,
	}

	MostCompact Policy = policy{
		name: "most-compact",
		criteria: []score.Criterion{
			{Category: score.NumberOfNodes, Objective: score.Min},
			{Category: score.Depth, Objective: score.Min},
		},
	}

	LeastReordered Policy = policy{
		name: "least-reordered",
		criteria: []score.Criterion{
			{Category: score.NumberOfReorderedNodes, Objective: score.Min},
			{Category: score.NumberOfNodes, Objective: score.Min},
		},
	}

	MaxThroughput Policy = policy{
		name: "max-throughput",
		criteria: []score.Criterion{
			{Category: score.ControllerTrafficPermille, Objective: score.Min},
			{Category: score.HasNextStatefulOperationInSwitch, Objective: score.Max},
			{Category: score.ConsecutiveObjectOperationsInSwitch, Objective: score.Max},
			{Category: score.NumberOfSwitchNodes, Objective: score.Max},
			{Category: score.NumberOfSwitchLeaves, Objective: score.Max},
			{Category: score.ProcessedIRPercentage, Objective: score.Max},
		},
		terminate: true,
	}

	// Random ranks nothing: every pick is a seeded random choice.
	Random Policy = policy{name: "random", terminate: true}
)

var policies = []Policy{BFS, DFS, MostCompact, LeastReordered, MaxThroughput, Random}

// Custom returns a policy ranking plans by criteria, best first.
func Custom(name string, terminate bool, criteria ...score.Criterion) Policy {
	return policy{name: name, criteria: slices.Clone(criteria), terminate: terminate}
}

// Policies returns every built-in policy.
func Policies() []Policy { return slices.Clone(policies) }

// Names returns the names of the built-in policies.
func Names() []string {
	out := make([]string, len(policies))
	for i, p := range policies {
		out[i] = p.Name()
	}
	return out
}

// ByName returns the built-in policy called name, case-insensitive.
func ByName(name string) (Policy, error) {
	for _, p := range policies {
		if strings.EqualFold(p.Name(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown policy %q (available: %s)", name, strings.Join(Names(), ","))
}
