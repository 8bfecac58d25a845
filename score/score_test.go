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

package score

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/netsynth/gen"
	"github.com/ajroetker/netsynth/internal/nftest"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/target"
)

var allCategories = []Category{
	NumberOfNodes, Depth, NumberOfReorderedNodes, NumberOfSwitchNodes,
	NumberOfControllerNodes, NumberOfHostNodes, NumberOfSwitchLeaves,
	ConsecutiveObjectOperationsInSwitch, HasNextStatefulOperationInSwitch,
	ProcessedIRPercentage, NumberOfSendToController, ControllerTrafficPermille,
}

func apply(t *testing.T, env *gen.Env, ep *plan.EP, names ...string) *plan.EP {
	t.Helper()
	for _, name := range names {
		g, ok := gen.Default().Lookup(name)
		require.True(t, ok, name)
		cands := g.Process(env, ep, ep.NextNode())
		require.NotEmpty(t, cands, name)
		ep = cands[0].EP
	}
	return ep
}

func switchEnv(t *testing.T) *gen.Env {
	targets, err := target.Defaults(target.Switch, target.Host)
	require.NoError(t, err)
	return gen.NewEnv(targets, nil, nil)
}

func TestExtract(t *testing.T) {
	env := switchEnv(t)
	ep := apply(t, env, plan.Seed(nftest.LookupOrDrop(nftest.SmallCapacity), env.Targets),
		"switch/If", "switch/TableLookup")

	want := map[Category]int64{
		NumberOfNodes:                       4,
		Depth:                               3,
		NumberOfReorderedNodes:              0,
		NumberOfSwitchNodes:                 4,
		NumberOfControllerNodes:             0,
		NumberOfHostNodes:                   0,
		NumberOfSwitchLeaves:                2,
		ConsecutiveObjectOperationsInSwitch: 1,
		HasNextStatefulOperationInSwitch:    0,
		ProcessedIRPercentage:               50,
		NumberOfSendToController:            0,
		ControllerTrafficPermille:           0,
	}
	got := map[Category]int64{}
	for _, c := range allCategories {
		got[c] = Extract(c, ep)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}

	seed := plan.Seed(nftest.LookupOrDrop(nftest.SmallCapacity), env.Targets)
	afterIf := apply(t, env, seed, "switch/If")
	if got := Extract(HasNextStatefulOperationInSwitch, afterIf); got != 1 {
		t.Errorf("HasNextStatefulOperationInSwitch = %d, want 1 with map_get pending on the switch", got)
	}
}

func TestMinIsNegated(t *testing.T) {
	env := switchEnv(t)
	seed := plan.Seed(nftest.LookupOrDrop(nftest.SmallCapacity), env.Targets)
	small := apply(t, env, seed, "host/If")
	large := apply(t, env, small, "host/MapGet")

	fewer := []Criterion{{NumberOfNodes, Min}}
	if !Of(small, fewer).Better(Of(large, fewer)) {
		t.Errorf("%v should beat %v", Of(small, fewer), Of(large, fewer))
	}
	more := []Criterion{{NumberOfNodes, Max}}
	if !Of(large, more).Better(Of(small, more)) {
		t.Errorf("%v should beat %v", Of(large, more), Of(small, more))
	}
	if got := Of(small, fewer).Values()[0]; got != -3 {
		t.Errorf("stored MIN value = %d, want -3", got)
	}
}

func TestLexicographicOrder(t *testing.T) {
	env := switchEnv(t)
	seed := plan.Seed(nftest.LookupOrDrop(nftest.SmallCapacity), env.Targets)
	sw := apply(t, env, seed, "switch/If")
	host := apply(t, env, seed, "host/If")

	// Same node count, so the second criterion decides.
	criteria := []Criterion{{NumberOfNodes, Min}, {NumberOfSwitchNodes, Max}}
	if got := Of(sw, criteria).Compare(Of(host, criteria)); got != 1 {
		t.Errorf("Compare() = %d, want 1", got)
	}
	criteria = []Criterion{{NumberOfNodes, Min}, {NumberOfHostNodes, Max}, {NumberOfSwitchNodes, Max}}
	if got := Of(sw, criteria).Compare(Of(host, criteria)); got != -1 {
		t.Errorf("Compare() = %d, want -1", got)
	}
}

// Plans with identical extractor outputs tie under every subset and order
// of criteria.
func TestTieStability(t *testing.T) {
	env := switchEnv(t)
	g := nftest.LookupOrDrop(nftest.SmallCapacity)
	a := apply(t, env, plan.Seed(g, env.Targets), "host/If", "host/MapGet")
	b := apply(t, env, plan.Seed(g, env.Targets), "host/If", "host/MapGet")

	reversed := slices.Clone(allCategories)
	slices.Reverse(reversed)
	subsets := [][]Category{allCategories, reversed, allCategories[:3], allCategories[5:9], {ProcessedIRPercentage}}
	for _, cats := range subsets {
		for _, obj := range []Objective{Min, Max} {
			var criteria []Criterion
			for _, c := range cats {
				criteria = append(criteria, Criterion{c, obj})
			}
			sa, sb := Of(a, criteria), Of(b, criteria)
			if sa.Compare(sb) != 0 || sb.Compare(sa) != 0 || sa.Better(sb) || sb.Better(sa) {
				t.Errorf("%v and %v do not tie", sa, sb)
			}
		}
	}
}
