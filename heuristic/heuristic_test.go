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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/netsynth/gen"
	"github.com/ajroetker/netsynth/internal/nftest"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/target"
)

// chain returns plans of 0, 3, 4, 5 and 6 nodes implementing LookupOrDrop
// on the host. The last one is terminal.
func chain(t *testing.T) []*plan.EP {
	t.Helper()
	targets, err := target.Defaults(target.Host)
	require.NoError(t, err)
	env := gen.NewEnv(targets, nil, nil)
	ep := plan.Seed(nftest.LookupOrDrop(nftest.SmallCapacity), targets)
	out := []*plan.EP{ep}
	for _, name := range []string{"host/If", "host/MapGet", "host/Forward", "host/Drop"} {
		g, ok := gen.Default().Lookup(name)
		require.True(t, ok)
		ep = g.Process(env, ep, ep.NextNode())[0].EP
		out = append(out, ep)
	}
	return out
}

func TestTerminationFlags(t *testing.T) {
	want := map[string]bool{
		"bfs": false, "dfs": true, "most-compact": false,
		"least-reordered": false, "max-throughput": true, "random": true,
	}
	got := map[string]bool{}
	for _, p := range Policies() {
		got[p.Name()] = p.TerminateOnFirstSolution()
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TerminateOnFirstSolution mismatch (-want +got):\n%s", diff)
	}
}

func TestByName(t *testing.T) {
	p, err := ByName("Max-Throughput")
	if err != nil || p.Name() != MaxThroughput.Name() {
		t.Errorf("ByName(Max-Throughput) = (%v, %v), want MaxThroughput", p, err)
	}
	if _, err := ByName("greedy"); err == nil {
		t.Error("ByName(greedy) succeeded")
	}
}

func TestPopOrder(t *testing.T) {
	eps := chain(t)
	tests := []struct {
		policy Policy
		want   []int
	}{
		{MostCompact, []int{0, 3, 4, 5}},
		{DFS, []int{5, 4, 3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.policy.Name(), func(t *testing.T) {
			h := New(tt.policy, 1)
			for _, i := range []int{2, 0, 3, 1} {
				h.Push(eps[i])
			}
			var got []int
			for h.Len() > 0 {
				got = append(got, h.Pop().Len())
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("pop order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTieBreakIsSeeded(t *testing.T) {
	eps := chain(t)
	order := func(seed uint64) []int {
		h := New(Random, seed)
		for _, ep := range eps {
			h.Push(ep)
		}
		var out []int
		for h.Len() > 0 {
			out = append(out, h.Pop().Len())
		}
		return out
	}
	first := order(42)
	for range 5 {
		if diff := cmp.Diff(first, order(42)); diff != "" {
			t.Fatalf("same seed gave different orders (-first +again):\n%s", diff)
		}
	}
	if len(first) != len(eps) {
		t.Errorf("popped %d plans, want %d", len(first), len(eps))
	}
}

func TestPopStaysInBestGroup(t *testing.T) {
	eps := chain(t)
	h := New(MostCompact, 7)
	h.Push(eps[3])
	h.Push(eps[1])
	h.Push(eps[1].Clone())
	h.Push(eps[2])
	if got := h.tied(); got != 2 {
		t.Fatalf("tied() = %d, want the 2 tied best", got)
	}
	for range 2 {
		if got := h.Pop().Len(); got != 3 {
			t.Errorf("Pop().Len() = %d, want 3 while a 3-node plan is queued", got)
		}
	}
	if got := h.Pop().Len(); got != 4 {
		t.Errorf("Pop().Len() = %d, want 4", got)
	}
}

func TestAllTerminal(t *testing.T) {
	eps := chain(t)
	h := New(BFS, 0)
	h.Push(eps[4])
	require.True(t, eps[4].IsTerminal())
	if !h.AllTerminal() {
		t.Error("AllTerminal() = false with only a terminal plan")
	}
	h.Push(eps[1])
	if h.AllTerminal() {
		t.Error("AllTerminal() = true with a pending plan")
	}
	// BFS pops the shorter pending plan first.
	if got := h.Pop(); got != eps[1] {
		t.Fatalf("Pop() = %v, want the pending plan", got)
	}
	if !h.AllTerminal() {
		t.Error("AllTerminal() = false after the pending plan was popped")
	}
}
