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

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/gen"
	"github.com/ajroetker/netsynth/heuristic"
	"github.com/ajroetker/netsynth/internal/nftest"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/placer"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/score"
	"github.com/ajroetker/netsynth/target"
)

func engine(t *testing.T, policy heuristic.Policy, opts Options, kinds ...target.Kind) *Engine {
	t.Helper()
	targets, err := target.Defaults(kinds...)
	require.NoError(t, err)
	return New(gen.NewEnv(targets, nil, nil), nil, policy, opts)
}

func ops(ep *plan.EP) []string {
	return lo.Map(ep.Nodes(), func(n *plan.Node, _ int) string {
		return n.Module.Target().String() + ":" + n.Module.Op().String()
	})
}

func TestSingleDropOnHost(t *testing.T) {
	g := nftest.Drop()
	rep, err := engine(t, heuristic.BFS, DefaultOptions(), target.Host).Run(context.Background(), g)
	require.NoError(t, err)
	require.Equal(t, Done, rep.State)

	if diff := cmp.Diff([]string{"host:Drop"}, ops(rep.EP)); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ir.ID{g.Root()}, rep.EP.Consumed()); diff != "" {
		t.Errorf("consumed mismatch (-want +got):\n%s", diff)
	}
	if rep.Solutions != 1 || rep.Plans != 2 {
		t.Errorf("solutions, plans = %d, %d, want 1, 2", rep.Solutions, rep.Plans)
	}
}

func TestLookupLandsOnSwitch(t *testing.T) {
	rep, err := engine(t, heuristic.MaxThroughput, DefaultOptions(), target.Switch, target.Host).
		Run(context.Background(), nftest.LookupOrDrop(nftest.SmallCapacity))
	require.NoError(t, err)
	require.Equal(t, Done, rep.State)

	want := []string{
		"switch:If", "switch:Then", "switch:Else",
		"switch:TableLookup", "switch:Forward", "switch:Drop",
	}
	if diff := cmp.Diff(want, ops(rep.EP)); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	ctx := rep.EP.Context()
	decisions := ctx.Decisions()
	require.Len(t, decisions, 1)
	d := decisions[0]
	if d.Object != nftest.MapAddr || d.Impl != plan.ImplTable || d.Target != target.Switch {
		t.Errorf("decision = %+v, want switch table for the flow map", d)
	}
	inst, ok := ctx.Switch().Instance(nftest.MapAddr)
	require.True(t, ok)
	require.Equal(t, d.DS, inst.ID())
	if got := ctx.Switch().StagesOf(inst.ID()); len(got) != 1 {
		t.Errorf("table occupies stages %v, want exactly one", got)
	}
	for _, st := range ctx.Switch().Stages() {
		if st.SRAMBits < 0 || st.XbarBits < 0 || st.Tables < 0 {
			t.Errorf("stage %d over budget: %+v", st.Index, st)
		}
	}
}

func TestOversizedMapFallsBackToHost(t *testing.T) {
	g := nftest.LookupOrDrop(nftest.HugeCapacity)
	e := engine(t, heuristic.MaxThroughput, DefaultOptions(), target.Switch, target.Host)

	obj, _ := g.Object(nftest.MapAddr)
	tbl := ds.NewTable(2, []int{obj.KeyBits}, []int{obj.ValueBits}, obj.Capacity)
	if got := plan.NewContext(e.env.Targets).Switch().CanPlace(tbl, nil); got != placer.TooLarge {
		t.Errorf("CanPlace(table) = %v, want TooLarge", got)
	}

	rep, err := e.Run(context.Background(), g)
	require.NoError(t, err)
	require.Equal(t, Done, rep.State)
	for _, n := range rep.EP.Nodes() {
		if n.Module.Target() != target.Host {
			t.Errorf("module %v is not on the host", n.Module)
		}
	}
	if rep.Steps < 5 {
		t.Errorf("steps = %d, want the dead switch branch explored first", rep.Steps)
	}
}

func TestSiblingPlansKeepOneInstancePerObject(t *testing.T) {
	targets, err := target.Defaults(target.Switch, target.Controller)
	require.NoError(t, err)
	env := gen.NewEnv(targets, nil, nil)
	reg := gen.Default()
	ifGen, _ := reg.Lookup("switch/If")

	seed := plan.Seed(nftest.Learner(nftest.FlowCapacity), targets)
	ep := ifGen.Process(env, seed, seed.NextNode())[0].EP
	cands := reg.Expand(env, ep)
	require.Greater(t, len(cands), 2)

	capacities := map[int]bool{}
	for _, c := range cands {
		ctx := c.EP.Context()
		d, ok := ctx.Decision(nftest.MapAddr)
		require.True(t, ok, "%s decided nothing", c.Description)
		inst, ok := ctx.Switch().Instance(nftest.MapAddr)
		require.True(t, ok)
		if inst.ID() != d.DS {
			t.Errorf("%s: instance %s, decision %s", c.Description, inst.ID(), d.DS)
		}
		if ctx.Switch().Instances() != 1 {
			t.Errorf("%s: %d instances, want 1", c.Description, ctx.Switch().Instances())
		}
		capacities[inst.Capacity()] = true
	}
	if len(capacities) < 2 {
		t.Errorf("siblings share capacities %v, want divergent placements", lo.Keys(capacities))
	}
	if _, ok := ep.Context().Decision(nftest.MapAddr); ok {
		t.Error("sibling placement leaked into the parent")
	}
}

func TestTerminalPlansCoverTheIR(t *testing.T) {
	fixtures := map[string]*ir.Graph{
		"drop":     nftest.Drop(),
		"lookup":   nftest.LookupOrDrop(nftest.SmallCapacity),
		"stateful": nftest.Stateful(),
		"counter":  nftest.Counter(),
		"learner":  nftest.Learner(nftest.FlowCapacity),
		"sketch":   nftest.Sketch(),
	}
	targetSets := [][]target.Kind{
		{target.Host},
		{target.Switch, target.Host},
		{target.Switch, target.Controller, target.Host},
	}
	for name, g := range fixtures {
		for _, kinds := range targetSets {
			for _, policy := range []heuristic.Policy{heuristic.DFS, heuristic.MaxThroughput} {
				rep, err := engine(t, policy, DefaultOptions(), kinds...).Run(context.Background(), g)
				if err != nil {
					t.Errorf("%s on %v with %s: %v", name, kinds, policy.Name(), err)
					continue
				}
				if err := rep.EP.Validate(); err != nil {
					t.Errorf("%s on %v with %s: %v", name, kinds, policy.Name(), err)
				}
				if got := score.Extract(score.ProcessedIRPercentage, rep.EP); got != 100 {
					t.Errorf("%s on %v with %s: processed %d%%", name, kinds, policy.Name(), got)
				}
			}
		}
	}
}

func TestFirstSolutionEndsTheSearch(t *testing.T) {
	for _, policy := range []heuristic.Policy{heuristic.DFS, heuristic.MaxThroughput, heuristic.Random} {
		rep, err := engine(t, policy, Options{Seed: 3}, target.Switch, target.Host).
			Run(context.Background(), nftest.LookupOrDrop(nftest.SmallCapacity))
		require.NoError(t, err)
		if rep.Solutions != 1 {
			t.Errorf("%s: solutions = %d, want 1", policy.Name(), rep.Solutions)
		}
		require.True(t, rep.EP.IsTerminal())
		require.NoError(t, rep.EP.Validate())
	}
}

func TestExhaustivePolicyKeepsBest(t *testing.T) {
	rep, err := engine(t, heuristic.BFS, DefaultOptions(), target.Switch, target.Host).
		Run(context.Background(), nftest.LookupOrDrop(nftest.SmallCapacity))
	require.NoError(t, err)
	require.Equal(t, Done, rep.State)
	if rep.Solutions < 2 {
		t.Errorf("solutions = %d, want both the switch and the host plan", rep.Solutions)
	}
	// Every plan handed out was either expanded or recorded as a solution.
	if rep.Plans != rep.Steps+rep.Solutions {
		t.Errorf("plans = %d, want steps %d + solutions %d", rep.Plans, rep.Steps, rep.Solutions)
	}
	require.NoError(t, rep.EP.Validate())
}

func TestOutcomeIndependentOfWorkers(t *testing.T) {
	g := nftest.Learner(nftest.FlowCapacity)
	var reports []*Report
	for _, workers := range []int{1, 4} {
		opts := DefaultOptions()
		opts.Workers = workers
		opts.Seed = 11
		rep, err := engine(t, heuristic.MaxThroughput, opts, target.Switch, target.Controller, target.Host).
			Run(context.Background(), g)
		require.NoError(t, err)
		reports = append(reports, rep)
	}
	a, b := reports[0], reports[1]
	if a.EP.String() != b.EP.String() {
		t.Errorf("plans differ:\n%s\nvs\n%s", a.EP, b.EP)
	}
	if a.EP.ID() != b.EP.ID() || a.Steps != b.Steps || a.Plans != b.Plans {
		t.Errorf("runs differ: %v vs %v", a, b)
	}
	if a.RunID == b.RunID {
		t.Error("runs share a run id")
	}
}

func TestAbortNamesTheStuckNode(t *testing.T) {
	g := nftest.Stateful()
	rep, err := engine(t, heuristic.MaxThroughput, DefaultOptions(), target.Switch).Run(context.Background(), g)
	require.Error(t, err)
	require.True(t, IsAbort(err))
	require.ErrorIs(t, err, ErrNoSolution)
	require.Equal(t, Abort, rep.State)
	require.Nil(t, rep.EP)

	var ae *AbortError
	require.True(t, errors.As(err, &ae))
	if !g.Node(ae.Node).IsCall(ir.FnDchainRejuvenate) {
		t.Errorf("abort names %v, want the dchain call", g.Node(ae.Node))
	}
	if diff := cmp.Diff([]target.Kind{target.Switch}, ae.Targets); diff != "" {
		t.Errorf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestStepLimit(t *testing.T) {
	g := nftest.LookupOrDrop(nftest.SmallCapacity)

	_, err := engine(t, heuristic.BFS, Options{MaxSteps: 1}, target.Host).Run(context.Background(), g)
	require.ErrorIs(t, err, ErrNoSolution)
	require.ErrorIs(t, err, ErrStepLimit)

	// Deepest first without stopping: the first solution appears after four
	// expansions and the limit stops the search before the other branch.
	deep := heuristic.Custom("deepest", false, score.Criterion{Category: score.NumberOfNodes, Objective: score.Max})
	rep, err := engine(t, deep, Options{MaxSteps: 4}, target.Switch, target.Host).Run(context.Background(), g)
	require.NoError(t, err)
	require.Equal(t, Timeout, rep.State)
	require.Equal(t, 1, rep.Solutions)
	require.NoError(t, rep.EP.Validate())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := engine(t, heuristic.BFS, DefaultOptions(), target.Host).Run(ctx, nftest.LookupOrDrop(nftest.SmallCapacity))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Abort, rep.State)
}

func TestReorderHoistsIndependentCall(t *testing.T) {
	b := ir.NewBuilder()
	b.Object(ir.Object{Addr: nftest.MapAddr, Name: "flows", Kind: ir.ObjectMap, Capacity: nftest.SmallCapacity, KeyBits: 32, ValueBits: 32})
	b.Object(ir.Object{Addr: nftest.VectorAddr, Name: "counters", Kind: ir.ObjectVector, Capacity: nftest.SmallCapacity, ValueBits: 32})
	fwd := b.Route(ir.Forward, expr.Const(1, 16))
	borrow := b.Call(ir.VectorBorrow(nftest.VectorAddr, expr.Extract(nftest.FlowKey, 0, 10), expr.Sym("counter", 32)), fwd)
	g, err := b.Build(b.Call(ir.MapGet(nftest.MapAddr, nftest.FlowKey, expr.Sym("flow_value", 32)), borrow))
	require.NoError(t, err)

	hoisting := heuristic.Custom("hoisting", true,
		score.Criterion{Category: score.NumberOfReorderedNodes, Objective: score.Max},
		score.Criterion{Category: score.NumberOfNodes, Objective: score.Max},
	)
	opts := DefaultOptions()
	opts.AllowReorder = true
	rep, err := engine(t, hoisting, opts, target.Host).Run(context.Background(), g)
	require.NoError(t, err)
	require.Equal(t, 1, rep.EP.Reordered())
	want := []string{"host:VectorRead", "host:MapGet", "host:Forward"}
	if diff := cmp.Diff(want, ops(rep.EP)); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	opts.AllowReorder = false
	rep, err = engine(t, hoisting, opts, target.Host).Run(context.Background(), g)
	require.NoError(t, err)
	require.Zero(t, rep.EP.Reordered())
}
