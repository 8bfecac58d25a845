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

package ir_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/internal/nftest"
	"github.com/ajroetker/netsynth/ir"
)

func TestRewriteSharesUntouchedNodes(t *testing.T) {
	g := nftest.Learner(nftest.FlowCapacity)
	var bcast ir.ID
	ng, remap, err := g.Rewrite(func(rw *ir.Rewriter) error {
		bcast = rw.Fresh()
		rw.Put(ir.NewRoute(bcast, ir.Broadcast, nil))
		rw.Relink(drop, bcast)
		rw.Remove(drop)
		rw.Redirect(drop, bcast)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, root+1, bcast)
	require.Equal(t, bcast, remap.Apply(drop))
	require.Equal(t, get, remap.Apply(get))
	if ng.Node(get) != g.Node(get) {
		t.Error("untouched node was copied")
	}
	if ng.Node(root) == g.Node(root) || ng.Node(root).OnFalse != bcast {
		t.Errorf("root = %v, want its false branch on %d", ng.Node(root), bcast)
	}
	if g.Node(root).OnFalse != drop || g.Node(drop) == nil {
		t.Error("rewrite modified the original graph")
	}
	if ng.Node(drop) != nil {
		t.Error("removed node still present")
	}
}

func TestRewriteErrors(t *testing.T) {
	g := nftest.Learner(nftest.FlowCapacity)
	boom := errors.New("boom")
	if _, _, err := g.Rewrite(func(*ir.Rewriter) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Rewrite() error = %v, want the callback's", err)
	}
	_, _, err := g.Rewrite(func(rw *ir.Rewriter) error {
		rw.Remove(fwdNew)
		return nil
	})
	if !errors.Is(err, ir.ErrDanglingChild) {
		t.Errorf("removing a referenced node: error = %v, want ErrDanglingChild", err)
	}
}

func TestCloneSubtree(t *testing.T) {
	g := nftest.Learner(nftest.FlowCapacity)
	var copyRoot ir.ID
	var mapping map[ir.ID]ir.ID
	ng, _, err := g.Rewrite(func(rw *ir.Rewriter) error {
		copyRoot, mapping = rw.CloneSubtree(known)
		rw.SetRoot(copyRoot)
		return nil
	})
	require.NoError(t, err)

	want := map[ir.ID]ir.ID{known: 8, fwdKnown: 9, put: 10, fwdNew: 11}
	if diff := cmp.Diff(want, mapping); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ir.ID{8, 9, 10, 11}, ng.Reachable()); diff != "" {
		t.Errorf("Reachable() mismatch (-want +got):\n%s", diff)
	}
	if !ng.Node(10).IsCall(ir.FnMapPut) || ng.Node(10).Next != 11 {
		t.Errorf("cloned put = %v", ng.Node(10))
	}
	if ng.MaxID() != 11 {
		t.Errorf("MaxID() = %d, want 11", ng.MaxID())
	}
}

func TestReorderCandidates(t *testing.T) {
	b := ir.NewBuilder()
	b.Object(ir.Object{Addr: nftest.MapAddr, Kind: ir.ObjectMap, Capacity: 8, KeyBits: 32, ValueBits: 32})
	b.Object(ir.Object{Addr: nftest.VectorAddr, Kind: ir.ObjectVector, Capacity: 8, ValueBits: 32})
	b.Object(ir.Object{Addr: nftest.ChainAddr, Kind: ir.ObjectDchain, Capacity: 8})
	val := expr.Sym("flow_value", 32)
	fwd := b.Route(ir.Forward, expr.Const(1, 16))
	// Reads the value produced by the map lookup.
	dependent := b.Call(ir.VectorBorrow(nftest.VectorAddr, val, expr.Sym("cell", 32)), fwd)
	// Independent of the lookup.
	rejuv := b.Call(ir.DchainCall(ir.FnDchainRejuvenate, nftest.ChainAddr, nftest.FlowKey, nil), dependent)
	clock := b.Call(ir.CurrentTime(expr.Sym("now", 64)), rejuv)
	// Same object as the lookup.
	again := b.Call(ir.MapGet(nftest.MapAddr, nftest.FlowKey, expr.Sym("other", 32)), clock)
	lookup := b.Call(ir.MapGet(nftest.MapAddr, nftest.FlowKey, val), again)
	g, err := b.Build(lookup)
	require.NoError(t, err)

	got := g.ReorderCandidates(tb, lookup, 0)
	if diff := cmp.Diff([]ir.ID{rejuv}, got); diff != "" {
		t.Errorf("ReorderCandidates() mismatch (-want +got):\n%s", diff)
	}
	if got := g.ReorderCandidates(tb, lookup, 2); len(got) != 0 {
		t.Errorf("window 2 reached %v", got)
	}
	if got := g.ReorderCandidates(tb, fwd, 0); got != nil {
		t.Errorf("ReorderCandidates(route) = %v, want nil", got)
	}

	ng, remap, err := g.Hoist(lookup, rejuv)
	require.NoError(t, err)
	require.Empty(t, remap)
	var order []ir.ID
	ng.Walk(func(n *ir.Node) bool {
		order = append(order, n.ID)
		return true
	})
	if diff := cmp.Diff([]ir.ID{rejuv, lookup, again, clock, dependent, fwd}, order); diff != "" {
		t.Errorf("hoisted order mismatch (-want +got):\n%s", diff)
	}
	if g.Root() != lookup {
		t.Error("Hoist modified the original graph")
	}

	if _, _, err := g.Hoist(rejuv, lookup); err == nil {
		t.Error("hoisting a predecessor succeeded")
	}
}
