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

// Package plan holds execution plans: partial or complete assignments of IR
// nodes to target modules.
//
// An EP is persistent. Deriving a child plan shares the node chain, the IR
// snapshot and every target context the step did not touch, so the search
// frontier can hold many plans cheaply.
package plan

import (
	"fmt"
	"slices"

	"golang.org/x/tools/container/intsets"

	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/target"
)

// ID identifies an execution plan within one search.
type ID uint64

// Leaf is an open end of a plan: the node it hangs from, the IR node still
// to implement there and the target active on that path.
type Leaf struct {
	// Node is nil for the entry leaf of a seed plan.
	Node *Node

	// Next is ir.None once nothing is pending.
	Next ir.ID

	// Target is target.None until the first module picks the entry target.
	Target target.Kind
}

// EP is an execution plan.
type EP struct {
	id       ID
	parentID ID

	graph   *ir.Graph
	targets target.Set
	ctx     *Context

	chain  *link
	size   int
	depth  int
	leaves []Leaf

	consumed  intsets.Sparse
	reordered int
	perTarget [target.Host + 1]int
}

// Seed returns the initial plan for g: a single unassigned leaf at the root.
func Seed(g *ir.Graph, targets target.Set) *EP {
	return &EP{
		graph:   g,
		targets: targets,
		ctx:     NewContext(targets),
		leaves:  []Leaf{{Next: g.Root(), Target: target.None}},
	}
}

// Clone returns a copy of ep that can be modified without affecting ep. The
// node chain and target contexts are shared.
func (ep *EP) Clone() *EP {
	cp := &EP{
		parentID:  ep.id,
		graph:     ep.graph,
		targets:   ep.targets,
		ctx:       ep.ctx,
		chain:     ep.chain,
		size:      ep.size,
		depth:     ep.depth,
		leaves:    slices.Clone(ep.leaves),
		reordered: ep.reordered,
		perTarget: ep.perTarget,
	}
	cp.consumed.Copy(&ep.consumed)
	return cp
}

// ID returns the plan id, 0 until SetID is called.
func (ep *EP) ID() ID { return ep.id }

// ParentID returns the id of the plan ep was derived from.
func (ep *EP) ParentID() ID { return ep.parentID }

// SetID publishes ep under id. It may be called only once.
func (ep *EP) SetID(id ID) {
	if ep.id != 0 {
		Invariant("plan %d renamed to %d", ep.id, id)
	}
	ep.id = id
}

// IR returns the IR snapshot the plan implements.
func (ep *EP) IR() *ir.Graph { return ep.graph }

// Targets returns the declared targets.
func (ep *EP) Targets() target.Set { return ep.targets }

// Context returns the per-target state of the plan.
func (ep *EP) Context() *Context { return ep.ctx }

// Leaves returns the open leaves, the active one first.
func (ep *EP) Leaves() []Leaf { return slices.Clone(ep.leaves) }

// ActiveLeaf returns the leaf processed next.
func (ep *EP) ActiveLeaf() (Leaf, bool) {
	if len(ep.leaves) == 0 {
		return Leaf{}, false
	}
	return ep.leaves[0], true
}

// NextNode returns the pending IR node of the active leaf, nil if terminal.
func (ep *EP) NextNode() *ir.Node {
	if l, ok := ep.ActiveLeaf(); ok {
		return ep.graph.Node(l.Next)
	}
	return nil
}

// IsTerminal reports whether every reachable node has been implemented.
func (ep *EP) IsTerminal() bool { return len(ep.leaves) == 0 }

// Len returns the number of plan nodes.
func (ep *EP) Len() int { return ep.size }

// Depth returns the depth of the deepest plan node.
func (ep *EP) Depth() int { return ep.depth }

// Reordered returns the number of IR nodes hoisted by reordering.
func (ep *EP) Reordered() int { return ep.reordered }

// TargetNodes returns the number of plan nodes running on k.
func (ep *EP) TargetNodes(k target.Kind) int {
	if k < 0 || int(k) >= len(ep.perTarget) {
		return 0
	}
	return ep.perTarget[k]
}

// IsConsumed reports whether the IR node id has been implemented.
func (ep *EP) IsConsumed(id ir.ID) bool { return ep.consumed.Has(int(id)) }

// Consumed returns the implemented IR node ids in ascending order.
func (ep *EP) Consumed() []ir.ID {
	var out []ir.ID
	for _, id := range ep.consumed.AppendTo(nil) {
		out = append(out, ir.ID(id))
	}
	return out
}

// Nodes returns the plan nodes in insertion order.
func (ep *EP) Nodes() []*Node {
	out := make([]*Node, 0, ep.size)
	for l := ep.chain; l != nil; l = l.prev {
		out = append(out, l.node)
	}
	slices.Reverse(out)
	return out
}

// Last returns the most recently added plan node, nil for a seed plan.
func (ep *EP) Last() *Node {
	if ep.chain == nil {
		return nil
	}
	return ep.chain.node
}

// Children returns the children of n in insertion order.
func (ep *EP) Children(n *Node) []*Node {
	var out []*Node
	for l := ep.chain; l != nil && l.node != n; l = l.prev {
		if l.node.Parent == n {
			out = append(out, l.node)
		}
	}
	slices.Reverse(out)
	return out
}

// Tree returns the materialized plan, one TreeNode per root module.
func (ep *EP) Tree() []*TreeNode {
	views := map[*Node]*TreeNode{}
	var roots []*TreeNode
	for _, n := range ep.Nodes() {
		v := &TreeNode{ID: n.ID, Module: n.Module}
		views[n] = v
		if n.Parent == nil {
			roots = append(roots, v)
			continue
		}
		p := views[n.Parent]
		p.Children = append(p.Children, v)
	}
	return roots
}

// String returns a one-line summary of the plan.
func (ep *EP) String() string {
	return fmt.Sprintf("EP{ID:%d Parent:%d Nodes:%d Depth:%d Leaves:%d Consumed:%d}",
		ep.id, ep.parentID, ep.size, ep.depth, len(ep.leaves), ep.consumed.Len())
}

// StepNode is a module to add. Parent indexes an earlier StepNode of the same
// Step, or is -1 to hang the module from the active leaf.
type StepNode struct {
	Module Module
	Parent int
}

// StepLeaf is a leaf to open. Node indexes a StepNode, or is -1 for the
// active leaf's node.
type StepLeaf struct {
	Node   int
	Next   ir.ID
	Target target.Kind
}

// Step is the result of one generator on the active leaf.
type Step struct {
	Nodes    []StepNode
	Leaves   []StepLeaf
	Consumed []ir.ID

	// Graph, when set, replaces the IR. Remap translates the ids of pending
	// leaves that the surgery replaced.
	Graph *ir.Graph
	Remap ir.Remap

	// Context, when set, replaces the plan's context.
	Context *Context
}

// ProcessLeaf returns the unpublished plan obtained by committing s on the
// active leaf. The receiver is not modified.
func (ep *EP) ProcessLeaf(s Step) *EP {
	active, ok := ep.ActiveLeaf()
	if !ok {
		Invariant("processing terminal plan %d", ep.id)
	}
	next := ep.Clone()
	next.leaves = next.leaves[1:]
	if s.Graph != nil {
		next.ReplaceIR(s.Graph, s.Remap)
	}

	added := make([]*Node, len(s.Nodes))
	for i, sn := range s.Nodes {
		parent := active.Node
		if sn.Parent >= 0 {
			if sn.Parent >= i {
				Invariant("step node %d has forward parent %d", i, sn.Parent)
			}
			parent = added[sn.Parent]
		}
		n := &Node{ID: NodeID(next.size + 1), Module: sn.Module, Parent: parent, Depth: 1}
		if parent != nil {
			n.Depth = parent.Depth + 1
		}
		added[i] = n
		next.chain = &link{node: n, prev: next.chain}
		next.size++
		next.depth = max(next.depth, n.Depth)
		next.perTarget[sn.Module.Target()]++
	}

	for _, id := range s.Consumed {
		if !next.consumed.Insert(int(id)) {
			Invariant("IR node %d consumed twice", id)
		}
	}

	var opened []Leaf
	for _, sl := range s.Leaves {
		if sl.Next == ir.None {
			continue
		}
		l := Leaf{Node: active.Node, Next: sl.Next, Target: sl.Target}
		if sl.Node >= 0 {
			l.Node = added[sl.Node]
		}
		opened = append(opened, l)
	}
	next.leaves = append(opened, next.leaves...)

	if s.Context != nil {
		next.ctx = s.Context
	}
	return next
}

// ReplaceIR swaps the IR of an unpublished plan, translating every pending
// leaf through remap.
func (ep *EP) ReplaceIR(g *ir.Graph, remap ir.Remap) {
	if ep.id != 0 {
		Invariant("replacing the IR of published plan %d", ep.id)
	}
	for i := range ep.leaves {
		id := remap.Apply(ep.leaves[i].Next)
		if id != ir.None && !g.Has(id) {
			Invariant("pending node %d missing after IR replacement", id)
		}
		ep.leaves[i].Next = id
	}
	ep.graph = g
}

// Reorder returns an unpublished plan whose IR has candidate hoisted in
// front of the active leaf's pending node, with the active leaf now pending
// candidate.
func (ep *EP) Reorder(candidate ir.ID) (*EP, error) {
	active, ok := ep.ActiveLeaf()
	if !ok {
		return nil, fmt.Errorf("reorder on terminal plan %d", ep.id)
	}
	g, remap, err := ep.graph.Hoist(active.Next, candidate)
	if err != nil {
		return nil, err
	}
	next := ep.Clone()
	next.ReplaceIR(g, remap)
	next.leaves[0].Next = candidate
	next.reordered++
	return next, nil
}

// Validate checks the emission contract of a terminal plan: the reachable
// IR is implemented exactly once and every module is fully bound.
func (ep *EP) Validate() error {
	if !ep.IsTerminal() {
		return fmt.Errorf("%w: %d pending", ErrNotTerminal, len(ep.leaves))
	}
	reachable := ep.graph.Reachable()
	var want intsets.Sparse
	for _, id := range reachable {
		want.Insert(int(id))
	}
	if !want.Equals(&ep.consumed) {
		var missing, extra intsets.Sparse
		missing.Difference(&want, &ep.consumed)
		extra.Difference(&ep.consumed, &want)
		return fmt.Errorf("%w: missing %s, extra %s", ErrCoverage, missing.String(), extra.String())
	}
	for _, n := range ep.Nodes() {
		if err := n.Module.Validate(); err != nil {
			return fmt.Errorf("node %d: %w", n.ID, err)
		}
	}
	return nil
}
