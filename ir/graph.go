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

package ir

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/ajroetker/netsynth/expr"
)

// Graph validation errors.
var (
	ErrNoRoot        = errors.New("ir: root node not found")
	ErrDanglingChild = errors.New("ir: child references unknown node")
	ErrSharedNode    = errors.New("ir: node has more than one parent")
	ErrDuplicateID   = errors.New("ir: duplicate node id")
	ErrBadNode       = errors.New("ir: malformed node")
)

// Constraint is one branch decision on the path from the root to a node.
type Constraint struct {
	Cond  *expr.Expr
	Taken bool
}

// Graph is an immutable IR snapshot. Every node has at most one parent, so
// the path constraints of a node are well defined.
type Graph struct {
	root    ID
	nodes   map[ID]*Node
	parents map[ID]ID
	objects map[uint64]Object
	maxID   ID

	reachOnce sync.Once
	reachable []ID
}

// NewGraph validates nodes and returns the snapshot rooted at root.
func NewGraph(root ID, nodes []*Node, objects []Object) (*Graph, error) {
	table := make(map[ID]*Node, len(nodes))
	for _, n := range nodes {
		if n == nil || n.ID == None {
			return nil, fmt.Errorf("%w: %v", ErrBadNode, n)
		}
		if _, dup := table[n.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, n.ID)
		}
		table[n.ID] = n
	}
	objs := make(map[uint64]Object, len(objects))
	for _, o := range objects {
		objs[o.Addr] = o
	}
	return build(root, table, objs)
}

// build finishes a node table into a Graph, computing parents and checking
// structural invariants. The table is owned by the new Graph.
func build(root ID, table map[ID]*Node, objects map[uint64]Object) (*Graph, error) {
	if _, ok := table[root]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoRoot, root)
	}
	g := &Graph{
		root:    root,
		nodes:   table,
		parents: make(map[ID]ID, len(table)),
		objects: objects,
	}
	for id, n := range table {
		if id > g.maxID {
			g.maxID = id
		}
		if err := checkNode(n); err != nil {
			return nil, err
		}
		for _, c := range n.Children() {
			if _, ok := table[c]; !ok {
				return nil, fmt.Errorf("%w: %d -> %d", ErrDanglingChild, id, c)
			}
			if p, ok := g.parents[c]; ok && p != id {
				return nil, fmt.Errorf("%w: %d (parents %d, %d)", ErrSharedNode, c, p, id)
			}
			g.parents[c] = id
		}
	}
	return g, nil
}

func checkNode(n *Node) error {
	switch n.Kind {
	case KindBranch:
		if n.Cond == nil {
			return fmt.Errorf("%w: branch %d without condition", ErrBadNode, n.ID)
		}
	case KindCall:
		if n.Call == nil || n.Call.Function == "" {
			return fmt.Errorf("%w: call %d without function", ErrBadNode, n.ID)
		}
	case KindRoute:
		if n.Route == nil {
			return fmt.Errorf("%w: route %d without decision", ErrBadNode, n.ID)
		}
	default:
		return fmt.Errorf("%w: node %d has kind %v", ErrBadNode, n.ID, n.Kind)
	}
	return nil
}

// Root returns the root node ID.
func (g *Graph) Root() ID { return g.root }

// Node returns the node with the given ID, or nil if not found.
func (g *Graph) Node(id ID) *Node { return g.nodes[id] }

// Has reports whether the graph contains id.
func (g *Graph) Has(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Parent returns the parent of id, None for the root or unknown nodes.
func (g *Graph) Parent(id ID) ID { return g.parents[id] }

// MaxID returns the largest node ID in use.
func (g *Graph) MaxID() ID { return g.maxID }

// Len returns the number of nodes in the snapshot, reachable or not.
func (g *Graph) Len() int { return len(g.nodes) }

// Object returns the object allocated at addr.
func (g *Graph) Object(addr uint64) (Object, bool) {
	o, ok := g.objects[addr]
	return o, ok
}

// Objects returns all declared objects ordered by address.
func (g *Graph) Objects() []Object {
	out := make([]Object, 0, len(g.objects))
	for _, o := range g.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Reachable returns the sorted IDs of every node reachable from the root.
// The slice is shared; callers must not modify it.
func (g *Graph) Reachable() []ID {
	g.reachOnce.Do(func() {
		var ids []ID
		stack := []ID{g.root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ids = append(ids, id)
			stack = append(stack, g.nodes[id].Children()...)
		}
		slices.Sort(ids)
		g.reachable = ids
	})
	return g.reachable
}

// Ancestors returns the IDs on the path from the root to id, excluding id.
func (g *Graph) Ancestors(id ID) []ID {
	var path []ID
	for p := g.parents[id]; p != None; p = g.parents[p] {
		path = append(path, p)
	}
	slices.Reverse(path)
	return path
}

// PathConstraints returns the branch decisions taken from the root to reach id.
func (g *Graph) PathConstraints(id ID) []Constraint {
	var out []Constraint
	child := id
	for p := g.parents[id]; p != None; p = g.parents[p] {
		if n := g.nodes[p]; n.Kind == KindBranch {
			out = append(out, Constraint{Cond: n.Cond, Taken: n.OnTrue == child})
		}
		child = p
	}
	slices.Reverse(out)
	return out
}

// PrecedingCall returns the closest ancestor of id that calls fn and
// satisfies match, or nil.
func (g *Graph) PrecedingCall(id ID, fn string, match func(*Node) bool) *Node {
	for p := g.parents[id]; p != None; p = g.parents[p] {
		n := g.nodes[p]
		if n.IsCall(fn) && (match == nil || match(n)) {
			return n
		}
	}
	return nil
}

// Walk visits every reachable node in depth-first pre-order, true branch first.
func (g *Graph) Walk(fn func(*Node) bool) {
	var visit func(ID) bool
	visit = func(id ID) bool {
		n := g.nodes[id]
		if !fn(n) {
			return false
		}
		for _, c := range n.Children() {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(g.root)
}

// ObjectOf returns the address of the object a call node operates on.
func ObjectOf(tb expr.Toolbox, n *Node) (uint64, bool) {
	if n == nil || n.Kind != KindCall {
		return 0, false
	}
	fi, ok := LookupFunction(n.Call.Function)
	if !ok || !fi.Stateful() {
		return 0, false
	}
	return tb.Address(n.Call.In(fi.ObjectArg))
}

// Writers returns the IDs of reachable calls that mutate the object at addr.
func (g *Graph) Writers(tb expr.Toolbox, addr uint64) []ID {
	var out []ID
	g.Walk(func(n *Node) bool {
		if n.Kind != KindCall {
			return true
		}
		if fi, ok := LookupFunction(n.Call.Function); ok && fi.Writes {
			if a, ok := ObjectOf(tb, n); ok && a == addr {
				out = append(out, n.ID)
			}
		}
		return true
	})
	slices.Sort(out)
	return out
}

// String returns a debug summary of the graph.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{Root:%d Nodes:%d Reachable:%d Objects:%d}",
		g.root, len(g.nodes), len(g.Reachable()), len(g.objects))
}
