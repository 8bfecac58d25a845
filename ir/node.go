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

// Package ir holds the decision-tree intermediate representation of a
// packet-processing function: branches over packet and state bytes, calls to
// a fixed vocabulary of stateful operations, and terminal routing decisions.
//
// A Graph is an immutable snapshot. Nodes reference their children by ID, so
// rewriting one node (IR "surgery") produces a new Graph that shares every
// untouched node with the original.
package ir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ajroetker/netsynth/expr"
)

// ID identifies a node within a Graph. IDs start at 1; None marks an absent child.
type ID int

// None is the ID of a missing node (e.g. the Next of a trailing call).
const None ID = 0

// Kind is the node variant.
type Kind int

const (
	// KindBranch nodes test Cond and continue on OnTrue or OnFalse.
	KindBranch Kind = iota

	// KindCall nodes invoke a stateful operation and continue on Next.
	KindCall

	// KindRoute nodes terminate a path with a forwarding decision.
	KindRoute
)

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case KindBranch:
		return "Branch"
	case KindCall:
		return "Call"
	case KindRoute:
		return "Route"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// RouteOp is the forwarding decision of a Route node.
type RouteOp int

const (
	Forward RouteOp = iota
	Drop
	Broadcast
)

// String returns the conventional spelling of the route operation.
func (r RouteOp) String() string {
	switch r {
	case Forward:
		return "FWD"
	case Drop:
		return "DROP"
	case Broadcast:
		return "BCAST"
	default:
		return fmt.Sprintf("RouteOp(%d)", int(r))
	}
}

// Arg is one named call argument: the value passed in and the value observed
// after the call returned (identical for read-only arguments).
type Arg struct {
	In  *expr.Expr
	Out *expr.Expr
}

// Call describes the operation performed by a KindCall node.
type Call struct {
	// Function is one of the Fn* vocabulary names.
	Function string

	// Args maps argument names (e.g. "map", "key", "value_out") to values.
	Args map[string]Arg

	// Generated lists the symbols this call makes available to its successors.
	Generated []*expr.Expr

	// Ret is the return value, nil for void calls.
	Ret *expr.Expr
}

// Arg returns the named argument and whether it is present.
func (c *Call) Arg(name string) (Arg, bool) {
	a, ok := c.Args[name]
	return a, ok
}

// In returns the input expression of the named argument, or nil.
func (c *Call) In(name string) *expr.Expr {
	return c.Args[name].In
}

// Out returns the output expression of the named argument, or nil.
func (c *Call) Out(name string) *expr.Expr {
	return c.Args[name].Out
}

// Route describes the terminal decision of a KindRoute node.
type Route struct {
	Op  RouteOp
	Dst *expr.Expr // output port for Forward, nil otherwise
}

// Node is one IR node. Only the fields of its Kind are meaningful.
// Nodes are never modified once they belong to a Graph.
type Node struct {
	ID   ID
	Kind Kind

	// Branch
	Cond    *expr.Expr
	OnTrue  ID
	OnFalse ID

	// Call
	Call *Call
	Next ID

	// Route
	Route *Route
}

// NewBranch returns a branch node.
func NewBranch(id ID, cond *expr.Expr, onTrue, onFalse ID) *Node {
	return &Node{ID: id, Kind: KindBranch, Cond: cond, OnTrue: onTrue, OnFalse: onFalse}
}

// NewCall returns a call node.
func NewCall(id ID, call *Call, next ID) *Node {
	return &Node{ID: id, Kind: KindCall, Call: call, Next: next}
}

// NewRoute returns a route node.
func NewRoute(id ID, op RouteOp, dst *expr.Expr) *Node {
	return &Node{ID: id, Kind: KindRoute, Route: &Route{Op: op, Dst: dst}}
}

// Children returns the IDs of the node's successors, omitting None.
// Branch successors are returned in (OnTrue, OnFalse) order.
func (n *Node) Children() []ID {
	var out []ID
	switch n.Kind {
	case KindBranch:
		if n.OnTrue != None {
			out = append(out, n.OnTrue)
		}
		if n.OnFalse != None {
			out = append(out, n.OnFalse)
		}
	case KindCall:
		if n.Next != None {
			out = append(out, n.Next)
		}
	}
	return out
}

// Function returns the call's function name, or "" for non-call nodes.
func (n *Node) Function() string {
	if n.Kind != KindCall || n.Call == nil {
		return ""
	}
	return n.Call.Function
}

// IsCall reports whether n is a call to fn.
func (n *Node) IsCall(fn string) bool {
	return n.Function() == fn
}

// shallow returns a copy of n that may be modified before being added to a
// new Graph. Call payloads are shared; they are immutable.
func (n *Node) shallow() *Node {
	c := *n
	return &c
}

// WithNext returns a copy of a call node continuing on next.
func (n *Node) WithNext(next ID) *Node {
	c := n.shallow()
	c.Next = next
	return c
}

// WithID returns a copy of n carrying a different ID.
func (n *Node) WithID(id ID) *Node {
	c := n.shallow()
	c.ID = id
	return c
}

// String returns a debug string representation of the node.
func (n *Node) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Node{ID:%d %s", n.ID, n.Kind)
	switch n.Kind {
	case KindBranch:
		fmt.Fprintf(&sb, " if %s then %d else %d", n.Cond, n.OnTrue, n.OnFalse)
	case KindCall:
		fmt.Fprintf(&sb, " %s(", n.Call.Function)
		names := make([]string, 0, len(n.Call.Args))
		for name := range n.Call.Args {
			names = append(names, name)
		}
		sort.Strings(names)
		for i, name := range names {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%s", name, n.Call.Args[name].In)
		}
		fmt.Fprintf(&sb, ") next %d", n.Next)
	case KindRoute:
		fmt.Fprintf(&sb, " %s", n.Route.Op)
		if n.Route.Dst != nil {
			fmt.Fprintf(&sb, " %s", n.Route.Dst)
		}
	}
	sb.WriteString("}")
	return sb.String()
}
