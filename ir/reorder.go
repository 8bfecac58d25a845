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
	"fmt"
	"slices"

	"github.com/ajroetker/netsynth/expr"
)

// packetObject is the pseudo-object every packet and checksum call touches,
// so that chunk borrows, returns and checksum updates keep their order.
const packetObject = ^uint64(0)

// DefaultReorderWindow bounds how far down a call chain ReorderCandidates looks.
const DefaultReorderWindow = 8

// ReorderCandidates returns the stateful calls that may be hoisted directly
// before at without changing the function's semantics. Only the straight-line
// call chain starting at at is considered, up to window calls deep. A call
// qualifies when it reads no symbol generated between at and itself and
// touches an object none of the skipped calls touch.
func (g *Graph) ReorderCandidates(tb expr.Toolbox, at ID, window int) []ID {
	if window <= 0 {
		window = DefaultReorderWindow
	}
	first := g.nodes[at]
	if first == nil || first.Kind != KindCall {
		return nil
	}
	generated := map[string]bool{}
	touched := map[uint64]bool{}
	skip := func(n *Node) {
		for _, s := range n.Call.Generated {
			for _, name := range tb.Symbols(s) {
				generated[name] = true
			}
		}
		for _, a := range n.Call.Args {
			if a.Out != nil && a.Out != a.In {
				for _, name := range tb.Symbols(a.Out) {
					generated[name] = true
				}
			}
		}
		if obj, ok := touchedObject(tb, n); ok {
			touched[obj] = true
		}
	}

	var out []ID
	skip(first)
	cur := first
	for depth := 0; depth < window && cur.Next != None; depth++ {
		n := g.nodes[cur.Next]
		if n.Kind != KindCall {
			break
		}
		if IsStateful(n) && independent(tb, n, generated, touched) {
			out = append(out, n.ID)
		}
		skip(n)
		cur = n
	}
	return out
}

func touchedObject(tb expr.Toolbox, n *Node) (uint64, bool) {
	switch ClassifyFunction(n.Call.Function) {
	case ClassPacket, ClassChecksum:
		return packetObject, true
	}
	return ObjectOf(tb, n)
}

func independent(tb expr.Toolbox, n *Node, generated map[string]bool, touched map[uint64]bool) bool {
	if obj, ok := touchedObject(tb, n); ok && touched[obj] {
		return false
	}
	for _, a := range n.Call.Args {
		for _, name := range tb.Symbols(a.In) {
			if generated[name] {
				return false
			}
		}
	}
	return true
}

// Hoist moves the call candidate so it executes immediately before at.
// Node IDs are preserved, so the returned remap is always empty.
func (g *Graph) Hoist(at, candidate ID) (*Graph, Remap, error) {
	if !slices.Contains(g.chainFrom(at), candidate) || at == candidate {
		return nil, nil, fmt.Errorf("hoist: %d does not follow %d", candidate, at)
	}
	return g.Rewrite(func(rw *Rewriter) error {
		c := rw.Node(candidate)
		prev := rw.Node(rw.Parent(candidate))
		if prev.ID == at {
			// at -> c -> rest  becomes  c -> at -> rest
			rw.Relink(at, candidate)
			rw.Put(prev.WithNext(c.Next))
			rw.Put(c.WithNext(at))
			return nil
		}
		rw.Put(prev.WithNext(c.Next))
		rw.Relink(at, candidate)
		rw.Put(c.WithNext(at))
		return nil
	})
}

// chainFrom returns the straight-line call chain following at.
func (g *Graph) chainFrom(at ID) []ID {
	var out []ID
	n := g.nodes[at]
	for n != nil && n.Kind == KindCall && n.Next != None {
		out = append(out, n.Next)
		n = g.nodes[n.Next]
	}
	return out
}
