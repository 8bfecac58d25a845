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
	"maps"
)

// Remap maps IDs that no longer exist after a rewrite to the node that took
// their place. IDs absent from the map are unchanged.
type Remap map[ID]ID

// Apply returns the ID that replaced id, or id itself.
func (r Remap) Apply(id ID) ID {
	if nid, ok := r[id]; ok {
		return nid
	}
	return id
}

// Rewriter stages modifications of a Graph. It is only valid inside the
// callback passed to Graph.Rewrite.
type Rewriter struct {
	base    *Graph
	overlay map[ID]*Node
	removed map[ID]bool
	root    ID
	next    ID
	remap   Remap
}

// Rewrite applies fn to a staging copy of g and returns the resulting
// snapshot together with the remap recorded through Redirect. g itself is
// never modified; the new Graph shares all untouched nodes with g.
func (g *Graph) Rewrite(fn func(rw *Rewriter) error) (*Graph, Remap, error) {
	rw := &Rewriter{
		base:    g,
		overlay: make(map[ID]*Node),
		removed: make(map[ID]bool),
		root:    g.root,
		next:    g.maxID + 1,
		remap:   make(Remap),
	}
	if err := fn(rw); err != nil {
		return nil, nil, err
	}
	table := make(map[ID]*Node, len(g.nodes)+len(rw.overlay))
	maps.Copy(table, g.nodes)
	maps.Copy(table, rw.overlay)
	for id := range rw.removed {
		delete(table, id)
	}
	ng, err := build(rw.root, table, g.objects)
	if err != nil {
		return nil, nil, fmt.Errorf("rewrite: %w", err)
	}
	if ng.maxID < rw.next-1 {
		// Keep fresh IDs monotonic even if the newest node was removed again.
		ng.maxID = rw.next - 1
	}
	return ng, rw.remap, nil
}

// Node returns the staged version of id.
func (rw *Rewriter) Node(id ID) *Node {
	if rw.removed[id] {
		return nil
	}
	if n, ok := rw.overlay[id]; ok {
		return n
	}
	return rw.base.nodes[id]
}

// Parent returns the parent of id in the base graph.
func (rw *Rewriter) Parent(id ID) ID {
	return rw.base.parents[id]
}

// Fresh allocates an ID unused by the base graph and by earlier allocations.
func (rw *Rewriter) Fresh() ID {
	id := rw.next
	rw.next++
	return id
}

// Put stages n, replacing any node with the same ID.
func (rw *Rewriter) Put(n *Node) {
	delete(rw.removed, n.ID)
	rw.overlay[n.ID] = n
}

// Remove drops id from the rewritten graph.
func (rw *Rewriter) Remove(id ID) {
	delete(rw.overlay, id)
	rw.removed[id] = true
}

// SetRoot changes the root of the rewritten graph.
func (rw *Rewriter) SetRoot(id ID) {
	rw.root = id
}

// Redirect records that pending references to old must now point to nid.
func (rw *Rewriter) Redirect(old, nid ID) {
	rw.remap[old] = nid
}

// Relink makes the parent of child point to replacement instead, or makes
// replacement the root if child was the root.
func (rw *Rewriter) Relink(child, replacement ID) {
	p := rw.base.parents[child]
	if p == None {
		rw.root = replacement
		return
	}
	pn := rw.Node(p).shallow()
	switch {
	case pn.Kind == KindCall && pn.Next == child:
		pn.Next = replacement
	case pn.Kind == KindBranch && pn.OnTrue == child:
		pn.OnTrue = replacement
	case pn.Kind == KindBranch && pn.OnFalse == child:
		pn.OnFalse = replacement
	}
	rw.Put(pn)
}

// CloneSubtree copies the subtree rooted at id using fresh IDs and returns
// the ID of the copy's root, together with the old-to-new ID map of the copy.
func (rw *Rewriter) CloneSubtree(id ID) (ID, map[ID]ID) {
	mapping := make(map[ID]ID)
	var clone func(ID) ID
	clone = func(old ID) ID {
		if old == None {
			return None
		}
		n := rw.Node(old)
		nid := rw.Fresh()
		mapping[old] = nid
		c := n.WithID(nid)
		switch c.Kind {
		case KindBranch:
			c.OnTrue = clone(n.OnTrue)
			c.OnFalse = clone(n.OnFalse)
		case KindCall:
			c.Next = clone(n.Next)
		}
		rw.Put(c)
		return nid
	}
	return clone(id), mapping
}
