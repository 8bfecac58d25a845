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

// Package nftest builds small network function IRs shared by tests across
// packages.
package nftest

import (
	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
)

// Object addresses used by the fixtures.
const (
	MapAddr    uint64 = 0x1000
	VectorAddr uint64 = 0x2000
	ChainAddr  uint64 = 0x3000
	SketchAddr uint64 = 0x4000
)

// Capacities used by the fixtures.
const (
	SmallCapacity = 1024

	// HugeCapacity makes a 64-bit-entry map exceed the SRAM of every default
	// pipeline stage combined.
	HugeCapacity = 4_000_000

	FlowCapacity = 65536
)

// IsUDP is the branch condition of the fixtures.
var IsUDP = expr.Eq(expr.Sym("pkt_proto", 8), expr.Const(17, 8))

// FlowKey is the lookup key of the fixtures.
var FlowKey = expr.Sym("flow_key", 32)

func must(g *ir.Graph, err error) *ir.Graph {
	if err != nil {
		panic(err)
	}
	return g
}

// Drop returns a function that drops every packet.
func Drop() *ir.Graph {
	b := ir.NewBuilder()
	return must(b.Build(b.Route(ir.Drop, nil)))
}

// LookupOrDrop returns a function that looks UDP packets up in a read-only
// map of the given capacity and forwards them, dropping everything else.
func LookupOrDrop(capacity int) *ir.Graph {
	b := ir.NewBuilder()
	b.Object(ir.Object{Addr: MapAddr, Name: "flows", Kind: ir.ObjectMap, Capacity: capacity, KeyBits: 32, ValueBits: 32})
	fwd := b.Route(ir.Forward, expr.Const(1, 16))
	get := b.Call(ir.MapGet(MapAddr, FlowKey, expr.Sym("flow_value", 32)), fwd)
	drop := b.Route(ir.Drop, nil)
	return must(b.Build(b.Branch(IsUDP, get, drop)))
}

// Found is the predicate generated by the flow table lookup of Stateful.
var Found = expr.Sym("map_has_this_key_flow_index", 1)

// Stateful returns a flow tracker: known UDP flows refresh their index and
// read their vector cell, new flows allocate an index and populate the map
// and the vector. Non-UDP packets are dropped.
func Stateful() *ir.Graph {
	b := ir.NewBuilder()
	b.Object(ir.Object{Addr: MapAddr, Name: "flows", Kind: ir.ObjectMap, Capacity: FlowCapacity, KeyBits: 32, ValueBits: 32})
	b.Object(ir.Object{Addr: VectorAddr, Name: "counters", Kind: ir.ObjectVector, Capacity: FlowCapacity, ValueBits: 32})
	b.Object(ir.Object{Addr: ChainAddr, Name: "allocator", Kind: ir.ObjectDchain, Capacity: FlowCapacity})

	chunk := expr.Sym("packet_chunk", 112)
	now := expr.Sym("now", 64)
	idx := expr.Sym("flow_index", 32)
	newIdx := expr.Sym("new_index", 32)
	cell := expr.Sym("counter", 32)

	// Known flow.
	fwdKnown := b.Route(ir.Forward, expr.Const(1, 16))
	retKnown := b.Call(ir.PacketReturn(chunk), fwdKnown)
	vret := b.Call(ir.VectorReturn(VectorAddr, idx, cell), retKnown)
	vget := b.Call(ir.VectorBorrow(VectorAddr, idx, cell), vret)
	rejuv := b.Call(ir.DchainCall(ir.FnDchainRejuvenate, ChainAddr, idx, now), vget)

	// New flow.
	fwdNew := b.Route(ir.Forward, expr.Const(1, 16))
	retNew := b.Call(ir.PacketReturn(chunk), fwdNew)
	vinit := b.Call(ir.VectorReturn(VectorAddr, newIdx, expr.Const(0, 32)), retNew)
	put := b.Call(ir.MapPut(MapAddr, FlowKey, newIdx), vinit)
	alloc := b.Call(ir.DchainCall(ir.FnDchainAllocate, ChainAddr, newIdx, now), put)

	known := b.Branch(Found, rejuv, alloc)
	get := b.Call(ir.MapGet(MapAddr, FlowKey, idx), known)
	clock := b.Call(ir.CurrentTime(now), get)

	retOther := b.Call(ir.PacketReturn(chunk), b.Route(ir.Drop, nil))
	udp := b.Branch(IsUDP, clock, retOther)
	return must(b.Build(b.Call(ir.PacketBorrow(14, chunk), udp)))
}

// Counter returns a function that bumps a per-flow vector cell and forwards.
func Counter() *ir.Graph {
	b := ir.NewBuilder()
	b.Object(ir.Object{Addr: VectorAddr, Name: "counters", Kind: ir.ObjectVector, Capacity: SmallCapacity, ValueBits: 32})
	idx := expr.Extract(FlowKey, 0, 10)
	cell := expr.Sym("counter", 32)
	fwd := b.Route(ir.Forward, expr.Const(2, 16))
	ret := b.Call(ir.VectorReturn(VectorAddr, idx, expr.Add(cell, expr.Const(1, 32))), fwd)
	return must(b.Build(b.Call(ir.VectorBorrow(VectorAddr, idx, cell), ret)))
}

// Learner returns a function that inserts unknown UDP flows into a map and
// forwards known ones, so the map has data plane writers.
func Learner(capacity int) *ir.Graph {
	b := ir.NewBuilder()
	b.Object(ir.Object{Addr: MapAddr, Name: "flows", Kind: ir.ObjectMap, Capacity: capacity, KeyBits: 32, ValueBits: 32})
	val := expr.Sym("flow_value", 32)
	found := expr.Sym("map_has_this_key_flow_value", 1)

	fwdKnown := b.Route(ir.Forward, expr.Const(1, 16))
	fwdNew := b.Route(ir.Forward, expr.Const(1, 16))
	put := b.Call(ir.MapPut(MapAddr, FlowKey, expr.Const(1, 32)), fwdNew)
	known := b.Branch(found, fwdKnown, put)
	get := b.Call(ir.MapGet(MapAddr, FlowKey, val), known)
	return must(b.Build(b.Branch(IsUDP, get, b.Route(ir.Drop, nil))))
}

// Sketch returns a heavy hitter detector using a count-min sketch.
func Sketch() *ir.Graph {
	b := ir.NewBuilder()
	b.Object(ir.Object{Addr: SketchAddr, Name: "hh", Kind: ir.ObjectSketch, Capacity: 4096, KeyBits: 32})
	heavy := expr.Sym("sketch_over_threshold", 1)
	drop := b.Route(ir.Drop, nil)
	fwd := b.Route(ir.Forward, expr.Const(1, 16))
	over := b.Branch(heavy, drop, fwd)
	fetch := b.Call(ir.SketchCall(ir.FnSketchFetch, SketchAddr, nil), over)
	touch := b.Call(ir.SketchCall(ir.FnSketchTouch, SketchAddr, nil), fetch)
	return must(b.Build(b.Call(ir.SketchCall(ir.FnSketchCompute, SketchAddr, FlowKey), touch)))
}
