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

import "github.com/ajroetker/netsynth/expr"

// Builder assembles a Graph bottom-up: children are created first and their
// IDs passed to the parent constructors. IDs are allocated sequentially.
//
//	b := ir.NewBuilder()
//	drop := b.Route(ir.Drop, nil)
//	fwd := b.Route(ir.Forward, expr.Const(1, 16))
//	root := b.Branch(cond, fwd, drop)
//	g, err := b.Build(root)
type Builder struct {
	nodes   []*Node
	objects []Object
	nextID  ID
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{nextID: 1}
}

func (b *Builder) alloc() ID {
	id := b.nextID
	b.nextID++
	return id
}

// Object declares a stateful object.
func (b *Builder) Object(o Object) *Builder {
	b.objects = append(b.objects, o)
	return b
}

// Branch adds a branch node.
func (b *Builder) Branch(cond *expr.Expr, onTrue, onFalse ID) ID {
	n := NewBranch(b.alloc(), cond, onTrue, onFalse)
	b.nodes = append(b.nodes, n)
	return n.ID
}

// Call adds a call node.
func (b *Builder) Call(call *Call, next ID) ID {
	n := NewCall(b.alloc(), call, next)
	b.nodes = append(b.nodes, n)
	return n.ID
}

// Route adds a route node.
func (b *Builder) Route(op RouteOp, dst *expr.Expr) ID {
	n := NewRoute(b.alloc(), op, dst)
	b.nodes = append(b.nodes, n)
	return n.ID
}

// Build validates the accumulated nodes and returns the Graph rooted at root.
func (b *Builder) Build(root ID) (*Graph, error) {
	return NewGraph(root, b.nodes, b.objects)
}

// MapGet returns a map_get call on the map at addr.
func MapGet(addr uint64, key, valueOut *expr.Expr) *Call {
	found := expr.Sym("map_has_this_key_"+valueOut.Name, 1)
	return &Call{
		Function: FnMapGet,
		Args: map[string]Arg{
			ArgMap:      {In: expr.Const(addr, 64), Out: expr.Const(addr, 64)},
			ArgKey:      {In: key, Out: key},
			ArgValueOut: {In: nil, Out: valueOut},
		},
		Generated: []*expr.Expr{valueOut, found},
		Ret:       found,
	}
}

// MapPut returns a map_put call on the map at addr.
func MapPut(addr uint64, key, value *expr.Expr) *Call {
	return &Call{
		Function: FnMapPut,
		Args: map[string]Arg{
			ArgMap:   {In: expr.Const(addr, 64), Out: expr.Const(addr, 64)},
			ArgKey:   {In: key, Out: key},
			ArgValue: {In: value, Out: value},
		},
	}
}

// MapErase returns a map_erase call on the map at addr.
func MapErase(addr uint64, key *expr.Expr) *Call {
	return &Call{
		Function: FnMapErase,
		Args: map[string]Arg{
			ArgMap: {In: expr.Const(addr, 64), Out: expr.Const(addr, 64)},
			ArgKey: {In: key, Out: key},
		},
	}
}

// VectorBorrow returns a vector_borrow call on the vector at addr.
func VectorBorrow(addr uint64, index, valueOut *expr.Expr) *Call {
	return &Call{
		Function: FnVectorBorrow,
		Args: map[string]Arg{
			ArgVector:   {In: expr.Const(addr, 64), Out: expr.Const(addr, 64)},
			ArgIndex:    {In: index, Out: index},
			ArgValueOut: {In: nil, Out: valueOut},
		},
		Generated: []*expr.Expr{valueOut},
	}
}

// VectorReturn returns a vector_return call on the vector at addr.
func VectorReturn(addr uint64, index, value *expr.Expr) *Call {
	return &Call{
		Function: FnVectorReturn,
		Args: map[string]Arg{
			ArgVector: {In: expr.Const(addr, 64), Out: expr.Const(addr, 64)},
			ArgIndex:  {In: index, Out: index},
			ArgValue:  {In: value, Out: value},
		},
	}
}

// DchainCall returns a call to one of the dchain functions on the chain at addr.
// indexOut is only used by dchain_allocate_new_index.
func DchainCall(fn string, addr uint64, index, now *expr.Expr) *Call {
	c := &Call{
		Function: fn,
		Args: map[string]Arg{
			ArgChain: {In: expr.Const(addr, 64), Out: expr.Const(addr, 64)},
		},
	}
	if fn == FnDchainAllocate {
		c.Args[ArgIndexOut] = Arg{Out: index}
		c.Generated = []*expr.Expr{index}
	} else if index != nil {
		c.Args[ArgIndex] = Arg{In: index, Out: index}
	}
	if now != nil {
		c.Args[ArgTime] = Arg{In: now, Out: now}
	}
	return c
}

// SketchCall returns a call to one of the sketch functions on the sketch at addr.
func SketchCall(fn string, addr uint64, key *expr.Expr) *Call {
	c := &Call{
		Function: fn,
		Args: map[string]Arg{
			ArgSketch: {In: expr.Const(addr, 64), Out: expr.Const(addr, 64)},
		},
	}
	if key != nil {
		c.Args[ArgKey] = Arg{In: key, Out: key}
	}
	return c
}

// PacketBorrow returns a packet_borrow_next_chunk call producing chunk.
func PacketBorrow(length int, chunk *expr.Expr) *Call {
	return &Call{
		Function: FnPacketBorrow,
		Args: map[string]Arg{
			ArgLength: {In: expr.Const(uint64(length), 32), Out: expr.Const(uint64(length), 32)},
			ArgChunk:  {Out: chunk},
		},
		Generated: []*expr.Expr{chunk},
	}
}

// PacketReturn returns a packet_return_chunk call writing chunk back.
func PacketReturn(chunk *expr.Expr) *Call {
	return &Call{
		Function: FnPacketReturn,
		Args: map[string]Arg{
			ArgChunk: {In: chunk, Out: chunk},
		},
	}
}

// ChecksumUpdate returns a checksum update call over the given headers.
func ChecksumUpdate(ipHeader, l4Header *expr.Expr) *Call {
	return &Call{
		Function: FnChecksumUpdate,
		Args: map[string]Arg{
			ArgIPHeader: {In: ipHeader, Out: ipHeader},
			ArgL4Header: {In: l4Header, Out: l4Header},
		},
	}
}

// CurrentTime returns a current_time call generating now.
func CurrentTime(now *expr.Expr) *Call {
	return &Call{
		Function:  FnCurrentTime,
		Generated: []*expr.Expr{now},
		Ret:       now,
	}
}
