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

import "fmt"

// Call vocabulary understood by the synthesis core.
const (
	FnMapGet    = "map_get"
	FnMapPut    = "map_put"
	FnMapErase  = "map_erase"
	FnExpireMap = "expire_items_single_map"

	FnVectorBorrow = "vector_borrow"
	FnVectorReturn = "vector_return"

	FnDchainAllocate    = "dchain_allocate_new_index"
	FnDchainIsAllocated = "dchain_is_index_allocated"
	FnDchainRejuvenate  = "dchain_rejuvenate_index"
	FnDchainFree        = "dchain_free_index"

	FnSketchCompute = "sketch_compute_hashes"
	FnSketchRefresh = "sketch_refresh"
	FnSketchFetch   = "sketch_fetch"
	FnSketchTouch   = "sketch_touch_buckets"
	FnSketchExpire  = "sketch_expire"

	FnChecksumUpdate = "nf_set_rte_ipv4_udptcp_checksum"

	FnPacketBorrow       = "packet_borrow_next_chunk"
	FnPacketReturn       = "packet_return_chunk"
	FnPacketUnreadLength = "packet_get_unread_length"

	FnCurrentTime = "current_time"
)

// Argument names used by the vocabulary.
const (
	ArgMap      = "map"
	ArgVector   = "vector"
	ArgChain    = "chain"
	ArgSketch   = "sketch"
	ArgKey      = "key"
	ArgValue    = "value"
	ArgValueOut = "value_out"
	ArgIndex    = "index"
	ArgIndexOut = "index_out"
	ArgTime     = "time"
	ArgLength   = "length"
	ArgChunk    = "chunk"
	ArgIPHeader = "ip_header"
	ArgL4Header = "l4_header"
)

// FunctionClass groups vocabulary functions by the concern they touch.
type FunctionClass int

const (
	// ClassIrrelevant functions have no observable effect on the data plane.
	ClassIrrelevant FunctionClass = iota

	// ClassPacket functions read or write packet bytes.
	ClassPacket

	// ClassMap functions operate on a key-value map object.
	ClassMap

	// ClassVector functions operate on an indexed vector object.
	ClassVector

	// ClassDchain functions operate on a bounded index allocator.
	ClassDchain

	// ClassSketch functions operate on a count-min sketch.
	ClassSketch

	// ClassChecksum functions recompute packet checksums.
	ClassChecksum

	// ClassUnknown marks functions outside the vocabulary.
	ClassUnknown
)

// FunctionInfo describes a vocabulary function.
type FunctionInfo struct {
	Name  string
	Class FunctionClass

	// ObjectArg names the argument holding the object address, "" if none.
	ObjectArg string

	// Writes is true when the call mutates its object.
	Writes bool
}

// Stateful reports whether the function reads or writes a stateful object.
func (fi FunctionInfo) Stateful() bool {
	return fi.ObjectArg != ""
}

var functions = map[string]FunctionInfo{
	FnMapGet:    {Name: FnMapGet, Class: ClassMap, ObjectArg: ArgMap},
	FnMapPut:    {Name: FnMapPut, Class: ClassMap, ObjectArg: ArgMap, Writes: true},
	FnMapErase:  {Name: FnMapErase, Class: ClassMap, ObjectArg: ArgMap, Writes: true},
	FnExpireMap: {Name: FnExpireMap, Class: ClassMap, ObjectArg: ArgMap, Writes: true},

	FnVectorBorrow: {Name: FnVectorBorrow, Class: ClassVector, ObjectArg: ArgVector},
	FnVectorReturn: {Name: FnVectorReturn, Class: ClassVector, ObjectArg: ArgVector, Writes: true},

	FnDchainAllocate:    {Name: FnDchainAllocate, Class: ClassDchain, ObjectArg: ArgChain, Writes: true},
	FnDchainIsAllocated: {Name: FnDchainIsAllocated, Class: ClassDchain, ObjectArg: ArgChain},
	FnDchainRejuvenate:  {Name: FnDchainRejuvenate, Class: ClassDchain, ObjectArg: ArgChain, Writes: true},
	FnDchainFree:        {Name: FnDchainFree, Class: ClassDchain, ObjectArg: ArgChain, Writes: true},

	FnSketchCompute: {Name: FnSketchCompute, Class: ClassSketch, ObjectArg: ArgSketch},
	FnSketchRefresh: {Name: FnSketchRefresh, Class: ClassSketch, ObjectArg: ArgSketch, Writes: true},
	FnSketchFetch:   {Name: FnSketchFetch, Class: ClassSketch, ObjectArg: ArgSketch},
	FnSketchTouch:   {Name: FnSketchTouch, Class: ClassSketch, ObjectArg: ArgSketch, Writes: true},
	FnSketchExpire:  {Name: FnSketchExpire, Class: ClassSketch, ObjectArg: ArgSketch, Writes: true},

	FnChecksumUpdate: {Name: FnChecksumUpdate, Class: ClassChecksum},

	FnPacketBorrow:       {Name: FnPacketBorrow, Class: ClassPacket},
	FnPacketReturn:       {Name: FnPacketReturn, Class: ClassPacket, Writes: true},
	FnPacketUnreadLength: {Name: FnPacketUnreadLength, Class: ClassIrrelevant},

	FnCurrentTime: {Name: FnCurrentTime, Class: ClassIrrelevant},
}

// LookupFunction returns the vocabulary entry for fn.
func LookupFunction(fn string) (FunctionInfo, bool) {
	fi, ok := functions[fn]
	return fi, ok
}

// ClassifyFunction returns the FunctionClass of fn, ClassUnknown if fn is not
// part of the vocabulary.
func ClassifyFunction(fn string) FunctionClass {
	if fi, ok := functions[fn]; ok {
		return fi.Class
	}
	return ClassUnknown
}

// IsStateful reports whether n is a call touching a stateful object.
func IsStateful(n *Node) bool {
	if n == nil || n.Kind != KindCall {
		return false
	}
	fi, ok := functions[n.Call.Function]
	return ok && fi.Stateful()
}

// CacheHitPrefix prefixes the symbols of predicates introduced by cache
// surgery.
const CacheHitPrefix = "cache_hit_"

// CacheHitSymbol returns the name of the hit predicate of the cache built
// for node id.
func CacheHitSymbol(id ID) string {
	return fmt.Sprintf("%s%d", CacheHitPrefix, id)
}
