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

// ObjectKind is the kind of a stateful object allocated at NF initialization.
type ObjectKind int

const (
	ObjectMap ObjectKind = iota
	ObjectVector
	ObjectDchain
	ObjectSketch
)

// String returns a human-readable name for the ObjectKind.
func (k ObjectKind) String() string {
	switch k {
	case ObjectMap:
		return "map"
	case ObjectVector:
		return "vector"
	case ObjectDchain:
		return "dchain"
	case ObjectSketch:
		return "sketch"
	default:
		return fmt.Sprintf("ObjectKind(%d)", int(k))
	}
}

// ParseObjectKind is the inverse of ObjectKind.String.
func ParseObjectKind(s string) (ObjectKind, error) {
	switch s {
	case "map":
		return ObjectMap, nil
	case "vector":
		return ObjectVector, nil
	case "dchain":
		return ObjectDchain, nil
	case "sketch":
		return ObjectSketch, nil
	}
	return 0, fmt.Errorf("unknown object kind %q", s)
}

// Object is a stateful data structure the NF allocates before processing
// packets. Calls reference objects by Addr through their object argument.
type Object struct {
	Addr uint64
	Name string
	Kind ObjectKind

	// Capacity is the number of entries (map/dchain/vector) or the sketch width.
	Capacity int

	// KeyBits is the key width for maps and sketches.
	KeyBits int

	// ValueBits is the value width for maps (usually a 32-bit index) and vectors.
	ValueBits int
}

// FootprintBytes estimates the memory the object needs on a general purpose CPU.
func (o Object) FootprintBytes() int64 {
	entry := int64(o.KeyBits+o.ValueBits+7) / 8
	switch o.Kind {
	case ObjectDchain:
		// Doubly linked index cells plus timestamps.
		entry = 16
	case ObjectSketch:
		// Four rows of 32-bit counters.
		entry = 16
	}
	if entry == 0 {
		entry = 1
	}
	return entry * int64(o.Capacity)
}
