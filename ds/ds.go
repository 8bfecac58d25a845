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

// Package ds defines the concrete data structures a switch pipeline can host
// and the resources each one consumes.
package ds

import (
	"fmt"
	"math/bits"

	"github.com/ajroetker/netsynth/ir"
)

// ID names a data structure instance. IDs are derived from the IR node that
// first required the structure, so re-deriving them is idempotent.
type ID string

// Kind is the data structure variant.
type Kind int

const (
	KindTable Kind = iota
	KindRegister
	KindCachedTable
)

// String returns a human-readable name for the Kind.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "Table"
	case KindRegister:
		return "Register"
	case KindCachedTable:
		return "CachedTable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) prefix() string {
	switch k {
	case KindTable:
		return "table"
	case KindRegister:
		return "reg"
	case KindCachedTable:
		return "cache"
	default:
		return "ds"
	}
}

// DeriveID returns the ID of the kind structure originating at node.
func DeriveID(kind Kind, node ir.ID) ID {
	return ID(fmt.Sprintf("%s_%d", kind.prefix(), node))
}

// Resources is the multi-dimensional demand of a data structure.
type Resources struct {
	SRAMBits   int64
	TCAMBits   int64
	MapRAMBits int64
	XbarBits   int64

	// Keys is the number of match key fields.
	Keys int

	// LogicalTables is the number of logical table IDs consumed.
	LogicalTables int
}

// Add returns the component-wise sum of r and o.
func (r Resources) Add(o Resources) Resources {
	return Resources{
		SRAMBits:      r.SRAMBits + o.SRAMBits,
		TCAMBits:      r.TCAMBits + o.TCAMBits,
		MapRAMBits:    r.MapRAMBits + o.MapRAMBits,
		XbarBits:      r.XbarBits + o.XbarBits,
		Keys:          r.Keys + o.Keys,
		LogicalTables: r.LogicalTables + o.LogicalTables,
	}
}

// DS is a data structure placeable on the switch pipeline.
type DS interface {
	ID() ID
	Kind() Kind

	// Resources returns the total demand of the structure.
	Resources() Resources

	// Capacity returns the number of entries the structure holds.
	Capacity() int

	String() string
}

// Composite structures are placed as an ordered sequence of primitive
// structures, each depending on the previous one.
type Composite interface {
	DS
	Components() []DS
}

// IndexWidth returns the number of bits needed to index capacity entries.
func IndexWidth(capacity int) int {
	if capacity <= 1 {
		return 1
	}
	return bits.Len(uint(capacity - 1))
}

// Table is an exact-match table.
type Table struct {
	TableID ID

	// Keys holds the width in bits of each key field.
	Keys []int

	// Params holds the width in bits of each action parameter.
	Params []int

	Entries int
}

// NewTable returns the table originating at node.
func NewTable(node ir.ID, keys, params []int, capacity int) *Table {
	return &Table{TableID: DeriveID(KindTable, node), Keys: keys, Params: params, Entries: capacity}
}

func (t *Table) ID() ID        { return t.TableID }
func (t *Table) Kind() Kind    { return KindTable }
func (t *Table) Capacity() int { return t.Entries }

// KeyBits returns the total key width.
func (t *Table) KeyBits() int64 {
	var n int64
	for _, k := range t.Keys {
		n += int64(k)
	}
	return n
}

// Resources implements DS. Exact-match entries hold the key and the action
// parameters; the key is fed to the lookup through the crossbar.
func (t *Table) Resources() Resources {
	var params int64
	for _, p := range t.Params {
		params += int64(p)
	}
	return Resources{
		SRAMBits:      int64(t.Entries) * (t.KeyBits() + params),
		XbarBits:      t.KeyBits(),
		Keys:          len(t.Keys),
		LogicalTables: 1,
	}
}

func (t *Table) String() string {
	return fmt.Sprintf("Table{%s keys=%v params=%v capacity=%d}", t.TableID, t.Keys, t.Params, t.Entries)
}

// RegisterAction is an operation a register's stateful ALU performs.
type RegisterAction int

const (
	RegisterRead RegisterAction = iota
	RegisterWrite
	RegisterSwap
)

// String returns a human-readable name for the RegisterAction.
func (a RegisterAction) String() string {
	switch a {
	case RegisterRead:
		return "read"
	case RegisterWrite:
		return "write"
	case RegisterSwap:
		return "swap"
	default:
		return fmt.Sprintf("RegisterAction(%d)", int(a))
	}
}

// Register is a stateful register array indexed by IndexWidth bits. A register
// is atomic: it must fit entirely within one stage.
type Register struct {
	RegisterID ID
	IndexWidth int
	ValueWidth int
	Actions    []RegisterAction
}

// NewRegister returns the register originating at node holding capacity values.
func NewRegister(node ir.ID, capacity, valueWidth int, actions ...RegisterAction) *Register {
	return &Register{
		RegisterID: DeriveID(KindRegister, node),
		IndexWidth: IndexWidth(capacity),
		ValueWidth: valueWidth,
		Actions:    actions,
	}
}

func (r *Register) ID() ID        { return r.RegisterID }
func (r *Register) Kind() Kind    { return KindRegister }
func (r *Register) Capacity() int { return 1 << uint(r.IndexWidth) }

// Resources implements DS. Register cells live in SRAM and are mirrored in map
// RAM for the stateful ALU; the index travels through the crossbar.
func (r *Register) Resources() Resources {
	cells := int64(r.Capacity()) * int64(r.ValueWidth)
	return Resources{
		SRAMBits:      cells,
		MapRAMBits:    cells,
		XbarBits:      int64(r.IndexWidth),
		LogicalTables: 1,
	}
}

func (r *Register) String() string {
	return fmt.Sprintf("Register{%s index=%d value=%d actions=%v}", r.RegisterID, r.IndexWidth, r.ValueWidth, r.Actions)
}

// CachedTable is a bounded first-come-first-served cache in front of a map
// kept authoritative on the controller. It is built from an index table, key
// registers to detect collisions and an expiration register.
type CachedTable struct {
	CacheID   ID
	Entries   int
	KeyBits   int
	ValueBits int
}

// NewCachedTable returns the cache originating at node.
func NewCachedTable(node ir.ID, capacity, keyBits, valueBits int) *CachedTable {
	return &CachedTable{CacheID: DeriveID(KindCachedTable, node), Entries: capacity, KeyBits: keyBits, ValueBits: valueBits}
}

func (c *CachedTable) ID() ID        { return c.CacheID }
func (c *CachedTable) Kind() Kind    { return KindCachedTable }
func (c *CachedTable) Capacity() int { return c.Entries }

// registerWidth is the widest value a single stateful ALU handles.
const registerWidth = 32

// Components implements Composite.
func (c *CachedTable) Components() []DS {
	idx := IndexWidth(c.Entries)
	out := []DS{
		&Table{TableID: c.CacheID + "_table", Keys: []int{c.KeyBits}, Params: []int{idx}, Entries: c.Entries},
	}
	for i, remaining := 0, c.KeyBits; remaining > 0; i++ {
		w := min(remaining, registerWidth)
		out = append(out, &Register{
			RegisterID: ID(fmt.Sprintf("%s_key%d", c.CacheID, i)),
			IndexWidth: idx,
			ValueWidth: w,
			Actions:    []RegisterAction{RegisterRead, RegisterWrite},
		})
		remaining -= w
	}
	out = append(out, &Register{
		RegisterID: c.CacheID + "_expiry",
		IndexWidth: idx,
		ValueWidth: registerWidth,
		Actions:    []RegisterAction{RegisterRead, RegisterWrite, RegisterSwap},
	})
	return out
}

// Resources implements DS.
func (c *CachedTable) Resources() Resources {
	var r Resources
	for _, d := range c.Components() {
		r = r.Add(d.Resources())
	}
	return r
}

func (c *CachedTable) String() string {
	return fmt.Sprintf("CachedTable{%s capacity=%d key=%d value=%d}", c.CacheID, c.Entries, c.KeyBits, c.ValueBits)
}
