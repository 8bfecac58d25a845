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

package expr

import (
	"slices"
	"sort"
)

// Toolbox is the set of symbolic primitives the synthesis core relies on.
// Implementations must be safe for concurrent use: generators call into the
// toolbox from worker goroutines.
type Toolbox interface {
	// Equal reports whether a and b always evaluate to the same value.
	Equal(a, b *Expr) bool

	// Constant evaluates e to a constant when it does not depend on symbols.
	Constant(e *Expr) (uint64, bool)

	// Fresh returns a new symbol. Callers pick names unique within one IR.
	Fresh(name string, bits int) *Expr

	// Simplify returns an equivalent, usually smaller, expression.
	Simplify(e *Expr) *Expr

	// SwapEndianness reverses the byte order of e (network <-> host order).
	SwapEndianness(e *Expr) *Expr

	// Symbols returns the sorted set of symbol names e reads.
	Symbols(e *Expr) []string

	// Address interprets a constant expression as an opaque object address.
	Address(e *Expr) (uint64, bool)
}

// Simple is a structural Toolbox: equality is decided on simplified,
// canonically ordered trees. It never calls out to a solver, so two
// expressions that are only equal under path constraints compare unequal.
type Simple struct{}

var _ Toolbox = Simple{}

// Equal implements Toolbox.
func (Simple) Equal(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return canonical(simplify(a)).String() == canonical(simplify(b)).String()
}

// Constant implements Toolbox.
func (Simple) Constant(e *Expr) (uint64, bool) {
	if e == nil {
		return 0, false
	}
	s := simplify(e)
	if s.Op == OpConst {
		return s.Value, true
	}
	return 0, false
}

// Fresh implements Toolbox.
func (Simple) Fresh(name string, bits int) *Expr {
	return Sym(name, bits)
}

// Simplify implements Toolbox.
func (Simple) Simplify(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	return simplify(e)
}

// SwapEndianness implements Toolbox. Expressions whose width is not a whole
// number of bytes are returned unchanged.
func (Simple) SwapEndianness(e *Expr) *Expr {
	if e == nil || e.Bits%8 != 0 || e.Bits <= 8 {
		return e
	}
	n := e.Bits / 8
	parts := make([]*Expr, n)
	for i := range n {
		// Least significant byte becomes the most significant part.
		parts[i] = Extract(e, i*8, 8)
	}
	return simplify(Concat(parts...))
}

// Symbols implements Toolbox.
func (Simple) Symbols(e *Expr) []string {
	seen := map[string]bool{}
	e.Walk(func(x *Expr) bool {
		if x.Op == OpSymbol {
			seen[x.Name] = true
		}
		return true
	})
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Address implements Toolbox.
func (s Simple) Address(e *Expr) (uint64, bool) {
	return s.Constant(e)
}

// canonical orders the operands of commutative operators so that structural
// comparison does not depend on operand order.
func canonical(e *Expr) *Expr {
	if len(e.Args) == 0 {
		return e
	}
	args := make([]*Expr, len(e.Args))
	for i, a := range e.Args {
		args[i] = canonical(a)
	}
	if e.Op.IsCommutative() {
		slices.SortFunc(args, func(x, y *Expr) int {
			xs, ys := x.String(), y.String()
			switch {
			case xs < ys:
				return -1
			case xs > ys:
				return 1
			}
			return 0
		})
	}
	c := *e
	c.Args = args
	return &c
}
