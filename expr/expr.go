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

// Package expr provides the symbolic expressions carried by the IR and the
// narrow "solver toolbox" interface the synthesis core depends on.
//
// The core never inspects solver internals: it only asks a Toolbox whether two
// expressions are equal, whether an expression folds to a constant, which
// symbols it reads and which object address a constant denotes. Simple is a
// structural Toolbox good enough for front ends that already hand over
// simplified expressions, and for tests.
package expr

import (
	"fmt"
	"strings"
)

// Op identifies the operator at the root of an Expr.
type Op int

const (
	// OpConst is a constant of Bits width holding Value.
	OpConst Op = iota

	// OpSymbol is a free symbol identified by Name.
	OpSymbol

	// Comparisons produce 1-bit results.
	OpEq
	OpNe
	OpUlt
	OpUle
	OpUgt
	OpUge

	// Bitwise and boolean operators.
	OpAnd
	OpOr
	OpXor
	OpNot

	// Arithmetic operators.
	OpAdd
	OpSub
	OpMul
	OpUdiv
	OpUrem
	OpShl
	OpLShr

	// OpConcat joins Args most-significant first.
	OpConcat

	// OpExtract selects Bits bits of Args[0] starting at bit Offset.
	OpExtract
)

var opNames = map[Op]string{
	OpConst:   "const",
	OpSymbol:  "sym",
	OpEq:      "==",
	OpNe:      "!=",
	OpUlt:     "<",
	OpUle:     "<=",
	OpUgt:     ">",
	OpUge:     ">=",
	OpAnd:     "&",
	OpOr:      "|",
	OpXor:     "^",
	OpNot:     "!",
	OpAdd:     "+",
	OpSub:     "-",
	OpMul:     "*",
	OpUdiv:    "/",
	OpUrem:    "%",
	OpShl:     "<<",
	OpLShr:    ">>",
	OpConcat:  "concat",
	OpExtract: "extract",
}

// String returns the operator spelling.
func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// IsComparison reports whether o yields a 1-bit truth value from two operands.
func (o Op) IsComparison() bool {
	switch o {
	case OpEq, OpNe, OpUlt, OpUle, OpUgt, OpUge:
		return true
	}
	return false
}

// IsCommutative reports whether operand order is irrelevant for o.
func (o Op) IsCommutative() bool {
	switch o {
	case OpEq, OpNe, OpAnd, OpOr, OpXor, OpAdd, OpMul:
		return true
	}
	return false
}

// Expr is an immutable symbolic expression tree. Expressions are shared
// freely between IR snapshots and execution plans; nothing may modify an Expr
// after construction.
type Expr struct {
	Op     Op
	Bits   int
	Value  uint64
	Name   string
	Offset int
	Args   []*Expr
}

// Const returns a constant of the given width. Value is truncated to bits.
func Const(value uint64, bits int) *Expr {
	return &Expr{Op: OpConst, Bits: bits, Value: truncate(value, bits)}
}

// Bool returns a 1-bit constant.
func Bool(v bool) *Expr {
	if v {
		return Const(1, 1)
	}
	return Const(0, 1)
}

// Sym returns a free symbol.
func Sym(name string, bits int) *Expr {
	return &Expr{Op: OpSymbol, Bits: bits, Name: name}
}

func binary(op Op, bits int, x, y *Expr) *Expr {
	return &Expr{Op: op, Bits: bits, Args: []*Expr{x, y}}
}

func Eq(x, y *Expr) *Expr  { return binary(OpEq, 1, x, y) }
func Ne(x, y *Expr) *Expr  { return binary(OpNe, 1, x, y) }
func Ult(x, y *Expr) *Expr { return binary(OpUlt, 1, x, y) }
func Ule(x, y *Expr) *Expr { return binary(OpUle, 1, x, y) }
func Ugt(x, y *Expr) *Expr { return binary(OpUgt, 1, x, y) }
func Uge(x, y *Expr) *Expr { return binary(OpUge, 1, x, y) }

func And(x, y *Expr) *Expr  { return binary(OpAnd, x.Bits, x, y) }
func Or(x, y *Expr) *Expr   { return binary(OpOr, x.Bits, x, y) }
func Xor(x, y *Expr) *Expr  { return binary(OpXor, x.Bits, x, y) }
func Add(x, y *Expr) *Expr  { return binary(OpAdd, x.Bits, x, y) }
func Sub(x, y *Expr) *Expr  { return binary(OpSub, x.Bits, x, y) }
func Mul(x, y *Expr) *Expr  { return binary(OpMul, x.Bits, x, y) }
func Udiv(x, y *Expr) *Expr { return binary(OpUdiv, x.Bits, x, y) }
func Urem(x, y *Expr) *Expr { return binary(OpUrem, x.Bits, x, y) }
func Shl(x, y *Expr) *Expr  { return binary(OpShl, x.Bits, x, y) }
func LShr(x, y *Expr) *Expr { return binary(OpLShr, x.Bits, x, y) }

// Not returns the bitwise complement of x (logical negation for 1-bit x).
func Not(x *Expr) *Expr {
	return &Expr{Op: OpNot, Bits: x.Bits, Args: []*Expr{x}}
}

// Concat joins parts, the first part being the most significant.
func Concat(parts ...*Expr) *Expr {
	bits := 0
	for _, p := range parts {
		bits += p.Bits
	}
	return &Expr{Op: OpConcat, Bits: bits, Args: parts}
}

// Extract selects bits [offset, offset+bits) of x, bit 0 being the least significant.
func Extract(x *Expr, offset, bits int) *Expr {
	return &Expr{Op: OpExtract, Bits: bits, Offset: offset, Args: []*Expr{x}}
}

// IsConst reports whether e is a literal constant.
func (e *Expr) IsConst() bool {
	return e != nil && e.Op == OpConst
}

// IsBool reports whether e is 1 bit wide.
func (e *Expr) IsBool() bool {
	return e != nil && e.Bits == 1
}

// Walk visits e and all its sub-expressions in pre-order. Returning false
// from fn prunes the sub-expressions of the visited node.
func (e *Expr) Walk(fn func(*Expr) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, a := range e.Args {
		a.Walk(fn)
	}
}

// String renders e in a compact prefix-free infix notation.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	e.format(&sb)
	return sb.String()
}

func (e *Expr) format(sb *strings.Builder) {
	switch {
	case e.Op == OpConst:
		fmt.Fprintf(sb, "%d:w%d", e.Value, e.Bits)
	case e.Op == OpSymbol:
		sb.WriteString(e.Name)
	case e.Op == OpNot:
		sb.WriteString("!(")
		e.Args[0].format(sb)
		sb.WriteString(")")
	case e.Op == OpExtract:
		sb.WriteString("extract(")
		e.Args[0].format(sb)
		fmt.Fprintf(sb, ", %d, %d)", e.Offset, e.Bits)
	case e.Op == OpConcat:
		sb.WriteString("concat(")
		for i, a := range e.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.format(sb)
		}
		sb.WriteString(")")
	default:
		sb.WriteString("(")
		e.Args[0].format(sb)
		fmt.Fprintf(sb, " %s ", e.Op)
		e.Args[1].format(sb)
		sb.WriteString(")")
	}
}

func truncate(v uint64, bits int) uint64 {
	if bits <= 0 || bits >= 64 {
		return v
	}
	return v & (1<<uint(bits) - 1)
}
