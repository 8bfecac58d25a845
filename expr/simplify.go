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

// simplify performs constant folding and a handful of local rewrites.
func simplify(e *Expr) *Expr {
	if len(e.Args) == 0 {
		return e
	}
	args := make([]*Expr, len(e.Args))
	changed := false
	for i, a := range e.Args {
		args[i] = simplify(a)
		if args[i] != a {
			changed = true
		}
	}
	if changed {
		c := *e
		c.Args = args
		e = &c
	}

	switch e.Op {
	case OpNot:
		x := e.Args[0]
		if x.Op == OpNot {
			return x.Args[0]
		}
		if x.Op == OpConst {
			return Const(^x.Value, e.Bits)
		}
		if x.IsBool() && x.Op.IsComparison() {
			return binary(negate(x.Op), 1, x.Args[0], x.Args[1])
		}
		return e
	case OpExtract:
		return simplifyExtract(e)
	case OpConcat:
		return simplifyConcat(e)
	}

	if len(e.Args) != 2 {
		return e
	}
	x, y := e.Args[0], e.Args[1]
	if x.Op == OpConst && y.Op == OpConst {
		if v, ok := fold(e.Op, x.Value, y.Value, e.Bits); ok {
			return Const(v, e.Bits)
		}
	}
	switch e.Op {
	case OpEq:
		if sameTree(x, y) {
			return Bool(true)
		}
	case OpNe:
		if sameTree(x, y) {
			return Bool(false)
		}
	case OpAdd, OpOr, OpXor:
		if isZero(y) {
			return x
		}
		if isZero(x) {
			return y
		}
	case OpSub, OpShl, OpLShr:
		if isZero(y) {
			return x
		}
	case OpAnd:
		if isZero(x) || isZero(y) {
			return Const(0, e.Bits)
		}
		if e.Bits == 1 && isOne(x) {
			return y
		}
		if e.Bits == 1 && isOne(y) {
			return x
		}
	case OpMul:
		if isOne(y) {
			return x
		}
		if isOne(x) {
			return y
		}
	}
	return e
}

func simplifyExtract(e *Expr) *Expr {
	x := e.Args[0]
	if e.Offset == 0 && e.Bits == x.Bits {
		return x
	}
	if x.Op == OpConst {
		return Const(x.Value>>uint(e.Offset), e.Bits)
	}
	if x.Op == OpExtract {
		return simplify(Extract(x.Args[0], x.Offset+e.Offset, e.Bits))
	}
	if x.Op == OpConcat {
		// Walk parts from least significant; return the part that fully covers
		// the extracted range.
		lo := 0
		for i := len(x.Args) - 1; i >= 0; i-- {
			p := x.Args[i]
			if e.Offset >= lo && e.Offset+e.Bits <= lo+p.Bits {
				return simplify(Extract(p, e.Offset-lo, e.Bits))
			}
			lo += p.Bits
		}
	}
	return e
}

func simplifyConcat(e *Expr) *Expr {
	if len(e.Args) == 1 {
		return e.Args[0]
	}
	allConst := true
	for _, a := range e.Args {
		if a.Op != OpConst {
			allConst = false
			break
		}
	}
	if allConst && e.Bits <= 64 {
		var v uint64
		for _, a := range e.Args {
			v = v<<uint(a.Bits) | a.Value
		}
		return Const(v, e.Bits)
	}
	// Adjacent extracts of the same source covering it in order collapse back.
	if src, ok := contiguousExtracts(e.Args); ok {
		return src
	}
	return e
}

func contiguousExtracts(parts []*Expr) (*Expr, bool) {
	var src *Expr
	next := 0
	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if p.Op != OpExtract || p.Offset != next {
			return nil, false
		}
		if src == nil {
			src = p.Args[0]
		} else if !sameTree(src, p.Args[0]) {
			return nil, false
		}
		next += p.Bits
	}
	if src == nil || next != src.Bits {
		return nil, false
	}
	return src, true
}

func fold(op Op, x, y uint64, bits int) (uint64, bool) {
	b := func(v bool) uint64 {
		if v {
			return 1
		}
		return 0
	}
	switch op {
	case OpEq:
		return b(x == y), true
	case OpNe:
		return b(x != y), true
	case OpUlt:
		return b(x < y), true
	case OpUle:
		return b(x <= y), true
	case OpUgt:
		return b(x > y), true
	case OpUge:
		return b(x >= y), true
	case OpAnd:
		return x & y, true
	case OpOr:
		return x | y, true
	case OpXor:
		return x ^ y, true
	case OpAdd:
		return truncate(x+y, bits), true
	case OpSub:
		return truncate(x-y, bits), true
	case OpMul:
		return truncate(x*y, bits), true
	case OpUdiv:
		if y == 0 {
			return 0, false
		}
		return x / y, true
	case OpUrem:
		if y == 0 {
			return 0, false
		}
		return x % y, true
	case OpShl:
		return truncate(x<<y, bits), true
	case OpLShr:
		return x >> y, true
	}
	return 0, false
}

func negate(op Op) Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpUlt:
		return OpUge
	case OpUle:
		return OpUgt
	case OpUgt:
		return OpUle
	case OpUge:
		return OpUlt
	}
	return op
}

func isZero(e *Expr) bool { return e.Op == OpConst && e.Value == 0 }
func isOne(e *Expr) bool  { return e.Op == OpConst && e.Value == 1 }

func sameTree(a, b *Expr) bool {
	return a == b || canonical(a).String() == canonical(b).String()
}
