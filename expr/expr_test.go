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
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	x = Sym("x", 8)
	y = Sym("y", 8)
	a = Sym("a", 16)
	b = Sym("b", 16)
	w = Sym("w", 32)
)

func TestSimplify(t *testing.T) {
	tests := []struct {
		name string
		in   *Expr
		want string
	}{
		{"add zero", Add(x, Const(0, 8)), "x"},
		{"zero add", Add(Const(0, 8), x), "x"},
		{"mul one", Mul(x, Const(1, 8)), "x"},
		{"and zero", And(x, Const(0, 8)), "0:w8"},
		{"bool and true", And(Sym("p", 1), Const(1, 1)), "p"},
		{"double not", Not(Not(x)), "x"},
		{"not comparison", Not(Eq(x, y)), "(x != y)"},
		{"not ult", Not(Ult(x, y)), "(x >= y)"},
		{"fold eq", Eq(Const(3, 8), Const(3, 8)), "1:w1"},
		{"fold wraps", Add(Const(250, 8), Const(10, 8)), "4:w8"},
		{"div by zero kept", Udiv(Const(5, 8), Const(0, 8)), "(5:w8 / 0:w8)"},
		{"eq self", Eq(Add(x, y), Add(x, y)), "1:w1"},
		{"ne self", Ne(x, x), "0:w1"},
		{"extract whole", Extract(x, 0, 8), "x"},
		{"extract const", Extract(Const(0xABCD, 16), 8, 8), "171:w8"},
		{"extract of extract", Extract(Extract(w, 8, 16), 4, 8), "extract(w, 12, 8)"},
		{"extract low concat part", Extract(Concat(a, b), 0, 16), "b"},
		{"extract high concat part", Extract(Concat(a, b), 16, 16), "a"},
		{"concat consts", Concat(Const(0x12, 8), Const(0x34, 8)), "4660:w16"},
		{"concat of extracts", Concat(Extract(w, 16, 16), Extract(w, 0, 16)), "w"},
		{"misordered extracts kept", Concat(Extract(w, 0, 16), Extract(w, 16, 16)), "concat(extract(w, 0, 16), extract(w, 16, 16))"},
		{"nested fold", Eq(Add(Const(1, 8), Const(2, 8)), Const(3, 8)), "1:w1"},
	}
	tb := Simple{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tb.Simplify(tt.in).String(); got != tt.want {
				t.Errorf("Simplify(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestSimplifyDoesNotMutate(t *testing.T) {
	in := Eq(Add(x, Const(0, 8)), y)
	before := in.String()
	_ = Simple{}.Simplify(in)
	if in.String() != before {
		t.Errorf("Simplify modified its input: %s, was %s", in, before)
	}
}

func TestEqual(t *testing.T) {
	tb := Simple{}
	tests := []struct {
		a, b *Expr
		want bool
	}{
		{Add(x, y), Add(y, x), true},
		{Sub(x, y), Sub(y, x), false},
		{Eq(x, Const(1, 8)), Eq(Const(1, 8), x), true},
		{Add(x, Const(0, 8)), x, true},
		{x, y, false},
		{x, nil, false},
		{nil, nil, true},
	}
	for _, tt := range tests {
		if got := tb.Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestConstantAndAddress(t *testing.T) {
	tb := Simple{}
	if v, ok := tb.Constant(Add(Const(2, 8), Const(3, 8))); !ok || v != 5 {
		t.Errorf("Constant(2+3) = (%d, %v), want (5, true)", v, ok)
	}
	if _, ok := tb.Constant(x); ok {
		t.Error("Constant(x) succeeded")
	}
	if _, ok := tb.Constant(nil); ok {
		t.Error("Constant(nil) succeeded")
	}
	if addr, ok := tb.Address(Const(0x1000, 64)); !ok || addr != 0x1000 {
		t.Errorf("Address() = (%#x, %v), want (0x1000, true)", addr, ok)
	}
}

func TestSwapEndianness(t *testing.T) {
	tb := Simple{}
	if got := tb.SwapEndianness(Const(0x1234, 16)); got.String() != "13330:w16" {
		t.Errorf("SwapEndianness(0x1234) = %v, want 0x3412", got)
	}
	if got := tb.SwapEndianness(x); got != x {
		t.Errorf("SwapEndianness(8-bit) = %v, want unchanged", got)
	}
	odd := Sym("odd", 12)
	if got := tb.SwapEndianness(odd); got != odd {
		t.Errorf("SwapEndianness(12-bit) = %v, want unchanged", got)
	}
	twice := tb.SwapEndianness(tb.SwapEndianness(w))
	if !tb.Equal(twice, w) {
		t.Errorf("swapping twice = %v, want w", twice)
	}
}

func TestSymbols(t *testing.T) {
	got := Simple{}.Symbols(And(Eq(y, x), Eq(x, Const(1, 8))))
	if diff := cmp.Diff([]string{"x", "y"}, got); diff != "" {
		t.Errorf("Symbols() mismatch (-want +got):\n%s", diff)
	}
}

func TestConstTruncates(t *testing.T) {
	if got := Const(0x1ff, 8).Value; got != 0xff {
		t.Errorf("Const(0x1ff, 8).Value = %#x, want 0xff", got)
	}
	if got := Const(1<<63, 64).Value; got != 1<<63 {
		t.Errorf("Const(1<<63, 64).Value = %#x", got)
	}
}

func TestOpPredicates(t *testing.T) {
	for _, op := range []Op{OpEq, OpNe, OpUlt, OpUle, OpUgt, OpUge} {
		if !op.IsComparison() {
			t.Errorf("%v.IsComparison() = false", op)
		}
	}
	if OpAdd.IsComparison() || OpSub.IsCommutative() || !OpXor.IsCommutative() {
		t.Error("arithmetic predicates are wrong")
	}
}
