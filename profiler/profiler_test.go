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

package profiler

import (
	"math"
	"testing"

	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFraction(t *testing.T) {
	a := expr.Eq(expr.Sym("proto", 8), expr.Const(6, 8))
	b := expr.Ult(expr.Sym("port", 16), expr.Const(1024, 16))
	hit := expr.Sym(ir.CacheHitSymbol(9), 1)

	tests := []struct {
		name string
		prof *Profiler
		path []ir.Constraint
		want float64
	}{
		{"root", New(), nil, 1},
		{"default split", New(), []ir.Constraint{{Cond: a, Taken: true}}, 0.5},
		{"two defaults", New(), []ir.Constraint{{Cond: a, Taken: true}, {Cond: b, Taken: false}}, 0.25},
		{"branch profile", New(WithBranch(a, 0.8)), []ir.Constraint{{Cond: a, Taken: false}}, 0.2},
		{
			"branch profile product",
			New(WithBranch(a, 0.8), WithBranch(b, 0.25)),
			[]ir.Constraint{{Cond: a, Taken: true}, {Cond: b, Taken: true}},
			0.2,
		},
		{
			"exact path wins",
			New(WithBranch(a, 0.8), WithPath([]ir.Constraint{{Cond: a, Taken: true}}, 0.3)),
			[]ir.Constraint{{Cond: a, Taken: true}},
			0.3,
		},
		{"cache miss", New(), []ir.Constraint{{Cond: hit, Taken: false}}, 1 - DefaultCacheHitRate},
		{"cache hit rate", New(WithCacheHitRate(0.5)), []ir.Constraint{{Cond: hit, Taken: true}}, 0.5},
		{"custom default", New(WithDefault(0.9)), []ir.Constraint{{Cond: b, Taken: true}}, 0.9},
		{"clamped", New(WithBranch(a, 7)), []ir.Constraint{{Cond: a, Taken: true}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prof.Fraction(tt.path); !approx(got, tt.want) {
				t.Errorf("Fraction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPathPolarityMatters(t *testing.T) {
	a := expr.Sym("flag", 1)
	p := New(WithPath([]ir.Constraint{{Cond: a, Taken: true}}, 0.9))
	if got := p.Fraction([]ir.Constraint{{Cond: a, Taken: false}}); !approx(got, 0.5) {
		t.Errorf("Fraction(!flag) = %v, want 0.5", got)
	}
}

func TestPermille(t *testing.T) {
	p := New(WithBranch(expr.Sym("x", 1), 0.1234))
	if got := p.Permille([]ir.Constraint{{Cond: expr.Sym("x", 1), Taken: true}}); got != 123 {
		t.Errorf("Permille() = %d, want 123", got)
	}
}
