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

// Package profiler estimates the share of traffic reaching a point of the
// IR. Profiles are synthetic: branch probabilities and whole-path fractions
// are supplied in code, everything else defaults to an even split.
package profiler

import (
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
)

// Default probabilities used when a condition has no recorded profile.
const (
	DefaultBranchProbability = 0.5
	DefaultCacheHitRate      = 0.95
)

// Profiler answers traffic fraction queries. The zero value is not usable;
// construct one with New. A Profiler is immutable once built and safe for
// concurrent use.
type Profiler struct {
	defaultProb float64
	hitRate     float64
	branches    map[uint64]float64
	paths       map[uint64]float64
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithBranch records the probability that cond evaluates to true.
func WithBranch(cond *expr.Expr, pTrue float64) Option {
	return func(p *Profiler) {
		p.branches[xxhash.Sum64String(cond.String())] = clamp(pTrue)
	}
}

// WithPath records the exact fraction of traffic following path.
func WithPath(path []ir.Constraint, fraction float64) Option {
	return func(p *Profiler) {
		p.paths[pathKey(path)] = clamp(fraction)
	}
}

// WithDefault sets the probability used for unprofiled conditions.
func WithDefault(pTrue float64) Option {
	return func(p *Profiler) { p.defaultProb = clamp(pTrue) }
}

// WithCacheHitRate sets the probability that cache hit predicates hold.
func WithCacheHitRate(rate float64) Option {
	return func(p *Profiler) { p.hitRate = clamp(rate) }
}

// New returns a Profiler configured by opts.
func New(opts ...Option) *Profiler {
	p := &Profiler{
		defaultProb: DefaultBranchProbability,
		hitRate:     DefaultCacheHitRate,
		branches:    map[uint64]float64{},
		paths:       map[uint64]float64{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fraction returns the share of traffic, in [0,1], that satisfies every
// constraint. An exact path profile wins over per-branch probabilities.
func (p *Profiler) Fraction(constraints []ir.Constraint) float64 {
	if len(constraints) == 0 {
		return 1
	}
	if f, ok := p.paths[pathKey(constraints)]; ok {
		return f
	}
	f := 1.0
	for _, c := range constraints {
		pt := p.branchProbability(c.Cond)
		if !c.Taken {
			pt = 1 - pt
		}
		f *= pt
	}
	return clamp(f)
}

// Permille returns Fraction scaled to an integer in [0,1000].
func (p *Profiler) Permille(constraints []ir.Constraint) int64 {
	return int64(math.Round(p.Fraction(constraints) * 1000))
}

func (p *Profiler) branchProbability(cond *expr.Expr) float64 {
	if pt, ok := p.branches[xxhash.Sum64String(cond.String())]; ok {
		return pt
	}
	if cond.Op == expr.OpSymbol && strings.HasPrefix(cond.Name, ir.CacheHitPrefix) {
		return p.hitRate
	}
	return p.defaultProb
}

func pathKey(path []ir.Constraint) uint64 {
	d := xxhash.New()
	for _, c := range path {
		_, _ = d.WriteString(c.Cond.String())
		if c.Taken {
			_, _ = d.WriteString("\x00T")
		} else {
			_, _ = d.WriteString("\x00F")
		}
	}
	return d.Sum64()
}

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
