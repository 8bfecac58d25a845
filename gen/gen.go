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

// Package gen holds the module generators: the rules that turn the pending
// IR node of an execution plan into candidate child plans, one per viable
// implementation on a target.
//
// Generators are plain data, in the spirit of a rewrite rule table: a Match
// predicate, an optional cheap Check run during speculation, and an Apply
// function producing the candidates. A generator that cannot implement a node
// under the plan's context returns no candidates; that is never an error.
package gen

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/profiler"
	"github.com/ajroetker/netsynth/target"
)

// Env is the read-only environment shared by every generator invocation.
type Env struct {
	Toolbox  expr.Toolbox
	Profiler *profiler.Profiler
	Targets  target.Set
}

// NewEnv returns an Env using the structural toolbox and the default
// profile when tb or prof are nil.
func NewEnv(targets target.Set, tb expr.Toolbox, prof *profiler.Profiler) *Env {
	if tb == nil {
		tb = expr.Simple{}
	}
	if prof == nil {
		prof = profiler.New()
	}
	return &Env{Toolbox: tb, Profiler: prof, Targets: targets}
}

// Candidate is one child plan proposed by a generator.
type Candidate struct {
	EP *plan.EP

	// Module is the module implementing the pending node.
	Module plan.Module

	Description string
}

// Request carries everything a generator needs to process one pending node.
type Request struct {
	Env  *Env
	EP   *plan.EP
	Node *ir.Node
	Leaf plan.Leaf

	// Target is the generator's target.
	Target target.Kind

	// Context is the plan's context, already charged for entering Target
	// when the leaf was unassigned.
	Context *plan.Context
}

// Graph returns the IR of the plan being extended.
func (r *Request) Graph() *ir.Graph { return r.EP.IR() }

// Generator is one implementation rule for one target.
type Generator struct {
	Name   string
	Target target.Kind
	Op     plan.Op

	// Match is a structural filter on the pending node.
	Match func(r *Request) bool

	// Check, if set, predicts the context after Apply without building any
	// plan; nil rejects the node.
	Check func(r *Request) *plan.Context

	// Apply builds the candidates.
	Apply func(r *Request) []Candidate
}

// Eligible reports whether g may run on leaf: its target must be declared
// and either active on the leaf or the leaf must still be unassigned.
func (g *Generator) Eligible(env *Env, leaf plan.Leaf) bool {
	if !env.Targets.Has(g.Target) {
		return false
	}
	return leaf.Target == g.Target || leaf.Target == target.None
}

func (g *Generator) request(env *Env, ep *plan.EP, n *ir.Node, ctx *plan.Context) (*Request, bool) {
	leaf, ok := ep.ActiveLeaf()
	if !ok || n == nil || !g.Eligible(env, leaf) {
		return nil, false
	}
	r := &Request{Env: env, EP: ep, Node: n, Leaf: leaf, Target: g.Target, Context: ctx}
	if leaf.Target == target.None && g.Target == target.Controller {
		var charged bool
		if r.Context, charged = punt(r, n.ID); !charged {
			return nil, false
		}
	}
	if g.Match != nil && !g.Match(r) {
		return nil, false
	}
	return r, true
}

// Speculate returns the context g would leave behind after implementing n on
// top of ctx, or nil if g cannot implement n.
func (g *Generator) Speculate(env *Env, ep *plan.EP, n *ir.Node, ctx *plan.Context) *plan.Context {
	r, ok := g.request(env, ep, n, ctx)
	if !ok {
		return nil
	}
	if g.Check == nil {
		return r.Context
	}
	return g.Check(r)
}

// Process returns the candidate plans implementing n, the pending node of ep.
func (g *Generator) Process(env *Env, ep *plan.EP, n *ir.Node) []Candidate {
	r, ok := g.request(env, ep, n, ep.Context())
	if !ok {
		return nil
	}
	return g.Apply(r)
}

func (g *Generator) String() string {
	return fmt.Sprintf("%s(%v)", g.Name, g.Target)
}

// Registry is an ordered set of generators. The order is the order in which
// candidates are reported.
type Registry struct {
	generators []*Generator
}

// NewRegistry returns a Registry holding gens in order.
func NewRegistry(gens ...*Generator) *Registry {
	return &Registry{generators: gens}
}

// Default returns the registry of every built-in generator.
func Default() *Registry {
	var gens []*Generator
	for _, k := range []target.Kind{target.Switch, target.Controller, target.Host} {
		gens = append(gens, commonGenerators(k)...)
	}
	gens = append(gens, switchGenerators()...)
	gens = append(gens, controllerGenerators()...)
	gens = append(gens, hostGenerators()...)
	return NewRegistry(gens...)
}

// All returns the generators in order.
func (reg *Registry) All() []*Generator { return reg.generators }

// For returns the generators of target k in order.
func (reg *Registry) For(k target.Kind) []*Generator {
	return lo.Filter(reg.generators, func(g *Generator, _ int) bool { return g.Target == k })
}

// Eligible returns the generators that may run on the active leaf of ep.
func (reg *Registry) Eligible(env *Env, ep *plan.EP) []*Generator {
	leaf, ok := ep.ActiveLeaf()
	if !ok {
		return nil
	}
	return lo.Filter(reg.generators, func(g *Generator, _ int) bool { return g.Eligible(env, leaf) })
}

// Lookup returns the generator named name.
func (reg *Registry) Lookup(name string) (*Generator, bool) {
	return lo.Find(reg.generators, func(g *Generator) bool { return g.Name == name })
}

// Expand runs every eligible generator on the pending node of ep and
// returns the candidates in registry order.
func (reg *Registry) Expand(env *Env, ep *plan.EP) []Candidate {
	n := ep.NextNode()
	if n == nil {
		return nil
	}
	var out []Candidate
	for _, g := range reg.Eligible(env, ep) {
		if g.Speculate(env, ep, n, ep.Context()) == nil {
			continue
		}
		out = append(out, g.Process(env, ep, n)...)
	}
	return out
}

// next returns the IR node following a call, ir.None for other nodes.
func next(n *ir.Node) ir.ID {
	if n.Kind == ir.KindCall {
		return n.Next
	}
	return ir.None
}

// single builds the candidate replacing the pending node with one module.
func (r *Request) single(op plan.Op, p plan.Payload, ctx *plan.Context) Candidate {
	m := plan.NewModule(r.Target, op, r.Node.ID, p)
	step := plan.Step{
		Nodes:    []plan.StepNode{{Module: m, Parent: -1}},
		Leaves:   []plan.StepLeaf{{Node: 0, Next: next(r.Node), Target: r.Target}},
		Consumed: []ir.ID{r.Node.ID},
		Context:  ctx,
	}
	return Candidate{EP: r.EP.ProcessLeaf(step), Module: m, Description: describe(m)}
}

func describe(m plan.Module) string {
	return fmt.Sprintf("%v %v on node %d", m.Target(), m.Op(), m.Source())
}

// object returns the stateful object the pending call operates on.
func (r *Request) object() (ir.Object, bool) {
	addr, ok := ir.ObjectOf(r.Env.Toolbox, r.Node)
	if !ok {
		return ir.Object{}, false
	}
	return r.Graph().Object(addr)
}

// switchDeps returns the switch data structures used on the path from the
// root of the plan to the active leaf.
func (r *Request) switchDeps() []ds.ID {
	var out []ds.ID
	for n := r.Leaf.Node; n != nil; n = n.Parent {
		if n.Module.Target() != target.Switch {
			continue
		}
		if p := plan.PayloadOf(n.Module); p.DS != "" {
			out = append(out, p.DS)
		}
	}
	return lo.Uniq(out)
}

// punt charges the controller for the traffic reaching node id and returns
// the resulting context.
func punt(r *Request, id ir.ID) (*plan.Context, bool) {
	return puntOn(r, r.Context, r.Graph(), id)
}

func puntOn(r *Request, ctx *plan.Context, g *ir.Graph, id ir.ID) (*plan.Context, bool) {
	cc := ctx.Controller()
	if cc == nil {
		return nil, false
	}
	fraction := r.Env.Profiler.Fraction(g.PathConstraints(id))
	next, err := cc.WithTraffic(fraction)
	if err != nil {
		return nil, false
	}
	return ctx.WithController(next), true
}

// isCall matches calls to any of fns.
func isCall(fns ...string) func(r *Request) bool {
	return func(r *Request) bool {
		return r.Node.Kind == ir.KindCall && lo.Contains(fns, r.Node.Call.Function)
	}
}

// unchangedReturn reports whether a vector_return writes back the value the
// matching vector_borrow read.
func unchangedReturn(r *Request) bool {
	n := r.Node
	if !n.IsCall(ir.FnVectorReturn) {
		return false
	}
	tb := r.Env.Toolbox
	addr, ok := ir.ObjectOf(tb, n)
	if !ok {
		return false
	}
	borrow := r.Graph().PrecedingCall(n.ID, ir.FnVectorBorrow, func(b *ir.Node) bool {
		a, ok := ir.ObjectOf(tb, b)
		return ok && a == addr && tb.Equal(b.Call.In(ir.ArgIndex), n.Call.In(ir.ArgIndex))
	})
	return borrow != nil && tb.Equal(borrow.Call.Out(ir.ArgValueOut), n.Call.In(ir.ArgValue))
}
