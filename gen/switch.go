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

package gen

import (
	"github.com/samber/lo"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/target"
)

func switchGenerators() []*Generator {
	return []*Generator{
		{
			Name:   "switch/TableLookup",
			Target: target.Switch,
			Op:     plan.OpTableLookup,
			Match:  isCall(ir.FnMapGet),
			Check: func(r *Request) *plan.Context {
				ctx, _, ok := r.table()
				return lo.Ternary(ok, ctx, nil)
			},
			Apply: func(r *Request) []Candidate {
				ctx, d, ok := r.table()
				if !ok {
					return nil
				}
				c := r.Node.Call
				p := plan.Payload{
					DS:     d.ID(),
					Object: d.object,
					Keys:   []*expr.Expr{c.In(ir.ArgKey)},
					Values: []*expr.Expr{c.Out(ir.ArgValueOut)},
				}
				return []Candidate{r.single(plan.OpTableLookup, p, ctx)}
			},
		},
		registerGenerator(plan.OpRegisterRead, ir.FnVectorBorrow),
		registerGenerator(plan.OpRegisterWrite, ir.FnVectorReturn),
		cacheGenerator(plan.OpCachedTableRead, ir.FnMapGet),
		cacheGenerator(plan.OpCachedTableWrite, ir.FnMapPut),
		cacheGenerator(plan.OpCachedTableDelete, ir.FnMapErase),
		{
			Name:   "switch/SendToController",
			Target: target.Switch,
			Op:     plan.OpSendToController,
			Match: func(r *Request) bool {
				return r.Leaf.Target == target.Switch && r.Env.Targets.Has(target.Controller)
			},
			Check: func(r *Request) *plan.Context {
				ctx, ok := punt(r, r.Node.ID)
				return lo.Ternary(ok, ctx, nil)
			},
			Apply: func(r *Request) []Candidate {
				ctx, ok := punt(r, r.Node.ID)
				if !ok {
					return nil
				}
				m := plan.NewModule(target.Switch, plan.OpSendToController, r.Node.ID, plan.Payload{})
				step := plan.Step{
					Nodes:   []plan.StepNode{{Module: m, Parent: -1}},
					Leaves:  []plan.StepLeaf{{Node: 0, Next: r.Node.ID, Target: target.Controller}},
					Context: ctx,
				}
				return []Candidate{{EP: r.EP.ProcessLeaf(step), Module: m, Description: describe(m)}}
			},
		},
	}
}

// bound is a data structure together with the object it backs.
type bound struct {
	ds.DS
	object uint64
}

// bind places d for obj on the switch, or reuses the structure obj is
// already bound to, and records the decision.
func (r *Request) bind(obj ir.Object, impl plan.Impl, d ds.DS) (*plan.Context, bound, bool) {
	sc := r.Context.Switch()
	if sc == nil {
		return nil, bound{}, false
	}
	if prev, ok := r.Context.Decision(obj.Addr); ok {
		if prev.Target != target.Switch || prev.Impl != impl {
			return nil, bound{}, false
		}
		inst, ok := sc.Instance(obj.Addr)
		if !ok {
			plan.Invariant("decision for %#x names %s but the switch holds nothing", obj.Addr, prev.DS)
		}
		if inst.Capacity() != d.Capacity() {
			return nil, bound{}, false
		}
		return r.Context, bound{DS: inst, object: obj.Addr}, true
	}
	placed, err := sc.Place(obj.Addr, d, r.switchDeps())
	if err != nil {
		return nil, bound{}, false
	}
	ctx, err := r.Context.WithSwitch(placed).Decide(obj.Addr, plan.Decision{
		Impl:     impl,
		Target:   target.Switch,
		DS:       d.ID(),
		Capacity: d.Capacity(),
	})
	if err != nil {
		return nil, bound{}, false
	}
	return ctx, bound{DS: d, object: obj.Addr}, true
}

func (r *Request) table() (*plan.Context, bound, bool) {
	obj, ok := r.object()
	if !ok || obj.Kind != ir.ObjectMap {
		return nil, bound{}, false
	}
	t := ds.NewTable(r.Node.ID, []int{keyBits(obj, r.Node.Call.In(ir.ArgKey))}, []int{obj.ValueBits}, obj.Capacity)
	return r.bind(obj, plan.ImplTable, t)
}

func keyBits(obj ir.Object, key *expr.Expr) int {
	if obj.KeyBits > 0 {
		return obj.KeyBits
	}
	if key != nil {
		return key.Bits
	}
	return 32
}

func registerGenerator(op plan.Op, fn string) *Generator {
	reg := func(r *Request) (*plan.Context, bound, bool) {
		obj, ok := r.object()
		if !ok || obj.Kind != ir.ObjectVector {
			return nil, bound{}, false
		}
		d := ds.NewRegister(r.Node.ID, obj.Capacity, obj.ValueBits, ds.RegisterRead, ds.RegisterWrite)
		return r.bind(obj, plan.ImplRegister, d)
	}
	return &Generator{
		Name:   "switch/" + op.String(),
		Target: target.Switch,
		Op:     op,
		Match: func(r *Request) bool {
			return isCall(fn)(r) && !unchangedReturn(r)
		},
		Check: func(r *Request) *plan.Context {
			ctx, _, ok := reg(r)
			return lo.Ternary(ok, ctx, nil)
		},
		Apply: func(r *Request) []Candidate {
			ctx, d, ok := reg(r)
			if !ok {
				return nil
			}
			c := r.Node.Call
			p := plan.Payload{DS: d.ID(), Object: d.object, Keys: []*expr.Expr{c.In(ir.ArgIndex)}}
			if op == plan.OpRegisterRead {
				p.Values = []*expr.Expr{c.Out(ir.ArgValueOut)}
			} else {
				p.Values = []*expr.Expr{c.In(ir.ArgValue)}
			}
			return []Candidate{r.single(op, p, ctx)}
		},
	}
}

// cacheCapacities returns the cache sizes worth trying for obj.
func (r *Request) cacheCapacities(obj ir.Object) []int {
	if d, ok := r.Context.Decision(obj.Addr); ok {
		if d.Impl != plan.ImplCachedTable {
			return nil
		}
		return []int{d.Capacity}
	}
	sw, _ := r.Env.Targets.Get(target.Switch)
	return lo.Filter(sw.Switch.CacheCapacities, func(c int, _ int) bool { return c <= obj.Capacity })
}

// cacheGenerator returns the generator implementing fn through a bounded
// cache on the switch backed by an authoritative map on the controller.
//
// The IR is rewritten so the cached operation N is followed by a hit
// predicate B: the hit path continues with N's old successor, the miss path
// re-issues a copy of N, followed by a copy of the rest of the function, on
// the controller.
func cacheGenerator(op plan.Op, fn string) *Generator {
	return &Generator{
		Name:   "switch/" + op.String(),
		Target: target.Switch,
		Op:     op,
		Match: func(r *Request) bool {
			if !isCall(fn)(r) || r.Node.Next == ir.None || !r.Env.Targets.Has(target.Controller) {
				return false
			}
			obj, ok := r.object()
			return ok && obj.Kind == ir.ObjectMap && len(r.Graph().Writers(r.Env.Toolbox, obj.Addr)) > 0
		},
		Check: func(r *Request) *plan.Context {
			obj, _ := r.object()
			for _, capacity := range r.cacheCapacities(obj) {
				ctx, _, ok := r.bind(obj, plan.ImplCachedTable, r.cache(obj, capacity))
				if ok {
					return ctx
				}
			}
			return nil
		},
		Apply: func(r *Request) []Candidate {
			obj, _ := r.object()
			var out []Candidate
			for _, capacity := range r.cacheCapacities(obj) {
				if c, ok := r.cached(op, obj, capacity); ok {
					out = append(out, c)
				}
			}
			return out
		},
	}
}

func (r *Request) cache(obj ir.Object, capacity int) *ds.CachedTable {
	return ds.NewCachedTable(r.Node.ID, capacity, keyBits(obj, r.Node.Call.In(ir.ArgKey)), obj.ValueBits)
}

func (r *Request) cached(op plan.Op, obj ir.Object, capacity int) (Candidate, bool) {
	ctx, d, ok := r.bind(obj, plan.ImplCachedTable, r.cache(obj, capacity))
	if !ok {
		return Candidate{}, false
	}

	n := r.Node
	var hit, miss ir.ID
	g, remap, err := r.Graph().Rewrite(func(rw *ir.Rewriter) error {
		hit = rw.Fresh()
		miss = rw.Fresh()
		missNext, _ := rw.CloneSubtree(n.Next)
		rw.Put(n.WithID(miss).WithNext(missNext))
		rw.Put(ir.NewBranch(hit, expr.Sym(ir.CacheHitSymbol(n.ID), 1), n.Next, miss))
		rw.Put(n.WithNext(hit))
		return nil
	})
	if err != nil {
		return Candidate{}, false
	}
	ctx, ok = puntOn(r, ctx, g, miss)
	if !ok {
		return Candidate{}, false
	}

	c := n.Call
	p := plan.Payload{DS: d.ID(), Object: obj.Addr, Keys: []*expr.Expr{c.In(ir.ArgKey)}, Capacity: capacity}
	switch op {
	case plan.OpCachedTableRead:
		p.Values = []*expr.Expr{c.Out(ir.ArgValueOut)}
	case plan.OpCachedTableWrite:
		p.Values = []*expr.Expr{c.In(ir.ArgValue)}
	}
	m := plan.NewModule(target.Switch, op, n.ID, p)
	branch := g.Node(hit)
	step := plan.Step{
		Nodes: []plan.StepNode{
			{Module: m, Parent: -1},
			{Module: plan.NewModule(target.Switch, plan.OpIf, hit, plan.Payload{Cond: branch.Cond}), Parent: 0},
			{Module: plan.NewModule(target.Switch, plan.OpThen, ir.None, plan.Payload{}), Parent: 1},
			{Module: plan.NewModule(target.Switch, plan.OpElse, ir.None, plan.Payload{}), Parent: 1},
			{Module: plan.NewModule(target.Switch, plan.OpSendToController, miss, plan.Payload{}), Parent: 3},
		},
		Leaves: []plan.StepLeaf{
			{Node: 2, Next: branch.OnTrue, Target: target.Switch},
			{Node: 4, Next: miss, Target: target.Controller},
		},
		Consumed: []ir.ID{n.ID, hit},
		Graph:    g,
		Remap:    remap,
		Context:  ctx,
	}
	return Candidate{EP: r.EP.ProcessLeaf(step), Module: m, Description: describe(m)}, true
}
