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
	"fmt"

	"github.com/samber/lo"

	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/target"
)

// softwareRule describes an object operation run in software on the
// controller or the host.
type softwareRule struct {
	op   plan.Op
	fn   string
	kind ir.ObjectKind
	impl plan.Impl

	// shared lists the switch implementations whose authoritative or
	// control-plane state the controller may operate on instead.
	shared []plan.Impl
}

var softwareRules = []softwareRule{
	{plan.OpMapGet, ir.FnMapGet, ir.ObjectMap, plan.ImplMap, []plan.Impl{plan.ImplCachedTable}},
	{plan.OpMapPut, ir.FnMapPut, ir.ObjectMap, plan.ImplMap, []plan.Impl{plan.ImplCachedTable}},
	{plan.OpMapErase, ir.FnMapErase, ir.ObjectMap, plan.ImplMap, []plan.Impl{plan.ImplCachedTable}},
	{plan.OpExpireItems, ir.FnExpireMap, ir.ObjectMap, plan.ImplMap, []plan.Impl{plan.ImplCachedTable, plan.ImplTable}},
	{plan.OpVectorRead, ir.FnVectorBorrow, ir.ObjectVector, plan.ImplVector, nil},
	{plan.OpVectorWrite, ir.FnVectorReturn, ir.ObjectVector, plan.ImplVector, nil},
	{plan.OpDchainAllocate, ir.FnDchainAllocate, ir.ObjectDchain, plan.ImplDchain, nil},
	{plan.OpDchainIsAllocated, ir.FnDchainIsAllocated, ir.ObjectDchain, plan.ImplDchain, nil},
	{plan.OpDchainRejuvenate, ir.FnDchainRejuvenate, ir.ObjectDchain, plan.ImplDchain, nil},
	{plan.OpDchainFree, ir.FnDchainFree, ir.ObjectDchain, plan.ImplDchain, nil},
	{plan.OpSketchCompute, ir.FnSketchCompute, ir.ObjectSketch, plan.ImplSketch, nil},
	{plan.OpSketchRefresh, ir.FnSketchRefresh, ir.ObjectSketch, plan.ImplSketch, nil},
	{plan.OpSketchFetch, ir.FnSketchFetch, ir.ObjectSketch, plan.ImplSketch, nil},
	{plan.OpSketchTouch, ir.FnSketchTouch, ir.ObjectSketch, plan.ImplSketch, nil},
	{plan.OpSketchExpire, ir.FnSketchExpire, ir.ObjectSketch, plan.ImplSketch, nil},
}

func softwareGenerators(k target.Kind) []*Generator {
	return lo.Map(softwareRules, func(rule softwareRule, _ int) *Generator {
		return softwareGenerator(k, rule)
	})
}

func softwareGenerator(k target.Kind, rule softwareRule) *Generator {
	shared := rule.shared
	if k != target.Controller {
		shared = nil
	}
	return &Generator{
		Name:   fmt.Sprintf("%v/%v", k, rule.op),
		Target: k,
		Op:     rule.op,
		Match: func(r *Request) bool {
			if !isCall(rule.fn)(r) || unchangedReturn(r) {
				return false
			}
			obj, ok := r.object()
			return ok && obj.Kind == rule.kind
		},
		Check: func(r *Request) *plan.Context {
			obj, _ := r.object()
			ctx, ok := r.own(obj, rule.impl, shared)
			return lo.Ternary(ok, ctx, nil)
		},
		Apply: func(r *Request) []Candidate {
			obj, _ := r.object()
			ctx, ok := r.own(obj, rule.impl, shared)
			if !ok {
				return nil
			}
			p := plan.Payload{Object: obj.Addr, Args: r.Node.Call.Args}
			return []Candidate{r.single(rule.op, p, ctx)}
		},
	}
}

// own returns the context in which the request's target holds obj as impl,
// allocating it on first use.
func (r *Request) own(obj ir.Object, impl plan.Impl, shared []plan.Impl) (*plan.Context, bool) {
	ctx := r.Context
	if d, ok := ctx.Decision(obj.Addr); ok {
		switch {
		case d.Target == r.Target && d.Impl == impl:
			return ctx, true
		case d.Target == target.Switch && lo.Contains(shared, d.Impl):
			if d.Impl == plan.ImplTable {
				return ctx, true
			}
			// The controller keeps the authoritative copy of a cached map.
			return r.allocate(ctx, obj)
		default:
			return nil, false
		}
	}
	ctx, ok := r.allocate(ctx, obj)
	if !ok {
		return nil, false
	}
	ctx, err := ctx.Decide(obj.Addr, plan.Decision{Impl: impl, Target: r.Target, Capacity: obj.Capacity})
	return ctx, err == nil
}

// allocate charges the request's target for the memory of obj.
func (r *Request) allocate(ctx *plan.Context, obj ir.Object) (*plan.Context, bool) {
	next, err := ctx.WithObject(r.Target, obj.Addr, obj.FootprintBytes())
	return next, err == nil
}
