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

	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/target"
)

// commonGenerators returns the generators every target family provides.
func commonGenerators(k target.Kind) []*Generator {
	name := func(op plan.Op) string { return fmt.Sprintf("%v/%v", k, op) }
	return []*Generator{
		{
			Name:   name(plan.OpIgnore),
			Target: k,
			Op:     plan.OpIgnore,
			Match: func(r *Request) bool {
				if r.Node.Kind != ir.KindCall {
					return false
				}
				return ir.ClassifyFunction(r.Node.Call.Function) == ir.ClassIrrelevant || unchangedReturn(r)
			},
			Apply: func(r *Request) []Candidate {
				return []Candidate{r.single(plan.OpIgnore, plan.Payload{}, r.Context)}
			},
		},
		{
			Name:   name(plan.OpIf),
			Target: k,
			Op:     plan.OpIf,
			Match: func(r *Request) bool {
				if r.Node.Kind != ir.KindBranch {
					return false
				}
				return k != target.Switch || switchExpressible(r.Node.Cond)
			},
			Apply: func(r *Request) []Candidate {
				return []Candidate{r.ifThenElse(r.Node, r.Context)}
			},
		},
		routeGenerator(k, ir.Forward, plan.OpForward),
		routeGenerator(k, ir.Drop, plan.OpDrop),
		routeGenerator(k, ir.Broadcast, plan.OpBroadcast),
		{
			Name:   name(plan.OpParseHeader),
			Target: k,
			Op:     plan.OpParseHeader,
			Match:  isCall(ir.FnPacketBorrow),
			Apply: func(r *Request) []Candidate {
				c := r.Node.Call
				p := plan.Payload{
					Values: []*expr.Expr{c.Out(ir.ArgChunk)},
					Keys:   []*expr.Expr{c.In(ir.ArgLength)},
				}
				return []Candidate{r.single(plan.OpParseHeader, p, r.Context)}
			},
		},
		{
			Name:   name(plan.OpModifyHeader),
			Target: k,
			Op:     plan.OpModifyHeader,
			Match:  isCall(ir.FnPacketReturn),
			Apply: func(r *Request) []Candidate {
				p := plan.Payload{Values: []*expr.Expr{r.Node.Call.In(ir.ArgChunk)}}
				return []Candidate{r.single(plan.OpModifyHeader, p, r.Context)}
			},
		},
		{
			Name:   name(plan.OpChecksumUpdate),
			Target: k,
			Op:     plan.OpChecksumUpdate,
			Match:  isCall(ir.FnChecksumUpdate),
			Apply: func(r *Request) []Candidate {
				p := plan.Payload{Args: r.Node.Call.Args}
				if t, ok := r.Env.Targets.Get(target.Host); ok && k == target.Host {
					p.Engine = t.Host.Features.ChecksumEngine()
				}
				return []Candidate{r.single(plan.OpChecksumUpdate, p, r.Context)}
			},
		},
	}
}

func routeGenerator(k target.Kind, route ir.RouteOp, op plan.Op) *Generator {
	return &Generator{
		Name:   fmt.Sprintf("%v/%v", k, op),
		Target: k,
		Op:     op,
		Match: func(r *Request) bool {
			return r.Node.Kind == ir.KindRoute && r.Node.Route.Op == route
		},
		Apply: func(r *Request) []Candidate {
			var p plan.Payload
			if route == ir.Forward {
				p.Port = r.Node.Route.Dst
			}
			return []Candidate{r.single(op, p, r.Context)}
		},
	}
}

// ifThenElse builds the If/Then/Else triple for branch b.
func (r *Request) ifThenElse(b *ir.Node, ctx *plan.Context) Candidate {
	m := plan.NewModule(r.Target, plan.OpIf, b.ID, plan.Payload{Cond: b.Cond})
	step := plan.Step{
		Nodes: []plan.StepNode{
			{Module: m, Parent: -1},
			{Module: plan.NewModule(r.Target, plan.OpThen, ir.None, plan.Payload{}), Parent: 0},
			{Module: plan.NewModule(r.Target, plan.OpElse, ir.None, plan.Payload{}), Parent: 0},
		},
		Leaves: []plan.StepLeaf{
			{Node: 1, Next: b.OnTrue, Target: r.Target},
			{Node: 2, Next: b.OnFalse, Target: r.Target},
		},
		Consumed: []ir.ID{b.ID},
		Context:  ctx,
	}
	return Candidate{EP: r.EP.ProcessLeaf(step), Module: m, Description: describe(m)}
}

// switchExpressible reports whether the pipeline's ALUs can evaluate cond.
func switchExpressible(cond *expr.Expr) bool {
	ok := true
	cond.Walk(func(e *expr.Expr) bool {
		switch e.Op {
		case expr.OpMul, expr.OpUdiv, expr.OpUrem:
			ok = false
		}
		return ok
	})
	return ok
}
