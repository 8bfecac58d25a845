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

	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/target"
)

func controllerGenerators() []*Generator {
	gens := softwareGenerators(target.Controller)
	return append(gens,
		controlPlaneGenerator(plan.OpTableRead, ir.FnMapGet, plan.ImplTable),
		controlPlaneGenerator(plan.OpTableUpdate, ir.FnMapPut, plan.ImplTable),
		controlPlaneGenerator(plan.OpTableDelete, ir.FnMapErase, plan.ImplTable),
		controlPlaneGenerator(plan.OpRegisterRead, ir.FnVectorBorrow, plan.ImplRegister),
		controlPlaneGenerator(plan.OpRegisterUpdate, ir.FnVectorReturn, plan.ImplRegister),
	)
}

// controlPlaneGenerator returns the generator accessing a switch data
// structure from the controller through the control plane API.
func controlPlaneGenerator(op plan.Op, fn string, impl plan.Impl) *Generator {
	decided := func(r *Request) (plan.Decision, uint64, bool) {
		addr, ok := ir.ObjectOf(r.Env.Toolbox, r.Node)
		if !ok {
			return plan.Decision{}, 0, false
		}
		d, ok := r.Context.Decision(addr)
		return d, addr, ok && d.Target == target.Switch && d.Impl == impl
	}
	return &Generator{
		Name:   "controller/" + op.String(),
		Target: target.Controller,
		Op:     op,
		Match: func(r *Request) bool {
			return isCall(fn)(r) && !unchangedReturn(r)
		},
		Check: func(r *Request) *plan.Context {
			_, _, ok := decided(r)
			return lo.Ternary(ok, r.Context, nil)
		},
		Apply: func(r *Request) []Candidate {
			d, addr, ok := decided(r)
			if !ok {
				return nil
			}
			c := r.Node.Call
			p := plan.Payload{DS: d.DS, Object: addr}
			switch fn {
			case ir.FnVectorBorrow:
				p.Keys = []*expr.Expr{c.In(ir.ArgIndex)}
				p.Values = []*expr.Expr{c.Out(ir.ArgValueOut)}
			case ir.FnVectorReturn:
				p.Keys = []*expr.Expr{c.In(ir.ArgIndex)}
				p.Values = []*expr.Expr{c.In(ir.ArgValue)}
			case ir.FnMapGet:
				p.Keys = []*expr.Expr{c.In(ir.ArgKey)}
				p.Values = []*expr.Expr{c.Out(ir.ArgValueOut)}
			case ir.FnMapPut:
				p.Keys = []*expr.Expr{c.In(ir.ArgKey)}
				p.Values = []*expr.Expr{c.In(ir.ArgValue)}
			default:
				p.Keys = []*expr.Expr{c.In(ir.ArgKey)}
			}
			return []Candidate{r.single(op, p, r.Context)}
		},
	}
}
