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

// Package irfile reads IR fixtures written in YAML. The format describes the
// objects a network function allocates and its nodes by ID:
//
//	objects:
//	  - {addr: 0x1000, name: flows, kind: map, capacity: 1024, key_bits: 32, value_bits: 32}
//	root: 3
//	nodes:
//	  - id: 3
//	    branch: {cond: {op: "==", args: [{sym: proto, bits: 8}, {const: 17, bits: 8}]}, on_true: 2, on_false: 1}
//	  - id: 2
//	    call: {function: map_get, object: 0x1000, key: {sym: flow_key, bits: 32}, value: {sym: v, bits: 32}}
//	    next: 4
//	  - {id: 4, route: {op: fwd, dst: {const: 1, bits: 16}}}
//	  - {id: 1, route: {op: drop}}
//
// Calls name their operands by role (object, key, value, index, now, chunk,
// length, ip, l4) and are expanded with the ir package's call builders.
package irfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
)

// ErrInvalidIR is returned for fixtures that do not describe a valid IR.
var ErrInvalidIR = errors.New("irfile: invalid IR")

// File is the decoded YAML document.
type File struct {
	Objects []Object `yaml:"objects"`
	Root    ir.ID    `yaml:"root"`
	Nodes   []Node   `yaml:"nodes"`
}

// Object describes one stateful object.
type Object struct {
	Addr      uint64 `yaml:"addr"`
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	Capacity  int    `yaml:"capacity"`
	KeyBits   int    `yaml:"key_bits"`
	ValueBits int    `yaml:"value_bits"`
}

// Node describes one IR node. Exactly one of Branch, Call and Route is set.
type Node struct {
	ID     ir.ID   `yaml:"id"`
	Branch *Branch `yaml:"branch"`
	Call   *Call   `yaml:"call"`
	Next   ir.ID   `yaml:"next"`
	Route  *Route  `yaml:"route"`
}

type Branch struct {
	Cond    *Expr `yaml:"cond"`
	OnTrue  ir.ID `yaml:"on_true"`
	OnFalse ir.ID `yaml:"on_false"`
}

type Call struct {
	Function string `yaml:"function"`
	Object   uint64 `yaml:"object"`
	Key      *Expr  `yaml:"key"`
	Value    *Expr  `yaml:"value"`
	Index    *Expr  `yaml:"index"`
	Now      *Expr  `yaml:"now"`
	Chunk    *Expr  `yaml:"chunk"`
	Length   int    `yaml:"length"`
	IP       *Expr  `yaml:"ip"`
	L4       *Expr  `yaml:"l4"`
}

type Route struct {
	Op  string `yaml:"op"`
	Dst *Expr  `yaml:"dst"`
}

// Expr is an expression. Sym and Const select leaves; otherwise Op applies
// to Args. Bits defaults to the width of the first argument, or 1 for
// comparisons.
type Expr struct {
	Op     string  `yaml:"op"`
	Sym    string  `yaml:"sym"`
	Const  *uint64 `yaml:"const"`
	Bits   int     `yaml:"bits"`
	Offset int     `yaml:"offset"`
	Args   []*Expr `yaml:"args"`
}

// Load reads the fixture at path.
func Load(path string) (*ir.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("irfile: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse decodes a fixture and builds its graph.
func Parse(data []byte) (*ir.Graph, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIR, err)
	}
	return f.Graph()
}

// Graph builds the graph described by f.
func (f *File) Graph() (*ir.Graph, error) {
	objects := make([]ir.Object, len(f.Objects))
	for i, o := range f.Objects {
		kind, err := ir.ParseObjectKind(o.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: object %#x: %v", ErrInvalidIR, o.Addr, err)
		}
		objects[i] = ir.Object{
			Addr: o.Addr, Name: o.Name, Kind: kind,
			Capacity: o.Capacity, KeyBits: o.KeyBits, ValueBits: o.ValueBits,
		}
	}
	nodes := make([]*ir.Node, len(f.Nodes))
	for i, n := range f.Nodes {
		node, err := n.build()
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrInvalidIR, n.ID, err)
		}
		nodes[i] = node
	}
	g, err := ir.NewGraph(f.Root, nodes, objects)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIR, err)
	}
	return g, nil
}

func (n Node) build() (*ir.Node, error) {
	set := 0
	for _, ok := range []bool{n.Branch != nil, n.Call != nil, n.Route != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of branch, call or route must be set")
	}
	switch {
	case n.Branch != nil:
		cond, err := n.Branch.Cond.build()
		if err != nil {
			return nil, fmt.Errorf("cond: %w", err)
		}
		return ir.NewBranch(n.ID, cond, n.Branch.OnTrue, n.Branch.OnFalse), nil
	case n.Call != nil:
		call, err := n.Call.build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.Call.Function, err)
		}
		return ir.NewCall(n.ID, call, n.Next), nil
	}
	op, err := parseRoute(n.Route.Op)
	if err != nil {
		return nil, err
	}
	var dst *expr.Expr
	if n.Route.Dst != nil {
		if dst, err = n.Route.Dst.build(); err != nil {
			return nil, fmt.Errorf("dst: %w", err)
		}
	}
	if op == ir.Forward && dst == nil {
		return nil, errors.New("forward without dst")
	}
	return ir.NewRoute(n.ID, op, dst), nil
}

func parseRoute(s string) (ir.RouteOp, error) {
	switch strings.ToLower(s) {
	case "fwd", "forward":
		return ir.Forward, nil
	case "drop":
		return ir.Drop, nil
	case "bcast", "broadcast":
		return ir.Broadcast, nil
	}
	return 0, fmt.Errorf("unknown route %q", s)
}

func (c *Call) build() (*ir.Call, error) {
	operands := map[string]*Expr{
		"key": c.Key, "value": c.Value, "index": c.Index,
		"now": c.Now, "chunk": c.Chunk, "ip": c.IP, "l4": c.L4,
	}
	built := map[string]*expr.Expr{}
	for name, e := range operands {
		if e == nil {
			continue
		}
		v, err := e.build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		built[name] = v
	}
	need := func(names ...string) error {
		for _, name := range names {
			if built[name] == nil {
				return fmt.Errorf("missing %s", name)
			}
		}
		return nil
	}

	var (
		call *ir.Call
		err  error
	)
	switch fn := c.Function; fn {
	case ir.FnMapGet:
		if err = need("key", "value"); err == nil {
			call = ir.MapGet(c.Object, built["key"], built["value"])
		}
	case ir.FnMapPut:
		if err = need("key", "value"); err == nil {
			call = ir.MapPut(c.Object, built["key"], built["value"])
		}
	case ir.FnMapErase:
		if err = need("key"); err == nil {
			call = ir.MapErase(c.Object, built["key"])
		}
	case ir.FnVectorBorrow:
		if err = need("index", "value"); err == nil {
			call = ir.VectorBorrow(c.Object, built["index"], built["value"])
		}
	case ir.FnVectorReturn:
		if err = need("index", "value"); err == nil {
			call = ir.VectorReturn(c.Object, built["index"], built["value"])
		}
	case ir.FnDchainAllocate, ir.FnDchainIsAllocated, ir.FnDchainRejuvenate, ir.FnDchainFree:
		if err = need("index"); err == nil {
			call = ir.DchainCall(fn, c.Object, built["index"], built["now"])
		}
	case ir.FnSketchCompute, ir.FnSketchRefresh, ir.FnSketchFetch, ir.FnSketchTouch, ir.FnSketchExpire:
		call = ir.SketchCall(fn, c.Object, built["key"])
	case ir.FnPacketBorrow:
		if err = need("chunk"); err == nil {
			call = ir.PacketBorrow(c.Length, built["chunk"])
		}
	case ir.FnPacketReturn:
		if err = need("chunk"); err == nil {
			call = ir.PacketReturn(built["chunk"])
		}
	case ir.FnChecksumUpdate:
		if err = need("ip", "l4"); err == nil {
			call = ir.ChecksumUpdate(built["ip"], built["l4"])
		}
	case ir.FnCurrentTime:
		if err = need("now"); err == nil {
			call = ir.CurrentTime(built["now"])
		}
	default:
		return nil, errors.New("unsupported function")
	}
	return call, err
}

var binaries = map[expr.Op]func(x, y *expr.Expr) *expr.Expr{
	expr.OpEq: expr.Eq, expr.OpNe: expr.Ne,
	expr.OpUlt: expr.Ult, expr.OpUle: expr.Ule, expr.OpUgt: expr.Ugt, expr.OpUge: expr.Uge,
	expr.OpAnd: expr.And, expr.OpOr: expr.Or, expr.OpXor: expr.Xor,
	expr.OpAdd: expr.Add, expr.OpSub: expr.Sub, expr.OpMul: expr.Mul,
	expr.OpUdiv: expr.Udiv, expr.OpUrem: expr.Urem,
	expr.OpShl: expr.Shl, expr.OpLShr: expr.LShr,
}

func parseOp(s string) (expr.Op, bool) {
	for op := expr.OpEq; op <= expr.OpExtract; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

func (e *Expr) build() (*expr.Expr, error) {
	if e == nil {
		return nil, errors.New("missing expression")
	}
	switch {
	case e.Sym != "":
		if e.Bits <= 0 {
			return nil, fmt.Errorf("symbol %s without width", e.Sym)
		}
		return expr.Sym(e.Sym, e.Bits), nil
	case e.Const != nil:
		if e.Bits <= 0 {
			return nil, fmt.Errorf("constant %d without width", *e.Const)
		}
		return expr.Const(*e.Const, e.Bits), nil
	}

	op, ok := parseOp(e.Op)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", e.Op)
	}
	args := make([]*expr.Expr, len(e.Args))
	for i, a := range e.Args {
		v, err := a.build()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch op {
	case expr.OpNot:
		if len(args) != 1 {
			return nil, fmt.Errorf("%v takes 1 argument, got %d", op, len(args))
		}
		return expr.Not(args[0]), nil
	case expr.OpConcat:
		if len(args) == 0 {
			return nil, fmt.Errorf("%v without arguments", op)
		}
		return expr.Concat(args...), nil
	case expr.OpExtract:
		if len(args) != 1 || e.Bits <= 0 {
			return nil, fmt.Errorf("%v takes 1 argument and a width", op)
		}
		return expr.Extract(args[0], e.Offset, e.Bits), nil
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%v takes 2 arguments, got %d", op, len(args))
	}
	return binaries[op](args[0], args[1]), nil
}
