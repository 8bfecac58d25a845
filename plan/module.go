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

package plan

import (
	"fmt"
	"strings"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/target"
)

// Op is the operation a Module performs. The set is shared by all targets;
// each target family accepts a subset.
type Op int

const (
	OpIgnore Op = iota
	OpIf
	OpThen
	OpElse
	OpForward
	OpDrop
	OpBroadcast
	OpParseHeader
	OpModifyHeader
	OpChecksumUpdate

	// Switch data plane.
	OpTableLookup
	OpRegisterRead
	OpRegisterWrite
	OpCachedTableRead
	OpCachedTableWrite
	OpCachedTableDelete
	OpSendToController

	// Controller and host.
	OpMapGet
	OpMapPut
	OpMapErase
	OpTableRead
	OpTableUpdate
	OpTableDelete
	OpRegisterUpdate
	OpVectorRead
	OpVectorWrite
	OpDchainAllocate
	OpDchainIsAllocated
	OpDchainRejuvenate
	OpDchainFree
	OpSketchCompute
	OpSketchRefresh
	OpSketchFetch
	OpSketchTouch
	OpSketchExpire
	OpExpireItems

	numOps
)

var opNames = [numOps]string{
	OpIgnore:            "Ignore",
	OpIf:                "If",
	OpThen:              "Then",
	OpElse:              "Else",
	OpForward:           "Forward",
	OpDrop:              "Drop",
	OpBroadcast:         "Broadcast",
	OpParseHeader:       "ParseHeader",
	OpModifyHeader:      "ModifyHeader",
	OpChecksumUpdate:    "ChecksumUpdate",
	OpTableLookup:       "TableLookup",
	OpRegisterRead:      "RegisterRead",
	OpRegisterWrite:     "RegisterWrite",
	OpCachedTableRead:   "CachedTableRead",
	OpCachedTableWrite:  "CachedTableWrite",
	OpCachedTableDelete: "CachedTableDelete",
	OpSendToController:  "SendToController",
	OpMapGet:            "MapGet",
	OpMapPut:            "MapPut",
	OpMapErase:          "MapErase",
	OpTableRead:         "TableRead",
	OpTableUpdate:       "TableUpdate",
	OpTableDelete:       "TableDelete",
	OpRegisterUpdate:    "RegisterUpdate",
	OpVectorRead:        "VectorRead",
	OpVectorWrite:       "VectorWrite",
	OpDchainAllocate:    "DchainAllocate",
	OpDchainIsAllocated: "DchainIsAllocated",
	OpDchainRejuvenate:  "DchainRejuvenate",
	OpDchainFree:        "DchainFree",
	OpSketchCompute:     "SketchCompute",
	OpSketchRefresh:     "SketchRefresh",
	OpSketchFetch:       "SketchFetch",
	OpSketchTouch:       "SketchTouch",
	OpSketchExpire:      "SketchExpire",
	OpExpireItems:       "ExpireItems",
}

// String returns a human-readable name for the Op.
func (o Op) String() string {
	if o >= 0 && o < numOps {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// IsRoute reports whether o ends a packet's journey.
func (o Op) IsRoute() bool {
	return o == OpForward || o == OpDrop || o == OpBroadcast
}

// IsObjectOp reports whether o reads or writes a stateful object.
func (o Op) IsObjectOp() bool {
	switch o {
	case OpTableLookup, OpRegisterRead, OpRegisterWrite,
		OpCachedTableRead, OpCachedTableWrite, OpCachedTableDelete,
		OpMapGet, OpMapPut, OpMapErase, OpTableRead, OpTableUpdate, OpTableDelete,
		OpRegisterUpdate, OpVectorRead, OpVectorWrite,
		OpDchainAllocate, OpDchainIsAllocated, OpDchainRejuvenate, OpDchainFree,
		OpSketchCompute, OpSketchRefresh, OpSketchFetch, OpSketchTouch, OpSketchExpire,
		OpExpireItems:
		return true
	}
	return false
}

// Ops accepted by each target family.
var (
	commonOps = []Op{
		OpIgnore, OpIf, OpThen, OpElse, OpForward, OpDrop, OpBroadcast,
		OpParseHeader, OpModifyHeader, OpChecksumUpdate,
	}
	switchOps = []Op{
		OpTableLookup, OpRegisterRead, OpRegisterWrite,
		OpCachedTableRead, OpCachedTableWrite, OpCachedTableDelete, OpSendToController,
	}
	softwareOps = []Op{
		OpMapGet, OpMapPut, OpMapErase, OpVectorRead, OpVectorWrite,
		OpDchainAllocate, OpDchainIsAllocated, OpDchainRejuvenate, OpDchainFree,
		OpSketchCompute, OpSketchRefresh, OpSketchFetch, OpSketchTouch, OpSketchExpire,
		OpExpireItems,
	}
	controlPlaneOps = []Op{
		OpTableRead, OpTableUpdate, OpTableDelete, OpRegisterRead, OpRegisterUpdate,
	}
)

var supported = func() map[target.Kind]map[Op]bool {
	add := func(m map[Op]bool, ops ...[]Op) map[Op]bool {
		for _, set := range ops {
			for _, op := range set {
				m[op] = true
			}
		}
		return m
	}
	return map[target.Kind]map[Op]bool{
		target.Switch:     add(map[Op]bool{}, commonOps, switchOps),
		target.Controller: add(map[Op]bool{}, commonOps, softwareOps, controlPlaneOps),
		target.Host:       add(map[Op]bool{}, commonOps, softwareOps),
	}
}()

// Supports reports whether target family k accepts op.
func Supports(k target.Kind, op Op) bool {
	return supported[k][op]
}

// Payload holds the values a Module is bound to. Which fields are required
// depends on the Op.
type Payload struct {
	// Cond is the branch condition of If.
	Cond *expr.Expr

	// Port is the destination of Forward.
	Port *expr.Expr

	// DS names the switch data structure used.
	DS ds.ID

	// Object is the address of the stateful object touched.
	Object uint64

	Keys   []*expr.Expr
	Values []*expr.Expr

	// Args are the call arguments of a software operation.
	Args map[string]ir.Arg

	// Capacity is the number of entries of a sized implementation.
	Capacity int

	// Engine names the implementation strategy of a host checksum.
	Engine string
}

// Module is one implemented operation. It is a closed union of
// SwitchModule, ControllerModule and HostModule.
type Module interface {
	Target() target.Kind
	Op() Op

	// Source returns the IR node the module implements, ir.None for
	// structural modules such as Then and Else.
	Source() ir.ID

	Validate() error
	String() string

	sealed()
}

// NewModule returns the module variant of target family k.
func NewModule(k target.Kind, op Op, source ir.ID, p Payload) Module {
	switch k {
	case target.Switch:
		return &SwitchModule{Operation: op, Node: source, Payload: p}
	case target.Controller:
		return &ControllerModule{Operation: op, Node: source, Payload: p}
	case target.Host:
		return &HostModule{Operation: op, Node: source, Payload: p}
	}
	Invariant("module for target %v", k)
	return nil
}

// SwitchModule runs in the match-action pipeline.
type SwitchModule struct {
	Operation Op
	Node      ir.ID
	Payload
}

func (m *SwitchModule) Target() target.Kind { return target.Switch }
func (m *SwitchModule) Op() Op              { return m.Operation }
func (m *SwitchModule) Source() ir.ID       { return m.Node }
func (m *SwitchModule) Validate() error     { return validate(m) }
func (m *SwitchModule) String() string      { return format(m, &m.Payload) }
func (*SwitchModule) sealed()               {}

// ControllerModule runs on the switch CPU.
type ControllerModule struct {
	Operation Op
	Node      ir.ID
	Payload
}

func (m *ControllerModule) Target() target.Kind { return target.Controller }
func (m *ControllerModule) Op() Op              { return m.Operation }
func (m *ControllerModule) Source() ir.ID       { return m.Node }
func (m *ControllerModule) Validate() error     { return validate(m) }
func (m *ControllerModule) String() string      { return format(m, &m.Payload) }
func (*ControllerModule) sealed()               {}

// HostModule runs on the general purpose host.
type HostModule struct {
	Operation Op
	Node      ir.ID
	Payload
}

func (m *HostModule) Target() target.Kind { return target.Host }
func (m *HostModule) Op() Op              { return m.Operation }
func (m *HostModule) Source() ir.ID       { return m.Node }
func (m *HostModule) Validate() error     { return validate(m) }
func (m *HostModule) String() string      { return format(m, &m.Payload) }
func (*HostModule) sealed()               {}

// PayloadOf returns the payload bound to m.
func PayloadOf(m Module) *Payload {
	switch v := m.(type) {
	case *SwitchModule:
		return &v.Payload
	case *ControllerModule:
		return &v.Payload
	case *HostModule:
		return &v.Payload
	}
	return nil
}

func validate(m Module) error {
	op := m.Op()
	if !Supports(m.Target(), op) {
		return fmt.Errorf("%w: %v not available on %v", ErrInvalidModule, op, m.Target())
	}
	p := PayloadOf(m)
	missing := ""
	switch {
	case op != OpThen && op != OpElse && m.Source() == ir.None:
		missing = "source"
	case op == OpIf && p.Cond == nil:
		missing = "condition"
	case op == OpForward && p.Port == nil:
		missing = "port"
	case (op == OpParseHeader || op == OpModifyHeader) && len(p.Values) == 0:
		missing = "chunk"
	case op == OpChecksumUpdate && len(p.Args) == 0:
		missing = "arguments"
	case needsDS(op) && p.DS == "":
		missing = "data structure"
	case needsDS(op) && len(p.Keys) == 0:
		missing = "keys"
	case op.IsObjectOp() && !needsDS(op) && p.Object == 0:
		missing = "object"
	case op.IsObjectOp() && !needsDS(op) && len(p.Args) == 0:
		missing = "arguments"
	case isCacheOp(op) && p.Capacity <= 0:
		missing = "capacity"
	}
	if missing != "" {
		return fmt.Errorf("%w: %v %s has no %s bound", ErrInvalidModule, m.Target(), op, missing)
	}
	return nil
}

func needsDS(op Op) bool {
	switch op {
	case OpTableLookup, OpRegisterRead, OpRegisterWrite,
		OpCachedTableRead, OpCachedTableWrite, OpCachedTableDelete,
		OpTableRead, OpTableUpdate, OpTableDelete, OpRegisterUpdate:
		return true
	}
	return false
}

func isCacheOp(op Op) bool {
	return op == OpCachedTableRead || op == OpCachedTableWrite || op == OpCachedTableDelete
}

func format(m Module, p *Payload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v:%v", m.Target(), m.Op())
	var parts []string
	if m.Source() != ir.None {
		parts = append(parts, fmt.Sprintf("n%d", m.Source()))
	}
	if p.Cond != nil {
		parts = append(parts, p.Cond.String())
	}
	if p.Port != nil {
		parts = append(parts, "port="+p.Port.String())
	}
	if p.DS != "" {
		parts = append(parts, "ds="+string(p.DS))
	}
	if p.Object != 0 {
		parts = append(parts, fmt.Sprintf("obj=%#x", p.Object))
	}
	if p.Capacity > 0 {
		parts = append(parts, fmt.Sprintf("cap=%d", p.Capacity))
	}
	if p.Engine != "" {
		parts = append(parts, "engine="+p.Engine)
	}
	if len(parts) > 0 {
		sb.WriteString("(" + strings.Join(parts, " ") + ")")
	}
	return sb.String()
}
