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
	"maps"
	"slices"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/placer"
	"github.com/ajroetker/netsynth/target"
)

// Impl is the implementation chosen for a stateful object.
type Impl int

const (
	ImplTable Impl = iota
	ImplRegister
	ImplCachedTable
	ImplMap
	ImplVector
	ImplDchain
	ImplSketch
)

// String returns a human-readable name for the Impl.
func (i Impl) String() string {
	switch i {
	case ImplTable:
		return "Table"
	case ImplRegister:
		return "Register"
	case ImplCachedTable:
		return "CachedTable"
	case ImplMap:
		return "Map"
	case ImplVector:
		return "Vector"
	case ImplDchain:
		return "Dchain"
	case ImplSketch:
		return "Sketch"
	default:
		return fmt.Sprintf("Impl(%d)", int(i))
	}
}

// Decision is the write-once implementation choice for one object.
type Decision struct {
	Impl     Impl
	Target   target.Kind
	DS       ds.ID
	Capacity int
}

// ObjectDecision pairs a Decision with its object address.
type ObjectDecision struct {
	Object uint64
	Decision
}

// Context holds the per-target state of an execution plan. A Context is
// immutable: every With and Decide method returns a new Context sharing the
// target contexts it did not change.
type Context struct {
	decisions  map[uint64]Decision
	sw         *SwitchContext
	controller *ControllerContext
	host       *HostContext
}

// NewContext returns an empty Context with one target context per declared
// target.
func NewContext(targets target.Set) *Context {
	c := &Context{decisions: map[uint64]Decision{}}
	if t, ok := targets.Get(target.Switch); ok {
		c.sw = &SwitchContext{placer: placer.New(t.Switch), instances: map[uint64]ds.DS{}}
	}
	if t, ok := targets.Get(target.Controller); ok {
		c.controller = &ControllerContext{Budget: t.Controller}
	}
	if t, ok := targets.Get(target.Host); ok {
		c.host = &HostContext{Budget: t.Host}
	}
	return c
}

func (c *Context) clone() *Context {
	cp := *c
	return &cp
}

// Decision returns the decision recorded for the object at addr.
func (c *Context) Decision(addr uint64) (Decision, bool) {
	d, ok := c.decisions[addr]
	return d, ok
}

// Decisions returns every recorded decision ordered by object address.
func (c *Context) Decisions() []ObjectDecision {
	out := make([]ObjectDecision, 0, len(c.decisions))
	for _, addr := range slices.Sorted(maps.Keys(c.decisions)) {
		out = append(out, ObjectDecision{Object: addr, Decision: c.decisions[addr]})
	}
	return out
}

// Decide records d for the object at addr. Recording the same decision again
// is a no-op; recording a different one fails with ErrConflictingDecision.
func (c *Context) Decide(addr uint64, d Decision) (*Context, error) {
	if prev, ok := c.decisions[addr]; ok {
		if prev == d {
			return c, nil
		}
		return nil, fmt.Errorf("%w: object %#x is %v on %v, not %v on %v",
			ErrConflictingDecision, addr, prev.Impl, prev.Target, d.Impl, d.Target)
	}
	cp := c.clone()
	cp.decisions = maps.Clone(c.decisions)
	cp.decisions[addr] = d
	return cp, nil
}

// Switch returns the switch context, nil if no switch is declared.
func (c *Context) Switch() *SwitchContext { return c.sw }

// Controller returns the controller context, nil if no controller is declared.
func (c *Context) Controller() *ControllerContext { return c.controller }

// Host returns the host context, nil if no host is declared.
func (c *Context) Host() *HostContext { return c.host }

// WithSwitch returns a copy of c using sc as switch context.
func (c *Context) WithSwitch(sc *SwitchContext) *Context {
	cp := c.clone()
	cp.sw = sc
	return cp
}

// WithController returns a copy of c using cc as controller context.
func (c *Context) WithController(cc *ControllerContext) *Context {
	cp := c.clone()
	cp.controller = cc
	return cp
}

// WithHost returns a copy of c using hc as host context.
func (c *Context) WithHost(hc *HostContext) *Context {
	cp := c.clone()
	cp.host = hc
	return cp
}

// WithObject returns a copy of c with the object at addr held in the memory
// of the software target k. It fails with ErrNoTarget when k has no software
// context, either because it is undeclared or because it is the switch.
func (c *Context) WithObject(k target.Kind, addr uint64, bytes int64) (*Context, error) {
	switch {
	case k == target.Controller && c.controller != nil:
		next, err := c.controller.WithObject(addr, bytes)
		if err != nil {
			return nil, err
		}
		return c.WithController(next), nil
	case k == target.Host && c.host != nil:
		next, err := c.host.WithObject(addr, bytes)
		if err != nil {
			return nil, err
		}
		return c.WithHost(next), nil
	}
	return nil, fmt.Errorf("%w: no software context for %v", ErrNoTarget, k)
}

// SwitchContext tracks pipeline occupancy and the data structure backing
// each object implemented on the switch.
type SwitchContext struct {
	placer    *placer.Placer
	instances map[uint64]ds.DS
}

// Stages returns a snapshot of the remaining stage budgets.
func (sc *SwitchContext) Stages() []placer.Stage { return sc.placer.Stages() }

// StagesOf returns the stages hosting the data structure id.
func (sc *SwitchContext) StagesOf(id ds.ID) []int { return sc.placer.StagesOf(id) }

// Instance returns the data structure implementing the object at addr.
func (sc *SwitchContext) Instance(addr uint64) (ds.DS, bool) {
	d, ok := sc.instances[addr]
	return d, ok
}

// Instances returns the number of objects with a switch data structure.
func (sc *SwitchContext) Instances() int { return len(sc.instances) }

// CanPlace simulates placing d after deps.
func (sc *SwitchContext) CanPlace(d ds.DS, deps []ds.ID) placer.Status {
	return sc.placer.CanPlace(d, deps)
}

// Place returns a copy of sc with d placed and bound to the object at addr.
// Binding an object that already has a data structure is only allowed for the
// very same data structure, which is then not placed again.
func (sc *SwitchContext) Place(addr uint64, d ds.DS, deps []ds.ID) (*SwitchContext, error) {
	if prev, ok := sc.instances[addr]; ok {
		if prev.ID() == d.ID() {
			return sc, nil
		}
		return nil, fmt.Errorf("%w: object %#x already backed by %s, not %s",
			ErrConflictingDecision, addr, prev.ID(), d.ID())
	}
	if st := sc.placer.CanPlace(d, deps); st != placer.Success {
		return nil, &PlacementError{DS: d.ID(), Status: st}
	}
	p := sc.placer.Clone()
	p.Place(d, deps)
	inst := maps.Clone(sc.instances)
	inst[addr] = d
	return &SwitchContext{placer: p, instances: inst}, nil
}

// ControllerContext tracks the switch CPU load.
type ControllerContext struct {
	Budget target.ControllerConstraints

	// MemoryBytes is the memory used by controller data structures.
	MemoryBytes int64

	// Traffic is the share of all traffic the controller processes.
	Traffic float64

	objects map[uint64]bool
}

// Holds reports whether the controller keeps a copy of the object at addr.
func (cc *ControllerContext) Holds(addr uint64) bool { return cc.objects[addr] }

// WithObject returns a copy of cc holding the object at addr, charging bytes
// the first time the object is added.
func (cc *ControllerContext) WithObject(addr uint64, bytes int64) (*ControllerContext, error) {
	if cc.Holds(addr) {
		return cc, nil
	}
	cp, err := cc.WithMemory(bytes)
	if err != nil {
		return nil, err
	}
	cp.objects = maps.Clone(cc.objects)
	if cp.objects == nil {
		cp.objects = map[uint64]bool{}
	}
	cp.objects[addr] = true
	return cp, nil
}

// WithMemory returns a copy of cc using extra more bytes.
func (cc *ControllerContext) WithMemory(extra int64) (*ControllerContext, error) {
	if cc.MemoryBytes+extra > cc.Budget.MemoryBytes {
		return nil, fmt.Errorf("%w: controller memory %d + %d > %d",
			ErrOverBudget, cc.MemoryBytes, extra, cc.Budget.MemoryBytes)
	}
	cp := *cc
	cp.MemoryBytes += extra
	return &cp, nil
}

// WithTraffic returns a copy of cc absorbing an extra share of traffic.
func (cc *ControllerContext) WithTraffic(fraction float64) (*ControllerContext, error) {
	if cc.Traffic+fraction > cc.Budget.MaxTrafficFraction+1e-9 {
		return nil, fmt.Errorf("%w: controller traffic %.3f + %.3f > %.3f",
			ErrOverBudget, cc.Traffic, fraction, cc.Budget.MaxTrafficFraction)
	}
	cp := *cc
	cp.Traffic += fraction
	return &cp, nil
}

// HostContext tracks host memory.
type HostContext struct {
	Budget      target.HostConstraints
	MemoryBytes int64

	objects map[uint64]bool
}

// Holds reports whether the host allocated the object at addr.
func (hc *HostContext) Holds(addr uint64) bool { return hc.objects[addr] }

// WithObject returns a copy of hc holding the object at addr, charging bytes
// the first time the object is added.
func (hc *HostContext) WithObject(addr uint64, bytes int64) (*HostContext, error) {
	if hc.Holds(addr) {
		return hc, nil
	}
	cp, err := hc.WithMemory(bytes)
	if err != nil {
		return nil, err
	}
	cp.objects = maps.Clone(hc.objects)
	if cp.objects == nil {
		cp.objects = map[uint64]bool{}
	}
	cp.objects[addr] = true
	return cp, nil
}

// WithMemory returns a copy of hc using extra more bytes.
func (hc *HostContext) WithMemory(extra int64) (*HostContext, error) {
	if hc.MemoryBytes+extra > hc.Budget.MemoryBytes {
		return nil, fmt.Errorf("%w: host memory %d + %d > %d",
			ErrOverBudget, hc.MemoryBytes, extra, hc.Budget.MemoryBytes)
	}
	cp := *hc
	cp.MemoryBytes += extra
	return &cp, nil
}
