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
	"errors"
	"testing"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/internal/nftest"
	"github.com/ajroetker/netsynth/placer"
	"github.com/ajroetker/netsynth/target"
)

func switchAndHost(t *testing.T) target.Set {
	t.Helper()
	s, err := target.Defaults(target.Switch, target.Host)
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	return s
}

func TestDecideIsWriteOnce(t *testing.T) {
	c := NewContext(switchAndHost(t))
	d := Decision{Impl: ImplTable, Target: target.Switch, DS: "table_2", Capacity: 1024}
	c1, err := c.Decide(nftest.MapAddr, d)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if _, ok := c.Decision(nftest.MapAddr); ok {
		t.Error("Decide mutated the receiver")
	}
	if c2, err := c1.Decide(nftest.MapAddr, d); err != nil || c2 != c1 {
		t.Errorf("re-deciding the same decision = (%p, %v), want (%p, nil)", c2, err, c1)
	}
	other := d
	other.Capacity = 4096
	if _, err := c1.Decide(nftest.MapAddr, other); !errors.Is(err, ErrConflictingDecision) {
		t.Errorf("Decide(conflict) = %v, want ErrConflictingDecision", err)
	}
}

// Sibling plans may decide differently for the same object, but no single
// context ever binds two data structures to one object.
func TestSiblingContextsDiverge(t *testing.T) {
	parent := NewContext(switchAndHost(t))
	small := ds.NewCachedTable(2, 1024, 32, 32)
	large := ds.NewCachedTable(2, 4096, 32, 32)

	left, err := parent.Switch().Place(nftest.MapAddr, small, nil)
	if err != nil {
		t.Fatalf("Place(small): %v", err)
	}
	right, err := parent.Switch().Place(nftest.MapAddr, large, nil)
	if err != nil {
		t.Fatalf("Place(large): %v", err)
	}
	a, b := parent.WithSwitch(left), parent.WithSwitch(right)

	if got, _ := a.Switch().Instance(nftest.MapAddr); got.Capacity() != 1024 {
		t.Errorf("left instance capacity = %d, want 1024", got.Capacity())
	}
	if got, _ := b.Switch().Instance(nftest.MapAddr); got.Capacity() != 4096 {
		t.Errorf("right instance capacity = %d, want 4096", got.Capacity())
	}
	if parent.Switch().Instances() != 0 {
		t.Error("placing into a child leaked into the parent context")
	}

	if _, err := a.Switch().Place(nftest.MapAddr, ds.NewTable(2, []int{32}, []int{32}, 1024), nil); !errors.Is(err, ErrConflictingDecision) {
		t.Errorf("binding a second DS = %v, want ErrConflictingDecision", err)
	}
	same, err := a.Switch().Place(nftest.MapAddr, small, nil)
	if err != nil || same != a.Switch() {
		t.Errorf("rebinding the same DS = (%p, %v), want (%p, nil)", same, err, a.Switch())
	}
	if a.Switch().Instances() != 1 || b.Switch().Instances() != 1 {
		t.Errorf("instances = %d, %d, want 1, 1", a.Switch().Instances(), b.Switch().Instances())
	}
}

func TestPlaceReportsPlacerStatus(t *testing.T) {
	c := NewContext(switchAndHost(t))
	huge := ds.NewTable(2, []int{32}, []int{32}, nftest.HugeCapacity)
	_, err := c.Switch().Place(nftest.MapAddr, huge, nil)
	var pe *PlacementError
	if !errors.As(err, &pe) || pe.Status != placer.TooLarge {
		t.Fatalf("Place(huge) = %v, want PlacementError TooLarge", err)
	}
	if !errors.Is(err, ErrOverBudget) {
		t.Errorf("PlacementError does not unwrap to ErrOverBudget")
	}
}

func TestSoftwareBudgets(t *testing.T) {
	cc := &ControllerContext{Budget: target.DefaultControllerConstraints()}
	cc1, err := cc.WithTraffic(0.06)
	if err != nil {
		t.Fatalf("WithTraffic(0.06): %v", err)
	}
	if _, err := cc1.WithTraffic(0.06); !errors.Is(err, ErrOverBudget) {
		t.Errorf("WithTraffic over budget = %v, want ErrOverBudget", err)
	}
	if cc.Traffic != 0 {
		t.Error("WithTraffic mutated the receiver")
	}

	hc := &HostContext{Budget: target.HostConstraints{MemoryBytes: 100}}
	if _, err := hc.WithMemory(101); !errors.Is(err, ErrOverBudget) {
		t.Errorf("WithMemory over budget = %v, want ErrOverBudget", err)
	}
	if got, err := hc.WithMemory(100); err != nil || got.MemoryBytes != 100 {
		t.Errorf("WithMemory(100) = (%v, %v)", got, err)
	}
}

func TestNewContextOnlyDeclaredTargets(t *testing.T) {
	c := NewContext(switchAndHost(t))
	if c.Switch() == nil || c.Host() == nil {
		t.Error("declared targets have no context")
	}
	if c.Controller() != nil {
		t.Error("undeclared controller has a context")
	}
}

func TestWithObjectNeedsSoftwareContext(t *testing.T) {
	c := NewContext(switchAndHost(t))
	for _, k := range []target.Kind{target.Controller, target.Switch} {
		if _, err := c.WithObject(k, nftest.MapAddr, 64); !errors.Is(err, ErrNoTarget) {
			t.Errorf("WithObject(%v) = %v, want ErrNoTarget", k, err)
		}
	}

	c1, err := c.WithObject(target.Host, nftest.MapAddr, 64)
	if err != nil {
		t.Fatalf("WithObject(host): %v", err)
	}
	if !c1.Host().Holds(nftest.MapAddr) || c1.Host().MemoryBytes != 64 {
		t.Errorf("host context = %+v, want object held with 64 bytes", c1.Host())
	}
	if c.Host().Holds(nftest.MapAddr) {
		t.Error("WithObject mutated the receiver")
	}
	if c2, err := c1.WithObject(target.Host, nftest.MapAddr, 64); err != nil || c2.Host().MemoryBytes != 64 {
		t.Errorf("second WithObject charged again: %v", err)
	}
}
