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

// Package score ranks execution plans with a lexicographic multi-criteria
// comparator.
package score

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/target"
)

// Category is a measurable property of an execution plan.
type Category int

const (
	NumberOfNodes Category = iota
	Depth
	NumberOfReorderedNodes
	NumberOfSwitchNodes
	NumberOfControllerNodes
	NumberOfHostNodes
	NumberOfSwitchLeaves
	ConsecutiveObjectOperationsInSwitch
	HasNextStatefulOperationInSwitch
	ProcessedIRPercentage
	NumberOfSendToController
	ControllerTrafficPermille
)

var categoryNames = map[Category]string{
	NumberOfNodes:                       "NumberOfNodes",
	Depth:                               "Depth",
	NumberOfReorderedNodes:              "NumberOfReorderedNodes",
	NumberOfSwitchNodes:                 "NumberOfSwitchNodes",
	NumberOfControllerNodes:             "NumberOfControllerNodes",
	NumberOfHostNodes:                   "NumberOfHostNodes",
	NumberOfSwitchLeaves:                "NumberOfSwitchLeaves",
	ConsecutiveObjectOperationsInSwitch: "ConsecutiveObjectOperationsInSwitch",
	HasNextStatefulOperationInSwitch:    "HasNextStatefulOperationInSwitch",
	ProcessedIRPercentage:               "ProcessedIRPercentage",
	NumberOfSendToController:            "NumberOfSendToController",
	ControllerTrafficPermille:           "ControllerTrafficPermille",
}

// String returns a human-readable name for the Category.
func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory returns the category named s, case-insensitive.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown score category %q", s)
}

// ParseObjective parses "min" or "max", case-insensitive.
func ParseObjective(s string) (Objective, error) {
	switch strings.ToLower(s) {
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	}
	return 0, fmt.Errorf("unknown objective %q", s)
}

// Objective is the direction a category is optimized in.
type Objective int

const (
	Min Objective = iota
	Max
)

// String returns "MIN" or "MAX".
func (o Objective) String() string {
	if o == Min {
		return "MIN"
	}
	return "MAX"
}

// Criterion pairs a category with its objective.
type Criterion struct {
	Category  Category
	Objective Objective
}

func (c Criterion) String() string {
	return fmt.Sprintf("%v(%v)", c.Category, c.Objective)
}

// Extract computes the raw value of category c for ep.
func Extract(c Category, ep *plan.EP) int64 {
	switch c {
	case NumberOfNodes:
		return int64(ep.Len())
	case Depth:
		return int64(ep.Depth())
	case NumberOfReorderedNodes:
		return int64(ep.Reordered())
	case NumberOfSwitchNodes:
		return int64(ep.TargetNodes(target.Switch))
	case NumberOfControllerNodes:
		return int64(ep.TargetNodes(target.Controller))
	case NumberOfHostNodes:
		return int64(ep.TargetNodes(target.Host))
	case NumberOfSwitchLeaves:
		return int64(lo.CountBy(ep.Leaves(), func(l plan.Leaf) bool { return l.Target == target.Switch }))
	case ConsecutiveObjectOperationsInSwitch:
		return consecutiveSwitchObjectOps(ep)
	case HasNextStatefulOperationInSwitch:
		leaf, ok := ep.ActiveLeaf()
		if ok && leaf.Target == target.Switch && ir.IsStateful(ep.NextNode()) {
			return 1
		}
		return 0
	case ProcessedIRPercentage:
		reachable := len(ep.IR().Reachable())
		if reachable == 0 {
			return 100
		}
		return int64(len(ep.Consumed()) * 100 / reachable)
	case NumberOfSendToController:
		return int64(lo.CountBy(ep.Nodes(), func(n *plan.Node) bool {
			return n.Module.Op() == plan.OpSendToController
		}))
	case ControllerTrafficPermille:
		cc := ep.Context().Controller()
		if cc == nil {
			return 0
		}
		return int64(cc.Traffic*1000 + 0.5)
	}
	panic(fmt.Sprintf("score: unknown category %v", c))
}

// consecutiveSwitchObjectOps counts the object operations on the switch
// along the path ending at the active leaf, stopping at the first module
// that left the switch.
func consecutiveSwitchObjectOps(ep *plan.EP) int64 {
	leaf, ok := ep.ActiveLeaf()
	if !ok {
		return 0
	}
	var n int64
	for node := leaf.Node; node != nil; node = node.Parent {
		m := node.Module
		if m.Target() != target.Switch || m.Op() == plan.OpSendToController {
			break
		}
		if m.Op().IsObjectOp() {
			n++
		}
	}
	return n
}

// Score is the ordered list of criteria a plan is ranked by, with the values
// of one plan. MIN criteria are stored negated so that larger is always
// better.
type Score struct {
	criteria []Criterion
	values   []int64
}

// Of computes the score of ep over criteria.
func Of(ep *plan.EP, criteria []Criterion) Score {
	values := make([]int64, len(criteria))
	for i, c := range criteria {
		v := Extract(c.Category, ep)
		if c.Objective == Min {
			v = -v
		}
		values[i] = v
	}
	return Score{criteria: criteria, values: values}
}

// Values returns the stored values, MIN criteria negated.
func (s Score) Values() []int64 { return s.values }

// Compare returns -1, 0 or +1 as s is worse than, tied with or better than
// o. Both scores must share their criteria.
func (s Score) Compare(o Score) int {
	if len(s.values) != len(o.values) {
		panic("score: comparing scores over different criteria")
	}
	for i := range s.values {
		switch {
		case s.values[i] < o.values[i]:
			return -1
		case s.values[i] > o.values[i]:
			return 1
		}
	}
	return 0
}

// Better reports whether s ranks strictly above o.
func (s Score) Better(o Score) bool { return s.Compare(o) > 0 }

func (s Score) String() string {
	parts := make([]string, len(s.values))
	for i, c := range s.criteria {
		v := s.values[i]
		if c.Objective == Min {
			v = -v
		}
		parts[i] = fmt.Sprintf("%v=%d", c.Category, v)
	}
	return "Score{" + strings.Join(parts, " ") + "}"
}
