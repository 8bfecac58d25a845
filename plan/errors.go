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
	"fmt"

	"github.com/ajroetker/netsynth/ds"
	"github.com/ajroetker/netsynth/placer"
)

var (
	// ErrNotTerminal is returned by Validate for a plan with pending leaves.
	ErrNotTerminal = errors.New("plan has pending leaves")

	// ErrCoverage is returned by Validate when consumed and reachable IR
	// nodes differ.
	ErrCoverage = errors.New("plan does not cover the reachable IR exactly")

	// ErrInvalidModule is returned when a module is missing a bound field or
	// is not available on its target.
	ErrInvalidModule = errors.New("invalid module")

	// ErrConflictingDecision is returned when an object already decided one
	// way is asked to be implemented another way.
	ErrConflictingDecision = errors.New("conflicting implementation decision")

	// ErrOverBudget is returned when a target context would exceed its budget.
	ErrOverBudget = errors.New("target budget exceeded")

	// ErrNoTarget is returned when memory is requested from a target that has
	// no software context.
	ErrNoTarget = errors.New("target not declared")
)

// PlacementError reports a data structure the switch placer rejected.
type PlacementError struct {
	DS     ds.ID
	Status placer.Status
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("cannot place %s: %s", e.DS, e.Status)
}

func (e *PlacementError) Unwrap() error { return ErrOverBudget }

// Invariant panics with a formatted invariant violation. Invariant violations
// are programming errors in generators or the engine, never user errors.
func Invariant(format string, args ...any) {
	panic("plan: invariant violated: " + fmt.Sprintf(format, args...))
}
