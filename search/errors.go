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

package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/target"
)

// ErrNoSolution reports that the search space held no terminal plan.
var ErrNoSolution = errors.New("search: no solution")

// ErrStepLimit is the cause recorded when Options.MaxSteps is exhausted.
var ErrStepLimit = errors.New("search: step limit reached")

// AbortError describes a search that ended without a terminal plan. Node is
// the pending node of the last plan that could not be extended and Targets
// are the targets whose generators were tried on it.
type AbortError struct {
	Node    ir.ID
	Targets []target.Kind
	Steps   int

	// Cause is the context error when the search was cut short, nil when
	// the frontier ran dry.
	Cause error
}

func (e *AbortError) Error() string {
	names := make([]string, len(e.Targets))
	for i, k := range e.Targets {
		names[i] = k.String()
	}
	msg := fmt.Sprintf("%v after %d steps: node %d has no implementation on [%s]",
		ErrNoSolution, e.Steps, e.Node, strings.Join(names, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns ErrNoSolution and the cause, if any.
func (e *AbortError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrNoSolution}
	}
	return []error{ErrNoSolution, e.Cause}
}

// IsAbort reports whether err is, or wraps, an *AbortError.
func IsAbort(err error) bool {
	var ae *AbortError
	return errors.As(err, &ae)
}
