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

// Package search explores execution plans best-first until a terminal plan
// implements the whole IR.
//
// Each step pops the best plan from the frontier, runs every eligible
// generator on its pending node and pushes the children. Plan ids come from
// a sequence owned by the run and are handed out after all generators of a
// step have reported, so the outcome does not depend on Options.Workers.
package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajroetker/netsynth/gen"
	"github.com/ajroetker/netsynth/heuristic"
	"github.com/ajroetker/netsynth/internal/logging"
	"github.com/ajroetker/netsynth/internal/workerpool"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/plan"
	"github.com/ajroetker/netsynth/score"
	"github.com/ajroetker/netsynth/target"
)

// DefaultMaxSteps bounds a search when Options.MaxSteps is zero.
const DefaultMaxSteps = 1 << 16

// State is the lifecycle state of a run.
type State int

const (
	Running State = iota
	Done
	Abort
	Timeout
)

var stateNames = map[State]string{
	Running: "RUNNING",
	Done:    "DONE",
	Abort:   "ABORT",
	Timeout: "TIMEOUT",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options tunes a search.
type Options struct {
	// Workers is the number of goroutines expanding one plan. Values below 2
	// expand on the calling goroutine.
	Workers int

	// Seed seeds the frontier's tie-break.
	Seed uint64

	// AllowReorder adds plans that hoist an independent stateful call in
	// front of the pending one.
	AllowReorder bool

	// ReorderWindow bounds how far down a call chain hoisting looks.
	ReorderWindow int

	// MaxSteps bounds the number of expansions. Zero means DefaultMaxSteps.
	MaxSteps int
}

// DefaultOptions returns single-threaded options without reordering.
func DefaultOptions() Options {
	return Options{
		Workers:       1,
		ReorderWindow: ir.DefaultReorderWindow,
		MaxSteps:      DefaultMaxSteps,
	}
}

// Report is the outcome of a run.
type Report struct {
	RunID  uuid.UUID
	Policy string
	State  State

	// EP is the chosen terminal plan, nil on Abort.
	EP    *plan.EP
	Score score.Score

	// Steps counts expansions, Plans the plan ids handed out and Solutions
	// the terminal plans popped.
	Steps     int
	Plans     int
	Solutions int
}

func (r *Report) String() string {
	s := fmt.Sprintf("run %s policy=%s state=%v steps=%d plans=%d solutions=%d",
		r.RunID, r.Policy, r.State, r.Steps, r.Plans, r.Solutions)
	if r.EP != nil {
		s += fmt.Sprintf(" plan=%d score=%v", r.EP.ID(), r.Score)
	}
	return s
}

// Engine searches for a plan under one policy.
type Engine struct {
	env      *gen.Env
	registry *gen.Registry
	policy   heuristic.Policy
	opts     Options
}

// New returns an Engine. A nil registry means gen.Default().
func New(env *gen.Env, registry *gen.Registry, policy heuristic.Policy, opts Options) *Engine {
	if registry == nil {
		registry = gen.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	return &Engine{env: env, registry: registry, policy: policy, opts: opts}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() heuristic.Policy { return e.policy }

// Run searches for a plan implementing g. The error is an *AbortError when
// no terminal plan was found.
func (e *Engine) Run(ctx context.Context, g *ir.Graph) (*Report, error) {
	runID := uuid.New()
	ctx, span := otel.Tracer("netsynth/search").Start(ctx, "search.Run",
		trace.WithAttributes(
			attribute.String("run_id", runID.String()),
			attribute.String("policy", e.policy.Name()),
			attribute.Int("workers", e.opts.Workers),
			attribute.Int64("seed", int64(e.opts.Seed)),
			attribute.Int("ir_nodes", g.Len()),
		),
	)
	defer span.End()

	pool := workerpool.New(e.opts.Workers)
	defer pool.Close()

	r := &run{
		Engine:    e,
		id:        runID,
		log:       logging.For("search").WithFields(logrus.Fields{"run": runID.String(), "policy": e.policy.Name()}),
		pool:      pool,
		frontier:  heuristic.New(e.policy, e.opts.Seed),
		reordered: map[plan.ID]bool{},
	}
	rep, err := r.loop(ctx, g)

	span.SetAttributes(
		attribute.String("state", rep.State.String()),
		attribute.Int("steps", rep.Steps),
		attribute.Int("plans", rep.Plans),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search aborted")
		return rep, err
	}
	span.SetStatus(codes.Ok, "")
	return rep, nil
}

// run is the state of one Engine.Run.
type run struct {
	*Engine
	id       uuid.UUID
	log      *logrus.Entry
	pool     *workerpool.Pool
	frontier *heuristic.Heuristic[heuristic.Policy]

	seq       plan.ID
	reordered map[plan.ID]bool

	steps     int
	solutions int
	best      *plan.EP

	// last is the most recent expansion, deadEnd the most recent one that
	// produced nothing.
	last, deadEnd *AbortError
}

func (r *run) loop(ctx context.Context, g *ir.Graph) (*Report, error) {
	seed := plan.Seed(g, r.env.Targets)
	r.publish(seed)
	r.frontier.Push(seed)

	for {
		if !r.policy.TerminateOnFirstSolution() && r.frontier.AllTerminal() {
			return r.drain()
		}
		ep := r.frontier.Pop()
		if ep.IsTerminal() {
			r.record(ep)
			if r.policy.TerminateOnFirstSolution() {
				return r.done(ep, Done), nil
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.timeout(err)
		}
		if r.steps >= r.opts.MaxSteps {
			return r.timeout(ErrStepLimit)
		}
		r.steps++
		r.expand(ep)
	}
}

// drain records the terminal plans left once nothing can be expanded.
func (r *run) drain() (*Report, error) {
	for ep := r.frontier.Pop(); ep != nil; ep = r.frontier.Pop() {
		r.record(ep)
	}
	return r.finish()
}

func (r *run) publish(ep *plan.EP) {
	r.seq++
	ep.SetID(r.seq)
}

type child struct {
	ep        *plan.EP
	reordered bool
}

// expand pushes every child of ep.
func (r *run) expand(ep *plan.EP) {
	n := ep.NextNode()
	leaf, _ := ep.ActiveLeaf()
	gens := r.registry.Eligible(r.env, ep)

	results := workerpool.Collect(r.pool, len(gens), func(i int) []gen.Candidate {
		if gens[i].Speculate(r.env, ep, n, ep.Context()) == nil {
			return nil
		}
		return gens[i].Process(r.env, ep, n)
	})

	var children []child
	for i, cands := range results {
		for _, c := range cands {
			r.log.WithFields(logrus.Fields{"generator": gens[i].Name, "module": c.Description}).Trace("candidate")
			children = append(children, child{ep: c.EP})
		}
	}
	if r.opts.AllowReorder && !r.reordered[ep.ID()] {
		for _, id := range ep.IR().ReorderCandidates(r.env.Toolbox, n.ID, r.opts.ReorderWindow) {
			hoisted, err := ep.Reorder(id)
			if err != nil {
				r.log.WithError(err).Debugf("cannot hoist node %d", id)
				continue
			}
			children = append(children, child{ep: hoisted, reordered: true})
		}
	}

	tried := lo.Uniq(lo.Map(gens, func(g *gen.Generator, _ int) target.Kind { return g.Target }))
	if len(tried) == 0 {
		tried = []target.Kind{leaf.Target}
	}
	r.last = &AbortError{Node: n.ID, Targets: tried}
	if len(children) == 0 {
		r.deadEnd = r.last
		r.log.WithFields(logrus.Fields{"plan": ep.ID(), "node": n.ID, "targets": tried}).Debug("dead end")
	}

	for _, c := range children {
		r.publish(c.ep)
		if c.reordered {
			r.reordered[c.ep.ID()] = true
		}
		r.frontier.Push(c.ep)
	}
	r.log.WithFields(logrus.Fields{
		"step":     r.steps,
		"plan":     ep.ID(),
		"node":     n.ID,
		"children": len(children),
		"frontier": r.frontier.Len(),
	}).Debug("expanded")
}

// record keeps ep if it beats the best terminal plan so far. Earlier plans
// win ties.
func (r *run) record(ep *plan.EP) {
	r.solutions++
	if r.best == nil || r.frontier.Better(ep, r.best) {
		r.best = ep
	}
	r.log.WithFields(logrus.Fields{"plan": ep.ID(), "score": r.frontier.Score(ep)}).Debug("solution")
}

func (r *run) report(state State) *Report {
	return &Report{
		RunID:     r.id,
		Policy:    r.policy.Name(),
		State:     state,
		Steps:     r.steps,
		Plans:     int(r.seq),
		Solutions: r.solutions,
	}
}

func (r *run) done(ep *plan.EP, state State) *Report {
	if err := ep.Validate(); err != nil {
		plan.Invariant("search selected plan %d: %v", ep.ID(), err)
	}
	rep := r.report(state)
	rep.EP = ep
	rep.Score = r.frontier.Score(ep)
	r.log.WithFields(logrus.Fields{"plan": ep.ID(), "state": state, "steps": r.steps}).Info("search finished")
	return rep
}

// finish ends a run with nothing left to expand.
func (r *run) finish() (*Report, error) {
	if r.best != nil {
		return r.done(r.best, Done), nil
	}
	return r.abort(nil)
}

// timeout ends a run cut short by cause, keeping the best plan found.
func (r *run) timeout(cause error) (*Report, error) {
	if r.best != nil {
		r.log.WithError(cause).Info("search cut short")
		return r.done(r.best, Timeout), nil
	}
	return r.abort(cause)
}

func (r *run) abort(cause error) (*Report, error) {
	err := &AbortError{Steps: r.steps, Cause: cause}
	switch {
	case r.deadEnd != nil:
		err.Node, err.Targets = r.deadEnd.Node, r.deadEnd.Targets
	case r.last != nil:
		err.Node, err.Targets = r.last.Node, r.last.Targets
	}
	r.log.WithError(err).Warn("search aborted")
	return r.report(Abort), err
}
