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

// Package config loads the YAML description of the targets, the traffic
// profile and the search settings.
//
// A minimal file only names the targets; everything else falls back to the
// defaults:
//
//	targets: [switch, host]
//	switch:
//	  stages: 20
//	search:
//	  policy: max-throughput
//	  timeout: 30s
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajroetker/netsynth/heuristic"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/profiler"
	"github.com/ajroetker/netsynth/score"
	"github.com/ajroetker/netsynth/search"
	"github.com/ajroetker/netsynth/target"
)

var (
	// ErrNoTargets is returned when no target is declared.
	ErrNoTargets = errors.New("config: no targets declared")

	// ErrInvalidConfig is returned for any other unusable setting.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// DefaultPolicy is the search policy used when none is configured.
const DefaultPolicy = "max-throughput"

// Config is the top-level configuration.
type Config struct {
	Targets    []string                     `yaml:"targets"`
	Switch     target.SwitchConstraints     `yaml:"switch"`
	Controller target.ControllerConstraints `yaml:"controller"`
	Host       target.HostConstraints       `yaml:"host"`
	Profile    Profile                      `yaml:"profile"`
	Search     Search                       `yaml:"search"`
}

// Profile is the synthetic traffic profile.
type Profile struct {
	// DefaultBranch is the probability of taking a branch with no explicit
	// entry.
	DefaultBranch float64 `yaml:"default_branch"`
	CacheHitRate  float64 `yaml:"cache_hit_rate"`
}

// Search holds the engine settings.
type Search struct {
	Policy        string        `yaml:"policy"`
	Seed          uint64        `yaml:"seed"`
	Workers       int           `yaml:"workers"`
	AllowReorder  bool          `yaml:"allow_reorder"`
	ReorderWindow int           `yaml:"reorder_window"`
	MaxSteps      int           `yaml:"max_steps"`
	Timeout       time.Duration `yaml:"timeout"`

	// Criteria, when set, define a custom policy named Policy.
	Criteria  []Criterion `yaml:"criteria"`
	Terminate bool        `yaml:"terminate_on_first_solution"`
}

// Criterion is one ranking step of a custom policy, e.g.
// {category: NumberOfSwitchNodes, objective: max}.
type Criterion struct {
	Category  string `yaml:"category"`
	Objective string `yaml:"objective"`
}

// Default returns the configuration with every target declared.
func Default() *Config {
	return &Config{
		Targets:    []string{"switch", "controller", "host"},
		Switch:     target.DefaultSwitchConstraints(),
		Controller: target.DefaultControllerConstraints(),
		Host:       target.DefaultHostConstraints(),
		Profile: Profile{
			DefaultBranch: profiler.DefaultBranchProbability,
			CacheHitRate:  profiler.DefaultCacheHitRate,
		},
		Search: Search{
			Policy:        DefaultPolicy,
			Workers:       1,
			ReorderWindow: ir.DefaultReorderWindow,
			MaxSteps:      search.DefaultMaxSteps,
		},
	}
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes data on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every declared target and the search settings.
func (c *Config) Validate() error {
	if _, err := c.TargetSet(); err != nil {
		return err
	}
	if p := c.Profile.DefaultBranch; p < 0 || p > 1 {
		return fmt.Errorf("%w: default branch probability %v outside [0,1]", ErrInvalidConfig, p)
	}
	if r := c.Profile.CacheHitRate; r < 0 || r > 1 {
		return fmt.Errorf("%w: cache hit rate %v outside [0,1]", ErrInvalidConfig, r)
	}
	s := c.Search
	if s.Workers < 0 || s.MaxSteps < 0 || s.ReorderWindow < 0 || s.Timeout < 0 {
		return fmt.Errorf("%w: negative search setting", ErrInvalidConfig)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// TargetSet builds the declared targets in declaration order.
func (c *Config) TargetSet() (target.Set, error) {
	if len(c.Targets) == 0 {
		return nil, ErrNoTargets
	}
	var set target.Set
	for _, name := range c.Targets {
		k, err := target.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if set.Has(k) {
			return nil, fmt.Errorf("%w: target %v declared twice", ErrInvalidConfig, k)
		}
		t := target.Target{Kind: k, Name: k.String()}
		switch k {
		case target.Switch:
			t.Switch = c.Switch
		case target.Controller:
			t.Controller = c.Controller
		case target.Host:
			t.Host = c.Host
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		set = append(set, t)
	}
	return set, nil
}

// Policy resolves the search policy.
func (c *Config) Policy() (heuristic.Policy, error) {
	if len(c.Search.Criteria) == 0 {
		return heuristic.ByName(c.Search.Policy)
	}
	criteria := make([]score.Criterion, len(c.Search.Criteria))
	for i, cr := range c.Search.Criteria {
		cat, err := score.ParseCategory(cr.Category)
		if err != nil {
			return nil, err
		}
		obj, err := score.ParseObjective(cr.Objective)
		if err != nil {
			return nil, err
		}
		criteria[i] = score.Criterion{Category: cat, Objective: obj}
	}
	return heuristic.Custom(c.Search.Policy, c.Search.Terminate, criteria...), nil
}

// Profiler returns the configured traffic profile.
func (c *Config) Profiler() *profiler.Profiler {
	return profiler.New(
		profiler.WithDefault(c.Profile.DefaultBranch),
		profiler.WithCacheHitRate(c.Profile.CacheHitRate),
	)
}

// SearchOptions returns the engine options.
func (c *Config) SearchOptions() search.Options {
	return search.Options{
		Workers:       c.Search.Workers,
		Seed:          c.Search.Seed,
		AllowReorder:  c.Search.AllowReorder,
		ReorderWindow: c.Search.ReorderWindow,
		MaxSteps:      c.Search.MaxSteps,
	}
}
