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

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajroetker/netsynth/config"
	"github.com/ajroetker/netsynth/gen"
	"github.com/ajroetker/netsynth/heuristic"
	"github.com/ajroetker/netsynth/internal/logging"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/ir/irfile"
	"github.com/ajroetker/netsynth/search"
)

// flags holds the command line shared by every subcommand.
type flags struct {
	configPath string
	logLevel   string
	irPath     string
	policy     string
	seed       uint64
	workers    int
	reorder    bool
	targets    []string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "netsynth",
		Short:        "Place network function IR nodes on switch, controller and host targets",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if f.logLevel == "" {
				return nil
			}
			return logging.SetLevel(f.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "YAML configuration file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error), overrides $"+logging.EnvVar)

	root.AddCommand(newRunCmd(f), newCompareCmd(f), newTargetsCmd(f))
	return root
}

// searchFlags registers the flags of the commands that run a search.
func searchFlags(cmd *cobra.Command, f *flags) {
	cmd.Flags().StringVar(&f.irPath, "ir", "", "IR fixture (YAML)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "tie-break seed")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "generator workers per expansion")
	cmd.Flags().BoolVar(&f.reorder, "reorder", false, "allow hoisting independent stateful calls")
	cmd.Flags().StringSliceVar(&f.targets, "targets", nil, "targets to declare, overriding the configuration")
	_ = cmd.MarkFlagRequired("ir")
}

// load reads the configuration and applies the flags the user set.
func (f *flags) load(cmd *cobra.Command) (*config.Config, error) {
	c := config.Default()
	if f.configPath != "" {
		var err error
		if c, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	changed := cmd.Flags().Changed
	if changed("policy") {
		c.Search.Policy = f.policy
		c.Search.Criteria = nil
	}
	if changed("seed") {
		c.Search.Seed = f.seed
	}
	if changed("workers") {
		c.Search.Workers = f.workers
	}
	if changed("reorder") {
		c.Search.AllowReorder = f.reorder
	}
	if changed("targets") {
		c.Targets = f.targets
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// setup loads the configuration and the IR and returns the generator
// environment they describe.
func (f *flags) setup(cmd *cobra.Command) (*config.Config, *gen.Env, *ir.Graph, error) {
	c, err := f.load(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	g, err := irfile.Load(f.irPath)
	if err != nil {
		return nil, nil, nil, err
	}
	targets, err := c.TargetSet()
	if err != nil {
		return nil, nil, nil, err
	}
	return c, gen.NewEnv(targets, nil, c.Profiler()), g, nil
}

// searchContext applies the configured timeout.
func searchContext(ctx context.Context, c *config.Config) (context.Context, context.CancelFunc) {
	if c.Search.Timeout > 0 {
		return context.WithTimeout(ctx, c.Search.Timeout)
	}
	return context.WithCancel(ctx)
}

func newRunCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search for a plan under one policy and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, env, g, err := f.setup(cmd)
			if err != nil {
				return err
			}
			policy, err := c.Policy()
			if err != nil {
				return err
			}
			ctx, cancel := searchContext(cmd.Context(), c)
			defer cancel()

			rep, err := search.New(env, nil, policy, c.SearchOptions()).Run(ctx, g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rep)
			for _, n := range rep.EP.Tree() {
				fmt.Fprint(out, n)
			}
			for _, d := range rep.EP.Context().Decisions() {
				fmt.Fprintf(out, "object %#x: %v on %v", d.Object, d.Impl, d.Target)
				if d.DS != "" {
					fmt.Fprintf(out, " as %s", d.DS)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	searchFlags(cmd, f)
	cmd.Flags().StringVar(&f.policy, "policy", config.DefaultPolicy,
		"search policy ("+strings.Join(heuristic.Names(), ", ")+")")
	return cmd
}
