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
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/netsynth/heuristic"
	"github.com/ajroetker/netsynth/score"
	"github.com/ajroetker/netsynth/search"
	"github.com/ajroetker/netsynth/target"
)

func newCompareCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every built-in policy concurrently and tabulate the plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, env, g, err := f.setup(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := searchContext(cmd.Context(), c)
			defer cancel()

			policies := heuristic.Policies()
			reports := make([]*search.Report, len(policies))
			eg, ctx := errgroup.WithContext(ctx)
			for i, p := range policies {
				eg.Go(func() error {
					rep, err := search.New(env, nil, p, c.SearchOptions()).Run(ctx, g)
					if err != nil && !search.IsAbort(err) {
						return fmt.Errorf("%s: %w", p.Name(), err)
					}
					reports[i] = rep
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "POLICY\tSTATE\tSTEPS\tPLANS\tNODES\tSWITCH\tCONTROLLER\tHOST\tTRAFFIC‰")
			for _, rep := range reports {
				if rep.EP == nil {
					fmt.Fprintf(w, "%s\t%v\t%d\t%d\t-\t-\t-\t-\t-\n", rep.Policy, rep.State, rep.Steps, rep.Plans)
					continue
				}
				ep := rep.EP
				fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
					rep.Policy, rep.State, rep.Steps, rep.Plans, ep.Len(),
					ep.TargetNodes(target.Switch), ep.TargetNodes(target.Controller), ep.TargetNodes(target.Host),
					score.Extract(score.ControllerTrafficPermille, ep))
			}
			return w.Flush()
		},
	}
	searchFlags(cmd, f)
	return cmd
}
