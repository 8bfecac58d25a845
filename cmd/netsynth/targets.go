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

	"github.com/spf13/cobra"

	"github.com/ajroetker/netsynth/target"
)

func newTargetsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the configured targets and their budgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.load(cmd)
			if err != nil {
				return err
			}
			set, err := c.TargetSet()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range set {
				switch t.Kind {
				case target.Switch:
					s := t.Switch
					fmt.Fprintf(out, "%s: %d stages, %d SRAM bits/stage (%d total), %d xbar bits/stage, %d tables/stage, %d exact match keys, caches %v\n",
						t, s.Stages, s.SRAMBitsPerStage, s.TotalSRAMBits(), s.XbarBitsPerStage,
						s.MaxLogicalTablesPerStage, s.MaxExactMatchKeys, s.CacheCapacities)
				case target.Controller:
					fmt.Fprintf(out, "%s: %d bytes, at most %.0f%% of traffic\n",
						t, t.Controller.MemoryBytes, t.Controller.MaxTrafficFraction*100)
				case target.Host:
					h := t.Host
					fmt.Fprintf(out, "%s: %d bytes, %s, checksum engine %s\n",
						t, h.MemoryBytes, h.Features.Arch, h.Features.ChecksumEngine())
				}
			}
			return nil
		},
	}
}
