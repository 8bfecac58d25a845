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

package ds

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeriveIDIsIdempotent(t *testing.T) {
	for _, kind := range []Kind{KindTable, KindRegister, KindCachedTable} {
		a, b := DeriveID(kind, 7), DeriveID(kind, 7)
		if a != b {
			t.Errorf("DeriveID(%v, 7) = %q then %q", kind, a, b)
		}
		if other := DeriveID(kind, 8); other == a {
			t.Errorf("DeriveID(%v, 8) = %q, collides with node 7", kind, other)
		}
	}
	if DeriveID(KindTable, 3) == DeriveID(KindRegister, 3) {
		t.Error("table and register derived from the same node share an ID")
	}
}

func TestIndexWidth(t *testing.T) {
	tests := []struct {
		capacity, want int
	}{
		{0, 1}, {1, 1}, {2, 1}, {3, 2}, {1024, 10}, {1025, 11}, {65536, 16},
	}
	for _, tt := range tests {
		if got := IndexWidth(tt.capacity); got != tt.want {
			t.Errorf("IndexWidth(%d) = %d, want %d", tt.capacity, got, tt.want)
		}
	}
}

func TestResources(t *testing.T) {
	tests := []struct {
		name string
		ds   DS
		want Resources
	}{
		{
			name: "table",
			ds:   NewTable(1, []int{32}, []int{32}, 1024),
			want: Resources{SRAMBits: 1024 * 64, XbarBits: 32, Keys: 1, LogicalTables: 1},
		},
		{
			name: "two key table",
			ds:   NewTable(1, []int{32, 16}, nil, 10),
			want: Resources{SRAMBits: 480, XbarBits: 48, Keys: 2, LogicalTables: 1},
		},
		{
			name: "register",
			ds:   NewRegister(2, 1000, 32, RegisterRead),
			want: Resources{SRAMBits: 1024 * 32, MapRAMBits: 1024 * 32, XbarBits: 10, LogicalTables: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.ds.Resources()); diff != "" {
				t.Errorf("Resources() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCachedTableComponents(t *testing.T) {
	c := NewCachedTable(4, 1024, 48, 32)
	comps := c.Components()
	var ids []ID
	var sum Resources
	for _, d := range comps {
		ids = append(ids, d.ID())
		sum = sum.Add(d.Resources())
	}
	want := []ID{"cache_4_table", "cache_4_key0", "cache_4_key1", "cache_4_expiry"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("Components() ids mismatch (-want +got):\n%s", diff)
	}
	if got := c.Resources(); got != sum {
		t.Errorf("Resources() = %+v, want sum of components %+v", got, sum)
	}
	if got := comps[2].(*Register).ValueWidth; got != 16 {
		t.Errorf("second key register width = %d, want 16", got)
	}
}
