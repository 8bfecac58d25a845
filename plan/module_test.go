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

	"github.com/ajroetker/netsynth/expr"
	"github.com/ajroetker/netsynth/ir"
	"github.com/ajroetker/netsynth/target"
)

func TestModuleValidate(t *testing.T) {
	key := []*expr.Expr{expr.Sym("k", 32)}
	args := map[string]ir.Arg{ir.ArgMap: {In: expr.Const(0x10, 64)}}
	tests := []struct {
		name string
		m    Module
		ok   bool
	}{
		{"switch if", NewModule(target.Switch, OpIf, 1, Payload{Cond: expr.Bool(true)}), true},
		{"if without condition", NewModule(target.Host, OpIf, 1, Payload{}), false},
		{"then is structural", NewModule(target.Controller, OpThen, ir.None, Payload{}), true},
		{"drop without source", NewModule(target.Host, OpDrop, ir.None, Payload{}), false},
		{"table lookup", NewModule(target.Switch, OpTableLookup, 2, Payload{DS: "table_2", Keys: key}), true},
		{"table lookup without keys", NewModule(target.Switch, OpTableLookup, 2, Payload{DS: "table_2"}), false},
		{"table lookup on host", NewModule(target.Host, OpTableLookup, 2, Payload{DS: "table_2", Keys: key}), false},
		{"host map get", NewModule(target.Host, OpMapGet, 2, Payload{Object: 0x10, Args: args}), true},
		{"map get on switch", NewModule(target.Switch, OpMapGet, 2, Payload{Object: 0x10, Args: args}), false},
		{"map get without object", NewModule(target.Controller, OpMapGet, 2, Payload{Args: args}), false},
		{"cache without capacity", NewModule(target.Switch, OpCachedTableRead, 2, Payload{DS: "cache_2", Keys: key}), false},
		{"controller table update", NewModule(target.Controller, OpTableUpdate, 3, Payload{DS: "table_2", Keys: key}), true},
		{"send to controller", NewModule(target.Switch, OpSendToController, 3, Payload{}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.ok && err != nil {
				t.Errorf("%v.Validate() = %v, want nil", tt.m, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidModule) {
				t.Errorf("%v.Validate() = %v, want ErrInvalidModule", tt.m, err)
			}
		})
	}
}

func TestModuleString(t *testing.T) {
	m := NewModule(target.Switch, OpTableLookup, 2, Payload{DS: "table_2", Keys: []*expr.Expr{expr.Sym("k", 32)}})
	if got, want := m.String(), "switch:TableLookup(n2 ds=table_2)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
