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
	"fmt"
	"strings"
)

// NodeID is the ordinal of a Node within its execution plan.
type NodeID int

// Node is one implemented module in an execution plan. Nodes are shared by
// every plan derived from the one that created them and are never mutated.
type Node struct {
	ID     NodeID
	Module Module
	Parent *Node
	Depth  int
}

// link is a cell of the persistent list of nodes, newest first.
type link struct {
	node *Node
	prev *link
}

// TreeNode is the materialized view of a Node with its children.
type TreeNode struct {
	ID       NodeID
	Module   Module
	Children []*TreeNode
}

// String renders the subtree rooted at t, one module per line.
func (t *TreeNode) String() string {
	var sb strings.Builder
	t.format(&sb, 0)
	return sb.String()
}

func (t *TreeNode) format(sb *strings.Builder, indent int) {
	fmt.Fprintf(sb, "%s[%d] %s\n", strings.Repeat("  ", indent), t.ID, t.Module)
	for _, c := range t.Children {
		c.format(sb, indent+1)
	}
}
