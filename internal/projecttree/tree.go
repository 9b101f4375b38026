// Package projecttree turns flat, parent-referencing project rows into a
// nested forest and edits path-addressed sidebar trees.
package projecttree

import (
	"sort"

	"github.com/petermazzocco/go-dashboard/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MaxProjectNestingDepth is the deepest level a project may sit at, counting
// roots as level 0. With 1, a root may have children but they may not.
const MaxProjectNestingDepth = 1

// Node is a project together with its direct children.
type Node struct {
	models.Project
	Children []*Node `json:"children"`
}

// BuildProjectTree links projects to their parents by ParentID. Projects
// whose parent is nil or not in the list become roots. Every level is
// ordered by name.
func BuildProjectTree(projects []models.Project) []*Node {
	byID := make(map[uint]*Node, len(projects))
	nodes := make([]*Node, 0, len(projects))
	for _, p := range projects {
		n := &Node{Project: p, Children: []*Node{}}
		byID[p.ID] = n
		nodes = append(nodes, n)
	}

	roots := []*Node{}
	for _, n := range nodes {
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok && parent != n {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	// Rows that form a parent cycle are unreachable from any root. Promote
	// the first member of each cycle so every project is still returned.
	seen := make(map[*Node]bool, len(nodes))
	var mark func(*Node)
	mark = func(n *Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, child := range n.Children {
			mark(child)
		}
	}
	for _, r := range roots {
		mark(r)
	}
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		parent := byID[*n.ParentID]
		parent.Children = removeNode(parent.Children, n)
		roots = append(roots, n)
		mark(n)
	}

	c := collate.New(language.English)
	sortNodes(c, roots)
	for _, n := range nodes {
		sortNodes(c, n.Children)
	}
	return roots
}

func sortNodes(c *collate.Collator, nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if r := c.CompareString(nodes[i].Name, nodes[j].Name); r != 0 {
			return r < 0
		}
		return nodes[i].ID < nodes[j].ID
	})
}

func removeNode(nodes []*Node, target *Node) []*Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	n := 0
	for _, node := range forest {
		n += 1 + Count(node.Children)
	}
	return n
}
