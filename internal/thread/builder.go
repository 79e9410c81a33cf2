// Package thread reconstructs a discussion's flat reply rows into the
// nested tree the detail view renders. It is pure: no store access, no
// side effects, deterministic output for a given input.
package thread

import (
	"sort"

	"threadloom/internal/models"
)

// MaxInteractiveDepth is the deepest level at which clients offer a
// reply-to-reply affordance. The builder itself has no depth limit.
const MaxInteractiveDepth = 3

// Node is one reply with its resolved author and ordered children.
type Node struct {
	Reply    models.Reply    `json:"reply"`
	Author   models.UserView `json:"author"`
	Children []*Node         `json:"children"`
}

// Build turns the complete reply set of one discussion into an ordered
// forest of top-level nodes.
//
// Rules:
//   - siblings at every level are ordered by created_at ascending, ties
//     broken by id ascending
//   - a reply whose parent id is not in the input set is dropped together
//     with its whole subtree (the parent may have been deleted while we
//     were reading)
//   - a reply whose author is missing from authors is dropped together
//     with its subtree; a node never carries a hollow author
func Build(replies []models.Reply, authors map[uint]models.User) []*Node {
	if len(replies) == 0 {
		return []*Node{}
	}

	// One pass: group children by parent id so attachment is O(n),
	// not a scan per node.
	byID := make(map[uint]models.Reply, len(replies))
	children := make(map[uint][]models.Reply)
	var roots []models.Reply
	for _, r := range replies {
		byID[r.ID] = r
		if r.ParentID == nil {
			roots = append(roots, r)
		} else {
			children[*r.ParentID] = append(children[*r.ParentID], r)
		}
	}
	// Orphan check is membership in byID, so a reply hanging off a
	// deleted parent never gets attached anywhere.

	sortSiblings(roots)
	forest := make([]*Node, 0, len(roots))
	for _, root := range roots {
		if node := build(root, children, authors); node != nil {
			forest = append(forest, node)
		}
	}
	return forest
}

func build(r models.Reply, children map[uint][]models.Reply, authors map[uint]models.User) *Node {
	author, ok := authors[r.UserID]
	if !ok {
		return nil
	}
	node := &Node{
		Reply:    r,
		Author:   author.View(),
		Children: []*Node{},
	}
	kids := children[r.ID]
	sortSiblings(kids)
	for _, kid := range kids {
		if child := build(kid, children, authors); child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// Size counts the nodes in a forest, subtrees included.
func Size(forest []*Node) int {
	n := 0
	for _, node := range forest {
		n += 1 + Size(node.Children)
	}
	return n
}

func sortSiblings(rs []models.Reply) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}
