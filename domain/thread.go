package domain

import (
	"slices"
	"strings"
)

type ThreadNode struct {
	CommentWithAuthor
	BodyHTML        string        `json:"bodyHtml"`
	Replies         []*ThreadNode `json:"replies"`
	TotalReplyCount int           `json:"totalReplyCount"`
}

// BuildThread nests a flat comment listing into reply trees ordered oldest
// first at every level. Rows whose parent is absent from the listing are
// promoted to roots. Every input row appears exactly once in the output and
// nothing is truncated, however deep the thread goes.
func BuildThread(comments []CommentWithAuthor) []*ThreadNode {
	ordered := make([]*ThreadNode, len(comments))
	for i := range comments {
		ordered[i] = &ThreadNode{CommentWithAuthor: comments[i], Replies: []*ThreadNode{}}
	}
	slices.SortStableFunc(ordered, compareNodes)

	byID := make(map[string]*ThreadNode, len(ordered))
	for _, node := range ordered {
		if _, seen := byID[node.ID]; !seen {
			byID[node.ID] = node
		}
	}

	children := make(map[*ThreadNode][]*ThreadNode)
	roots := make([]*ThreadNode, 0)
	for _, node := range ordered {
		parent := parentOf(node, byID)
		if parent == nil {
			roots = append(roots, node)
			continue
		}
		children[parent] = append(children[parent], node)
	}

	visited := make(map[*ThreadNode]bool, len(ordered))
	var attach func(node *ThreadNode)
	attach = func(node *ThreadNode) {
		visited[node] = true
		for _, child := range children[node] {
			if visited[child] {
				continue
			}
			attach(child)
			node.Replies = append(node.Replies, child)
			node.TotalReplyCount += 1 + child.TotalReplyCount
		}
	}

	for _, root := range roots {
		attach(root)
	}

	// Parent chains that loop back on themselves never reach a root. Break the
	// loop at its oldest member so those rows are still returned.
	for _, node := range ordered {
		if visited[node] {
			continue
		}
		attach(node)
		roots = append(roots, node)
	}
	slices.SortStableFunc(roots, compareNodes)

	return roots
}

func parentOf(node *ThreadNode, byID map[string]*ThreadNode) *ThreadNode {
	if node.ParentCommentID == nil {
		return nil
	}
	parent, ok := byID[*node.ParentCommentID]
	if !ok || parent == node {
		return nil
	}
	return parent
}

func compareNodes(a, b *ThreadNode) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if a.Seq != b.Seq {
		if a.Seq < b.Seq {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

// Walk visits every node depth-first, parents before their replies.
func Walk(nodes []*ThreadNode, fn func(node *ThreadNode)) {
	for _, node := range nodes {
		fn(node)
		Walk(node.Replies, fn)
	}
}

// CountNodes returns the number of nodes in the forest, replies included.
func CountNodes(nodes []*ThreadNode) int {
	total := 0
	for _, node := range nodes {
		total += 1 + node.TotalReplyCount
	}
	return total
}
