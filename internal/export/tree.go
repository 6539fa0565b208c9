package export

import (
	"fmt"

	"pagebuilder/api/internal/layout"
	"pagebuilder/api/internal/store"
)

// BuildPage arranges the page's components under their parents and derives
// every node's percentage style. A parent that names no component, names
// several, or a parent chain that loops yields layout.ErrBrokenReference.
func BuildPage(page store.Page, components []store.Component, n layout.Normalizer) (Page, error) {
	byCompID := make(map[string][]int, len(components))
	for i, c := range components {
		byCompID[c.CompID] = append(byCompID[c.CompID], i)
	}

	children := make(map[int][]int, len(components))
	var roots []int
	for i, c := range components {
		if c.Parent == nil {
			roots = append(roots, i)
			continue
		}
		matches := byCompID[*c.Parent]
		if len(matches) != 1 {
			return Page{}, fmt.Errorf("%w: component %q names parent %q (%d matches)", layout.ErrBrokenReference, c.CompID, *c.Parent, len(matches))
		}
		children[matches[0]] = append(children[matches[0]], i)
	}

	visited := 0
	var build func(idx int, parent *layout.Box) (*Node, error)
	build = func(idx int, parent *layout.Box) (*Node, error) {
		visited++
		c := components[idx]
		style, err := n.DeriveStyle(c.SecondaryState, c.Box(), parent)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", c.CompID, err)
		}
		node := &Node{CompID: c.CompID, Root: parent == nil, Style: style}
		box := c.Box()
		for _, child := range children[idx] {
			childNode, err := build(child, &box)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, childNode)
		}
		return node, nil
	}

	out := Page{ID: page.ID, Title: page.Title}
	for _, idx := range roots {
		node, err := build(idx, nil)
		if err != nil {
			return Page{}, err
		}
		out.Roots = append(out.Roots, node)
	}
	if visited != len(components) {
		return Page{}, fmt.Errorf("%w: %d components unreachable from a root", layout.ErrBrokenReference, len(components)-visited)
	}
	return out, nil
}
