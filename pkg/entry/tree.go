package entry

import (
	"fmt"
	"sort"
	"strings"
)

// node is a node of the route tree. Static children win over the param
// child, which wins over the catch-all child.
type node struct {
	segment   string
	paramName string

	page   *page
	layout *page

	children      []*node
	paramChild    *node
	catchAllChild *node
}

func (n *node) findChild(segment string) *node {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

func (n *node) addChild(segment string) *node {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := &node{segment: segment}
	n.children = append(n.children, child)
	return child
}

// addDynamic returns the param or catch-all child, creating it if needed.
// Two files declaring the same position under different names conflict.
func (n *node) addDynamic(slot **node, name string) (*node, error) {
	if *slot == nil {
		*slot = &node{paramName: name}
	}
	if (*slot).paramName != name {
		return nil, fmt.Errorf("parameter %q conflicts with %q", name, (*slot).paramName)
	}
	return *slot, nil
}

// insert walks (and extends) the tree along a route pattern and returns the
// final node.
func (n *node) insert(pattern string) (*node, error) {
	current := n
	for _, seg := range splitPattern(pattern) {
		var err error
		switch {
		case strings.HasPrefix(seg, "*"):
			current, err = current.addDynamic(&current.catchAllChild, seg[1:])
		case strings.HasPrefix(seg, ":"):
			current, err = current.addDynamic(&current.paramChild, seg[1:])
		default:
			current = current.addChild(seg)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

// match resolves segments to a page. Layouts met on the way are appended
// to layouts from the outermost in. Params are filled as matched and
// removed again when a branch fails.
func (n *node) match(segments []string, params map[string]string, layouts []*page) (*page, []*page, bool) {
	if n.layout != nil {
		layouts = append(layouts, n.layout)
	}

	if len(segments) == 0 {
		if n.page != nil {
			return n.page, layouts, true
		}
		return nil, nil, false
	}

	segment, rest := segments[0], segments[1:]

	if child := n.findChild(segment); child != nil {
		if p, l, ok := child.match(rest, params, layouts); ok {
			return p, l, true
		}
	}

	if n.paramChild != nil {
		params[n.paramChild.paramName] = segment
		if p, l, ok := n.paramChild.match(rest, params, layouts); ok {
			return p, l, true
		}
		delete(params, n.paramChild.paramName)
	}

	if c := n.catchAllChild; c != nil && c.page != nil {
		params[c.paramName] = strings.Join(segments, "/")
		if c.layout != nil {
			layouts = append(layouts, c.layout)
		}
		return c.page, layouts, true
	}

	return nil, nil, false
}

// layoutChain returns the layouts along an inserted pattern, outermost
// first.
func (n *node) layoutChain(pattern string) []*page {
	var out []*page
	current := n
	if current.layout != nil {
		out = append(out, current.layout)
	}
	for _, seg := range splitPattern(pattern) {
		switch {
		case strings.HasPrefix(seg, "*"):
			current = current.catchAllChild
		case strings.HasPrefix(seg, ":"):
			current = current.paramChild
		default:
			current = current.findChild(seg)
		}
		if current == nil {
			break
		}
		if current.layout != nil {
			out = append(out, current.layout)
		}
	}
	return out
}

func splitPattern(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Route describes one page route.
type Route struct {
	// Pattern is the URL pattern, e.g. "/users/:id".
	Pattern string

	// File is the page file relative to the pages directory.
	File string

	// Layouts lists the wrapping layout files, outermost first.
	Layouts []string
}

// sortRoutes orders routes by pattern with static segments before
// parameters and parameters before catch-alls.
func sortRoutes(routes []Route) {
	key := func(p string) string {
		r := strings.NewReplacer(":", "\xfe", "*", "\xff")
		return r.Replace(p)
	}
	sort.Slice(routes, func(i, j int) bool {
		return key(routes[i].Pattern) < key(routes[j].Pattern)
	})
}
