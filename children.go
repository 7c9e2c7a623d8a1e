package blockform

import "github.com/blockform/blockform/graph"

// Children returns n's successors in the fixed priority order the sorter relies on to
// keep fall-through runs contiguous and handler bodies reachable from their protected
// code:
//
//  1. the fall-through successor, if any;
//  2. each conditional successor, in declaration order;
//  3. each abnormal successor, in declaration order;
//  4. for every exception-handler region enclosing n whose protected sub-region n lies
//     within, the entry point of each of its handler sub-regions, in declaration order,
//     walking outward one exception-handler region at a time.
//
// Successors already emitted by an earlier step are skipped; the returned slice has no
// duplicates.
func Children(n graph.Node) []graph.Node {
	seen := make(map[graph.Node]bool)
	var out []graph.Node

	add := func(c graph.Node) {
		if c == nil || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}

	if ft, ok := n.FallThrough(); ok {
		add(ft)
	}
	for _, c := range n.Conditional() {
		add(c)
	}
	for _, c := range n.Abnormal() {
		add(c)
	}

	// Walk n's region chain outward. At each step r is the region we came from and
	// parent is its enclosing region; whenever parent is an exception-handler region
	// and r is precisely its protected sub-region, n is protected code for that
	// handler region, so its handlers become synthetic successors.
	for r := n.Region(); r != nil; {
		parent, ok := r.Parent()
		if !ok {
			break
		}
		if eh, ok := parent.(graph.ExceptionHandlerRegion); ok && eh.Protected() == r {
			for _, h := range eh.Handlers() {
				add(h.EntryPoint())
			}
		}
		r = parent
	}

	return out
}
