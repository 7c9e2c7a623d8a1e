package blockform

import (
	"github.com/blockform/blockform/block"
	"github.com/blockform/blockform/graph"
)

// scopeFrame is one level of the open-region stack. A frame is either:
//   - a plain frame, whose block is the Scope that nodes in region should be appended
//     to (the root frame, an ordinary nested region, a reused protected scope, or a
//     fresh handler scope), or
//   - an exception-handler wrapper frame, whose block is the ExceptionHandler itself —
//     it holds no append target of its own and exists only so that the next Enter step
//     (always the protected or a handler sub-region) has something to push onto.
//
// region is always the region actually entered to produce this frame — including for
// handler pushes, where the original implementation this library supersedes reused the
// protected region's identity instead. Storing the real entered region here is required
// for reconcile's common-prefix comparison to work correctly when a try region has more
// than one handler.
type scopeFrame struct {
	region graph.Region
	scope  *block.Scope
	eh     *block.ExceptionHandler
}

func (f *scopeFrame) isWrapper() bool { return f.eh != nil }

// reconstruct consumes a sorted node stream and returns the root scope block. maxDepth
// bounds how many scopeFrames reconcile may stack up before treating the region chain as
// malformed input (see config.DefaultMaxRegionDepth).
func reconstruct(order []graph.Node, maxDepth int) *block.Scope {
	if len(order) == 0 {
		return block.NewScope()
	}

	root := block.NewScope()
	rootRegion := cfgRoot(order[0].Region())
	stack := []*scopeFrame{{region: rootRegion, scope: root}}

	for _, n := range order {
		top := stack[len(stack)-1]
		if top.region != n.Region() {
			stack = reconcile(stack, regionChain(n.Region()), maxDepth)
			top = stack[len(stack)-1]
		}
		appendBasic(top, n)
	}

	return root
}

// cfgRoot walks a region's parent chain up to (and returns) the CFG root region.
func cfgRoot(r graph.Region) graph.Region {
	for {
		parent, ok := r.Parent()
		if !ok {
			return r
		}
		r = parent
	}
}

// regionChain returns r's region chain from the CFG root (index 0) down to r itself.
func regionChain(r graph.Region) []graph.Region {
	var reversed []graph.Region
	for cur := r; ; {
		reversed = append(reversed, cur)
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	chain := make([]graph.Region, len(reversed))
	for i, r := range reversed {
		chain[len(reversed)-1-i] = r
	}
	return chain
}

// reconcile pops stack frames until its region path is a prefix of chain, then pushes
// fresh frames until the stack's top matches chain's innermost region. It panics via
// malformed if doing so would nest the stack past maxDepth frames: a region chain this
// deep is the ambient-layer signature of a cyclic or otherwise corrupt region graph (see
// config.DefaultMaxRegionDepth), not a legitimately deep program.
func reconcile(stack []*scopeFrame, chain []graph.Region, maxDepth int) []*scopeFrame {
	common := 1 // both stack[0] and chain[0] are always the CFG root region
	for common < len(stack) && common < len(chain) && stack[common].region == chain[common] {
		common++
	}

	stack = stack[:common]

	if len(chain) > maxDepth {
		malformed("region chain depth %d exceeds the configured maximum of %d", len(chain), maxDepth)
	}

	for i := common; i < len(chain); i++ {
		stack = append(stack, enter(stack[len(stack)-1], chain[i]))
	}
	return stack
}

// enter produces the frame for stepping from top into region, appending whatever
// output block that step creates to top's block.
func enter(top *scopeFrame, region graph.Region) *scopeFrame {
	if eh, ok := region.(graph.ExceptionHandlerRegion); ok {
		ehBlock := block.NewExceptionHandler()
		appendChild(top, ehBlock)
		return &scopeFrame{region: region, eh: ehBlock}
	}

	parent, hasParent := region.Parent()
	if hasParent {
		if ehParent, ok := parent.(graph.ExceptionHandlerRegion); ok {
			if !top.isWrapper() {
				corrupt("entering sub-region %v of exception-handler region but stack top is not its wrapper frame", region)
			}
			if region == ehParent.Protected() {
				return &scopeFrame{region: region, scope: top.eh.Protected()}
			}
			for _, h := range ehParent.Handlers() {
				if h == region {
					return &scopeFrame{region: region, scope: top.eh.AppendHandler()}
				}
			}
			malformed("region %v is neither the protected sub-region nor a listed handler sub-region of its exception-handler parent", region)
		}
	}

	scope := block.NewScope()
	appendChild(top, scope)
	return &scopeFrame{region: region, scope: scope}
}

// appendChild appends b to top's scope block. It is a programming error to reach here
// with top being an exception-handler wrapper frame: the Enter step always pushes a
// wrapper frame's protected-or-handler child immediately, so a wrapper frame should
// never be the stack top when a basic or scope block needs to be appended.
func appendChild(top *scopeFrame, b block.Block) {
	if top.scope == nil {
		corrupt("cannot append a %s block to an exception-handler wrapper frame", b.Kind())
	}
	top.scope.Append(b)
}

func appendBasic(top *scopeFrame, n graph.Node) {
	appendChild(top, block.NewBasic(n.Contents()))
}
