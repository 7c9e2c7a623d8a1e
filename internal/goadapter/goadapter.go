package goadapter

import (
	"fmt"
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/cfg"

	"github.com/blockform/blockform/graph"
)

// node adapts one *cfg.Block to graph.Node. Succs[0] is go/cfg's true/only branch, which
// we report as FallThrough; Succs[1:] (the false branch, for an if/for/switch test
// block) is reported as Conditional, matching the priority spec.md's child enumerator
// gives fall-through over conditional successors.
type node struct {
	blk         *cfg.Block
	fset        *token.FileSet
	region      graph.Region
	fallThrough *node
	conditional []graph.Node
	abnormal    []graph.Node
}

func (n *node) Contents() any        { return printBlockContents(n.fset, n.blk.Nodes) }
func (n *node) Region() graph.Region { return n.region }
func (n *node) Conditional() []graph.Node { return n.conditional }
func (n *node) Abnormal() []graph.Node    { return n.abnormal }
func (n *node) FallThrough() (graph.Node, bool) {
	if n.fallThrough == nil {
		return nil, false
	}
	return n.fallThrough, true
}

type cfgImpl struct{ entry graph.Node }

func (c *cfgImpl) Entry() graph.Node { return c.entry }

// Build constructs a graph.CFG over fn's control flow, as computed by golang.org/x/tools/
// go/cfg. Regions mirror fn's if/for/switch/select block nesting. A defer statement at
// the top level of fn's body whose deferred function literal calls the builtin recover
// is modeled as an exception-handler region: the protected region is fn's own body
// (reparented under the new handler region) and the single handler region is the
// deferred literal's body.
func Build(fset *token.FileSet, fn *ast.FuncDecl) (graph.CFG, error) {
	if fn.Body == nil {
		return nil, fmt.Errorf("goadapter: function %s has no body", fn.Name)
	}

	bodyRegion, byBlock := regionTree(fn)
	nodes := wrapBlocks(fset, cfg.New(fn.Body, nil), byBlock, bodyRegion)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("goadapter: function %s has an empty control-flow graph", fn.Name)
	}

	root := &region{}
	root.self = root
	bodyRegion.parent = root

	if lit := deferredRecover(fn.Body); lit != nil {
		handlerRegion, handlerByBlock := regionTreeFromBlock(lit.Body)
		handlerNodes := wrapBlocks(fset, cfg.New(lit.Body, nil), handlerByBlock, handlerRegion)

		eh := &ehRegion{region: region{parent: root}}
		eh.self = eh
		eh.entry = bodyRegion.entry
		eh.protected = bodyRegion
		eh.handlers = []graph.Region{handlerRegion}
		bodyRegion.parent = eh
		handlerRegion.parent = eh

		if len(handlerNodes) > 0 {
			markPanicsAsAbnormal(nodes, handlerNodes[0])
		}
	}

	root.entry = bodyRegion.entry
	return &cfgImpl{entry: bodyRegion.entry}, nil
}

// wrapBlocks builds one *node per block of g, live or not, wires FallThrough/Conditional from
// go/cfg's Succs, assigns each node's region by the position of its first AST fragment,
// and sets region.entry to the function's first block. It returns the nodes in g.Blocks
// order (index 0 is always the entry block, per go/cfg's contract).
func wrapBlocks(fset *token.FileSet, g *cfg.CFG, byBlock map[*ast.BlockStmt]*region, fallback *region) []*node {
	wrapped := make(map[*cfg.Block]*node, len(g.Blocks))
	out := make([]*node, 0, len(g.Blocks))
	for _, blk := range g.Blocks {
		n := &node{blk: blk, fset: fset, region: regionFor(byBlock, fallback, blk)}
		wrapped[blk] = n
		out = append(out, n)
	}
	for _, blk := range g.Blocks {
		n := wrapped[blk]
		switch len(blk.Succs) {
		case 0:
			// terminal block: no successors.
		case 1:
			n.fallThrough = wrapped[blk.Succs[0]]
		default:
			n.fallThrough = wrapped[blk.Succs[0]]
			for _, s := range blk.Succs[1:] {
				n.conditional = append(n.conditional, wrapped[s])
			}
		}
	}
	if len(out) > 0 {
		fallback.entry = out[0]
	}
	return out
}

func regionFor(byBlock map[*ast.BlockStmt]*region, fallback *region, blk *cfg.Block) graph.Region {
	if len(blk.Nodes) == 0 {
		return fallback
	}
	if r := enclosingRegion(byBlock, blk.Nodes[0].Pos()); r != nil {
		return r
	}
	return fallback
}

// deferredRecover returns the deferred function literal if body's own
// statement list contains a top-level `defer func() { ...recover()... }()`.
func deferredRecover(body *ast.BlockStmt) *ast.FuncLit {
	for _, stmt := range body.List {
		d, ok := stmt.(*ast.DeferStmt)
		if !ok {
			continue
		}
		lit, ok := d.Call.Fun.(*ast.FuncLit)
		if !ok || lit.Body == nil {
			continue
		}
		if callsRecover(lit.Body) {
			return lit
		}
	}
	return nil
}

func callsRecover(n ast.Node) bool {
	found := false
	ast.Inspect(n, func(n ast.Node) bool {
		if found {
			return false
		}
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if ident, ok := call.Fun.(*ast.Ident); ok && ident.Name == "recover" {
			found = true
			return false
		}
		return true
	})
	return found
}

// markPanicsAsAbnormal adds handlerEntry as an abnormal successor of every node whose
// block contains a call to the builtin panic, modeling it as the closest Go analogue of
// the "explicit throw/branch-out edge" spec.md's abnormal successors describe.
func markPanicsAsAbnormal(nodes []*node, handlerEntry *node) {
	for _, n := range nodes {
		if callsPanic(n.blk.Nodes) {
			n.abnormal = append(n.abnormal, handlerEntry)
		}
	}
}

func callsPanic(frags []ast.Node) bool {
	for _, f := range frags {
		found := false
		ast.Inspect(f, func(n ast.Node) bool {
			if found {
				return false
			}
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			if ident, ok := call.Fun.(*ast.Ident); ok && ident.Name == "panic" {
				found = true
				return false
			}
			return true
		})
		if found {
			return true
		}
	}
	return false
}
