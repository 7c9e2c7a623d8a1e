package goadapter

import (
	"go/ast"
	"go/token"

	"github.com/blockform/blockform/graph"
)

// region is a plain, lexically-scoped graph.Region: one per *ast.BlockStmt (the
// function body itself, plus every nested if/for/switch/select body), with Parent
// following the AST's own block nesting. Switch and select case clauses are not
// *ast.BlockStmts and get no region of their own.
type region struct {
	block  *ast.BlockStmt
	parent graph.Region
	entry  graph.Node
	self   graph.Region
}

func (r *region) Parent() (graph.Region, bool) {
	if r.parent == nil {
		return nil, false
	}
	return r.parent, true
}

func (r *region) EntryPoint() graph.Node { return r.entry }

func (r *region) Contains(n graph.Node) bool {
	bn, ok := n.(*node)
	if !ok {
		return false
	}
	for cur := bn.region; cur != nil; {
		if cur == r.self {
			return true
		}
		parent, ok := cur.Parent()
		if !ok {
			return false
		}
		cur = parent
	}
	return false
}

// ehRegion models a defer-guarded recover() as an exception-handler region: Protected is
// the region of the function's whole body (statements before the defer included), and
// Handlers holds the single region covering the deferred function literal's body.
type ehRegion struct {
	region
	protected graph.Region
	handlers  []graph.Region
}

func (e *ehRegion) Protected() graph.Region  { return e.protected }
func (e *ehRegion) Handlers() []graph.Region { return e.handlers }

// regionTree builds one region per *ast.BlockStmt reachable from fn's body, wiring
// Parent pointers by lexical containment. It returns the region for fn.Body (the
// function's top-level scope) and a lookup from *ast.BlockStmt to its region.
func regionTree(fn *ast.FuncDecl) (*region, map[*ast.BlockStmt]*region) {
	return regionTreeFromBlock(fn.Body)
}

// regionTreeFromBlock is regionTree generalized to any top-level *ast.BlockStmt, so it
// can also build the region tree for a deferred function literal's body.
func regionTreeFromBlock(root *ast.BlockStmt) (*region, map[*ast.BlockStmt]*region) {
	byBlock := make(map[*ast.BlockStmt]*region)

	// ast.Inspect signals "leaving n" with a trailing f(nil) call for every n whose
	// children it descended into, not just *ast.BlockStmt, so nodeStack (every node on
	// the path) and regionStack (just the open *ast.BlockStmt regions) are tracked in
	// parallel: a nil callback only pops regionStack when the node it's closing out was
	// itself the *ast.BlockStmt that pushed it.
	var nodeStack []ast.Node
	var regionStack []*region

	ast.Inspect(root, func(n ast.Node) bool {
		if n == nil {
			last := nodeStack[len(nodeStack)-1]
			nodeStack = nodeStack[:len(nodeStack)-1]
			if _, ok := last.(*ast.BlockStmt); ok {
				regionStack = regionStack[:len(regionStack)-1]
			}
			return true
		}

		if bs, ok := n.(*ast.BlockStmt); ok {
			r := &region{block: bs}
			r.self = r
			if len(regionStack) > 0 {
				r.parent = regionStack[len(regionStack)-1]
			}
			byBlock[bs] = r
			regionStack = append(regionStack, r)
		}
		nodeStack = append(nodeStack, n)
		return true
	})

	return byBlock[root], byBlock
}

// enclosingRegion returns the region of the smallest *ast.BlockStmt containing pos,
// among the blocks recorded in byBlock.
func enclosingRegion(byBlock map[*ast.BlockStmt]*region, pos token.Pos) *region {
	var best *region
	var bestLen token.Pos
	for bs, r := range byBlock {
		if pos < bs.Pos() || pos > bs.End() {
			continue
		}
		length := bs.End() - bs.Pos()
		if best == nil || length < bestLen {
			best = r
			bestLen = length
		}
	}
	return best
}
