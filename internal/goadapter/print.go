// Package goadapter builds a graph.CFG over a real Go function's control-flow graph,
// obtained from golang.org/x/tools/go/cfg, so the reconstruction core in the parent
// package can be driven from actual Go source rather than hand-authored fixtures. It is
// a worked example of wiring an external CFG provider into blockform.Build, not part of
// the reconstruction core itself.
package goadapter

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"strings"
)

// printNode renders an AST node (typically one of a cfg.Block's Nodes) back to source
// text, for use as a block.Basic's Contents.
func printNode(fset *token.FileSet, n ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, n); err != nil {
		panic(fmt.Sprintf("goadapter: print AST node: %v", err))
	}
	return oneLine(buf.String())
}

// oneLine collapses a (possibly multi-statement, multi-line) rendering down to a single
// line, since a block's contents are reported as one summary string.
func oneLine(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// printBlockContents renders every statement/expression fragment x/tools/go/cfg grouped
// into one basic block, joined the way a disassembly listing joins its instructions.
func printBlockContents(fset *token.FileSet, nodes []ast.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = printNode(fset, n)
	}
	return strings.Join(parts, "; ")
}
