package blockform

import (
	"fmt"
	"go/ast"
	"reflect"
	"runtime/debug"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/blockform/blockform/block"
	"github.com/blockform/blockform/config"
	"github.com/blockform/blockform/internal/goadapter"
)

const _analyzerDoc = "Reconstruct the nested scope/basic/exception-handler block tree for every " +
	"function in a package from its control-flow graph"

// Result is the per-package output of Analyzer: the reconstructed block tree for every
// function blockform was able to build a CFG for, and the recovered error for every one
// it wasn't (a malformed-input panic never escapes a single function's analysis and take
// the whole package down with it).
type Result struct {
	Trees  map[*ast.FuncDecl]*block.Scope
	Errors map[*ast.FuncDecl]error
}

// Analyzer drives internal/goadapter and Build over every function declaration in the
// package under analysis. cmd/blockform runs it directly via singlechecker.Main;
// cmd/gclplugin registers it as a golangci-lint module plugin.
var Analyzer = &analysis.Analyzer{
	Name:       "blockform",
	Doc:        _analyzerDoc,
	Run:        runAnalyzer,
	Requires:   []*analysis.Analyzer{inspect.Analyzer, config.Analyzer},
	ResultType: reflect.TypeOf(Result{}),
}

func runAnalyzer(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	conf := pass.ResultOf[config.Analyzer].(config.Settings)

	// Suppress -report-summary's self-referential noise when blockform analyzes its own
	// source, the same carve-out config.BlockformPkgPathPrefix documents.
	reportSummary := conf.ReportSummary && !strings.HasPrefix(pass.Pkg.Path(), config.BlockformPkgPathPrefix)

	result := Result{
		Trees:  make(map[*ast.FuncDecl]*block.Scope),
		Errors: make(map[*ast.FuncDecl]error),
	}

	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		fn := n.(*ast.FuncDecl)
		if fn.Body == nil || skip(fn) {
			return
		}

		tree, err := buildOne(pass, fn, conf.MaxRegionDepth)
		if err != nil {
			result.Errors[fn] = err
			return
		}
		result.Trees[fn] = tree

		if reportSummary {
			pass.Report(analysis.Diagnostic{
				Pos:     fn.Pos(),
				Message: fmt.Sprintf("blockform: %s", summarize(tree)),
			})
		}
	})

	return result, nil
}

// skip reports whether fn's doc comment opts it out of analysis.
func skip(fn *ast.FuncDecl) bool {
	return fn.Doc != nil && strings.Contains(fn.Doc.Text(), config.BlockformNoAdaptString)
}

// buildOne builds fn's block tree, converting any panic raised by a malformed CFG (per
// spec.md §7) into an error scoped to fn alone, the same recover-and-convert pattern
// NilAway's own top-level sub-analyzers use to keep one bad function from failing a
// whole package's analysis.
func buildOne(pass *analysis.Pass, fn *ast.FuncDecl, maxRegionDepth int) (tree *block.Scope, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("blockform: building %s: %v\n%s", fn.Name, r, string(debug.Stack()))
		}
	}()

	cfg, err := goadapter.Build(pass.Fset, fn)
	if err != nil {
		return nil, err
	}
	return Build(cfg, WithMaxRegionDepth(maxRegionDepth)), nil
}

// summarize renders a one-line count of a block tree's contents for -report-summary.
func summarize(root *block.Scope) string {
	var basics, scopes, handlers int
	var walk func(block.Block)
	walk = func(b block.Block) {
		switch v := b.(type) {
		case *block.Basic:
			basics++
		case *block.Scope:
			scopes++
			for _, c := range v.Children {
				walk(c)
			}
		case *block.ExceptionHandler:
			handlers++
			walk(v.Protected())
			for _, h := range v.Handlers() {
				walk(h)
			}
		}
	}
	walk(root)
	return fmt.Sprintf("%d basic block(s), %d nested scope(s), %d exception handler(s)", basics, scopes, handlers)
}
