// Package blockform reconstructs the nested scope-block and basic-block structure of a
// source program from a flat, region-annotated control-flow graph. It is the core of a
// control-flow analysis library: CFG construction, region inference, instruction
// decoding, and IL serialization are all out of scope and are left to adapters that
// implement the graph.Node/graph.Region interfaces.
//
// The single entry point is Build: given a CFG with a designated entry point, it
// produces a deterministic ordering of reachable nodes (Sort, tie-broken by Children)
// and folds that ordering through a scope stack (the reconstructor) to produce the
// root scope block.
package blockform

import (
	"fmt"

	"github.com/blockform/blockform/block"
	"github.com/blockform/blockform/config"
	"github.com/blockform/blockform/graph"
)

// Option configures a single Build call. Every setting that no Option passed to Build
// overrides keeps Build's default.
type Option func(*options)

type options struct {
	maxRegionDepth int
}

// WithMaxRegionDepth overrides config.DefaultMaxRegionDepth for a single Build call, for
// adapters whose regions legitimately nest deeper than the default tolerates. Analyzer
// passes the -max-region-depth flag's value here; direct callers of Build default to
// config.DefaultMaxRegionDepth when this option is omitted.
func WithMaxRegionDepth(depth int) Option {
	return func(o *options) { o.maxRegionDepth = depth }
}

// Build reconstructs the scope-block tree for the given CFG. It panics if the CFG or
// its regions violate the structural invariants documented on graph.Region and
// graph.ExceptionHandlerRegion (see enter and appendChild for the two checks), or
// if the scope stack nests deeper than the configured maximum region depth (see
// config.DefaultMaxRegionDepth); reconstruction never returns a partial tree.
func Build(cfg graph.CFG, opts ...Option) *block.Scope {
	o := options{maxRegionDepth: config.DefaultMaxRegionDepth}
	for _, opt := range opts {
		opt(&o)
	}

	order := Sort(cfg.Entry())
	return reconstruct(order, o.maxRegionDepth)
}

func malformed(format string, args ...any) {
	panic(fmt.Sprintf("blockform: malformed input: "+format, args...))
}

func corrupt(format string, args ...any) {
	panic(fmt.Sprintf("blockform: internal invariant violated: "+format, args...))
}
