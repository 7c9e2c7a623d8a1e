package config

// This file hosts non-user-configurable parameters --- these are for development and testing purposes only.

// DefaultMaxRegionDepth is the region-nesting depth at which Build treats further nesting
// as a sign of malformed input (a cyclic or otherwise corrupt region chain) rather than a
// legitimately deep program. It is deliberately generous: real source nests scopes a few
// levels deep at most, but decompiler output can occasionally produce deeper trees than
// hand-written code ever would. Analyzer exposes it as the -max-region-depth flag; a
// direct Build caller can override it per call with blockform.WithMaxRegionDepth.
const DefaultMaxRegionDepth = 256

// BlockformNoAdaptString is the string that may be inserted into a function's doc comment
// to tell cmd/blockform to skip it, the same way NilAway's doc-comment opt-out works.
const BlockformNoAdaptString = "<blockform no adapt>"

const modulePathPrefix = "github.com/blockform"

// BlockformPkgPathPrefix is the package prefix for blockform's own packages. Analyzer
// checks pass.Pkg.Path() against it to suppress -report-summary diagnostics when
// blockform analyzes its own source, the same self-analysis carve-out
// NilAwayPkgPathPrefix gives NilAway's own experimental-feature gating.
const BlockformPkgPathPrefix = modulePathPrefix + "/blockform"
