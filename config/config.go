// Package config hosts the flags shared by cmd/blockform and cmd/gclplugin, following
// the same flag.FlagSet-on-an-analysis.Analyzer shape NilAway uses to let a single
// checker expose configuration to more than one driver.
package config

import (
	"reflect"

	"golang.org/x/tools/go/analysis"
)

// Analyzer carries no diagnostics of its own; cmd/blockform lifts its Flags to the
// top-level flag.FlagSet (mirroring cmd/nilaway/main.go), and cmd/gclplugin applies
// golangci-lint's settings map to it with Flags.Set (mirroring cmd/gclplugin/gclplugin.go).
var Analyzer = &analysis.Analyzer{
	Name:       "blockform_config",
	Doc:        "hosts configuration flags shared by the blockform CLI and its golangci-lint plugin",
	Run:        run,
	ResultType: reflect.TypeOf(Settings{}),
}

// Settings is the result type of Analyzer, a snapshot of the flag values at analysis time.
type Settings struct {
	ReportSummary  bool
	MaxRegionDepth int
}

var (
	// reportSummary, when set, tells the blockform analyzer to additionally report one
	// diagnostic per analyzed function summarizing the block tree it reconstructed.
	reportSummary bool
	// maxRegionDepth overrides DefaultMaxRegionDepth, for adapters that legitimately
	// produce deeper region nesting than the default tolerates.
	maxRegionDepth int
)

func init() {
	Analyzer.Flags.BoolVar(&reportSummary, "report-summary", false,
		"report a diagnostic per function summarizing its reconstructed block tree")
	Analyzer.Flags.IntVar(&maxRegionDepth, "max-region-depth", DefaultMaxRegionDepth,
		"maximum region nesting depth accepted from an adapter before input is treated as malformed")
}

func run(*analysis.Pass) (interface{}, error) {
	return Settings{ReportSummary: reportSummary, MaxRegionDepth: maxRegionDepth}, nil
}
