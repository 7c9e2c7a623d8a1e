// Package main implements the blockform command-line driver. By default it runs
// blockform.Analyzer as a golang.org/x/tools/go/analysis checker over real Go packages,
// exactly the way cmd/nilaway/main.go runs NilAway. Given -fixture, it instead builds
// block trees directly from internal/fixture's YAML CFG format, for experimenting with
// the reconstruction core without a real Go package to point the analyzer at.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/blockform/blockform"
	"github.com/blockform/blockform/config"
	"github.com/blockform/blockform/internal/fixture"
)

var (
	_fixture  string
	_out      string
	_compress bool
)

func main() {
	// Lift config.Analyzer's flags to the top level, the same way cmd/nilaway/main.go
	// does for NilAway's config analyzer, so users don't need to address them through
	// singlechecker's per-analyzer flag namespacing.
	config.Analyzer.Flags.VisitAll(func(f *flag.Flag) { flag.Var(f.Value, f.Name, f.Usage) })

	flag.StringVar(&_fixture, "fixture", "",
		"path to a YAML fixture CFG, or a directory of them, to build directly instead of running as an analysis driver")
	flag.StringVar(&_out, "out", "",
		"output path for -fixture's YAML block-tree dump (a directory when -fixture names one); empty means stdout for a single fixture")
	flag.BoolVar(&_compress, "compress", false, "wrap -fixture's YAML dump in a zstd stream")
	flag.Parse()

	if _fixture != "" {
		// config.Analyzer.Run ignores its *analysis.Pass argument, so calling it
		// directly (outside of an analysis.Pass) is the same trick cmd/nilaway/main.go
		// uses to read back the flags it just lifted to the top level.
		settings, err := config.Analyzer.Run(nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "blockform: %v\n", err)
			os.Exit(1)
		}
		if err := runFixture(_fixture, _out, _compress, settings.(config.Settings).MaxRegionDepth); err != nil {
			fmt.Fprintf(os.Stderr, "blockform: %v\n", err)
			os.Exit(1)
		}
		return
	}

	singlechecker.Main(blockform.Analyzer)
}

// runFixture builds every fixture named by path. A directory is expanded to its *.yaml
// entries and built concurrently, one blockform.Build call per fixture, matching
// spec.md §5's explicit allowance for unsynchronized concurrent Build calls on distinct
// CFGs. maxRegionDepth (read back from the same -max-region-depth flag the analyzer
// driver honors) is applied to every fixture built this way.
func runFixture(path, out string, compress bool, maxRegionDepth int) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat fixture: %w", err)
	}
	if !info.IsDir() {
		return buildOneFixture(path, out, compress, maxRegionDepth)
	}

	if out == "" {
		return fmt.Errorf("-out is required when -fixture names a directory")
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read fixture dir: %w", err)
	}

	var g errgroup.Group
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		name := e.Name()
		g.Go(func() error {
			return buildOneFixture(filepath.Join(path, name), filepath.Join(out, name), compress, maxRegionDepth)
		})
	}
	return g.Wait()
}

func buildOneFixture(in, out string, compress bool, maxRegionDepth int) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	cfg, err := fixture.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", in, err)
	}

	tree := blockform.Build(cfg, blockform.WithMaxRegionDepth(maxRegionDepth))
	dump, err := fixture.DumpYAML(tree)
	if err != nil {
		return fmt.Errorf("dump %s: %w", in, err)
	}

	w, closeW, err := openOut(out)
	if err != nil {
		return err
	}
	defer closeW()

	if !compress {
		_, err := w.Write(dump)
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	defer zw.Close()
	_, err = zw.Write(dump)
	return err
}

func openOut(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
