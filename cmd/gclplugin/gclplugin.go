// Package gclplugin implements golangci-lint's module plugin interface for blockform, so
// it can be run as a private linter in golangci-lint. See more details at
// https://golangci-lint.run/plugins/module-plugins/.
package gclplugin

import (
	"fmt"
	"strconv"

	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"

	"github.com/blockform/blockform"
	"github.com/blockform/blockform/config"
)

func init() {
	register.Plugin("blockform", New)
}

// New returns the golangci-lint plugin that wraps blockform.Analyzer. settings is the
// linters-settings.custom.blockform map from .golangci.yml; every value must already be a
// string, the same way command-line flags arrive (any other type is rejected), and the
// values are handed to config.Analyzer.Flags in BuildAnalyzers. max-region-depth is checked here, rather than left for
// Flags.Set's generic flag.Value parse error, so a misconfigured non-positive depth is
// rejected with a message naming the invariant it would otherwise silently violate.
func New(settings any) (register.LinterPlugin, error) {
	s, ok := settings.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expect blockform's configurations to be a map from string to "+
			"string (similar to command line flags), got %T", settings)
	}
	conf := make(map[string]string, len(s))
	for k, v := range s {
		vStr, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expect blockform's configuration value for %q to be a string, got %T", k, v)
		}
		conf[k] = vStr
	}

	if raw, ok := conf["max-region-depth"]; ok {
		if depth, err := strconv.Atoi(raw); err != nil || depth <= 0 {
			return nil, fmt.Errorf("blockform's max-region-depth must be a positive integer, got %q", raw)
		}
	}

	return &Plugin{conf: conf}, nil
}

// Plugin is the blockform plugin wrapper for golangci-lint.
type Plugin struct {
	conf map[string]string
}

// BuildAnalyzers applies the plugin's configuration to config.Analyzer and returns
// blockform.Analyzer.
func (p *Plugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	for k, v := range p.conf {
		if err := config.Analyzer.Flags.Set(k, v); err != nil {
			return nil, fmt.Errorf("set config flag %s with %s: %w", k, v, err)
		}
	}

	return []*analysis.Analyzer{blockform.Analyzer}, nil
}

// GetLoadMode returns the load mode blockform requests from golangci-lint,
// register.LoadModeTypesInfo. The control-flow graphs themselves are built from syntax
// alone: internal/goadapter calls golang.org/x/tools/go/cfg without type information.
func (p *Plugin) GetLoadMode() string { return register.LoadModeTypesInfo }
