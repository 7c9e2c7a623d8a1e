// Package fixture loads hand-authored CFGs from YAML for the core reconstruction
// package's tests and for the cmd/blockform CLI's -fixture input mode. It
// also serializes a reconstructed block tree back to YAML for -out.
//
// None of this belongs to the reconstruction core itself: it is a graph.CFG/graph.Node/
// graph.Region adapter, exactly the kind of "straightforward adapter" spec.md treats as
// out of scope for the core and leaves to callers.
package fixture

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/blockform/blockform/block"
	"github.com/blockform/blockform/graph"
)

// CFGSpec is the YAML schema for a fixture CFG.
type CFGSpec struct {
	Entry   string       `yaml:"entry"`
	Nodes   []NodeSpec   `yaml:"nodes"`
	Regions []RegionSpec `yaml:"regions"`
}

// NodeSpec describes one CFG node.
type NodeSpec struct {
	ID          string   `yaml:"id"`
	Contents    string   `yaml:"contents"`
	Region      string   `yaml:"region"`
	FallThrough string   `yaml:"fallThrough,omitempty"`
	Conditional []string `yaml:"conditional,omitempty"`
	Abnormal    []string `yaml:"abnormal,omitempty"`
}

// RegionSpec describes one region. The root region is the single one with no Parent.
// A region with a non-empty Handlers list is an exception-handler region, whose
// Protected field names its protected sub-region; every other region is plain.
type RegionSpec struct {
	ID        string   `yaml:"id"`
	Parent    string   `yaml:"parent,omitempty"`
	Entry     string   `yaml:"entry"`
	Protected string   `yaml:"protected,omitempty"`
	Handlers  []string `yaml:"handlers,omitempty"`
}

func (r RegionSpec) isExceptionHandler() bool { return len(r.Handlers) > 0 }

// node is the fixture's graph.Node implementation. Equality is by pointer, so two
// fixtures never compare equal even with identical IDs.
type node struct {
	id          string
	contents    string
	region      graph.Region
	fallThrough *node
	conditional []graph.Node
	abnormal    []graph.Node
}

func (n *node) Contents() any                  { return n.contents }
func (n *node) Region() graph.Region           { return n.region }
func (n *node) Conditional() []graph.Node      { return n.conditional }
func (n *node) Abnormal() []graph.Node         { return n.abnormal }
func (n *node) FallThrough() (graph.Node, bool) {
	if n.fallThrough == nil {
		return nil, false
	}
	return n.fallThrough, true
}

// region is the fixture's plain-region implementation. It is also embedded by
// ehRegion, which adds Protected/Handlers so that only genuine exception-handler
// regions satisfy graph.ExceptionHandlerRegion.
type region struct {
	id     string
	parent graph.Region
	entry  *node
	// self is the outer Region value backed by this struct: itself for a plain region,
	// or the embedding *ehRegion for an exception-handler region. Contains compares
	// against self rather than the receiver because a pointer-embedded region's
	// promoted-method receiver is the embedded field's address, not the outer value.
	self graph.Region
}

func (r *region) Parent() (graph.Region, bool) {
	if r.parent == nil {
		return nil, false
	}
	return r.parent, true
}
func (r *region) EntryPoint() graph.Node { return r.entry }
func (r *region) Contains(n graph.Node) bool {
	nn, ok := n.(*node)
	if !ok {
		return false
	}
	for cur := nn.region; cur != nil; {
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

// ehRegion is the fixture's exception-handler-region implementation.
type ehRegion struct {
	region
	protected graph.Region
	handlers  []graph.Region
}

func (e *ehRegion) Protected() graph.Region  { return e.protected }
func (e *ehRegion) Handlers() []graph.Region { return e.handlers }

type cfg struct {
	entry graph.Node
}

func (c *cfg) Entry() graph.Node { return c.entry }

// Parse builds a graph.CFG from YAML-encoded fixture data.
func Parse(data []byte) (graph.CFG, error) {
	var spec CFGSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return Build(spec)
}

// Build constructs a graph.CFG from an already-decoded CFGSpec.
func Build(spec CFGSpec) (graph.CFG, error) {
	regions := make(map[string]graph.Region, len(spec.Regions))
	plain := make(map[string]*region)
	handler := make(map[string]*ehRegion)
	for _, rs := range spec.Regions {
		if _, dup := regions[rs.ID]; dup {
			return nil, fmt.Errorf("duplicate region id %q", rs.ID)
		}
		if rs.isExceptionHandler() {
			r := &ehRegion{region: region{id: rs.ID}}
			r.self = r
			handler[rs.ID] = r
			regions[rs.ID] = r
		} else {
			r := &region{id: rs.ID}
			r.self = r
			plain[rs.ID] = r
			regions[rs.ID] = r
		}
	}
	nodes := make(map[string]*node, len(spec.Nodes))
	for _, ns := range spec.Nodes {
		if _, dup := nodes[ns.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", ns.ID)
		}
		nodes[ns.ID] = &node{id: ns.ID, contents: ns.Contents}
	}

	lookupNode := func(id string) (*node, error) {
		n, ok := nodes[id]
		if !ok {
			return nil, fmt.Errorf("unknown node id %q", id)
		}
		return n, nil
	}
	lookupRegion := func(id string) (graph.Region, error) {
		r, ok := regions[id]
		if !ok {
			return nil, fmt.Errorf("unknown region id %q", id)
		}
		return r, nil
	}
	baseOf := func(id string) *region {
		if r, ok := plain[id]; ok {
			return r
		}
		return &handler[id].region
	}

	for _, rs := range spec.Regions {
		r := baseOf(rs.ID)
		if rs.Parent != "" {
			p, err := lookupRegion(rs.Parent)
			if err != nil {
				return nil, err
			}
			r.parent = p
		}
		entry, err := lookupNode(rs.Entry)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", rs.ID, err)
		}
		r.entry = entry

		if rs.isExceptionHandler() {
			eh := handler[rs.ID]
			p, err := lookupRegion(rs.Protected)
			if err != nil {
				return nil, fmt.Errorf("region %q protected: %w", rs.ID, err)
			}
			eh.protected = p
			for _, h := range rs.Handlers {
				hr, err := lookupRegion(h)
				if err != nil {
					return nil, fmt.Errorf("region %q handler: %w", rs.ID, err)
				}
				eh.handlers = append(eh.handlers, hr)
			}
		}
	}

	for _, ns := range spec.Nodes {
		n := nodes[ns.ID]
		r, err := lookupRegion(ns.Region)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", ns.ID, err)
		}
		n.region = r
		if ns.FallThrough != "" {
			ft, err := lookupNode(ns.FallThrough)
			if err != nil {
				return nil, fmt.Errorf("node %q fallThrough: %w", ns.ID, err)
			}
			n.fallThrough = ft
		}
		for _, c := range ns.Conditional {
			cn, err := lookupNode(c)
			if err != nil {
				return nil, fmt.Errorf("node %q conditional: %w", ns.ID, err)
			}
			n.conditional = append(n.conditional, cn)
		}
		for _, a := range ns.Abnormal {
			an, err := lookupNode(a)
			if err != nil {
				return nil, fmt.Errorf("node %q abnormal: %w", ns.ID, err)
			}
			n.abnormal = append(n.abnormal, an)
		}
	}

	entry, err := lookupNode(spec.Entry)
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}
	return &cfg{entry: entry}, nil
}

// DumpYAML serializes a reconstructed block tree to YAML for the CLI's -out flag.
func DumpYAML(root *block.Scope) ([]byte, error) {
	return yaml.Marshal(dumpScope(root))
}

// blockDump mirrors block.Block as a YAML-friendly tagged structure.
type blockDump struct {
	Kind      string      `yaml:"kind"`
	Contents  any         `yaml:"contents,omitempty"`
	Children  []blockDump `yaml:"children,omitempty"`
	Protected *blockDump  `yaml:"protected,omitempty"`
	Handlers  []blockDump `yaml:"handlers,omitempty"`
}

func dumpScope(s *block.Scope) blockDump {
	d := blockDump{Kind: block.ScopeKind.String()}
	for _, c := range s.Children {
		d.Children = append(d.Children, dumpBlock(c))
	}
	return d
}

func dumpBlock(b block.Block) blockDump {
	switch v := b.(type) {
	case *block.Basic:
		return blockDump{Kind: block.BasicKind.String(), Contents: v.Contents}
	case *block.Scope:
		return dumpScope(v)
	case *block.ExceptionHandler:
		d := blockDump{Kind: block.ExceptionHandlerKind.String()}
		protected := dumpScope(v.Protected())
		d.Protected = &protected
		for _, h := range v.Handlers() {
			d.Handlers = append(d.Handlers, dumpScope(h))
		}
		return d
	default:
		panic(fmt.Sprintf("fixture: unknown block kind %T", b))
	}
}
