package blockform_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blockform/blockform"
	"github.com/blockform/blockform/block"
	"github.com/blockform/blockform/graph"
	"github.com/blockform/blockform/internal/fixture"
)

func build(t *testing.T, yamlSrc string) graph.CFG {
	t.Helper()
	cfg, err := fixture.Parse([]byte(yamlSrc))
	require.NoError(t, err)
	return cfg
}

// contentsOf walks a scope tree and collects the Contents of every basic block, in
// tree order, recursing into exception-handler blocks' protected and handler scopes.
func contentsOf(b block.Block) []string {
	switch v := b.(type) {
	case *block.Basic:
		return []string{v.Contents.(string)}
	case *block.Scope:
		var out []string
		for _, c := range v.Children {
			out = append(out, contentsOf(c)...)
		}
		return out
	case *block.ExceptionHandler:
		var out []string
		out = append(out, contentsOf(v.Protected())...)
		for _, h := range v.Handlers() {
			out = append(out, contentsOf(h)...)
		}
		return out
	}
	return nil
}

func TestLinear(t *testing.T) {
	t.Parallel()

	cfg := build(t, `
entry: A
regions: [{id: root, entry: A}]
nodes:
  - {id: A, contents: A, region: root, fallThrough: B}
  - {id: B, contents: B, region: root, fallThrough: C}
  - {id: C, contents: C, region: root}
`)

	root := blockform.Build(cfg)
	require.Equal(t, []string{"A", "B", "C"}, contentsOf(root))
	require.Len(t, root.Children, 3)
}

func TestIfElseJoin(t *testing.T) {
	t.Parallel()

	// A's fall-through is B, conditional is C; both B and C fall through to D.
	cfg := build(t, `
entry: A
regions: [{id: root, entry: A}]
nodes:
  - {id: A, contents: A, region: root, fallThrough: B, conditional: [C]}
  - {id: B, contents: B, region: root, fallThrough: D}
  - {id: C, contents: C, region: root, fallThrough: D}
  - {id: D, contents: D, region: root}
`)

	root := blockform.Build(cfg)
	require.Equal(t, []string{"A", "B", "C", "D"}, contentsOf(root))
}

func TestLoopBackEdgeIgnored(t *testing.T) {
	t.Parallel()

	cfg := build(t, `
entry: A
regions: [{id: root, entry: A}]
nodes:
  - {id: A, contents: A, region: root, fallThrough: B}
  - {id: B, contents: B, region: root, fallThrough: C}
  - {id: C, contents: C, region: root, fallThrough: B}
`)

	root := blockform.Build(cfg)
	require.Equal(t, []string{"A", "B", "C"}, contentsOf(root))
}

func TestTryCatch(t *testing.T) {
	t.Parallel()

	cfg := build(t, `
entry: T1
regions:
  - {id: root, entry: T1}
  - {id: try, parent: root, entry: T1, protected: P, handlers: [H]}
  - {id: P, parent: try, entry: T1}
  - {id: H, parent: try, entry: H1}
nodes:
  - {id: T1, contents: T1, region: P, fallThrough: T2}
  - {id: T2, contents: T2, region: P}
  - {id: H1, contents: H1, region: H}
`)

	root := blockform.Build(cfg)
	require.Len(t, root.Children, 1)
	eh, ok := root.Children[0].(*block.ExceptionHandler)
	require.True(t, ok, "expected an exception-handler block, got %T", root.Children[0])

	require.Equal(t, []string{"T1", "T2"}, contentsOf(eh.Protected()))
	require.Len(t, eh.Handlers(), 1)
	require.Equal(t, []string{"H1"}, contentsOf(eh.Handlers()[0]))
}

func TestNestedTry(t *testing.T) {
	t.Parallel()

	// Outer protected region contains an inner try/catch.
	cfg := build(t, `
entry: O1
regions:
  - {id: root, entry: O1}
  - {id: outerTry, parent: root, entry: O1, protected: OP, handlers: [OH]}
  - {id: OP, parent: outerTry, entry: O1}
  - {id: OH, parent: outerTry, entry: OH1}
  - {id: innerTry, parent: OP, entry: I1, protected: IP, handlers: [IH]}
  - {id: IP, parent: innerTry, entry: I1}
  - {id: IH, parent: innerTry, entry: IH1}
nodes:
  - {id: O1, contents: O1, region: OP, fallThrough: I1}
  - {id: I1, contents: I1, region: IP}
  - {id: IH1, contents: IH1, region: IH}
  - {id: OH1, contents: OH1, region: OH}
`)

	root := blockform.Build(cfg)
	require.Len(t, root.Children, 1)
	outer := root.Children[0].(*block.ExceptionHandler)
	require.Len(t, outer.Protected().Children, 2)
	require.Equal(t, []string{"O1"}, contentsOf(outer.Protected().Children[0]))

	inner, ok := outer.Protected().Children[1].(*block.ExceptionHandler)
	require.True(t, ok, "expected nested exception-handler block, got %T", outer.Protected().Children[1])
	require.Equal(t, []string{"I1"}, contentsOf(inner.Protected()))
	require.Equal(t, []string{"IH1"}, contentsOf(inner.Handlers()[0]))
	require.Equal(t, []string{"OH1"}, contentsOf(outer.Handlers()[0]))
}

func TestLeavingMultipleRegionsAtOnce(t *testing.T) {
	t.Parallel()

	cfg := build(t, `
entry: X
regions:
  - {id: root, entry: X}
  - {id: d1, parent: root, entry: X}
  - {id: d2, parent: d1, entry: X}
  - {id: d3, parent: d2, entry: X}
nodes:
  - {id: X, contents: X, region: d3, fallThrough: Y}
  - {id: Y, contents: Y, region: root}
`)

	root := blockform.Build(cfg)
	// X is nested 3 deep; Y is back at the root. Reconciliation must pop all three
	// frames before appending Y as a direct child of the root scope.
	require.Len(t, root.Children, 2)
	require.Equal(t, []string{"X"}, contentsOf(root.Children[0]))
	require.Equal(t, []string{"Y"}, contentsOf(root.Children[1]))
}

func TestMultipleHandlersOfSameTryStoreDistinctRegions(t *testing.T) {
	t.Parallel()

	// Regression coverage for the open question in spec.md §9: each handler push must
	// record the entered handler sub-region, not the protected region. Otherwise H1's
	// second node (H1F) no longer matches the top frame's region, reconciliation
	// misidentifies the common-prefix depth, and a third, duplicate handler scope opens.
	cfg := build(t, `
entry: T1
regions:
  - {id: root, entry: T1}
  - {id: try, parent: root, entry: T1, protected: P, handlers: [H1, H2]}
  - {id: P, parent: try, entry: T1}
  - {id: H1, parent: try, entry: H1E}
  - {id: H2, parent: try, entry: H2E}
nodes:
  - {id: T1, contents: T1, region: P}
  - {id: H1E, contents: H1E, region: H1, fallThrough: H1F}
  - {id: H1F, contents: H1F, region: H1}
  - {id: H2E, contents: H2E, region: H2}
`)

	root := blockform.Build(cfg)
	eh := root.Children[0].(*block.ExceptionHandler)
	require.Len(t, eh.Handlers(), 2)
	require.Equal(t, []string{"H1E", "H1F"}, contentsOf(eh.Handlers()[0]))
	require.Equal(t, []string{"H2E"}, contentsOf(eh.Handlers()[1]))
}

func TestDeterministic(t *testing.T) {
	t.Parallel()

	src := `
entry: A
regions: [{id: root, entry: A}]
nodes:
  - {id: A, contents: A, region: root, fallThrough: B, conditional: [C, D]}
  - {id: B, contents: B, region: root}
  - {id: C, contents: C, region: root}
  - {id: D, contents: D, region: root}
`
	cfg1 := build(t, src)
	cfg2 := build(t, src)

	r1 := blockform.Build(cfg1)
	r2 := blockform.Build(cfg2)

	diff := cmp.Diff(contentsOf(r1), contentsOf(r2))
	require.Empty(t, diff)
}

func TestUnreachableNodesOmitted(t *testing.T) {
	t.Parallel()

	cfg := build(t, `
entry: A
regions: [{id: root, entry: A}]
nodes:
  - {id: A, contents: A, region: root}
  - {id: B, contents: B, region: root}
`)

	root := blockform.Build(cfg)
	require.Equal(t, []string{"A"}, contentsOf(root))
}

func TestMalformedHandlerRegionPanics(t *testing.T) {
	t.Parallel()

	// H is a child of try in the region tree (its Parent points to try), but try does
	// not list it as a handler: malformed input per spec.md §4.3/§7.
	cfg := build(t, `
entry: T1
regions:
  - {id: root, entry: T1}
  - {id: try, parent: root, entry: T1, protected: P, handlers: [OTHER]}
  - {id: P, parent: try, entry: T1}
  - {id: OTHER, parent: try, entry: O1}
  - {id: H, parent: try, entry: H1}
nodes:
  - {id: T1, contents: T1, region: P, abnormal: [H1]}
  - {id: O1, contents: O1, region: OTHER}
  - {id: H1, contents: H1, region: H}
`)

	require.Panics(t, func() { blockform.Build(cfg) })
}

// deepCFG builds a CFG whose single node sits at the bottom of a chain of depth nested
// plain regions, root included.
func deepCFG(t *testing.T, depth int) graph.CFG {
	t.Helper()

	spec := fixture.CFGSpec{
		Entry:   "N",
		Nodes:   []fixture.NodeSpec{{ID: "N", Contents: "N", Region: fmt.Sprintf("r%d", depth-1)}},
		Regions: make([]fixture.RegionSpec, depth),
	}
	for i := 0; i < depth; i++ {
		r := fixture.RegionSpec{ID: fmt.Sprintf("r%d", i), Entry: "N"}
		if i > 0 {
			r.Parent = fmt.Sprintf("r%d", i-1)
		}
		spec.Regions[i] = r
	}

	cfg, err := fixture.Build(spec)
	require.NoError(t, err)
	return cfg
}

func TestMaxRegionDepthDefaultPanicsOnDeepNesting(t *testing.T) {
	t.Parallel()

	cfg := deepCFG(t, 300)
	require.Panics(t, func() { blockform.Build(cfg) })
}

func TestWithMaxRegionDepthAcceptsDeeperNesting(t *testing.T) {
	t.Parallel()

	cfg := deepCFG(t, 300)
	require.NotPanics(t, func() {
		root := blockform.Build(cfg, blockform.WithMaxRegionDepth(400))
		require.Equal(t, []string{"N"}, contentsOf(root))
	})
}

// randomCFG builds a random, possibly-cyclic region-annotated CFG with n nodes, all in
// a single root region, wired with fall-through chains and occasional back edges.
func randomCFG(t *testing.T, rng *rand.Rand, n int) (graph.CFG, []string) {
	t.Helper()

	spec := fixture.CFGSpec{
		Entry:   "n0",
		Regions: []fixture.RegionSpec{{ID: "root", Entry: "n0"}},
	}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("n%d", i)
	}
	for i, id := range ids {
		ns := fixture.NodeSpec{ID: id, Contents: id, Region: "root"}
		if i+1 < n {
			ns.FallThrough = ids[i+1]
		}
		// Occasionally add a back edge (to an earlier node) as an abnormal successor;
		// it must never change which nodes appear or break determinism.
		if i > 2 && rng.Intn(3) == 0 {
			ns.Abnormal = append(ns.Abnormal, ids[rng.Intn(i)])
		}
		spec.Nodes = append(spec.Nodes, ns)
	}

	cfg, err := fixture.Build(spec)
	require.NoError(t, err)
	return cfg, ids
}

func TestPropertyRandomCFGs(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		n := 3 + rng.Intn(20)
		cfg, ids := randomCFG(t, rng, n)

		root := blockform.Build(cfg)

		got := contentsOf(root)
		require.Len(t, got, n, "every node must appear exactly once")
		require.ElementsMatch(t, ids, got)
		require.Equal(t, ids[0], got[0], "the entry node is always first")
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
