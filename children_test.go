package blockform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockform/blockform/internal/fixture"
)

func TestChildrenOrderAndDedup(t *testing.T) {
	t.Parallel()

	cfg, err := fixture.Parse([]byte(`
entry: A
regions:
  - {id: root, entry: A}
  - {id: try, parent: root, entry: A, protected: P, handlers: [H1, H2]}
  - {id: P, parent: try, entry: A}
  - {id: H1, parent: try, entry: X}
  - {id: H2, parent: try, entry: X}
nodes:
  - {id: A, contents: A, region: P, fallThrough: B, conditional: [B, C], abnormal: [C]}
  - {id: B, contents: B, region: P}
  - {id: C, contents: C, region: P}
  - {id: X, contents: X, region: H1}
`))
	require.NoError(t, err)

	kids := Children(cfg.Entry())
	var ids []string
	for _, k := range kids {
		ids = append(ids, k.Contents().(string))
	}

	// B is both the fall-through and (redundantly) a conditional successor, so it must
	// appear once, first. C is both conditional and abnormal, so it appears once, right
	// after B. H1 and H2 share the same entry node X, so the handler step contributes X
	// only once too, and only because A's region (P) is H1/H2's try's protected region.
	require.Equal(t, []string{"B", "C", "X"}, ids)
}
