package regression

import (
	"context"
	"fmt"

	"github.com/okian/inferd/internal/domain/features"
)

// node is one split or leaf. A node with Left == Right == 0 is a leaf.
type node struct {
	Feature   string  `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

// compiled node with the feature resolved to a vector index.
type cnode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	leaf      bool
}

// Forest averages regression trees, each routing x <= threshold to Left.
// Children always sit after their parent in the node array.
type Forest struct {
	base
	trees [][]cnode
}

func newForest(a artifact) (*Forest, error) {
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("%w: forest has no trees", ErrInvalidArtifact)
	}
	f := &Forest{base: newBase(a.Features), trees: make([][]cnode, len(a.Trees))}
	for ti, t := range a.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("%w: tree %d is empty", ErrInvalidArtifact, ti)
		}
		nodes := make([]cnode, len(t.Nodes))
		for ni, n := range t.Nodes {
			if n.Left == 0 && n.Right == 0 {
				nodes[ni] = cnode{value: n.Value, leaf: true}
				continue
			}
			fi, ok := f.index[n.Feature]
			if !ok {
				return nil, fmt.Errorf("%w: tree %d node %d splits on unknown feature %q", ErrInvalidArtifact, ti, ni, n.Feature)
			}
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("%w: tree %d node %d has invalid children", ErrInvalidArtifact, ti, ni)
			}
			nodes[ni] = cnode{feature: fi, threshold: n.Threshold, left: n.Left, right: n.Right}
		}
		f.trees[ti] = nodes
	}
	return f, nil
}

// Kind implements Regressor.
func (f *Forest) Kind() string { return KindForest }

// Predict implements Regressor.
func (f *Forest) Predict(ctx context.Context, row features.Row) (float64, error) {
	x, err := f.vector(row)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range f.trees {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		v, err := walk(t, x)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(f.trees)), nil
}

func walk(t []cnode, x []float64) (float64, error) {
	i := 0
	for range t {
		n := t[i]
		if n.leaf {
			return n.value, nil
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
	return 0, fmt.Errorf("%w: tree walk did not reach a leaf", ErrInvalidArtifact)
}
