// Package edges derives the dense connection list between adjacent layers of a topology.
//
// Edge order is load-bearing: position k of the edge list is position k of the flattened
// weight vector produced by the model builder, where each transition's kernel of shape
// (source size, target size) is flattened row-major and transitions are concatenated in
// network order.
package edges

import (
	"fmt"

	"layerlab/internal/topology"
)

// Edge connects neuron SourceIndex of SourceLayer to neuron TargetIndex of TargetLayer.
type Edge struct {
	SourceLayer string `json:"source"`
	SourceIndex int    `json:"src_idx"`
	TargetLayer string `json:"target"`
	TargetIndex int    `json:"tar_idx"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%s[%d]->%s[%d]", e.SourceLayer, e.SourceIndex, e.TargetLayer, e.TargetIndex)
}

// Transition is one adjacent layer pair. Offset is the index of its first edge.
type Transition struct {
	Source topology.LayerSpec
	Target topology.LayerSpec
	Offset int
}

func (tr Transition) Count() int {
	return tr.Source.Size * tr.Target.Size
}

// Transitions lists adjacent layer pairs in network order. With no hidden layers the only
// transition is input -> output.
func Transitions(t *topology.Topology) ([]Transition, error) {
	const op = "compute edges"
	if t == nil {
		return nil, &topology.Error{Kind: topology.KindInvalidTopology, Op: op, Detail: "nil topology"}
	}
	layers := t.Layers()
	for _, layer := range layers {
		if layer.Name() == "" {
			return nil, &topology.Error{Kind: topology.KindInvalidTopology, Op: op, Detail: fmt.Sprintf("layer of kind %s has no name", layer.Kind)}
		}
		if layer.Size <= 0 {
			return nil, &topology.Error{Kind: topology.KindInvalidTopology, Op: op, Detail: fmt.Sprintf("layer %s has size %d", layer.Name(), layer.Size)}
		}
	}

	transitions := make([]Transition, 0, len(layers)-1)
	offset := 0
	for i := 0; i+1 < len(layers); i++ {
		tr := Transition{Source: layers[i], Target: layers[i+1], Offset: offset}
		transitions = append(transitions, tr)
		offset += tr.Count()
	}
	return transitions, nil
}

// Compute returns every edge, source-index-major and target-index-minor within each
// transition.
func Compute(t *topology.Topology) ([]Edge, error) {
	transitions, err := Transitions(t)
	if err != nil {
		return nil, err
	}
	out := make([]Edge, 0, total(transitions))
	for _, tr := range transitions {
		src, dst := tr.Source.Name(), tr.Target.Name()
		for i := 0; i < tr.Source.Size; i++ {
			for j := 0; j < tr.Target.Size; j++ {
				out = append(out, Edge{SourceLayer: src, SourceIndex: i, TargetLayer: dst, TargetIndex: j})
			}
		}
	}
	return out, nil
}

// Count is the number of edges Compute would return: the sum of size(Li)*size(Li+1).
func Count(t *topology.Topology) (int, error) {
	transitions, err := Transitions(t)
	if err != nil {
		return 0, err
	}
	return total(transitions), nil
}

func total(transitions []Transition) int {
	n := 0
	for _, tr := range transitions {
		n += tr.Count()
	}
	return n
}
