package scene

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	"layerlab/internal/activation"
	"layerlab/internal/dataset"
	"layerlab/internal/edges"
	"layerlab/internal/layout"
	"layerlab/internal/topology"
)

func build(t *testing.T, topo *topology.Topology, flat []float64) Scene {
	t.Helper()
	l := must.M1(layout.Compute(topo, layout.ReferenceWidth, layout.DefaultHeight))
	list := must.M1(edges.Compute(topo))
	s, err := Build(topo, l, list, flat, DefaultStyle())
	require.NoError(t, err)
	return s
}

func TestBuildWithoutWeights(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	s := build(t, topo, nil)

	require.Equal(t, "2 hidden layers", s.LayerText)
	require.Len(t, s.Nodes, 18)
	require.Len(t, s.Edges, 68)
	require.False(t, s.Edges[0].HasWeight)
	require.Equal(t, DefaultStyle().NeutralColor, s.Edges[0].Stroke)

	first := s.Edges[0]
	require.Equal(t, layout.Point{X: 100 + 19, Y: 120}, first.From)
	require.Equal(t, layout.Point{X: 350 - 19, Y: 100}, first.To)

	require.Equal(t, []NodeControl{
		{Layer: "hidden_0", Left: 285, Label: "5 neurons"},
		{Layer: "hidden_1", Left: 535, Label: "6 neurons"},
	}, s.Controls)

	require.Len(t, s.Selectors, 2)
	require.Equal(t, 475.0-25, s.Selectors[0].Left)
	require.Equal(t, 850.0-25, s.Selectors[1].Left)
	for _, opt := range s.Selectors[1].Options {
		require.Equal(t, opt.Value == "softmax", opt.Selected)
	}
}

func TestBuildWithWeights(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	flat := make([]float64, 68)
	flat[0] = 0.12345
	flat[1] = -3.5
	s := build(t, topo, flat)

	require.True(t, s.Edges[0].HasWeight)
	require.Equal(t, DefaultStyle().PositiveColor, s.Edges[0].Stroke)
	require.InDelta(t, 0.61725, s.Edges[0].Width, 1e-9)
	require.Equal(t, "Weight value: 0.123", s.Edges[0].Tooltip)

	require.Equal(t, DefaultStyle().NegativeColor, s.Edges[1].Stroke)
	require.Equal(t, 10.0, s.Edges[1].Width)
	require.Equal(t, "Weight value: -3.5", s.Edges[1].Tooltip)

	require.Equal(t, DefaultStyle().NegativeColor, s.Edges[2].Stroke)
	require.Equal(t, 0.0, s.Edges[2].Width)
}

func TestBuildRejectsMisalignedWeights(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	l := must.M1(layout.Compute(topo, layout.ReferenceWidth, layout.DefaultHeight))
	list := must.M1(edges.Compute(topo))
	_, err := Build(topo, l, list, make([]float64, 3), DefaultStyle())
	require.Error(t, err)
}

func TestLabels(t *testing.T) {
	require.Equal(t, "1 hidden layer", LayerText(1))
	require.Equal(t, "0 hidden layers", LayerText(0))
	require.Equal(t, "1 neuron", NeuronLabel(1))
	require.Equal(t, "9 neurons", NeuronLabel(9))
	require.Equal(t, "Weight value: -0.999", Tooltip(-0.9999))
}

func TestHiddenSelectorDefaultsWithoutHiddenLayers(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	must.M(topo.SetHiddenActivation(activation.Tanh))
	s := build(t, topo, nil)
	for _, opt := range s.Selectors[0].Options {
		require.Equal(t, opt.Value == "tanh", opt.Selected)
	}

	must.M(topo.RemoveHiddenLayer())
	must.M(topo.RemoveHiddenLayer())
	s = build(t, topo, nil)
	require.Empty(t, s.Controls)
	for _, opt := range s.Selectors[0].Options {
		require.Equal(t, opt.Value == "relu", opt.Selected)
	}
}
