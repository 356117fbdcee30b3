package modelplan

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	"layerlab/internal/activation"
	"layerlab/internal/dataset"
	"layerlab/internal/edges"
	"layerlab/internal/topology"
)

func TestBuildDefaultPlan(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	plan, err := Build(topo, DefaultSettings())
	require.NoError(t, err)

	require.Equal(t, 4, plan.InputDim)
	require.Equal(t, []Dense{
		{Name: "hidden_0", InputDim: 4, Units: 5, Activation: activation.ReLU, EdgeOffset: 0},
		{Name: "hidden_1", InputDim: 5, Units: 6, Activation: activation.ReLU, EdgeOffset: 20},
		{Name: "output", InputDim: 6, Units: 3, Activation: activation.Softmax, EdgeOffset: 50},
	}, plan.Layers)
	require.Equal(t, [2]int{5, 6}, plan.Layers[1].KernelShape())
	require.Equal(t, 68, plan.KernelParams())
	require.Equal(t, 68+5+6+3, plan.Params())

	list := must.M1(edges.Compute(topo))
	require.NoError(t, plan.Validate(list))
}

func TestBuildWithoutHiddenLayers(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	must.M(topo.RemoveHiddenLayer())
	must.M(topo.RemoveHiddenLayer())

	plan := must.M1(Build(topo, DefaultSettings()))
	require.Len(t, plan.Layers, 1)
	require.Equal(t, Dense{Name: "output", InputDim: 4, Units: 3, Activation: activation.Softmax}, plan.Layers[0])
}

func TestValidateDetectsMisalignment(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	plan := must.M1(Build(topo, DefaultSettings()))
	list := must.M1(edges.Compute(topo))

	require.Error(t, plan.Validate(list[1:]))

	swapped := append([]edges.Edge(nil), list...)
	swapped[20], swapped[19] = swapped[19], swapped[20]
	require.Error(t, plan.Validate(swapped))
}

func TestSettingsValidation(t *testing.T) {
	s := DefaultSettings()
	s.LearningRate = 0
	_, err := Build(must.M1(topology.NewDefault(dataset.Iris())), s)
	require.Error(t, err)

	s = DefaultSettings()
	s.Epochs = 0
	require.Error(t, s.Validate())
}

func TestBuildRejectsInvalidTopology(t *testing.T) {
	_, err := Build(&topology.Topology{}, DefaultSettings())
	require.ErrorIs(t, err, topology.ErrInvalidTopology)
}
