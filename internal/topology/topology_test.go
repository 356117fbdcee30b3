package topology

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"

	"layerlab/internal/activation"
	"layerlab/internal/dataset"
)

func hiddenNames(t *Topology) []string {
	names := make([]string, 0, t.HiddenCount())
	for _, layer := range t.Hidden() {
		names = append(names, layer.Name())
	}
	return names
}

func expectedHiddenNames(k int) []string {
	names := make([]string, 0, k)
	for i := 0; i < k; i++ {
		names = append(names, HiddenName(i))
	}
	return names
}

func TestNewDefaultIris(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))

	require.Equal(t, 4, topo.Input().Size)
	require.Equal(t, activation.None, topo.Input().Activation)
	require.Equal(t, 3, topo.Output().Size)
	require.Equal(t, activation.Softmax, topo.Output().Activation)
	require.Equal(t, 2, topo.HiddenCount())
	require.Equal(t, []string{"hidden_0", "hidden_1"}, hiddenNames(topo))
	require.Equal(t, 5, topo.Hidden()[0].Size)
	require.Equal(t, 6, topo.Hidden()[1].Size)
	require.Equal(t, "input(4) -> hidden_0(5,relu) -> hidden_1(6,relu) -> output(3,softmax)", topo.String())
}

func TestNewRejectsMalformedDatasetInfo(t *testing.T) {
	for _, info := range []dataset.Info{
		{FeatureCount: 0, ClassCount: 3},
		{FeatureCount: 4, ClassCount: 0},
	} {
		_, err := NewDefault(info)
		require.ErrorIs(t, err, ErrConfiguration)
		require.Equal(t, KindConfiguration, KindOf(err))
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frame = Frame{Left: 500, Right: 100}
	_, err := New(dataset.Iris(), cfg)
	require.ErrorIs(t, err, ErrConfiguration)

	cfg = DefaultConfig()
	cfg.Hidden = []HiddenDefault{{Size: 12, Activation: activation.ReLU}}
	_, err = New(dataset.Iris(), cfg)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	cfg = DefaultConfig()
	cfg.OutputActivation = "gelu"
	_, err = New(dataset.Iris(), cfg)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestHiddenPositionsSubdivideFrame(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	hidden := topo.Hidden()
	require.Equal(t, DefaultLeft, topo.Input().XPos)
	require.Equal(t, DefaultRight, topo.Output().XPos)
	require.Equal(t, 350.0, hidden[0].XPos)
	require.Equal(t, 600.0, hidden[1].XPos)

	must.M(topo.AddHiddenLayer(4, activation.ReLU))
	hidden = topo.Hidden()
	require.Equal(t, 287.5, hidden[0].XPos)
	require.Equal(t, 475.0, hidden[1].XPos)
	require.Equal(t, 662.5, hidden[2].XPos)
}

func TestRemoveUntilEmpty(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	require.NoError(t, topo.RemoveHiddenLayer())
	require.NoError(t, topo.RemoveHiddenLayer())
	require.Equal(t, 0, topo.HiddenCount())

	before := topo.String()
	err := topo.RemoveHiddenLayer()
	require.ErrorIs(t, err, ErrEmptyTopology)
	require.Equal(t, before, topo.String())
}

func TestAddUntilCapacity(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	for topo.HiddenCount() < MaxHiddenLayers {
		require.NoError(t, topo.AddHiddenLayer(4, activation.ReLU))
	}
	before := topo.Clone()

	err := topo.AddHiddenLayer(4, activation.ReLU)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, before.Layers(), topo.Layers())
	require.Equal(t, expectedHiddenNames(MaxHiddenLayers), hiddenNames(topo))
}

func TestAddRejectsInvalidArgumentsWithoutChange(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	before := topo.Layers()

	require.ErrorIs(t, topo.AddHiddenLayer(1, activation.ReLU), ErrCapacityExceeded)
	require.ErrorIs(t, topo.AddHiddenLayer(10, activation.ReLU), ErrCapacityExceeded)
	require.ErrorIs(t, topo.AddHiddenLayer(4, "swish"), ErrConfiguration)
	require.Equal(t, before, topo.Layers())
}

func TestNamesStayContiguousUnderRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	topo := must.M1(NewDefault(dataset.Iris()))
	for step := 0; step < 500; step++ {
		if rng.Intn(2) == 0 {
			err := topo.AddHiddenLayer(MinHiddenSize+rng.Intn(MaxHiddenSize-MinHiddenSize+1), activation.Tanh)
			if err != nil {
				require.ErrorIs(t, err, ErrCapacityExceeded)
			}
		} else {
			err := topo.RemoveHiddenLayer()
			if err != nil {
				require.ErrorIs(t, err, ErrEmptyTopology)
			}
		}
		require.LessOrEqual(t, topo.HiddenCount(), MaxHiddenLayers)
		require.Equal(t, expectedHiddenNames(topo.HiddenCount()), hiddenNames(topo))
		for i, layer := range topo.Hidden() {
			require.Equal(t, topo.Frame().HiddenX(i, topo.HiddenCount()), layer.XPos)
		}
	}
}

func TestAddThenRemoveRestoresLayers(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	before := topo.Layers()
	require.NoError(t, topo.AddHiddenLayer(7, activation.Sigmoid))
	require.NoError(t, topo.RemoveHiddenLayer())
	require.Equal(t, before, topo.Layers())
}

func TestResizeLayer(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))

	changed, err := topo.ResizeLayer("hidden_0", +1)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 6, topo.Hidden()[0].Size)
	changed, err = topo.ResizeLayer("hidden_0", -1)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 5, topo.Hidden()[0].Size)

	for i := 0; i < 10; i++ {
		_, err = topo.ResizeLayer("hidden_1", +1)
		require.NoError(t, err)
	}
	require.Equal(t, MaxHiddenSize, topo.Hidden()[1].Size)
	changed, err = topo.ResizeLayer("hidden_1", +1)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, MaxHiddenSize, topo.Hidden()[1].Size)

	for i := 0; i < 10; i++ {
		_, err = topo.ResizeLayer("hidden_1", -1)
		require.NoError(t, err)
	}
	require.Equal(t, MinHiddenSize, topo.Hidden()[1].Size)
	changed, err = topo.ResizeLayer("hidden_1", -1)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestResizeLayerErrors(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	before := topo.Layers()

	_, err := topo.ResizeLayer(InputName, +1)
	require.ErrorIs(t, err, ErrImmutableLayer)
	_, err = topo.ResizeLayer(OutputName, -1)
	require.ErrorIs(t, err, ErrImmutableLayer)
	_, err = topo.ResizeLayer("hidden_2", +1)
	require.ErrorIs(t, err, ErrUnknownLayer)
	_, err = topo.ResizeLayer("hidden_01", +1)
	require.ErrorIs(t, err, ErrUnknownLayer)
	_, err = topo.ResizeLayer("hidden_0", 2)
	require.ErrorIs(t, err, ErrConfiguration)

	require.Equal(t, before, topo.Layers())
}

func TestSetActivations(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))

	require.NoError(t, topo.SetHiddenActivation(activation.Tanh))
	for _, layer := range topo.Hidden() {
		require.Equal(t, activation.Tanh, layer.Activation)
	}
	act, ok := topo.HiddenActivation()
	require.True(t, ok)
	require.Equal(t, activation.Tanh, act)

	require.NoError(t, topo.SetOutputActivation(activation.Sigmoid))
	require.Equal(t, activation.Sigmoid, topo.Output().Activation)
	require.Equal(t, activation.None, topo.Input().Activation)

	require.ErrorIs(t, topo.SetHiddenActivation("nope"), ErrConfiguration)
	require.ErrorIs(t, topo.SetOutputActivation(activation.None), ErrConfiguration)
	require.Equal(t, activation.Sigmoid, topo.Output().Activation)
}

func TestCloneIsIndependent(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	clone := topo.Clone()
	require.NoError(t, clone.AddHiddenLayer(3, activation.ReLU))
	_, err := clone.ResizeLayer("hidden_0", +1)
	require.NoError(t, err)

	require.Equal(t, 2, topo.HiddenCount())
	require.Equal(t, 5, topo.Hidden()[0].Size)
}

func TestLayerLookup(t *testing.T) {
	topo := must.M1(NewDefault(dataset.Iris()))
	layer, ok := topo.Layer("hidden_1")
	require.True(t, ok)
	require.Equal(t, 6, layer.Size)
	_, ok = topo.Layer("hidden_9")
	require.False(t, ok)
	require.Equal(t, "", LayerSpec{}.Name())
}

func TestErrorFormattingAndKinds(t *testing.T) {
	err := newError(KindEmptyTopology, "remove hidden layer", "no hidden layers left")
	require.Equal(t, "remove hidden layer: EmptyTopology: no hidden layers left", err.Error())
	require.True(t, errors.Is(err, ErrEmptyTopology))
	require.False(t, errors.Is(err, ErrCapacityExceeded))
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
