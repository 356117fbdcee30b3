package weights

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"layerlab/internal/dataset"
	"layerlab/internal/edges"
	"layerlab/internal/model"
	"layerlab/internal/topology"
)

func sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestKernelsFollowEdgeOrder(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	list := must.M1(edges.Compute(topo))
	flat := sequence(len(list))

	kernels, err := Kernels(topo, flat)
	require.NoError(t, err)
	require.Len(t, kernels, 3)

	r, c := kernels[1].Dims()
	require.Equal(t, 5, r)
	require.Equal(t, 6, c)

	aligned := must.M1(Align(list, flat))
	transitions := must.M1(edges.Transitions(topo))
	for k, tr := range transitions {
		for i := 0; i < tr.Source.Size; i++ {
			for j := 0; j < tr.Target.Size; j++ {
				w := aligned[tr.Offset+i*tr.Target.Size+j]
				require.Equal(t, i, w.SourceIndex)
				require.Equal(t, j, w.TargetIndex)
				require.Equal(t, w.Weight, kernels[k].At(i, j))
			}
		}
	}

	require.Equal(t, flat, Flatten(kernels))
}

func TestKernelsDoNotAliasInput(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	flat := sequence(68)
	kernels := must.M1(Kernels(topo, flat))
	flat[0] = 1000
	require.Equal(t, 0.0, kernels[0].At(0, 0))
}

func TestMisalignmentIsReported(t *testing.T) {
	topo := must.M1(topology.NewDefault(dataset.Iris()))
	list := must.M1(edges.Compute(topo))

	_, err := Align(list, sequence(len(list)-1))
	require.True(t, errors.Is(err, ErrMisaligned))
	_, err = Kernels(topo, sequence(len(list)+1))
	require.True(t, errors.Is(err, ErrMisaligned))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{-2, 1, 0.5, 0})
	require.Equal(t, 4, s.Count)
	require.Equal(t, -2.0, s.Min)
	require.Equal(t, 1.0, s.Max)
	require.Equal(t, 2.0, s.MaxAbs)
	require.InDelta(t, 0.875, s.MeanAbs, 1e-12)
	require.Equal(t, 0.5, s.PositiveFrac)
	require.Equal(t, Summary{}, Summarize(nil))
}

func TestHistoryRecordsInOrder(t *testing.T) {
	h := NewHistory(3)
	require.NoError(t, h.Record(0, []float64{1, 2, 3}))
	require.NoError(t, h.Record(1, []float64{4, 5, 6}))
	require.Error(t, h.Record(3, []float64{0, 0, 0}))
	require.True(t, errors.Is(h.Record(2, []float64{1}), ErrMisaligned))
	require.Equal(t, 2, h.Len())

	got, ok := h.At(1)
	require.True(t, ok)
	require.Equal(t, []float64{4, 5, 6}, got)
	got[0] = 99
	again, _ := h.At(1)
	require.Equal(t, 4.0, again[0])

	_, ok = h.At(2)
	require.False(t, ok)
	_, epoch, ok := h.Latest()
	require.True(t, ok)
	require.Equal(t, 1, epoch)

	h.Reset(12)
	require.Equal(t, 0, h.Len())
	require.Equal(t, 12, h.Width())
	_, _, ok = h.Latest()
	require.False(t, ok)
}

func TestHistorySnapshotsRestore(t *testing.T) {
	h := NewHistory(2)
	must.M(h.Record(0, []float64{1, 2}))
	must.M(h.Record(1, []float64{3, 4}))

	restored := NewHistory(2)
	require.NoError(t, restored.Restore(h.Snapshots()))
	require.Equal(t, h.Snapshots(), restored.Snapshots())

	require.Error(t, restored.Restore([]model.WeightSnapshot{{Epoch: 1, Values: []float64{1, 2}}}))
	require.Error(t, restored.Restore([]model.WeightSnapshot{{Epoch: 0, Values: []float64{1}}}))
	require.Equal(t, 2, restored.Len())
}
