package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"layerlab/internal/model"
)

func TestTrainingHistorySeries(t *testing.T) {
	h := NewTrainingHistory()
	require.NoError(t, h.Record(model.EpochMetrics{Epoch: 1, Loss: 1.1, Accuracy: 0.4, ValLoss: 1.2, ValAccuracy: 0.3}))
	require.NoError(t, h.Record(model.EpochMetrics{Epoch: 2, Loss: 0.7, Accuracy: 0.8, ValLoss: 0.9, ValAccuracy: 0.9}))
	require.NoError(t, h.Record(model.EpochMetrics{Epoch: 3, Loss: 0.5, Accuracy: 0.9, ValLoss: 0.6, ValAccuracy: 0.9}))

	train, val, err := h.Series(MetricAccuracy)
	require.NoError(t, err)
	require.Equal(t, []SeriesPoint{{1, 0.4}, {2, 0.8}, {3, 0.9}}, train)
	require.Equal(t, []SeriesPoint{{1, 0.3}, {2, 0.9}, {3, 0.9}}, val)

	train, _, err = h.Series(MetricLoss)
	require.NoError(t, err)
	require.Equal(t, 0.5, train[2].Value)

	_, _, err = h.Series("f1")
	require.Error(t, err)

	best, ok := h.BestValidationAccuracy()
	require.True(t, ok)
	require.Equal(t, 2, best.Epoch)

	last, ok := h.Last()
	require.True(t, ok)
	require.Equal(t, 3, last.Epoch)
}

func TestTrainingHistoryOrderingAndReset(t *testing.T) {
	h := NewTrainingHistory()
	require.Error(t, h.Record(model.EpochMetrics{Epoch: 2}))
	require.NoError(t, h.Record(model.EpochMetrics{Epoch: 1}))
	require.Error(t, h.Record(model.EpochMetrics{Epoch: 1}))

	h.Reset()
	require.Equal(t, 0, h.Len())
	_, ok := h.Last()
	require.False(t, ok)
	_, ok = h.BestValidationAccuracy()
	require.False(t, ok)
}

func TestTrainingHistoryRestore(t *testing.T) {
	h := NewTrainingHistory()
	require.NoError(t, h.Restore([]model.EpochMetrics{{Epoch: 1}, {Epoch: 2}}))
	require.Equal(t, 2, h.Len())

	require.Error(t, h.Restore([]model.EpochMetrics{{Epoch: 1}, {Epoch: 3}}))
	require.Equal(t, 2, h.Len())
	require.Len(t, h.Epochs(), 2)
}
