package stats

import (
	"sync"

	"github.com/pkg/errors"

	"layerlab/internal/model"
)

// Metric selects one of the two live charts.
type Metric string

const (
	MetricAccuracy Metric = "acc"
	MetricLoss     Metric = "loss"
)

// SeriesPoint is one chart sample.
type SeriesPoint struct {
	Epoch int     `json:"epoch"`
	Value float64 `json:"value"`
}

// TrainingHistory accumulates per-epoch metrics reported by the training loop. Epochs are
// 1-based, matching the epoch counter shown to the user.
type TrainingHistory struct {
	mu     sync.RWMutex
	epochs []model.EpochMetrics
}

func NewTrainingHistory() *TrainingHistory {
	return &TrainingHistory{}
}

func (h *TrainingHistory) Record(m model.EpochMetrics) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if want := len(h.epochs) + 1; m.Epoch != want {
		return errors.Errorf("metrics for epoch %d recorded out of order, expected epoch %d", m.Epoch, want)
	}
	h.epochs = append(h.epochs, m)
	return nil
}

// Series returns the training and validation curves for a chart.
func (h *TrainingHistory) Series(metric Metric) (train, validation []SeriesPoint, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	train = make([]SeriesPoint, 0, len(h.epochs))
	validation = make([]SeriesPoint, 0, len(h.epochs))
	for _, m := range h.epochs {
		switch metric {
		case MetricAccuracy:
			train = append(train, SeriesPoint{Epoch: m.Epoch, Value: m.Accuracy})
			validation = append(validation, SeriesPoint{Epoch: m.Epoch, Value: m.ValAccuracy})
		case MetricLoss:
			train = append(train, SeriesPoint{Epoch: m.Epoch, Value: m.Loss})
			validation = append(validation, SeriesPoint{Epoch: m.Epoch, Value: m.ValLoss})
		default:
			return nil, nil, errors.Errorf("unknown metric %q", metric)
		}
	}
	return train, validation, nil
}

// Last returns the most recent epoch metrics.
func (h *TrainingHistory) Last() (model.EpochMetrics, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.epochs) == 0 {
		return model.EpochMetrics{}, false
	}
	return h.epochs[len(h.epochs)-1], true
}

// BestValidationAccuracy is the epoch with the highest validation accuracy; ties keep the
// earliest epoch.
func (h *TrainingHistory) BestValidationAccuracy() (model.EpochMetrics, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.epochs) == 0 {
		return model.EpochMetrics{}, false
	}
	best := h.epochs[0]
	for _, m := range h.epochs[1:] {
		if m.ValAccuracy > best.ValAccuracy {
			best = m
		}
	}
	return best, true
}

func (h *TrainingHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.epochs)
}

func (h *TrainingHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.epochs = nil
}

func (h *TrainingHistory) Epochs() []model.EpochMetrics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]model.EpochMetrics(nil), h.epochs...)
}

func (h *TrainingHistory) Restore(epochs []model.EpochMetrics) error {
	fresh := NewTrainingHistory()
	for _, m := range epochs {
		if err := fresh.Record(m); err != nil {
			return err
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.epochs = fresh.epochs
	return nil
}
