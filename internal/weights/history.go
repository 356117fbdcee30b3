package weights

import (
	"sync"

	"github.com/pkg/errors"

	"layerlab/internal/model"
)

// History keeps one weight snapshot per epoch for the epoch scrubber. Epoch 0 is the
// initial weights; epochs must be recorded in order without gaps.
type History struct {
	mu        sync.RWMutex
	width     int
	snapshots [][]float64
}

// NewHistory accepts only vectors of the given width (the edge count).
func NewHistory(width int) *History {
	return &History{width: width}
}

func (h *History) Width() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.width
}

func (h *History) Record(epoch int, flat []float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(flat) != h.width {
		return errors.Wrapf(ErrMisaligned, "epoch %d: expected %d weights, got %d", epoch, h.width, len(flat))
	}
	if epoch != len(h.snapshots) {
		return errors.Errorf("epoch %d recorded out of order, next expected epoch is %d", epoch, len(h.snapshots))
	}
	h.snapshots = append(h.snapshots, append([]float64(nil), flat...))
	return nil
}

// At returns a copy of the weights at epoch. Epochs beyond what was recorded report false
// so a scrubber moved past the trained range is ignored.
func (h *History) At(epoch int) ([]float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if epoch < 0 || epoch >= len(h.snapshots) {
		return nil, false
	}
	return append([]float64(nil), h.snapshots[epoch]...), true
}

func (h *History) Latest() ([]float64, int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.snapshots) == 0 {
		return nil, -1, false
	}
	last := len(h.snapshots) - 1
	return append([]float64(nil), h.snapshots[last]...), last, true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.snapshots)
}

// Reset drops all snapshots and adopts a new width, used after a topology edit.
func (h *History) Reset(width int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.width = width
	h.snapshots = nil
}

func (h *History) Snapshots() []model.WeightSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]model.WeightSnapshot, len(h.snapshots))
	for i, values := range h.snapshots {
		out[i] = model.WeightSnapshot{Epoch: i, Values: append([]float64(nil), values...)}
	}
	return out
}

// Restore replaces the history with persisted snapshots, validating order and width.
func (h *History) Restore(snapshots []model.WeightSnapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	restored := make([][]float64, 0, len(snapshots))
	for i, snap := range snapshots {
		if snap.Epoch != i {
			return errors.Errorf("snapshot %d has epoch %d", i, snap.Epoch)
		}
		if len(snap.Values) != h.width {
			return errors.Wrapf(ErrMisaligned, "snapshot %d: expected %d weights, got %d", i, h.width, len(snap.Values))
		}
		restored = append(restored, append([]float64(nil), snap.Values...))
	}
	h.snapshots = restored
	return nil
}
