package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"layerlab/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	topologies  map[string]model.TopologyRecord
	weights     map[string][]model.WeightSnapshot
	metrics     map[string][]model.EpochMetrics
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.topologies = make(map[string]model.TopologyRecord)
	s.weights = make(map[string][]model.WeightSnapshot)
	s.metrics = make(map[string][]model.EpochMetrics)
	return nil
}

func (s *MemoryStore) SaveTopology(_ context.Context, rec model.TopologyRecord) error {
	if rec.ID == "" {
		return errors.New("topology id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitLocked(); err != nil {
		return err
	}

	s.topologies[rec.ID] = copyTopology(rec)
	return nil
}

func (s *MemoryStore) GetTopology(_ context.Context, id string) (model.TopologyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitLocked(); err != nil {
		return model.TopologyRecord{}, false, err
	}

	rec, ok := s.topologies[id]
	if !ok {
		return model.TopologyRecord{}, false, nil
	}
	return copyTopology(rec), true, nil
}

// ListTopologies returns every stored topology ordered by id.
func (s *MemoryStore) ListTopologies(_ context.Context) ([]model.TopologyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitLocked(); err != nil {
		return nil, err
	}

	out := make([]model.TopologyRecord, 0, len(s.topologies))
	for _, rec := range s.topologies {
		out = append(out, copyTopology(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteTopology(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitLocked(); err != nil {
		return err
	}

	delete(s.topologies, id)
	delete(s.weights, id)
	delete(s.metrics, id)
	return nil
}

func (s *MemoryStore) SaveWeightHistory(_ context.Context, topologyID string, snapshots []model.WeightSnapshot) error {
	if err := checkSnapshots(snapshots); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitLocked(); err != nil {
		return err
	}

	s.weights[topologyID] = copySnapshots(snapshots)
	return nil
}

func (s *MemoryStore) GetWeightHistory(_ context.Context, topologyID string) ([]model.WeightSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitLocked(); err != nil {
		return nil, false, err
	}

	snapshots, ok := s.weights[topologyID]
	if !ok {
		return nil, false, nil
	}
	return copySnapshots(snapshots), true, nil
}

func (s *MemoryStore) SaveMetrics(_ context.Context, topologyID string, epochs []model.EpochMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInitLocked(); err != nil {
		return err
	}

	s.metrics[topologyID] = append([]model.EpochMetrics(nil), epochs...)
	return nil
}

func (s *MemoryStore) GetMetrics(_ context.Context, topologyID string) ([]model.EpochMetrics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInitLocked(); err != nil {
		return nil, false, err
	}

	epochs, ok := s.metrics[topologyID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.EpochMetrics(nil), epochs...), true, nil
}

func (s *MemoryStore) checkInitLocked() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func copyTopology(rec model.TopologyRecord) model.TopologyRecord {
	rec.Layers = append([]model.LayerRecord(nil), rec.Layers...)
	return rec
}

func copySnapshots(snapshots []model.WeightSnapshot) []model.WeightSnapshot {
	out := make([]model.WeightSnapshot, len(snapshots))
	for i, snap := range snapshots {
		out[i] = model.WeightSnapshot{Epoch: snap.Epoch, Values: append([]float64(nil), snap.Values...)}
	}
	return out
}
