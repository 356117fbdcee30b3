package storage

import (
	"context"

	"layerlab/internal/model"
)

// Store persists topologies together with the weight and metric history of their last run.
// Histories are keyed by topology id and removed with it.
type Store interface {
	Init(ctx context.Context) error
	SaveTopology(ctx context.Context, rec model.TopologyRecord) error
	GetTopology(ctx context.Context, id string) (model.TopologyRecord, bool, error)
	ListTopologies(ctx context.Context) ([]model.TopologyRecord, error)
	DeleteTopology(ctx context.Context, id string) error
	SaveWeightHistory(ctx context.Context, topologyID string, snapshots []model.WeightSnapshot) error
	GetWeightHistory(ctx context.Context, topologyID string) ([]model.WeightSnapshot, bool, error)
	SaveMetrics(ctx context.Context, topologyID string, epochs []model.EpochMetrics) error
	GetMetrics(ctx context.Context, topologyID string) ([]model.EpochMetrics, bool, error)
}
