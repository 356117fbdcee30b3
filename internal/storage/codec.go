package storage

import (
	"encoding/json"

	"github.com/pkg/errors"

	"layerlab/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeTopology(rec model.TopologyRecord) ([]byte, error) {
	if rec.ID == "" {
		return nil, errors.New("topology id is required")
	}
	return json.Marshal(rec)
}

func DecodeTopology(data []byte) (model.TopologyRecord, error) {
	var rec model.TopologyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.TopologyRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.TopologyRecord{}, errors.Wrapf(err, "topology %s: schema=%d codec=%d", rec.ID, rec.SchemaVersion, rec.CodecVersion)
	}
	return rec, nil
}

func EncodeWeightHistory(snapshots []model.WeightSnapshot) ([]byte, error) {
	if err := checkSnapshots(snapshots); err != nil {
		return nil, err
	}
	return json.Marshal(snapshots)
}

func DecodeWeightHistory(data []byte) ([]model.WeightSnapshot, error) {
	var snapshots []model.WeightSnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, err
	}
	if err := checkSnapshots(snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func EncodeMetrics(epochs []model.EpochMetrics) ([]byte, error) {
	return json.Marshal(epochs)
}

func DecodeMetrics(data []byte) ([]model.EpochMetrics, error) {
	var epochs []model.EpochMetrics
	if err := json.Unmarshal(data, &epochs); err != nil {
		return nil, err
	}
	return epochs, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// checkSnapshots enforces epochs 0..n-1 of a single width.
func checkSnapshots(snapshots []model.WeightSnapshot) error {
	for i, snap := range snapshots {
		if snap.Epoch != i {
			return errors.Errorf("weight snapshot %d has epoch %d", i, snap.Epoch)
		}
		if len(snap.Values) != len(snapshots[0].Values) {
			return errors.Errorf("weight snapshot %d has %d values, expected %d", i, len(snap.Values), len(snapshots[0].Values))
		}
	}
	return nil
}
