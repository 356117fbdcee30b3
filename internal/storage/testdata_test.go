package storage

import "layerlab/internal/model"

func sampleTopology(id string) model.TopologyRecord {
	return model.TopologyRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		Dataset:         "iris",
		Left:            100,
		Right:           850,
		Layers: []model.LayerRecord{
			{Kind: "input", Size: 4},
			{Kind: "hidden", Size: 5, Activation: "relu"},
			{Kind: "output", Size: 3, Activation: "softmax"},
		},
	}
}

func sampleSnapshots(epochs, width int) []model.WeightSnapshot {
	out := make([]model.WeightSnapshot, epochs)
	for e := range out {
		values := make([]float64, width)
		for i := range values {
			values[i] = float64(e) + float64(i)/10
		}
		out[e] = model.WeightSnapshot{Epoch: e, Values: values}
	}
	return out
}
