package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// TopologyRecord is the persisted form of a network topology.
// Layers are stored in network order: input, hidden..., output.
type TopologyRecord struct {
	VersionedRecord
	ID           string        `json:"id"`
	Dataset      string        `json:"dataset"`
	Left         float64       `json:"left"`
	Right        float64       `json:"right"`
	Layers       []LayerRecord `json:"layers"`
	UpdatedAtUTC string        `json:"updated_at_utc,omitempty"`
}

type LayerRecord struct {
	Kind       string `json:"kind"`
	Size       int    `json:"size"`
	Activation string `json:"activation,omitempty"`
}

// WeightSnapshot is the flat kernel vector observed at the end of an epoch.
// Epoch 0 holds the initial weights.
type WeightSnapshot struct {
	Epoch  int       `json:"epoch"`
	Values []float64 `json:"values"`
}

type EpochMetrics struct {
	Epoch       int     `json:"epoch"`
	Loss        float64 `json:"loss"`
	Accuracy    float64 `json:"accuracy"`
	ValLoss     float64 `json:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy"`
}
