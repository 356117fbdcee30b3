package topology

import (
	"layerlab/internal/activation"
	"layerlab/internal/model"
)

const (
	RecordSchemaVersion = 1
	RecordCodecVersion  = 1
)

// Record converts the topology into its persisted form.
func (t *Topology) Record(id, datasetName string) model.TopologyRecord {
	layers := make([]model.LayerRecord, 0, len(t.hidden)+2)
	for _, layer := range t.Layers() {
		layers = append(layers, model.LayerRecord{
			Kind:       layer.Kind.String(),
			Size:       layer.Size,
			Activation: string(layer.Activation),
		})
	}
	return model.TopologyRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: RecordSchemaVersion, CodecVersion: RecordCodecVersion},
		ID:              id,
		Dataset:         datasetName,
		Left:            t.frame.Left,
		Right:           t.frame.Right,
		Layers:          layers,
	}
}

// FromRecord rebuilds a topology, enforcing the same invariants as the mutation API.
// Names and positions are recomputed rather than trusted.
func FromRecord(rec model.TopologyRecord) (*Topology, error) {
	const op = "restore topology"
	frame := Frame{Left: rec.Left, Right: rec.Right}
	if err := frame.validate(); err != nil {
		return nil, newError(KindConfiguration, op, "%v", err)
	}
	if len(rec.Layers) < 2 {
		return nil, newError(KindInvalidTopology, op, "expected at least input and output layers, got %d layers", len(rec.Layers))
	}
	if len(rec.Layers)-2 > MaxHiddenLayers {
		return nil, newError(KindCapacityExceeded, op, "%d hidden layers exceed the limit of %d", len(rec.Layers)-2, MaxHiddenLayers)
	}

	first, last := rec.Layers[0], rec.Layers[len(rec.Layers)-1]
	if first.Kind != InputLayer.String() || first.Size <= 0 || first.Activation != "" {
		return nil, newError(KindInvalidTopology, op, "first layer must be a sized input layer without activation, got %+v", first)
	}
	if last.Kind != OutputLayer.String() || last.Size <= 0 {
		return nil, newError(KindInvalidTopology, op, "last layer must be a sized output layer, got %+v", last)
	}
	outputAct := activation.Name(last.Activation)
	if !outputAct.Valid() {
		return nil, newError(KindConfiguration, op, "unknown output activation %q", last.Activation)
	}

	t := &Topology{
		frame:  frame,
		input:  LayerSpec{Kind: InputLayer, Size: first.Size, XPos: frame.Left},
		output: LayerSpec{Kind: OutputLayer, Size: last.Size, Activation: outputAct, XPos: frame.Right},
		hidden: make([]LayerSpec, 0, MaxHiddenLayers),
	}
	for _, layer := range rec.Layers[1 : len(rec.Layers)-1] {
		if layer.Kind != HiddenLayer.String() {
			return nil, newError(KindInvalidTopology, op, "expected hidden layer, got kind %q", layer.Kind)
		}
		act := activation.Name(layer.Activation)
		if err := checkHidden(layer.Size, act); err != nil {
			err.Op = op
			return nil, err
		}
		t.hidden = append(t.hidden, LayerSpec{Kind: HiddenLayer, Size: layer.Size, Activation: act})
	}
	t.renumber()
	return t, nil
}
