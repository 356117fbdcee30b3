package main

import (
	"encoding/json"
	"fmt"
	"os"

	"layerlab/internal/activation"
	"layerlab/internal/dataset"
	"layerlab/internal/session"
	"layerlab/internal/topology"
)

// loadSessionConfig overlays a JSON config file onto session.DefaultConfig. Unknown keys and
// keys of the wrong type are ignored.
func loadSessionConfig(path string) (session.Config, error) {
	cfg := session.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return session.Config{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return session.Config{}, err
	}

	if v, ok := asString(raw["dataset"]); ok {
		info, err := dataset.Lookup(v)
		if err != nil {
			return session.Config{}, err
		}
		cfg.Dataset = info
	}
	if ds, ok := raw["dataset_info"].(map[string]any); ok {
		info := dataset.Info{}
		info.Name, _ = asString(ds["name"])
		info.FeatureCount, _ = asInt(ds["feature_count"])
		info.ClassCount, _ = asInt(ds["class_count"])
		if err := info.Validate(); err != nil {
			return session.Config{}, err
		}
		cfg.Dataset = info
	}
	if v, ok := asFloat64(raw["canvas_width"]); ok {
		cfg.CanvasWidth = v
	}
	if v, ok := asFloat64(raw["canvas_height"]); ok {
		cfg.CanvasHeight = v
	}
	if v, ok := asFloat64(raw["frame_left"]); ok {
		cfg.Topology.Frame.Left = v
	}
	if v, ok := asFloat64(raw["frame_right"]); ok {
		cfg.Topology.Frame.Right = v
	}
	if layers, ok := raw["hidden_layers"].([]any); ok {
		hidden := make([]topology.HiddenDefault, 0, len(layers))
		for i, item := range layers {
			m, ok := item.(map[string]any)
			if !ok {
				return session.Config{}, fmt.Errorf("hidden_layers[%d] must be an object", i)
			}
			size, _ := asInt(m["size"])
			name, _ := asString(m["activation"])
			act := activation.ReLU
			if name != "" {
				if act, err = activation.Parse(name); err != nil {
					return session.Config{}, fmt.Errorf("hidden_layers[%d]: %w", i, err)
				}
			}
			hidden = append(hidden, topology.HiddenDefault{Size: size, Activation: act})
		}
		cfg.Topology.Hidden = hidden
	}
	if v, ok := asString(raw["output_activation"]); ok {
		act, err := activation.Parse(v)
		if err != nil {
			return session.Config{}, fmt.Errorf("output_activation: %w", err)
		}
		cfg.Topology.OutputActivation = act
	}
	if v, ok := asInt(raw["new_layer_size"]); ok {
		cfg.NewLayerSize = v
	}

	if v, ok := asString(raw["optimizer"]); ok {
		cfg.Settings.Optimizer = v
	}
	if v, ok := asFloat64(raw["learning_rate"]); ok {
		cfg.Settings.LearningRate = v
	}
	if v, ok := asString(raw["loss"]); ok {
		cfg.Settings.Loss = v
	}
	if v, ok := asInt(raw["batch_size"]); ok {
		cfg.Settings.BatchSize = v
	}
	if v, ok := asInt(raw["epochs"]); ok {
		cfg.Settings.Epochs = v
	}
	if v, ok := asBool(raw["shuffle"]); ok {
		cfg.Settings.Shuffle = v
	}
	return cfg, nil
}

func loadOrDefaultSessionConfig(configPath string) (session.Config, error) {
	if configPath == "" {
		return session.DefaultConfig(), nil
	}
	cfg, err := loadSessionConfig(configPath)
	if err != nil {
		return session.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
