// Package modelplan turns a topology into the declarative description a model builder needs:
// one dense layer per transition plus the compile and fit settings.
package modelplan

import (
	"github.com/pkg/errors"

	"layerlab/internal/activation"
	"layerlab/internal/edges"
	"layerlab/internal/topology"
)

// Settings are the compile and fit parameters passed through to the training library.
type Settings struct {
	Optimizer    string   `json:"optimizer"`
	LearningRate float64  `json:"learning_rate"`
	Loss         string   `json:"loss"`
	Metrics      []string `json:"metrics"`
	BatchSize    int      `json:"batch_size"`
	Epochs       int      `json:"epochs"`
	Shuffle      bool     `json:"shuffle"`
}

func DefaultSettings() Settings {
	return Settings{
		Optimizer:    "adam",
		LearningRate: 0.01,
		Loss:         "categorical_crossentropy",
		Metrics:      []string{"accuracy"},
		BatchSize:    32,
		Epochs:       20,
		Shuffle:      true,
	}
}

func (s Settings) Validate() error {
	if s.Optimizer == "" || s.Loss == "" {
		return errors.New("optimizer and loss are required")
	}
	if s.LearningRate <= 0 {
		return errors.Errorf("learning rate must be positive, got %g", s.LearningRate)
	}
	if s.BatchSize <= 0 || s.Epochs <= 0 {
		return errors.Errorf("batch size and epochs must be positive, got batch=%d epochs=%d", s.BatchSize, s.Epochs)
	}
	return nil
}

// Dense is one fully connected layer. Its kernel has shape (InputDim, Units) and its
// flattened row-major form covers edges [EdgeOffset, EdgeOffset+InputDim*Units).
type Dense struct {
	Name       string          `json:"name"`
	InputDim   int             `json:"input_dim"`
	Units      int             `json:"units"`
	Activation activation.Name `json:"activation"`
	EdgeOffset int             `json:"edge_offset"`
}

func (d Dense) KernelShape() [2]int {
	return [2]int{d.InputDim, d.Units}
}

func (d Dense) KernelParams() int {
	return d.InputDim * d.Units
}

// Params counts kernel and bias parameters.
func (d Dense) Params() int {
	return d.KernelParams() + d.Units
}

type Plan struct {
	InputDim int      `json:"input_dim"`
	Layers   []Dense  `json:"layers"`
	Settings Settings `json:"settings"`
}

// Build derives the plan from a topology snapshot. The topology is the only source of truth
// for units and activations; the builder must not reorder layers.
func Build(t *topology.Topology, settings Settings) (Plan, error) {
	if err := settings.Validate(); err != nil {
		return Plan{}, errors.Wrap(err, "invalid training settings")
	}
	transitions, err := edges.Transitions(t)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{
		InputDim: t.Input().Size,
		Layers:   make([]Dense, 0, len(transitions)),
		Settings: settings,
	}
	for _, tr := range transitions {
		plan.Layers = append(plan.Layers, Dense{
			Name:       tr.Target.Name(),
			InputDim:   tr.Source.Size,
			Units:      tr.Target.Size,
			Activation: tr.Target.Activation,
			EdgeOffset: tr.Offset,
		})
	}
	return plan, nil
}

// KernelParams is the length of the flattened weight vector, equal to the edge count.
func (p Plan) KernelParams() int {
	n := 0
	for _, layer := range p.Layers {
		n += layer.KernelParams()
	}
	return n
}

func (p Plan) Params() int {
	n := 0
	for _, layer := range p.Layers {
		n += layer.Params()
	}
	return n
}

// Validate checks that the plan's kernels line up one to one with an edge list.
func (p Plan) Validate(list []edges.Edge) error {
	if got, want := len(list), p.KernelParams(); got != want {
		return errors.Errorf("plan has %d kernel parameters but %d edges", want, got)
	}
	for _, layer := range p.Layers {
		if layer.KernelParams() == 0 {
			continue
		}
		first := list[layer.EdgeOffset]
		last := list[layer.EdgeOffset+layer.KernelParams()-1]
		if first.TargetLayer != layer.Name || last.TargetLayer != layer.Name {
			return errors.Errorf("edges for %s start at %s and end at %s", layer.Name, first, last)
		}
		if first.SourceIndex != 0 || first.TargetIndex != 0 ||
			last.SourceIndex != layer.InputDim-1 || last.TargetIndex != layer.Units-1 {
			return errors.Errorf("edges for %s are not in row-major kernel order", layer.Name)
		}
	}
	return nil
}
