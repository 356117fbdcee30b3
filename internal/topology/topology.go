// Package topology owns the abstract description of a feed-forward classifier: one input
// layer, up to six hidden layers and one output layer, each with a size and an activation.
//
// A Topology is single-writer. Every mutation validates first and commits second, so a call
// that returns an error leaves the topology exactly as it was, and a call that succeeds leaves
// hidden layer names and x positions renumbered.
package topology

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"

	"layerlab/internal/activation"
	"layerlab/internal/dataset"
)

const (
	MaxHiddenLayers = 6
	MinHiddenSize   = 2
	MaxHiddenSize   = 9

	DefaultLeft  = 100.0
	DefaultRight = 850.0
)

const (
	InputName        = "input"
	OutputName       = "output"
	hiddenNamePrefix = "hidden_"
)

// LayerKind tags the LayerSpec variant. The zero value is not a valid kind.
type LayerKind uint8

const (
	InputLayer LayerKind = iota + 1
	HiddenLayer
	OutputLayer
)

func (k LayerKind) String() string {
	switch k {
	case InputLayer:
		return "input"
	case HiddenLayer:
		return "hidden"
	case OutputLayer:
		return "output"
	default:
		return "unknown"
	}
}

func ParseLayerKind(s string) (LayerKind, bool) {
	switch s {
	case "input":
		return InputLayer, true
	case "hidden":
		return HiddenLayer, true
	case "output":
		return OutputLayer, true
	default:
		return 0, false
	}
}

// LayerSpec describes one layer. Index is meaningful for hidden layers only.
type LayerSpec struct {
	Kind       LayerKind
	Index      int
	Size       int
	Activation activation.Name
	XPos       float64
}

// Name is the join key shared with layouts and edges. It is derived from the kind and index,
// and is empty when the spec cannot be resolved.
func (l LayerSpec) Name() string {
	switch l.Kind {
	case InputLayer:
		return InputName
	case OutputLayer:
		return OutputName
	case HiddenLayer:
		if l.Index < 0 {
			return ""
		}
		return HiddenName(l.Index)
	default:
		return ""
	}
}

func HiddenName(index int) string {
	return hiddenNamePrefix + strconv.Itoa(index)
}

// Frame is the horizontal span between the input and output columns.
type Frame struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

func DefaultFrame() Frame {
	return Frame{Left: DefaultLeft, Right: DefaultRight}
}

func (f Frame) validate() error {
	if f.Left < 0 || f.Right <= f.Left {
		return fmt.Errorf("frame must satisfy 0 <= left < right, got left=%g right=%g", f.Left, f.Right)
	}
	return nil
}

// HiddenX is the x position of hidden layer i out of count hidden layers.
func (f Frame) HiddenX(i, count int) float64 {
	return f.Left + float64(i+1)*(f.Right-f.Left)/float64(count+1)
}

type HiddenDefault struct {
	Size       int             `json:"size"`
	Activation activation.Name `json:"activation"`
}

// Config seeds a new topology.
type Config struct {
	Frame            Frame
	Hidden           []HiddenDefault
	OutputActivation activation.Name
}

func DefaultConfig() Config {
	return Config{
		Frame: DefaultFrame(),
		Hidden: []HiddenDefault{
			{Size: 5, Activation: activation.ReLU},
			{Size: 6, Activation: activation.ReLU},
		},
		OutputActivation: activation.Softmax,
	}
}

type Topology struct {
	frame  Frame
	input  LayerSpec
	hidden []LayerSpec
	output LayerSpec
}

// NewDefault builds the startup topology for a dataset: two hidden relu layers and a
// softmax output.
func NewDefault(info dataset.Info) (*Topology, error) {
	return New(info, DefaultConfig())
}

func New(info dataset.Info, cfg Config) (*Topology, error) {
	const op = "create topology"
	if err := info.Validate(); err != nil {
		return nil, newError(KindConfiguration, op, "%v", err)
	}
	if err := cfg.Frame.validate(); err != nil {
		return nil, newError(KindConfiguration, op, "%v", err)
	}
	if len(cfg.Hidden) > MaxHiddenLayers {
		return nil, newError(KindCapacityExceeded, op, "%d default hidden layers exceed the limit of %d", len(cfg.Hidden), MaxHiddenLayers)
	}
	if !cfg.OutputActivation.Valid() {
		return nil, newError(KindConfiguration, op, "unknown output activation %q", cfg.OutputActivation)
	}

	t := &Topology{
		frame:  cfg.Frame,
		input:  LayerSpec{Kind: InputLayer, Size: info.FeatureCount, XPos: cfg.Frame.Left},
		output: LayerSpec{Kind: OutputLayer, Size: info.ClassCount, Activation: cfg.OutputActivation, XPos: cfg.Frame.Right},
		hidden: make([]LayerSpec, 0, MaxHiddenLayers),
	}
	for _, h := range cfg.Hidden {
		if err := checkHidden(h.Size, h.Activation); err != nil {
			err.Op = op
			return nil, err
		}
		t.hidden = append(t.hidden, LayerSpec{Kind: HiddenLayer, Size: h.Size, Activation: h.Activation})
	}
	t.renumber()
	return t, nil
}

// AddHiddenLayer appends a hidden layer just before the output layer.
func (t *Topology) AddHiddenLayer(size int, act activation.Name) error {
	const op = "add hidden layer"
	if len(t.hidden) >= MaxHiddenLayers {
		return newError(KindCapacityExceeded, op, "already at %d hidden layers", MaxHiddenLayers)
	}
	if err := checkHidden(size, act); err != nil {
		err.Op = op
		return err
	}
	t.hidden = append(t.hidden, LayerSpec{Kind: HiddenLayer, Size: size, Activation: act})
	t.renumber()
	return nil
}

// RemoveHiddenLayer drops the last hidden layer.
func (t *Topology) RemoveHiddenLayer() error {
	if len(t.hidden) == 0 {
		return newError(KindEmptyTopology, "remove hidden layer", "no hidden layers left")
	}
	t.hidden[len(t.hidden)-1] = LayerSpec{}
	t.hidden = t.hidden[:len(t.hidden)-1]
	t.renumber()
	return nil
}

// ResizeLayer moves a hidden layer's size by delta (+1 or -1), clamped to
// [MinHiddenSize, MaxHiddenSize]. It reports whether the size changed; pushing against a
// bound is a no-op rather than an error.
func (t *Topology) ResizeLayer(name string, delta int) (bool, error) {
	const op = "resize layer"
	if delta != 1 && delta != -1 {
		return false, newError(KindConfiguration, op, "delta must be +1 or -1, got %d", delta)
	}
	idx, err := t.hiddenIndex(name)
	if err != nil {
		err.Op = op
		return false, err
	}
	size := clamp(t.hidden[idx].Size+delta, MinHiddenSize, MaxHiddenSize)
	if size == t.hidden[idx].Size {
		return false, nil
	}
	t.hidden[idx].Size = size
	return true, nil
}

// SetHiddenActivation sets the activation of every hidden layer.
func (t *Topology) SetHiddenActivation(act activation.Name) error {
	if !act.Valid() {
		return newError(KindConfiguration, "set hidden activation", "unknown activation %q", act)
	}
	for i := range t.hidden {
		t.hidden[i].Activation = act
	}
	return nil
}

func (t *Topology) SetOutputActivation(act activation.Name) error {
	if !act.Valid() {
		return newError(KindConfiguration, "set output activation", "unknown activation %q", act)
	}
	t.output.Activation = act
	return nil
}

func (t *Topology) Frame() Frame {
	return t.frame
}

func (t *Topology) Input() LayerSpec {
	return t.input
}

func (t *Topology) Output() LayerSpec {
	return t.output
}

func (t *Topology) Hidden() []LayerSpec {
	return append([]LayerSpec(nil), t.hidden...)
}

func (t *Topology) HiddenCount() int {
	return len(t.hidden)
}

// Layers returns copies of every layer in network order.
func (t *Topology) Layers() []LayerSpec {
	layers := make([]LayerSpec, 0, len(t.hidden)+2)
	layers = append(layers, t.input)
	layers = append(layers, t.hidden...)
	layers = append(layers, t.output)
	return layers
}

// HiddenActivation is the activation of the last hidden layer, or false when none exist.
func (t *Topology) HiddenActivation() (activation.Name, bool) {
	if len(t.hidden) == 0 {
		return activation.None, false
	}
	return t.hidden[len(t.hidden)-1].Activation, true
}

func (t *Topology) Layer(name string) (LayerSpec, bool) {
	for _, layer := range t.Layers() {
		if layer.Name() == name {
			return layer, true
		}
	}
	return LayerSpec{}, false
}

func (t *Topology) Clone() *Topology {
	clone := *t
	clone.hidden = make([]LayerSpec, len(t.hidden), MaxHiddenLayers)
	copy(clone.hidden, t.hidden)
	return &clone
}

func (t *Topology) String() string {
	parts := make([]string, 0, len(t.hidden)+2)
	for _, layer := range t.Layers() {
		if layer.Activation == activation.None {
			parts = append(parts, fmt.Sprintf("%s(%d)", layer.Name(), layer.Size))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s(%d,%s)", layer.Name(), layer.Size, layer.Activation))
	}
	return strings.Join(parts, " -> ")
}

func (t *Topology) renumber() {
	for i := range t.hidden {
		t.hidden[i].Kind = HiddenLayer
		t.hidden[i].Index = i
		t.hidden[i].XPos = t.frame.HiddenX(i, len(t.hidden))
	}
}

func (t *Topology) hiddenIndex(name string) (int, *Error) {
	switch name {
	case InputName, OutputName:
		return 0, &Error{Kind: KindImmutableLayer, Detail: fmt.Sprintf("%s size is fixed by the dataset", name)}
	}
	rest, ok := strings.CutPrefix(name, hiddenNamePrefix)
	if ok {
		idx, err := strconv.Atoi(rest)
		if err == nil && idx >= 0 && idx < len(t.hidden) && strconv.Itoa(idx) == rest {
			return idx, nil
		}
	}
	return 0, &Error{Kind: KindUnknownLayer, Detail: fmt.Sprintf("no layer named %q", name)}
}

func checkHidden(size int, act activation.Name) *Error {
	if size < MinHiddenSize || size > MaxHiddenSize {
		return &Error{Kind: KindCapacityExceeded, Detail: fmt.Sprintf("hidden size %d outside [%d, %d]", size, MinHiddenSize, MaxHiddenSize)}
	}
	if !act.Valid() {
		return &Error{Kind: KindConfiguration, Detail: fmt.Sprintf("unknown activation %q", act)}
	}
	return nil
}

func clamp[T constraints.Integer](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
