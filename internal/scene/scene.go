// Package scene assembles the read-only records a renderer draws: positioned nodes, styled
// edges with their weight tooltips, and the per-layer control labels.
package scene

import (
	"fmt"
	"math"
	"strconv"

	"layerlab/internal/activation"
	"layerlab/internal/edges"
	"layerlab/internal/layout"
	"layerlab/internal/topology"
	"layerlab/internal/weights"
)

type Style struct {
	Radius        float64 `json:"radius"`
	PositiveColor string  `json:"positive_color"`
	NegativeColor string  `json:"negative_color"`
	NeutralColor  string  `json:"neutral_color"`
	WidthScale    float64 `json:"width_scale"`
	MaxWidth      float64 `json:"max_width"`
	ControlOffset float64 `json:"control_offset"`
	SelectOffset  float64 `json:"select_offset"`
}

func DefaultStyle() Style {
	return Style{
		Radius:        layout.NodeRadius,
		PositiveColor: "rgba(75, 167, 242, 1)",
		NegativeColor: "rgba(245, 170, 71, 1)",
		NeutralColor:  "rgba(200, 200, 200, 1)",
		WidthScale:    5,
		MaxWidth:      10,
		ControlOffset: 65,
		SelectOffset:  25,
	}
}

type Node struct {
	Layer  string  `json:"layer"`
	Index  int     `json:"index"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"r"`
}

// Edge is drawn from the right rim of the source node to the left rim of the target node.
type Edge struct {
	ID int `json:"id"`
	edges.Edge
	From      layout.Point `json:"from"`
	To        layout.Point `json:"to"`
	HasWeight bool         `json:"has_weight"`
	Weight    float64      `json:"weight"`
	Stroke    string       `json:"stroke"`
	Width     float64      `json:"width"`
	Tooltip   string       `json:"tooltip,omitempty"`
}

// NodeControl is the add/remove neuron pair drawn above a hidden layer.
type NodeControl struct {
	Layer string  `json:"layer"`
	Left  float64 `json:"left"`
	Label string  `json:"label"`
}

type Option struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// Selector is an activation drop-down; Target is "hidden" or "output".
type Selector struct {
	Target  string   `json:"target"`
	Left    float64  `json:"left"`
	Options []Option `json:"options"`
}

type Scene struct {
	Width     float64       `json:"width"`
	Height    float64       `json:"height"`
	LayerText string        `json:"layer_text"`
	Nodes     []Node        `json:"nodes"`
	Edges     []Edge        `json:"edges"`
	Controls  []NodeControl `json:"controls"`
	Selectors []Selector    `json:"selectors"`
}

// Build combines a layout and edge list computed from t. flat may be nil before a model
// exists; otherwise it must be aligned with list.
func Build(t *topology.Topology, l layout.Layout, list []edges.Edge, flat []float64, style Style) (Scene, error) {
	if t == nil {
		return Scene{}, topology.ErrInvalidTopology
	}
	var aligned []weights.Weighted
	if flat != nil {
		var err error
		if aligned, err = weights.Align(list, flat); err != nil {
			return Scene{}, err
		}
	}

	s := Scene{
		Width:     l.Width,
		Height:    l.Height,
		LayerText: LayerText(t.HiddenCount()),
		Nodes:     make([]Node, 0, l.NodeCount()),
		Edges:     make([]Edge, 0, len(list)),
	}
	for _, layer := range l.Layers {
		for i, p := range layer.Positions {
			s.Nodes = append(s.Nodes, Node{Layer: layer.Name, Index: i, X: p.X, Y: p.Y, Radius: style.Radius})
		}
	}
	for i, e := range list {
		src, ok := l.Node(e.SourceLayer, e.SourceIndex)
		if !ok {
			return Scene{}, &topology.Error{Kind: topology.KindInvalidTopology, Op: "build scene", Detail: fmt.Sprintf("edge %s has no source node", e)}
		}
		dst, ok := l.Node(e.TargetLayer, e.TargetIndex)
		if !ok {
			return Scene{}, &topology.Error{Kind: topology.KindInvalidTopology, Op: "build scene", Detail: fmt.Sprintf("edge %s has no target node", e)}
		}
		view := Edge{
			ID:     i,
			Edge:   e,
			From:   layout.Point{X: src.X + style.Radius, Y: src.Y},
			To:     layout.Point{X: dst.X - style.Radius, Y: dst.Y},
			Stroke: style.NeutralColor,
			Width:  1,
		}
		if aligned != nil {
			w := aligned[i].Weight
			view.HasWeight = true
			view.Weight = w
			view.Stroke = style.StrokeColor(w)
			view.Width = style.StrokeWidth(w)
			view.Tooltip = Tooltip(w)
		}
		s.Edges = append(s.Edges, view)
	}

	scale := l.Width / layout.ReferenceWidth
	for _, layer := range t.Hidden() {
		s.Controls = append(s.Controls, NodeControl{
			Layer: layer.Name(),
			Left:  layer.XPos*scale - style.ControlOffset,
			Label: NeuronLabel(layer.Size),
		})
	}

	hiddenAct, ok := t.HiddenActivation()
	if !ok {
		hiddenAct = activation.ReLU
	}
	frame := t.Frame()
	s.Selectors = []Selector{
		{Target: "hidden", Left: (frame.Left+(frame.Right-frame.Left)/2)*scale - style.SelectOffset, Options: options(hiddenAct)},
		{Target: "output", Left: t.Output().XPos*scale - style.SelectOffset, Options: options(t.Output().Activation)},
	}
	return s, nil
}

func (s Style) StrokeColor(w float64) string {
	if w > 0 {
		return s.PositiveColor
	}
	return s.NegativeColor
}

// StrokeWidth grows with the weight magnitude up to MaxWidth.
func (s Style) StrokeWidth(w float64) float64 {
	return math.Min(math.Abs(w)*s.WidthScale, s.MaxWidth)
}

// Tooltip shows the weight truncated toward zero to three decimals.
func Tooltip(w float64) string {
	return "Weight value: " + strconv.FormatFloat(math.Trunc(w*1000)/1000, 'f', -1, 64)
}

func LayerText(hidden int) string {
	if hidden == 1 {
		return "1 hidden layer"
	}
	return fmt.Sprintf("%d hidden layers", hidden)
}

func NeuronLabel(size int) string {
	if size == 1 {
		return "1 neuron"
	}
	return fmt.Sprintf("%d neurons", size)
}

func options(selected activation.Name) []Option {
	all := activation.All()
	out := make([]Option, 0, len(all))
	for _, name := range all {
		out = append(out, Option{Label: name.Label(), Value: string(name), Selected: name == selected})
	}
	return out
}
