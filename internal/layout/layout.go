// Package layout places every neuron of a topology on a canvas.
package layout

import (
	"fmt"

	"layerlab/internal/topology"
)

const (
	// ReferenceWidth is the canvas width the topology frame is expressed in.
	ReferenceWidth = 900.0
	DefaultHeight  = 600.0
	NodeRadius     = 19.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LayerNodes holds the positions of one layer's neurons in index order.
type LayerNodes struct {
	Name      string  `json:"name"`
	Positions []Point `json:"positions"`
}

// Layout maps layer names to node positions. It is rebuilt from scratch on every Compute.
type Layout struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Layers []LayerNodes `json:"layers"`

	index map[string]int
}

// Compute is pure: the same topology and canvas always yield identical positions.
// x scales the layer's frame position by width/ReferenceWidth; y spaces the layer's nodes
// evenly with a gap of height/(size+1) so no node touches the canvas edge.
func Compute(t *topology.Topology, width, height float64) (Layout, error) {
	const op = "compute layout"
	if width <= 0 || height <= 0 {
		return Layout{}, &topology.Error{Kind: topology.KindConfiguration, Op: op, Detail: fmt.Sprintf("canvas must be positive, got %gx%g", width, height)}
	}
	if t == nil {
		return Layout{}, &topology.Error{Kind: topology.KindInvalidTopology, Op: op, Detail: "nil topology"}
	}

	scale := width / ReferenceWidth
	layers := t.Layers()
	out := Layout{
		Width:  width,
		Height: height,
		Layers: make([]LayerNodes, 0, len(layers)),
		index:  make(map[string]int, len(layers)),
	}
	for _, layer := range layers {
		name := layer.Name()
		if name == "" || layer.Size <= 0 {
			return Layout{}, &topology.Error{Kind: topology.KindInvalidTopology, Op: op, Detail: fmt.Sprintf("unresolvable layer %+v", layer)}
		}
		gap := height / float64(layer.Size+1)
		x := layer.XPos * scale
		positions := make([]Point, layer.Size)
		for i := range positions {
			positions[i] = Point{X: x, Y: gap * float64(i+1)}
		}
		out.index[name] = len(out.Layers)
		out.Layers = append(out.Layers, LayerNodes{Name: name, Positions: positions})
	}
	return out, nil
}

// Nodes returns the positions for a layer name, or nil when the layer is absent.
func (l Layout) Nodes(name string) []Point {
	if l.index == nil {
		for _, layer := range l.Layers {
			if layer.Name == name {
				return layer.Positions
			}
		}
		return nil
	}
	idx, ok := l.index[name]
	if !ok {
		return nil
	}
	return l.Layers[idx].Positions
}

func (l Layout) Node(name string, i int) (Point, bool) {
	nodes := l.Nodes(name)
	if i < 0 || i >= len(nodes) {
		return Point{}, false
	}
	return nodes[i], true
}

// NodeCount is the total number of positioned neurons.
func (l Layout) NodeCount() int {
	n := 0
	for _, layer := range l.Layers {
		n += len(layer.Positions)
	}
	return n
}
