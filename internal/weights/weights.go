// Package weights reads trained kernel values back onto the edge list.
//
// The weight reader hands over one flat vector per observation: each transition's kernel
// of shape (source size, target size) flattened row-major, concatenated in network order.
// That vector is aligned one to one with edges.Compute for the same topology.
package weights

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"layerlab/internal/edges"
	"layerlab/internal/topology"
)

var ErrMisaligned = errors.New("weight vector is not aligned with edges")

// Weighted is an edge paired with its kernel value.
type Weighted struct {
	edges.Edge
	Weight float64 `json:"weight"`
}

// Align pairs every edge with the value at the same position.
func Align(list []edges.Edge, flat []float64) ([]Weighted, error) {
	if len(list) != len(flat) {
		return nil, errors.Wrapf(ErrMisaligned, "%d edges, %d weights", len(list), len(flat))
	}
	out := make([]Weighted, len(list))
	for i, e := range list {
		out[i] = Weighted{Edge: e, Weight: flat[i]}
	}
	return out, nil
}

// Kernels splits a flat vector into one matrix per transition, rows indexed by source
// neuron and columns by target neuron. The matrices share no memory with flat.
func Kernels(t *topology.Topology, flat []float64) ([]*mat.Dense, error) {
	transitions, err := edges.Transitions(t)
	if err != nil {
		return nil, err
	}
	want := 0
	for _, tr := range transitions {
		want += tr.Count()
	}
	if len(flat) != want {
		return nil, errors.Wrapf(ErrMisaligned, "topology has %d edges, got %d weights", want, len(flat))
	}
	out := make([]*mat.Dense, 0, len(transitions))
	for _, tr := range transitions {
		data := make([]float64, tr.Count())
		copy(data, flat[tr.Offset:tr.Offset+tr.Count()])
		out = append(out, mat.NewDense(tr.Source.Size, tr.Target.Size, data))
	}
	return out, nil
}

// Flatten is the inverse of Kernels.
func Flatten(kernels []*mat.Dense) []float64 {
	n := 0
	for _, k := range kernels {
		r, c := k.Dims()
		n += r * c
	}
	out := make([]float64, 0, n)
	for _, k := range kernels {
		r, c := k.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out = append(out, k.At(i, j))
			}
		}
	}
	return out
}

// Summary describes the spread of a weight vector.
type Summary struct {
	Count        int     `json:"count"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	MeanAbs      float64 `json:"mean_abs"`
	MaxAbs       float64 `json:"max_abs"`
	PositiveFrac float64 `json:"positive_frac"`
}

func Summarize(flat []float64) Summary {
	if len(flat) == 0 {
		return Summary{}
	}
	abs := make([]float64, len(flat))
	positive := 0
	for i, w := range flat {
		abs[i] = math.Abs(w)
		if w > 0 {
			positive++
		}
	}
	return Summary{
		Count:        len(flat),
		Min:          floats.Min(flat),
		Max:          floats.Max(flat),
		MeanAbs:      floats.Sum(abs) / float64(len(abs)),
		MaxAbs:       floats.Max(abs),
		PositiveFrac: float64(positive) / float64(len(flat)),
	}
}
