package activation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAcceptsLabelsAndIdentifiers(t *testing.T) {
	for _, in := range []string{"relu", "ReLU", " RELU "} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, ReLU, got)
	}
	_, err := Parse("gelu")
	require.True(t, errors.Is(err, ErrActivationNotFound))
}

func TestAllIsSelectorOrder(t *testing.T) {
	labels := make([]string, 0)
	for _, n := range All() {
		require.True(t, n.Valid())
		labels = append(labels, n.Label())
	}
	require.Equal(t, []string{"Linear", "ReLU", "Sigmoid", "Softmax", "Softplus", "Tanh"}, labels)
	require.False(t, None.Valid())
}

func TestScalarForms(t *testing.T) {
	relu, ok := ReLU.Scalar()
	require.True(t, ok)
	require.Equal(t, 0.0, relu(-3))
	require.Equal(t, 2.5, relu(2.5))

	sig, _ := Sigmoid.Scalar()
	require.InDelta(t, 0.5, sig(0), 1e-12)

	sp, _ := Softplus.Scalar()
	require.InDelta(t, math.Log(2), sp(0), 1e-12)

	_, ok = Softmax.Scalar()
	require.False(t, ok)
}

func TestCurveSamplesInclusiveRange(t *testing.T) {
	points, err := Curve(Tanh, -10, 10, 1)
	require.NoError(t, err)
	require.Len(t, points, 21)
	require.Equal(t, -10.0, points[0].X)
	require.Equal(t, 10.0, points[20].X)
	require.InDelta(t, math.Tanh(10), points[20].Y, 1e-12)

	_, err = Curve(Softmax, -10, 10, 1)
	require.Error(t, err)
	_, err = Curve(Linear, 0, 1, 0)
	require.Error(t, err)
}
