package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitMahalanobisEmpty(t *testing.T) {
	_, err := FitMahalanobis(nil)
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = FitMahalanobis([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestMahalanobisDiagonal(t *testing.T) {
	// x varies with variance 4, y with variance 1, independent
	points := [][]float64{
		{-2, -1}, {-2, 1}, {2, -1}, {2, 1},
	}
	model, err := FitMahalanobis(points)
	require.NoError(t, err)
	assert.Equal(t, 2, model.Dim())
	assert.InDeltaSlice(t, []float64{0, 0}, model.Means, 1e-12)

	// sample covariance uses n-1: var(x) = 16/3, var(y) = 4/3
	assert.InDelta(t, 0, model.Distance([]float64{0, 0}), 1e-9)
	assert.InDelta(t, 2/math.Sqrt(16.0/3), model.Distance([]float64{2, 0}), 1e-9)
	assert.InDelta(t, 1/math.Sqrt(4.0/3), model.Distance([]float64{0, 1}), 1e-9)
}

func TestMahalanobisSingularCovariance(t *testing.T) {
	// all points on the line y = x
	points := [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	model, err := FitMahalanobis(points)
	require.NoError(t, err)

	d := model.Distance([]float64{1.5, 1.5})
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, 0, d, 1e-9)
	assert.Greater(t, model.Distance([]float64{3, 3}), 0.0)
}

func TestMahalanobisSinglePoint(t *testing.T) {
	model, err := Mahalanobis{}.Fit([][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, model.Distance([]float64{5, 5, 5}))
}

func TestMahalanobisGrowsWithDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := make([][]float64, 200)
	for i := range points {
		points[i] = []float64{rng.NormFloat64(), rng.NormFloat64()*3 + 1, rng.NormFloat64()}
	}
	model, err := FitMahalanobis(points)
	require.NoError(t, err)

	near := model.Distance([]float64{0, 1, 0})
	far := model.Distance([]float64{5, 1, 0})
	assert.Less(t, near, far)
	assert.Less(t, near, 0.5)
}
