// Package stats holds the dense numeric helpers used by the forests: leaf
// distance models and feature column reduction.
package stats

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DistanceModel measures how far a point is from a fitted distribution.
type DistanceModel interface {
	Distance(point []float64) float64
}

// Service fits distance models.
type Service interface {
	Fit(points [][]float64) (DistanceModel, error)
}

var ErrNoPoints = errors.New("stats: no points to fit")

// singular values below this fraction of the largest one are treated as zero
const pinvTolerance = 1e-10

// Mahalanobis fits MahalanobisModel values.
type Mahalanobis struct{}

// MahalanobisModel is the mean and the pseudo inverse of the covariance of a
// distribution. The inverse is stored row major.
type MahalanobisModel struct {
	Means             []float64 `json:"means" bson:"means"`
	InverseCovariance []float64 `json:"inverseCovariance" bson:"inverseCovariance"`
}

func (Mahalanobis) Fit(points [][]float64) (DistanceModel, error) {
	return FitMahalanobis(points)
}

// FitMahalanobis computes the mean and the covariance of points. A singular
// covariance, e.g. from fewer points than dimensions, is inverted through
// its SVD.
func FitMahalanobis(points [][]float64) (*MahalanobisModel, error) {
	n := len(points)
	if n == 0 {
		return nil, ErrNoPoints
	}
	d := len(points[0])
	if d == 0 {
		return &MahalanobisModel{}, nil
	}

	data := mat.NewDense(n, d, nil)
	for i, p := range points {
		if len(p) != d {
			return nil, errors.Errorf("stats: point %d has %d dimensions, expected %d", i, len(p), d)
		}
		data.SetRow(i, p)
	}

	means := make([]float64, d)
	for j := 0; j < d; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			data.Set(i, j, data.At(i, j)-means[j])
		}
	}

	denom := float64(n - 1)
	if n < 2 {
		denom = 1
	}
	var cov mat.Dense
	cov.Mul(data.T(), data)
	cov.Scale(1/denom, &cov)

	var svd mat.SVD
	if ok := svd.Factorize(&cov, mat.SVDFull); !ok {
		return nil, errors.New("stats: unable to factorize covariance matrix")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tolerance := 0.0
	if len(values) > 0 {
		tolerance = values[0] * pinvTolerance
	}
	inverse := make([]float64, d*d)
	for k, s := range values {
		if s <= tolerance {
			continue
		}
		for i := 0; i < d; i++ {
			vik := v.At(i, k) / s
			for j := 0; j < d; j++ {
				inverse[i*d+j] += vik * u.At(j, k)
			}
		}
	}

	return &MahalanobisModel{Means: means, InverseCovariance: inverse}, nil
}

func (m *MahalanobisModel) Dim() int { return len(m.Means) }

func (m *MahalanobisModel) Distance(point []float64) float64 {
	d := len(m.Means)
	if d == 0 {
		return 0
	}
	diff := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		diff.SetVec(i, point[i]-m.Means[i])
	}
	sq := mat.Inner(diff, mat.NewDense(d, d, m.InverseCovariance), diff)
	if sq <= 0 || math.IsNaN(sq) {
		return 0
	}
	return math.Sqrt(sq)
}
