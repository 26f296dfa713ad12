package stats

import (
	"math/rand"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "stats")

// ColumnReducer clusters the feature columns of a data set with k-means and
// keeps one column of every cluster.
type ColumnReducer struct {
	Clusters   int   `json:"clusters" bson:"clusters"`
	Projection []int `json:"projection" bson:"projection"`
}

func NewColumnReducer(clusters int) *ColumnReducer {
	return &ColumnReducer{Clusters: clusters}
}

// Fit picks the kept columns. rows is row major, every row of equal length.
func (r *ColumnReducer) Fit(rows [][]float64, rng *rand.Rand) error {
	if len(rows) == 0 {
		return ErrNoPoints
	}
	if r.Clusters <= 0 {
		return errors.Errorf("stats: cluster count must be positive, got %d", r.Clusters)
	}

	nColumns := len(rows[0])
	k := r.Clusters
	if k > nColumns {
		k = nColumns
	}

	// observations are the columns of the matrix
	columns := make(clusters.Observations, nColumns)
	for j := 0; j < nColumns; j++ {
		column := make(clusters.Coordinates, len(rows))
		for i := range rows {
			column[i] = rows[i][j]
		}
		columns[j] = column
	}

	partition, err := kmeans.New().Partition(columns, k)
	if err != nil {
		return errors.Wrap(err, "stats: k-means over feature columns")
	}

	// reservoir sample one column per cluster
	chosen := make([]int, len(partition))
	seen := make([]int, len(partition))
	for i := range chosen {
		chosen[i] = -1
	}
	for j, column := range columns {
		c := partition.Nearest(column)
		seen[c]++
		if seen[c] == 1 || rng.Float64() <= 1/float64(seen[c]) {
			chosen[c] = j
		}
	}

	r.Projection = r.Projection[:0]
	for _, j := range chosen {
		if j >= 0 {
			r.Projection = append(r.Projection, j)
		}
	}

	log.WithFields(logrus.Fields{
		"columns":  nColumns,
		"clusters": k,
		"kept":     len(r.Projection),
	}).Debug("feature columns reduced")
	return nil
}

// Transform keeps the fitted columns of features.
func (r *ColumnReducer) Transform(features []float64) []float64 {
	out := make([]float64, len(r.Projection))
	for i, j := range r.Projection {
		out[i] = features[j]
	}
	return out
}

// InputArity is the smallest feature vector length Transform accepts.
func (r *ColumnReducer) InputArity() int {
	max := 0
	for _, j := range r.Projection {
		if j+1 > max {
			max = j + 1
		}
	}
	return max
}
