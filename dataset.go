package deepForest

import (
	"math/rand"
	"sort"
)

// Example is one labeled feature vector.
type Example struct {
	Features []float64 `json:"features" bson:"features"`
	Label    float64   `json:"label" bson:"label"`
}

// DataSet owns the examples. It must not be modified while a SampledDataSet
// derived from it is in use.
type DataSet []Example

// SampledDataSet references examples of a DataSet without copying them. A
// tree reorders its view in place while training.
type SampledDataSet []*Example

// EmptyDataSet allocates n examples with nFeatures zeroed features each.
func EmptyDataSet(n, nFeatures int) DataSet {
	ds := make(DataSet, n)
	for i := range ds {
		ds[i].Features = make([]float64, nFeatures)
	}
	return ds
}

func (ds DataSet) FeatureCount() int {
	if len(ds) == 0 {
		return 0
	}
	return len(ds[0].Features)
}

// Labels returns the distinct labels in ascending order.
func (ds DataSet) Labels() []float64 {
	seen := make(map[float64]struct{})
	labels := make([]float64, 0)
	for i := range ds {
		if _, ok := seen[ds[i].Label]; !ok {
			seen[ds[i].Label] = struct{}{}
			labels = append(labels, ds[i].Label)
		}
	}
	sort.Float64s(labels)
	return labels
}

// SampleExactly creates a view over every example of ds, in order.
func SampleExactly(ds DataSet) SampledDataSet {
	view := make(SampledDataSet, len(ds))
	for i := range ds {
		view[i] = &ds[i]
	}
	return view
}

// SampleWithReplacement draws n examples of ds with replacement.
func SampleWithReplacement(ds DataSet, n int, rng *rand.Rand) SampledDataSet {
	view := make(SampledDataSet, n)
	for i := 0; i < n; i++ {
		view[i] = &ds[rng.Intn(len(ds))]
	}
	return view
}

func (view SampledDataSet) FeatureCount() int {
	if len(view) == 0 {
		return 0
	}
	return len(view[0].Features)
}

// Histogram counts the labels of the view.
func (view SampledDataSet) Histogram() *LabelHistogram {
	h := NewLabelHistogram()
	for _, e := range view {
		h.Add(e.Label)
	}
	return h
}

// ModeLabel returns the most frequent label. Ties go to the label seen first.
func ModeLabel(view SampledDataSet) float64 {
	label, _ := view.Histogram().Mode()
	return label
}

// SingleLabel reports whether every example of the view has the same label.
func SingleLabel(view SampledDataSet) bool {
	for _, e := range view {
		if e.Label != view[0].Label {
			return false
		}
	}
	return true
}

// FeatureRange returns the smallest and largest value of feature i.
func FeatureRange(view SampledDataSet, i int) (low, high float64) {
	low, high = view[0].Features[i], view[0].Features[i]
	for _, e := range view[1:] {
		v := e.Features[i]
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}

// Partition reorders the view so that every example for which left returns
// true precedes every example for which it returns false, and returns the
// index of the first example of the second group.
func Partition(view SampledDataSet, left func(e *Example) bool) int {
	mid := 0
	for i := range view {
		if left(view[i]) {
			view[mid], view[i] = view[i], view[mid]
			mid++
		}
	}
	return mid
}

// ZeroCenterMean subtracts the per-feature mean from every example and returns
// the means.
func ZeroCenterMean(ds DataSet) []float64 {
	n := ds.FeatureCount()
	means := make([]float64, n)
	total := float64(len(ds))
	for i := range ds {
		for f := 0; f < n; f++ {
			means[f] += ds[i].Features[f] / total
		}
	}
	for i := range ds {
		ApplyMeans(ds[i].Features, means)
	}
	return means
}

// ApplyMeans subtracts means from features in place.
func ApplyMeans(features, means []float64) {
	for i := 0; i < len(features) && i < len(means); i++ {
		features[i] -= means[i]
	}
}

// Project picks features by index.
func Project(features []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = features[idx]
	}
	return out
}

// Clone deep copies the data set.
func (ds DataSet) Clone() DataSet {
	out := make(DataSet, len(ds))
	for i := range ds {
		out[i].Label = ds[i].Label
		out[i].Features = append([]float64(nil), ds[i].Features...)
	}
	return out
}
