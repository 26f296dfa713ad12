package deepForest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBlobs is a linearly separable data set: label 1 iff the first feature is
// above 5.
func twoBlobs(n int, rng *rand.Rand) DataSet {
	ds := make(DataSet, n)
	for i := range ds {
		label := float64(i % 2)
		ds[i] = Example{
			Features: []float64{label*10 + rng.Float64()*2 - 1, rng.Float64(), rng.Float64()},
			Label:    label,
		}
	}
	return ds
}

func TestNewSplitFactory(t *testing.T) {
	for _, kind := range []string{"", SplitterUnivariate, SplitterMultivariate, SplitterPerceptron, SplitterOneVsOne} {
		factory, err := NewSplitFactory(SplitterConfig{Kind: kind, Features: 2})
		require.NoError(t, err, kind)
		split := factory()
		require.NotNil(t, split)
		if kind == "" || kind == SplitterUnivariate {
			assert.Equal(t, 1, split.InputArity())
		} else {
			assert.Equal(t, 2, split.InputArity(), kind)
		}
	}

	_, err := NewSplitFactory(SplitterConfig{Kind: "oblique"})
	assert.ErrorIs(t, err, ErrUnknownSplitter)
}

func TestSplitsRoundTripThroughSpec(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	view := SampleExactly(twoBlobs(40, rng))

	factories := map[string]SplitFactory{
		SplitterUnivariate:   RandomUnivariate(),
		SplitterMultivariate: RandomMultivariate(2),
		SplitterPerceptron:   Perceptron(2, 10),
		SplitterOneVsOne:     OneVsOne(2, 20, 0.5),
	}
	for kind, factory := range factories {
		split := factory()
		split.Train(view, rng)

		spec := split.(specer).Spec()
		assert.Equal(t, kind, spec.Kind)
		restored, err := splitFromSpec(spec)
		require.NoError(t, err, kind)

		for _, e := range view {
			assert.Equal(t, split.Apply(e.Features), restored.Apply(e.Features), kind)
		}
		if a, ok := split.(Activator); ok {
			for _, e := range view {
				assert.Equal(t, a.Activate(e.Features), restored.(Activator).Activate(e.Features), kind)
			}
		}
	}
}

func TestUnivariateThresholdInsideRange(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	view := SampleExactly(twoBlobs(20, rng))

	split := RandomUnivariate()().(*thresholdSplit)
	split.Train(view, rng)
	require.Len(t, split.features, 1)
	low, high := FeatureRange(view, split.features[0])
	assert.GreaterOrEqual(t, split.thresholds[0], low)
	assert.LessOrEqual(t, split.thresholds[0], high)
}

func TestThresholdSplitApply(t *testing.T) {
	split := &thresholdSplit{kind: SplitterMultivariate, n: 2, features: []int{0, 2}, thresholds: []float64{1, 5}}
	assert.Equal(t, Left, split.Apply([]float64{0, 0, 9}))
	assert.Equal(t, Left, split.Apply([]float64{3, 0, 4}))
	assert.Equal(t, Right, split.Apply([]float64{3, 0, 9}))
}

func TestPerceptronSplitFiresAboveBias(t *testing.T) {
	split := &perceptronSplit{n: 1, features: []int{0}, weights: []float64{1}, bias: 2}
	assert.Equal(t, Left, split.Apply([]float64{3}))
	assert.Equal(t, Right, split.Apply([]float64{1}))
	assert.Greater(t, split.Activate([]float64{3}), 0.0)
	assert.Less(t, split.Activate([]float64{1}), 0.0)
}

func TestOneVsOneUntrained(t *testing.T) {
	split := OneVsOne(2, 10, 0.1)()
	assert.Equal(t, Right, split.Apply([]float64{1, 2}))
	assert.Equal(t, 0.0, split.(Activator).Activate([]float64{1, 2}))
}

func TestOneVsOneSeparatesBlobs(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	ds := twoBlobs(60, rng)
	view := SampleExactly(ds)

	split := &oneVsOneSplit{n: 1, iterations: 50, learningRate: 0.5}
	split.Train(view, rng)
	for split.features[0] != 0 {
		split.Train(view, rng)
	}

	left := NewLabelHistogram()
	right := NewLabelHistogram()
	for _, e := range view {
		if split.Apply(e.Features) == Left {
			left.Add(e.Label)
		} else {
			right.Add(e.Label)
		}
	}
	assert.Less(t, SplitImpurity(left, right), 0.25)
}

func TestSplitDirectionString(t *testing.T) {
	assert.Equal(t, "LEFT", Left.String())
	assert.Equal(t, "RIGHT", Right.String())
}
