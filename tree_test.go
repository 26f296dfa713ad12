package deepForest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeidlermicha/deepForest/stats"
)

// staircase has one feature 0..n-1 and labels cycling through 0, 1, 2.
func staircase(n int) DataSet {
	ds := EmptyDataSet(n, 1)
	for i := range ds {
		ds[i].Features[0] = float64(i)
		ds[i].Label = float64(i % 3)
	}
	return ds
}

func TestTreeConfigValidate(t *testing.T) {
	assert.NoError(t, TreeConfig{MaxDepth: UnlimitedDepth}.Validate())
	assert.NoError(t, TreeConfig{MaxDepth: 3}.Validate())

	for _, cfg := range []TreeConfig{
		{MaxDepth: 0},
		{MaxDepth: -2},
		{MaxDepth: 1, LeafThreshold: -1},
		{MaxDepth: 1, MaxSplitRetries: -1},
	} {
		var cerr *ConfigurationError
		assert.ErrorAs(t, cfg.Validate(), &cerr, "%+v", cfg)
	}
}

func TestTreeTrainEmpty(t *testing.T) {
	tree := NewDecisionTree(TreeConfig{MaxDepth: UnlimitedDepth}, RandomUnivariate())
	assert.ErrorIs(t, tree.Train(SampledDataSet{}, rand.New(rand.NewSource(1))), ErrEmptyDataSet)
	assert.False(t, tree.Trained())

	var aerr *FeatureArityError
	assert.ErrorAs(t, tree.Train(SampleExactly(EmptyDataSet(2, 0)), rand.New(rand.NewSource(1))), &aerr)
	assert.False(t, tree.Trained())
}

func TestTreeFitsTrainingData(t *testing.T) {
	ds := staircase(30)
	tree := NewDecisionTree(TreeConfig{MaxDepth: UnlimitedDepth}, RandomUnivariate())
	require.NoError(t, tree.Train(SampleExactly(ds), rand.New(rand.NewSource(4))))

	assert.True(t, tree.Trained())
	assert.Equal(t, 1, tree.FeatureCount())
	for _, e := range ds {
		assert.Equal(t, e.Label, tree.Predict(e.Features), "feature %v", e.Features[0])
		assert.True(t, tree.Walk(e.Features).Leaf())
	}
	assert.Greater(t, tree.Depth(), 1)
	assert.Greater(t, tree.NodeCount(), 3)
}

func TestTreeMaxDepth(t *testing.T) {
	tree := NewDecisionTree(TreeConfig{MaxDepth: 2}, RandomUnivariate())
	require.NoError(t, tree.Train(SampleExactly(staircase(30)), rand.New(rand.NewSource(4))))
	// the root sits at depth 0, so at most three levels of nodes
	assert.LessOrEqual(t, tree.Depth(), 3)
}

func TestTreeTerminatesOnInseparableSamples(t *testing.T) {
	// identical features, different labels: no split can separate them
	ds := EmptyDataSet(10, 2)
	for i := range ds {
		ds[i].Label = float64(i % 2)
	}
	tree := NewDecisionTree(TreeConfig{MaxDepth: UnlimitedDepth}, RandomUnivariate())
	require.NoError(t, tree.Train(SampleExactly(ds), rand.New(rand.NewSource(1))))

	assert.Equal(t, 1, tree.NodeCount())
	assert.True(t, tree.Root().Leaf())
	assert.Equal(t, 0.0, tree.Predict(ds[0].Features))
}

func TestTreeReordersViewIntoLeaves(t *testing.T) {
	ds := staircase(12)
	view := SampleExactly(ds)
	tree := NewDecisionTree(TreeConfig{MaxDepth: UnlimitedDepth}, RandomUnivariate())
	require.NoError(t, tree.Train(view, rand.New(rand.NewSource(8))))

	// samples reaching the same leaf are contiguous in the view
	seen := map[*DecisionNode]int{}
	var last *DecisionNode
	for i, e := range view {
		leaf := tree.Walk(e.Features)
		if leaf != last {
			_, ok := seen[leaf]
			assert.False(t, ok, "leaf of sample %d appears in two runs", i)
			seen[leaf] = i
			last = leaf
		}
	}
	// the data set keeps its order
	for i := range ds {
		assert.Equal(t, float64(i), ds[i].Features[0])
	}
}

func TestTreeTransformSummation(t *testing.T) {
	ds := staircase(12)
	tree := NewDecisionTree(TreeConfig{MaxDepth: UnlimitedDepth}, RandomUnivariate())
	require.NoError(t, tree.Train(SampleExactly(ds), rand.New(rand.NewSource(3))))

	for _, e := range ds {
		// threshold splits contribute +1 or -1 per internal node on the path
		sum := tree.TransformSummation(e.Features)
		assert.Equal(t, sum, float64(int(sum)))
		assert.LessOrEqual(t, sum, float64(tree.Depth()))
		assert.GreaterOrEqual(t, sum, -float64(tree.Depth()))
	}
}

func TestTreeLeafDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	ds := twoBlobs(40, rng)
	tree := NewDecisionTree(TreeConfig{MaxDepth: 1}, RandomUnivariate(), WithDistanceService(stats.Mahalanobis{}))
	require.NoError(t, tree.Train(SampleExactly(ds), rng))

	for _, e := range ds {
		d := tree.LeafDistance(e.Features)
		assert.GreaterOrEqual(t, d, 0.0)
	}
	leaf := tree.Walk(ds[0].Features)
	assert.Len(t, leaf.distanceFeatures, 2)
}
