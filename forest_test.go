package deepForest

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeidlermicha/deepForest/pool"
)

func testForestConfig(trees int) ForestConfig {
	return ForestConfig{
		Name:        "test",
		Trees:       trees,
		MaxDepth:    UnlimitedDepth,
		BagFraction: 0.8,
		Seed:        17,
	}
}

func newTestPool(t *testing.T) *pool.Pool {
	p := pool.New(4)
	t.Cleanup(p.Shutdown)
	return p
}

func TestForestConfigValidate(t *testing.T) {
	for _, cfg := range []ForestConfig{
		{Trees: 0, MaxDepth: 1},
		{Trees: 1, MaxDepth: 0},
		{Trees: 1, MaxDepth: 1, BagFraction: 1.5},
		{Trees: 1, MaxDepth: 1, BagFraction: -0.1},
		{Trees: 1, MaxDepth: 1, Splitter: SplitterConfig{Kind: "oblique"}},
		{Trees: 1, MaxDepth: 1, Transform: "entropy"},
	} {
		var cerr *ConfigurationError
		assert.ErrorAs(t, cfg.Validate(), &cerr, "%+v", cfg)
	}
	assert.NoError(t, testForestConfig(3).Validate())
}

func TestNewDecisionForestErrors(t *testing.T) {
	_, err := NewDecisionForest(testForestConfig(3), nil)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "pool", cerr.Field)

	_, err = NewDecisionForest(ForestConfig{Trees: -1, MaxDepth: 1}, newTestPool(t))
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "trees", cerr.Field)
}

func TestForestTrain(t *testing.T) {
	ds := twoBlobs(60, rand.New(rand.NewSource(1)))
	forest, err := NewDecisionForest(testForestConfig(10), newTestPool(t))
	require.NoError(t, err)

	assert.ErrorIs(t, forest.Train(context.Background(), DataSet{}), ErrEmptyDataSet)

	require.NoError(t, forest.Train(context.Background(), ds))
	assert.True(t, forest.Trained())
	assert.Equal(t, 10, forest.NumTrees())
	assert.Equal(t, 3, forest.FeatureCount())
	for _, tree := range forest.Trees() {
		assert.True(t, tree.Trained())
	}

	correct := 0
	for _, e := range ds {
		label, err := forest.Predict(e.Features)
		require.NoError(t, err)
		if label == e.Label {
			correct++
		}
	}
	assert.GreaterOrEqual(t, float64(correct)/float64(len(ds)), 0.95)

	votes, err := forest.Votes(ds[0].Features)
	require.NoError(t, err)
	assert.Equal(t, 10, votes.Total())
}

func TestForestIsDeterministic(t *testing.T) {
	ds := twoBlobs(60, rand.New(rand.NewSource(1)))
	probe := twoBlobs(20, rand.New(rand.NewSource(2)))

	train := func() *DecisionForest {
		cfg := testForestConfig(8)
		cfg.Splitter = SplitterConfig{Kind: SplitterPerceptron, Features: 2}
		forest, err := NewDecisionForest(cfg, newTestPool(t))
		require.NoError(t, err)
		require.NoError(t, forest.Train(context.Background(), ds))
		return forest
	}
	a, b := train(), train()

	for _, e := range probe {
		la, err := a.Predict(e.Features)
		require.NoError(t, err)
		lb, err := b.Predict(e.Features)
		require.NoError(t, err)
		assert.Equal(t, la, lb)

		ta, err := a.Transform(e.Features)
		require.NoError(t, err)
		tb, err := b.Transform(e.Features)
		require.NoError(t, err)
		assert.Equal(t, ta, tb)
	}
}

func TestForestNotTrained(t *testing.T) {
	forest, err := NewDecisionForest(testForestConfig(2), newTestPool(t))
	require.NoError(t, err)

	_, err = forest.Predict([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrNotTrained)
	_, err = forest.Transform([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrNotTrained)
	_, err = forest.Importance()
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestForestFeatureArity(t *testing.T) {
	forest, err := NewDecisionForest(testForestConfig(2), newTestPool(t))
	require.NoError(t, err)
	require.NoError(t, forest.Train(context.Background(), twoBlobs(20, rand.New(rand.NewSource(1)))))

	_, err = forest.Predict([]float64{1})
	var aerr *FeatureArityError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 3, aerr.Expected)
	assert.Equal(t, 1, aerr.Got)
}

type panicSplit struct{ signSplit }

func (panicSplit) Train(SampledDataSet, *rand.Rand) { panic("broken split") }

func TestForestPartialTraining(t *testing.T) {
	forest, err := NewDecisionForest(testForestConfig(4), newTestPool(t),
		WithSplitFactory(func() SplitFn { return panicSplit{} }))
	require.NoError(t, err)

	err = forest.Train(context.Background(), twoBlobs(20, rand.New(rand.NewSource(1))))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialTraining)

	var terr *TrainingError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 4, terr.Failed)
	assert.Equal(t, 4, terr.Total)
	assert.False(t, forest.Trained())
}

func TestForestTrainCanceled(t *testing.T) {
	forest, err := NewDecisionForest(testForestConfig(4), newTestPool(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = forest.Train(ctx, twoBlobs(20, rand.New(rand.NewSource(1))))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, forest.Trained())
}

// gateSplit blocks every Train until release is closed.
type gateSplit struct {
	signSplit
	started chan struct{}
	release chan struct{}
	once    *sync.Once
	active  *int32
}

func (s gateSplit) Train(SampledDataSet, *rand.Rand) {
	atomic.AddInt32(s.active, 1)
	defer atomic.AddInt32(s.active, -1)
	s.once.Do(func() { close(s.started) })
	<-s.release
}

func TestForestTrainCanceledWaitsForRunningTrees(t *testing.T) {
	var active int32
	gate := gateSplit{
		started: make(chan struct{}),
		release: make(chan struct{}),
		once:    &sync.Once{},
		active:  &active,
	}
	forest, err := NewDecisionForest(testForestConfig(8), newTestPool(t),
		WithSplitFactory(func() SplitFn { return gate }))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-gate.started
		cancel()
		time.Sleep(20 * time.Millisecond)
		close(gate.release)
	}()

	ds := twoBlobs(20, rand.New(rand.NewSource(1)))
	err = forest.Train(ctx, ds)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&active))
	assert.False(t, forest.Trained())

	require.NoError(t, forest.Train(context.Background(), ds))
	assert.True(t, forest.Trained())
}

func TestForestTrainWithoutFeatures(t *testing.T) {
	forest, err := NewDecisionForest(testForestConfig(3), newTestPool(t))
	require.NoError(t, err)

	err = forest.Train(context.Background(), EmptyDataSet(4, 0))
	var aerr *FeatureArityError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 0, aerr.Got)
	assert.False(t, forest.Trained())
}

func TestForestTransform(t *testing.T) {
	ds := twoBlobs(40, rand.New(rand.NewSource(1)))
	forest, err := NewDecisionForest(testForestConfig(5), newTestPool(t))
	require.NoError(t, err)
	require.NoError(t, forest.Train(context.Background(), ds))

	out, err := forest.Transform(ds[0].Features)
	require.NoError(t, err)
	assert.Len(t, out, 5)

	transformed, err := forest.TransformDataSet(ds)
	require.NoError(t, err)
	require.Len(t, transformed, len(ds))
	assert.Equal(t, 5, transformed.FeatureCount())
	assert.Equal(t, ds[3].Label, transformed[3].Label)
}

func TestForestMahalanobisTransform(t *testing.T) {
	ds := twoBlobs(40, rand.New(rand.NewSource(1)))
	cfg := testForestConfig(3)
	cfg.MaxDepth = 2
	cfg.Transform = TransformMahalanobis
	forest, err := NewDecisionForest(cfg, newTestPool(t))
	require.NoError(t, err)
	require.NoError(t, forest.Train(context.Background(), ds))

	for _, e := range ds {
		out, err := forest.Transform(e.Features)
		require.NoError(t, err)
		require.Len(t, out, 3)
		for _, d := range out {
			assert.GreaterOrEqual(t, d, 0.0)
		}
	}
}

func TestForestImportance(t *testing.T) {
	ds := twoBlobs(60, rand.New(rand.NewSource(1)))
	forest, err := NewDecisionForest(testForestConfig(10), newTestPool(t))
	require.NoError(t, err)
	require.NoError(t, forest.Train(context.Background(), ds))

	imp, err := forest.Importance()
	require.NoError(t, err)
	require.Len(t, imp, 3)
	sum := 0.0
	for _, v := range imp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	// only the first feature separates the blobs
	assert.Greater(t, imp[0], imp[1])
	assert.Greater(t, imp[0], imp[2])
}
