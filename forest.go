package deepForest

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/zeidlermicha/deepForest/metrics"
	"github.com/zeidlermicha/deepForest/pool"
	"github.com/zeidlermicha/deepForest/stats"
)

// DecisionForest is an ensemble of decision trees trained in parallel on a
// shared worker pool. Every tree casts one vote.
type DecisionForest struct {
	cfg      ForestConfig
	name     string
	seed     int64
	factory  SplitFactory
	trees    []*DecisionTree
	pool     *pool.Pool
	progress Progress
	stats    stats.Service

	nFeatures int
	trained   bool
}

type ForestOption func(*DecisionForest)

func WithProgress(p Progress) ForestOption {
	return func(f *DecisionForest) { f.progress = p }
}

// WithStatsService replaces the leaf distance model used by the mahalanobis
// transform.
func WithStatsService(s stats.Service) ForestOption {
	return func(f *DecisionForest) { f.stats = s }
}

// WithSplitFactory overrides the split family named in the configuration.
func WithSplitFactory(factory SplitFactory) ForestOption {
	return func(f *DecisionForest) { f.factory = factory }
}

// NewDecisionForest validates cfg and allocates the untrained trees. Training
// runs on p.
func NewDecisionForest(cfg ForestConfig, p *pool.Pool, opts ...ForestOption) (*DecisionForest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, configErrorf("pool", "a worker pool is required")
	}

	f := &DecisionForest{
		cfg:      cfg,
		name:     cfg.Name,
		seed:     cfg.Seed,
		pool:     p,
		progress: NopProgress{},
	}
	if f.name == "" {
		f.name = "forest"
	}
	if f.seed == 0 {
		f.seed = time.Now().UnixNano()
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.factory == nil {
		factory, err := NewSplitFactory(cfg.Splitter)
		if err != nil {
			return nil, err
		}
		f.factory = factory
	}
	if cfg.Transform == TransformMahalanobis && f.stats == nil {
		f.stats = stats.Mahalanobis{}
	}

	treeOpts := []TreeOption{withTreeForest(f.name)}
	if f.stats != nil {
		treeOpts = append(treeOpts, WithDistanceService(f.stats))
	}
	f.trees = make([]*DecisionTree, cfg.Trees)
	for i := range f.trees {
		f.trees[i] = NewDecisionTree(cfg.TreeConfig(), f.factory, treeOpts...)
	}
	return f, nil
}

// Train trains every tree on its own view of ds and returns once all of them
// finished. When any tree fails the forest stays untrained and the error
// matches ErrPartialTraining. A canceled ctx skips the trees not started yet
// and Train still waits for the running ones before it returns.
func (f *DecisionForest) Train(ctx context.Context, ds DataSet) error {
	if len(ds) == 0 {
		return ErrEmptyDataSet
	}
	if ds.FeatureCount() == 0 {
		return &FeatureArityError{Expected: 1, Got: 0}
	}

	f.trained = false
	f.nFeatures = ds.FeatureCount()
	start := time.Now()
	f.progress.Start(f.name, len(f.trees))
	defer f.progress.Finish()

	futures := make([]*pool.Future, len(f.trees))
	for i, tree := range f.trees {
		i, tree := i, tree
		futures[i] = f.pool.Add(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(f.seed + int64(i)))
			view := f.sample(ds, rng)
			treeStart := time.Now()
			if err := tree.Train(view, rng); err != nil {
				return err
			}
			metrics.TreeTrainingSeconds.WithLabelValues(f.name).Observe(time.Since(treeStart).Seconds())
			metrics.TreesTrainedTotal.WithLabelValues(f.name).Inc()
			log.WithFields(logrus.Fields{
				"forest": f.name,
				"tree":   i,
				"depth":  tree.Depth(),
				"nodes":  tree.NodeCount(),
			}).Debug("tree trained")
			return nil
		})
	}

	var (
		err    error
		failed int
	)
	for i, future := range futures {
		if werr := future.Wait(ctx); werr != nil {
			if ctx.Err() != nil {
				wait(futures[i:])
				return errors.Wrapf(werr, "train %s", f.name)
			}
			failed++
			err = multierr.Append(err, errors.Wrapf(werr, "tree %d", i))
		}
		f.progress.Increment()
	}
	metrics.ForestTrainingSeconds.WithLabelValues(f.name).Observe(time.Since(start).Seconds())

	if err != nil {
		log.WithError(err).WithField("forest", f.name).Errorf("%d of %d trees failed", failed, len(f.trees))
		return &TrainingError{Forest: f.name, Failed: failed, Total: len(f.trees), Err: err}
	}

	f.trained = true
	log.WithFields(logrus.Fields{
		"forest":   f.name,
		"trees":    len(f.trees),
		"samples":  len(ds),
		"features": f.nFeatures,
		"elapsed":  time.Since(start),
	}).Info("forest trained")
	return nil
}

// wait blocks until every future resolved. Tasks that did not start yet
// return at once on a canceled context.
func wait(futures []*pool.Future) {
	for _, future := range futures {
		<-future.Done()
	}
}

// sample builds the private view of a tree: all of ds, or a bootstrap sample
// when bagging is enabled.
func (f *DecisionForest) sample(ds DataSet, rng *rand.Rand) SampledDataSet {
	if f.cfg.BagFraction <= 0 {
		return SampleExactly(ds)
	}
	n := int(math.Ceil(float64(len(ds)) * f.cfg.BagFraction))
	if n < 1 {
		n = 1
	}
	return SampleWithReplacement(ds, n, rng)
}

func (f *DecisionForest) check(features []float64) error {
	if !f.trained {
		return ErrNotTrained
	}
	return checkArity(f.nFeatures, features)
}

// Votes returns the number of trees voting for every label.
func (f *DecisionForest) Votes(features []float64) (*LabelHistogram, error) {
	if err := f.check(features); err != nil {
		return nil, err
	}
	votes, _ := f.vote(features)
	return votes, nil
}

// vote counts the tree predictions. The winner is the first label to reach
// the highest count in tree order.
func (f *DecisionForest) vote(features []float64) (*LabelHistogram, float64) {
	votes := NewLabelHistogram()
	var (
		winner float64
		most   int
	)
	for _, tree := range f.trees {
		label := tree.Predict(features)
		votes.Add(label)
		if c := votes.Count(label); c > most {
			winner, most = label, c
		}
	}
	return votes, winner
}

// Predict returns the majority label of the trees.
func (f *DecisionForest) Predict(features []float64) (float64, error) {
	if err := f.check(features); err != nil {
		return 0, err
	}
	_, winner := f.vote(features)
	return winner, nil
}

// Transform maps features to one value per tree.
func (f *DecisionForest) Transform(features []float64) ([]float64, error) {
	if err := f.check(features); err != nil {
		return nil, err
	}
	return f.transform(features), nil
}

func (f *DecisionForest) transform(features []float64) []float64 {
	out := make([]float64, len(f.trees))
	for i, tree := range f.trees {
		if f.cfg.Transform == TransformMahalanobis {
			out[i] = tree.LeafDistance(features)
		} else {
			out[i] = tree.TransformSummation(features)
		}
	}
	return out
}

// TransformDataSet transforms every example of ds and keeps the labels.
func (f *DecisionForest) TransformDataSet(ds DataSet) (DataSet, error) {
	out := make(DataSet, len(ds))
	for i := range ds {
		if err := f.check(ds[i].Features); err != nil {
			return nil, errors.Wrapf(err, "example %d", i)
		}
		out[i] = Example{Features: f.transform(ds[i].Features), Label: ds[i].Label}
	}
	return out, nil
}

func (f *DecisionForest) Name() string { return f.name }

func (f *DecisionForest) NumTrees() int { return len(f.trees) }

func (f *DecisionForest) Trees() []*DecisionTree { return f.trees }

func (f *DecisionForest) Trained() bool { return f.trained }

// FeatureCount is the feature vector length the forest was trained on.
func (f *DecisionForest) FeatureCount() int { return f.nFeatures }

func (f *DecisionForest) Config() ForestConfig { return f.cfg }
