package deepForest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zeidlermicha/deepForest/pool"
	"github.com/zeidlermicha/deepForest/stats"
)

// DeepForest is a cascade of forests. Every layer except the last transforms
// its input into one value per tree, which becomes the input of the next
// layer. The last layer votes.
type DeepForest struct {
	cfg     DeepForestConfig
	layers  []*DecisionForest
	reducer *stats.ColumnReducer
	means   []float64

	nFeatures int
	trained   bool
}

// NewDeepForest builds the layers of cfg. All layers train on p; opts apply
// to every layer.
func NewDeepForest(cfg DeepForestConfig, p *pool.Pool, opts ...ForestOption) (*DeepForest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	d := &DeepForest{cfg: cfg}
	layers := cfg.Layers()
	for i, layerCfg := range layers {
		if layerCfg.Name == "" {
			layerCfg.Name = fmt.Sprintf("%s-%d", layerName(i, len(cfg.Hidden)), i)
		}
		if layerCfg.Seed == 0 {
			// keep the tree seeds of different layers apart
			layerCfg.Seed = cfg.Seed + int64(i)*1_000_003
		}
		forest, err := NewDecisionForest(layerCfg, p, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		d.layers = append(d.layers, forest)
	}
	return d, nil
}

// Train trains the layers in order, each on the transform of the previous.
func (d *DeepForest) Train(ctx context.Context, ds DataSet) error {
	if len(ds) == 0 {
		return ErrEmptyDataSet
	}
	if ds.FeatureCount() == 0 {
		return &FeatureArityError{Expected: 1, Got: 0}
	}
	d.trained = false
	d.nFeatures = ds.FeatureCount()
	start := time.Now()

	current := ds
	if d.cfg.ReduceColumns > 0 {
		reducer := stats.NewColumnReducer(d.cfg.ReduceColumns)
		rows := make([][]float64, len(ds))
		for i := range ds {
			rows[i] = ds[i].Features
		}
		if err := reducer.Fit(rows, rand.New(rand.NewSource(d.cfg.Seed))); err != nil {
			return errors.Wrap(err, "reduce feature columns")
		}
		d.reducer = reducer
		current = make(DataSet, len(ds))
		for i := range ds {
			current[i] = Example{Features: reducer.Transform(ds[i].Features), Label: ds[i].Label}
		}
	}
	if d.cfg.CenterFeatures {
		if d.reducer == nil {
			current = current.Clone()
		}
		d.means = ZeroCenterMean(current)
	}

	last := len(d.layers) - 1
	for i, layer := range d.layers {
		if i > 0 && current.FeatureCount() != d.layers[i-1].NumTrees() {
			return errors.Wrapf(&FeatureArityError{Expected: d.layers[i-1].NumTrees(), Got: current.FeatureCount()}, "layer %d", i)
		}
		log.WithFields(logrus.Fields{
			"layer":    layer.Name(),
			"features": current.FeatureCount(),
			"trees":    layer.NumTrees(),
		}).Info("training layer")

		if err := layer.Train(ctx, current); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
		if i == last {
			break
		}

		transformed, err := layer.TransformDataSet(current)
		if err != nil {
			return errors.Wrapf(err, "transform layer %d", i)
		}
		current = transformed
	}

	d.trained = true
	log.WithFields(logrus.Fields{
		"layers":  len(d.layers),
		"elapsed": time.Since(start),
	}).Info("deep forest trained")
	return nil
}

// prepare applies the column reduction and centering fitted at training time.
func (d *DeepForest) prepare(features []float64) []float64 {
	out := features
	if d.reducer != nil {
		out = d.reducer.Transform(features)
	} else if d.means != nil {
		out = append([]float64(nil), features...)
	}
	if d.means != nil {
		ApplyMeans(out, d.means)
	}
	return out
}

// Transform returns the representation that enters the output layer.
func (d *DeepForest) Transform(features []float64) ([]float64, error) {
	if !d.trained {
		return nil, ErrNotTrained
	}
	if err := checkArity(d.nFeatures, features); err != nil {
		return nil, err
	}
	current := d.prepare(features)
	for i, layer := range d.layers[:len(d.layers)-1] {
		next, err := layer.Transform(current)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		current = next
	}
	return current, nil
}

// Predict pushes features through the transforms and lets the output layer
// vote.
func (d *DeepForest) Predict(features []float64) (float64, error) {
	transformed, err := d.Transform(features)
	if err != nil {
		return 0, err
	}
	return d.layers[len(d.layers)-1].Predict(transformed)
}

func (d *DeepForest) Layers() []*DecisionForest { return d.layers }

func (d *DeepForest) Trained() bool { return d.trained }

func (d *DeepForest) Config() DeepForestConfig { return d.cfg }
