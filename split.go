package deepForest

import (
	"math/rand"

	"github.com/pkg/errors"
)

type SplitDirection int

const (
	Left SplitDirection = iota
	Right
)

func (d SplitDirection) String() string {
	if d == Left {
		return "LEFT"
	}
	return "RIGHT"
}

// SplitFn is a weak learner. Once trained on a range of samples it sends any
// feature vector either left or right.
type SplitFn interface {
	// Train fits the split to samples. All randomness must come from rng.
	Train(samples SampledDataSet, rng *rand.Rand)
	Apply(features []float64) SplitDirection
	// InputArity is the number of feature indices the split consumes.
	InputArity() int
}

// Activator is implemented by splits with a continuous decision signal. The
// activation is used to transform features for the next cascade layer.
type Activator interface {
	Activate(features []float64) float64
}

// SplitFactory returns a fresh, untrained split.
type SplitFactory func() SplitFn

const (
	SplitterUnivariate   = "univariate"
	SplitterMultivariate = "multivariate"
	SplitterPerceptron   = "perceptron"
	SplitterOneVsOne     = "one-vs-one"
)

// SplitterConfig selects and parameterizes a split function family.
type SplitterConfig struct {
	Kind         string  `json:"kind" yaml:"kind" mapstructure:"kind"`
	Features     int     `json:"features" yaml:"features" mapstructure:"features"`
	Iterations   int     `json:"iterations" yaml:"iterations" mapstructure:"iterations"`
	LearningRate float64 `json:"learningRate" yaml:"learningRate" mapstructure:"learningRate"`
}

// NewSplitFactory maps a configuration to a split factory.
func NewSplitFactory(cfg SplitterConfig) (SplitFactory, error) {
	n := cfg.Features
	if n <= 0 {
		n = 1
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 10
	}
	learningRate := cfg.LearningRate
	if learningRate <= 0 {
		learningRate = 0.1
	}

	switch cfg.Kind {
	case "", SplitterUnivariate:
		return RandomUnivariate(), nil
	case SplitterMultivariate:
		return RandomMultivariate(n), nil
	case SplitterPerceptron:
		return Perceptron(n, iterations), nil
	case SplitterOneVsOne:
		return OneVsOne(n, iterations, learningRate), nil
	}
	return nil, errors.Wrapf(ErrUnknownSplitter, "kind %q", cfg.Kind)
}

// SplitSpec is the persisted form of a trained built-in split.
type SplitSpec struct {
	Kind         string      `json:"kind" bson:"kind"`
	Features     []int       `json:"features,omitempty" bson:"features,omitempty"`
	Thresholds   []float64   `json:"thresholds,omitempty" bson:"thresholds,omitempty"`
	Weights      [][]float64 `json:"weights,omitempty" bson:"weights,omitempty"`
	Biases       []float64   `json:"biases,omitempty" bson:"biases,omitempty"`
	LearningRate float64     `json:"learningRate,omitempty" bson:"learningRate,omitempty"`
	Iterations   int         `json:"iterations,omitempty" bson:"iterations,omitempty"`
	Output       int         `json:"output,omitempty" bson:"output,omitempty"`
}

type specer interface {
	Spec() SplitSpec
}

func splitFromSpec(spec SplitSpec) (SplitFn, error) {
	switch spec.Kind {
	case SplitterUnivariate, SplitterMultivariate:
		return &thresholdSplit{
			kind:       spec.Kind,
			n:          len(spec.Features),
			features:   spec.Features,
			thresholds: spec.Thresholds,
		}, nil

	case SplitterPerceptron:
		if len(spec.Weights) != 1 || len(spec.Biases) != 1 {
			return nil, errors.Errorf("deepforest: malformed perceptron split spec")
		}
		return &perceptronSplit{
			n:            len(spec.Features),
			iterations:   spec.Iterations,
			features:     spec.Features,
			weights:      spec.Weights[0],
			bias:         spec.Biases[0],
			learningRate: spec.LearningRate,
		}, nil

	case SplitterOneVsOne:
		if len(spec.Weights) == 0 || len(spec.Weights) != len(spec.Biases) {
			return nil, errors.Errorf("deepforest: malformed one-vs-one split spec")
		}
		s := &oneVsOneSplit{
			n:            len(spec.Features),
			iterations:   spec.Iterations,
			learningRate: spec.LearningRate,
			features:     spec.Features,
			output:       spec.Output,
		}
		s.slp = NewSingleLayerPerceptronWeights(spec.Weights, spec.Biases, spec.LearningRate, Sigmoid{})
		return s, nil
	}
	return nil, errors.Wrapf(ErrUnknownSplitter, "kind %q", spec.Kind)
}
