package deepForest

import (
	"math/rand"
)

// thresholdSplit sends a sample left when any of its chosen features is below
// the matching threshold.
type thresholdSplit struct {
	kind       string
	n          int
	features   []int
	thresholds []float64
}

// RandomUnivariate splits on one random feature at a random threshold inside
// the feature's observed range.
func RandomUnivariate() SplitFactory {
	return func() SplitFn {
		return &thresholdSplit{kind: SplitterUnivariate, n: 1}
	}
}

// RandomMultivariate splits on n random feature/threshold pairs.
func RandomMultivariate(n int) SplitFactory {
	return func() SplitFn {
		return &thresholdSplit{kind: SplitterMultivariate, n: n}
	}
}

func (s *thresholdSplit) Train(samples SampledDataSet, rng *rand.Rand) {
	nFeatures := samples.FeatureCount()
	s.features = make([]int, s.n)
	s.thresholds = make([]float64, s.n)
	for i := 0; i < s.n; i++ {
		f := rng.Intn(nFeatures)
		low, high := FeatureRange(samples, f)
		s.features[i] = f
		s.thresholds[i] = low + rng.Float64()*(high-low)
	}
}

func (s *thresholdSplit) Apply(features []float64) SplitDirection {
	for i, f := range s.features {
		if features[f] < s.thresholds[i] {
			return Left
		}
	}
	return Right
}

func (s *thresholdSplit) InputArity() int { return s.n }

func (s *thresholdSplit) Spec() SplitSpec {
	return SplitSpec{Kind: s.kind, Features: s.features, Thresholds: s.thresholds}
}

// perceptronSplit learns to fire for the mode label of its samples.
type perceptronSplit struct {
	n            int
	iterations   int
	features     []int
	weights      []float64
	bias         float64
	learningRate float64
}

// Perceptron trains a single perceptron over n random features to separate
// the most frequent label from the others.
func Perceptron(n, iterations int) SplitFactory {
	return func() SplitFn {
		return &perceptronSplit{n: n, iterations: iterations}
	}
}

func (s *perceptronSplit) Train(samples SampledDataSet, rng *rand.Rand) {
	nFeatures := samples.FeatureCount()
	s.features = make([]int, s.n)
	s.weights = make([]float64, s.n)
	for i := 0; i < s.n; i++ {
		s.features[i] = rng.Intn(nFeatures)
		s.weights[i] = rng.Float64()*2 - 1
	}
	s.bias = rng.Float64()*2 - 1
	s.learningRate = rng.Float64()

	mode := ModeLabel(samples)
	for it := 0; it < s.iterations; it++ {
		for _, e := range samples {
			target := 0.0
			if e.Label == mode {
				target = 1
			}
			output := 0.0
			if s.Apply(e.Features) == Left {
				output = 1
			}
			s.adjust(e.Features, target-output)
		}
	}
}

func (s *perceptronSplit) adjust(features []float64, err float64) {
	if err == 0 {
		return
	}
	for i, f := range s.features {
		s.weights[i] += s.learningRate * err * features[f]
	}
	// the neuron fires when sum > bias
	s.bias -= s.learningRate * err
}

func (s *perceptronSplit) sum(features []float64) float64 {
	sum := 0.0
	for i, f := range s.features {
		sum += features[f] * s.weights[i]
	}
	return sum
}

func (s *perceptronSplit) Apply(features []float64) SplitDirection {
	if s.sum(features) > s.bias {
		return Left
	}
	return Right
}

func (s *perceptronSplit) Activate(features []float64) float64 {
	return FastSigmoid{}.Activate(s.sum(features) - s.bias)
}

func (s *perceptronSplit) InputArity() int { return s.n }

func (s *perceptronSplit) Spec() SplitSpec {
	return SplitSpec{
		Kind:         SplitterPerceptron,
		Features:     s.features,
		Weights:      [][]float64{s.weights},
		Biases:       []float64{s.bias},
		LearningRate: s.learningRate,
		Iterations:   s.iterations,
	}
}

// oneVsOneSplit trains one sigmoid output per label and keeps the output with
// the highest mean activation as its decision signal.
type oneVsOneSplit struct {
	n            int
	iterations   int
	learningRate float64
	features     []int
	slp          *SingleLayerPerceptron
	output       int
}

// OneVsOne trains a multi output perceptron over n random features that
// discriminates every label of the samples.
func OneVsOne(n, iterations int, learningRate float64) SplitFactory {
	return func() SplitFn {
		return &oneVsOneSplit{n: n, iterations: iterations, learningRate: learningRate}
	}
}

func (s *oneVsOneSplit) Train(samples SampledDataSet, rng *rand.Rand) {
	nFeatures := samples.FeatureCount()
	s.features = make([]int, s.n)
	for i := range s.features {
		s.features[i] = rng.Intn(nFeatures)
	}

	labels := samples.Histogram().Labels()
	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	s.slp = NewSingleLayerPerceptron(s.n, len(labels), s.learningRate, Sigmoid{}, rng)
	projected := make([][]float64, len(samples))
	for i, e := range samples {
		projected[i] = Project(e.Features, s.features)
	}

	target := make([]float64, len(labels))
	for it := 0; it < s.iterations; it++ {
		for i, e := range samples {
			for j := range target {
				target[j] = 0
			}
			target[index[e.Label]] = 1
			s.slp.Learn(projected[i], target)
		}
	}

	means := make([]float64, len(labels))
	for _, x := range projected {
		for j, a := range s.slp.Predict(x) {
			means[j] += a
		}
	}
	s.output = 0
	for j := range means {
		if means[j] > means[s.output] {
			s.output = j
		}
	}
}

func (s *oneVsOneSplit) Activate(features []float64) float64 {
	if s.slp == nil {
		return 0
	}
	return s.slp.Output(s.output, Project(features, s.features))
}

func (s *oneVsOneSplit) Apply(features []float64) SplitDirection {
	if s.slp == nil {
		return Right
	}
	if s.Activate(features) > s.slp.Activation().Mid() {
		return Left
	}
	return Right
}

func (s *oneVsOneSplit) InputArity() int { return s.n }

func (s *oneVsOneSplit) Spec() SplitSpec {
	spec := SplitSpec{
		Kind:         SplitterOneVsOne,
		Features:     s.features,
		LearningRate: s.learningRate,
		Iterations:   s.iterations,
		Output:       s.output,
	}
	if s.slp != nil {
		spec.Weights = s.slp.weights
		spec.Biases = s.slp.biases
	}
	return spec
}
