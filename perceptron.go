package deepForest

import (
	"math"
	"math/rand"
)

// Activation is the transfer function of a perceptron output.
type Activation interface {
	Activate(x float64) float64
	Min() float64
	Mid() float64
	Max() float64
}

// Step fires 1 or -1.
type Step struct{}

func (Step) Activate(x float64) float64 {
	if x > 0 {
		return 1
	}
	return -1
}
func (Step) Min() float64 { return -1 }
func (Step) Mid() float64 { return 0 }
func (Step) Max() float64 { return 1 }

// FastSigmoid has the shape of a sigmoid without the exp.
type FastSigmoid struct{}

func (FastSigmoid) Activate(x float64) float64 { return x / (1 + math.Abs(x)) }
func (FastSigmoid) Min() float64               { return -1 }
func (FastSigmoid) Mid() float64               { return 0 }
func (FastSigmoid) Max() float64               { return 1 }

type Sigmoid struct{}

func (Sigmoid) Activate(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
func (Sigmoid) Min() float64               { return 0 }
func (Sigmoid) Mid() float64               { return 0.5 }
func (Sigmoid) Max() float64               { return 1 }

type Tanh struct{}

func (Tanh) Activate(x float64) float64 { return math.Tanh(x) }
func (Tanh) Min() float64               { return -1 }
func (Tanh) Mid() float64               { return 0 }
func (Tanh) Max() float64               { return 1 }

// SingleLayerPerceptron maps n inputs to m activated outputs.
type SingleLayerPerceptron struct {
	weights      [][]float64 // outputs x inputs
	biases       []float64
	learningRate float64
	activation   Activation
}

// NewSingleLayerPerceptron initializes weights uniformly in
// [-1/sqrt(inputs), 1/sqrt(inputs)] and biases to zero.
func NewSingleLayerPerceptron(inputs, outputs int, learningRate float64, activation Activation, rng *rand.Rand) *SingleLayerPerceptron {
	weightRange := 1 / math.Sqrt(float64(inputs))
	weights := make([][]float64, outputs)
	for i := range weights {
		weights[i] = make([]float64, inputs)
		for j := range weights[i] {
			weights[i][j] = -weightRange + rng.Float64()*2*weightRange
		}
	}
	return &SingleLayerPerceptron{
		weights:      weights,
		biases:       make([]float64, outputs),
		learningRate: learningRate,
		activation:   activation,
	}
}

func NewSingleLayerPerceptronWeights(weights [][]float64, biases []float64, learningRate float64, activation Activation) *SingleLayerPerceptron {
	return &SingleLayerPerceptron{
		weights:      weights,
		biases:       biases,
		learningRate: learningRate,
		activation:   activation,
	}
}

func (p *SingleLayerPerceptron) Inputs() int {
	if len(p.weights) == 0 {
		return 0
	}
	return len(p.weights[0])
}

func (p *SingleLayerPerceptron) Outputs() int { return len(p.biases) }

func (p *SingleLayerPerceptron) Activation() Activation { return p.activation }

// Output returns the activation of output i.
func (p *SingleLayerPerceptron) Output(i int, features []float64) float64 {
	sum := p.biases[i]
	for j, w := range p.weights[i] {
		sum += w * features[j]
	}
	return p.activation.Activate(sum)
}

func (p *SingleLayerPerceptron) Predict(features []float64) []float64 {
	out := make([]float64, len(p.biases))
	for i := range out {
		out[i] = p.Output(i, features)
	}
	return out
}

// Learn applies the delta rule for one example.
func (p *SingleLayerPerceptron) Learn(features, target []float64) {
	actual := p.Predict(features)
	for i := range p.weights {
		delta := p.learningRate * (target[i] - actual[i])
		for j := range p.weights[i] {
			p.weights[i][j] += delta * features[j]
		}
		// bias is a weight on a constant input of 1
		p.biases[i] += delta
	}
}
