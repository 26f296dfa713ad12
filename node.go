package deepForest

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/zeidlermicha/deepForest/stats"
)

const DefaultMaxSplitRetries = 8

// NodeOptions control when a node stops splitting and how hard it looks for
// a split.
type NodeOptions struct {
	// LeafThreshold makes a node a leaf when it holds this many samples or
	// fewer.
	LeafThreshold int
	// MaxSplitRetries bounds the attempts per trial to find a split that
	// sends samples both ways.
	MaxSplitRetries int
}

// DecisionNode is either a leaf holding a prediction or an internal node with
// a trained split and up to two children.
type DecisionNode struct {
	split      SplitFn
	prediction float64
	leaf       bool
	degenerate bool
	left       *DecisionNode
	right      *DecisionNode

	// size and gain weight the split features in the importance measure
	size int
	gain float64

	distanceFeatures []int
	distance         stats.DistanceModel
}

func NewDecisionNode() *DecisionNode {
	return &DecisionNode{}
}

// Train sets the prediction of the node to the mode label of samples and
// picks the candidate split with the lowest weighted gini impurity. Pure
// samples make the node a leaf that still keeps a trained split. Samples few
// enough to stop make a leaf without one.
func (n *DecisionNode) Train(samples SampledDataSet, factory SplitFactory, opts NodeOptions, rng *rand.Rand) {
	histogram := samples.Histogram()
	n.prediction, _ = histogram.Mode()
	n.size = len(samples)

	pure := SingleLabel(samples)
	if pure {
		n.MakeLeaf()
	} else if len(samples) <= opts.LeafThreshold {
		n.MakeLeaf()
		return
	}

	retries := opts.MaxSplitRetries
	if retries <= 0 {
		retries = DefaultMaxSplitRetries
	}

	trials := int(math.Ceil(math.Sqrt(float64(samples.FeatureCount())) * float64(factory().InputArity())))
	if trials < 1 {
		trials = 1
	}

	var (
		best, fallback         SplitFn
		bestScore, fallbackMin = math.MaxFloat64, math.MaxFloat64
	)
	for i := 0; i < trials; i++ {
		for attempt := 0; attempt < retries; attempt++ {
			candidate := factory()
			candidate.Train(samples, rng)
			score, nLeft, nRight := scoreSplit(candidate, samples)
			if nLeft == 0 || nRight == 0 {
				if score < fallbackMin || fallback == nil {
					fallback, fallbackMin = candidate, score
				}
				continue
			}
			if score < bestScore || best == nil {
				best, bestScore = candidate, score
			}
			break
		}
	}

	if pure {
		n.split = best
		if best == nil {
			n.split = fallback
		}
		return
	}
	if best == nil {
		n.split = fallback
		n.degenerate = true
		log.WithError(ErrDegenerateSplit).WithFields(logrus.Fields{
			"samples": len(samples),
			"trials":  trials,
		}).Debug("accepting degenerate split")
		return
	}
	n.split = best
	_, impurity := GiniImpurity(histogram)
	n.gain = impurity - bestScore
}

// scoreSplit routes samples through split and returns the weighted impurity
// of both sides with their sizes.
func scoreSplit(split SplitFn, samples SampledDataSet) (float64, int, int) {
	left, right := NewLabelHistogram(), NewLabelHistogram()
	for _, e := range samples {
		if split.Apply(e.Features) == Left {
			left.Add(e.Label)
		} else {
			right.Add(e.Label)
		}
	}
	return SplitImpurity(left, right), left.Total(), right.Total()
}

func (n *DecisionNode) SplitDirection(features []float64) SplitDirection {
	if n.split == nil {
		return Right
	}
	return n.split.Apply(features)
}

// Predict returns the mode label of the samples the node was trained on.
func (n *DecisionNode) Predict() float64 { return n.prediction }

func (n *DecisionNode) Leaf() bool { return n.leaf }

// Degenerate reports whether the node accepted a split that did not separate
// its samples.
func (n *DecisionNode) Degenerate() bool { return n.degenerate }

func (n *DecisionNode) Split() SplitFn { return n.split }

func (n *DecisionNode) MakeLeaf() {
	n.leaf = true
	n.left = nil
	n.right = nil
}

// Child returns the child for dir, nil when no sample was routed there.
func (n *DecisionNode) Child(dir SplitDirection) *DecisionNode {
	if dir == Left {
		return n.left
	}
	return n.right
}

func (n *DecisionNode) makeChild(dir SplitDirection) *DecisionNode {
	child := NewDecisionNode()
	if dir == Left {
		n.left = child
	} else {
		n.right = child
	}
	return child
}

// Activation is the continuous decision signal of the node. Splits without
// one contribute +1 for left and -1 for right.
func (n *DecisionNode) Activation(features []float64) float64 {
	if a, ok := n.split.(Activator); ok {
		return a.Activate(features)
	}
	if n.SplitDirection(features) == Left {
		return 1
	}
	return -1
}

// Distance returns the distance of features to the training distribution of
// the leaf, 0 when none was fitted.
func (n *DecisionNode) Distance(features []float64) float64 {
	if n.distance == nil {
		return 0
	}
	return n.distance.Distance(Project(features, n.distanceFeatures))
}
