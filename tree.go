package deepForest

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zeidlermicha/deepForest/metrics"
	"github.com/zeidlermicha/deepForest/stats"
)

var log = logrus.WithField("component", "deepforest")

// UnlimitedDepth grows a tree until its leaves are pure or small enough.
const UnlimitedDepth = -1

type TreeConfig struct {
	MaxDepth        int `json:"maxDepth" yaml:"maxDepth" mapstructure:"maxDepth"`
	LeafThreshold   int `json:"leafThreshold" yaml:"leafThreshold" mapstructure:"leafThreshold"`
	MaxSplitRetries int `json:"maxSplitRetries" yaml:"maxSplitRetries" mapstructure:"maxSplitRetries"`
}

func (c TreeConfig) Validate() error {
	if c.MaxDepth == 0 || c.MaxDepth < UnlimitedDepth {
		return configErrorf("maxDepth", "must be %d (unlimited) or positive, got %d", UnlimitedDepth, c.MaxDepth)
	}
	if c.LeafThreshold < 0 {
		return configErrorf("leafThreshold", "must not be negative, got %d", c.LeafThreshold)
	}
	if c.MaxSplitRetries < 0 {
		return configErrorf("maxSplitRetries", "must not be negative, got %d", c.MaxSplitRetries)
	}
	return nil
}

type TreeOption func(*DecisionTree)

// WithDistanceService fits a distance model at every leaf.
func WithDistanceService(s stats.Service) TreeOption {
	return func(t *DecisionTree) { t.stats = s }
}

func withTreeForest(name string) TreeOption {
	return func(t *DecisionTree) { t.forest = name }
}

// DecisionTree is a binary tree of DecisionNodes grown over a SampledDataSet.
type DecisionTree struct {
	cfg       TreeConfig
	factory   SplitFactory
	stats     stats.Service
	forest    string
	root      *DecisionNode
	nFeatures int
}

func NewDecisionTree(cfg TreeConfig, factory SplitFactory, opts ...TreeOption) *DecisionTree {
	t := &DecisionTree{cfg: cfg, factory: factory}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *DecisionTree) nodeOptions() NodeOptions {
	return NodeOptions{LeafThreshold: t.cfg.LeafThreshold, MaxSplitRetries: t.cfg.MaxSplitRetries}
}

// Train grows the tree. The view is reordered in place.
func (t *DecisionTree) Train(view SampledDataSet, rng *rand.Rand) error {
	if len(view) == 0 {
		return ErrEmptyDataSet
	}
	if view.FeatureCount() == 0 {
		return &FeatureArityError{Expected: 1, Got: 0}
	}
	t.nFeatures = view.FeatureCount()
	root := NewDecisionNode()
	if err := t.induce(root, view, 0, rng); err != nil {
		return err
	}
	t.root = root
	return nil
}

func (t *DecisionTree) induce(node *DecisionNode, samples SampledDataSet, depth int, rng *rand.Rand) error {
	node.Train(samples, t.factory, t.nodeOptions(), rng)
	if node.Degenerate() {
		metrics.DegenerateSplitsTotal.WithLabelValues(t.forest).Inc()
	}

	if node.Leaf() || depth == t.cfg.MaxDepth {
		node.MakeLeaf()
		return t.fitLeaf(node, samples, rng)
	}

	mid := Partition(samples, func(e *Example) bool {
		return node.SplitDirection(e.Features) == Left
	})

	// a split that keeps every sample on one side would be induced again
	// with the same samples, so stop here
	if mid == 0 || mid == len(samples) {
		node.MakeLeaf()
		return t.fitLeaf(node, samples, rng)
	}

	if err := t.induce(node.makeChild(Left), samples[:mid], depth+1, rng); err != nil {
		return err
	}
	return t.induce(node.makeChild(Right), samples[mid:], depth+1, rng)
}

func (t *DecisionTree) fitLeaf(node *DecisionNode, samples SampledDataSet, rng *rand.Rand) error {
	if t.stats == nil {
		return nil
	}
	k := int(math.Ceil(math.Sqrt(float64(t.nFeatures))))
	features := rng.Perm(t.nFeatures)[:k]
	points := make([][]float64, len(samples))
	for i, e := range samples {
		points[i] = Project(e.Features, features)
	}
	model, err := t.stats.Fit(points)
	if err != nil {
		return errors.Wrap(err, "fit leaf distance model")
	}
	node.distanceFeatures = features
	node.distance = model
	return nil
}

// Walk descends from the root to the node that decides features. When the
// branch to take is absent the walk stops at the current node.
func (t *DecisionTree) Walk(features []float64) *DecisionNode {
	current := t.root
	for !current.Leaf() {
		next := current.Child(current.SplitDirection(features))
		if next == nil {
			break
		}
		current = next
	}
	return current
}

func (t *DecisionTree) Predict(features []float64) float64 {
	return t.Walk(features).Predict()
}

// TransformSummation sums the activations of the internal nodes on the path
// of features.
func (t *DecisionTree) TransformSummation(features []float64) float64 {
	sum := 0.0
	current := t.root
	for current != nil && !current.Leaf() {
		sum += current.Activation(features)
		current = current.Child(current.SplitDirection(features))
	}
	return sum
}

// LeafDistance is the distance of features to the training distribution of
// the node Walk reaches.
func (t *DecisionTree) LeafDistance(features []float64) float64 {
	return t.Walk(features).Distance(features)
}

func (t *DecisionTree) Root() *DecisionNode { return t.root }

func (t *DecisionTree) Trained() bool { return t.root != nil }

// FeatureCount is the feature vector length the tree was trained on.
func (t *DecisionTree) FeatureCount() int { return t.nFeatures }

func (t *DecisionTree) Depth() int { return depth(t.root) }

func (t *DecisionTree) NodeCount() int { return count(t.root) }

func depth(n *DecisionNode) int {
	if n == nil {
		return 0
	}
	l, r := depth(n.left), depth(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func count(n *DecisionNode) int {
	if n == nil {
		return 0
	}
	return 1 + count(n.left) + count(n.right)
}
