package deepForest

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/zeidlermicha/deepForest/pool"
	"github.com/zeidlermicha/deepForest/stats"
)

// NodeSnapshot is the persisted form of a DecisionNode and its subtree.
type NodeSnapshot struct {
	Leaf             bool                    `json:"leaf" bson:"leaf"`
	Prediction       float64                 `json:"prediction" bson:"prediction"`
	Degenerate       bool                    `json:"degenerate,omitempty" bson:"degenerate,omitempty"`
	Size             int                     `json:"size" bson:"size"`
	Gain             float64                 `json:"gain,omitempty" bson:"gain,omitempty"`
	Split            *SplitSpec              `json:"split,omitempty" bson:"split,omitempty"`
	Left             *NodeSnapshot           `json:"left,omitempty" bson:"left,omitempty"`
	Right            *NodeSnapshot           `json:"right,omitempty" bson:"right,omitempty"`
	DistanceFeatures []int                   `json:"distanceFeatures,omitempty" bson:"distanceFeatures,omitempty"`
	Distance         *stats.MahalanobisModel `json:"distance,omitempty" bson:"distance,omitempty"`
}

type TreeSnapshot struct {
	Features int           `json:"features" bson:"features"`
	Root     *NodeSnapshot `json:"root" bson:"root"`
}

type ForestSnapshot struct {
	Config   ForestConfig   `json:"config" bson:"config"`
	Features int            `json:"features" bson:"features"`
	Trees    []TreeSnapshot `json:"trees" bson:"trees"`
}

type DeepForestSnapshot struct {
	Name     string               `json:"name" bson:"name"`
	Config   DeepForestConfig     `json:"config" bson:"config"`
	Features int                  `json:"features" bson:"features"`
	Reducer  *stats.ColumnReducer `json:"reducer,omitempty" bson:"reducer,omitempty"`
	Means    []float64            `json:"means,omitempty" bson:"means,omitempty"`
	Layers   []ForestSnapshot     `json:"layers" bson:"layers"`
	SavedAt  time.Time            `json:"savedAt" bson:"savedAt"`
}

func snapshotNode(n *DecisionNode) (*NodeSnapshot, error) {
	if n == nil {
		return nil, nil
	}
	snap := &NodeSnapshot{
		Leaf:             n.leaf,
		Prediction:       n.prediction,
		Degenerate:       n.degenerate,
		Size:             n.size,
		Gain:             n.gain,
		DistanceFeatures: n.distanceFeatures,
	}
	if n.split != nil {
		s, ok := n.split.(specer)
		if !ok {
			return nil, errors.Errorf("deepforest: split %T can not be persisted", n.split)
		}
		spec := s.Spec()
		snap.Split = &spec
	}
	if n.distance != nil {
		m, ok := n.distance.(*stats.MahalanobisModel)
		if !ok {
			return nil, errors.Errorf("deepforest: distance model %T can not be persisted", n.distance)
		}
		snap.Distance = m
	}

	var err error
	if snap.Left, err = snapshotNode(n.left); err != nil {
		return nil, err
	}
	if snap.Right, err = snapshotNode(n.right); err != nil {
		return nil, err
	}
	return snap, nil
}

func restoreNode(snap *NodeSnapshot) (*DecisionNode, error) {
	if snap == nil {
		return nil, nil
	}
	n := &DecisionNode{
		leaf:             snap.Leaf,
		prediction:       snap.Prediction,
		degenerate:       snap.Degenerate,
		size:             snap.Size,
		gain:             snap.Gain,
		distanceFeatures: snap.DistanceFeatures,
	}
	if snap.Split != nil {
		split, err := splitFromSpec(*snap.Split)
		if err != nil {
			return nil, err
		}
		n.split = split
	}
	if snap.Distance != nil {
		n.distance = snap.Distance
	}

	var err error
	if n.left, err = restoreNode(snap.Left); err != nil {
		return nil, err
	}
	if n.right, err = restoreNode(snap.Right); err != nil {
		return nil, err
	}
	return n, nil
}

// Snapshot captures a trained forest.
func (f *DecisionForest) Snapshot() (*ForestSnapshot, error) {
	if !f.trained {
		return nil, ErrNotTrained
	}
	snap := &ForestSnapshot{
		Config:   f.cfg,
		Features: f.nFeatures,
		Trees:    make([]TreeSnapshot, len(f.trees)),
	}
	snap.Config.Name = f.name
	snap.Config.Seed = f.seed
	for i, tree := range f.trees {
		root, err := snapshotNode(tree.root)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		snap.Trees[i] = TreeSnapshot{Features: tree.nFeatures, Root: root}
	}
	return snap, nil
}

// RestoreDecisionForest rebuilds a trained forest from snap.
func RestoreDecisionForest(snap *ForestSnapshot, p *pool.Pool, opts ...ForestOption) (*DecisionForest, error) {
	f, err := NewDecisionForest(snap.Config, p, opts...)
	if err != nil {
		return nil, err
	}
	if len(snap.Trees) != len(f.trees) {
		return nil, errors.Errorf("deepforest: snapshot holds %d trees, config asks for %d", len(snap.Trees), len(f.trees))
	}
	for i, ts := range snap.Trees {
		root, err := restoreNode(ts.Root)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		if root == nil {
			return nil, errors.Errorf("deepforest: tree %d has no root", i)
		}
		f.trees[i].root = root
		f.trees[i].nFeatures = ts.Features
	}
	f.nFeatures = snap.Features
	f.trained = true
	return f, nil
}

// Snapshot captures a trained cascade.
func (d *DeepForest) Snapshot() (*DeepForestSnapshot, error) {
	if !d.trained {
		return nil, ErrNotTrained
	}
	snap := &DeepForestSnapshot{
		Config:   d.cfg,
		Features: d.nFeatures,
		Reducer:  d.reducer,
		Means:    d.means,
		SavedAt:  time.Now(),
	}
	for i, layer := range d.layers {
		ls, err := layer.Snapshot()
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		snap.Layers = append(snap.Layers, *ls)
	}
	return snap, nil
}

// RestoreDeepForest rebuilds a trained cascade from snap.
func RestoreDeepForest(snap *DeepForestSnapshot, p *pool.Pool, opts ...ForestOption) (*DeepForest, error) {
	if err := snap.Config.Validate(); err != nil {
		return nil, err
	}
	d := &DeepForest{
		cfg:       snap.Config,
		reducer:   snap.Reducer,
		means:     snap.Means,
		nFeatures: snap.Features,
	}
	if len(snap.Layers) != len(snap.Config.Hidden)+2 {
		return nil, errors.Errorf("deepforest: snapshot holds %d layers, config asks for %d", len(snap.Layers), len(snap.Config.Hidden)+2)
	}
	for i := range snap.Layers {
		layer, err := RestoreDecisionForest(&snap.Layers[i], p, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		d.layers = append(d.layers, layer)
	}
	d.trained = true
	return d, nil
}

// DumpForest writes the trained cascade as json to fileName.
func (d *DeepForest) DumpForest(fileName string) error {
	snap, err := d.Snapshot()
	if err != nil {
		return err
	}
	return writeJSON(fileName, snap)
}

// LoadDeepForest reads a cascade written by DumpForest.
func LoadDeepForest(fileName string, p *pool.Pool, opts ...ForestOption) (*DeepForest, error) {
	var snap DeepForestSnapshot
	if err := readJSON(fileName, &snap); err != nil {
		return nil, err
	}
	return RestoreDeepForest(&snap, p, opts...)
}

// DumpForest writes the trained forest as json to fileName.
func (f *DecisionForest) DumpForest(fileName string) error {
	snap, err := f.Snapshot()
	if err != nil {
		return err
	}
	return writeJSON(fileName, snap)
}

// LoadForest reads a forest written by DumpForest.
func LoadForest(fileName string, p *pool.Pool, opts ...ForestOption) (*DecisionForest, error) {
	var snap ForestSnapshot
	if err := readJSON(fileName, &snap); err != nil {
		return nil, err
	}
	return RestoreDecisionForest(&snap, p, opts...)
}

func writeJSON(fileName string, v interface{}) error {
	out, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "create %s", fileName)
	}
	defer out.Close()
	if err := json.NewEncoder(out).Encode(v); err != nil {
		return errors.Wrapf(err, "encode %s", fileName)
	}
	return out.Close()
}

func readJSON(fileName string, v interface{}) error {
	in, err := os.Open(fileName)
	if err != nil {
		return errors.Wrapf(err, "open %s", fileName)
	}
	defer in.Close()
	if err := json.NewDecoder(in).Decode(v); err != nil {
		return errors.Wrapf(err, "decode %s", fileName)
	}
	return nil
}
