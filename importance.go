package deepForest

// importance adds size*gain of every internal node to the features its split
// reads.
func (n *DecisionNode) importance(imp []float64) {
	if n == nil {
		return
	}
	if s, ok := n.split.(specer); ok && !n.leaf {
		for _, f := range s.Spec().Features {
			if f >= 0 && f < len(imp) {
				imp[f] += float64(n.size) * n.gain
			}
		}
	}
	n.left.importance(imp)
	n.right.importance(imp)
}

// Importance returns the share of the impurity decrease attributed to every
// feature. The shares sum to 1 unless no split decreased the impurity.
func (t *DecisionTree) Importance() []float64 {
	imp := make([]float64, t.nFeatures)
	t.root.importance(imp)
	//normalize
	sum := 0.0
	for i := range imp {
		sum += imp[i]
	}
	if sum > 0 {
		for i := range imp {
			imp[i] = imp[i] / sum
		}
	}
	return imp
}

// Importance averages the feature importance of the trees.
func (f *DecisionForest) Importance() ([]float64, error) {
	if !f.trained {
		return nil, ErrNotTrained
	}
	imp := make([]float64, f.nFeatures)
	for _, tree := range f.trees {
		z := tree.Importance()
		for i := 0; i < len(imp) && i < len(z); i++ {
			imp[i] += z[i]
		}
	}
	for i := range imp {
		imp[i] = imp[i] / float64(len(f.trees))
	}
	return imp, nil
}
