package deepForest

// LabelHistogram counts label occurrences and remembers the order in which
// labels were first seen, so iteration is reproducible for a fixed input.
type LabelHistogram struct {
	order  []float64
	counts map[float64]int
	total  int
}

func NewLabelHistogram() *LabelHistogram {
	return &LabelHistogram{counts: make(map[float64]int)}
}

func (h *LabelHistogram) Add(label float64) {
	h.AddN(label, 1)
}

func (h *LabelHistogram) AddN(label float64, n int) {
	if _, ok := h.counts[label]; !ok {
		h.order = append(h.order, label)
	}
	h.counts[label] += n
	h.total += n
}

func (h *LabelHistogram) Count(label float64) int { return h.counts[label] }

func (h *LabelHistogram) Total() int { return h.total }

func (h *LabelHistogram) Len() int { return len(h.order) }

// Labels returns the labels in first-seen order.
func (h *LabelHistogram) Labels() []float64 { return h.order }

// Mode returns the label with the highest count; the first seen wins ties.
func (h *LabelHistogram) Mode() (float64, int) {
	var (
		mode float64
		best = -1
	)
	for _, l := range h.order {
		if c := h.counts[l]; c > best {
			mode, best = l, c
		}
	}
	return mode, best
}

// GiniImpurity returns the number of elements in the histogram and its gini
// impurity, sum of p(1-p) over the labels. 0 means a single label.
// https://en.wikipedia.org/wiki/Decision_tree_learning#Gini_impurity
func GiniImpurity(h *LabelHistogram) (int, float64) {
	if h.total == 0 {
		return 0, 0
	}
	total := float64(h.total)
	impurity := 0.0
	for _, l := range h.order {
		p := float64(h.counts[l]) / total
		impurity += p * (1 - p)
	}
	return h.total, impurity
}

// SplitImpurity weights the impurity of both sides of a split by their share
// of the samples.
func SplitImpurity(left, right *LabelHistogram) float64 {
	nl, gl := GiniImpurity(left)
	nr, gr := GiniImpurity(right)
	total := float64(nl + nr)
	if total == 0 {
		return 0
	}
	return float64(nl)/total*gl + float64(nr)/total*gr
}
