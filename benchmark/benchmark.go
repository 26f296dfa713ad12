package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	deepForest "github.com/zeidlermicha/deepForest"
)

var log = logrus.WithField("component", "benchmark")

// Classifier is anything that can be trained on a data set and label a
// feature vector.
type Classifier interface {
	Train(ctx context.Context, ds deepForest.DataSet) error
	Predict(features []float64) (float64, error)
}

// ConfusionMatrix counts Counts[i][j] test examples of label Labels[i] that
// were predicted as Labels[j].
type ConfusionMatrix struct {
	Labels []float64
	Counts [][]int
}

func newConfusionMatrix(labels []float64) *ConfusionMatrix {
	m := &ConfusionMatrix{Labels: labels, Counts: make([][]int, len(labels))}
	for i := range m.Counts {
		m.Counts[i] = make([]int, len(labels))
	}
	return m
}

func (m *ConfusionMatrix) index(label float64) int {
	i := sort.SearchFloat64s(m.Labels, label)
	if i < len(m.Labels) && m.Labels[i] == label {
		return i
	}
	return -1
}

func (m *ConfusionMatrix) add(actual, predicted float64) {
	i, j := m.index(actual), m.index(predicted)
	if i < 0 || j < 0 {
		return
	}
	m.Counts[i][j]++
}

// Info holds the result of one benchmark run.
type Info struct {
	TrainingTime    time.Duration
	EvaluationTime  time.Duration
	Accuracy        float64
	Examples        int
	ConfusionMatrix *ConfusionMatrix
}

// Run trains clf on train and evaluates it on test. Predictions run in
// parallel.
func Run(ctx context.Context, clf Classifier, train, test deepForest.DataSet) (*Info, error) {
	if len(train) == 0 || len(test) == 0 {
		return nil, deepForest.ErrEmptyDataSet
	}

	info := &Info{Examples: len(test)}
	start := time.Now()
	if err := clf.Train(ctx, train); err != nil {
		return nil, errors.Wrap(err, "train")
	}
	info.TrainingTime = time.Since(start)
	log.Infof("trained on %d examples in %s", len(train), info.TrainingTime)

	predicted := make([]float64, len(test))
	start = time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range test {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			label, err := clf.Predict(test[i].Features)
			if err != nil {
				return errors.Wrapf(err, "predict example %d", i)
			}
			predicted[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	info.EvaluationTime = time.Since(start)

	info.ConfusionMatrix = newConfusionMatrix(mergeLabels(train.Labels(), test.Labels()))
	correct := 0
	for i := range test {
		if predicted[i] == test[i].Label {
			correct++
		}
		info.ConfusionMatrix.add(test[i].Label, predicted[i])
	}
	info.Accuracy = float64(correct) / float64(len(test))
	log.WithFields(logrus.Fields{
		"accuracy":   info.Accuracy,
		"evaluation": info.EvaluationTime,
	}).Info("benchmark finished")
	return info, nil
}

func mergeLabels(a, b []float64) []float64 {
	seen := make(map[float64]struct{}, len(a)+len(b))
	var out []float64
	for _, l := range append(append([]float64(nil), a...), b...) {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Float64s(out)
	return out
}

// Table renders the summary and the confusion matrix. Rows are actual labels,
// columns predicted labels.
func (info *Info) Table() string {
	var sb strings.Builder

	summary := table.NewWriter()
	summary.SetStyle(table.StyleRounded)
	summary.AppendRows([]table.Row{
		{"training time", info.TrainingTime},
		{"evaluation time", info.EvaluationTime},
		{"examples", info.Examples},
		{"accuracy", fmt.Sprintf("%.4f", info.Accuracy)},
	})
	sb.WriteString(summary.Render())
	sb.WriteString("\n")

	if info.ConfusionMatrix == nil {
		return sb.String()
	}
	matrix := table.NewWriter()
	matrix.SetStyle(table.StyleRounded)
	matrix.SetTitle("confusion matrix")
	header := table.Row{"actual \\ predicted"}
	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i, label := range info.ConfusionMatrix.Labels {
		header = append(header, formatLabel(label))
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight})
	}
	matrix.AppendHeader(header)
	matrix.SetColumnConfigs(configs)
	for i, label := range info.ConfusionMatrix.Labels {
		row := table.Row{formatLabel(label)}
		for _, c := range info.ConfusionMatrix.Counts[i] {
			row = append(row, c)
		}
		matrix.AppendRow(row)
	}
	sb.WriteString(matrix.Render())
	sb.WriteString("\n")
	return sb.String()
}

func formatLabel(label float64) string {
	return fmt.Sprintf("%g", label)
}

// TrainTestSplit shuffles a copy of ds and puts ratio of it into train.
func TrainTestSplit(ds deepForest.DataSet, ratio float64, rng *rand.Rand) (train, test deepForest.DataSet, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, errors.Errorf("split ratio must be in (0, 1), got %v", ratio)
	}
	if len(ds) < 2 {
		return nil, nil, deepForest.ErrEmptyDataSet
	}
	shuffled := make(deepForest.DataSet, len(ds))
	for i, j := range rng.Perm(len(ds)) {
		shuffled[i] = ds[j]
	}
	n := int(float64(len(ds)) * ratio)
	if n < 1 {
		n = 1
	}
	if n >= len(ds) {
		n = len(ds) - 1
	}
	return shuffled[:n], shuffled[n:], nil
}
