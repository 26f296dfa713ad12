package deepForest

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrEmptyDataSet     = errors.New("deepforest: empty data set")
	ErrNotTrained       = errors.New("deepforest: model is not trained")
	ErrPartialTraining  = errors.New("deepforest: some trees failed to train")
	ErrDegenerateSplit  = errors.New("deepforest: no candidate split separates the samples")
	ErrUnknownSplitter  = errors.New("deepforest: unknown splitter kind")
	ErrUnknownTransform = errors.New("deepforest: unknown transform mode")
)

// ConfigurationError reports an invalid forest, tree or cascade setting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("deepforest: invalid configuration %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FeatureArityError is returned when a feature vector is shorter than what a
// trained model consumes.
type FeatureArityError struct {
	Expected int
	Got      int
}

func (e *FeatureArityError) Error() string {
	return fmt.Sprintf("deepforest: expected %d features, got %d", e.Expected, e.Got)
}

func checkArity(expected int, features []float64) error {
	if len(features) < expected {
		return &FeatureArityError{Expected: expected, Got: len(features)}
	}
	return nil
}

// TrainingError reports trees that failed while a forest was training. It
// matches ErrPartialTraining with errors.Is.
type TrainingError struct {
	Forest string
	Failed int
	Total  int
	Err    error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("deepforest: %d of %d trees of %s failed to train: %v", e.Failed, e.Total, e.Forest, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }

func (e *TrainingError) Is(target error) bool { return target == ErrPartialTraining }
