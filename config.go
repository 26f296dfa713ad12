package deepForest

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// TransformActivation sums the split activations on the path of a sample.
	TransformActivation = "activation"
	// TransformMahalanobis measures the distance of a sample to the training
	// distribution of the leaf it lands in.
	TransformMahalanobis = "mahalanobis"
)

// ForestConfig describes one decision forest.
type ForestConfig struct {
	Name            string         `json:"name" yaml:"name" mapstructure:"name"`
	Trees           int            `json:"trees" yaml:"trees" mapstructure:"trees"`
	MaxDepth        int            `json:"maxDepth" yaml:"maxDepth" mapstructure:"maxDepth"`
	LeafThreshold   int            `json:"leafThreshold" yaml:"leafThreshold" mapstructure:"leafThreshold"`
	MaxSplitRetries int            `json:"maxSplitRetries" yaml:"maxSplitRetries" mapstructure:"maxSplitRetries"`
	BagFraction     float64        `json:"bagFraction" yaml:"bagFraction" mapstructure:"bagFraction"`
	Splitter        SplitterConfig `json:"splitter" yaml:"splitter" mapstructure:"splitter"`
	Transform       string         `json:"transform" yaml:"transform" mapstructure:"transform"`
	Seed            int64          `json:"seed" yaml:"seed" mapstructure:"seed"`
}

func (c ForestConfig) TreeConfig() TreeConfig {
	return TreeConfig{
		MaxDepth:        c.MaxDepth,
		LeafThreshold:   c.LeafThreshold,
		MaxSplitRetries: c.MaxSplitRetries,
	}
}

// Validate reports the first invalid setting as a *ConfigurationError.
func (c ForestConfig) Validate() error {
	if c.Trees <= 0 {
		return configErrorf("trees", "must be positive, got %d", c.Trees)
	}
	if err := c.TreeConfig().Validate(); err != nil {
		return err
	}
	// 0 disables bagging
	if c.BagFraction < 0 || c.BagFraction > 1 {
		return configErrorf("bagFraction", "must be in (0, 1], got %v", c.BagFraction)
	}
	if _, err := NewSplitFactory(c.Splitter); err != nil {
		return configErrorf("splitter.kind", "%v", err)
	}
	switch c.Transform {
	case "", TransformActivation, TransformMahalanobis:
	default:
		return configErrorf("transform", "%v", errors.Wrapf(ErrUnknownTransform, "mode %q", c.Transform))
	}
	return nil
}

// DeepForestConfig describes the layers of a cascade.
type DeepForestConfig struct {
	Input  ForestConfig   `json:"input" yaml:"input" mapstructure:"input"`
	Hidden []ForestConfig `json:"hidden" yaml:"hidden" mapstructure:"hidden"`
	Output ForestConfig   `json:"output" yaml:"output" mapstructure:"output"`

	// ReduceColumns, when positive, clusters the raw feature columns into
	// this many groups and keeps one column per group.
	ReduceColumns int `json:"reduceColumns" yaml:"reduceColumns" mapstructure:"reduceColumns"`
	// CenterFeatures subtracts the training mean from the raw features.
	CenterFeatures bool  `json:"centerFeatures" yaml:"centerFeatures" mapstructure:"centerFeatures"`
	Seed           int64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

func (c DeepForestConfig) Layers() []ForestConfig {
	layers := make([]ForestConfig, 0, len(c.Hidden)+2)
	layers = append(layers, c.Input)
	layers = append(layers, c.Hidden...)
	return append(layers, c.Output)
}

func (c DeepForestConfig) Validate() error {
	for i, layer := range c.Layers() {
		if err := layer.Validate(); err != nil {
			var cerr *ConfigurationError
			if errors.As(err, &cerr) {
				return configErrorf(layerName(i, len(c.Hidden))+"."+cerr.Field, "%s", cerr.Reason)
			}
			return err
		}
	}
	if c.ReduceColumns < 0 {
		return configErrorf("reduceColumns", "must not be negative, got %d", c.ReduceColumns)
	}
	return nil
}

func layerName(i, hidden int) string {
	switch {
	case i == 0:
		return "input"
	case i == hidden+1:
		return "output"
	}
	return "hidden"
}

// Config is the file level configuration used by the command line tool.
type Config struct {
	Workers int              `json:"workers" yaml:"workers" mapstructure:"workers"`
	Cascade DeepForestConfig `json:"cascade" yaml:"cascade" mapstructure:"cascade"`
}

// LoadConfig reads a yaml configuration file.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Cascade.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
