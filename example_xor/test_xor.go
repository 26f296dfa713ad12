package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	deepForest "github.com/zeidlermicha/deepForest"
	"github.com/zeidlermicha/deepForest/pool"
)

func main() {
	inputs := [][]float64{
		{0, 0},
		{0, 1},
		{1, 0},
		{1, 1},
	}
	targets := []float64{0, 1, 1, 0}

	var train deepForest.DataSet
	for rep := 0; rep < 25; rep++ {
		for i := range inputs {
			train = append(train, deepForest.Example{Features: inputs[i], Label: targets[i]})
		}
	}

	layer := func(trees int, splitter string) deepForest.ForestConfig {
		return deepForest.ForestConfig{
			Trees:       trees,
			MaxDepth:    4,
			BagFraction: 0.8,
			Splitter:    deepForest.SplitterConfig{Kind: splitter, Features: 2, Iterations: 20},
		}
	}

	p := pool.New(0)
	defer p.Shutdown()

	forest, err := deepForest.NewDeepForest(deepForest.DeepForestConfig{
		Input:  layer(16, deepForest.SplitterPerceptron),
		Hidden: []deepForest.ForestConfig{layer(8, deepForest.SplitterMultivariate)},
		Output: layer(8, deepForest.SplitterUnivariate),
		Seed:   42,
	}, p)
	if err != nil {
		log.WithError(err).Fatal("create deep forest")
	}
	if err := forest.Train(context.Background(), train); err != nil {
		log.WithError(err).Fatal("train")
	}

	for i, x := range inputs {
		label, err := forest.Predict(x)
		if err != nil {
			log.WithError(err).Fatal("predict")
		}
		fmt.Println(x, "->", label, "expected", targets[i])
	}
}
