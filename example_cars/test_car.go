package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	deepForest "github.com/zeidlermicha/deepForest"
	"github.com/zeidlermicha/deepForest/benchmark"
	"github.com/zeidlermicha/deepForest/pool"
)

// ordinal maps the categorical values of one column to 0, 1, 2... in order of
// appearance.
type ordinal map[string]float64

func (o ordinal) encode(v string) float64 {
	if code, ok := o[v]; ok {
		return code
	}
	o[v] = float64(len(o))
	return o[v]
}

func main() {
	start := time.Now()
	f, err := os.Open("car.data")
	if err != nil {
		log.WithError(err).Fatal("open car.data")
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		log.WithError(err).Fatal("read car.data")
	}

	var columns []ordinal
	var train, test deepForest.DataSet
	for i, rec := range records {
		if columns == nil {
			columns = make([]ordinal, len(rec))
			for c := range columns {
				columns[c] = ordinal{}
			}
		}
		pattern, target := rec[:len(rec)-1], rec[len(rec)-1]
		example := deepForest.Example{
			Features: make([]float64, len(pattern)),
			Label:    columns[len(rec)-1].encode(target),
		}
		for c, v := range pattern {
			example.Features[c] = columns[c].encode(v)
		}
		if i%2 == 1 {
			test = append(test, example)
		} else {
			train = append(train, example)
		}
	}

	p := pool.New(0)
	defer p.Shutdown()

	forest, err := deepForest.NewDecisionForest(deepForest.ForestConfig{
		Name:        "cars",
		Trees:       100,
		MaxDepth:    deepForest.UnlimitedDepth,
		BagFraction: 0.8,
		Splitter:    deepForest.SplitterConfig{Kind: deepForest.SplitterUnivariate},
	}, p, deepForest.WithProgress(deepForest.NewBarProgress(os.Stderr)))
	if err != nil {
		log.WithError(err).Fatal("create forest")
	}

	info, err := benchmark.Run(context.Background(), forest, train, test)
	if err != nil {
		log.WithError(err).Fatal("benchmark")
	}
	fmt.Print(info.Table())
	importance, err := forest.Importance()
	if err != nil {
		log.WithError(err).Fatal("importance")
	}
	fmt.Println("importance:", importance)
	fmt.Println(time.Since(start))
}
