package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	deepForest "github.com/zeidlermicha/deepForest"
	"github.com/zeidlermicha/deepForest/benchmark"
	"github.com/zeidlermicha/deepForest/pool"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "train a deep forest, print its benchmark and persist it",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().String("train", "", "training data csv, label first")
	trainCmd.Flags().String("test", "", "test data csv, a part of the training data is held out when empty")
	trainCmd.Flags().Int("limit", 0, "read at most this many examples per csv file, 0 reads all")
	trainCmd.Flags().Float64("split", 0.8, "training share of the data when no test file is given")
	trainCmd.Flags().String("collection", "", "read the training data from this mongodb collection instead of csv")
	trainCmd.Flags().Int("sample", 0, "number of documents sampled from the collection, 0 reads all")
	trainCmd.Flags().String("out", "", "write the trained model as json to this file")
	trainCmd.Flags().String("name", "", "save the trained model to mongodb under this name")
	trainCmd.Flags().Bool("progress", false, "draw progress bars")
	RootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	cfg, err := deepForest.LoadConfig(viper.GetString("config"))
	if err != nil {
		return err
	}

	workers := viper.GetInt("workers")
	if workers == 0 {
		workers = cfg.Workers
	}
	p := pool.New(workers)
	defer p.Shutdown()

	train, test, err := loadTrainingData(ctx, cmd)
	if err != nil {
		return err
	}

	var opts []deepForest.ForestOption
	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
		opts = append(opts, deepForest.WithProgress(deepForest.NewBarProgress(os.Stderr)))
	} else {
		opts = append(opts, deepForest.WithProgress(&deepForest.LogProgress{}))
	}

	forest, err := deepForest.NewDeepForest(cfg.Cascade, p, opts...)
	if err != nil {
		return err
	}

	info, err := benchmark.Run(ctx, forest, train, test)
	if err != nil {
		return err
	}
	fmt.Print(info.Table())

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := forest.DumpForest(out); err != nil {
			return err
		}
		log.Infof("model written to %s", out)
	}

	if name, _ := cmd.Flags().GetString("name"); name != "" {
		client, err := connectMongo(ctx)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())

		store := deepForest.NewMongoStore(client.Database(viper.GetString("mongo-db")))
		if err := store.SaveDeepForest(ctx, name, forest); err != nil {
			return err
		}
	}
	return nil
}

func loadTrainingData(ctx context.Context, cmd *cobra.Command) (train, test deepForest.DataSet, err error) {
	trainFile, _ := cmd.Flags().GetString("train")
	testFile, _ := cmd.Flags().GetString("test")
	limit, _ := cmd.Flags().GetInt("limit")
	collection, _ := cmd.Flags().GetString("collection")

	switch {
	case collection != "":
		sample, _ := cmd.Flags().GetInt("sample")
		client, err := connectMongo(ctx)
		if err != nil {
			return nil, nil, err
		}
		defer client.Disconnect(context.Background())

		coll := client.Database(viper.GetString("mongo-db")).Collection(collection)
		if train, err = deepForest.LoadMongoDataSet(ctx, coll, sample); err != nil {
			return nil, nil, err
		}
	case trainFile != "":
		if train, err = deepForest.LoadCSVFile(trainFile, limit); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, errors.New("either --train or --collection is required")
	}

	if testFile != "" {
		test, err = deepForest.LoadCSVFile(testFile, limit)
		return train, test, err
	}

	ratio, _ := cmd.Flags().GetFloat64("split")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return benchmark.TrainTestSplit(train, ratio, rng)
}
