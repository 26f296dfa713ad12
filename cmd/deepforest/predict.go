package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	deepForest "github.com/zeidlermicha/deepForest"
	"github.com/zeidlermicha/deepForest/pool"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "print one predicted label per row of a csv file",
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().String("model", "", "json model written by train --out")
	predictCmd.Flags().String("name", "", "load the model from mongodb under this name")
	predictCmd.Flags().String("data", "", "csv data, the label column is ignored")
	predictCmd.Flags().Int("limit", 0, "read at most this many rows, 0 reads all")
	RootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	modelFile, _ := cmd.Flags().GetString("model")
	name, _ := cmd.Flags().GetString("name")
	dataFile, _ := cmd.Flags().GetString("data")
	limit, _ := cmd.Flags().GetInt("limit")
	if dataFile == "" {
		return errors.New("--data is required")
	}

	// restoring does not train, one worker is enough
	p := pool.New(1)
	defer p.Shutdown()

	var (
		forest *deepForest.DeepForest
		err    error
	)
	switch {
	case modelFile != "":
		forest, err = deepForest.LoadDeepForest(modelFile, p)
	case name != "":
		client, cerr := connectMongo(ctx)
		if cerr != nil {
			return cerr
		}
		defer client.Disconnect(context.Background())
		store := deepForest.NewMongoStore(client.Database(viper.GetString("mongo-db")))
		forest, err = store.LoadDeepForest(ctx, name, p)
	default:
		return errors.New("either --model or --name is required")
	}
	if err != nil {
		return err
	}

	ds, err := deepForest.LoadCSVFile(dataFile, limit)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for i := range ds {
		label, err := forest.Predict(ds[i].Features)
		if err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
		fmt.Fprintf(out, "%g\n", label)
	}
	return nil
}
