package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	Execute()
}

func connectMongo(ctx context.Context) (*mongo.Client, error) {
	uri := viper.GetString("mongo-uri")
	if uri == "" {
		return nil, errors.New("--mongo-uri or DEEPFOREST_MONGO_URI is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongodb")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongodb")
	}
	return client, nil
}
