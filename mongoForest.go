package deepForest

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zeidlermicha/deepForest/pool"
)

const (
	DeepForestCollection = "deep_forests"
	ForestCollection     = "forests"
)

// ExampleDTO is the document layout of a training example.
type ExampleDTO struct {
	Input []float64 `bson:"input"`
	Label float64   `bson:"label"`
}

type forestDocument struct {
	Name   string         `bson:"name"`
	Forest ForestSnapshot `bson:"forest"`
}

// MongoStore persists trained models in a mongo database, one document per
// name.
type MongoStore struct {
	database *mongo.Database
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{database: database}
}

// SaveDeepForest upserts the snapshot of d under name.
func (s *MongoStore) SaveDeepForest(ctx context.Context, name string, d *DeepForest) error {
	snap, err := d.Snapshot()
	if err != nil {
		return err
	}
	snap.Name = name
	return s.replace(ctx, DeepForestCollection, name, snap)
}

// LoadDeepForest restores the cascade stored under name.
func (s *MongoStore) LoadDeepForest(ctx context.Context, name string, p *pool.Pool, opts ...ForestOption) (*DeepForest, error) {
	var snap DeepForestSnapshot
	if err := s.find(ctx, DeepForestCollection, name, &snap); err != nil {
		return nil, err
	}
	return RestoreDeepForest(&snap, p, opts...)
}

// SaveForest upserts the snapshot of f under name.
func (s *MongoStore) SaveForest(ctx context.Context, name string, f *DecisionForest) error {
	snap, err := f.Snapshot()
	if err != nil {
		return err
	}
	return s.replace(ctx, ForestCollection, name, forestDocument{Name: name, Forest: *snap})
}

// LoadForest restores the forest stored under name.
func (s *MongoStore) LoadForest(ctx context.Context, name string, p *pool.Pool, opts ...ForestOption) (*DecisionForest, error) {
	var doc forestDocument
	if err := s.find(ctx, ForestCollection, name, &doc); err != nil {
		return nil, err
	}
	return RestoreDecisionForest(&doc.Forest, p, opts...)
}

func (s *MongoStore) replace(ctx context.Context, collection, name string, doc interface{}) error {
	_, err := s.database.Collection(collection).ReplaceOne(ctx,
		bson.D{{Key: "name", Value: name}}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "save %s/%s", collection, name)
	}
	log.WithField("collection", collection).Infof("saved %s", name)
	return nil
}

func (s *MongoStore) find(ctx context.Context, collection, name string, out interface{}) error {
	result := s.database.Collection(collection).FindOne(ctx, bson.D{{Key: "name", Value: name}})
	if err := result.Err(); err != nil {
		return errors.Wrapf(err, "load %s/%s", collection, name)
	}
	if err := result.Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s/%s", collection, name)
	}
	return nil
}

func sampleCursor(ctx context.Context, collection *mongo.Collection, count int) (*mongo.Cursor, error) {
	if count <= 0 {
		return collection.Find(ctx, bson.D{})
	}
	pipeline := mongo.Pipeline([]bson.D{{{Key: "$sample", Value: bson.D{{Key: "size", Value: count}}}}})
	return collection.Aggregate(ctx, pipeline)
}

// LoadMongoDataSet reads {input, label} documents from collection. A positive
// sample draws that many random documents, otherwise all documents are read.
func LoadMongoDataSet(ctx context.Context, collection *mongo.Collection, sample int) (DataSet, error) {
	cursor, err := sampleCursor(ctx, collection, sample)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", collection.Name())
	}
	defer cursor.Close(ctx)

	var ds DataSet
	for cursor.Next(ctx) {
		var data ExampleDTO
		if err := cursor.Decode(&data); err != nil {
			return nil, errors.Wrapf(err, "decode example %d", len(ds))
		}
		ds = append(ds, Example{Features: data.Input, Label: data.Label})
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", collection.Name())
	}
	if len(ds) == 0 {
		return nil, ErrEmptyDataSet
	}
	return ds, nil
}
