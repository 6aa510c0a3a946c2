// Package mongodb implements core.DocumentDB with the official MongoDB driver.
package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"github.com/wansing/buzz/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type DocumentDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Open connects to the server at uri and pings it.
func Open(ctx context.Context, uri, database string) (*DocumentDB, error) {

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, classify(err, "connect")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, classify(err, "ping")
	}

	return &DocumentDB{
		Client:   client,
		Database: client.Database(database),
	}, nil
}

func (db *DocumentDB) decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]core.Document, error) {
	defer cursor.Close(ctx)
	var docs = []core.Document{}
	for cursor.Next(ctx) {
		var m bson.M
		if err := cursor.Decode(&m); err != nil {
			return nil, classify(err, "decode")
		}
		docs = append(docs, fromBSON(m))
	}
	return docs, classify(cursor.Err(), "cursor")
}

func (db *DocumentDB) FindOne(ctx context.Context, collection string, filter core.Filter) (core.Document, error) {

	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}

	var m bson.M
	if err := db.Database.Collection(collection).FindOne(ctx, f).Decode(&m); err != nil {
		return nil, classify(err, "find one")
	}
	return fromBSON(m), nil
}

func (db *DocumentDB) Find(ctx context.Context, collection string, filter core.Filter, limit int) ([]core.Document, error) {

	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}

	var opts = options.Find().SetSort(bson.D{{Key: core.IDKey, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := db.Database.Collection(collection).Find(ctx, f, opts)
	if err != nil {
		return nil, classify(err, "find")
	}
	return db.decodeAll(ctx, cursor)
}

func (db *DocumentDB) aggregate(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]core.Document, error) {
	cursor, err := db.Database.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify(err, "aggregate")
	}
	return db.decodeAll(ctx, cursor)
}

func (db *DocumentDB) Sample(ctx context.Context, collection string, filter core.Filter, n int) ([]core.Document, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	return db.aggregate(ctx, collection, samplePipeline(f, n))
}

func (db *DocumentDB) SampleShort(ctx context.Context, collection string, filter core.Filter, field string, maxLen, n int) ([]core.Document, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	return db.aggregate(ctx, collection, shortPipeline(f, field, maxLen, n))
}

func (db *DocumentDB) Count(ctx context.Context, collection string, filter core.Filter) (int, error) {
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := db.Database.Collection(collection).CountDocuments(ctx, f)
	return int(n), classify(err, "count")
}

func (db *DocumentDB) UpdateOne(ctx context.Context, collection string, filter core.Filter, set core.Document) error {

	f, err := toFilter(filter)
	if err != nil {
		return err
	}

	res, err := db.Database.Collection(collection).UpdateOne(ctx, f, bson.M{"$set": toBSON(set)})
	if err != nil {
		return classify(err, "update one")
	}
	if res.MatchedCount == 0 {
		return core.ErrNoDocument
	}
	return nil
}

func (db *DocumentDB) UpdateMany(ctx context.Context, collection string, filter core.Filter, set core.Document) (int, error) {

	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}

	res, err := db.Database.Collection(collection).UpdateMany(ctx, f, bson.M{"$set": toBSON(set)})
	if err != nil {
		return 0, classify(err, "update many")
	}
	return int(res.MatchedCount), nil
}

func (db *DocumentDB) InsertOne(ctx context.Context, collection string, doc core.Document) (string, error) {

	var id = primitive.NewObjectID()
	var m = toBSON(doc)
	m[core.IDKey] = id

	if _, err := db.Database.Collection(collection).InsertOne(ctx, m); err != nil {
		return "", classify(err, "insert one")
	}
	return id.Hex(), nil
}

func (db *DocumentDB) DeleteOne(ctx context.Context, collection string, filter core.Filter) error {

	f, err := toFilter(filter)
	if err != nil {
		return err
	}

	res, err := db.Database.Collection(collection).DeleteOne(ctx, f)
	if err != nil {
		return classify(err, "delete one")
	}
	if res.DeletedCount == 0 {
		return core.ErrNoDocument
	}
	return nil
}

func (db *DocumentDB) DeleteMany(ctx context.Context, collection string, filter core.Filter) (int, error) {

	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}

	res, err := db.Database.Collection(collection).DeleteMany(ctx, f)
	if err != nil {
		return 0, classify(err, "delete many")
	}
	return int(res.DeletedCount), nil
}

func (db *DocumentDB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

// classify wraps err into a *core.StoreError, except for mongo.ErrNoDocuments and context errors.
func classify(err error, op string) error {

	if err == nil {
		return nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.ErrNoDocument
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Wrap(err, op)
	}

	var kind = core.StorageFailure
	var cmdErr mongo.CommandError

	switch {
	case mongo.IsDuplicateKeyError(err):
		kind = core.WriteConflict
	case errors.As(err, &cmdErr) && cmdErr.Code == 112: // WriteConflict
		kind = core.WriteConflict
	case mongo.IsTimeout(err):
		kind = core.Timeout
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		kind = core.ConnectionFailure
	}

	return &core.StoreError{
		Kind: kind,
		Err:  errors.Wrap(err, op),
	}
}
