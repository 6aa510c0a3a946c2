// Package memdb implements core.DocumentDB in memory. It is used by tests and by the "memory:" database url.
package memdb

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/wansing/buzz/core"
	"github.com/wansing/buzz/util"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DB struct {
	mu          sync.RWMutex
	collections map[string]map[string]core.Document // collection name -> id -> document
}

func New() *DB {
	return &DB{
		collections: make(map[string]map[string]core.Document),
	}
}

// ids of matching documents in ascending order, so results don't depend on map iteration
func (db *DB) match(collection string, filter core.Filter) []string {
	var ids = []string{}
	for id, doc := range db.collections[collection] {
		if core.Match(doc, filter) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (db *DB) FindOne(ctx context.Context, collection string, filter core.Filter) (core.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var ids = db.match(collection, filter)
	if len(ids) == 0 {
		return nil, core.ErrNoDocument
	}
	return core.Copy(db.collections[collection][ids[0]]), nil
}

func (db *DB) Find(ctx context.Context, collection string, filter core.Filter, limit int) ([]core.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var ids = db.match(collection, filter)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	var docs = make([]core.Document, len(ids))
	for i, id := range ids {
		docs[i] = core.Copy(db.collections[collection][id])
	}
	return docs, nil
}

func (db *DB) sample(collection string, ids []string, n int) []core.Document {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	var docs = make([]core.Document, len(ids))
	for i, id := range ids {
		docs[i] = core.Copy(db.collections[collection][id])
	}
	return docs
}

func (db *DB) Sample(ctx context.Context, collection string, filter core.Filter, n int) ([]core.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.sample(collection, db.match(collection, filter), n), nil
}

func (db *DB) SampleShort(ctx context.Context, collection string, filter core.Filter, field string, maxLen, n int) ([]core.Document, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var short = []string{}
	for _, id := range db.match(collection, filter) {
		value, _ := core.GetPath(db.collections[collection][id], field)
		if s, ok := value.(string); ok && util.RuneLen(s) < maxLen {
			short = append(short, id)
		}
	}
	return db.sample(collection, short, n), nil
}

func (db *DB) Count(ctx context.Context, collection string, filter core.Filter) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.match(collection, filter)), nil
}

func (db *DB) set(collection, id string, set core.Document) {
	var doc = db.collections[collection][id]
	for path, value := range core.Copy(set) {
		core.SetPath(doc, path, value)
	}
}

func (db *DB) UpdateOne(ctx context.Context, collection string, filter core.Filter, set core.Document) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var ids = db.match(collection, filter)
	if len(ids) == 0 {
		return core.ErrNoDocument
	}
	db.set(collection, ids[0], set)
	return nil
}

func (db *DB) UpdateMany(ctx context.Context, collection string, filter core.Filter, set core.Document) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var ids = db.match(collection, filter)
	for _, id := range ids {
		db.set(collection, id, set)
	}
	return len(ids), nil
}

func (db *DB) InsertOne(ctx context.Context, collection string, doc core.Document) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.collections[collection] == nil {
		db.collections[collection] = make(map[string]core.Document)
	}

	var id = primitive.NewObjectID().Hex()
	var stored = core.Copy(doc)
	stored[core.IDKey] = id
	db.collections[collection][id] = stored
	return id, nil
}

func (db *DB) DeleteOne(ctx context.Context, collection string, filter core.Filter) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var ids = db.match(collection, filter)
	if len(ids) == 0 {
		return core.ErrNoDocument
	}
	delete(db.collections[collection], ids[0])
	return nil
}

func (db *DB) DeleteMany(ctx context.Context, collection string, filter core.Filter) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var ids = db.match(collection, filter)
	for _, id := range ids {
		delete(db.collections[collection], id)
	}
	return len(ids), nil
}

func (db *DB) Close(ctx context.Context) error {
	return nil
}
