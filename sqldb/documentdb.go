package sqldb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/wansing/buzz/core"
	"github.com/wansing/buzz/util"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type table struct {
	delete *sqlx.Stmt
	get    *sqlx.Stmt
	getAll *sqlx.Stmt
	insert *sqlx.Stmt
	update *sqlx.Stmt
}

// DocumentDB filters documents in Go, except for lookups by id.
type DocumentDB struct {
	*sqlx.DB
	tables map[string]*table // collection name -> statements
}

// NewDocumentDB creates a table for each collection if it does not exist yet.
func NewDocumentDB(db *sqlx.DB, collections []string) (*DocumentDB, error) {

	var documentDB = &DocumentDB{
		DB:     db,
		tables: make(map[string]*table),
	}

	for _, name := range collections {

		if !validTableName(name) {
			return nil, fmt.Errorf("invalid collection name %q", name)
		}

		// one statement per Exec, as not all drivers accept multiple statements
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS ` + name + ` (
				id CHAR(24) NOT NULL PRIMARY KEY,
				doc TEXT NOT NULL
			)`); err != nil {
			return nil, err
		}

		documentDB.tables[name] = &table{
			delete: mustPrepare(db, "DELETE FROM "+name+" WHERE id = ?"),
			get:    mustPrepare(db, "SELECT id, doc FROM "+name+" WHERE id = ?"),
			getAll: mustPrepare(db, "SELECT id, doc FROM "+name+" ORDER BY id"),
			insert: mustPrepare(db, "INSERT INTO "+name+" (id, doc) VALUES (?, ?)"),
			update: mustPrepare(db, "UPDATE "+name+" SET doc = ? WHERE id = ?"),
		}
	}

	return documentDB, nil
}

func (db *DocumentDB) table(collection string) (*table, error) {
	if t, ok := db.tables[collection]; ok {
		return t, nil
	}
	return nil, &core.StoreError{
		Kind: core.StorageFailure,
		Err:  fmt.Errorf("unknown collection %q", collection),
	}
}

type row struct {
	ID  string `db:"id"`
	Doc string `db:"doc"`
}

// normalize replaces json.Number by int64 or float64, like the other stores decode numbers.
func normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]interface{}:
		for key := range v {
			v[key] = normalize(v[key])
		}
		return v
	case []interface{}:
		for i := range v {
			v[i] = normalize(v[i])
		}
		return v
	default:
		return v
	}
}

func decode(r row) (core.Document, error) {
	var doc core.Document
	var dec = json.NewDecoder(bytes.NewReader([]byte(r.Doc)))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &core.StoreError{
			Kind: core.StorageFailure,
			Err:  errors.Wrapf(err, "decoding document %s", r.ID),
		}
	}
	if doc == nil {
		doc = make(core.Document)
	}
	normalize(doc)
	doc[core.IDKey] = r.ID
	return doc, nil
}

func encode(doc core.Document) (string, error) {
	var stored = core.Copy(doc)
	delete(stored, core.IDKey)
	data, err := json.Marshal(stored)
	if err != nil {
		return "", &core.StoreError{
			Kind: core.StorageFailure,
			Err:  errors.Wrap(err, "encoding document"),
		}
	}
	return string(data), nil
}

// queryer is implemented by both *sqlx.Stmt and a transaction-bound statement
type queryer interface {
	QueryxContext(ctx context.Context, args ...interface{}) (*sqlx.Rows, error)
}

// matching returns the matching documents in ascending id order. If the filter contains an id, only that row is read.
func matching(ctx context.Context, get, getAll queryer, filter core.Filter) ([]core.Document, error) {

	var rows *sqlx.Rows
	var err error

	if id, ok := filter[core.IDKey].(string); ok {
		rows, err = get.QueryxContext(ctx, id)
	} else {
		rows, err = getAll.QueryxContext(ctx)
	}
	if err != nil {
		return nil, classify(err, "select")
	}
	defer rows.Close()

	var docs = []core.Document{}
	for rows.Next() {
		var r row
		if err := rows.StructScan(&r); err != nil {
			return nil, classify(err, "scan")
		}
		doc, err := decode(r)
		if err != nil {
			return nil, err
		}
		if core.Match(doc, filter) {
			docs = append(docs, doc)
		}
	}
	return docs, classify(rows.Err(), "rows")
}

func (db *DocumentDB) find(ctx context.Context, collection string, filter core.Filter) ([]core.Document, error) {
	t, err := db.table(collection)
	if err != nil {
		return nil, err
	}
	return matching(ctx, t.get, t.getAll, filter)
}

func (db *DocumentDB) FindOne(ctx context.Context, collection string, filter core.Filter) (core.Document, error) {
	docs, err := db.find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, core.ErrNoDocument
	}
	return docs[0], nil
}

func (db *DocumentDB) Find(ctx context.Context, collection string, filter core.Filter, limit int) ([]core.Document, error) {
	docs, err := db.find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func sample(docs []core.Document, n int) []core.Document {
	rand.Shuffle(len(docs), func(i, j int) {
		docs[i], docs[j] = docs[j], docs[i]
	})
	if len(docs) > n {
		docs = docs[:n]
	}
	return docs
}

func (db *DocumentDB) Sample(ctx context.Context, collection string, filter core.Filter, n int) ([]core.Document, error) {
	docs, err := db.find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	return sample(docs, n), nil
}

func (db *DocumentDB) SampleShort(ctx context.Context, collection string, filter core.Filter, field string, maxLen, n int) ([]core.Document, error) {
	docs, err := db.find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	var short = []core.Document{}
	for _, doc := range docs {
		value, _ := core.GetPath(doc, field)
		if s, ok := value.(string); ok && util.RuneLen(s) < maxLen {
			short = append(short, doc)
		}
	}
	return sample(short, n), nil
}

func (db *DocumentDB) Count(ctx context.Context, collection string, filter core.Filter) (int, error) {
	docs, err := db.find(ctx, collection, filter)
	return len(docs), err
}

// update runs a read-modify-write of the matching documents in a transaction. If one is true, only the first match is updated.
func (db *DocumentDB) update(ctx context.Context, collection string, filter core.Filter, set core.Document, one bool) (int, error) {

	t, err := db.table(collection)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, classify(err, "begin")
	}

	docs, err := matching(ctx, tx.StmtxContext(ctx, t.get), tx.StmtxContext(ctx, t.getAll), filter)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if one && len(docs) > 1 {
		docs = docs[:1]
	}

	var stmt = tx.StmtxContext(ctx, t.update)
	for _, doc := range docs {
		for path, value := range core.Copy(set) {
			core.SetPath(doc, path, value)
		}
		encoded, err := encode(doc)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, encoded, doc[core.IDKey]); err != nil {
			tx.Rollback()
			return 0, classify(err, "update")
		}
	}

	return len(docs), classify(tx.Commit(), "commit")
}

func (db *DocumentDB) UpdateOne(ctx context.Context, collection string, filter core.Filter, set core.Document) error {
	n, err := db.update(ctx, collection, filter, set, true)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNoDocument
	}
	return nil
}

func (db *DocumentDB) UpdateMany(ctx context.Context, collection string, filter core.Filter, set core.Document) (int, error) {
	return db.update(ctx, collection, filter, set, false)
}

func (db *DocumentDB) InsertOne(ctx context.Context, collection string, doc core.Document) (string, error) {

	t, err := db.table(collection)
	if err != nil {
		return "", err
	}

	encoded, err := encode(doc)
	if err != nil {
		return "", err
	}

	var id = primitive.NewObjectID().Hex()
	if _, err := t.insert.ExecContext(ctx, id, encoded); err != nil {
		return "", classify(err, "insert")
	}
	return id, nil
}

func (db *DocumentDB) delete(ctx context.Context, collection string, filter core.Filter, one bool) (int, error) {

	t, err := db.table(collection)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, classify(err, "begin")
	}

	docs, err := matching(ctx, tx.StmtxContext(ctx, t.get), tx.StmtxContext(ctx, t.getAll), filter)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if one && len(docs) > 1 {
		docs = docs[:1]
	}

	var stmt = tx.StmtxContext(ctx, t.delete)
	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc[core.IDKey]); err != nil {
			tx.Rollback()
			return 0, classify(err, "delete")
		}
	}

	return len(docs), classify(tx.Commit(), "commit")
}

func (db *DocumentDB) DeleteOne(ctx context.Context, collection string, filter core.Filter) error {
	n, err := db.delete(ctx, collection, filter, true)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNoDocument
	}
	return nil
}

func (db *DocumentDB) DeleteMany(ctx context.Context, collection string, filter core.Filter) (int, error) {
	return db.delete(ctx, collection, filter, false)
}

func (db *DocumentDB) Close(ctx context.Context) error {
	return db.DB.Close()
}
