package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// IDKey is the field under which a store keeps the document id, as 24 hexadecimal characters.
const IDKey = "_id"

// Document is the stored form of a record: its canonical map plus IDKey.
type Document = map[string]interface{}

// Filter matches documents whose fields equal all given values. Keys may be dotted paths.
type Filter = map[string]interface{}

// ErrNoDocument is returned by single-document operations if no document matches.
var ErrNoDocument = errors.New("no document")

// StoreError classifies a store failure.
type StoreError struct {
	Kind Kind // ConnectionFailure, WriteConflict, Timeout or StorageFailure
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// DocumentDB is the operation set consumed from a document store.
// A store provides atomicity per single document only.
type DocumentDB interface {
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	Find(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error) // limit <= 0 means no limit
	Sample(ctx context.Context, collection string, filter Filter, n int) ([]Document, error)
	// SampleShort samples documents whose string at field has fewer than maxLen characters.
	SampleShort(ctx context.Context, collection string, filter Filter, field string, maxLen, n int) ([]Document, error)
	Count(ctx context.Context, collection string, filter Filter) (int, error)
	UpdateOne(ctx context.Context, collection string, filter Filter, set Document) error
	UpdateMany(ctx context.Context, collection string, filter Filter, set Document) (int, error)
	InsertOne(ctx context.Context, collection string, doc Document) (string, error)
	DeleteOne(ctx context.Context, collection string, filter Filter) error
	DeleteMany(ctx context.Context, collection string, filter Filter) (int, error)
	Close(ctx context.Context) error
}

// GetPath resolves a dotted path like "content.text".
func GetPath(doc Document, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetPath sets a dotted path, creating intermediate objects.
func SetPath(doc Document, path string, value interface{}) {
	var keys = strings.Split(path, ".")
	var m = doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[key] = next
		}
		m = next
	}
	m[keys[len(keys)-1]] = value
}

// Match reports whether doc satisfies the field-equality filter.
func Match(doc Document, filter Filter) bool {
	for path, want := range filter {
		got, ok := GetPath(doc, path)
		if !ok || !Equal(got, want) {
			return false
		}
	}
	return true
}

// Equal compares scalar values. Numbers are equal if their values are, regardless of their Go type.
func Equal(a, b interface{}) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	if !Scalar(a) || !Scalar(b) {
		return false
	}
	return a == b
}

// Scalar reports whether v is a string, bool, number or nil.
func Scalar(v interface{}) bool {
	switch v.(type) {
	case nil, string, bool:
		return true
	}
	_, ok := number(v)
	return ok
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Copy returns a deep copy of a document. Nested maps and slices are copied, other values are shared.
func Copy(doc Document) Document {
	if doc == nil {
		return nil
	}
	var result = make(Document, len(doc))
	for key, value := range doc {
		result[key] = copyValue(value)
	}
	return result
}

func copyValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return Copy(v)
	case []interface{}:
		var result = make([]interface{}, len(v))
		for i := range v {
			result[i] = copyValue(v[i])
		}
		return result
	default:
		return v
	}
}
