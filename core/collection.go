package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wansing/buzz/record"
	"go.uber.org/zap"
)

// Collection is the record store adapter of one logical collection. It turns store outcomes into results and holds no identity.
type Collection struct {
	DB   DocumentDB
	Name string
	Type record.Type
	Log  *zap.Logger
}

func (c *Collection) fail(op string, err error) Result {

	var kind = StorageFailure
	var storeErr *StoreError

	switch {
	case errors.Is(err, ErrNoDocument):
		return Fail(NotFound, "")
	case errors.Is(err, context.DeadlineExceeded):
		kind = Timeout
	case errors.As(err, &storeErr):
		kind = storeErr.Kind
	}

	c.Log.Error("store operation failed", zap.String("collection", c.Name), zap.String("op", op), zap.String("kind", string(kind)), zap.Error(err))
	return Fail(kind, "")
}

// Expose replaces the store id key by the canonical "id".
func Expose(doc Document) Document {
	var result = Copy(doc)
	if id, ok := result[IDKey]; ok {
		delete(result, IDKey)
		result[record.KeyID] = id
	}
	return result
}

func exposeAll(docs []Document) []Document {
	var result = make([]Document, len(docs))
	for i := range docs {
		result[i] = Expose(docs[i])
	}
	return result
}

// CheckFilter translates the canonical id key, checks ids and rejects operators and non-scalar values.
func CheckFilter(filter Filter) (Filter, *Result) {
	var result = make(Filter, len(filter))
	for key, value := range filter {
		if key == "" || strings.HasPrefix(key, "$") || strings.Contains(key, ".$") {
			var res = Fail(InvalidFilter, fmt.Sprintf("invalid filter key %q", key))
			return nil, &res
		}
		if !Scalar(value) {
			var res = Fail(InvalidFilter, fmt.Sprintf("filter value of %q must be a string, number or boolean", key))
			return nil, &res
		}
		if key == record.KeyID || key == IDKey {
			key = IDKey
			s, ok := value.(string)
			if !ok || !record.IsHexID(s) {
				var res = Fail(InvalidFilter, "id must be 24 hexadecimal characters")
				return nil, &res
			}
			value = strings.ToLower(s)
		}
		result[key] = value
	}
	return result, nil
}

// checkID returns the id in lower case, as the stores keep it.
func checkID(id string) (string, *Result) {
	if !record.IsHexID(id) {
		var res = Fail(MalformedContent, "id must be 24 hexadecimal characters")
		return "", &res
	}
	return strings.ToLower(id), nil
}

func (c *Collection) get(ctx context.Context, id string) (Document, Result) {
	id, bad := checkID(id)
	if bad != nil {
		return nil, *bad
	}
	doc, err := c.DB.FindOne(ctx, c.Name, Filter{IDKey: id})
	if err != nil {
		return nil, c.fail("find one", err)
	}
	return doc, Ok(GeneralSuccess, nil)
}

func (c *Collection) GetByKey(ctx context.Context, id string) Result {
	doc, res := c.get(ctx, id)
	if !res.Success {
		return res
	}
	return Ok(GeneralSuccess, Expose(doc))
}

func (c *Collection) find(ctx context.Context, filter Filter, limit int) ([]Document, Result) {
	filter, res := CheckFilter(filter)
	if res != nil {
		return nil, *res
	}
	docs, err := c.DB.Find(ctx, c.Name, filter, limit)
	if err != nil {
		return nil, c.fail("find", err)
	}
	return docs, Ok(GeneralSuccess, nil)
}

func (c *Collection) GetByFields(ctx context.Context, filter Filter, limit int) Result {
	docs, res := c.find(ctx, filter, limit)
	if !res.Success {
		return res
	}
	return Ok(GeneralSuccess, exposeAll(docs))
}

// GetAll returns all documents, or at most limit if limit > 0.
func (c *Collection) GetAll(ctx context.Context, limit int) Result {
	return c.GetByFields(ctx, nil, limit)
}

func lowInventory(res Result, got, want int) Result {
	if got < want {
		return res.Warn(fmt.Sprintf("low inventory: %d of %d requested records available", got, want))
	}
	return res
}

// GetRandom samples n documents. If fewer exist, it returns what exists along with a warning.
func (c *Collection) GetRandom(ctx context.Context, n int, filter Filter) Result {
	if n < 1 {
		return Fail(MalformedContent, "number of records must be positive")
	}
	filter, res := CheckFilter(filter)
	if res != nil {
		return *res
	}
	docs, err := c.DB.Sample(ctx, c.Name, filter, n)
	if err != nil {
		return c.fail("sample", err)
	}
	return lowInventory(Ok(GeneralSuccess, exposeAll(docs)), len(docs), n)
}

// GetShort samples n documents whose short field is shorter than maxLen characters.
func (c *Collection) GetShort(ctx context.Context, n, maxLen int, filter Filter) Result {
	if n < 1 {
		return Fail(MalformedContent, "number of records must be positive")
	}
	if maxLen < 1 {
		return Fail(MalformedContent, "maximum length must be positive")
	}
	filter, res := CheckFilter(filter)
	if res != nil {
		return *res
	}
	docs, err := c.DB.SampleShort(ctx, c.Name, filter, record.ShortField(c.Type), maxLen, n)
	if err != nil {
		return c.fail("sample short", err)
	}
	return lowInventory(Ok(GeneralSuccess, exposeAll(docs)), len(docs), n)
}

func (c *Collection) Count(ctx context.Context, filter Filter) Result {
	filter, res := CheckFilter(filter)
	if res != nil {
		return *res
	}
	n, err := c.DB.Count(ctx, c.Name, filter)
	if err != nil {
		return c.fail("count", err)
	}
	return Ok(GeneralSuccess, n)
}

// writable returns a copy of fields without id keys.
func writable(fields Document) Document {
	var result = Copy(fields)
	delete(result, IDKey)
	delete(result, record.KeyID)
	return result
}

// UpdateByKey sets the given fields and keeps all others.
func (c *Collection) UpdateByKey(ctx context.Context, id string, fields Document) Result {
	var set = writable(fields)
	if len(set) == 0 {
		return Fail(MalformedContent, "update is empty")
	}
	id, bad := checkID(id)
	if bad != nil {
		return *bad
	}
	if err := c.DB.UpdateOne(ctx, c.Name, Filter{IDKey: id}, set); err != nil {
		return c.fail("update one", err)
	}
	c.Log.Debug("updated", zap.String("collection", c.Name), zap.String("id", id))
	return Ok(GeneralSuccess, Document{record.KeyID: id})
}

// UpdateAll sets the given fields on all matching documents.
func (c *Collection) UpdateAll(ctx context.Context, filter Filter, fields Document) Result {
	var set = writable(fields)
	if len(set) == 0 {
		return Fail(MalformedContent, "update is empty")
	}
	filter, res := CheckFilter(filter)
	if res != nil {
		return *res
	}
	n, err := c.DB.UpdateMany(ctx, c.Name, filter, set)
	if err != nil {
		return c.fail("update many", err)
	}
	c.Log.Debug("updated", zap.String("collection", c.Name), zap.Int("count", n))
	return Ok(GeneralSuccess, Document{"updated": n})
}

// Create applies the default fields of the record type and inserts the document. Its data is the new id.
func (c *Collection) Create(ctx context.Context, doc Document) Result {
	var insert = writable(doc)
	if len(insert) == 0 {
		return Fail(MalformedContent, "record is empty")
	}
	record.Defaults(c.Type, insert)
	id, err := c.DB.InsertOne(ctx, c.Name, insert)
	if err != nil {
		return c.fail("insert one", err)
	}
	c.Log.Debug("created", zap.String("collection", c.Name), zap.String("id", id))
	return Ok(PostSuccess, Document{record.KeyID: id})
}

func (c *Collection) DeleteByKey(ctx context.Context, id string) Result {
	id, bad := checkID(id)
	if bad != nil {
		return *bad
	}
	if err := c.DB.DeleteOne(ctx, c.Name, Filter{IDKey: id}); err != nil {
		return c.fail("delete one", err)
	}
	c.Log.Debug("deleted", zap.String("collection", c.Name), zap.String("id", id))
	return Ok(GeneralSuccess, Document{record.KeyID: id})
}

// DeleteByFilter accepts exactly one filter field.
func (c *Collection) DeleteByFilter(ctx context.Context, filter Filter) Result {
	if len(filter) != 1 {
		return Fail(MalformedContent, "delete filter must have exactly one field")
	}
	filter, res := CheckFilter(filter)
	if res != nil {
		return *res
	}
	n, err := c.DB.DeleteMany(ctx, c.Name, filter)
	if err != nil {
		return c.fail("delete many", err)
	}
	if n == 0 {
		return Fail(NotFound, "no record matches the filter")
	}
	c.Log.Debug("deleted", zap.String("collection", c.Name), zap.Int("count", n))
	return Ok(GeneralSuccess, Document{"deleted": n})
}
