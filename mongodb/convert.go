package mongodb

import (
	"fmt"

	"github.com/wansing/buzz/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// toFilter converts the hexadecimal id of a filter into an ObjectID.
func toFilter(filter core.Filter) (bson.M, error) {
	var f = bson.M{}
	for key, value := range filter {
		if key == core.IDKey {
			s, ok := value.(string)
			if !ok {
				return nil, &core.StoreError{Kind: core.StorageFailure, Err: fmt.Errorf("id must be a string, got %T", value)}
			}
			oid, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return nil, core.ErrNoDocument // can't match any document
			}
			f[key] = oid
			continue
		}
		f[key] = value
	}
	return f, nil
}

// toBSON returns a copy of doc without the id, which is not writable.
func toBSON(doc core.Document) bson.M {
	var m = bson.M{}
	for key, value := range core.Copy(doc) {
		if key == core.IDKey {
			continue
		}
		m[key] = value
	}
	return m
}

// fromBSON converts a decoded document into plain Go types. ObjectIDs become hexadecimal strings.
func fromBSON(m bson.M) core.Document {
	var doc = make(core.Document, len(m))
	for key, value := range m {
		doc[key] = fromBSONValue(value)
	}
	return doc
}

func fromBSONValue(v interface{}) interface{} {
	switch v := v.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case primitive.M:
		return fromBSON(bson.M(v))
	case map[string]interface{}:
		return fromBSON(bson.M(v))
	case primitive.D:
		return fromBSON(bson.M(v.Map()))
	case primitive.A:
		var result = make([]interface{}, len(v))
		for i := range v {
			result[i] = fromBSONValue(v[i])
		}
		return result
	case int32:
		return int64(v)
	default:
		return v
	}
}

func samplePipeline(filter bson.M, n int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sample", Value: bson.M{"size": n}}},
	}
}

// shortPipeline samples documents whose string at field has fewer than maxLen code points.
func shortPipeline(filter bson.M, field string, maxLen, n int) mongo.Pipeline {
	var match = bson.M{
		"$and": bson.A{
			filter,
			bson.M{field: bson.M{"$type": "string"}},
			bson.M{"$expr": bson.M{
				"$lt": bson.A{bson.M{"$strLenCP": "$" + field}, maxLen},
			}},
		},
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sample", Value: bson.M{"size": n}}},
	}
}
