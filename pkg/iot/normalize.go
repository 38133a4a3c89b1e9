package iot

import (
	"encoding/hex"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

// NormalizeValue converts store-native values into plain JSON values, recursing
// into nested documents and arrays.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case bson.ObjectID:
		return t.Hex()
	case bson.DateTime:
		return common.FormatTimestamp(t.Time())
	case time.Time:
		return common.FormatTimestamp(t)
	case bson.Timestamp:
		return common.FormatTimestamp(time.Unix(int64(t.T), 0))
	case bson.Decimal128:
		return t.String()
	case bson.Binary:
		return hex.EncodeToString(t.Data)
	case []byte:
		return hex.EncodeToString(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = NormalizeValue(e.Value)
		}
		return out
	case bson.M:
		return normalizeMap(t)
	case models.Document:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case bson.A:
		return normalizeSlice(t)
	case []any:
		return normalizeSlice(t)
	default:
		return v
	}
}

func NormalizeDocument(doc models.Document) map[string]any {
	return normalizeMap(doc)
}

func normalizeMap[M ~map[string]any](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = NormalizeValue(item)
	}
	return out
}

func normalizeSlice[S ~[]any](s S) []any {
	out := make([]any, len(s))
	for i, item := range s {
		out[i] = NormalizeValue(item)
	}
	return out
}
