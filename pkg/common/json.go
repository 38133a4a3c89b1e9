package common

import (
	"bytes"
	"encoding/json"
	"errors"
)

var ErrNotJSONObject = errors.New("payload is not a JSON object")

// DecodeJSONObject decodes raw into a map, keeping integers as int64 and
// other numbers as float64.
func DecodeJSONObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := NormalizeJSONNumbers(v).(map[string]any)
	if !ok {
		return nil, ErrNotJSONObject
	}
	return obj, nil
}

func NormalizeJSONNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, item := range t {
			t[k] = NormalizeJSONNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = NormalizeJSONNumbers(item)
		}
		return t
	default:
		return v
	}
}
