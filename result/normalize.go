package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
)

// EnvelopeKey is the field under which Tapis services place their payload.
const EnvelopeKey = "result"

// From normalizes a decoded JSON value. Objects become KindObject with each
// field normalized; arrays follow the primitive/composite rule; scalars keep
// their type category.
func From(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i)
		}
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Float(f)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, fv := range t {
			fields[k] = From(fv)
		}
		return Object(fields)
	case []any:
		return fromSequence(t)
	}
	return fromOther(v)
}

// FromEnvelope normalizes the value of a response's result field. It differs
// from From only for arrays containing a primitive: those are wrapped in an
// object whose single "result" field holds the array unchanged.
func FromEnvelope(v any) Value {
	if items, ok := v.([]any); ok && containsPrimitive(items) {
		return Object(map[string]Value{EnvelopeKey: Values(items)})
	}
	return From(v)
}

func fromSequence(items []any) Value {
	if containsPrimitive(items) {
		return Values(items)
	}
	nodes := make([]Value, len(items))
	for i, item := range items {
		nodes[i] = From(item)
	}
	return Nodes(nodes...)
}

func containsPrimitive(items []any) bool {
	for _, item := range items {
		if IsPrimitive(item) {
			return true
		}
	}
	return false
}

// fromUint keeps values beyond the int64 range as floats.
func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// IsPrimitive reports whether v is a JSON scalar (including null) or a byte
// slice.
func IsPrimitive(v any) bool {
	switch t := v.(type) {
	case nil, bool, string, []byte, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case Value:
		switch t.Kind() {
		case KindObject, KindValues, KindNodes:
			return false
		}
		return true
	}
	return false
}

// fromOther handles typed Go values (structs, typed maps and slices) by
// round-tripping them through JSON.
func fromOther(v any) Value {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return String(fmt.Sprint(v))
	}
	decoded, err := Decode(data)
	if err != nil {
		return String(fmt.Sprint(v))
	}
	return From(decoded)
}

// Decode parses a single JSON document, keeping numbers as json.Number so
// integers and floats stay distinguishable.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON document")
	}
	return v, nil
}
