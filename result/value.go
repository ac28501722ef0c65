// Package result normalizes JSON payloads returned by Tapis services into a
// navigable tree of values.
//
// Normalization follows the platform client's historical rule for arrays: an
// array holding only objects (or arrays) becomes a sequence of normalized
// nodes, while an array holding at least one primitive is passed through
// untouched. Callers depend on that asymmetry, so it is preserved here.
package result

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindObject
	// KindValues is an array that contains at least one primitive; its
	// elements are kept exactly as decoded.
	KindValues
	// KindNodes is an array of normalized nodes.
	KindNodes
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindNull:    "null",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindBytes:   "bytes",
	KindObject:  "object",
	KindValues:  "values",
	KindNodes:   "nodes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one node of a normalized result. The zero Value is KindInvalid and
// is what lookups return for missing keys or out-of-range indexes.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	bytes  []byte
	keys   []string
	fields map[string]Value
	raw    []any
	nodes  []Value
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value       { return Value{kind: KindBytes, bytes: b} }
func Nodes(nodes ...Value) Value { return Value{kind: KindNodes, nodes: nodes} }

// Values wraps a primitive-bearing array without touching its elements.
func Values(items []any) Value {
	return Value{kind: KindValues, raw: items}
}

// Object builds an object node; keys are ordered lexically.
func Object(fields map[string]Value) Value {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Value{kind: KindObject, keys: keys, fields: fields}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsValid() bool  { return v.kind != KindInvalid }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsArray reports whether v is either array variant.
func (v Value) IsArray() bool {
	return v.kind == KindValues || v.kind == KindNodes
}

// Get returns the field key of an object, or an invalid Value.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Value{}
	}
	return v.fields[key]
}

func (v Value) Has(key string) bool {
	if v.kind != KindObject {
		return false
	}
	_, ok := v.fields[key]
	return ok
}

// Keys returns the object's field names in lexical order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return append([]string(nil), v.keys...)
}

// Len is the number of fields or elements; zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.fields)
	case KindValues:
		return len(v.raw)
	case KindNodes:
		return len(v.nodes)
	}
	return 0
}

// Index returns element i of an array. Elements of a KindValues array are
// viewed through From; use Values for the untouched elements.
func (v Value) Index(i int) Value {
	switch v.kind {
	case KindNodes:
		if i >= 0 && i < len(v.nodes) {
			return v.nodes[i]
		}
	case KindValues:
		if i >= 0 && i < len(v.raw) {
			return From(v.raw[i])
		}
	}
	return Value{}
}

// Nodes returns the elements of a KindNodes array.
func (v Value) Nodes() []Value {
	if v.kind != KindNodes {
		return nil
	}
	return append([]Value(nil), v.nodes...)
}

// Values returns the untouched elements of a KindValues array.
func (v Value) Values() []any {
	if v.kind != KindValues {
		return nil
	}
	return append([]any(nil), v.raw...)
}

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsFloat accepts both numeric kinds.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsBytes() ([]byte, bool) {
	return v.bytes, v.kind == KindBytes
}

// Lookup walks a dotted path such as "a.0.bb", treating numeric segments as
// array indexes.
func (v Value) Lookup(path string) Value {
	if path == "" {
		return v
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		if cur.IsArray() {
			i, err := strconv.Atoi(seg)
			if err != nil {
				return Value{}
			}
			cur = cur.Index(i)
		} else {
			cur = cur.Get(seg)
		}
		if !cur.IsValid() {
			return Value{}
		}
	}
	return cur
}

// Interface converts v back into plain Go values: map[string]any, []any,
// string, int64, float64, bool, []byte or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.bytes
	case KindObject:
		m := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			m[k] = f.Interface()
		}
		return m
	case KindValues:
		return append([]any(nil), v.raw...)
	case KindNodes:
		out := make([]any, len(v.nodes))
		for i, n := range v.nodes {
			out[i] = n.Interface()
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInvalid {
		return nil, fmt.Errorf("result: cannot marshal invalid value")
	}
	return json.Marshal(v.Interface())
}

// String renders v as indented JSON, for display.
func (v Value) String() string {
	if v.kind == KindInvalid {
		return "<invalid>"
	}
	out, err := json.MarshalIndent(v.Interface(), "", "  ")
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.kind, err)
	}
	return string(out)
}
