// Package record implements the dynamically-typed JSON value that flows
// through every stage of a pipeline once bytes have become NDJSON.
package record

import "fmt"

// Kind identifies the variant carried by a Record.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Record is the dynamically-typed value described in null,
// boolean, integer, float, string, ordered object, or array.
type Record struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	obj  *OrderedMap
	arr  []Record
}

// Null is the singular null record.
var Null = Record{kind: KindNull}

func Bool(v bool) Record    { return Record{kind: KindBool, b: v} }
func Int(v int64) Record    { return Record{kind: KindInt, i: v} }
func Float(v float64) Record { return Record{kind: KindFloat, f: v} }
func String(v string) Record { return Record{kind: KindString, s: v} }

func Object(m *OrderedMap) Record {
	if m == nil {
		m = NewOrderedMap(0)
	}
	return Record{kind: KindObject, obj: m}
}

func Array(items []Record) Record {
	return Record{kind: KindArray, arr: items}
}

func (r Record) Kind() Kind { return r.kind }
func (r Record) IsNull() bool { return r.kind == KindNull }

// Truthy implements jq-style truthiness: everything except null and false
// is truthy.
func (r Record) Truthy() bool {
	if r.kind == KindNull {
		return false
	}
	if r.kind == KindBool {
		return r.b
	}
	return true
}

func (r Record) Bool() bool {
	return r.b
}

func (r Record) Int() int64 { return r.i }

func (r Record) Float() float64 {
	switch r.kind {
	case KindFloat:
		return r.f
	case KindInt:
		return float64(r.i)
	default:
		return 0
	}
}

// IsNumber reports whether the record holds an integer or float.
func (r Record) IsNumber() bool { return r.kind == KindInt || r.kind == KindFloat }

// Number returns the value as a float64 regardless of int/float variant.
func (r Record) Number() float64 {
	if r.kind == KindInt {
		return float64(r.i)
	}
	return r.f
}

func (r Record) Str() string { return r.s }

// Object returns the backing OrderedMap, or nil if this record is not an
// object.
func (r Record) Object() *OrderedMap {
	if r.kind != KindObject {
		return nil
	}
	return r.obj
}

// Array returns the backing slice, or nil if this record is not an array.
func (r Record) Array() []Record {
	if r.kind != KindArray {
		return nil
	}
	return r.arr
}

// Len reports length for string/array/object records; 0 otherwise.
func (r Record) Len() int {
	switch r.kind {
	case KindString:
		return len([]rune(r.s))
	case KindArray:
		return len(r.arr)
	case KindObject:
		if r.obj == nil {
			return 0
		}
		return r.obj.Len()
	default:
		return 0
	}
}

func (r Record) String() string {
	return fmt.Sprintf("%s(%v)", r.kind, r.goValue())
}

func (r Record) goValue() any {
	switch r.kind {
	case KindNull:
		return nil
	case KindBool:
		return r.b
	case KindInt:
		return r.i
	case KindFloat:
		return r.f
	case KindString:
		return r.s
	case KindArray:
		return r.arr
	case KindObject:
		return r.obj
	default:
		return nil
	}
}

// Field looks up a key on an object record; returns (Null, false) for
// non-objects or missing keys.
func (r Record) Field(key string) (Record, bool) {
	if r.kind != KindObject || r.obj == nil {
		return Null, false
	}
	return r.obj.Get(key)
}

// Index returns the i-th array element honoring negative, saturating
// indices. ok is false when out of bounds or not an
// array.
func (r Record) Index(i int64) (Record, bool) {
	if r.kind != KindArray {
		return Null, false
	}
	n := int64(len(r.arr))
	idx := i
	if idx < 0 {
		// Saturating add: avoid overflow on math.MinInt64.
		if idx < -n {
			return Null, false
		}
		idx = n + idx
	}
	if idx < 0 || idx >= n {
		return Null, false
	}
	return r.arr[idx], true
}

// Slice returns xs[lo:hi] with negative/out-of-range indices clamped
// saturating (no overflow even at MinInt64).
func (r Record) Slice(lo, hi *int64) (Record, bool) {
	if r.kind != KindArray {
		return Null, false
	}
	n := int64(len(r.arr))
	l := normalizeSliceBound(lo, 0, n)
	h := normalizeSliceBound(hi, n, n)
	if l > h {
		l = h
	}
	return Array(append([]Record(nil), r.arr[l:h]...)), true
}

func normalizeSliceBound(v *int64, def, n int64) int64 {
	if v == nil {
		return def
	}
	x := *v
	if x < 0 {
		// Saturate rather than overflow when adding n.
		if x < -n {
			x = 0
		} else {
			x = n + x
		}
	}
	if x < 0 {
		x = 0
	}
	if x > n {
		x = n
	}
	return x
}
