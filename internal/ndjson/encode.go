package ndjson

import (
	"math"
	"strconv"

	"github.com/jn-toolkit/jn/internal/record"
)

// AppendRecord appends the bit-exact JSON encoding of r to dst:
// keys quoted, control characters escaped with short forms
// for \n \r \t and \uXXXX otherwise, NaN/±Inf serialize as null, integers
// in decimal form, floats in the shortest round-trip decimal, no
// inter-token whitespace.
func AppendRecord(dst []byte, r record.Record) []byte {
	switch r.Kind() {
	case record.KindNull:
		return append(dst, "null"...)
	case record.KindBool:
		if r.Bool() {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case record.KindInt:
		return strconv.AppendInt(dst, r.Int(), 10)
	case record.KindFloat:
		f := r.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return append(dst, "null"...)
		}
		return strconv.AppendFloat(dst, f, 'g', -1, 64)
	case record.KindString:
		return appendQuotedString(dst, r.Str())
	case record.KindArray:
		dst = append(dst, '[')
		for i, v := range r.Array() {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = AppendRecord(dst, v)
		}
		return append(dst, ']')
	case record.KindObject:
		dst = append(dst, '{')
		first := true
		obj := r.Object()
		obj.Each(func(k string, v record.Record) bool {
			if !first {
				dst = append(dst, ',')
			}
			first = false
			dst = appendQuotedString(dst, k)
			dst = append(dst, ':')
			dst = AppendRecord(dst, v)
			return true
		})
		return append(dst, '}')
	default:
		return append(dst, "null"...)
	}
}

const hexDigits = "0123456789abcdef"

func appendQuotedString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for _, b := range []byte(s) {
		switch {
		case b == '"':
			dst = append(dst, '\\', '"')
		case b == '\\':
			dst = append(dst, '\\', '\\')
		case b == '\n':
			dst = append(dst, '\\', 'n')
		case b == '\r':
			dst = append(dst, '\\', 'r')
		case b == '\t':
			dst = append(dst, '\\', 't')
		case b < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xf])
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, '"')
}

// Marshal returns the bit-exact JSON encoding of r as a standalone byte
// slice, without a trailing newline.
func Marshal(r record.Record) []byte {
	return AppendRecord(nil, r)
}
