package expr

import (
	"strconv"

	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/record"
)

// callObject dispatches the object/type built-ins: to_entries, from_entries,
// has, keys, values, length, type, tonumber, tostring, and the is_* type
// predicates.
func callObject(ctx *Context, name string, args []Node, rec record.Record) (EvalResult, bool, error) {
	switch name {
	case "to_entries":
		if rec.Kind() != record.KindObject {
			return empty(), true, nil
		}
		var out []record.Record
		rec.Object().Each(func(k string, v record.Record) bool {
			m := record.NewOrderedMap(2)
			m.Set("key", record.String(k))
			m.Set("value", v)
			out = append(out, record.Object(m))
			return true
		})
		return one(record.Array(out)), true, nil
	case "from_entries":
		if rec.Kind() != record.KindArray {
			return empty(), true, nil
		}
		m := record.NewOrderedMap(len(rec.Array()))
		for _, e := range rec.Array() {
			if e.Kind() != record.KindObject {
				continue
			}
			k, ok := e.Field("key")
			if !ok {
				k, ok = e.Field("name")
			}
			if !ok {
				continue
			}
			v, _ := e.Field("value")
			m.Set(keyToString(k), v)
		}
		return one(record.Object(m)), true, nil
	case "has":
		if len(args) != 1 {
			return EvalResult{}, true, nil
		}
		kr, err := Eval(ctx, args[0], rec)
		if err != nil {
			return EvalResult{}, true, err
		}
		if len(kr.items) == 0 {
			return one(record.Bool(false)), true, nil
		}
		key := kr.items[0]
		switch rec.Kind() {
		case record.KindObject:
			return one(record.Bool(rec.Object().Has(keyToString(key)))), true, nil
		case record.KindArray:
			if key.Kind() != record.KindInt {
				return one(record.Bool(false)), true, nil
			}
			idx := key.Int()
			return one(record.Bool(idx >= 0 && idx < int64(len(rec.Array())))), true, nil
		default:
			return one(record.Bool(false)), true, nil
		}
	case "keys":
		if rec.Kind() != record.KindObject {
			return empty(), true, nil
		}
		ks := rec.Object().Keys()
		out := make([]record.Record, len(ks))
		for i, k := range ks {
			out[i] = record.String(k)
		}
		return one(record.Array(out)), true, nil
	case "values":
		if rec.Kind() != record.KindObject {
			return empty(), true, nil
		}
		var out []record.Record
		rec.Object().Each(func(_ string, v record.Record) bool { out = append(out, v); return true })
		return one(record.Array(out)), true, nil
	case "length":
		switch rec.Kind() {
		case record.KindNull:
			return one(record.Int(0)), true, nil
		case record.KindString:
			return one(record.Int(int64(len([]rune(rec.Str()))))), true, nil
		case record.KindArray, record.KindObject:
			return one(record.Int(int64(rec.Len()))), true, nil
		case record.KindInt:
			if rec.Int() < 0 {
				return one(record.Int(-rec.Int())), true, nil
			}
			return one(rec), true, nil
		case record.KindFloat:
			v := rec.Float()
			if v < 0 {
				v = -v
			}
			return one(record.Float(v)), true, nil
		default:
			return one(record.Int(0)), true, nil
		}
	case "type":
		return one(record.String(jqTypeName(rec))), true, nil
	case "tonumber":
		switch rec.Kind() {
		case record.KindInt, record.KindFloat:
			return one(rec), true, nil
		case record.KindString:
			if iv, err := strconv.ParseInt(rec.Str(), 10, 64); err == nil {
				return one(record.Int(iv)), true, nil
			}
			if fv, err := strconv.ParseFloat(rec.Str(), 64); err == nil {
				return one(record.Float(fv)), true, nil
			}
			return empty(), true, nil
		default:
			return empty(), true, nil
		}
	case "tostring":
		if rec.Kind() == record.KindString {
			return one(rec), true, nil
		}
		return one(record.String(string(ndjson.Marshal(rec)))), true, nil
	case "is_null":
		return one(record.Bool(rec.Kind() == record.KindNull)), true, nil
	case "is_boolean":
		return one(record.Bool(rec.Kind() == record.KindBool)), true, nil
	case "is_number":
		return one(record.Bool(rec.IsNumber())), true, nil
	case "is_string":
		return one(record.Bool(rec.Kind() == record.KindString)), true, nil
	case "is_array":
		return one(record.Bool(rec.Kind() == record.KindArray)), true, nil
	case "is_object":
		return one(record.Bool(rec.Kind() == record.KindObject)), true, nil
	default:
		return EvalResult{}, false, nil
	}
}

// jqTypeName reports jq's type() names, which collapse integer/float
// into "number" unlike Kind.String() (used for diagnostics elsewhere).
func jqTypeName(r record.Record) string {
	switch r.Kind() {
	case record.KindInt, record.KindFloat:
		return "number"
	case record.KindBool:
		return "boolean"
	default:
		return r.Kind().String()
	}
}

func keyToString(r record.Record) string {
	if r.Kind() == record.KindString {
		return r.Str()
	}
	return r.String()
}
