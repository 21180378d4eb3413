package expr

import "github.com/jn-toolkit/jn/internal/record"

// evalArith evaluates a binary arithmetic/string/collection operator
// across the full cartesian product of its operands' results (jq
// broadcast semantics); mismatched-type combinations are silently
// dropped ("value-type mismatches return empty, never
// raise").
func evalArith(ctx *Context, n Arith, rec record.Record) (EvalResult, error) {
	left, err := Eval(ctx, n.Left, rec)
	if err != nil {
		return EvalResult{}, err
	}
	right, err := Eval(ctx, n.Right, rec)
	if err != nil {
		return EvalResult{}, err
	}
	var out []record.Record
	for _, l := range left.items {
		for _, r := range right.items {
			if v, ok := arithApply(n.Op, l, r); ok {
				out = append(out, v)
			}
		}
	}
	return multi(out), nil
}

func arithApply(op byte, l, r record.Record) (record.Record, bool) {
	switch op {
	case '+':
		return arithAdd(l, r)
	case '-':
		return arithSub(l, r)
	case '*':
		if l.IsNumber() && r.IsNumber() {
			return numResult(l, r, l.Number()*r.Number()), true
		}
		return record.Null, false
	case '/':
		if l.IsNumber() && r.IsNumber() {
			if r.Number() == 0 {
				return record.Null, false
			}
			return record.Float(l.Number() / r.Number()), true
		}
		return record.Null, false
	case '%':
		if l.Kind() == record.KindInt && r.Kind() == record.KindInt {
			if r.Int() == 0 {
				return record.Null, false
			}
			return record.Int(l.Int() % r.Int()), true
		}
		return record.Null, false
	default:
		return record.Null, false
	}
}

func arithAdd(l, r record.Record) (record.Record, bool) {
	switch {
	case l.IsNumber() && r.IsNumber():
		return numResult(l, r, l.Number()+r.Number()), true
	case l.Kind() == record.KindString && r.Kind() == record.KindString:
		return record.String(l.Str() + r.Str()), true
	case l.Kind() == record.KindArray && r.Kind() == record.KindArray:
		out := append(append([]record.Record(nil), l.Array()...), r.Array()...)
		return record.Array(out), true
	case l.Kind() == record.KindObject && r.Kind() == record.KindObject:
		m := record.NewOrderedMap(l.Object().Len() + r.Object().Len())
		l.Object().Each(func(k string, v record.Record) bool { m.Set(k, v); return true })
		r.Object().Each(func(k string, v record.Record) bool { m.Set(k, v); return true })
		return record.Object(m), true
	default:
		return record.Null, false
	}
}

func arithSub(l, r record.Record) (record.Record, bool) {
	switch {
	case l.IsNumber() && r.IsNumber():
		return numResult(l, r, l.Number()-r.Number()), true
	case l.Kind() == record.KindArray && r.Kind() == record.KindArray:
		var out []record.Record
		for _, v := range l.Array() {
			if !arrayContains(r.Array(), v) {
				out = append(out, v)
			}
		}
		return record.Array(out), true
	default:
		return record.Null, false
	}
}

// numResult preserves int+int=>int the way the lexer/decoder does, and
// widens to float whenever either operand is a float.
func numResult(l, r record.Record, v float64) record.Record {
	if l.Kind() == record.KindInt && r.Kind() == record.KindInt {
		return record.Int(int64(v))
	}
	return record.Float(v)
}

func arrayContains(arr []record.Record, v record.Record) bool {
	for _, e := range arr {
		if record.Equal(e, v) {
			return true
		}
	}
	return false
}
