package expr

import (
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/record"
)

// EvalResult is a lazy-looking (but, for this subset, eagerly materialized)
// sequence of records: zero or more outputs per input,
// Empty results are first-class and propagate through pipe composition.
type EvalResult struct {
	items []record.Record
}

// ForEach visits every result in order.
func (r EvalResult) ForEach(fn func(record.Record) error) error {
	for _, v := range r.items {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Items exposes the underlying slice for callers (builtins) that need
// random access; callers must not mutate it.
func (r EvalResult) Items() []record.Record { return r.items }

func one(r record.Record) EvalResult      { return EvalResult{items: []record.Record{r}} }
func empty() EvalResult                   { return EvalResult{} }
func multi(items []record.Record) EvalResult { return EvalResult{items: items} }

// Context carries per-evaluation state: strict-mode path access and the
// process-local ID-generator state.
type Context struct {
	Strict bool
	ids    *idState
}

// NewContext constructs an evaluation context with fresh generator state.
func NewContext() *Context {
	return &Context{ids: newIDState()}
}

// Eval evaluates ast against rec under ctx.
func Eval(ctx *Context, ast Node, rec record.Record) (EvalResult, error) {
	switch n := ast.(type) {
	case Identity:
		return one(rec), nil
	case Path:
		return evalPath(ctx, n.Steps, rec)
	case Pipe:
		return evalPipe(ctx, n, rec)
	case Comma:
		left, err := Eval(ctx, n.Left, rec)
		if err != nil {
			return EvalResult{}, err
		}
		right, err := Eval(ctx, n.Right, rec)
		if err != nil {
			return EvalResult{}, err
		}
		out := make([]record.Record, 0, len(left.items)+len(right.items))
		out = append(out, left.items...)
		out = append(out, right.items...)
		return multi(out), nil
	case Alt:
		return evalAlt(ctx, n, rec)
	case If:
		holds, err := CondHolds(ctx, n.Cond, rec)
		if err != nil {
			return EvalResult{}, err
		}
		if holds {
			return Eval(ctx, n.Then, rec)
		}
		return Eval(ctx, n.Else, rec)
	case ObjectLit:
		return evalObjectLit(ctx, n, rec)
	case ArrayLit:
		return evalArrayLit(ctx, n, rec)
	case Arith:
		return evalArith(ctx, n, rec)
	case Neg:
		return evalNeg(ctx, n, rec)
	case Literal:
		return one(n.Value), nil
	case Call:
		return evalCall(ctx, n, rec)
	case StringFn:
		return evalStringFn(ctx, n, rec)
	case MapCall:
		return evalMap(ctx, n, rec)
	case ByFunc:
		return evalByFunc(ctx, n, rec)
	case Del:
		return evalDel(ctx, n, rec)
	case Select:
		holds, err := CondHolds(ctx, n.Cond, rec)
		if err != nil {
			return EvalResult{}, err
		}
		if holds {
			return one(rec), nil
		}
		return empty(), nil
	default:
		return EvalResult{}, jnerr.NewExprParseError("", 0, "unhandled AST node")
	}
}

func evalPipe(ctx *Context, n Pipe, rec record.Record) (EvalResult, error) {
	left, err := Eval(ctx, n.Left, rec)
	if err != nil {
		return EvalResult{}, err
	}
	var out []record.Record
	for _, v := range left.items {
		right, err := Eval(ctx, n.Right, v)
		if err != nil {
			return EvalResult{}, err
		}
		out = append(out, right.items...)
	}
	return multi(out), nil
}

func evalAlt(ctx *Context, n Alt, rec record.Record) (EvalResult, error) {
	left, err := Eval(ctx, n.Left, rec)
	if err != nil {
		return EvalResult{}, err
	}
	var kept []record.Record
	for _, v := range left.items {
		if v.Truthy() {
			kept = append(kept, v)
		}
	}
	if len(kept) > 0 {
		return multi(kept), nil
	}
	return Eval(ctx, n.Right, rec)
}

// evalPath applies Steps in sequence, threading through every
// intermediate result (a single step may fan a value into many, e.g.
// iteration). Non-object/array targets yield empty rather than erroring
// unless a non-optional step is evaluated under strict mode.
func evalPath(ctx *Context, steps []Step, rec record.Record) (EvalResult, error) {
	cur := []record.Record{rec}
	for _, step := range steps {
		var next []record.Record
		for _, v := range cur {
			vals, err := applyStep(ctx, step, v)
			if err != nil {
				return EvalResult{}, err
			}
			next = append(next, vals...)
		}
		cur = next
	}
	return multi(cur), nil
}

func applyStep(ctx *Context, step Step, v record.Record) ([]record.Record, error) {
	switch s := step.(type) {
	case Field:
		if v.Kind() != record.KindObject {
			if v.Kind() == record.KindNull {
				return nil, nil
			}
			if !s.Optional && ctx.Strict {
				return nil, jnerr.NewExprParseError("", 0, "cannot index "+v.Kind().String()+" with \""+s.Name+"\"")
			}
			return nil, nil
		}
		if fv, ok := v.Field(s.Name); ok {
			return []record.Record{fv}, nil
		}
		return nil, nil
	case IndexStep:
		if fv, ok := v.Index(s.Idx); ok {
			return []record.Record{fv}, nil
		}
		if !s.Optional && ctx.Strict && v.Kind() != record.KindArray {
			return nil, jnerr.NewExprParseError("", 0, "cannot index "+v.Kind().String()+" with number")
		}
		return nil, nil
	case SliceStep:
		if fv, ok := v.Slice(s.Lo, s.Hi); ok {
			return []record.Record{fv}, nil
		}
		return nil, nil
	case Iterate:
		switch v.Kind() {
		case record.KindArray:
			return append([]record.Record(nil), v.Array()...), nil
		case record.KindObject:
			var out []record.Record
			v.Object().Each(func(_ string, val record.Record) bool {
				out = append(out, val)
				return true
			})
			return out, nil
		default:
			if !s.Optional && ctx.Strict {
				return nil, jnerr.NewExprParseError("", 0, "cannot iterate over "+v.Kind().String())
			}
			return nil, nil
		}
	default:
		return nil, nil
	}
}

func evalObjectLit(ctx *Context, n ObjectLit, rec record.Record) (EvalResult, error) {
	results := []*record.OrderedMap{record.NewOrderedMap(len(n.Entries))}
	for _, e := range n.Entries {
		keys := []string{e.KeyLit}
		if e.KeyExpr != nil {
			kr, err := Eval(ctx, e.KeyExpr, rec)
			if err != nil {
				return EvalResult{}, err
			}
			keys = keys[:0]
			for _, k := range kr.items {
				keys = append(keys, k.Str())
			}
		}
		vr, err := Eval(ctx, e.Value, rec)
		if err != nil {
			return EvalResult{}, err
		}
		values := vr.items
		if len(values) == 0 {
			values = []record.Record{record.Null}
		}

		var next []*record.OrderedMap
		for _, base := range results {
			for _, k := range keys {
				for _, val := range values {
					m := base.Clone()
					m.Set(k, val)
					next = append(next, m)
				}
			}
		}
		results = next
	}
	out := make([]record.Record, len(results))
	for i, m := range results {
		out[i] = record.Object(m)
	}
	return multi(out), nil
}

func evalArrayLit(ctx *Context, n ArrayLit, rec record.Record) (EvalResult, error) {
	if n.Body == nil {
		return one(record.Array(nil)), nil
	}
	r, err := Eval(ctx, n.Body, rec)
	if err != nil {
		return EvalResult{}, err
	}
	return one(record.Array(append([]record.Record(nil), r.items...))), nil
}

func evalNeg(ctx *Context, n Neg, rec record.Record) (EvalResult, error) {
	r, err := Eval(ctx, n.X, rec)
	if err != nil {
		return EvalResult{}, err
	}
	out := make([]record.Record, 0, len(r.items))
	for _, v := range r.items {
		if !v.IsNumber() {
			continue
		}
		if v.Kind() == record.KindInt {
			out = append(out, record.Int(-v.Int()))
		} else {
			out = append(out, record.Float(-v.Float()))
		}
	}
	return multi(out), nil
}

func evalDel(ctx *Context, n Del, rec record.Record) (EvalResult, error) {
	pathNode, ok := n.Target.(Path)
	if !ok {
		return EvalResult{}, jnerr.NewExprParseError("", 0, "del() requires a path expression")
	}
	if len(pathNode.Steps) == 0 {
		return EvalResult{}, nil
	}
	out, err := deletePath(rec, pathNode.Steps)
	if err != nil {
		return EvalResult{}, err
	}
	return one(out), nil
}

// deletePath removes the final step's target, preserving key order for
// surviving keys.
func deletePath(rec record.Record, steps []Step) (record.Record, error) {
	if len(steps) == 1 {
		switch s := steps[0].(type) {
		case Field:
			if rec.Kind() != record.KindObject {
				return rec, nil
			}
			m := rec.Object().Clone()
			m.Delete(s.Name)
			return record.Object(m), nil
		case IndexStep:
			if rec.Kind() != record.KindArray {
				return rec, nil
			}
			arr := rec.Array()
			n := int64(len(arr))
			idx := s.Idx
			if idx < 0 {
				idx = n + idx
			}
			if idx < 0 || idx >= n {
				return rec, nil
			}
			out := make([]record.Record, 0, len(arr)-1)
			out = append(out, arr[:idx]...)
			out = append(out, arr[idx+1:]...)
			return record.Array(out), nil
		default:
			return rec, nil
		}
	}

	head, rest := steps[0], steps[1:]
	switch s := head.(type) {
	case Field:
		if rec.Kind() != record.KindObject {
			return rec, nil
		}
		cur, ok := rec.Field(s.Name)
		if !ok {
			return rec, nil
		}
		updated, err := deletePath(cur, rest)
		if err != nil {
			return rec, err
		}
		m := rec.Object().Clone()
		m.Set(s.Name, updated)
		return record.Object(m), nil
	case IndexStep:
		if rec.Kind() != record.KindArray {
			return rec, nil
		}
		cur, ok := rec.Index(s.Idx)
		if !ok {
			return rec, nil
		}
		updated, err := deletePath(cur, rest)
		if err != nil {
			return rec, err
		}
		arr := append([]record.Record(nil), rec.Array()...)
		n := int64(len(arr))
		idx := s.Idx
		if idx < 0 {
			idx = n + idx
		}
		arr[idx] = updated
		return record.Array(arr), nil
	default:
		return rec, nil
	}
}

// CondHolds evaluates a Cond to a boolean: a sequence
// of candidate values is true iff at least one satisfies.
func CondHolds(ctx *Context, c Cond, rec record.Record) (bool, error) {
	switch n := c.(type) {
	case CondSimple:
		r, err := Eval(ctx, n.Node, rec)
		if err != nil {
			return false, err
		}
		for _, v := range r.items {
			if v.Truthy() {
				return true, nil
			}
		}
		return false, nil
	case CondCompare:
		lr, err := Eval(ctx, n.Left, rec)
		if err != nil {
			return false, err
		}
		rr, err := Eval(ctx, n.Right, rec)
		if err != nil {
			return false, err
		}
		for _, l := range lr.items {
			for _, r := range rr.items {
				if compareHolds(n.Op, l, r) {
					return true, nil
				}
			}
		}
		return false, nil
	case CondAnd:
		l, err := CondHolds(ctx, n.Left, rec)
		if err != nil || !l {
			return false, err
		}
		return CondHolds(ctx, n.Right, rec)
	case CondOr:
		l, err := CondHolds(ctx, n.Left, rec)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return CondHolds(ctx, n.Right, rec)
	case CondNot:
		x, err := CondHolds(ctx, n.X, rec)
		if err != nil {
			return false, err
		}
		return !x, nil
	default:
		return false, nil
	}
}

func compareHolds(op string, l, r record.Record) bool {
	c := record.Compare(l, r)
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	default:
		return false
	}
}
