package expr

import (
	"sort"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/record"
)

// evalMap expects an array input and returns an array of all of Body's
// results for each element, in order ("map(E) expects an array input
// and returns an array").
func evalMap(ctx *Context, n MapCall, rec record.Record) (EvalResult, error) {
	if rec.Kind() != record.KindArray {
		return empty(), nil
	}
	out := make([]record.Record, 0, len(rec.Array()))
	for _, item := range rec.Array() {
		r, err := Eval(ctx, n.Body, item)
		if err != nil {
			return EvalResult{}, err
		}
		out = append(out, r.items...)
	}
	return one(record.Array(out)), nil
}

// evalByFunc implements sort_by/group_by/unique_by/min_by/max_by(.k),
// all keyed by Key evaluated per element. group_by/unique_by use
// type-tagged keys so "1" (string) and 1 (int) never collide.
func evalByFunc(ctx *Context, n ByFunc, rec record.Record) (EvalResult, error) {
	if rec.Kind() != record.KindArray {
		return empty(), nil
	}
	items := rec.Array()
	keyed := make([]record.Record, len(items))
	for i, item := range items {
		kr, err := Eval(ctx, n.Key, item)
		if err != nil {
			return EvalResult{}, err
		}
		if len(kr.items) == 0 {
			keyed[i] = record.Null
		} else {
			keyed[i] = kr.items[0]
		}
	}

	switch n.Name {
	case "sort_by":
		idx := sortedIndices(keyed)
		out := make([]record.Record, len(items))
		for i, j := range idx {
			out[i] = items[j]
		}
		return one(record.Array(out)), nil
	case "group_by":
		idx := sortedIndices(keyed)
		var groups []record.Record
		var cur []record.Record
		var curKey string
		started := false
		for _, j := range idx {
			k := record.Key(keyed[j])
			if !started || k != curKey {
				if started {
					groups = append(groups, record.Array(cur))
				}
				cur = nil
				curKey = k
				started = true
			}
			cur = append(cur, items[j])
		}
		if started {
			groups = append(groups, record.Array(cur))
		}
		return one(record.Array(groups)), nil
	case "unique_by":
		idx := sortedIndices(keyed)
		var out []record.Record
		seen := map[string]bool{}
		for _, j := range idx {
			k := record.Key(keyed[j])
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, items[j])
		}
		return one(record.Array(out)), nil
	case "min_by", "max_by":
		if len(items) == 0 {
			return one(record.Null), nil
		}
		best := 0
		for i := 1; i < len(items); i++ {
			c := record.Compare(keyed[i], keyed[best])
			if (n.Name == "min_by" && c < 0) || (n.Name == "max_by" && c > 0) {
				best = i
			}
		}
		return one(items[best]), nil
	default:
		return EvalResult{}, jnerr.NewExprParseError("", 0, "unknown by-function "+n.Name)
	}
}

func sortedIndices(keys []record.Record) []int {
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return record.Compare(keys[idx[a]], keys[idx[b]]) < 0
	})
	return idx
}

// callArray dispatches the array-operation built-ins (no dedicated AST
// node; invoked via Call from evalCall).
func callArray(ctx *Context, name string, args []Node, rec record.Record) (EvalResult, bool, error) {
	switch name {
	case "first":
		if rec.Kind() != record.KindArray || len(rec.Array()) == 0 {
			return empty(), true, nil
		}
		return one(rec.Array()[0]), true, nil
	case "last":
		if rec.Kind() != record.KindArray || len(rec.Array()) == 0 {
			return empty(), true, nil
		}
		a := rec.Array()
		return one(a[len(a)-1]), true, nil
	case "reverse":
		if rec.Kind() != record.KindArray {
			return empty(), true, nil
		}
		a := rec.Array()
		out := make([]record.Record, len(a))
		for i, v := range a {
			out[len(a)-1-i] = v
		}
		return one(record.Array(out)), true, nil
	case "sort":
		if rec.Kind() != record.KindArray {
			return empty(), true, nil
		}
		out := append([]record.Record(nil), rec.Array()...)
		sort.SliceStable(out, func(i, j int) bool { return record.Compare(out[i], out[j]) < 0 })
		return one(record.Array(out)), true, nil
	case "unique":
		if rec.Kind() != record.KindArray {
			return empty(), true, nil
		}
		out := append([]record.Record(nil), rec.Array()...)
		sort.SliceStable(out, func(i, j int) bool { return record.Compare(out[i], out[j]) < 0 })
		var deduped []record.Record
		for i, v := range out {
			if i == 0 || record.Compare(v, out[i-1]) != 0 {
				deduped = append(deduped, v)
			}
		}
		return one(record.Array(deduped)), true, nil
	case "flatten":
		if rec.Kind() != record.KindArray {
			return empty(), true, nil
		}
		return one(record.Array(flattenOne(rec.Array()))), true, nil
	case "add":
		if rec.Kind() != record.KindArray {
			return empty(), true, nil
		}
		a := rec.Array()
		if len(a) == 0 {
			return one(record.Null), true, nil
		}
		acc := a[0]
		for _, v := range a[1:] {
			sum, ok := arithAdd(acc, v)
			if !ok {
				return empty(), true, nil
			}
			acc = sum
		}
		return one(acc), true, nil
	case "min", "max":
		if rec.Kind() != record.KindArray || len(rec.Array()) == 0 {
			return one(record.Null), true, nil
		}
		a := rec.Array()
		best := a[0]
		for _, v := range a[1:] {
			c := record.Compare(v, best)
			if (name == "min" && c < 0) || (name == "max" && c > 0) {
				best = v
			}
		}
		return one(best), true, nil
	default:
		return EvalResult{}, false, nil
	}
}

func flattenOne(items []record.Record) []record.Record {
	var out []record.Record
	for _, v := range items {
		if v.Kind() == record.KindArray {
			out = append(out, v.Array()...)
		} else {
			out = append(out, v)
		}
	}
	return out
}
