package joinmerge

import (
	"strconv"
	"strings"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/record"
)

// AggSpec is one --agg clause: "as: func" or "as: func(field)", e.g.
// "cnt: count" or "total: sum(amount)".
type AggSpec struct {
	As    string
	Func  string
	Field string
}

// ParseAggSpec parses one --agg argument.
func ParseAggSpec(s string) (AggSpec, error) {
	as, rest, ok := strings.Cut(s, ":")
	if !ok {
		return AggSpec{}, jnerr.NewJoinError("agg spec missing ':' in "+strconv.Quote(s), nil)
	}
	as = strings.TrimSpace(as)
	rest = strings.TrimSpace(rest)

	fn := rest
	field := ""
	if i := strings.IndexByte(rest, '('); i >= 0 && strings.HasSuffix(rest, ")") {
		fn = strings.TrimSpace(rest[:i])
		field = strings.TrimSpace(rest[i+1 : len(rest)-1])
	}

	switch fn {
	case "count":
	case "sum", "avg", "min", "max":
		if field == "" {
			return AggSpec{}, jnerr.NewJoinError("agg function "+fn+" requires a field argument", nil)
		}
	default:
		return AggSpec{}, jnerr.NewJoinError("unknown aggregation function "+fn, nil)
	}
	return AggSpec{As: as, Func: fn, Field: field}, nil
}

// Apply computes one aggregation over a right-side bucket.
func (a AggSpec) Apply(bucket []record.Record) record.Record {
	switch a.Func {
	case "count":
		return record.Int(int64(len(bucket)))
	case "sum", "avg":
		var sum float64
		n := 0
		allInt := true
		for _, v := range bucket {
			fv, ok := numericField(v, a.Field)
			if !ok {
				continue
			}
			if fv.Kind() != record.KindInt {
				allInt = false
			}
			sum += fv.Number()
			n++
		}
		if a.Func == "sum" {
			if allInt {
				return record.Int(int64(sum))
			}
			return record.Float(sum)
		}
		if n == 0 {
			return record.Null
		}
		return record.Float(sum / float64(n))
	case "min", "max":
		var best record.Record
		found := false
		for _, v := range bucket {
			fv, ok := numericField(v, a.Field)
			if !ok {
				continue
			}
			if !found {
				best, found = fv, true
				continue
			}
			c := record.Compare(fv, best)
			if (a.Func == "min" && c < 0) || (a.Func == "max" && c > 0) {
				best = fv
			}
		}
		if !found {
			return record.Null
		}
		return best
	default:
		return record.Null
	}
}

func numericField(rec record.Record, field string) (record.Record, bool) {
	if rec.Kind() != record.KindObject {
		return record.Null, false
	}
	v, ok := rec.Field(field)
	if !ok || !v.IsNumber() {
		return record.Null, false
	}
	return v, true
}
