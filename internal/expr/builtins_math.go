package expr

import (
	"math"

	"github.com/jn-toolkit/jn/internal/record"
)

// callMath dispatches the single-argument math built-ins; all require a
// numeric input and return empty otherwise.
func callMath(name string, rec record.Record) (EvalResult, bool) {
	if !rec.IsNumber() {
		switch name {
		case "floor", "ceil", "round", "abs", "exp", "ln", "log2", "log10", "sqrt", "sin", "cos", "tan":
			return empty(), true
		default:
			return EvalResult{}, false
		}
	}
	v := rec.Number()
	switch name {
	case "floor":
		return one(record.Float(math.Floor(v))), true
	case "ceil":
		return one(record.Float(math.Ceil(v))), true
	case "round":
		return one(record.Float(math.Round(v))), true
	case "abs":
		if rec.Kind() == record.KindInt {
			n := rec.Int()
			if n < 0 {
				n = -n
			}
			return one(record.Int(n)), true
		}
		return one(record.Float(math.Abs(v))), true
	case "exp":
		return one(record.Float(math.Exp(v))), true
	case "ln":
		return one(record.Float(math.Log(v))), true
	case "log2":
		return one(record.Float(math.Log2(v))), true
	case "log10":
		return one(record.Float(math.Log10(v))), true
	case "sqrt":
		return one(record.Float(math.Sqrt(v))), true
	case "sin":
		return one(record.Float(math.Sin(v))), true
	case "cos":
		return one(record.Float(math.Cos(v))), true
	case "tan":
		return one(record.Float(math.Tan(v))), true
	default:
		return EvalResult{}, false
	}
}
