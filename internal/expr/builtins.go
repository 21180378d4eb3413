package expr

import (
	"strings"
	"time"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/record"
)

// evalCall resolves a generic Call node against the category
// dispatchers in turn, then the handful of builtins that take no
// category (not, empty, error).
func evalCall(ctx *Context, n Call, rec record.Record) (EvalResult, error) {
	if r, handled, err := callArray(ctx, n.Name, n.Args, rec); handled {
		return r, err
	}
	if r, handled, err := callObject(ctx, n.Name, n.Args, rec); handled {
		return r, err
	}
	if r, handled := callMath(n.Name, rec); handled {
		return r, nil
	}
	args, err := evalArgsFirst(ctx, n.Args, rec)
	if err != nil {
		return EvalResult{}, err
	}
	if r, handled := callTime(n.Name, args, rec, time.Now); handled {
		return r, nil
	}
	if r, handled, err := callID(ctx, n.Name); handled {
		return r, err
	}

	switch n.Name {
	case "not":
		return one(record.Bool(!rec.Truthy())), nil
	case "empty":
		return empty(), nil
	case "error":
		msg := rec.String()
		if len(args) > 0 && args[0].Kind() == record.KindString {
			msg = args[0].Str()
		}
		return EvalResult{}, jnerr.NewExprParseError("", 0, msg)
	default:
		return EvalResult{}, jnerr.NewUnsupportedFeatureError(n.Name, "check the supported function list")
	}
}

// evalArgsFirst evaluates each arg against rec and takes its first
// result, used by callers that need plain scalar arguments rather than
// full sequence semantics.
func evalArgsFirst(ctx *Context, args []Node, rec record.Record) ([]record.Record, error) {
	out := make([]record.Record, 0, len(args))
	for _, a := range args {
		r, err := Eval(ctx, a, rec)
		if err != nil {
			return nil, err
		}
		if len(r.items) == 0 {
			out = append(out, record.Null)
			continue
		}
		out = append(out, r.items[0])
	}
	return out, nil
}

func jnerrUnknownStringFn(name string) error {
	return jnerr.NewUnsupportedFeatureError(name, "check the supported string-function list")
}

// regexMetaChars are the characters that would make a pattern something
// richer than a literal substring once the optional ^/$ anchors are
// stripped.
const regexMetaChars = `.*+?()[]{}|\`

// literalTest implements test(pattern): an optional
// leading "^" and/or trailing "$" anchor around an otherwise literal
// substring. Any other regex metacharacter is rejected by name rather
// than silently compiled as a full regex.
func literalTest(pattern, s string) (bool, error) {
	anchoredStart := strings.HasPrefix(pattern, "^")
	anchoredEnd := strings.HasSuffix(pattern, "$")
	lit := pattern
	if anchoredStart {
		lit = lit[1:]
	}
	if anchoredEnd {
		lit = strings.TrimSuffix(lit, "$")
	}
	if strings.ContainsAny(lit, regexMetaChars) {
		return false, jnerr.NewUnsupportedFeatureError(
			"regex pattern in test() beyond literal substring and ^/$ anchors",
			"rewrite the pattern as a literal substring, optionally anchored with ^ and/or $",
		)
	}
	switch {
	case anchoredStart && anchoredEnd:
		return s == lit, nil
	case anchoredStart:
		return strings.HasPrefix(s, lit), nil
	case anchoredEnd:
		return strings.HasSuffix(s, lit), nil
	default:
		return strings.Contains(s, lit), nil
	}
}
