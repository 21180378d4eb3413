package expr

import (
	"strings"

	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/record"
)

// evalStringFn dispatches the string-category built-ins, all of which
// require a string input except split/join which may also take an
// array.
func evalStringFn(ctx *Context, n StringFn, rec record.Record) (EvalResult, error) {
	args := make([]record.Record, 0, len(n.Args))
	for _, a := range n.Args {
		r, err := Eval(ctx, a, rec)
		if err != nil {
			return EvalResult{}, err
		}
		if len(r.items) == 0 {
			return empty(), nil
		}
		args = append(args, r.items[0])
	}

	switch n.Name {
	case "split":
		if rec.Kind() != record.KindString || len(args) != 1 {
			return empty(), nil
		}
		sep := args[0].Str()
		var parts []string
		if sep == "" {
			parts = strings.Split(rec.Str(), "")
		} else {
			parts = strings.Split(rec.Str(), sep)
		}
		out := make([]record.Record, len(parts))
		for i, p := range parts {
			out[i] = record.String(p)
		}
		return one(record.Array(out)), nil
	case "join":
		if rec.Kind() != record.KindArray || len(args) != 1 {
			return empty(), nil
		}
		sep := args[0].Str()
		parts := make([]string, 0, len(rec.Array()))
		for _, v := range rec.Array() {
			switch {
			case v.Kind() == record.KindString:
				parts = append(parts, v.Str())
			case v.Kind() == record.KindNull:
				parts = append(parts, "")
			default:
				parts = append(parts, string(ndjson.Marshal(v)))
			}
		}
		return one(record.String(strings.Join(parts, sep))), nil
	case "startswith":
		if rec.Kind() != record.KindString || len(args) != 1 {
			return one(record.Bool(false)), nil
		}
		return one(record.Bool(strings.HasPrefix(rec.Str(), args[0].Str()))), nil
	case "endswith":
		if rec.Kind() != record.KindString || len(args) != 1 {
			return one(record.Bool(false)), nil
		}
		return one(record.Bool(strings.HasSuffix(rec.Str(), args[0].Str()))), nil
	case "contains":
		if len(args) != 1 {
			return one(record.Bool(false)), nil
		}
		switch rec.Kind() {
		case record.KindString:
			return one(record.Bool(strings.Contains(rec.Str(), args[0].Str()))), nil
		case record.KindArray:
			return one(record.Bool(arrayContains(rec.Array(), args[0]))), nil
		default:
			return one(record.Bool(false)), nil
		}
	case "ltrimstr":
		if rec.Kind() != record.KindString || len(args) != 1 {
			return one(rec), nil
		}
		return one(record.String(strings.TrimPrefix(rec.Str(), args[0].Str()))), nil
	case "rtrimstr":
		if rec.Kind() != record.KindString || len(args) != 1 {
			return one(rec), nil
		}
		return one(record.String(strings.TrimSuffix(rec.Str(), args[0].Str()))), nil
	case "ascii_downcase", "downcase":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		return one(record.String(strings.ToLower(rec.Str()))), nil
	case "ascii_upcase", "upcase":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		return one(record.String(strings.ToUpper(rec.Str()))), nil
	case "trim":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		return one(record.String(strings.TrimSpace(rec.Str()))), nil
	case "ltrim":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		return one(record.String(strings.TrimLeft(rec.Str(), " \t\r\n"))), nil
	case "rtrim":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		return one(record.String(strings.TrimRight(rec.Str(), " \t\r\n"))), nil
	case "slugify":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		return one(record.String(slugify(rec.Str()))), nil
	case "words":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		fields := strings.Fields(rec.Str())
		out := make([]record.Record, len(fields))
		for i, f := range fields {
			out[i] = record.String(f)
		}
		return one(record.Array(out)), nil
	case "lines":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		lines := strings.Split(rec.Str(), "\n")
		out := make([]record.Record, len(lines))
		for i, l := range lines {
			out[i] = record.String(l)
		}
		return one(record.Array(out)), nil
	case "chars":
		if rec.Kind() != record.KindString {
			return empty(), nil
		}
		runes := []rune(rec.Str())
		out := make([]record.Record, len(runes))
		for i, r := range runes {
			out[i] = record.String(string(r))
		}
		return one(record.Array(out)), nil
	case "test":
		if rec.Kind() != record.KindString || len(args) != 1 || args[0].Kind() != record.KindString {
			return one(record.Bool(false)), nil
		}
		ok, err := literalTest(args[0].Str(), rec.Str())
		if err != nil {
			return EvalResult{}, err
		}
		return one(record.Bool(ok)), nil
	default:
		return EvalResult{}, jnerrUnknownStringFn(n.Name)
	}
}

// slugify lowercases, replaces runs of non-alphanumerics with a single
// hyphen, and trims leading/trailing hyphens.
func slugify(s string) string {
	var sb strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				sb.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
