package profile

import (
	"strings"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/record"
)

// Lookup resolves an environment variable by name. Production code uses
// os.Getenv; tests inject a map so runs are hermetic.
type Lookup func(name string) (string, bool)

// Interpolate substitutes ${VAR} (required) and ${VAR:-default} (optional)
// placeholders on every string leaf, recursively, running passes until
// fixed point so a default value that itself references another variable
// still resolves. A literal "$" is written "$$".
//
// After Interpolate returns successfully no string leaf contains an
// unescaped "${...}" token.
func Interpolate(r record.Record, lookup Lookup) (record.Record, error) {
	prev := r
	for i := 0; i < 64; i++ { // bounded fixed-point loop guards against pathological cycles
		next, changed, err := interpolateOnce(prev, lookup)
		if err != nil {
			return record.Null, err
		}
		if !changed {
			return unescapeDollars(next), nil
		}
		prev = next
	}
	return record.Null, jnerr.NewProfileError("", "environment interpolation did not converge", nil)
}

// unescapeDollars rewrites "$$" to "$" on every string leaf. Escapes stay
// inert during the substitution passes so "$${FOO}" cannot surface a
// live "${FOO}" token for a later pass to expand.
func unescapeDollars(r record.Record) record.Record {
	switch r.Kind() {
	case record.KindString:
		return record.String(strings.ReplaceAll(r.Str(), "$$", "$"))
	case record.KindArray:
		items := r.Array()
		out := make([]record.Record, len(items))
		for i, v := range items {
			out[i] = unescapeDollars(v)
		}
		return record.Array(out)
	case record.KindObject:
		m := record.NewOrderedMap(r.Object().Len())
		r.Object().Each(func(k string, v record.Record) bool {
			m.Set(k, unescapeDollars(v))
			return true
		})
		return record.Object(m)
	default:
		return r
	}
}

func interpolateOnce(r record.Record, lookup Lookup) (record.Record, bool, error) {
	switch r.Kind() {
	case record.KindString:
		out, changed, err := substitute(r.Str(), lookup)
		if err != nil {
			return record.Null, false, err
		}
		return record.String(out), changed, nil
	case record.KindArray:
		items := r.Array()
		out := make([]record.Record, len(items))
		anyChanged := false
		for i, v := range items {
			nv, changed, err := interpolateOnce(v, lookup)
			if err != nil {
				return record.Null, false, err
			}
			out[i] = nv
			anyChanged = anyChanged || changed
		}
		return record.Array(out), anyChanged, nil
	case record.KindObject:
		m := record.NewOrderedMap(r.Object().Len())
		anyChanged := false
		var outerErr error
		r.Object().Each(func(k string, v record.Record) bool {
			nv, changed, err := interpolateOnce(v, lookup)
			if err != nil {
				outerErr = err
				return false
			}
			m.Set(k, nv)
			anyChanged = anyChanged || changed
			return true
		})
		if outerErr != nil {
			return record.Null, false, outerErr
		}
		return record.Object(m), anyChanged, nil
	default:
		return r, false, nil
	}
}

// substitute scans s for ${VAR} / ${VAR:-default} / $$ tokens and returns
// the substituted string plus whether any ${...} substitution occurred;
// "$$" escapes are copied through unchanged and do not count.
func substitute(s string, lookup Lookup) (string, bool, error) {
	var sb strings.Builder
	changed := false
	i := 0
	for i < len(s) {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '$' {
			sb.WriteString("$$") // unescaped only after the final pass
			i += 2
			continue
		}
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				sb.WriteByte(s[i])
				i++
				continue
			}
			token := s[i+2 : i+2+end]
			name, def, hasDefault := splitDefault(token)
			val, ok := lookup(name)
			if !ok {
				if hasDefault {
					val = def
				} else {
					return "", false, jnerr.NewProfileError(name, "missing required environment variable", nil)
				}
			}
			sb.WriteString(val)
			i += 2 + end + 1
			changed = true
			continue
		}
		sb.WriteByte(s[i])
		i++
	}
	return sb.String(), changed, nil
}

func splitDefault(token string) (name, def string, hasDefault bool) {
	if idx := strings.Index(token, ":-"); idx >= 0 {
		return token[:idx], token[idx+2:], true
	}
	return token, "", false
}
