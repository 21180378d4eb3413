// Package address implements the address parser: a pure function turning
// a source/destination string into the immutable Address value the
// planner consumes.
package address

import "strings"

// Kind identifies which variant of address was parsed.
type Kind string

const (
	KindStdio      Kind = "stdio"
	KindFile       Kind = "file"
	KindGlob       Kind = "glob"
	KindURL        Kind = "url"
	KindProfileRef Kind = "profile-ref"
)

// ProfileRef names a (namespace, name) profile reference.
type ProfileRef struct {
	Namespace string
	Name      string
}

// Address is the immutable, parsed form of a source/destination string.
type Address struct {
	Raw             string
	Kind            Kind
	Protocol        string
	Base            string
	FormatOverride  string
	Parameters      []KV
	Compressions    []string // outer -> inner
	Profile         ProfileRef
}

// KV is an ordered key/value pair, preserving query-string order.
type KV struct {
	Key   string
	Value string
}

// Param looks up the first occurrence of key.
func (a Address) Param(key string) (string, bool) {
	for _, kv := range a.Parameters {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// String re-serializes the address so that Parse(a.String()) produces an
// Address equal to a.
func (a Address) String() string {
	var sb strings.Builder

	switch a.Kind {
	case KindProfileRef:
		sb.WriteByte('@')
		sb.WriteString(a.Profile.Namespace)
		sb.WriteByte('/')
		sb.WriteString(a.Profile.Name)
	case KindStdio:
		sb.WriteByte('-')
	default:
		if a.Protocol != "" {
			sb.WriteString(a.Protocol)
			sb.WriteString("://")
		}
		sb.WriteString(a.Base)
	}

	if a.FormatOverride != "" {
		sb.WriteByte('~')
		sb.WriteString(a.FormatOverride)
	}

	if len(a.Parameters) > 0 {
		sb.WriteByte('?')
		for i, kv := range a.Parameters {
			if i > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(encodeParam(kv.Key))
			sb.WriteByte('=')
			sb.WriteString(encodeParam(kv.Value))
		}
	}

	return sb.String()
}
