package address

import (
	"net/url"
	"strings"

	"github.com/jn-toolkit/jn/internal/jnerr"
)

var compressionExts = []string{"gz", "bz2", "xz"}

// Parse decomposes raw into an Address per the grammar:
//	address  := [scheme "://"] base ["~" format] ["?" query]
//	         |  "@" namespace "/" name ["?" query]
//	         |  "-"
//	base     := (path segment) ("." ext)*
func Parse(raw string) (Address, error) {
	if raw == "" || raw == "-" {
		return Address{Raw: raw, Kind: KindStdio}, nil
	}

	if strings.HasPrefix(raw, "@") {
		return parseProfileRef(raw)
	}

	rest := raw
	var query string
	var protocol string

	if idx := strings.Index(rest, "://"); idx >= 0 {
		protocol = rest[:idx]
		rest = rest[idx+3:]
	}

	// Split off the query first so we scan the fragment before '?' for the
	// LAST '~' that precedes it.
	if qIdx := strings.Index(rest, "?"); qIdx >= 0 {
		query = rest[qIdx+1:]
		rest = rest[:qIdx]
	}

	base := rest
	formatOverride := ""
	if tIdx := strings.LastIndex(rest, "~"); tIdx >= 0 {
		formatOverride = rest[tIdx+1:]
		base = rest[:tIdx]
		if formatOverride == "" {
			return Address{}, jnerr.NewAddressError(raw, "format override after '~' must not be empty", nil)
		}
	}

	params, err := parseQuery(query)
	if err != nil {
		return Address{}, jnerr.NewAddressError(raw, "invalid query string", err)
	}

	compressions := peelCompressions(base)

	kind := KindFile
	if protocol != "" {
		kind = KindURL
	}
	if isGlob(base) {
		kind = KindGlob
	}
	if base == "" && protocol == "" {
		kind = KindStdio
	}

	return Address{
		Raw:            raw,
		Kind:           kind,
		Protocol:       protocol,
		Base:           base,
		FormatOverride: formatOverride,
		Parameters:     params,
		Compressions:   compressions,
	}, nil
}

func parseProfileRef(raw string) (Address, error) {
	rest := raw[1:]
	query := ""
	if qIdx := strings.Index(rest, "?"); qIdx >= 0 {
		query = rest[qIdx+1:]
		rest = rest[:qIdx]
	}

	slashIdx := strings.Index(rest, "/")
	if slashIdx < 0 {
		return Address{}, jnerr.NewAddressError(raw, "profile reference must be @namespace/name", nil)
	}
	ns := rest[:slashIdx]
	name := rest[slashIdx+1:]
	if ns == "" || name == "" {
		return Address{}, jnerr.NewAddressError(raw, "profile reference must be @namespace/name", nil)
	}

	params, err := parseQuery(query)
	if err != nil {
		return Address{}, jnerr.NewAddressError(raw, "invalid query string", err)
	}

	return Address{
		Raw:        raw,
		Kind:       KindProfileRef,
		Profile:    ProfileRef{Namespace: ns, Name: name},
		Parameters: params,
	}, nil
}

func parseQuery(query string) ([]KV, error) {
	if query == "" {
		return nil, nil
	}
	var out []KV
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k := part
		v := ""
		if eq := strings.Index(part, "="); eq >= 0 {
			k = part[:eq]
			v = part[eq+1:]
		}
		dk, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		dv, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		out = append(out, KV{Key: dk, Value: dv})
	}
	return out, nil
}

func encodeParam(s string) string {
	return url.QueryEscape(s)
}

// peelCompressions repeatedly strips known compression extensions from the
// trailing edge of base, returning them outer->inner (reading order
// matches decompression application order).
func peelCompressions(base string) []string {
	var layers []string
	remaining := base
	for {
		dot := strings.LastIndex(remaining, ".")
		if dot < 0 {
			break
		}
		ext := remaining[dot+1:]
		if !isCompressionExt(ext) {
			break
		}
		layers = append(layers, ext)
		remaining = remaining[:dot]
	}
	return layers
}

func isCompressionExt(ext string) bool {
	for _, c := range compressionExts {
		if ext == c {
			return true
		}
	}
	return false
}

// isGlob reports whether base contains an unescaped glob metacharacter.
func isGlob(base string) bool {
	for i := 0; i < len(base); i++ {
		switch base[i] {
		case '*', '?':
			if i == 0 || base[i-1] != '\\' {
				return true
			}
		}
	}
	return false
}
