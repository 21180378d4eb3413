package expr

import (
	"strings"

	"github.com/jn-toolkit/jn/internal/jnerr"
)

// gateRule names one rejected jq construct and the replacement this
// engine's subset suggests.
type gateRule struct {
	word       string // bare word form, matched at a token boundary
	sigil      string // non-word sigil form (e.g. "$", "..", "@")
	feature    string
	suggestion string
}

var gateRules = []gateRule{
	{sigil: "..", feature: "recursive descent (..)", suggestion: "name the path explicitly, e.g. .a.b"},
	{sigil: "$", feature: "variable binding (as $x)", suggestion: "restructure with pipes instead of binding a name"},
	{word: "as", feature: "variable binding (as $x)", suggestion: "restructure with pipes instead of binding a name"},
	{word: "reduce", feature: "reduce", suggestion: "use map/sort_by/group_by or a join/merge stage instead"},
	{word: "limit", feature: "limit", suggestion: "pipe into the head tool instead"},
	{word: "recurse", feature: "recurse", suggestion: "name the path explicitly"},
	{word: "walk", feature: "walk", suggestion: "name the path explicitly"},
	{word: "import", feature: "module import", suggestion: "inline the expression"},
	{word: "include", feature: "module import", suggestion: "inline the expression"},
	{word: "try", feature: "try/catch", suggestion: "use // for a fallback value, or .field? for optional access"},
	{word: "catch", feature: "try/catch", suggestion: "use // for a fallback value, or .field? for optional access"},
	{word: "def", feature: "function definitions (def)", suggestion: "inline the expression"},
	{word: "debug", feature: "debug", suggestion: "remove it; this engine has no debug output hook"},
	{word: "input", feature: "input/inputs", suggestion: "this engine evaluates one record at a time; use join/merge for cross-record work"},
	{word: "inputs", feature: "input/inputs", suggestion: "this engine evaluates one record at a time; use join/merge for cross-record work"},
	{word: "match", feature: "regex function (match)", suggestion: "use test(pattern) for literal/anchor matching"},
	{word: "scan", feature: "regex function (scan)", suggestion: "use test(pattern) for literal/anchor matching"},
	{word: "capture", feature: "regex function (capture)", suggestion: "use test(pattern) for literal/anchor matching"},
	{word: "sub", feature: "regex function (sub)", suggestion: "use test(pattern) for literal/anchor matching"},
	{word: "gsub", feature: "regex function (gsub)", suggestion: "use test(pattern) for literal/anchor matching"},
	{word: "splits", feature: "regex function (splits)", suggestion: "use split(sep) for literal separators"},
	{word: "path", feature: "path functions", suggestion: "reference the field directly"},
	{word: "paths", feature: "path functions", suggestion: "reference the field directly"},
	{word: "getpath", feature: "path functions", suggestion: "reference the field directly"},
	{word: "setpath", feature: "path functions", suggestion: "reference the field directly"},
	{word: "delpaths", feature: "path functions", suggestion: "use del(.path)"},
	{sigil: "@base64", feature: "format string (@base64)", suggestion: "shell out to a dedicated encode/decode tool"},
	{sigil: "@uri", feature: "format string (@uri)", suggestion: "shell out to a dedicated encode/decode tool"},
	{sigil: "@csv", feature: "format string (@csv)", suggestion: "use the csv format plugin"},
	{sigil: "@tsv", feature: "format string (@tsv)", suggestion: "use the csv format plugin"},
	{sigil: "@html", feature: "format string (@html)", suggestion: "shell out to a dedicated encode/decode tool"},
	{sigil: "@sh", feature: "format string (@sh)", suggestion: "shell out to a dedicated encode/decode tool"},
	{sigil: "@json", feature: "format string (@json)", suggestion: "records are already JSON; no conversion needed"},
}

// gate scans src for rejected jq constructs before parsing, outside of
// quoted string literals, returning a named jnerr.UnsupportedFeatureError
// for the first one found.
func gate(src string) error {
	stripped := stripStrings(src)
	for _, rule := range gateRules {
		if rule.sigil != "" {
			if strings.Contains(stripped, rule.sigil) {
				return jnerr.NewUnsupportedFeatureError(rule.feature, rule.suggestion)
			}
			continue
		}
		if containsWord(stripped, rule.word) {
			return jnerr.NewUnsupportedFeatureError(rule.feature, rule.suggestion)
		}
	}
	return nil
}

// stripStrings blanks out the contents of quoted string literals (keeping
// length/positions stable) so gate word-scanning never fires on a literal
// like "reduce-cost".
func stripStrings(src string) string {
	b := []byte(src)
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			if escaped {
				escaped = false
				b[i] = ' '
				continue
			}
			if c == '\\' {
				escaped = true
				b[i] = ' '
				continue
			}
			if c == '"' {
				inStr = false
				continue
			}
			b[i] = ' '
			continue
		}
		if c == '"' {
			inStr = true
		}
	}
	return string(b)
}

// containsWord reports whether word appears in s as a bare keyword
// construct, not as part of a longer identifier and not as a field name
// (.reduce, .a.as): a gated word immediately after a "." is someone's
// field, not the jq keyword it collides with.
func containsWord(s, word string) bool {
	i := 0
	for {
		idx := strings.Index(s[i:], word)
		if idx < 0 {
			return false
		}
		start := i + idx
		end := start + len(word)
		leftOK := start == 0 || (!isIdentCont(rune(s[start-1])) && s[start-1] != '.')
		rightOK := end >= len(s) || !isIdentCont(rune(s[end]))
		if leftOK && rightOK {
			return true
		}
		i = start + 1
	}
}
