// Package pattern implements the pattern matcher: classify a plugin's
// declared pattern string into a cheap tag, then test candidate source
// strings against it without paying a regex-compile cost on the hot path
// for the common extension/prefix/suffix/contains shapes.
package pattern

import "strings"

// Tag classifies the shape of a compiled Pattern.
type Tag int

const (
	TagExtension Tag = iota
	TagPrefix
	TagSuffix
	TagContains
	TagRegex
)

func (t Tag) String() string {
	switch t {
	case TagExtension:
		return "extension"
	case TagPrefix:
		return "prefix"
	case TagSuffix:
		return "suffix"
	case TagContains:
		return "contains"
	case TagRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// Pattern is a normalized, classified plugin pattern.
// Specificity is the length of the original source string, used as the
// primary tiebreak key in Best.
type Pattern struct {
	Tag         Tag
	Literal     string // the fragment to test against, with tag-specific syntax stripped
	Source      string
	Specificity int
}

// Compile classifies source into a Pattern. Recognized shapes, tested in
// order:
//
//	"*.ext"        -> extension match on "ext"
//	"prefix*"      -> prefix match on "prefix"
//	"*suffix"      -> suffix match on "suffix" (only if not also "*.ext")
//	"*fragment*"   -> contains match on "fragment"
//	"/regex/"      -> regex match on the text between the slashes
//	anything else  -> contains match on the literal source
func Compile(source string) Pattern {
	spec := len(source)

	if strings.HasPrefix(source, "/") && strings.HasSuffix(source, "/") && len(source) >= 2 {
		return Pattern{Tag: TagRegex, Literal: source[1 : len(source)-1], Source: source, Specificity: spec}
	}

	if strings.HasPrefix(source, "*.") && !strings.Contains(source[2:], "*") {
		return Pattern{Tag: TagExtension, Literal: source[2:], Source: source, Specificity: spec}
	}

	if strings.HasPrefix(source, "*") && strings.HasSuffix(source, "*") && len(source) > 2 {
		return Pattern{Tag: TagContains, Literal: source[1 : len(source)-1], Source: source, Specificity: spec}
	}

	if strings.HasSuffix(source, "*") {
		return Pattern{Tag: TagPrefix, Literal: strings.TrimSuffix(source, "*"), Source: source, Specificity: spec}
	}

	if strings.HasPrefix(source, "*") {
		return Pattern{Tag: TagSuffix, Literal: strings.TrimPrefix(source, "*"), Source: source, Specificity: spec}
	}

	return Pattern{Tag: TagContains, Literal: source, Source: source, Specificity: spec}
}
