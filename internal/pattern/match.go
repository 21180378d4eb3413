package pattern

import (
	"regexp"
	"strings"
	"sync"
)

var regexCache sync.Map // string -> *regexp.Regexp

// Match reports whether s satisfies p. The four cheap tags are tested
// directly; only TagRegex reaches for regexp.Compile, and even then the
// compiled expression is cached per distinct source so a plugin's pattern
// is compiled at most once per process.
func Match(p Pattern, s string) bool {
	switch p.Tag {
	case TagExtension:
		return strings.HasSuffix(s, "."+p.Literal)
	case TagPrefix:
		return strings.HasPrefix(s, p.Literal)
	case TagSuffix:
		return strings.HasSuffix(s, p.Literal)
	case TagContains:
		return strings.Contains(s, p.Literal)
	case TagRegex:
		re, err := compiledRegex(p.Literal)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	default:
		return false
	}
}

func compiledRegex(source string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Load(source); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}
	regexCache.Store(source, re)
	return re, nil
}

// Candidate pairs a compiled Pattern with the plugin-identifying data
// needed to break ties: its source tier
// (higher wins), whether it is native (native beats scripted), and its
// name (smallest wins as the final tiebreak).
type Candidate struct {
	Pattern  Pattern
	Tier     int // higher value = higher precedence (project > user > system)
	IsNative bool
	Name     string
	Payload  any // caller-supplied association, e.g. *pluginreg.PluginRecord
}

// Best returns the highest-priority candidate among those whose pattern
// matches s, per the ordered key:
//  1. specificity (original pattern length), descending
//  2. tier, descending (project > user > system)
//  3. native over scripted
//  4. name, ascending
//
// Returns nil if no candidate matches.
func Best(candidates []Candidate, s string) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if !Match(c.Pattern, s) {
			continue
		}
		if best == nil || isBetter(c, best) {
			best = c
		}
	}
	return best
}

func isBetter(a, b *Candidate) bool {
	if a.Pattern.Specificity != b.Pattern.Specificity {
		return a.Pattern.Specificity > b.Pattern.Specificity
	}
	if a.Tier != b.Tier {
		return a.Tier > b.Tier
	}
	if a.IsNative != b.IsNative {
		return a.IsNative
	}
	return a.Name < b.Name
}
