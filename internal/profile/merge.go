// Package profile implements the hierarchical profile store:
// load, merge, interpolate, and resolve @namespace/name
// references.
package profile

import "github.com/jn-toolkit/jn/internal/record"

// Merge deep-merges src into dst: objects merge recursively (right
// overrides left), arrays and scalars are replaced wholesale, never
// concatenated.
func Merge(dst, src record.Record) record.Record {
	if dst.Kind() != record.KindObject || src.Kind() != record.KindObject {
		return src
	}

	out := record.NewOrderedMap(dst.Object().Len())
	dst.Object().Each(func(k string, v record.Record) bool {
		out.Set(k, v)
		return true
	})
	src.Object().Each(func(k string, v record.Record) bool {
		if existing, ok := out.Get(k); ok {
			out.Set(k, Merge(existing, v))
		} else {
			out.Set(k, v)
		}
		return true
	})
	return record.Object(out)
}
