// Package joinmerge implements the right-buffered hash join and
// multi-source concatenation merge.
package joinmerge

import (
	"io"

	"github.com/jn-toolkit/jn/internal/record"
)

// Source yields one record per call, returning io.EOF when exhausted.
// cmd/jn adapts an ndjson.Reader (decoding into a caller-owned arena)
// into this shape; tests can supply a closure over a plain slice.
type Source func() (record.Record, error)

// SliceSource returns a Source over an in-memory slice, used by tests
// and by small embedded sub-pipelines.
func SliceSource(items []record.Record) Source {
	i := 0
	return func() (record.Record, error) {
		if i >= len(items) {
			return record.Null, io.EOF
		}
		v := items[i]
		i++
		return v, nil
	}
}
