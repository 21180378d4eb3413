package joinmerge

import (
	"io"

	"github.com/jn-toolkit/jn/internal/record"
)

// FailurePolicy controls what Merge does when reading a source errors
// mid-stream.
type FailurePolicy int

const (
	// ContinueOnError records the failure and moves to the next source.
	// The default.
	ContinueOnError FailurePolicy = iota
	// FailFast aborts the whole merge on the first source error.
	FailFast
)

// MergeSource is one labeled input to Merge.
type MergeSource struct {
	Label string
	Read  Source
}

// defaultTagField is the conventional TagField value; Merge tags records
// only when MergeOptions.TagField is non-empty.
const defaultTagField = "_source"

// MergeOptions configures Merge.
type MergeOptions struct {
	// TagField, if non-empty, is set on every output record to its
	// source's Label. Empty disables tagging.
	TagField string
	Policy   FailurePolicy
	// OnSourceError is called (in continue-on-error mode) with the
	// source label and the error that ended it early.
	OnSourceError func(label string, err error)
}

// Merge reads each source to completion in the declared order, tagging
// records with their source label, and preserves each source's own
// emission order.
func Merge(sources []MergeSource, opts MergeOptions, emit func(record.Record) error) error {
	for _, src := range sources {
		for {
			rec, err := src.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				if opts.Policy == FailFast {
					return err
				}
				if opts.OnSourceError != nil {
					opts.OnSourceError(src.Label, err)
				}
				break
			}
			out := rec
			if opts.TagField != "" {
				out = tagRecord(rec, opts.TagField, src.Label)
			}
			if err := emit(out); err != nil {
				return err
			}
		}
	}
	return nil
}

func tagRecord(rec record.Record, field, label string) record.Record {
	m := objectOrNew(rec)
	m.Set(field, record.String(label))
	return record.Object(m)
}
