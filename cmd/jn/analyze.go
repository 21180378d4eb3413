package main

import (
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/record"
)

// fieldStat tracks one top-level field's observed type distribution
// across a stream.
type fieldStat struct {
	seen   int
	nulls  int
	counts map[string]int
}

// newAnalyzeCmd implements `jn analyze [source]`: a single-pass streaming
// schema summary (record count, per-field type distribution and null
// rate), emitted as one NDJSON record to stdout.
func newAnalyzeCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [source]",
		Short: "summarize a stream's record count and per-field type distribution",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := "-"
			if len(args) > 0 {
				from = args[0]
			}

			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}
			src, err := openSource(ctx, from, reg, env.log, env.flags.strict)
			if err != nil {
				return err
			}

			total := 0
			fields := map[string]*fieldStat{}
			var order []string
			for {
				rec, err := src.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					src.Close()
					return err
				}
				total++
				if rec.Kind() != record.KindObject {
					continue
				}
				rec.Object().Each(func(k string, v record.Record) bool {
					st, ok := fields[k]
					if !ok {
						st = &fieldStat{counts: map[string]int{}}
						fields[k] = st
						order = append(order, k)
					}
					st.seen++
					if v.IsNull() {
						st.nulls++
					}
					st.counts[jqTypeNameForAnalyze(v)]++
					return true
				})
			}
			if err := src.Close(); err != nil {
				return err
			}

			sort.Strings(order)
			out := record.NewOrderedMap(2)
			out.Set("count", record.Int(int64(total)))
			fieldsOut := record.NewOrderedMap(len(order))
			for _, name := range order {
				st := fields[name]
				fieldsOut.Set(name, fieldSummary(st, total))
			}
			out.Set("fields", record.Object(fieldsOut))

			sink, err := openSink(ctx, "-", reg, env.log)
			if err != nil {
				return err
			}
			if err := sink.Write(record.Object(out)); err != nil {
				sink.Close()
				return err
			}
			return sink.Close()
		},
	}
	return cmd
}

func fieldSummary(st *fieldStat, total int) record.Record {
	m := record.NewOrderedMap(3)
	m.Set("present", record.Int(int64(st.seen)))
	m.Set("null_rate", record.Float(ratio(st.nulls, total)))
	types := record.NewOrderedMap(len(st.counts))
	var names []string
	for t := range st.counts {
		names = append(names, t)
	}
	sort.Strings(names)
	for _, t := range names {
		types.Set(t, record.Int(int64(st.counts[t])))
	}
	m.Set("types", record.Object(types))
	return record.Object(m)
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func jqTypeNameForAnalyze(r record.Record) string {
	switch r.Kind() {
	case record.KindInt, record.KindFloat:
		return "number"
	case record.KindBool:
		return "boolean"
	default:
		return r.Kind().String()
	}
}
