package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/record"
)

// newTailCmd implements `jn tail [-n N] [source]`: emit the last N
// records. Since the count isn't known in advance, it buffers a sliding
// window of N clones (arena-freed originals would otherwise be reused by
// the decoder) and emits the window once the source is exhausted.
func newTailCmd(env *cmdEnv) *cobra.Command {
	var n int
	var source string

	cmd := &cobra.Command{
		Use:   "tail [source]",
		Short: "emit the last N records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := "-"
			if len(args) > 0 {
				from = args[0]
			} else if source != "" {
				from = source
			}
			if n <= 0 {
				n = 10
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

			ring := make([]record.Record, n)
			count, next := 0, 0
			for {
				rec, err := src.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					src.Close()
					return err
				}
				ring[next] = rec.Clone()
				next = (next + 1) % n
				if count < n {
					count++
				}
			}
			if err := src.Close(); err != nil {
				return err
			}

			out, err := openSink(ctx, "-", reg, env.log)
			if err != nil {
				return err
			}
			start := (next - count + n) % n
			for i := 0; i < count; i++ {
				idx := (start + i) % n
				if err := out.Write(ring[idx]); err != nil {
					out.Close()
					return err
				}
			}
			return out.Close()
		},
	}

	cmd.Flags().IntVarP(&n, "lines", "n", 10, "number of records to emit")
	cmd.Flags().StringVar(&source, "in", "", "source address (default stdin)")
	return cmd
}
