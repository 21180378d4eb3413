package main

import (
	"io"

	"github.com/spf13/cobra"
)

// newHeadCmd implements `jn head [-n N] [source]`: emit the first N
// records and stop, closing the upstream pipeline early.
func newHeadCmd(env *cmdEnv) *cobra.Command {
	var n int
	var source string

	cmd := &cobra.Command{
		Use:   "head [source]",
		Short: "emit the first N records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := "-"
			if len(args) > 0 {
				from = args[0]
			} else if source != "" {
				from = source
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
			out, err := openSink(ctx, "-", reg, env.log)
			if err != nil {
				src.Close()
				return err
			}

			for i := 0; i < n; i++ {
				rec, err := src.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					src.Close()
					out.Close()
					return err
				}
				if err := out.Write(rec); err != nil {
					src.Close()
					out.Close()
					return err
				}
			}
			src.Close()
			return out.Close()
		},
	}

	cmd.Flags().IntVarP(&n, "lines", "n", 10, "number of records to emit")
	cmd.Flags().StringVar(&source, "in", "", "source address (default stdin)")
	return cmd
}
