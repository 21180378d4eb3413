package main

import (
	"io"

	"github.com/spf13/cobra"
)

// newCatCmd implements `jn cat <source>...`: decode each source in turn
// and re-encode every record to stdout, concatenating sources in the
// order given.
func newCatCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <source>...",
		Short: "concatenate one or more sources to stdout as NDJSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}

			out, err := openSink(ctx, "-", reg, env.log)
			if err != nil {
				return err
			}

			for _, raw := range args {
				src, err := openSource(ctx, raw, reg, env.log, env.flags.strict)
				if err != nil {
					out.Close()
					return err
				}
				if err := copyRecords(src, out); err != nil {
					out.Close()
					return err
				}
			}
			return out.Close()
		},
	}
}

// copyRecords drains src into out until a clean EOF, then waits for src's
// background pipeline to finish.
func copyRecords(src *source, out *sink) error {
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			src.Close()
			return err
		}
		if err := out.Write(rec); err != nil {
			src.Close()
			return err
		}
	}
	return src.Close()
}
