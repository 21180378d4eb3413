package main

import (
	"github.com/spf13/cobra"
)

// newPutCmd implements `jn put <dest>`: stream stdin's NDJSON records to
// dest.
func newPutCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "put <dest>",
		Short: "write stdin's NDJSON records to a destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}

			src, err := openSource(ctx, "-", reg, env.log, env.flags.strict)
			if err != nil {
				return err
			}
			out, err := openSink(ctx, args[0], reg, env.log)
			if err != nil {
				src.Close()
				return err
			}
			return copyRecords(src, out)
		},
	}
}
