package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/expr"
)

// newFilterCmd implements `jn filter <expression> [source] [-o dest]`: the
// jq-subset query engine applied per record, defaulting to stdin/stdout.
func newFilterCmd(env *cmdEnv) *cobra.Command {
	var out string
	var source string

	cmd := &cobra.Command{
		Use:   "filter <expression>",
		Short: "transform records through a jq-subset expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := expr.Compile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}

			from := source
			if from == "" {
				from = "-"
			}
			to := out
			if to == "" {
				to = "-"
			}

			src, err := openSource(ctx, from, reg, env.log, env.flags.strict)
			if err != nil {
				return err
			}
			sink, err := openSink(ctx, to, reg, env.log)
			if err != nil {
				src.Close()
				return err
			}

			ectx := expr.NewContext()
			ectx.Strict = env.flags.strict
			for {
				rec, err := src.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					src.Close()
					sink.Close()
					return err
				}
				result, err := expr.Eval(ectx, prog.Root, rec)
				if err != nil {
					src.Close()
					sink.Close()
					return err
				}
				if err := result.ForEach(sink.Write); err != nil {
					src.Close()
					sink.Close()
					return err
				}
			}
			if err := src.Close(); err != nil {
				sink.Close()
				return err
			}
			return sink.Close()
		},
	}

	cmd.Flags().StringVarP(&source, "in", "i", "", "source address (default stdin)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination address (default stdout)")
	return cmd
}
