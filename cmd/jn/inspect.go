package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/record"
)

// newInspectCmd implements `jn inspect [source]`: print each record's
// shape (kind, field names for objects, length for arrays) rather than
// its content, for quickly eyeballing an unfamiliar source.
func newInspectCmd(env *cmdEnv) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect [source]",
		Short: "print each record's shape instead of its content",
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

			n := 0
			for limit <= 0 || n < limit {
				rec, err := src.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					src.Close()
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), shapeOf(rec))
				n++
			}
			return src.Close()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after N records (0 = unlimited)")
	return cmd
}

func shapeOf(rec record.Record) string {
	switch rec.Kind() {
	case record.KindObject:
		obj := rec.Object()
		keys := obj.Keys()
		return fmt.Sprintf("object[%d] {%s}", obj.Len(), joinKeys(keys))
	case record.KindArray:
		return fmt.Sprintf("array[%d]", rec.Len())
	default:
		return rec.Kind().String()
	}
}

func joinKeys(keys []string) string {
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += k
	}
	return s
}
