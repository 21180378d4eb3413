package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/expr"
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/joinmerge"
)

// newJoinCmd implements `jn join <left> <right>`: the right-buffered
// hash-join engine, with natural/named/composite key modes, an optional
// pure-expression join condition, and embed/flatten/project output modes.
func newJoinCmd(env *cmdEnv) *cobra.Command {
	var on, leftKey, rightKey, compositeKey, condition string
	var target, outMode string
	var project []string
	var aggs []string
	var out string

	cmd := &cobra.Command{
		Use:   "join <left> <right>",
		Short: "hash-join two record sources on a key or condition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildJoinOptions(on, leftKey, rightKey, compositeKey, condition, target, outMode, project, aggs, env.flags.rightCap)
			if err != nil {
				return err
			}
			opts.Strict = env.flags.strict

			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}
			left, err := openSource(ctx, args[0], reg, env.log, env.flags.strict)
			if err != nil {
				return err
			}
			right, err := openSource(ctx, args[1], reg, env.log, env.flags.strict)
			if err != nil {
				left.Close()
				return err
			}
			to := out
			if to == "" {
				to = "-"
			}
			sink, err := openSink(ctx, to, reg, env.log)
			if err != nil {
				left.Close()
				right.Close()
				return err
			}

			ectx := expr.NewContext()
			ectx.Strict = env.flags.strict
			runErr := joinmerge.HashJoin(ectx, joinmerge.Source(left.Next), joinmerge.Source(right.Next), opts, sink.Write)
			left.Close()
			right.Close()
			if runErr != nil {
				sink.Close()
				return runErr
			}
			return sink.Close()
		},
	}

	cmd.Flags().StringVar(&on, "on", "", "natural join key field, present on both sides")
	cmd.Flags().StringVar(&leftKey, "left-key", "", "left join key field (use with --right-key)")
	cmd.Flags().StringVar(&rightKey, "right-key", "", "right join key field (use with --left-key)")
	cmd.Flags().StringVar(&compositeKey, "composite-key", "", "comma-separated key fields shared by both sides")
	cmd.Flags().StringVar(&condition, "condition", "", "jq-subset pure expression evaluated against {left, right}")
	cmd.Flags().StringVar(&target, "target", "matches", "embed-mode field name for matched right records")
	cmd.Flags().StringVar(&outMode, "output", "embed", "output mode: embed, flatten, or project")
	cmd.Flags().StringSliceVar(&project, "project", nil, "project-mode field spec left.field[:as] or right.field[:as]")
	cmd.Flags().StringSliceVar(&aggs, "agg", nil, "aggregation spec 'as: func' or 'as: func(field)', repeatable")
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination address (default stdout)")
	return cmd
}

func buildJoinOptions(on, leftKey, rightKey, compositeKey, condition, target, outMode string, project, aggs []string, rightCap int64) (joinmerge.JoinOptions, error) {
	opts := joinmerge.JoinOptions{TargetField: target, RightLimit: rightCap}

	switch {
	case condition != "":
		cond, err := joinmerge.CompileCondition(condition)
		if err != nil {
			return opts, err
		}
		opts.Condition = cond
	case compositeKey != "":
		fields := strings.Split(compositeKey, ",")
		for i, f := range fields {
			fields[i] = strings.TrimSpace(f)
		}
		opts.LeftKeys, opts.RightKeys = fields, fields
	case leftKey != "" || rightKey != "":
		if leftKey == "" || rightKey == "" {
			return opts, jnerr.NewJoinError("both --left-key and --right-key are required together", nil)
		}
		opts.LeftKeys = []string{leftKey}
		opts.RightKeys = []string{rightKey}
	case on != "":
		opts.LeftKeys = []string{on}
		opts.RightKeys = []string{on}
	default:
		return opts, jnerr.NewJoinError("one of --on, --left-key/--right-key, --composite-key, or --condition is required", nil)
	}

	switch outMode {
	case "", "embed":
		opts.Output = joinmerge.OutputEmbed
	case "flatten":
		opts.Output = joinmerge.OutputFlatten
	case "project":
		opts.Output = joinmerge.OutputProject
		fields, err := parseProjectFields(project)
		if err != nil {
			return opts, err
		}
		opts.ProjectFields = fields
	default:
		return opts, jnerr.NewJoinError("unknown --output mode "+outMode, nil)
	}

	for _, a := range aggs {
		spec, err := joinmerge.ParseAggSpec(a)
		if err != nil {
			return opts, err
		}
		opts.Aggs = append(opts.Aggs, spec)
	}

	opts.OnWarn = func(msg string) { fmt.Println(msg) }
	return opts, nil
}

func parseProjectFields(specs []string) ([]joinmerge.ProjectField, error) {
	fields := make([]joinmerge.ProjectField, 0, len(specs))
	for _, s := range specs {
		side, rest, ok := strings.Cut(s, ".")
		if !ok {
			return nil, jnerr.NewJoinError("project field must be left.<field> or right.<field>, got "+s, nil)
		}
		field, as, hasAs := strings.Cut(rest, ":")
		f := joinmerge.ProjectField{Field: field, As: field}
		if hasAs {
			f.As = as
		}
		switch side {
		case "left":
			f.FromRight = false
		case "right":
			f.FromRight = true
		default:
			return nil, jnerr.NewJoinError("project field side must be left or right, got "+side, nil)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
