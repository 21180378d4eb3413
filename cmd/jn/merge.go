package main

import (
	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/joinmerge"
)

// newMergeCmd implements `jn merge <source>...`: the concatenation merge
// engine, tagging each output record with its source
// label unless --no-tag is given.
func newMergeCmd(env *cmdEnv) *cobra.Command {
	var failFast bool
	var noTag bool
	var tagField string
	var out string
	var labels []string

	cmd := &cobra.Command{
		Use:   "merge <source>...",
		Short: "concatenate sources in order, tagging each record's origin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}

			var sources []joinmerge.MergeSource
			var opened []*source
			for i, raw := range args {
				s, err := openSource(ctx, raw, reg, env.log, env.flags.strict)
				if err != nil {
					for _, o := range opened {
						o.Close()
					}
					return err
				}
				opened = append(opened, s)
				label := raw
				if i < len(labels) {
					label = labels[i]
				}
				sources = append(sources, joinmerge.MergeSource{Label: label, Read: joinmerge.Source(s.Next)})
			}

			to := out
			if to == "" {
				to = "-"
			}
			sink, err := openSink(ctx, to, reg, env.log)
			if err != nil {
				for _, o := range opened {
					o.Close()
				}
				return err
			}

			tag := tagField
			if noTag {
				tag = ""
			} else if tag == "" {
				tag = "_source"
			}
			// --strict promotes the default continue-on-error policy to
			// fail-fast unless the caller already chose one explicitly
			// with --fail-fast.
			policy := joinmerge.ContinueOnError
			if failFast || env.flags.strict {
				policy = joinmerge.FailFast
			}

			runErr := joinmerge.Merge(sources, joinmerge.MergeOptions{
				TagField: tag,
				Policy:   policy,
				OnSourceError: func(label string, err error) {
					env.log.With(map[string]any{"source": label, "error": err}).Warn("merge source ended early")
				},
			}, sink.Write)

			for _, o := range opened {
				o.Close()
			}
			if runErr != nil {
				sink.Close()
				return runErr
			}
			return sink.Close()
		},
	}

	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "abort the whole merge on the first source error")
	cmd.Flags().BoolVar(&noTag, "no-tag", false, "don't add a source-label field to output records")
	cmd.Flags().StringVar(&tagField, "tag-field", "_source", "field name used to tag each record's source label")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "source labels, positional (default: the source address itself)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination address (default stdout)")
	return cmd
}
