package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/address"
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/pkg/diff"
)

// newProfileCmd implements `jn profile list|info|diff`:
// list and inspect the @namespace/name profiles visible across all four
// search tiers, and compare two profiles' fully interpolated documents.
func newProfileCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "list and inspect saved connection/format profiles",
	}
	cmd.AddCommand(newProfileListCmd(env), newProfileInfoCmd(env), newProfileDiffCmd(env))
	return cmd
}

func newProfileListCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list <namespace>",
		Short: "list profiles discovered under a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}
			recs, err := reg.ListProfiles(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, rec := range recs {
				fmt.Fprintln(w, string(ndjson.AppendRecord(nil, rec)))
			}
			return nil
		},
	}
}

func newProfileInfoCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "info <@namespace/name>",
		Short: "print one profile's fully interpolated document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseProfileArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}
			store := buildProfileStore(reg)
			doc, err := store.Load(ref, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(ndjson.AppendRecord(nil, doc)))
			return nil
		},
	}
}

// newProfileDiffCmd prints a unified diff between two profiles' fully
// interpolated documents, so an operator can see exactly what a
// namespace rename or tier override changed before pointing a
// pipeline at it.
func newProfileDiffCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <@namespace/name> <@namespace/name>",
		Short: "show a unified diff between two profiles' interpolated documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refA, err := parseProfileArg(args[0])
			if err != nil {
				return err
			}
			refB, err := parseProfileArg(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}
			store := buildProfileStore(reg)
			docA, err := store.Load(refA, nil)
			if err != nil {
				return err
			}
			docB, err := store.Load(refB, nil)
			if err != nil {
				return err
			}
			out := diff.GenerateUnifiedDiff(ndjson.AppendRecord(nil, docA), ndjson.AppendRecord(nil, docB), args[0], args[1])
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no differences")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func parseProfileArg(s string) (address.ProfileRef, error) {
	addr, err := address.Parse(strings.TrimSpace(s))
	if err != nil {
		return address.ProfileRef{}, err
	}
	if addr.Kind != address.KindProfileRef {
		return address.ProfileRef{}, jnerr.NewAddressError(s, "expected a @namespace/name profile reference", nil)
	}
	return addr.Profile, nil
}
