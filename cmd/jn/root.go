package main

import (
	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/jnenv"
	"github.com/jn-toolkit/jn/internal/jnlog"
)

// rootFlags carries the persistent, verb-independent knobs.
type rootFlags struct {
	strict   bool
	rightCap int64
}

func newRootCmd(log *jnlog.Logger) *cobra.Command {
	flags := &rootFlags{}
	env := &cmdEnv{log: log, flags: flags}

	cmd := &cobra.Command{
		Use:           "jn",
		Short:         "jn streams NDJSON through protocol, format, and compression plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	// config.yaml supplies the defaults; --strict/--right-limit on the
	// invocation itself still win.
	defaults, err := jnenv.LoadConfig()
	if err != nil {
		log.With(map[string]any{"error": err}).Warn("ignoring malformed config.yaml")
		defaults = jnenv.DefaultConfig()
	}

	cmd.PersistentFlags().BoolVar(&flags.strict, "strict", defaults.Strict, "fail instead of warning on soft limits and coercions")
	cmd.PersistentFlags().Int64Var(&flags.rightCap, "right-limit", defaults.RightLimit, "ceiling on buffered right-side records for join (0 = warn at 1,000,000, never fail)")

	cmd.AddCommand(
		newCatCmd(env),
		newPutCmd(env),
		newFilterCmd(env),
		newHeadCmd(env),
		newTailCmd(env),
		newJoinCmd(env),
		newMergeCmd(env),
		newInspectCmd(env),
		newAnalyzeCmd(env),
		newTableCmd(env),
		newProfileCmd(env),
		newPluginCmd(env),
	)

	return cmd
}

const version = "0.1.0"

// cmdEnv bundles the dependencies every verb needs: logging, persistent
// flags, and lazily-built registry/profile-store handles shared across a
// single invocation.
type cmdEnv struct {
	log   *jnlog.Logger
	flags *rootFlags
}
