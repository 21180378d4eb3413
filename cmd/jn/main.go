// Command jn is the protocol/format/compression-agnostic NDJSON streaming
// toolkit orchestrator. It resolves addresses, plans and
// spawns plugin pipelines, and implements the jq-subset filter language and
// hash-join/merge engines as cobra subcommands.
package main

import (
	"errors"
	"os"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/jnlog"
	"golang.org/x/term"
)

func main() {
	log := jnlog.New(jnlog.Options{
		Level:     logLevelFromEnv(),
		Component: "jn",
		Writer:    os.Stderr,
	})

	os.Exit(run(log))
}

func run(log *jnlog.Logger) int {
	root := newRootCmd(log)
	err := root.Execute()
	if err == nil {
		return 0
	}
	return exitCodeFor(err, log)
}

// exitCodeFor maps the jnerr taxonomy to the process exit codes:
// parser/address/planner/profile/discovery errors abort before
// any child is spawned and exit 2; executor failures mirror the failing
// child's own exit code (or 1 if it wasn't a plain exit); a SIGPIPE'd stage
// exits 141; anything else is a generic failure.
func exitCodeFor(err error, log *jnlog.Logger) int {
	var (
		addrErr      *jnerr.AddressError
		profileErr   *jnerr.ProfileError
		discoveryErr *jnerr.DiscoveryError
		plannerErr   *jnerr.PlannerError
		exprErr      *jnerr.ExprParseError
		unsupErr     *jnerr.UnsupportedFeatureError
		depthErr     *jnerr.DepthExceededError
		joinErr      *jnerr.JoinError
		execErr      *jnerr.ExecError
	)

	switch {
	case errors.As(err, &addrErr), errors.As(err, &profileErr), errors.As(err, &discoveryErr),
		errors.As(err, &plannerErr), errors.As(err, &exprErr), errors.As(err, &unsupErr),
		errors.As(err, &depthErr), errors.As(err, &joinErr):
		log.Error(err, "jn: aborted")
		return jnerr.ExitUsageOrPlan
	case errors.As(err, &execErr):
		log.Error(err, "jn: pipeline failed")
		if execErr.Err != nil {
			var exit *exitCodeError
			if errors.As(execErr.Err, &exit) {
				return exit.code
			}
		}
		return jnerr.ExitGeneric
	default:
		log.Error(err, "jn: failed")
		return jnerr.ExitGeneric
	}
}

// exitCodeError carries a concrete process exit status (including 141 for
// SIGPIPE) up from the pipeline executor through an ExecError's Err chain.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string { return "exit status error" }

func logLevelFromEnv() string {
	if v := os.Getenv("JN_LOG_LEVEL"); v != "" {
		return v
	}
	return "warn"
}

func isTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
