package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jn-toolkit/jn/internal/pluginreg"
)

// newPluginCmd implements `jn plugin list|doctor`: inspect the discovered plugin set and sanity-check one
// plugin's --meta contract without running a full pipeline.
func newPluginCmd(env *cmdEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "list and diagnose discovered native/scripted plugins",
	}
	cmd.AddCommand(newPluginListCmd(env), newPluginDoctorCmd(env))
	return cmd
}

func newPluginListCmd(env *cmdEnv) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list every discovered plugin and its declared capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, m := range pluginModes(mode) {
				for rec := range reg.PluginsWithMode(m) {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.Name, rec.Kind, rec.Tier, rec.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "filter to one mode: read, write, raw, profiles (default: all)")
	return cmd
}

func pluginModes(filter string) []pluginreg.Mode {
	if filter != "" {
		return []pluginreg.Mode{pluginreg.Mode(filter)}
	}
	return []pluginreg.Mode{pluginreg.ModeRead, pluginreg.ModeWrite, pluginreg.ModeRaw, pluginreg.ModeProfiles}
}

// newPluginDoctorCmd invokes a plugin's `--meta` flag directly and reports
// whether its trimmed output is brace-delimited ("{...}"), without
// involving the planner or executor. The output is not parsed or checked
// against the plugin metadata schema.
func newPluginDoctorCmd(env *cmdEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor <path>",
		Short: "run a plugin's --meta probe and report whether it's well-formed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := exec.Command(args[0], "--meta").Output()
			if err != nil {
				return fmt.Errorf("plugin doctor: %s --meta failed: %w", args[0], err)
			}
			trimmed := strings.TrimSpace(string(out))
			if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
				return fmt.Errorf("plugin doctor: %s --meta did not print a JSON object", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), trimmed)
			return nil
		},
	}
}
