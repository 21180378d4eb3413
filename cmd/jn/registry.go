package main

import (
	"context"

	"github.com/jn-toolkit/jn/internal/jnenv"
	"github.com/jn-toolkit/jn/internal/jnlog"
	"github.com/jn-toolkit/jn/internal/pluginreg"
	"github.com/jn-toolkit/jn/internal/profile"
)

// buildRegistry constructs and loads a plugin registry from the standard
// jnenv search tiers, discovering both native and scripted plugins.
func buildRegistry(ctx context.Context, log *jnlog.Logger) (*pluginreg.Registry, error) {
	reg := pluginreg.New(jnenv.CacheDir(), log)
	if err := reg.Load(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

// buildProfileStore constructs a profile.Store wired to reg as the
// plugin-bundled/plugin-discovered provider tiers.
func buildProfileStore(reg *pluginreg.Registry) *profile.Store {
	store := profile.NewStore()
	for _, ns := range knownNamespaces(reg) {
		store.Providers[ns] = reg
	}
	return store
}

// knownNamespaces collects the distinct profile_type values advertised
// by plugins supporting the profiles mode.
func knownNamespaces(reg *pluginreg.Registry) []string {
	seen := map[string]bool{}
	var out []string
	for rec := range reg.PluginsWithMode(pluginreg.ModeProfiles) {
		if rec.ProfileType == "" || seen[rec.ProfileType] {
			continue
		}
		seen[rec.ProfileType] = true
		out = append(out, rec.ProfileType)
	}
	return out
}
