package pluginreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(records ...*PluginRecord) *Registry {
	r := &Registry{byName: map[string]*PluginRecord{}}
	r.all = records
	for _, rec := range records {
		r.byName[rec.Name] = rec
	}
	return r
}

func TestFindByNameRequiresMode(t *testing.T) {
	r := newTestRegistry(&PluginRecord{Name: "csv", Modes: []Mode{ModeRead}})

	rec, ok := r.FindByName("csv", ModeRead)
	require.True(t, ok)
	assert.Equal(t, "csv", rec.Name)

	_, ok = r.FindByName("csv", ModeWrite)
	assert.False(t, ok)

	_, ok = r.FindByName("missing", ModeRead)
	assert.False(t, ok)
}

func TestMatchAppliesSpecificityTierKindNameTiebreak(t *testing.T) {
	r := newTestRegistry(
		&PluginRecord{
			Name: "generic-system", Tier: TierSystem, Kind: KindNative, Modes: []Mode{ModeRead},
			Patterns: []PluginPattern{{Source: "*.csv"}},
		},
		&PluginRecord{
			Name: "specific-project", Tier: TierProject, Kind: KindScripted, Modes: []Mode{ModeRead},
			Patterns: []PluginPattern{{Source: "sales-*"}},
		},
	)

	rec, ok := r.Match("sales-2024.csv", ModeRead)
	require.True(t, ok)
	assert.Equal(t, "specific-project", rec.Name, "longer pattern should win regardless of tier")
}

func TestMatchNoCandidateForMode(t *testing.T) {
	r := newTestRegistry(&PluginRecord{
		Name: "csv", Modes: []Mode{ModeWrite},
		Patterns: []PluginPattern{{Source: "*.csv"}},
	})
	_, ok := r.Match("data.csv", ModeRead)
	assert.False(t, ok)
}

func TestPluginsWithModeFiltersAndIterates(t *testing.T) {
	r := newTestRegistry(
		&PluginRecord{Name: "a", Modes: []Mode{ModeRead}},
		&PluginRecord{Name: "b", Modes: []Mode{ModeWrite}},
		&PluginRecord{Name: "c", Modes: []Mode{ModeRead, ModeWrite}},
	)

	var names []string
	for rec := range r.PluginsWithMode(ModeRead) {
		names = append(names, rec.Name)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, names)
}

func TestPluginsWithModeStopsEarly(t *testing.T) {
	r := newTestRegistry(
		&PluginRecord{Name: "a", Modes: []Mode{ModeRead}},
		&PluginRecord{Name: "b", Modes: []Mode{ModeRead}},
		&PluginRecord{Name: "c", Modes: []Mode{ModeRead}},
	)

	var seen []string
	for rec := range r.PluginsWithMode(ModeRead) {
		seen = append(seen, rec.Name)
		if len(seen) == 1 {
			break
		}
	}
	assert.Len(t, seen, 1)
}

func TestParseNamespace(t *testing.T) {
	ns, ok := parseNamespace("@myapi/users")
	require.True(t, ok)
	assert.Equal(t, "myapi", ns)

	_, ok = parseNamespace("no-slash")
	assert.False(t, ok)
}
