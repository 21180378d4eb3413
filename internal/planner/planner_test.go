package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jn-toolkit/jn/internal/address"
	"github.com/jn-toolkit/jn/internal/pluginreg"
)

func testRegistry() *pluginreg.Registry {
	return pluginreg.NewFromRecords([]*pluginreg.PluginRecord{
		{
			Name: "gz", Path: "/plugins/gz", Modes: []pluginreg.Mode{pluginreg.ModeRaw},
		},
		{
			Name: "csv", Path: "/plugins/csv", Modes: []pluginreg.Mode{pluginreg.ModeRead, pluginreg.ModeWrite},
			Patterns: []pluginreg.PluginPattern{{Source: "*.csv"}},
		},
		{
			Name: "json", Path: "/plugins/json", Modes: []pluginreg.Mode{pluginreg.ModeRead, pluginreg.ModeWrite},
			Patterns: []pluginreg.PluginPattern{{Source: "*.json"}},
		},
	})
}

// TestPlanReadCompressedWithOverride: data.txt.gz~csv?delimiter=; plans
// to [decompress(gz), csv(read, delimiter=;)].
func TestPlanReadCompressedWithOverride(t *testing.T) {
	addr, err := address.Parse("data.txt.gz~csv?delimiter=;")
	if err != nil {
		t.Fatal(err)
	}

	specs, err := Plan(addr, Read, testRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected one pipeline spec, got %d", len(specs))
	}
	stages := specs[0].Stages
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages (decompress, format), got %d: %+v", len(stages), stages)
	}
	if stages[0].Role != RoleDecompress || stages[0].Command != "/plugins/gz" {
		t.Fatalf("unexpected stage 0: %+v", stages[0])
	}
	if stages[1].Role != RoleFormat || stages[1].Command != "/plugins/csv" {
		t.Fatalf("unexpected stage 1: %+v", stages[1])
	}
	foundDelim := false
	for _, a := range stages[1].Args {
		if a == "--delimiter=;" {
			foundDelim = true
		}
	}
	if !foundDelim {
		t.Fatalf("expected delimiter param forwarded to format stage, got %v", stages[1].Args)
	}
}

func TestPlanWriteMirrorsRead(t *testing.T) {
	addr, err := address.Parse("out.json.gz")
	if err != nil {
		t.Fatal(err)
	}
	specs, err := Plan(addr, Write, testRegistry())
	if err != nil {
		t.Fatal(err)
	}
	stages := specs[0].Stages
	if len(stages) != 3 {
		t.Fatalf("expected format, compress, sink stages, got %d: %+v", len(stages), stages)
	}
	if stages[0].Role != RoleFormat || stages[1].Role != RoleTransform || stages[2].Role != RoleSink {
		t.Fatalf("unexpected roles: %v %v %v", stages[0].Role, stages[1].Role, stages[2].Role)
	}
}

// TestPlanWriteStdioSkipsFormatStage confirms a stdio destination ("-")
// plans straight to its sink pseudo-stage with no format stage ahead of
// it: "-" strips to an empty base with no format_override, so there is
// nothing for pattern matching to select and nothing needed, since
// NDJSON already is the wire format.
func TestPlanWriteStdioSkipsFormatStage(t *testing.T) {
	addr, err := address.Parse("-")
	if err != nil {
		t.Fatal(err)
	}
	specs, err := Plan(addr, Write, testRegistry())
	if err != nil {
		t.Fatalf("expected a stdio write to plan without a registered format plugin: %v", err)
	}
	stages := specs[0].Stages
	if len(stages) != 1 {
		t.Fatalf("expected a single sink pseudo-stage, got %d: %+v", len(stages), stages)
	}
	if stages[0].Role != RoleSink || stages[0].Command != "-" {
		t.Fatalf("expected the stdio sink pseudo-stage, got %+v", stages[0])
	}
}

func TestPlanFormatOverrideBypassesPatternMatch(t *testing.T) {
	addr, err := address.Parse("mystery.bin~json")
	if err != nil {
		t.Fatal(err)
	}
	specs, err := Plan(addr, Read, testRegistry())
	if err != nil {
		t.Fatal(err)
	}
	last := specs[0].Stages[len(specs[0].Stages)-1]
	if last.Command != "/plugins/json" {
		t.Fatalf("expected format override to select json plugin, got %+v", last)
	}
}

func TestPlanNoMatchingPluginErrors(t *testing.T) {
	addr, err := address.Parse("data.xyz")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Plan(addr, Read, testRegistry()); err == nil {
		t.Fatal("expected planner error for unmatched format")
	}
}

func TestPlanGlobExpandsToMultipleSubPipelines(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.csv", "c.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	addr, err := address.Parse(filepath.Join(dir, "*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	specs, err := Plan(addr, Read, testRegistry())
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 glob matches, got %d: %+v", len(specs), specs)
	}
	for _, s := range specs {
		if s.SourceKey == "" {
			t.Fatal("expected SourceKey annotation on glob sub-pipeline")
		}
	}
}

func TestExpandGlobDoubleStarRecursesDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(nested, "x.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "top.csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	matches, err := expandGlob(filepath.Join(dir, "**", "*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected ** to match both nested and top-level csv files, got %v", matches)
	}
}
