package jnenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigReturnsDefaultWhenAbsent(t *testing.T) {
	t.Setenv("JN_HOME", t.TempDir())
	chdirTemp(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected DefaultConfig, got %+v", cfg)
	}
}

func TestLoadConfigReadsHomeTier(t *testing.T) {
	home := t.TempDir()
	t.Setenv("JN_HOME", home)
	chdirTemp(t)

	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("strict: true\nright_limit: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Strict || cfg.RightLimit != 500 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigPrefersProjectTierOverHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("JN_HOME", home)
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("strict: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	proj := t.TempDir()
	if err := os.MkdirAll(filepath.Join(proj, ".jn"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(proj, ".jn", "config.yaml"), []byte("strict: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	chdirTo(t, proj)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Strict {
		t.Fatalf("expected the project-tier config.yaml to win, got %+v", cfg)
	}
}

func TestLoadConfigRejectsOutOfRangeRightLimit(t *testing.T) {
	home := t.TempDir()
	t.Setenv("JN_HOME", home)
	chdirTemp(t)

	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("right_limit: -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation to reject a negative right_limit")
	}
}

func chdirTemp(t *testing.T) {
	t.Helper()
	chdirTo(t, t.TempDir())
}

func chdirTo(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })
}
