package pluginreg

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jn-toolkit/jn/internal/jnenv"
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/jnlog"
)

// dirTier pairs a directory to scan with the tier it belongs to.
type dirTier struct {
	dir  string
	tier Tier
}

// nativeDirs and scriptedDirs enumerate the search directories in
// project > user > system order, mirroring the Profile Store's precedence
// rule.
func nativeDirs() []dirTier {
	native, _ := jnenv.PluginDirs()
	return tierDirs(native)
}

func scriptedDirs() []dirTier {
	_, scripted := jnenv.PluginDirs()
	return tierDirs(scripted)
}

// tierDirs assigns tiers to the flattened directory list jnenv.PluginDirs
// returns: project entries first (one per ancestor + JN_PLUGIN_PATH
// entries, all project-level precedence), user next, system last.
func tierDirs(dirs []string) []dirTier {
	n := len(dirs)
	if n == 0 {
		return nil
	}
	out := make([]dirTier, n)
	for i, d := range dirs {
		tier := TierProject
		switch {
		case i == n-1:
			tier = TierSystem
		case i == n-2:
			tier = TierUser
		}
		out[i] = dirTier{dir: d, tier: tier}
	}
	return out
}

// Scanner walks the plugin directories and classifies every candidate
// file, invoking native binaries with --meta and parsing scripted inline
// metadata blocks without execution.
type Scanner struct {
	Log     *jnlog.Logger
	Timeout time.Duration // bound on a candidate's --meta invocation
}

// NewScanner returns a Scanner with a default 2s --meta timeout.
func NewScanner(log *jnlog.Logger) *Scanner {
	return &Scanner{Log: log, Timeout: 2 * time.Second}
}

// Scan walks every tier and returns every PluginRecord that parsed
// successfully. A directory that cannot be read produces a warning and is
// skipped, never aborting the rest of discovery.
func (s *Scanner) Scan(ctx context.Context) []*PluginRecord {
	var out []*PluginRecord
	for _, dt := range nativeDirs() {
		out = append(out, s.scanDir(ctx, dt, KindNative)...)
	}
	for _, dt := range scriptedDirs() {
		out = append(out, s.scanDir(ctx, dt, KindScripted)...)
	}
	return out
}

func (s *Scanner) scanDir(ctx context.Context, dt dirTier, kind PluginKind) []*PluginRecord {
	entries, err := os.ReadDir(dt.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.warn(dt.dir, "failed to read plugin directory", err)
		}
		return nil
	}

	var out []*PluginRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dt.dir, e.Name())
		info, err := e.Info()
		if err != nil {
			s.warn(path, "failed to stat candidate", err)
			continue
		}

		var rec *PluginRecord
		switch kind {
		case KindNative:
			rec, err = s.classifyNative(ctx, path, dt.tier, info.ModTime().UnixNano())
		case KindScripted:
			rec, err = classifyScripted(path, dt.tier, info.ModTime().UnixNano())
		}
		if err != nil {
			s.warn(path, "dropping candidate", err)
			continue
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// classifyNative runs `<path> --meta` and parses a single JSON object from
// stdout. Nonzero exit, invalid JSON, or missing required fields drop the
// candidate.
func (s *Scanner) classifyNative(ctx context.Context, path string, tier Tier, modTime int64) (*PluginRecord, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, path, "--meta")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, jnerr.NewDiscoveryError(path, "plugin --meta invocation failed: "+stderr.String(), false, err)
	}

	var m meta
	if err := json.Unmarshal(stdout.Bytes(), &m); err != nil {
		return nil, jnerr.NewDiscoveryError(path, "invalid --meta JSON", false, err)
	}
	if err := m.validate(); err != nil {
		return nil, jnerr.NewDiscoveryError(path, "--meta "+err.Error(), false, nil)
	}
	return m.toRecord(path, KindNative, tier, modTime), nil
}

func (s *Scanner) warn(path, message string, err error) {
	if s.Log == nil {
		return
	}
	s.Log.With(map[string]any{"path": path, "error": err}).Warn(message)
}
