package pluginreg

import (
	"bytes"
	"context"
	"io"
	"iter"
	"os/exec"
	"sync"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/jnlog"
	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/pattern"
	"github.com/jn-toolkit/jn/internal/record"
)

// Registry is the query surface: FindByName, Match,
// PluginsWithMode. An RWMutex-guarded map plus a logger, generalized from
// in-process Go plugins to on-disk discovered ones.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*PluginRecord
	all     []*PluginRecord
	log     *jnlog.Logger
	cache   *Cache
	scanner *Scanner
}

// New constructs an empty Registry. Call Load to populate it from disk.
func New(cacheDir string, log *jnlog.Logger) *Registry {
	return &Registry{
		byName:  make(map[string]*PluginRecord),
		log:     log,
		cache:   NewCache(cacheDir, log),
		scanner: NewScanner(log),
	}
}

// NewFromRecords builds a Registry directly from a known record set,
// bypassing disk discovery. Used by tests and by callers wiring built-in
// pseudo-plugins that aren't discovered from the filesystem.
func NewFromRecords(records []*PluginRecord) *Registry {
	r := &Registry{byName: make(map[string]*PluginRecord, len(records)), all: records}
	for _, rec := range records {
		r.byName[rec.Name] = rec
	}
	return r
}

// Load rescans every plugin directory on each call (running --meta for
// each native candidate), then replaces each discovered record whose
// cache entry has the same mtime with the cached record. Discovery is not
// incremental: the scan is not skipped for unchanged plugins. The result
// is written back to the cache.
func (r *Registry) Load(ctx context.Context) error {
	cached := r.cache.Load()
	discovered := r.scanner.Scan(ctx)

	entries := make(map[string]cacheEntry, len(discovered))
	records := make([]*PluginRecord, 0, len(discovered))
	for _, rec := range discovered {
		if prev, ok := cached[rec.Path]; ok && prev.fresh(rec.ModTime) {
			copied := prev.Record
			records = append(records, &copied)
			entries[rec.Path] = prev
			continue
		}
		records = append(records, rec)
		entries[rec.Path] = cacheEntry{Record: *rec, ModTime: rec.ModTime}
	}

	if err := r.cache.Save(entries); err != nil && r.log != nil {
		r.log.With(map[string]any{"error": err}).Warn("failed to persist plugin cache")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = records
	r.byName = make(map[string]*PluginRecord, len(records))
	for _, rec := range records {
		r.byName[rec.Name] = rec
	}
	return nil
}

// FindByName returns the plugin named name supporting mode, if any.
func (r *Registry) FindByName(name string, mode Mode) (*PluginRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byName[name]
	if !ok || !rec.SupportsMode(mode) {
		return nil, false
	}
	return rec, true
}

// Match returns the best plugin matching source for mode, applying the
// specificity/tier/kind/name tiebreak via
// internal/pattern.Best.
func (r *Registry) Match(source string, mode Mode) (*PluginRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []pattern.Candidate
	for _, rec := range r.all {
		if !rec.SupportsMode(mode) {
			continue
		}
		for _, p := range rec.Patterns {
			candidates = append(candidates, pattern.Candidate{
				Pattern:  pattern.Compile(p.Source),
				Tier:     int(rec.Tier),
				IsNative: rec.Kind == KindNative,
				Name:     rec.Name,
				Payload:  rec,
			})
		}
	}

	best := pattern.Best(candidates, source)
	if best == nil {
		return nil, false
	}
	return best.Payload.(*PluginRecord), true
}

// PluginsWithMode iterates every registered plugin supporting mode, in
// discovery order.
func (r *Registry) PluginsWithMode(mode Mode) iter.Seq[*PluginRecord] {
	return func(yield func(*PluginRecord) bool) {
		r.mu.RLock()
		snapshot := make([]*PluginRecord, len(r.all))
		copy(snapshot, r.all)
		r.mu.RUnlock()

		for _, rec := range snapshot {
			if !rec.SupportsMode(mode) {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// ListProfiles and InfoProfile implement profile.ProfileProvider by
// delegating to plugins declaring mode=profiles: the plugin-bundled and
// plugin-discovered profile tiers, reached via --list / --info=@ns/name.
func (r *Registry) ListProfiles(namespace string) ([]record.Record, error) {
	plugin := r.profilePlugin(namespace)
	if plugin == nil {
		return nil, nil
	}

	out, err := runPlugin(plugin.Path, "--list")
	if err != nil {
		return nil, jnerr.NewDiscoveryError(plugin.Path, "--list invocation failed", false, err)
	}

	arena := record.NewArena()
	var results []record.Record
	reader := ndjson.NewReader(bytes.NewReader(out))
	for {
		rec, err := reader.ReadRecord(arena)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, jnerr.NewDiscoveryError(plugin.Path, "invalid --list output", false, err)
		}
		results = append(results, rec.Clone())
		arena.Reset()
	}
	return results, nil
}

// InfoProfile asks the plugin that owns namespace for the single profile
// document named by ref.
func (r *Registry) InfoProfile(ref string) (record.Record, bool, error) {
	namespace, ok := parseNamespace(ref)
	if !ok {
		return record.Null, false, nil
	}
	plugin := r.profilePlugin(namespace)
	if plugin == nil {
		return record.Null, false, nil
	}

	out, err := runPlugin(plugin.Path, "--info="+ref)
	if err != nil {
		return record.Null, false, nil // not found, not a hard error
	}

	arena := record.NewArena()
	rec, err := ndjson.Decode(bytes.TrimSpace(out), arena)
	if err != nil {
		return record.Null, false, jnerr.NewDiscoveryError(plugin.Path, "invalid --info output", false, err)
	}
	return rec.Clone(), true, nil
}

func (r *Registry) profilePlugin(namespace string) *PluginRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.all {
		if rec.ProfileType == namespace && rec.SupportsMode(ModeProfiles) {
			return rec
		}
	}
	return nil
}

func parseNamespace(ref string) (string, bool) {
	s := ref
	if len(s) > 0 && s[0] == '@' {
		s = s[1:]
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return s[:i], true
		}
	}
	return "", false
}

func runPlugin(path string, args ...string) ([]byte, error) {
	cmd := exec.Command(path, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}
