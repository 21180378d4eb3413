package pluginreg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/jnlog"
)

// cacheEntry is the on-disk representation of a PluginRecord, keyed by
// Path with ModTime embedded for invalidation.
type cacheEntry struct {
	Record  PluginRecord `json:"record"`
	ModTime int64        `json:"mod_time"`
}

type cacheFile struct {
	Version int                   `json:"version"`
	Entries map[string]cacheEntry `json:"entries"` // keyed by absolute path
}

const cacheVersion = 1

// Cache persists discovered PluginRecords, keyed by path with their
// mtimes, to a JSON index. Registry.Load consults it only after a full
// directory scan, so it does not spare re-running an unchanged plugin's
// --meta probe.
type Cache struct {
	Path string
	Log  *jnlog.Logger
}

// NewCache returns a Cache rooted at the standard cache directory.
func NewCache(cacheDir string, log *jnlog.Logger) *Cache {
	return &Cache{Path: filepath.Join(cacheDir, "plugins.json"), Log: log}
}

// Load reads the cache file, discarding and reporting (via Log, never
// erroring) a corrupt file so the caller falls back to a full rescan.
func (c *Cache) Load() map[string]cacheEntry {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return map[string]cacheEntry{}
	}
	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil || cf.Version != cacheVersion {
		c.warn("discarding corrupt plugin cache", err)
		return map[string]cacheEntry{}
	}
	if cf.Entries == nil {
		return map[string]cacheEntry{}
	}
	return cf.Entries
}

// Save rewrites the cache file with entries, guarded by a short-lived
// exclusive lockfile so concurrent jn invocations don't interleave
// writes.
func (c *Cache) Save(entries map[string]cacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return jnerr.NewDiscoveryError(c.Path, "failed to create cache directory", true, err)
	}

	lock, err := acquireLock(c.Path+".lock", 5*time.Second, 30*time.Second)
	if err != nil {
		return jnerr.NewDiscoveryError(c.Path, "failed to acquire cache lock", false, err)
	}
	defer lock.release()

	cf := cacheFile{Version: cacheVersion, Entries: entries}
	data, err := json.Marshal(cf)
	if err != nil {
		return jnerr.NewDiscoveryError(c.Path, "failed to marshal cache", true, err)
	}

	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return jnerr.NewDiscoveryError(c.Path, "failed to write cache", false, err)
	}
	return os.Rename(tmp, c.Path)
}

func (c *Cache) warn(msg string, err error) {
	if c.Log == nil {
		return
	}
	c.Log.With(map[string]any{"path": c.Path, "error": err}).Warn(msg)
}

// fresh reports whether a cached entry is still valid for a candidate
// observed with the given path and modTime.
func (e cacheEntry) fresh(modTime int64) bool {
	return e.ModTime == modTime
}
