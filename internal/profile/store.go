package profile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jn-toolkit/jn/internal/address"
	"github.com/jn-toolkit/jn/internal/jnenv"
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/record"
)

// ProfileProvider is implemented by the plugin registry to supply the
// plugin-bundled and plugin-discovered search tiers: a late-binding
// interface seam so the two packages don't import each other directly.
type ProfileProvider interface {
	ListProfiles(namespace string) ([]record.Record, error)
	InfoProfile(ref string) (record.Record, bool, error)
}

// Store resolves @namespace/name references across the project, user and
// system ($JN_HOME) profile directories, then the namespace's
// ProfileProvider (the plugin tiers).
type Store struct {
	ProjectDirs []string // e.g. <cwd-ancestors>/.jn/profiles
	UserDir     string   // ~/.local/jn/profiles
	SystemDir   string   // $JN_HOME/profiles
	Providers   map[string]ProfileProvider
}

// NewStore builds a Store from the standard jnenv search paths.
func NewStore() *Store {
	s := &Store{Providers: map[string]ProfileProvider{}}
	for _, proj := range jnenv.ProjectRoots("") {
		s.ProjectDirs = append(s.ProjectDirs, filepath.Join(proj, "profiles"))
	}
	if uh := jnenv.UserHome(); uh != "" {
		s.UserDir = filepath.Join(uh, "profiles")
	}
	s.SystemDir = filepath.Join(jnenv.Home(), "profiles")
	return s
}

// Load resolves ref (with optional caller-supplied params merged in after
// interpolation, caller wins) into a fully interpolated Record.
func (s *Store) Load(ref address.ProfileRef, callerParams []address.KV) (record.Record, error) {
	doc, err := s.loadMerged(ref)
	if err != nil {
		return record.Null, err
	}

	resolved, err := Interpolate(doc, osLookup)
	if err != nil {
		return record.Null, err
	}

	if len(callerParams) > 0 {
		resolved = mergeCallerParams(resolved, callerParams)
	}
	return resolved, nil
}

func osLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

func mergeCallerParams(doc record.Record, params []address.KV) record.Record {
	m := record.NewOrderedMap(doc.Object().Len())
	if doc.Kind() == record.KindObject {
		doc.Object().Each(func(k string, v record.Record) bool {
			m.Set(k, v)
			return true
		})
	}
	paramsRec, ok := m.Get("params")
	paramsMap := record.NewOrderedMap(len(params))
	if ok && paramsRec.Kind() == record.KindObject {
		paramsRec.Object().Each(func(k string, v record.Record) bool {
			paramsMap.Set(k, v)
			return true
		})
	}
	for _, kv := range params {
		paramsMap.Set(kv.Key, record.String(kv.Value)) // caller wins
	}
	m.Set("params", record.Object(paramsMap))
	return record.Object(m)
}

// loadMerged walks the tiers in precedence order, returning the first hit,
// deep-merged down its own directory chain.
func (s *Store) loadMerged(ref address.ProfileRef) (record.Record, error) {
	for _, root := range s.ProjectDirs {
		if doc, ok, err := loadFromDir(root, ref); err != nil {
			return record.Null, err
		} else if ok {
			return doc, nil
		}
	}
	if s.UserDir != "" {
		if doc, ok, err := loadFromDir(s.UserDir, ref); err != nil {
			return record.Null, err
		} else if ok {
			return doc, nil
		}
	}
	if s.SystemDir != "" {
		if doc, ok, err := loadFromDir(s.SystemDir, ref); err != nil {
			return record.Null, err
		} else if ok {
			return doc, nil
		}
	}
	if p, ok := s.Providers[ref.Namespace]; ok {
		if doc, found, err := p.InfoProfile("@" + ref.Namespace + "/" + ref.Name); err != nil {
			return record.Null, err
		} else if found {
			return doc, nil
		}
	}
	return record.Null, jnerr.NewProfileError("@"+ref.Namespace+"/"+ref.Name, "profile not found", nil)
}

func loadFromDir(root string, ref address.ProfileRef) (record.Record, bool, error) {
	nsDir := filepath.Join(root, ref.Namespace)
	leafPath := filepath.Join(nsDir, ref.Name+".json")
	if _, err := os.Stat(leafPath); err != nil {
		return record.Null, false, nil
	}

	chain, err := metaChain(root, nsDir)
	if err != nil {
		return record.Null, false, err
	}

	var merged record.Record = record.Object(record.NewOrderedMap(0))
	for _, metaPath := range chain {
		doc, err := loadJSONFile(metaPath)
		if err != nil {
			return record.Null, false, err
		}
		merged = Merge(merged, doc)
	}

	leaf, err := loadJSONFile(leafPath)
	if err != nil {
		return record.Null, false, err
	}
	merged = Merge(merged, leaf)
	return merged, true, nil
}

// metaChain collects every _meta.json from root down to nsDir (inclusive),
// outermost first, so the innermost _meta.json is merged last and wins on
// conflict. The walk never leaves root, so namespaces nested several levels
// deep (e.g. "myapi/v2") don't probe _meta.json outside the profiles tree.
func metaChain(root, nsDir string) ([]string, error) {
	var levels []string
	cur := nsDir
	for {
		levels = append(levels, cur)
		if cur == root {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur || !strings.HasPrefix(cur, root) {
			break
		}
		cur = parent
	}
	var chain []string
	for i := len(levels) - 1; i >= 0; i-- {
		metaPath := filepath.Join(levels[i], "_meta.json")
		if _, err := os.Stat(metaPath); err == nil {
			chain = append(chain, metaPath)
		}
	}
	return chain, nil
}

func loadJSONFile(path string) (record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.Null, jnerr.NewProfileError(path, "failed to read profile document", err)
	}
	arena := record.NewArena()
	rec, err := ndjson.Decode(data, arena)
	if err != nil {
		return record.Null, jnerr.NewProfileError(path, "invalid JSON", err)
	}
	return rec.Clone(), nil
}
