package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jn-toolkit/jn/internal/address"
	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/record"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestLoadEnvSubstitution: a profile whose
// merged document contains "Authorization": "Bearer ${API_TOKEN}" resolves
// to "Bearer abc" with no leftover "$" in the serialized result.
func TestLoadEnvSubstitution(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "myapi", "users.json"), `{
		"base_url": "https://api.example.com",
		"headers": {"Authorization": "Bearer ${API_TOKEN}"}
	}`)

	s := &Store{ProjectDirs: []string{root}}
	lookup := func(name string) (string, bool) {
		if name == "API_TOKEN" {
			return "abc", true
		}
		return "", false
	}

	doc, err := s.loadMerged(address.ProfileRef{Namespace: "myapi", Name: "users"})
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := Interpolate(doc, lookup)
	if err != nil {
		t.Fatal(err)
	}

	headers, ok := resolved.Field("headers")
	if !ok {
		t.Fatalf("expected headers field in %v", resolved)
	}
	auth, ok := headers.Field("Authorization")
	if !ok || auth.Str() != "Bearer abc" {
		t.Fatalf("expected Authorization = %q, got %q (ok=%v)", "Bearer abc", auth.Str(), ok)
	}

	serialized := string(ndjson.Marshal(resolved))
	if strings.Contains(serialized, "$") {
		t.Fatalf("serialized profile still contains '$': %s", serialized)
	}
}

// TestLoadMissingRequiredVarErrors confirms an unresolved required
// placeholder (no default) is a hard error rather than silently left
// in place.
func TestLoadMissingRequiredVarErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "myapi", "users.json"), `{"token": "${API_TOKEN}"}`)

	s := &Store{ProjectDirs: []string{root}}
	doc, err := s.loadMerged(address.ProfileRef{Namespace: "myapi", Name: "users"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Interpolate(doc, func(string) (string, bool) { return "", false })
	if err == nil {
		t.Fatal("expected error for missing required environment variable")
	}
}

// TestLoadDefaultValue covers ${VAR:-default} when the variable is unset.
func TestLoadDefaultValue(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "myapi", "users.json"), `{"region": "${REGION:-us-east-1}"}`)

	s := &Store{ProjectDirs: []string{root}}
	doc, err := s.loadMerged(address.ProfileRef{Namespace: "myapi", Name: "users"})
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := Interpolate(doc, func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatal(err)
	}
	region, _ := resolved.Field("region")
	if region.Str() != "us-east-1" {
		t.Fatalf("expected default region, got %q", region.Str())
	}
}

// TestInterpolateEscapedDollar: "$$" stands for a literal "$", and an
// escaped "$${FOO}" must come out as the literal text "${FOO}" rather
// than being expanded by a later substitution pass.
func TestInterpolateEscapedDollar(t *testing.T) {
	doc, err := ndjson.Decode([]byte(`{"price": "$$5", "raw": "$${FOO}", "expanded": "${FOO}"}`), record.NewArena())
	if err != nil {
		t.Fatal(err)
	}
	lookup := func(name string) (string, bool) {
		if name == "FOO" {
			return "bar", true
		}
		return "", false
	}
	resolved, err := Interpolate(doc, lookup)
	if err != nil {
		t.Fatal(err)
	}
	price, _ := resolved.Field("price")
	if price.Str() != "$5" {
		t.Fatalf("expected $5, got %q", price.Str())
	}
	raw, _ := resolved.Field("raw")
	if raw.Str() != "${FOO}" {
		t.Fatalf("expected literal ${FOO}, got %q", raw.Str())
	}
	expanded, _ := resolved.Field("expanded")
	if expanded.Str() != "bar" {
		t.Fatalf("expected bar, got %q", expanded.Str())
	}
}

// TestLoadHierarchicalMetaMerge exercises the deep-merge chain: a
// namespace-level _meta.json is overridden by the leaf profile document,
// objects merge recursively, arrays/scalars replace wholesale.
func TestLoadHierarchicalMetaMerge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "myapi", "_meta.json"), `{
		"base_url": "https://api.example.com",
		"headers": {"Accept": "application/json"},
		"tags": ["a", "b"]
	}`)
	writeFile(t, filepath.Join(root, "myapi", "users.json"), `{
		"headers": {"Authorization": "Bearer ${API_TOKEN}"},
		"tags": ["c"]
	}`)

	s := &Store{ProjectDirs: []string{root}}
	doc, err := s.loadMerged(address.ProfileRef{Namespace: "myapi", Name: "users"})
	if err != nil {
		t.Fatal(err)
	}

	baseURL, _ := doc.Field("base_url")
	if baseURL.Str() != "https://api.example.com" {
		t.Fatalf("expected base_url inherited from _meta.json, got %q", baseURL.Str())
	}

	headers, _ := doc.Field("headers")
	accept, ok := headers.Field("Accept")
	if !ok || accept.Str() != "application/json" {
		t.Fatalf("expected Accept header merged in from _meta.json, got ok=%v val=%q", ok, accept.Str())
	}
	auth, ok := headers.Field("Authorization")
	if !ok || auth.Str() != "Bearer ${API_TOKEN}" {
		t.Fatalf("expected Authorization from leaf document, got ok=%v val=%q", ok, auth.Str())
	}

	tags, _ := doc.Field("tags")
	if tags.Kind() != record.KindArray || len(tags.Array()) != 1 || tags.Array()[0].Str() != "c" {
		t.Fatalf("expected tags array replaced wholesale by leaf, got %v", tags)
	}
}

// TestLoadCallerParamsOverrideProfile confirms caller-supplied params win
// over anything the profile itself declares under "params".
func TestLoadCallerParamsOverrideProfile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "myapi", "users.json"), `{"params": {"region": "us-east-1"}}`)

	s := &Store{ProjectDirs: []string{root}}
	resolved, err := s.Load(address.ProfileRef{Namespace: "myapi", Name: "users"}, []address.KV{
		{Key: "region", Value: "eu-west-1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	params, ok := resolved.Field("params")
	if !ok {
		t.Fatal("expected params field")
	}
	region, _ := params.Field("region")
	if region.Str() != "eu-west-1" {
		t.Fatalf("expected caller param to win, got %q", region.Str())
	}
}

// TestLoadProjectBeatsUser confirms project-tier profiles shadow
// identically-named user-tier profiles.
func TestLoadProjectBeatsUser(t *testing.T) {
	projectRoot := t.TempDir()
	userRoot := t.TempDir()
	writeFile(t, filepath.Join(projectRoot, "myapi", "users.json"), `{"source": "project"}`)
	writeFile(t, filepath.Join(userRoot, "myapi", "users.json"), `{"source": "user"}`)

	s := &Store{ProjectDirs: []string{projectRoot}, UserDir: userRoot}
	doc, err := s.loadMerged(address.ProfileRef{Namespace: "myapi", Name: "users"})
	if err != nil {
		t.Fatal(err)
	}
	source, _ := doc.Field("source")
	if source.Str() != "project" {
		t.Fatalf("expected project tier to win, got %q", source.Str())
	}
}

func TestLoadNotFound(t *testing.T) {
	s := &Store{ProjectDirs: []string{t.TempDir()}}
	_, err := s.loadMerged(address.ProfileRef{Namespace: "missing", Name: "nope"})
	if err == nil {
		t.Fatal("expected error for unresolvable profile reference")
	}
}
