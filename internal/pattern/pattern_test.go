package pattern

import "testing"

func TestCompileClassification(t *testing.T) {
	cases := []struct {
		source string
		tag    Tag
		lit    string
	}{
		{"*.csv", TagExtension, "csv"},
		{"data*", TagPrefix, "data"},
		{"*backup", TagSuffix, "backup"},
		{"*tmp*", TagContains, "tmp"},
		{"/^report-\\d+/", TagRegex, "^report-\\d+"},
		{"literal", TagContains, "literal"},
	}
	for _, c := range cases {
		p := Compile(c.source)
		if p.Tag != c.tag {
			t.Fatalf("%q: expected tag %v, got %v", c.source, c.tag, p.Tag)
		}
		if p.Literal != c.lit {
			t.Fatalf("%q: expected literal %q, got %q", c.source, c.lit, p.Literal)
		}
		if p.Specificity != len(c.source) {
			t.Fatalf("%q: expected specificity %d, got %d", c.source, len(c.source), p.Specificity)
		}
	}
}

func TestMatchEachTag(t *testing.T) {
	if !Match(Compile("*.csv"), "data.csv") {
		t.Fatal("expected extension match")
	}
	if Match(Compile("*.csv"), "data.json") {
		t.Fatal("expected extension mismatch")
	}
	if !Match(Compile("data*"), "data.csv") {
		t.Fatal("expected prefix match")
	}
	if !Match(Compile("*backup"), "nightly-backup") {
		t.Fatal("expected suffix match")
	}
	if !Match(Compile("*tmp*"), "a-tmp-file") {
		t.Fatal("expected contains match")
	}
	if !Match(Compile("/^report-\\d+$/"), "report-123") {
		t.Fatal("expected regex match")
	}
	if Match(Compile("/^report-\\d+$/"), "report-abc") {
		t.Fatal("expected regex mismatch")
	}
}

func TestBestSpecificityWins(t *testing.T) {
	candidates := []Candidate{
		{Pattern: Compile("*.csv"), Tier: 0, IsNative: false, Name: "b"},
		{Pattern: Compile("data-*"), Tier: 0, IsNative: false, Name: "a"},
	}
	best := Best(candidates, "data-1.csv")
	if best == nil || best.Name != "a" {
		t.Fatalf("expected longer pattern to win, got %+v", best)
	}
}

func TestBestTierBreaksSpecificityTie(t *testing.T) {
	candidates := []Candidate{
		{Pattern: Compile("*.csv"), Tier: 0, IsNative: false, Name: "system-plugin"},
		{Pattern: Compile("*.csv"), Tier: 2, IsNative: false, Name: "project-plugin"},
	}
	best := Best(candidates, "data.csv")
	if best == nil || best.Name != "project-plugin" {
		t.Fatalf("expected higher tier to win, got %+v", best)
	}
}

func TestBestNativeBreaksTierTie(t *testing.T) {
	candidates := []Candidate{
		{Pattern: Compile("*.csv"), Tier: 0, IsNative: false, Name: "scripted-plugin"},
		{Pattern: Compile("*.csv"), Tier: 0, IsNative: true, Name: "native-plugin"},
	}
	best := Best(candidates, "data.csv")
	if best == nil || best.Name != "native-plugin" {
		t.Fatalf("expected native to win, got %+v", best)
	}
}

func TestBestNameBreaksFinalTie(t *testing.T) {
	candidates := []Candidate{
		{Pattern: Compile("*.csv"), Tier: 0, IsNative: false, Name: "zeta"},
		{Pattern: Compile("*.csv"), Tier: 0, IsNative: false, Name: "alpha"},
	}
	best := Best(candidates, "data.csv")
	if best == nil || best.Name != "alpha" {
		t.Fatalf("expected smallest name to win, got %+v", best)
	}
}

func TestBestNoMatch(t *testing.T) {
	candidates := []Candidate{{Pattern: Compile("*.csv"), Name: "a"}}
	if Best(candidates, "data.json") != nil {
		t.Fatal("expected no match")
	}
}
