package synonyms

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

func TestNewNormalizesAndDedupes(t *testing.T) {
	table := New(Family{Key: "Mega Knight", Variants: []string{"MK", "mega knight", "Mid-Ladder Menace", "mk"}})

	fams := table.Families()
	if len(fams) != 1 {
		t.Fatalf("expected 1 family, got %d", len(fams))
	}
	want := []string{"mega knight", "mk", "midladder menace"}
	if fams[0].Key != "mega knight" {
		t.Errorf("key = %q, want 'mega knight'", fams[0].Key)
	}
	if len(fams[0].Variants) != len(want) {
		t.Fatalf("variants = %v, want %v", fams[0].Variants, want)
	}
	for i := range want {
		if fams[0].Variants[i] != want[i] {
			t.Errorf("variant[%d] = %q, want %q", i, fams[0].Variants[i], want[i])
		}
	}
}

func TestNewMergesRepeatedKeys(t *testing.T) {
	table := New(
		Family{Key: "little prince", Variants: []string{"lp"}},
		Family{Key: "Little Prince", Variants: []string{"prince lp", "lp"}},
	)
	if table.Len() != 1 {
		t.Fatalf("expected repeated keys to merge, got %d families", table.Len())
	}
	if got := table.Families()[0].Variants; len(got) != 3 {
		t.Errorf("expected 3 variants, got %v", got)
	}
}

func TestNewSkipsEmptyKey(t *testing.T) {
	table := New(Family{Key: "!!!", Variants: []string{"x"}})
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d families", table.Len())
	}
}

func TestFamiliesCopy(t *testing.T) {
	table := Default()
	fams := table.Families()
	fams[0].Variants[0] = "mutated"
	if table.Families()[0].Variants[0] == "mutated" {
		t.Error("Families() must return a copy")
	}
}

func TestMatch(t *testing.T) {
	table := Default()

	tests := []struct {
		canonical string
		proposal  string
		wantKey   string
		wantOK    bool
	}{
		{"mega knight balance issues", "mk is too strong", "mega knight", true},
		{"mega knight balance issues", "mid ladder menace again", "mega knight", true},
		{"dagger duchess nerf", "tower troop dd", "dagger duchess", true},
		{"game stability issues", "mk is too strong", "", false},
		{"mega knight balance issues", "", "", false},
		{"goblin queens journey feedback", "goblin queen journey feedback", "goblin queen", true},
	}

	for _, tt := range tests {
		fam, ok := table.Match(tt.canonical, tt.proposal)
		if ok != tt.wantOK || fam.Key != tt.wantKey {
			t.Errorf("Match(%q, %q) = (%q, %v), want (%q, %v)",
				tt.canonical, tt.proposal, fam.Key, ok, tt.wantKey, tt.wantOK)
		}
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if table.Len() != 0 || table.Families() != nil || table.FamiliesFor("x") != nil {
		t.Error("nil table should behave as empty")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")

	content := `families:
  - key: mega knight
    variants: [mk, megaknight]
  - key: hog rider
    variants: [hog, "hog-rider"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 families, got %d", table.Len())
	}
	if _, ok := table.Match("hog rider cycle decks", "hogrider spam"); !ok {
		t.Error("expected 'hogrider' variant to match hog rider family")
	}
}

func TestParseRejectsEmptyKey(t *testing.T) {
	_, err := Parse([]byte("families:\n  - key: \"\"\n    variants: [x]\n"))
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadYAMLMissingFile(t *testing.T) {
	if _, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
