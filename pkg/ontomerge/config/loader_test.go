package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
	"github.com/cognicore/ontomerge/pkg/ontomerge/label"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology/jsonfile"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology/memstore"
	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology/sqlite"
	"github.com/cognicore/ontomerge/pkg/ontomerge/synonyms"
)

func TestLoaderAllEmpty(t *testing.T) {
	comp, err := Loader{}.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Synonyms == nil || comp.Synonyms.Len() == 0 {
		t.Error("Should fall back to built-in synonyms")
	}
	if len(comp.Rules.Rules) != len(label.DefaultRules().Rules) {
		t.Error("Should fall back to built-in rules")
	}
}

func TestLoaderNonExistentFiles(t *testing.T) {
	if _, err := (Loader{SynonymsPath: "/nonexistent/synonyms.yaml"}).Load(); err == nil {
		t.Error("Should error on nonexistent synonyms file")
	}
	if _, err := (Loader{RulesPath: "/nonexistent/rules.yaml"}).Load(); err == nil {
		t.Error("Should error on nonexistent rules file")
	}
}

func TestLoaderValidFiles(t *testing.T) {
	tmpDir := t.TempDir()
	synPath := filepath.Join(tmpDir, "synonyms.yaml")
	rulesPath := filepath.Join(tmpDir, "rules.yaml")

	if err := os.WriteFile(synPath, []byte("families:\n  - key: hog rider\n    variants: [hog, hr]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rules := `rules:
  - name: hog
    keywords: [hog]
    topic: Hog Rider Feedback
    confidence: 0.8
fallback:
  topic: General Gameplay Feedback
  confidence: 0.6
`
	if err := os.WriteFile(rulesPath, []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Synonyms = synPath
	cfg.Rules = rulesPath
	comp, err := NewLoader(cfg).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.Synonyms.Len() != 1 {
		t.Errorf("Expected 1 synonym family, got %d", comp.Synonyms.Len())
	}
	if len(comp.Rules.Rules) != 1 || comp.Rules.Rules[0].Topic != "Hog Rider Feedback" {
		t.Errorf("Unexpected rules %+v", comp.Rules)
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBackend(ctx, OntologyConfig{Backend: BackendJSON, Path: filepath.Join(dir, "ontology.json")})
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if _, ok := b.(*jsonfile.Backend); !ok {
		t.Errorf("expected jsonfile backend, got %T", b)
	}

	b, err = OpenBackend(ctx, OntologyConfig{Backend: BackendSQLite, Path: filepath.Join(dir, "ontology.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	if _, ok := b.(*sqlite.Backend); !ok {
		t.Errorf("expected sqlite backend, got %T", b)
	}
	b.Close()

	b, err = OpenBackend(ctx, OntologyConfig{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := b.(*memstore.Backend); !ok {
		t.Errorf("expected memstore backend, got %T", b)
	}

	if _, err := OpenBackend(ctx, OntologyConfig{Backend: "etcd"}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewLabeler(t *testing.T) {
	l, err := NewLabeler(LabelerConfig{Kind: LabelerRules}, label.DefaultRules())
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if _, ok := l.(*label.RuleLabeler); !ok {
		t.Errorf("expected rule labeler, got %T", l)
	}

	if _, err := NewLabeler(LabelerConfig{Kind: LabelerRules}, label.RuleSet{}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("rule labeler without fallback should fail, got %v", err)
	}

	cfg := Default().Labeler
	cfg.Kind = LabelerLLM
	l, err = NewLabeler(cfg, label.RuleSet{})
	if err != nil {
		t.Fatalf("llm: %v", err)
	}
	if _, ok := l.(*label.LLMLabeler); !ok {
		t.Errorf("expected llm labeler, got %T", l)
	}

	if _, err := NewLabeler(LabelerConfig{Kind: "oracle"}, label.DefaultRules()); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestShippedConfigsMatchBuiltins(t *testing.T) {
	comp, err := Loader{
		SynonymsPath: "../../../configs/synonyms.yaml",
		RulesPath:    "../../../configs/rules.yaml",
	}.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(comp.Synonyms.Families(), synonyms.Default().Families()) {
		t.Errorf("configs/synonyms.yaml diverged from the built-in table:\n%+v", comp.Synonyms.Families())
	}
	if !reflect.DeepEqual(comp.Rules, label.DefaultRules()) {
		t.Errorf("configs/rules.yaml diverged from the built-in rules:\n%+v", comp.Rules)
	}
}
