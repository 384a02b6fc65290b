package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
)

func TestLoadMissingFile(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "data", "ontology.json"))
	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Topics) != 0 {
		t.Fatalf("expected empty ontology, got %d topics", len(snap.Topics))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "ontology.json")
	b := New(path)

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	want := ontology.Snapshot{Topics: []ontology.Topic{
		{Name: "Zeta Topic", Aliases: []string{}, FirstSeen: day},
		{Name: "Mega Knight Balance Issues", Aliases: []string{"MK is too strong", "Mega Knight OP"}, FirstSeen: day},
		{Name: "Alpha Topic", Aliases: []string{"\"quoted\" <alias>"}, FirstSeen: day.AddDate(0, 0, 5)},
	}}

	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestSaveLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ontology.json")
	b := New(path)

	snap := ontology.Snapshot{Topics: []ontology.Topic{
		{Name: "Game Stability Issues", Aliases: []string{"crashes"}, FirstSeen: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)},
	}}
	if err := b.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := `{
  "Game Stability Issues": {
    "aliases": [
      "crashes"
    ],
    "first_seen": "2024-06-02"
  }
}
`
	if string(data) != want {
		t.Fatalf("unexpected layout:\n%s", data)
	}
}

func TestLoadLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.json")
	legacy := `{
  "Mega Knight Balance Issues": {"aliases": ["MK is too strong"], "first_seen": "2024-06-01"},
  "Game Stability Issues": {"aliases": [], "first_seen": "2024-06-03"}
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	snap, err := New(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(snap.Topics))
	}
	if snap.Topics[0].Name != "Mega Knight Balance Issues" || snap.Topics[1].Name != "Game Stability Issues" {
		t.Errorf("file order not preserved: %+v", snap.Topics)
	}
	if got := snap.Topics[1].FirstSeen.Format(ontology.DateLayout); got != "2024-06-03" {
		t.Errorf("first_seen = %s", got)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ontology.json")
	if err := os.WriteFile(path, []byte(`{"broken": `), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path).Load(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b := New(filepath.Join(dir, "ontology.json"))
	for i := 0; i < 3; i++ {
		if err := b.Save(context.Background(), ontology.Snapshot{Topics: []ontology.Topic{{Name: "A"}}}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected only ontology.json, got %d entries", len(entries))
	}
}

func TestSaveFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ontology.json")
	b := New(path)
	if err := b.Save(context.Background(), ontology.Snapshot{Topics: []ontology.Topic{{Name: "Kept"}}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Save(ctx, ontology.Snapshot{}); err == nil {
		t.Fatal("expected error from cancelled context")
	}

	snap, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Topics) != 1 || snap.Topics[0].Name != "Kept" {
		t.Errorf("previous state lost: %+v", snap)
	}
}
