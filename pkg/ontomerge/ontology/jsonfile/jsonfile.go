// Package jsonfile persists the ontology as a single JSON document.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
)

// Backend stores the ontology at Path.
type Backend struct {
	Path string
	Perm os.FileMode
}

// New returns a backend for path with 0644 permissions.
func New(path string) *Backend {
	return &Backend{Path: path, Perm: 0o644}
}

// Load implements ontology.Backend. A missing file yields an empty snapshot.
func (b *Backend) Load(ctx context.Context) (ontology.Snapshot, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return ontology.Snapshot{}, nil
	}
	if err != nil {
		return ontology.Snapshot{}, fmt.Errorf("read ontology %s: %w", b.Path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ontology.Snapshot{}, nil
	}

	var snap ontology.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ontology.Snapshot{}, fmt.Errorf("decode ontology %s: %w", b.Path, err)
	}
	return snap, nil
}

// Save implements ontology.Backend.
func (b *Backend) Save(ctx context.Context, snap ontology.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ontology: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("indent ontology: %w", err)
	}
	out.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(b.Path), 0o755); err != nil {
		return fmt.Errorf("create ontology dir: %w", err)
	}
	perm := b.Perm
	if perm == 0 {
		perm = 0o644
	}
	return writeFileAtomic(b.Path, out.Bytes(), perm)
}

// Close implements ontology.Backend.
func (b *Backend) Close() error { return nil }

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename, so readers see either the old or the new file.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	// Same directory keeps the rename on one filesystem
	tmpFile, err := os.CreateTemp(dir, ".ontology-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name()) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing to temp file: %w", err)
	}

	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
