// Package synonyms holds the curated synonym-family table used to recognize
// slang and abbreviations for known topics.
package synonyms

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
	"github.com/cognicore/ontomerge/pkg/ontomerge/normalize"
)

// Family is a group of variant phrases for one topic concept.
//
// Key is a normalized substring expected inside canonical topic names
// (e.g. "mega knight"). Variants are normalized phrases that, when found in a
// proposed label, tie it to a topic whose name contains Key. Key is always the
// first variant.
type Family struct {
	Key      string
	Variants []string
}

// Table is an ordered, read-only list of synonym families.
type Table struct {
	families []Family
}

// New builds a table from families. Keys and variants are normalized, the key
// is placed first in its own variant list, and duplicates are dropped. A
// family whose key normalizes to "" is skipped. Repeated keys merge into the
// first family with that key.
func New(families ...Family) *Table {
	t := &Table{}
	index := make(map[string]int)

	for _, f := range families {
		key := normalize.Normalize(f.Key)
		if key == "" {
			continue
		}

		pos, exists := index[key]
		if !exists {
			pos = len(t.families)
			index[key] = pos
			t.families = append(t.families, Family{Key: key, Variants: []string{key}})
		}

		fam := &t.families[pos]
		seen := make(map[string]bool, len(fam.Variants))
		for _, v := range fam.Variants {
			seen[v] = true
		}
		for _, v := range f.Variants {
			v = normalize.Normalize(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			fam.Variants = append(fam.Variants, v)
		}
	}
	return t
}

// Default returns the curated families shipped with ontomerge.
func Default() *Table {
	return New(
		Family{Key: "mega knight", Variants: []string{"mk", "mega knight", "mid ladder menace"}},
		Family{Key: "dagger duchess", Variants: []string{"dd", "dagger duchess", "tower troop dd"}},
		Family{Key: "little prince", Variants: []string{"lp", "little prince"}},
		Family{Key: "goblin queen", Variants: []string{"goblin queen", "gq"}},
	)
}

type fileFormat struct {
	Families []struct {
		Key      string   `yaml:"key"`
		Variants []string `yaml:"variants"`
	} `yaml:"families"`
}

// LoadYAML loads a table from a YAML file.
//
// Expected format:
//
//	families:
//	  - key: mega knight
//	    variants: [mk, mid ladder menace]
//	  - key: little prince
//	    variants: [lp]
func LoadYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML synonym table.
func Parse(data []byte) (*Table, error) {
	var cfg fileFormat
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}

	families := make([]Family, 0, len(cfg.Families))
	for i, f := range cfg.Families {
		if normalize.Normalize(f.Key) == "" {
			return nil, fmt.Errorf("synonym family %d: empty key: %w", i, internalerr.ErrInvalidConfig)
		}
		families = append(families, Family{Key: f.Key, Variants: f.Variants})
	}
	return New(families...), nil
}

// Families returns a copy of all families in table order.
func (t *Table) Families() []Family {
	if t == nil {
		return nil
	}
	out := make([]Family, len(t.families))
	for i, f := range t.families {
		out[i] = Family{Key: f.Key, Variants: append([]string(nil), f.Variants...)}
	}
	return out
}

// FamiliesFor returns the families whose key occurs in the normalized
// canonical name, in table order. The returned families share storage with
// the table and must not be modified.
func (t *Table) FamiliesFor(normalizedCanonical string) []Family {
	if t == nil || normalizedCanonical == "" {
		return nil
	}
	var out []Family
	for _, f := range t.families {
		if strings.Contains(normalizedCanonical, f.Key) {
			out = append(out, f)
		}
	}
	return out
}

// Match reports the first family tying a normalized proposal to a normalized
// canonical name: the family key must occur in the canonical name and one of
// its variants in the proposal.
func (t *Table) Match(normalizedCanonical, normalizedProposal string) (Family, bool) {
	if normalizedProposal == "" {
		return Family{}, false
	}
	for _, f := range t.FamiliesFor(normalizedCanonical) {
		for _, v := range f.Variants {
			if strings.Contains(normalizedProposal, v) {
				return f, true
			}
		}
	}
	return Family{}, false
}

// Len returns the number of families.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.families)
}
