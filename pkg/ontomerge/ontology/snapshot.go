package ontology

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cognicore/ontomerge/pkg/ontomerge/internalerr"
)

type topicJSON struct {
	Aliases   []string `json:"aliases"`
	FirstSeen string   `json:"first_seen"`
}

// MarshalJSON encodes the snapshot as an object keyed by canonical name:
//
//	{"Mega Knight Balance Issues": {"aliases": ["MK is too strong"], "first_seen": "2024-06-01"}}
//
// Keys are written in insertion order so the file diffs cleanly and reloads
// in the same order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range s.Topics {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.Name)
		if err != nil {
			return nil, err
		}
		aliases := t.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		val, err := json.Marshal(topicJSON{Aliases: aliases, FirstSeen: formatDate(t)})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the layout written by MarshalJSON, keeping key order.
// A JSON null decodes to an empty snapshot.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	s.Topics = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ontology snapshot: expected object, got %v: %w", tok, internalerr.ErrInvalidInput)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ontology snapshot: expected topic name, got %v: %w", tok, internalerr.ErrInvalidInput)
		}

		var raw topicJSON
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("ontology snapshot: topic %q: %w", name, err)
		}

		topic := Topic{Name: name, Aliases: raw.Aliases}
		if topic.Aliases == nil {
			topic.Aliases = []string{}
		}
		if raw.FirstSeen != "" {
			topic.FirstSeen, err = ParseDate(raw.FirstSeen)
			if err != nil {
				return fmt.Errorf("ontology snapshot: topic %q: %w", name, err)
			}
		}
		s.Topics = append(s.Topics, topic)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func formatDate(t Topic) string {
	if t.FirstSeen.IsZero() {
		return ""
	}
	return t.FirstSeen.Format(DateLayout)
}
