package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cognicore/ontomerge/pkg/ontomerge/ontology"
)

// Backend persists the ontology in a SQLite database.
type Backend struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and creates the schema.
func Open(ctx context.Context, path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Backend{db: db}, nil
}

// Close closes the database connection
func (b *Backend) Close() error {
	return b.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS topics (
	name TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	first_seen TEXT
);

CREATE TABLE IF NOT EXISTS aliases (
	topic TEXT NOT NULL,
	position INTEGER NOT NULL,
	alias TEXT NOT NULL,
	PRIMARY KEY(topic, position),
	FOREIGN KEY(topic) REFERENCES topics(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_aliases_alias ON aliases(alias);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Load implements ontology.Backend. An empty database yields an empty
// snapshot.
func (b *Backend) Load(ctx context.Context) (ontology.Snapshot, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT name, first_seen FROM topics ORDER BY position`)
	if err != nil {
		return ontology.Snapshot{}, err
	}
	defer rows.Close()

	var snap ontology.Snapshot
	index := make(map[string]int)
	for rows.Next() {
		var (
			name      string
			firstSeen sql.NullString
		)
		if err := rows.Scan(&name, &firstSeen); err != nil {
			return ontology.Snapshot{}, err
		}
		topic := ontology.Topic{Name: name, Aliases: []string{}}
		if firstSeen.Valid && firstSeen.String != "" {
			topic.FirstSeen, err = ontology.ParseDate(firstSeen.String)
			if err != nil {
				return ontology.Snapshot{}, fmt.Errorf("topic %q: %w", name, err)
			}
		}
		index[name] = len(snap.Topics)
		snap.Topics = append(snap.Topics, topic)
	}
	if err := rows.Err(); err != nil {
		return ontology.Snapshot{}, err
	}

	aliasRows, err := b.db.QueryContext(ctx, `SELECT topic, alias FROM aliases ORDER BY topic, position`)
	if err != nil {
		return ontology.Snapshot{}, err
	}
	defer aliasRows.Close()

	for aliasRows.Next() {
		var topic, alias string
		if err := aliasRows.Scan(&topic, &alias); err != nil {
			return ontology.Snapshot{}, err
		}
		i, ok := index[topic]
		if !ok {
			continue
		}
		snap.Topics[i].Aliases = append(snap.Topics[i].Aliases, alias)
	}
	return snap, aliasRows.Err()
}

// Save implements ontology.Backend. The whole state is replaced inside one
// transaction, so readers see either the old or the new ontology.
func (b *Backend) Save(ctx context.Context, snap ontology.Snapshot) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM aliases`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM topics`); err != nil {
		return err
	}

	topicStmt, err := tx.PrepareContext(ctx, `INSERT INTO topics (name, position, first_seen) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer topicStmt.Close()

	aliasStmt, err := tx.PrepareContext(ctx, `INSERT INTO aliases (topic, position, alias) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer aliasStmt.Close()

	for pos, t := range snap.Topics {
		var firstSeen sql.NullString
		if !t.FirstSeen.IsZero() {
			firstSeen = sql.NullString{String: t.FirstSeen.Format(ontology.DateLayout), Valid: true}
		}
		if _, err := topicStmt.ExecContext(ctx, t.Name, pos, firstSeen); err != nil {
			return fmt.Errorf("insert topic %q: %w", t.Name, err)
		}
		for apos, alias := range t.Aliases {
			if _, err := aliasStmt.ExecContext(ctx, t.Name, apos, alias); err != nil {
				return fmt.Errorf("insert alias %q: %w", alias, err)
			}
		}
	}

	return tx.Commit()
}
