// Copyright 2025 The mcpkit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlitefs serves MCP resources out of a local sqlite database. It
// backs the "sqlitefs" resource kind of the components config file.
package sqlitefs

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
	name      TEXT PRIMARY KEY,
	mime_type TEXT NOT NULL DEFAULT 'text/plain',
	text      TEXT,
	blob      BLOB
);`

// Entry describes one stored resource.
type Entry struct {
	Name     string
	MimeType string
}

// Store is a sqlite-backed resource collection. It is safe for concurrent
// use; database/sql serializes access to the underlying connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database at %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ensure resources schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Read returns the contents of the named resource. Exactly one of text and
// blob is non-empty. sql.ErrNoRows is returned for unknown names.
func (s *Store) Read(ctx context.Context, name string) (mimeType string, text string, blob []byte, err error) {
	var textCol sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT mime_type, text, blob FROM resources WHERE name = ?`, name)
	if err := row.Scan(&mimeType, &textCol, &blob); err != nil {
		return "", "", nil, err
	}
	if textCol.Valid {
		text = textCol.String
	}
	return mimeType, text, blob, nil
}

// Put inserts or replaces a resource. Pass either text or blob, not both.
func (s *Store) Put(ctx context.Context, name, mimeType, text string, blob []byte) error {
	if text != "" && blob != nil {
		return fmt.Errorf("resource %q must carry either text or blob, not both", name)
	}
	var textCol any
	if text != "" {
		textCol = text
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO resources (name, mime_type, text, blob) VALUES (?, ?, ?, ?)`,
		name, mimeType, textCol, blob)
	if err != nil {
		return fmt.Errorf("unable to store resource %q: %w", name, err)
	}
	return nil
}

// List returns all stored resources ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, mime_type FROM resources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("unable to list resources: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.MimeType); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Complete returns stored names starting with prefix, for argument
// completion.
func (s *Store) Complete(ctx context.Context, prefix string) ([]string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name, prefix) {
			names = append(names, e.Name)
		}
	}
	return names, nil
}
