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

package sqlitefs

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "resources.db"))
	if err != nil {
		t.Fatalf("unable to open store: %s", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutAndRead(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	if err := store.Put(ctx, "readme", "text/markdown", "# hello", nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := store.Put(ctx, "icon", "image/png", "", []byte{0x89, 0x50}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	mime, text, blob, err := store.Read(ctx, "readme")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if mime != "text/markdown" || text != "# hello" || len(blob) != 0 {
		t.Errorf("unexpected read result: %q %q %v", mime, text, blob)
	}

	mime, text, blob, err = store.Read(ctx, "icon")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if mime != "image/png" || text != "" || len(blob) != 2 {
		t.Errorf("unexpected read result: %q %q %v", mime, text, blob)
	}
}

func TestReadUnknownName(t *testing.T) {
	store := openTestStore(t)
	_, _, _, err := store.Read(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestPutRejectsTextAndBlob(t *testing.T) {
	store := openTestStore(t)
	if err := store.Put(context.Background(), "x", "text/plain", "a", []byte("b")); err == nil {
		t.Error("text and blob together must be rejected")
	}
}

func TestPutReplaces(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if err := store.Put(ctx, "note", "text/plain", "v1", nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := store.Put(ctx, "note", "text/plain", "v2", nil); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	_, text, _, err := store.Read(ctx, "note")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if text != "v2" {
		t.Errorf("text = %q, want v2", text)
	}
}

func TestListAndComplete(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	for _, name := range []string{"logs-today", "logs-yesterday", "notes"} {
		if err := store.Put(ctx, name, "text/plain", "x", nil); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"logs-today", "logs-yesterday", "notes"}, names); diff != "" {
		t.Errorf("unexpected list order (-want +got):\n%s", diff)
	}

	matches, err := store.Complete(ctx, "logs-")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if diff := cmp.Diff([]string{"logs-today", "logs-yesterday"}, matches); diff != "" {
		t.Errorf("unexpected completions (-want +got):\n%s", diff)
	}
}
