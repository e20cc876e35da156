// Package testutil provides shared test helpers for setting up blueprint stores.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/astra/internal/models"
	"github.com/starford/astra/internal/storage"
)

// TestStore creates a file-backed store in a temporary directory.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestSQLite creates a temporary SQLite store that is closed on cleanup.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "astra-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestApp creates a blueprint with the given extra page names after Home.
func TestApp(t *testing.T, store storage.Store, name string, pages ...string) *models.Blueprint {
	t.Helper()
	ctx := context.Background()
	bp, err := store.Create(ctx, name)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) == 0 {
		return bp
	}
	all := models.ClonePages(bp.Pages)
	for _, p := range pages {
		all = append(all, models.Page{
			ID:         "page_" + models.Slug(p),
			Name:       p,
			Title:      p,
			Path:       models.PagePath(p),
			Components: []models.Component{},
		})
	}
	bp, err = store.Update(ctx, bp.ID, models.Patch{Pages: all})
	if err != nil {
		t.Fatal(err)
	}
	return bp
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
