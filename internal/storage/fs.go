package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/astra/internal/apperr"
	"github.com/starford/astra/internal/models"
)

const (
	blueprintExt = ".json"
	tmpPattern   = ".astra-tmp-*"
)

// FS implements Store with one JSON document per blueprint.
type FS struct {
	root   string // absolute path to the blueprint directory
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex
}

var _ Store = (*FS)(nil)

// NewFS creates a file-backed store rooted at the given directory.
// The directory is created if missing.
func NewFS(root string, opts ...Option) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	o := buildOptions(opts)
	return &FS{root: abs, now: o.now, logger: o.logger}, nil
}

// Root returns the absolute blueprint directory.
func (f *FS) Root() string {
	return f.root
}

// Create implements Store.
func (f *FS) Create(_ context.Context, name string) (*models.Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(all))
	for i, b := range all {
		names[i] = b.Name
	}

	b := newBlueprint(name, names, f.now().UTC())
	if err := f.write(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Get implements Store.
func (f *FS) Get(_ context.Context, id string) (*models.Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := f.read(id)
	if err != nil {
		return nil, err
	}
	if heal(b, f.now().UTC()) {
		if err := f.write(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Update implements Store.
func (f *FS) Update(_ context.Context, id string, p models.Patch) (*models.Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := f.read(id)
	if err != nil {
		return nil, err
	}
	p.Apply(b)
	b.UpdatedAt = f.now().UTC()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("storage: update %s: %w: %v", id, apperr.ErrInvalidInput, err)
	}
	if err := f.write(b); err != nil {
		return nil, err
	}
	return b, nil
}

// List implements Store.
func (f *FS) List(_ context.Context) ([]models.Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	sortByUpdated(all)
	return all, nil
}

// Delete implements Store.
func (f *FS) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	return nil
}

// Close implements Store.
func (f *FS) Close() error { return nil }

// pathFor maps an id to its document path, rejecting ids that could escape
// the root.
func (f *FS) pathFor(id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("storage: invalid id %q: %w", id, apperr.ErrNotFound)
	}
	return filepath.Join(f.root, id+blueprintExt), nil
}

func (f *FS) read(id string) (*models.Blueprint, error) {
	path, err := f.pathFor(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", id, err)
	}
	var b models.Blueprint
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", id, err)
	}
	return &b, nil
}

func (f *FS) readAll() ([]models.Blueprint, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := make([]models.Blueprint, 0, len(entries))
	for _, e := range entries {
		id, ok := idFromFilename(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		b, err := f.read(id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			// Unreadable documents stay reachable through Get.
			f.logger.Warn("skipping blueprint", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

// write atomically replaces the blueprint document: tmp file → fsync → rename.
func (f *FS) write(b *models.Blueprint) error {
	path, err := f.pathFor(b.ID)
	if err != nil {
		return err
	}
	content, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", b.ID, err)
	}

	tmp, err := os.CreateTemp(f.root, tmpPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// idFromFilename returns the blueprint id for a document file name. Hidden
// files (including in-flight temp files) are skipped.
func idFromFilename(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, blueprintExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, blueprintExt)
	return id, validID(id)
}
