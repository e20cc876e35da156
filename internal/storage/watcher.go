package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/astra/internal/checksum"
)

// Change kinds reported by Watch.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// ChangeFunc is called after the watcher observes a blueprint change.
type ChangeFunc func(kind, id string)

const reconcileDelay = 200 * time.Millisecond

// Watch observes the blueprint directory of an FS store and reports
// out-of-band edits until ctx is cancelled. Content is compared by checksum,
// so repeated write events for identical bytes are reported once.
//
// Rename events schedule a debounced rescan of the directory that reports
// blueprints that appeared or vanished in the meantime.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb ChangeFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	seen := scan(root)
	logger.Info("watcher: started", slog.String("root", root), slog.Int("apps", len(seen)))

	notify := func(kind, id string) {
		logger.Debug("watcher: change", slog.String("id", id), slog.String("op", kind))
		if cb != nil {
			cb(kind, id)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(root, seen, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			id, ok := idFromFilename(filepath.Base(ev.Name))
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					if !errors.Is(readErr, os.ErrNotExist) {
						logger.Warn("watcher: read failed", slog.String("id", id), slog.String("error", readErr.Error()))
					}
					continue
				}
				sum := checksum.Sum(data)
				prev, known := seen[id]
				if known && prev == sum {
					continue
				}
				seen[id] = sum
				kind := ChangeUpdated
				if !known {
					kind = ChangeCreated
				}
				notify(kind, id)

			case ev.Op&fsnotify.Remove != 0:
				if _, known := seen[id]; !known {
					continue
				}
				delete(seen, id)
				notify(ChangeDeleted, id)

			case ev.Op&fsnotify.Rename != 0:
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile rescans root and reports differences against seen, updating it.
func reconcile(root string, seen map[string]string, notify ChangeFunc) {
	disk := scan(root)
	for id := range seen {
		if _, ok := disk[id]; !ok {
			delete(seen, id)
			notify(ChangeDeleted, id)
		}
	}
	for id, sum := range disk {
		prev, known := seen[id]
		if known && prev == sum {
			continue
		}
		seen[id] = sum
		if known {
			notify(ChangeUpdated, id)
		} else {
			notify(ChangeCreated, id)
		}
	}
}

// scan returns id → checksum for every blueprint document under root.
func scan(root string) map[string]string {
	out := make(map[string]string)
	entries, err := os.ReadDir(root)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.Type()&fs.ModeType != 0 {
			continue
		}
		id, ok := idFromFilename(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		out[id] = checksum.Sum(data)
	}
	return out
}
