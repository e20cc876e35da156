// Package storage persists blueprints and defines the store abstraction the
// rest of Astra depends on.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/astra/internal/models"
)

// Store drivers.
const (
	DriverFS     = "fs"
	DriverSQLite = "sqlite"
)

// Store is the blueprint store. Writes are last-write-wins.
type Store interface {
	// Create stores a new blueprint. An empty name picks the next free
	// "New App N" name.
	Create(ctx context.Context, name string) (*models.Blueprint, error)
	// Get returns the blueprint, inserting the canonical Home page first if
	// it has no pages. Unknown ids return apperr.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Blueprint, error)
	// Update merges p into the stored blueprint and refreshes UpdatedAt.
	Update(ctx context.Context, id string, p models.Patch) (*models.Blueprint, error)
	// List returns every blueprint, most recently updated first.
	List(ctx context.Context) ([]models.Blueprint, error)
	// Delete removes the blueprint. Unknown ids return apperr.ErrNotFound.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithLogger sets the logger used to report skipped documents.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns the store for driver rooted at path.
func Open(driver, path string, opts ...Option) (Store, error) {
	switch driver {
	case DriverFS:
		return NewFS(path, opts...)
	case DriverSQLite:
		return NewSQLite(path, opts...)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

var (
	defaultNameRe = regexp.MustCompile(`^New App (\d+)$`)
	idRe          = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// DefaultName returns "New App N" with N one above the highest number
// already used by a default-named blueprint.
func DefaultName(existing []string) string {
	highest := 0
	for _, name := range existing {
		m := defaultNameRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("New App %d", highest+1)
}

// newBlueprint builds a fresh blueprint with the canonical Home page.
func newBlueprint(name string, existing []string, now time.Time) models.Blueprint {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName(existing)
	}
	return models.Blueprint{
		ID:        "app_" + uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Pages:     []models.Page{models.NewHomePage()},
		Layout:    models.NewLayout(models.PreviewDesktop),
	}
}

// heal inserts the canonical Home page into an empty blueprint. It reports
// whether b was changed.
func heal(b *models.Blueprint, now time.Time) bool {
	if len(b.Pages) > 0 {
		return false
	}
	b.Pages = []models.Page{models.NewHomePage()}
	b.UpdatedAt = now
	return true
}

// sortByUpdated orders blueprints newest first, ties broken by id.
func sortByUpdated(bs []models.Blueprint) {
	sort.SliceStable(bs, func(i, j int) bool {
		if !bs[i].UpdatedAt.Equal(bs[j].UpdatedAt) {
			return bs[i].UpdatedAt.After(bs[j].UpdatedAt)
		}
		return bs[i].ID < bs[j].ID
	})
}

func validID(id string) bool {
	return idRe.MatchString(id)
}
