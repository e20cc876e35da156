// Package executor applies page commands to blueprint snapshots.
package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/astra/internal/apperr"
	"github.com/starford/astra/internal/command"
	"github.com/starford/astra/internal/models"
)

// Updater is the slice of the blueprint store the executor writes through.
type Updater interface {
	Update(ctx context.Context, id string, p models.Patch) (*models.Blueprint, error)
}

// Change is the planned result of a command against one snapshot.
type Change struct {
	Pages []models.Page
	// ActivePageID is the page to show next. Empty means unchanged.
	ActivePageID string
	Message      string
}

// Outcome is the persisted result of a command.
type Outcome struct {
	Blueprint    *models.Blueprint
	ActivePageID string
	Message      string
}

// Executor persists planned changes through the store.
type Executor struct {
	store Updater
	newID func() string
}

// New returns an Executor writing through store.
func New(store Updater) *Executor {
	return &Executor{store: store, newID: NewPageID}
}

// NewPageID returns a fresh page id.
func NewPageID() string {
	return "page_" + uuid.NewString()
}

// Execute plans cmd against bp and persists the new page sequence. On any
// error the caller's snapshot is untouched and nil is returned.
func (e *Executor) Execute(ctx context.Context, cmd command.Command, bp *models.Blueprint, activePageID string) (*Outcome, error) {
	ch, err := plan(cmd, bp, activePageID, e.newID)
	if err != nil {
		return nil, err
	}
	updated, err := e.store.Update(ctx, bp.ID, models.Patch{Pages: ch.Pages})
	if err != nil {
		return nil, fmt.Errorf("executor: %s: %w", cmd.Kind(), err)
	}
	active := ch.ActivePageID
	if active == "" {
		active = activePageID
	}
	return &Outcome{Blueprint: updated, ActivePageID: active, Message: ch.Message}, nil
}

// Plan computes the page sequence cmd produces from bp without side effects.
func Plan(cmd command.Command, bp *models.Blueprint, activePageID string) (Change, error) {
	return plan(cmd, bp, activePageID, NewPageID)
}

func plan(cmd command.Command, bp *models.Blueprint, activePageID string, newID func() string) (Change, error) {
	pages := models.ClonePages(bp.Pages)

	switch c := cmd.(type) {
	case command.AddPage:
		page := models.Page{
			ID:         newID(),
			Name:       c.PageName,
			Title:      c.PageName,
			Path:       models.PagePath(c.PageName),
			Content:    fmt.Sprintf("This is the %s page.", c.PageName),
			Components: []models.Component{},
		}
		return Change{
			Pages:        append(pages, page),
			ActivePageID: page.ID,
			Message:      fmt.Sprintf("Added page %q.", c.PageName),
		}, nil

	case command.RenamePage:
		i := findPage(pages, c.OldName)
		if i < 0 {
			return Change{}, fmt.Errorf("%w: %q", apperr.ErrPageNotFound, c.OldName)
		}
		old := pages[i].Name
		pages[i].Name = c.NewName
		pages[i].Title = c.NewName
		pages[i].Path = models.PagePath(c.NewName)
		return Change{
			Pages:   pages,
			Message: fmt.Sprintf("Renamed page %q to %q.", old, c.NewName),
		}, nil

	case command.DeletePage:
		if len(pages) <= 1 {
			return Change{}, apperr.ErrLastPage
		}
		i := findPage(pages, c.PageName)
		if i < 0 {
			return Change{}, fmt.Errorf("%w: %q", apperr.ErrPageNotFound, c.PageName)
		}
		removed := pages[i]
		pages = append(pages[:i], pages[i+1:]...)
		ch := Change{
			Pages:   pages,
			Message: fmt.Sprintf("Deleted page %q.", removed.Name),
		}
		if removed.ID == activePageID {
			ch.ActivePageID = pages[0].ID
		}
		return ch, nil

	default:
		return Change{}, fmt.Errorf("%w: %T", apperr.ErrUnsupportedCommand, cmd)
	}
}

// findPage returns the index of the first page whose name, or failing that
// title, equals target ignoring case. -1 when absent.
func findPage(pages []models.Page, target string) int {
	for i, p := range pages {
		if strings.EqualFold(p.Name, target) || strings.EqualFold(p.Title, target) {
			return i
		}
	}
	return -1
}
