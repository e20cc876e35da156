// Package models defines the domain types for Astra.
package models

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PreviewMode selects the viewport a blueprint is previewed in.
type PreviewMode string

// Preview modes.
const (
	PreviewDesktop PreviewMode = "desktop"
	PreviewMobile  PreviewMode = "mobile"
)

// Canonical home page values, used for new blueprints and self-healing.
const (
	HomePageID      = "home"
	HomePageName    = "Home"
	HomePageContent = "Welcome to your new app. This is the home page."
)

var whitespaceRe = regexp.MustCompile(`[\s\v\p{Z}\x{85}\x{FEFF}]+`)

// Component is an opaque building block of a page. Astra never interprets it.
type Component struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
}

// Page is one addressable unit of content within a blueprint.
type Page struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Title      string      `json:"title"`
	Path       string      `json:"path"`
	Content    string      `json:"content,omitempty"`
	Components []Component `json:"components"`
}

// Validate checks the fields every stored page must carry.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Path, validation.Required),
	)
}

// Layout holds preview metadata.
type Layout struct {
	PreviewMode    PreviewMode `json:"previewMode"`
	ViewportWidth  *int        `json:"viewportWidth,omitempty"`
	ViewportHeight *int        `json:"viewportHeight,omitempty"`
}

// Validate validates the layout.
func (l Layout) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.PreviewMode, validation.Required, validation.In(PreviewDesktop, PreviewMobile)),
	)
}

// Blueprint is the persisted document describing one app.
type Blueprint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Pages     []Page    `json:"pages"`
	Layout    Layout    `json:"layout"`
}

// Validate checks the blueprint invariants: an id, a name and at least one page.
func (b Blueprint) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.Required),
		validation.Field(&b.Name, validation.Required),
		validation.Field(&b.Pages, validation.Required),
		validation.Field(&b.Layout),
	)
}

// PageNames returns the page names in sequence order.
func (b *Blueprint) PageNames() []string {
	names := make([]string, len(b.Pages))
	for i, p := range b.Pages {
		names[i] = p.Name
	}
	return names
}

// FindPage returns the page with the given id, if any.
func (b *Blueprint) FindPage(id string) (Page, bool) {
	for _, p := range b.Pages {
		if p.ID == id {
			return p, true
		}
	}
	return Page{}, false
}

// Clone returns a deep copy of pages and layout so callers can build a new
// snapshot without touching the original. Component props are shared.
func (b *Blueprint) Clone() *Blueprint {
	out := *b
	out.Pages = ClonePages(b.Pages)
	out.Layout = b.Layout.clone()
	return &out
}

// ClonePages copies a page sequence, including each page's component slice.
func ClonePages(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p
		out[i].Components = append([]Component{}, p.Components...)
	}
	return out
}

func (l Layout) clone() Layout {
	out := l
	if l.ViewportWidth != nil {
		w := *l.ViewportWidth
		out.ViewportWidth = &w
	}
	if l.ViewportHeight != nil {
		h := *l.ViewportHeight
		out.ViewportHeight = &h
	}
	return out
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name   *string
	Domain *string
	Pages  []Page
	Layout *Layout
}

// Apply merges p into b. The id and creation time are never changed.
func (p Patch) Apply(b *Blueprint) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Domain != nil {
		b.Domain = *p.Domain
	}
	if p.Pages != nil {
		b.Pages = ClonePages(p.Pages)
	}
	if p.Layout != nil {
		b.Layout = p.Layout.clone()
	}
}

// Slug lower-cases name and collapses every whitespace run into one hyphen.
func Slug(name string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(name), "-")
}

// PagePath returns the URL path for a page name.
func PagePath(name string) string {
	return "/" + Slug(name)
}

// NewHomePage returns the canonical page every blueprint starts with.
func NewHomePage() Page {
	return Page{
		ID:         HomePageID,
		Name:       HomePageName,
		Title:      HomePageName,
		Path:       PagePath(HomePageName),
		Content:    HomePageContent,
		Components: []Component{},
	}
}

// NewLayout returns the layout for mode with its default viewport.
func NewLayout(mode PreviewMode) Layout {
	w, h := Viewport(mode)
	return Layout{PreviewMode: mode, ViewportWidth: &w, ViewportHeight: &h}
}

// Viewport returns the default viewport dimensions for mode.
func Viewport(mode PreviewMode) (width, height int) {
	if mode == PreviewMobile {
		return 375, 667
	}
	return 1920, 1080
}
