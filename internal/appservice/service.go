// Package appservice runs analyze-then-execute cycles against stored
// blueprints and manages the app registry.
package appservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/astra/internal/apperr"
	"github.com/starford/astra/internal/command"
	"github.com/starford/astra/internal/executor"
	"github.com/starford/astra/internal/intent"
	"github.com/starford/astra/internal/models"
	"github.com/starford/astra/internal/storage"
)

// Reply is the result of one cycle.
type Reply struct {
	Intent       intent.Result     `json:"intent"`
	Applied      bool              `json:"applied"`
	Blueprint    *models.Blueprint `json:"blueprint"`
	ActivePageID string            `json:"activePageId,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// Service coordinates the analyzer, executor and store.
type Service struct {
	store    storage.Store
	exec     *executor.Executor
	analyzer *intent.Analyzer
	emitter  Emitter
	logger   *slog.Logger

	mu sync.Mutex // one cycle at a time
}

// Option configures a Service.
type Option func(*Service)

// WithEmitter sets the event sink.
func WithEmitter(e Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAnalyzer replaces the default intent analyzer.
func WithAnalyzer(a *intent.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// New creates a service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		exec:     executor.New(store),
		analyzer: intent.NewAnalyzer(),
		emitter:  nopEmitter{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze classifies text against the latest snapshot of the app without
// changing anything.
func (s *Service) Analyze(ctx context.Context, appID, text string) (intent.Result, error) {
	bp, err := s.store.Get(ctx, appID)
	if err != nil {
		return intent.Result{}, err
	}
	return s.analyzer.Analyze(text, contextOf(bp)), nil
}

// Submit analyzes text and, for direct intents, applies the command.
// Refused commands come back with Applied=false and a user-facing message;
// only store failures are returned as errors.
func (s *Service) Submit(ctx context.Context, appID, text, activePageID string) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bp, err := s.store.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	res := s.analyzer.Analyze(text, contextOf(bp))
	cmd, ok := res.Command()
	if !ok {
		return &Reply{
			Intent:       res,
			Blueprint:    bp,
			ActivePageID: activePage(bp, activePageID),
			Message:      res.Message,
		}, nil
	}
	return s.apply(ctx, bp, res, cmd, activePageID)
}

// Apply executes a structured command against the app.
func (s *Service) Apply(ctx context.Context, appID string, cmd command.Command, activePageID string) (*Reply, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: command is required", apperr.ErrInvalidInput)
	}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bp, err := s.store.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	res := intent.Result{Mode: intent.ModeDirect, Commands: command.List{cmd}}
	return s.apply(ctx, bp, res, cmd, activePageID)
}

func (s *Service) apply(ctx context.Context, bp *models.Blueprint, res intent.Result, cmd command.Command, activePageID string) (*Reply, error) {
	active := activePage(bp, activePageID)
	reply := &Reply{Intent: res, Blueprint: bp, ActivePageID: active}

	out, err := s.exec.Execute(ctx, cmd, bp, active)
	switch {
	case errors.Is(err, apperr.ErrPageNotFound):
		reply.Message = fmt.Sprintf("Page %q not found.", targetName(cmd))
		return reply, nil
	case errors.Is(err, apperr.ErrLastPage):
		reply.Message = "Cannot delete the last page."
		return reply, nil
	case err != nil:
		s.logger.Error("command failed",
			slog.String("app", bp.ID),
			slog.String("command", cmd.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("command applied", slog.String("app", bp.ID), slog.String("command", cmd.String()))
	s.emitter.Emit(ctx, EventAppUpdated, AppEvent{ID: out.Blueprint.ID, Name: out.Blueprint.Name})
	return &Reply{
		Intent:       res,
		Applied:      true,
		Blueprint:    out.Blueprint,
		ActivePageID: out.ActivePageID,
		Message:      out.Message,
	}, nil
}

// CreateApp creates a blueprint. An empty name picks the next default name.
func (s *Service) CreateApp(ctx context.Context, name string) (*models.Blueprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bp, err := s.store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventAppCreated, AppEvent{ID: bp.ID, Name: bp.Name})
	return bp, nil
}

// GetApp returns the latest snapshot of the app.
func (s *Service) GetApp(ctx context.Context, id string) (*models.Blueprint, error) {
	return s.store.Get(ctx, id)
}

// ListApps returns every app, most recently updated first.
func (s *Service) ListApps(ctx context.Context) ([]models.Blueprint, error) {
	return s.store.List(ctx)
}

// RenameApp sets the app name. Blank names are rejected.
func (s *Service) RenameApp(ctx context.Context, id, name string) (*models.Blueprint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", apperr.ErrInvalidInput)
	}
	return s.update(ctx, id, models.Patch{Name: &name})
}

// SetPreviewMode switches the preview layout and resets its viewport.
func (s *Service) SetPreviewMode(ctx context.Context, id string, mode models.PreviewMode) (*models.Blueprint, error) {
	layout := models.NewLayout(mode)
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return s.update(ctx, id, models.Patch{Layout: &layout})
}

func (s *Service) update(ctx context.Context, id string, p models.Patch) (*models.Blueprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bp, err := s.store.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventAppUpdated, AppEvent{ID: bp.ID, Name: bp.Name})
	return bp, nil
}

// DeleteApp removes the app.
func (s *Service) DeleteApp(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventAppDeleted, AppEvent{ID: id})
	return nil
}

func contextOf(bp *models.Blueprint) intent.Context {
	return intent.Context{CurrentPages: bp.PageNames(), AppName: bp.Name}
}

// activePage returns id when it names a page of bp, else the first page.
func activePage(bp *models.Blueprint, id string) string {
	if _, ok := bp.FindPage(id); ok {
		return id
	}
	if len(bp.Pages) > 0 {
		return bp.Pages[0].ID
	}
	return ""
}

func targetName(cmd command.Command) string {
	switch c := cmd.(type) {
	case command.RenamePage:
		return c.OldName
	case command.DeletePage:
		return c.PageName
	case command.AddPage:
		return c.PageName
	}
	return ""
}
