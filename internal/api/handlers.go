package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/astra/internal/apperr"
	"github.com/starford/astra/internal/appservice"
	"github.com/starford/astra/internal/checksum"
	"github.com/starford/astra/internal/command"
	"github.com/starford/astra/internal/intent"
	"github.com/starford/astra/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *appservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *appservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors to status codes and logs unexpected ones.
func writeError(w http.ResponseWriter, err error, op string, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListApps handles GET /api/apps.
//
//	@Summary		List apps, most recently updated first
//	@Tags			apps
//	@Produce		json
//	@Success		200	{object}	AppListResponse
//	@Security		BearerAuth
//	@Router			/apps [get]
func (h *Handler) ListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListApps(r.Context())
	if err != nil {
		writeError(w, err, "list apps")
		return
	}
	if apps == nil {
		apps = []models.Blueprint{}
	}
	writeJSON(w, http.StatusOK, AppListResponse{Apps: apps, Total: len(apps)})
}

// CreateApp handles POST /api/apps.
//
//	@Summary		Create an app with the canonical Home page
//	@Tags			apps
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateAppRequest	false	"App to create"
//	@Success		201		{object}	models.Blueprint
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps [post]
func (h *Handler) CreateApp(w http.ResponseWriter, r *http.Request) {
	var req CreateAppRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	bp, err := h.svc.CreateApp(r.Context(), req.Name)
	if err != nil {
		writeError(w, err, "create app")
		return
	}
	writeJSON(w, http.StatusCreated, bp)
}

// GetApp handles GET /api/apps/{id}.
//
//	@Summary		Get an app blueprint
//	@Tags			apps
//	@Produce		json
//	@Param			id	path		string	true	"App id"
//	@Success		200	{object}	models.Blueprint
//	@Success		304
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id} [get]
func (h *Handler) GetApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bp, err := h.svc.GetApp(r.Context(), id)
	if err != nil {
		writeError(w, err, "get app", slog.String("id", id))
		return
	}
	data, err := json.Marshal(bp)
	if err != nil {
		writeError(w, err, "encode app", slog.String("id", id))
		return
	}
	etag := checksum.ETag(data)
	w.Header().Set("ETag", etag)
	if checksum.Match(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(data, '\n'))
}

// UpdateApp handles PATCH /api/apps/{id}.
//
//	@Summary		Rename an app or switch its preview mode
//	@Tags			apps
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"App id"
//	@Param			body	body		UpdateAppRequest	true	"Fields to change"
//	@Success		200		{object}	models.Blueprint
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id} [patch]
func (h *Handler) UpdateApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateAppRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var (
		bp  *models.Blueprint
		err error
	)
	if req.Name != nil {
		if bp, err = h.svc.RenameApp(r.Context(), id, *req.Name); err != nil {
			writeError(w, err, "rename app", slog.String("id", id))
			return
		}
	}
	if req.PreviewMode != nil {
		if bp, err = h.svc.SetPreviewMode(r.Context(), id, *req.PreviewMode); err != nil {
			writeError(w, err, "set preview mode", slog.String("id", id))
			return
		}
	}
	writeJSON(w, http.StatusOK, bp)
}

// DeleteApp handles DELETE /api/apps/{id}.
//
//	@Summary		Delete an app
//	@Tags			apps
//	@Param			id	path	string	true	"App id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id} [delete]
func (h *Handler) DeleteApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteApp(r.Context(), id); err != nil {
		writeError(w, err, "delete app", slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitCommand handles POST /api/apps/{id}/commands.
//
//	@Summary		Analyze text (or take a structured command) and apply it
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"App id"
//	@Param			body	body		CommandRequest	true	"Utterance or command"
//	@Success		200		{object}	appservice.Reply
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id}/commands [post]
func (h *Handler) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req CommandRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var (
		reply *appservice.Reply
		err   error
	)
	if strings.TrimSpace(req.Text) != "" {
		reply, err = h.svc.Submit(r.Context(), id, req.Text, req.ActivePageID)
	} else {
		cmd, decErr := command.Unmarshal(req.Command)
		if decErr != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(decErr.Error()))
			return
		}
		reply, err = h.svc.Apply(r.Context(), id, cmd, req.ActivePageID)
	}
	if err != nil {
		writeError(w, err, "submit command", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// AnalyzeApp handles POST /api/apps/{id}/intent.
//
//	@Summary		Classify text against an app without applying it
//	@Tags			intent
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"App id"
//	@Param			body	body		IntentRequest	true	"Utterance"
//	@Success		200		{object}	intent.Result
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id}/intent [post]
func (h *Handler) AnalyzeApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req IntentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Analyze(r.Context(), id, req.Text)
	if err != nil {
		writeError(w, err, "analyze", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Analyze handles POST /api/intent.
//
//	@Summary		Classify text against a caller-supplied context
//	@Tags			intent
//	@Accept			json
//	@Produce		json
//	@Param			body	body		IntentRequest	true	"Utterance and context"
//	@Success		200		{object}	intent.Result
//	@Security		BearerAuth
//	@Router			/intent [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, intent.Analyze(req.Text, req.Context))
}
