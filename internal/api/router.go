package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/astra/internal/appservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// vh, if non-nil, mounts the voice endpoints.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *appservice.Service, vh *VoiceHandler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Apps.
	r.Get("/apps", h.ListApps)
	r.Post("/apps", h.CreateApp)
	r.Get("/apps/{id}", h.GetApp)
	r.Patch("/apps/{id}", h.UpdateApp)
	r.Delete("/apps/{id}", h.DeleteApp)

	// Commands and intent.
	r.Post("/apps/{id}/commands", h.SubmitCommand)
	r.Post("/apps/{id}/intent", h.AnalyzeApp)
	r.Post("/intent", h.Analyze)

	if vh != nil {
		r.Get("/voice", vh.Status)
		r.Post("/voice/start", vh.Start)
		r.Post("/voice/stop", vh.Stop)
		r.Post("/voice/transcripts", vh.Transcript)
	}

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
