package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/astra/internal/appservice"
	"github.com/starford/astra/internal/voice"
)

// VoiceHandler exposes the voice relay to the browser recognizer.
type VoiceHandler struct {
	svc     *appservice.Service
	relay   *voice.Relay
	session *voice.Session
}

// NewVoiceHandler creates a VoiceHandler.
func NewVoiceHandler(svc *appservice.Service, relay *voice.Relay, session *voice.Session) *VoiceHandler {
	return &VoiceHandler{svc: svc, relay: relay, session: session}
}

func (h *VoiceHandler) status() VoiceStatus {
	appID, active := h.session.State()
	st := VoiceStatus{Listening: h.relay.IsListening(), AppID: appID, ActivePageID: active}
	if st.Listening {
		st.Source = h.relay.Source()
	}
	return st
}

// Status handles GET /api/voice.
//
//	@Summary		Voice session state
//	@Tags			voice
//	@Produce		json
//	@Success		200	{object}	VoiceStatus
//	@Security		BearerAuth
//	@Router			/voice [get]
func (h *VoiceHandler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

// Start handles POST /api/voice/start.
//
//	@Summary		Bind the voice session to an app and start listening
//	@Tags			voice
//	@Accept			json
//	@Produce		json
//	@Param			body	body		VoiceStartRequest	true	"Session"
//	@Success		200		{object}	VoiceStatus
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/voice/start [post]
func (h *VoiceHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req VoiceStartRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if _, err := h.svc.GetApp(r.Context(), req.AppID); err != nil {
		writeError(w, err, "voice start", slog.String("app", req.AppID))
		return
	}
	h.session.Start(req.AppID, req.Source, req.ActivePageID)
	writeJSON(w, http.StatusOK, h.status())
}

// Stop handles POST /api/voice/stop.
//
//	@Summary		Stop listening
//	@Tags			voice
//	@Produce		json
//	@Success		200	{object}	VoiceStatus
//	@Security		BearerAuth
//	@Router			/voice/stop [post]
func (h *VoiceHandler) Stop(w http.ResponseWriter, _ *http.Request) {
	h.session.Stop()
	writeJSON(w, http.StatusOK, h.status())
}

// Transcript handles POST /api/voice/transcripts. Final transcripts run a
// full cycle before the response is written.
//
//	@Summary		Push a recognition result
//	@Tags			voice
//	@Accept			json
//	@Produce		json
//	@Param			body	body		voice.Transcript	true	"Transcript"
//	@Success		202		{object}	VoiceStatus
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/voice/transcripts [post]
func (h *VoiceHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	var t voice.Transcript
	if err := decodeJSON(w, r, &t, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.relay.Push(t); err != nil {
		if errors.Is(err, voice.ErrNotListening) {
			writeJSON(w, http.StatusConflict, errorBody("not listening"))
			return
		}
		writeError(w, err, "voice transcript")
		return
	}
	writeJSON(w, http.StatusAccepted, h.status())
}
