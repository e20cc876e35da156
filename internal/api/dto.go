package api

import (
	"encoding/json"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/astra/internal/intent"
	"github.com/starford/astra/internal/models"
	"github.com/starford/astra/internal/voice"
)

// CreateAppRequest is the request body for creating an app. Name may be empty.
type CreateAppRequest struct {
	Name string `json:"name" example:"Storefront"`
}

// UpdateAppRequest renames an app and/or switches its preview mode.
type UpdateAppRequest struct {
	Name        *string             `json:"name,omitempty" example:"Storefront"`
	PreviewMode *models.PreviewMode `json:"previewMode,omitempty" example:"mobile"`
}

func (r UpdateAppRequest) Validate() error {
	if r.Name == nil && r.PreviewMode == nil {
		return validation.NewError("validation_empty_patch", "name or previewMode is required")
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.When(r.Name != nil, validation.By(notBlank))),
		validation.Field(&r.PreviewMode, validation.When(r.PreviewMode != nil,
			validation.In(models.PreviewDesktop, models.PreviewMobile))),
	)
}

// CommandRequest submits either free text or a structured command.
type CommandRequest struct {
	Text         string          `json:"text,omitempty" example:"add page Pricing"`
	Command      json.RawMessage `json:"command,omitempty"`
	ActivePageID string          `json:"activePageId,omitempty" example:"home"`
}

func (r CommandRequest) Validate() error {
	hasText := strings.TrimSpace(r.Text) != ""
	hasCmd := len(r.Command) > 0 && string(r.Command) != "null"
	if hasText == hasCmd {
		return validation.NewError("validation_command_source", "exactly one of text or command is required")
	}
	return nil
}

// IntentRequest analyzes text. Context is ignored by the per-app endpoint.
type IntentRequest struct {
	Text    string         `json:"text" example:"rename page Home to Start"`
	Context intent.Context `json:"context"`
}

// AppListResponse wraps app listings.
type AppListResponse struct {
	Apps  []models.Blueprint `json:"apps"`
	Total int                `json:"total"`
}

// VoiceStartRequest binds the voice session to an app and starts listening.
type VoiceStartRequest struct {
	AppID        string       `json:"appId" example:"app_1234"`
	Source       voice.Source `json:"source" example:"preview"`
	ActivePageID string       `json:"activePageId,omitempty" example:"home"`
}

func (r VoiceStartRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AppID, validation.Required),
		validation.Field(&r.Source, validation.Required, validation.In(voice.SourceLanding, voice.SourcePreview)),
	)
}

// VoiceStatus reports the voice session state.
type VoiceStatus struct {
	Listening    bool         `json:"listening"`
	Source       voice.Source `json:"source,omitempty"`
	AppID        string       `json:"appId,omitempty"`
	ActivePageID string       `json:"activePageId,omitempty"`
}

func notBlank(v any) error {
	if s, ok := v.(*string); ok && s != nil && strings.TrimSpace(*s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}
