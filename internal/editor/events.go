package editor

import (
	"time"

	"github.com/inkwell-cms/inkwell/internal/model"
)

type EventType string

const (
	EventMenu       EventType = "menu"
	EventSaveStatus EventType = "save_status"
	EventRecovery   EventType = "recovery_prompt"
	EventUpload     EventType = "upload"
	EventPublished  EventType = "published"
)

type SaveStatus struct {
	Saved     bool      `json:"saved"`
	LastSaved time.Time `json:"last_saved,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type UploadResult struct {
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
	InsertAt int    `json:"insert_at"`
	Error    string `json:"error,omitempty"`
}

// Event is pushed from a session to its editing surface.
type Event struct {
	Type       EventType     `json:"type"`
	Menu       *MenuState    `json:"menu,omitempty"`
	SaveStatus *SaveStatus   `json:"save_status,omitempty"`
	Recovery   *model.Draft  `json:"recovery,omitempty"`
	Upload     *UploadResult `json:"upload,omitempty"`
	Draft      *model.Draft  `json:"draft,omitempty"`
}
