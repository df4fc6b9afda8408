// Package routes defines HTTP route constants for the application.
package routes

const (
	// Editing sessions
	Sessions        = "/api/sessions"
	SessionRecovery = "/api/sessions/{id}/recovery"
	SessionSave     = "/api/sessions/{id}/save"
	SessionPublish  = "/api/sessions/{id}/publish"
	Session         = "/api/sessions/{id}"

	// Editing stream
	WS = "/ws"

	// Media
	Images = "/api/images"

	// Preview
	PartialsPreview = "/partials/preview"

	// Status stream
	Events = "/events"

	Health = "/health"
)
