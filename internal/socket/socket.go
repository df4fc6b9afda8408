// Package socket carries the live editing stream: the surface sends
// content, selection, save, and publish events over a websocket, and
// the session pushes menu state, save status, upload results, and the
// recovery prompt back.
package socket

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/editor"
)

const (
	MsgContent         = "content"
	MsgTitle           = "title"
	MsgTags            = "tags"
	MsgFeaturedImage   = "featured_image"
	MsgSelection       = "selection"
	MsgSave            = "save"
	MsgPublish         = "publish"
	MsgDiscard         = "discard"
	MsgRecoveryAccept  = "recovery_accept"
	MsgRecoveryDiscard = "recovery_discard"

	MsgError = "error"
)

// Message is what the editing surface sends. Only the fields relevant
// to the type are set.
type Message struct {
	Type          string            `json:"type"`
	Content       *string           `json:"content,omitempty"`
	Title         *string           `json:"title,omitempty"`
	Tags          *[]string         `json:"tags,omitempty"`
	FeaturedImage *string           `json:"featured_image,omitempty"`
	Selection     *editor.Selection `json:"selection,omitempty"`
	Slug          string            `json:"slug,omitempty"`
}

// ErrorMessage is pushed when an inbound operation fails in a way the
// user should see.
type ErrorMessage struct {
	Type  string `json:"type"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

func errorPayload(op string, err error) []byte {
	payload, merr := json.Marshal(ErrorMessage{Type: MsgError, Op: op, Error: err.Error()})
	if merr != nil {
		return []byte(`{"type":"error"}`)
	}
	return payload
}

var socketLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	socketLogger = l
}
