// Package backend is the client for the upstream content API, the
// authoritative store for drafts and published posts. Every operation
// either applies fully on the server or returns an error; there are no
// partially applied writes.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/model"
)

// ErrNotApplied wraps any failure where the server cannot be assumed to
// have applied the operation. Callers keep their local state unchanged.
var ErrNotApplied = errors.New("backend: operation not applied")

// ValidationError is a rejection by the server (4xx). The operation was
// understood and refused; retrying the same payload will fail again.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("backend: validation failed (%d): %s", e.StatusCode, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrNotApplied
}

// TransportError is a network or protocol failure where the server's
// state is unknown. Treated the same as a rejection: not applied.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return ErrNotApplied
}

type API interface {
	Create(ctx context.Context, draft *model.Draft) (*model.Draft, error)
	Update(ctx context.Context, draft *model.Draft) (*model.Draft, error)
	Publish(ctx context.Context, id model.DraftID, opts model.PublishOptions) (*model.Draft, error)
	Get(ctx context.Context, id model.DraftID) (*model.Draft, error)
	Delete(ctx context.Context, id model.DraftID) error
}

var backendLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	backendLogger = l
}
