package editor

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkwell-cms/inkwell/internal/backend"
	"github.com/inkwell-cms/inkwell/internal/cache"
	"github.com/inkwell-cms/inkwell/internal/draft"
	"github.com/inkwell-cms/inkwell/internal/localstore"
	"github.com/inkwell-cms/inkwell/internal/media"
	"github.com/inkwell-cms/inkwell/internal/model"
)

// Manager tracks the live editing sessions.
type Manager struct {
	sessions *cache.Cache[model.SessionID, *Session]

	api      backend.API
	local    localstore.Store
	uploader media.Uploader
	opts     Options
}

func NewManager(api backend.API, local localstore.Store, uploader media.Uploader, opts Options) *Manager {
	return &Manager{
		sessions: cache.NewCache[model.SessionID, *Session](),
		api:      api,
		local:    local,
		uploader: uploader,
		opts:     opts,
	}
}

// Open mounts a new session for the owner, optionally loading an
// existing draft by id.
func (m *Manager) Open(ctx context.Context, owner model.UserID, draftID model.DraftID) (*Session, error) {
	id := model.SessionID(uuid.NewString())
	store := draft.NewStore(id, owner, m.api, m.local)

	session, err := NewSession(ctx, id, owner, draftID, store, m.uploader, m.opts)
	if err != nil {
		return nil, err
	}

	m.sessions.Set(session.ID, session)

	editorLogger.Info().
		Str("session", string(session.ID)).
		Str("owner", string(owner)).
		Str("draft_id", string(draftID)).
		Msg("Session opened")

	return session, nil
}

func (m *Manager) Get(id model.SessionID) (*Session, bool) {
	return m.sessions.Get(id)
}

// Close ends a session and removes it from the registry.
func (m *Manager) Close(id model.SessionID) {
	if session, ok := m.sessions.Get(id); ok {
		session.Close()
		m.sessions.Delete(id)
	}
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}
