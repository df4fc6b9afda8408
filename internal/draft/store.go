// Package draft owns the canonical in-memory draft being edited and
// mediates every save and publish against the content API. The local
// store is written on every mutation as a crash safety net; the content
// API remains the source of truth.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/backend"
	"github.com/inkwell-cms/inkwell/internal/localstore"
	"github.com/inkwell-cms/inkwell/internal/model"
	"github.com/inkwell-cms/inkwell/internal/render"
	"github.com/inkwell-cms/inkwell/internal/util"
)

// WordsPerMinute is the reading speed used for the reading time estimate.
const WordsPerMinute = 200

var draftLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	draftLogger = l
}

func mirrorKey(session model.SessionID) string {
	return "mirror:" + string(session)
}

func recoveryKey(owner model.UserID) string {
	return "recovery:" + string(owner)
}

// Store holds one draft for one editing session. All mutation goes
// through Update; saves are serialized so two in-flight saves can never
// race on the wire.
type Store struct {
	mu    sync.Mutex
	draft model.Draft

	hasUnsaved bool

	session model.SessionID
	owner   model.UserID

	api   backend.API
	local localstore.Store

	saveMu sync.Mutex
}

func NewStore(session model.SessionID, owner model.UserID, api backend.API, local localstore.Store) *Store {
	return &Store{
		session: session,
		owner:   owner,
		api:     api,
		local:   local,
		draft:   model.Draft{Owner: owner, Status: model.StatusDraft},
	}
}

// Current returns a copy of the draft as it stands.
func (s *Store) Current() *model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

func (s *Store) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUnsaved
}

// Update merges the given fields into the draft. If nothing actually
// changes, the call is a no-op: no flag change, no mirror write. The
// caller never sees a failure; mirror write errors are logged only.
func (s *Store) Update(u model.DraftUpdate) *model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false

	if u.Title != nil && *u.Title != s.draft.Title {
		s.draft.Title = *u.Title
		changed = true
	}

	if u.Content != nil && *u.Content != s.draft.Content {
		s.draft.Content = *u.Content
		s.draft.ReadingTime = ReadingTime(s.draft.Content)
		s.defaultTitleFromContent()
		changed = true
	}

	if u.Tags != nil {
		tags := *u.Tags
		if len(tags) > model.MaxTags {
			draftLogger.Warn().
				Int("given", len(tags)).
				Int("max", model.MaxTags).
				Msg("Too many tags, truncating")
			tags = tags[:model.MaxTags]
		}
		if !slices.Equal(tags, s.draft.Tags) {
			s.draft.Tags = slices.Clone(tags)
			changed = true
		}
	}

	if u.FeaturedImage != nil && *u.FeaturedImage != s.draft.FeaturedImage {
		s.draft.FeaturedImage = *u.FeaturedImage
		changed = true
	}

	if !changed {
		return s.draft.Clone()
	}

	s.hasUnsaved = true
	s.mirrorLocked()

	return s.draft.Clone()
}

// defaultTitleFromContent fills an empty title from the content's TOML
// front matter, when present. Called with s.mu held.
func (s *Store) defaultTitleFromContent() {
	if s.draft.Title != "" {
		return
	}
	fm, err := util.GetFrontMatter([]byte(s.draft.Content))
	if err != nil || fm.TitleData == nil || fm.Title == "" {
		return
	}
	s.draft.Title = fm.Title
}

// mirrorLocked writes the draft to the local store. Best effort: a
// failed write is logged and the in-memory update proceeds untouched.
// The recovery snapshot only ever holds never-synced work, so it is
// written for id-less drafts and left alone otherwise. Called with
// s.mu held.
func (s *Store) mirrorLocked() {
	encoded, err := json.Marshal(s.draft)
	if err != nil {
		draftLogger.Error().Err(err).Msg("Error encoding draft mirror")
		return
	}

	if err := s.local.Set(mirrorKey(s.session), encoded); err != nil {
		draftLogger.Error().Err(err).Str("session", string(s.session)).Msg("Error writing draft mirror")
	}
	if s.draft.ID != "" {
		return
	}
	if err := s.local.Set(recoveryKey(s.owner), encoded); err != nil {
		draftLogger.Error().Err(err).Str("owner", string(s.owner)).Msg("Error writing recovery snapshot")
	}
}

// Save persists the draft upstream: create when it has no id yet,
// update otherwise. On failure every piece of local state is left
// exactly as it was.
func (s *Store) Save(ctx context.Context) (*model.Draft, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	snapshot := s.draft.Clone()
	s.mu.Unlock()

	var saved *model.Draft
	var err error
	if snapshot.ID == "" {
		saved, err = s.api.Create(ctx, snapshot)
	} else {
		saved, err = s.api.Update(ctx, snapshot)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.ID = saved.ID
	s.draft.LastSaved = saved.LastSaved

	// The draft may have moved on while the request was in flight. Only
	// a save of the current state, every field of it, clears the
	// unsaved flag.
	if s.draft.Content == snapshot.Content &&
		s.draft.Title == snapshot.Title &&
		s.draft.FeaturedImage == snapshot.FeaturedImage &&
		slices.Equal(s.draft.Tags, snapshot.Tags) {
		s.hasUnsaved = false
	}

	draftLogger.Info().
		Str("draft_id", string(s.draft.ID)).
		Time("last_saved", s.draft.LastSaved).
		Msg("Draft saved")

	return s.draft.Clone(), nil
}

// Publish saves first, then publishes. A failed save means the publish
// endpoint is never called. On success the recovery snapshot is cleared;
// on failure the draft stays in its pre-publish state.
func (s *Store) Publish(ctx context.Context, opts model.PublishOptions) (*model.Draft, error) {
	saved, err := s.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("pre-publish save: %w", err)
	}

	published, err := s.api.Publish(ctx, saved.ID, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft.Status = model.StatusPublished
	s.draft.LastSaved = published.LastSaved

	if err := s.local.Delete(recoveryKey(s.owner)); err != nil {
		draftLogger.Warn().Err(err).Msg("Error clearing recovery snapshot after publish")
	}
	if err := s.local.Delete(mirrorKey(s.session)); err != nil {
		draftLogger.Warn().Err(err).Msg("Error clearing draft mirror after publish")
	}

	draftLogger.Info().Str("draft_id", string(s.draft.ID)).Msg("Draft published")

	return s.draft.Clone(), nil
}

// Load replaces the in-memory draft with the upstream record. The
// loaded state is authoritative: no recovery snapshot applies to it.
func (s *Store) Load(ctx context.Context, id model.DraftID) (*model.Draft, error) {
	loaded, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = *loaded.Clone()
	s.draft.ReadingTime = ReadingTime(s.draft.Content)
	s.hasUnsaved = false
	s.mirrorLocked()

	return s.draft.Clone(), nil
}

// Discard throws the draft away on explicit user request: the upstream
// record (if one was ever created), the local mirror and the recovery
// snapshot are all removed, and in-memory state resets to empty. Cleanup
// is best-effort; the local reset always happens.
func (s *Store) Discard(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft.ID != "" {
		if err := s.api.Delete(ctx, s.draft.ID); err != nil {
			draftLogger.Warn().Err(err).Str("draft", string(s.draft.ID)).Msg("Error deleting upstream draft on discard")
		}
	}
	if err := s.local.Delete(recoveryKey(s.owner)); err != nil {
		draftLogger.Warn().Err(err).Msg("Error clearing recovery snapshot on discard")
	}
	if err := s.local.Delete(mirrorKey(s.session)); err != nil {
		draftLogger.Warn().Err(err).Msg("Error clearing draft mirror on discard")
	}

	s.draft = model.Draft{Owner: s.owner, Status: model.StatusDraft}
	s.hasUnsaved = false
}

// Close removes the per-session mirror. The recovery snapshot stays:
// it outlives the session until a publish or an explicit discard.
func (s *Store) Close() {
	if err := s.local.Delete(mirrorKey(s.session)); err != nil {
		draftLogger.Warn().Err(err).Str("session", string(s.session)).Msg("Error removing session mirror")
	}
}

// RecoverySnapshot reads the owner's stored snapshot. A missing,
// corrupt, or empty snapshot reads as absent; corrupt ones are removed.
func (s *Store) RecoverySnapshot() (*model.Draft, bool) {
	raw, err := s.local.Get(recoveryKey(s.owner))
	if err != nil {
		return nil, false
	}

	var snapshot model.Draft
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		draftLogger.Warn().Err(err).Msg("Corrupt recovery snapshot, discarding")
		s.DiscardRecovery()
		return nil, false
	}

	if snapshot.IsEmpty() {
		return nil, false
	}

	return &snapshot, true
}

// AcceptRecovery merges the snapshot wholesale into the draft.
func (s *Store) AcceptRecovery(snapshot *model.Draft) *model.Draft {
	return s.Update(model.DraftUpdate{
		Title:         &snapshot.Title,
		Content:       &snapshot.Content,
		Tags:          &snapshot.Tags,
		FeaturedImage: &snapshot.FeaturedImage,
	})
}

func (s *Store) DiscardRecovery() {
	if err := s.local.Delete(recoveryKey(s.owner)); err != nil {
		draftLogger.Warn().Err(err).Msg("Error discarding recovery snapshot")
	}
}

// ReadingTime estimates minutes to read the given markdown content.
// Non-empty content always reads as at least one minute.
func ReadingTime(content string) int {
	text := strings.TrimSpace(render.PlainText([]byte(content)))
	if text == "" {
		return 0
	}

	words := len(strings.Fields(text))
	return int(math.Max(1, math.Ceil(float64(words)/float64(WordsPerMinute))))
}
