// Package editor owns the live editing interaction loop: content
// mutation wiring into the draft store, the autosave ticker, debounced
// selection tracking, image resolution, and the per-mount recovery
// prompt.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/draft"
	"github.com/inkwell-cms/inkwell/internal/media"
	"github.com/inkwell-cms/inkwell/internal/model"
)

type State string

const (
	StateMounting   State = "mounting"
	StateReady      State = "ready"
	StateEditing    State = "editing"
	StateAutosaving State = "autosaving"
	StatePublishing State = "publishing"
	StatePublished  State = "published"
	StateDiscarded  State = "discarded"
)

var (
	ErrValidation = errors.New("editor: title and content must not be empty")
	ErrFinished   = errors.New("editor: session is no longer editable")
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

type Options struct {
	AutosaveInterval  time.Duration
	SelectionDebounce time.Duration
	SaveTimeout       time.Duration
	MaxUploadBytes    int
}

// Session is one mounted edit surface. It lives from mount to publish,
// discard, or disconnect, and owns the timers that drive autosave and
// selection evaluation. Both timers stop when the session closes.
type Session struct {
	ID    model.SessionID
	Owner model.UserID

	store    *draft.Store
	uploader media.Uploader
	opts     Options

	mu              sync.Mutex
	state           State
	pendingRecovery *model.Draft
	lastEvaluated   *Selection
	uploadsInFlight int

	debounce *Debouncer[Selection]

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession mounts an edit surface. With a draft id the upstream record
// is loaded and no recovery applies; without one, a stored recovery
// snapshot is offered exactly once.
func NewSession(ctx context.Context, id model.SessionID, owner model.UserID, draftID model.DraftID, store *draft.Store, uploader media.Uploader, opts Options) (*Session, error) {
	s := &Session{
		ID:       id,
		Owner:    owner,
		store:    store,
		uploader: uploader,
		opts:     opts,
		state:    StateMounting,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
	s.debounce = NewDebouncer(opts.SelectionDebounce, s.evaluateSelection)

	if draftID != "" {
		if _, err := store.Load(ctx, draftID); err != nil {
			return nil, fmt.Errorf("loading draft %s: %w", draftID, err)
		}
	} else if snapshot, ok := store.RecoverySnapshot(); ok {
		s.pendingRecovery = snapshot
		s.emit(Event{Type: EventRecovery, Recovery: snapshot})
	}

	s.state = StateReady

	go s.autosaveLoop()

	return s, nil
}

// Events is the stream the editing surface listens on.
func (s *Session) Events() <-chan Event {
	return s.events
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Draft() *model.Draft {
	return s.store.Current()
}

// ApplyUpdate is the only path by which edited content reaches the
// draft. Updates after publish or discard are rejected.
func (s *Session) ApplyUpdate(u model.DraftUpdate) (*model.Draft, error) {
	s.mu.Lock()
	if s.state == StatePublished || s.state == StateDiscarded {
		s.mu.Unlock()
		return nil, ErrFinished
	}
	if s.state == StateReady {
		s.state = StateEditing
	}
	s.mu.Unlock()

	return s.store.Update(u), nil
}

// OnSelectionChange reschedules the pending evaluation; bursty raw
// events collapse into one evaluation of the final range.
func (s *Session) OnSelectionChange(sel Selection) {
	s.debounce.Trigger(sel)
}

func (s *Session) evaluateSelection(sel Selection) {
	s.mu.Lock()
	menu := EvaluateSelection(s.store.Current().Content, sel, s.lastEvaluated)
	s.lastEvaluated = &sel
	s.mu.Unlock()

	s.emit(Event{Type: EventMenu, Menu: &menu})
}

// Save is the explicit, user-triggered save. Unlike autosave, its
// failure is returned to the caller to surface.
func (s *Session) Save(ctx context.Context) (*model.Draft, error) {
	saved, err := s.store.Save(ctx)
	if err != nil {
		s.emit(Event{Type: EventSaveStatus, SaveStatus: &SaveStatus{Error: err.Error()}})
		return nil, err
	}

	s.emit(Event{Type: EventSaveStatus, SaveStatus: &SaveStatus{Saved: true, LastSaved: saved.LastSaved}})
	return saved, nil
}

// Publish validates before any network call, then saves and publishes.
// A failure of either step returns the session to ready.
func (s *Session) Publish(ctx context.Context, opts model.PublishOptions) (*model.Draft, error) {
	current := s.store.Current()
	if current.IsEmpty() || current.Title == "" || current.Content == "" {
		return nil, ErrValidation
	}

	s.mu.Lock()
	if s.state == StatePublished || s.state == StateDiscarded {
		s.mu.Unlock()
		return nil, ErrFinished
	}
	s.state = StatePublishing
	s.mu.Unlock()

	published, err := s.store.Publish(ctx, opts)

	s.mu.Lock()
	if err != nil {
		s.state = StateReady
		s.mu.Unlock()
		return nil, err
	}
	s.state = StatePublished
	s.mu.Unlock()

	s.emit(Event{Type: EventPublished, Draft: published})
	return published, nil
}

// Discard throws the draft away on explicit user request.
func (s *Session) Discard() error {
	s.mu.Lock()
	if s.state == StatePublished || s.state == StateDiscarded {
		s.mu.Unlock()
		return ErrFinished
	}
	s.state = StateDiscarded
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()
	s.store.Discard(ctx)
	return nil
}

// StartUpload validates synchronously and uploads in the background.
// The insertion point is captured now; content edits during the upload
// do not move it.
func (s *Session) StartUpload(name string, data []byte, insertAt int) (*media.PendingUpload, error) {
	if _, err := media.ValidateImage(data, s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}

	pending := &media.PendingUpload{
		ID:        uuid.NewString(),
		Name:      name,
		DraftID:   s.store.Current().ID,
		InsertAt:  insertAt,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	s.uploadsInFlight++
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
		defer cancel()

		url, err := s.uploader.Upload(ctx, name, data)

		s.mu.Lock()
		s.uploadsInFlight--
		s.mu.Unlock()

		result := &UploadResult{ID: pending.ID, InsertAt: pending.InsertAt}
		if err != nil {
			editorLogger.Warn().Err(err).Str("upload_id", pending.ID).Msg("Image upload failed")
			result.Error = err.Error()
		} else {
			result.URL = url
		}

		s.emit(Event{Type: EventUpload, Upload: result})
	}()

	return pending, nil
}

func (s *Session) UploadsInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadsInFlight
}

// PendingRecovery returns the snapshot offered at mount, if the user
// has not yet accepted or discarded it.
func (s *Session) PendingRecovery() *model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingRecovery
}

// AcceptRecovery merges the offered snapshot into the draft. It only
// works once; the prompt never reappears within a session.
func (s *Session) AcceptRecovery() (*model.Draft, error) {
	s.mu.Lock()
	snapshot := s.pendingRecovery
	s.pendingRecovery = nil
	s.mu.Unlock()

	if snapshot == nil {
		return nil, errors.New("editor: no recovery snapshot offered")
	}

	return s.store.AcceptRecovery(snapshot), nil
}

func (s *Session) DiscardRecovery() {
	s.mu.Lock()
	offered := s.pendingRecovery != nil
	s.pendingRecovery = nil
	s.mu.Unlock()

	if offered {
		s.store.DiscardRecovery()
	}
}

// Close stops both timers and releases the session. Safe to call more
// than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.debounce.Stop()
		s.store.Close()
		editorLogger.Info().Str("session", string(s.ID)).Msg("Session closed")
	})
}

func (s *Session) autosaveLoop() {
	ticker := time.NewTicker(s.opts.AutosaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.autosaveTick()
		}
	}
}

// autosaveTick saves best-effort. An empty draft is never autosaved,
// and failures are logged only: the local mirror guarantees nothing is
// lost, and the unsaved flag keeps the next tick trying.
func (s *Session) autosaveTick() {
	s.mu.Lock()
	if s.state != StateEditing {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	current := s.store.Current()
	if current.IsEmpty() {
		return
	}
	if !s.store.HasUnsavedChanges() {
		return
	}

	s.mu.Lock()
	s.state = StateAutosaving
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.SaveTimeout)
	defer cancel()

	saved, err := s.store.Save(ctx)

	s.mu.Lock()
	if s.state == StateAutosaving {
		s.state = StateEditing
	}
	s.mu.Unlock()

	if err != nil {
		editorLogger.Debug().Err(err).Str("session", string(s.ID)).Msg("Autosave failed")
		return
	}

	s.emit(Event{Type: EventSaveStatus, SaveStatus: &SaveStatus{Saved: true, LastSaved: saved.LastSaved}})
}

// emit never blocks: if the surface is not draining events, the oldest
// state push is dropped in favor of the newest.
func (s *Session) emit(event Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- event:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- event:
		default:
		}
	}
}
