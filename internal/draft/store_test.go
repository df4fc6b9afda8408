package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/inkwell-cms/inkwell/internal/localstore"
	"github.com/inkwell-cms/inkwell/internal/model"
)

func init() {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))
}

// fakeAPI counts calls and can be told to fail per operation.
type fakeAPI struct {
	createCalls  int
	updateCalls  int
	publishCalls int
	deleteCalls  int

	failSave    error
	failPublish error

	// onSave runs while a create/update request is in flight.
	onSave func()

	lastUpdated *model.Draft
}

func (f *fakeAPI) Create(ctx context.Context, d *model.Draft) (*model.Draft, error) {
	f.createCalls++
	if f.onSave != nil {
		f.onSave()
	}
	if f.failSave != nil {
		return nil, f.failSave
	}
	saved := d.Clone()
	saved.ID = "draft-1"
	saved.LastSaved = time.Now().UTC()
	return saved, nil
}

func (f *fakeAPI) Update(ctx context.Context, d *model.Draft) (*model.Draft, error) {
	f.updateCalls++
	if f.onSave != nil {
		f.onSave()
	}
	if f.failSave != nil {
		return nil, f.failSave
	}
	f.lastUpdated = d.Clone()
	saved := d.Clone()
	saved.LastSaved = time.Now().UTC()
	return saved, nil
}

func (f *fakeAPI) Publish(ctx context.Context, id model.DraftID, opts model.PublishOptions) (*model.Draft, error) {
	f.publishCalls++
	if f.failPublish != nil {
		return nil, f.failPublish
	}
	return &model.Draft{ID: id, Status: model.StatusPublished, LastSaved: time.Now().UTC()}, nil
}

func (f *fakeAPI) Get(ctx context.Context, id model.DraftID) (*model.Draft, error) {
	return &model.Draft{
		ID:        id,
		Title:     "Existing",
		Content:   "Loaded from upstream",
		LastSaved: time.Now().UTC(),
	}, nil
}

func (f *fakeAPI) Delete(ctx context.Context, id model.DraftID) error {
	f.deleteCalls++
	return nil
}

// memStore implements localstore.Store in memory.
type memStore struct {
	items map[string][]byte
	sets  int
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string][]byte)}
}

func (m *memStore) Init() error { return nil }

func (m *memStore) Get(key string) ([]byte, error) {
	v, ok := m.items[key]
	if !ok {
		return nil, localstore.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(key string, value []byte) error {
	m.sets++
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(key string) error {
	delete(m.items, key)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) mirrored(t *testing.T, key string) *model.Draft {
	t.Helper()
	raw, ok := m.items[key]
	if !ok {
		t.Fatalf("Expected key %q in local store", key)
	}
	var d model.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		t.Fatalf("Failed to decode mirrored draft: %v", err)
	}
	return &d
}

func newTestStoreWith(api *fakeAPI, local *memStore) *Store {
	return NewStore("session-1", "user-1", api, local)
}

func strPtr(s string) *string { return &s }

func TestUpdate(t *testing.T) {
	t.Run("mirrors every mutation to local store", func(t *testing.T) {
		api := &fakeAPI{}
		local := newMemStore()
		store := newTestStoreWith(api, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello")})
		store.Update(model.DraftUpdate{Content: strPtr("World")})

		mirror := local.mirrored(t, "mirror:session-1")
		if mirror.Title != "Hello" || mirror.Content != "World" {
			t.Errorf("Expected mirror {Hello, World}, got {%q, %q}", mirror.Title, mirror.Content)
		}

		snapshot := local.mirrored(t, "recovery:user-1")
		if snapshot.Title != "Hello" || snapshot.Content != "World" {
			t.Errorf("Expected snapshot {Hello, World}, got {%q, %q}", snapshot.Title, snapshot.Content)
		}

		if api.createCalls != 0 || api.updateCalls != 0 {
			t.Error("Expected no backend calls from Update")
		}
		if !store.HasUnsavedChanges() {
			t.Error("Expected unsaved changes after update")
		}
	})

	t.Run("no-op update changes nothing", func(t *testing.T) {
		api := &fakeAPI{}
		local := newMemStore()
		store := newTestStoreWith(api, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello")})
		if _, err := store.Save(context.Background()); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		before := store.Current()
		setsBefore := local.sets

		store.Update(model.DraftUpdate{Title: strPtr("Hello")})

		after := store.Current()
		if !after.LastSaved.Equal(before.LastSaved) {
			t.Error("Expected no-op update to leave lastSaved untouched")
		}
		if store.HasUnsavedChanges() {
			t.Error("Expected no-op update to not mark unsaved changes")
		}
		if local.sets != setsBefore {
			t.Error("Expected no-op update to skip the mirror write")
		}
	})

	t.Run("recomputes reading time when content changes", func(t *testing.T) {
		store := newTestStoreWith(&fakeAPI{}, newMemStore())

		short := store.Update(model.DraftUpdate{Content: strPtr("just a few words")})
		if short.ReadingTime != 1 {
			t.Errorf("Expected reading time 1 for short content, got %d", short.ReadingTime)
		}

		var long string
		for i := 0; i < 450; i++ {
			long += fmt.Sprintf("word%d ", i)
		}
		updated := store.Update(model.DraftUpdate{Content: &long})
		if updated.ReadingTime != 3 {
			t.Errorf("Expected reading time 3 for 450 words, got %d", updated.ReadingTime)
		}
	})

	t.Run("truncates tags beyond the cap without failing", func(t *testing.T) {
		store := newTestStoreWith(&fakeAPI{}, newMemStore())

		tags := []string{"one", "two", "three", "four", "five", "six", "seven"}
		updated := store.Update(model.DraftUpdate{Tags: &tags})

		if len(updated.Tags) != model.MaxTags {
			t.Fatalf("Expected %d tags, got %d", model.MaxTags, len(updated.Tags))
		}
		if updated.Tags[4] != "five" {
			t.Errorf("Expected first five tags kept in order, got %v", updated.Tags)
		}
	})

	t.Run("defaults title from front matter", func(t *testing.T) {
		store := newTestStoreWith(&fakeAPI{}, newMemStore())

		content := "%%%\ntitle = \"From Front Matter\"\n%%%\n\nBody text."
		updated := store.Update(model.DraftUpdate{Content: &content})

		if updated.Title != "From Front Matter" {
			t.Errorf("Expected title from front matter, got %q", updated.Title)
		}
	})

	t.Run("explicit title wins over front matter", func(t *testing.T) {
		store := newTestStoreWith(&fakeAPI{}, newMemStore())

		store.Update(model.DraftUpdate{Title: strPtr("Chosen Title")})
		content := "%%%\ntitle = \"From Front Matter\"\n%%%\n\nBody."
		updated := store.Update(model.DraftUpdate{Content: &content})

		if updated.Title != "Chosen Title" {
			t.Errorf("Expected explicit title kept, got %q", updated.Title)
		}
	})
}

func TestSave(t *testing.T) {
	t.Run("new draft issues exactly one create and gains an id", func(t *testing.T) {
		api := &fakeAPI{}
		store := newTestStoreWith(api, newMemStore())

		store.Update(model.DraftUpdate{Title: strPtr("Hello")})
		store.Update(model.DraftUpdate{Content: strPtr("World")})

		saved, err := store.Save(context.Background())
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if api.createCalls != 1 {
			t.Errorf("Expected exactly one create call, got %d", api.createCalls)
		}
		if api.updateCalls != 0 {
			t.Errorf("Expected no update calls, got %d", api.updateCalls)
		}
		if saved.ID == "" {
			t.Error("Expected a non-empty id after first save")
		}
		if saved.LastSaved.IsZero() {
			t.Error("Expected lastSaved to be set")
		}
		if store.HasUnsavedChanges() {
			t.Error("Expected unsaved flag cleared after save")
		}
	})

	t.Run("tag edit during the request keeps unsaved changes", func(t *testing.T) {
		api := &fakeAPI{}
		store := newTestStoreWith(api, newMemStore())

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})
		api.onSave = func() {
			store.Update(model.DraftUpdate{Tags: &[]string{"go"}})
		}

		if _, err := store.Save(context.Background()); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if !store.HasUnsavedChanges() {
			t.Error("Expected unsaved flag to survive an in-flight tag edit")
		}
	})

	t.Run("featured image edit during the request keeps unsaved changes", func(t *testing.T) {
		api := &fakeAPI{}
		store := newTestStoreWith(api, newMemStore())

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})
		api.onSave = func() {
			store.Update(model.DraftUpdate{FeaturedImage: strPtr("https://media.example.com/images/cover.png")})
		}

		if _, err := store.Save(context.Background()); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if !store.HasUnsavedChanges() {
			t.Error("Expected unsaved flag to survive an in-flight image edit")
		}
	})

	t.Run("existing draft issues update and keeps its id", func(t *testing.T) {
		api := &fakeAPI{}
		store := newTestStoreWith(api, newMemStore())

		if _, err := store.Load(context.Background(), "draft-42"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		store.Update(model.DraftUpdate{Content: strPtr("Edited content")})

		saved, err := store.Save(context.Background())
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if api.updateCalls != 1 || api.createCalls != 0 {
			t.Errorf("Expected exactly one update and no create, got %d/%d",
				api.updateCalls, api.createCalls)
		}
		if saved.ID != "draft-42" {
			t.Errorf("Expected id to remain draft-42, got %q", saved.ID)
		}
	})

	t.Run("failure leaves all state unchanged", func(t *testing.T) {
		api := &fakeAPI{failSave: errors.New("network down")}
		local := newMemStore()
		store := newTestStoreWith(api, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})

		_, err := store.Save(context.Background())
		if err == nil {
			t.Fatal("Expected save error")
		}

		if !store.HasUnsavedChanges() {
			t.Error("Expected unsaved flag to survive a failed save")
		}
		current := store.Current()
		if current.ID != "" {
			t.Errorf("Expected no id after failed save, got %q", current.ID)
		}
		if !current.LastSaved.IsZero() {
			t.Error("Expected lastSaved untouched after failed save")
		}

		snapshot := local.mirrored(t, "recovery:user-1")
		if snapshot.Title != "Hello" {
			t.Error("Expected recovery snapshot intact after failed save")
		}
	})
}

func TestPublish(t *testing.T) {
	t.Run("publishes after implicit save and clears recovery state", func(t *testing.T) {
		api := &fakeAPI{}
		local := newMemStore()
		store := newTestStoreWith(api, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})

		published, err := store.Publish(context.Background(), model.PublishOptions{Slug: "hello"})
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		if api.createCalls != 1 {
			t.Errorf("Expected implicit save before publish, got %d create calls", api.createCalls)
		}
		if api.publishCalls != 1 {
			t.Errorf("Expected one publish call, got %d", api.publishCalls)
		}
		if published.Status != model.StatusPublished {
			t.Errorf("Expected published status, got %q", published.Status)
		}

		if _, ok := local.items["recovery:user-1"]; ok {
			t.Error("Expected recovery snapshot cleared after publish")
		}
		if _, ok := local.items["mirror:session-1"]; ok {
			t.Error("Expected session mirror cleared after publish")
		}
	})

	t.Run("failed implicit save never reaches the publish endpoint", func(t *testing.T) {
		api := &fakeAPI{failSave: errors.New("network down")}
		store := newTestStoreWith(api, newMemStore())

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})

		_, err := store.Publish(context.Background(), model.PublishOptions{})
		if err == nil {
			t.Fatal("Expected publish error")
		}

		if api.publishCalls != 0 {
			t.Errorf("Expected publish endpoint untouched, got %d calls", api.publishCalls)
		}
		if store.Current().Status != model.StatusDraft {
			t.Error("Expected draft status unchanged after failed publish")
		}
	})

	t.Run("failed publish leaves the draft in draft state", func(t *testing.T) {
		api := &fakeAPI{failPublish: errors.New("server error")}
		local := newMemStore()
		store := newTestStoreWith(api, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})

		_, err := store.Publish(context.Background(), model.PublishOptions{})
		if err == nil {
			t.Fatal("Expected publish error")
		}

		if store.Current().Status != model.StatusDraft {
			t.Error("Expected draft status unchanged after failed publish")
		}
		if _, ok := local.items["recovery:user-1"]; !ok {
			t.Error("Expected recovery snapshot kept after failed publish")
		}
	})
}

func TestRecoverySnapshotScope(t *testing.T) {
	t.Run("opening an existing article leaves the snapshot alone", func(t *testing.T) {
		local := newMemStore()

		unsynced := newTestStoreWith(&fakeAPI{}, local)
		unsynced.Update(model.DraftUpdate{Content: strPtr("work never saved upstream")})
		unsynced.Close()

		reader := NewStore("session-2", "user-1", &fakeAPI{}, local)
		if _, err := reader.Load(context.Background(), "42"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		reader.Update(model.DraftUpdate{Content: strPtr("an edit to the article")})

		snapshot := local.mirrored(t, "recovery:user-1")
		if snapshot.Content != "work never saved upstream" {
			t.Errorf("Expected snapshot to keep unsynced work, got %q", snapshot.Content)
		}
	})

	t.Run("snapshot writes stop once the draft is synced", func(t *testing.T) {
		local := newMemStore()
		store := newTestStoreWith(&fakeAPI{}, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})
		if _, err := store.Save(context.Background()); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		store.Update(model.DraftUpdate{Content: strPtr("an edit made after the save")})

		snapshot := local.mirrored(t, "recovery:user-1")
		if snapshot.Content != "World" {
			t.Errorf("Expected snapshot untouched after sync, got %q", snapshot.Content)
		}
		mirror := local.mirrored(t, "mirror:session-1")
		if mirror.Content != "an edit made after the save" {
			t.Errorf("Expected mirror to track the latest content, got %q", mirror.Content)
		}
	})
}

func TestRecovery(t *testing.T) {
	t.Run("absent snapshot reads as absent", func(t *testing.T) {
		store := newTestStoreWith(&fakeAPI{}, newMemStore())

		if _, ok := store.RecoverySnapshot(); ok {
			t.Error("Expected no recovery snapshot")
		}
	})

	t.Run("corrupt snapshot reads as absent and is removed", func(t *testing.T) {
		local := newMemStore()
		local.items["recovery:user-1"] = []byte("not json at all")
		store := newTestStoreWith(&fakeAPI{}, local)

		if _, ok := store.RecoverySnapshot(); ok {
			t.Error("Expected corrupt snapshot to read as absent")
		}
		if _, ok := local.items["recovery:user-1"]; ok {
			t.Error("Expected corrupt snapshot to be removed")
		}
	})

	t.Run("empty snapshot reads as absent", func(t *testing.T) {
		local := newMemStore()
		empty, _ := json.Marshal(model.Draft{Title: "  ", Content: "\n"})
		local.items["recovery:user-1"] = empty
		store := newTestStoreWith(&fakeAPI{}, local)

		if _, ok := store.RecoverySnapshot(); ok {
			t.Error("Expected empty snapshot to read as absent")
		}
	})

	t.Run("accept merges the snapshot wholesale", func(t *testing.T) {
		local := newMemStore()
		snap, _ := json.Marshal(model.Draft{
			Title:   "Recovered",
			Content: "Recovered content",
			Tags:    []string{"go"},
		})
		local.items["recovery:user-1"] = snap
		store := newTestStoreWith(&fakeAPI{}, local)

		snapshot, ok := store.RecoverySnapshot()
		if !ok {
			t.Fatal("Expected recovery snapshot")
		}

		merged := store.AcceptRecovery(snapshot)
		if merged.Title != "Recovered" || merged.Content != "Recovered content" {
			t.Errorf("Expected snapshot merged, got {%q, %q}", merged.Title, merged.Content)
		}
		if !store.HasUnsavedChanges() {
			t.Error("Expected accepted recovery to count as unsaved changes")
		}
	})

	t.Run("discard removes the snapshot", func(t *testing.T) {
		local := newMemStore()
		snap, _ := json.Marshal(model.Draft{Title: "Recovered", Content: "x"})
		local.items["recovery:user-1"] = snap
		store := newTestStoreWith(&fakeAPI{}, local)

		store.DiscardRecovery()

		if _, ok := local.items["recovery:user-1"]; ok {
			t.Error("Expected snapshot removed on discard")
		}
	})
}

func TestDiscard(t *testing.T) {
	t.Run("never-saved draft is cleared locally only", func(t *testing.T) {
		api := &fakeAPI{}
		local := newMemStore()
		store := newTestStoreWith(api, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})
		store.Discard(context.Background())

		if len(local.items) != 0 {
			t.Errorf("Expected local store cleared on discard, got %d keys", len(local.items))
		}
		if api.deleteCalls != 0 {
			t.Errorf("Expected no upstream delete for a never-saved draft, got %d", api.deleteCalls)
		}

		current := store.Current()
		if !current.IsEmpty() {
			t.Error("Expected empty draft after discard")
		}
		if store.HasUnsavedChanges() {
			t.Error("Expected no unsaved changes after discard")
		}
	})

	t.Run("saved draft is deleted upstream too", func(t *testing.T) {
		api := &fakeAPI{}
		local := newMemStore()
		store := newTestStoreWith(api, local)

		store.Update(model.DraftUpdate{Title: strPtr("Hello"), Content: strPtr("World")})
		if _, err := store.Save(context.Background()); err != nil {
			t.Fatalf("Save: %v", err)
		}

		store.Discard(context.Background())

		if api.deleteCalls != 1 {
			t.Errorf("Expected one upstream delete, got %d", api.deleteCalls)
		}
		if len(local.items) != 0 {
			t.Errorf("Expected local store cleared on discard, got %d keys", len(local.items))
		}
	})
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty content", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"single word", "hello", 1},
		{"under one minute", "a few short words here", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReadingTime(tt.content); got != tt.want {
				t.Errorf("ReadingTime(%q) = %d, want %d", tt.content, got, tt.want)
			}
		})
	}

	t.Run("markdown structure does not count as words", func(t *testing.T) {
		plain := ReadingTime("one two three")
		marked := ReadingTime("# one\n\n**two** [three](https://example.com)")
		if plain != marked {
			t.Errorf("Expected same reading time, got %d vs %d", plain, marked)
		}
	})
}
