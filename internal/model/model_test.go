package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDraftID(t *testing.T) {
	t.Run("DraftID type operations", func(t *testing.T) {
		var id DraftID = "draft-123"

		if string(id) != "draft-123" {
			t.Errorf("Expected string conversion 'draft-123', got %s", string(id))
		}

		var id2 DraftID = "draft-123"
		var id3 DraftID = "other-draft"

		if id != id2 {
			t.Error("Expected equal DraftIDs to be equal")
		}
		if id == id3 {
			t.Error("Expected different DraftIDs to be different")
		}

		var empty DraftID
		if string(empty) != "" {
			t.Errorf("Expected empty DraftID to be empty string, got %s", string(empty))
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("status serializes as its string value", func(t *testing.T) {
		data, err := json.Marshal(Draft{Title: "t", Status: StatusPublished})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !strings.Contains(string(data), `"status":"published"`) {
			t.Errorf("Expected plain string status in JSON, got %s", data)
		}

		var decoded Draft
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if decoded.Status != StatusPublished {
			t.Errorf("Expected %q, got %q", StatusPublished, decoded.Status)
		}
	})
}

func TestDraftIsEmpty(t *testing.T) {
	testCases := []struct {
		name    string
		draft   Draft
		isEmpty bool
	}{
		{"zero value", Draft{}, true},
		{"whitespace only", Draft{Title: "  ", Content: "\n\t"}, true},
		{"title only", Draft{Title: "Hello"}, false},
		{"content only", Draft{Content: "World"}, false},
		{"both", Draft{Title: "Hello", Content: "World"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.draft.IsEmpty(); got != tc.isEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tc.isEmpty)
			}
		})
	}
}

func TestDraftClone(t *testing.T) {
	orig := &Draft{
		ID:      "draft-1",
		Title:   "Title",
		Content: "Content",
		Tags:    []string{"go", "testing"},
	}

	clone := orig.Clone()

	if clone.ID != orig.ID || clone.Title != orig.Title || clone.Content != orig.Content {
		t.Error("Expected clone to copy scalar fields")
	}

	clone.Tags[0] = "changed"
	if orig.Tags[0] != "go" {
		t.Error("Expected clone to have an independent tags slice")
	}
}
