// Package model defines core data structures and types for the editing service.
package model

import (
	"strings"
	"time"
)

type DraftID string

type UserID string

type SessionID string

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// MaxTags is the hard cap on tags per draft. Updates carrying more are
// truncated, never rejected.
const MaxTags = 5

// Draft is the unit of work: the article being edited, together with the
// metadata the editing surface needs. ID is empty until the first
// successful upstream save.
type Draft struct {
	ID DraftID `json:"id,omitempty"`

	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags"`
	FeaturedImage string   `json:"featured_image,omitempty"`

	// ReadingTime is derived from Content on every content change,
	// in whole minutes.
	ReadingTime int `json:"reading_time"`

	Status    Status    `json:"status"`
	Owner     UserID    `json:"owner,omitempty"`
	LastSaved time.Time `json:"last_saved,omitempty"`
}

// IsEmpty reports whether the draft has neither a title nor content.
// Empty drafts are never autosaved.
func (d *Draft) IsEmpty() bool {
	return strings.TrimSpace(d.Title) == "" && strings.TrimSpace(d.Content) == ""
}

// Clone returns a deep copy so callers can hand drafts across goroutines
// without sharing the tags slice.
func (d *Draft) Clone() *Draft {
	c := *d
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	return &c
}

// DraftUpdate carries a partial update into the draft store. Nil fields
// are left untouched.
type DraftUpdate struct {
	Title         *string   `json:"title,omitempty"`
	Content       *string   `json:"content,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	FeaturedImage *string   `json:"featured_image,omitempty"`
}

// PublishOptions is forwarded to the upstream publish call.
type PublishOptions struct {
	Slug string `json:"slug,omitempty"`
}
