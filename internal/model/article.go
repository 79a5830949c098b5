package model

import (
	"fmt"
	"net/url"
	"time"
)

type ArticleStatus string

const (
	StatusPublished   ArticleStatus = "published"
	StatusUnpublished ArticleStatus = "unpublished"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (ArticleStatus, error) {
	switch ArticleStatus(s) {
	case StatusPublished, StatusUnpublished:
		return ArticleStatus(s), nil
	}
	return "", fmt.Errorf("invalid article status %q (must be published or unpublished)", s)
}

// Article is a record served by the publishing API. The ID is assigned by
// the server; everything else round-trips through create/update.
type Article struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Status      ArticleStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at,omitempty"`
	PublishAt   *time.Time    `json:"publish_at,omitempty"`
	UnpublishAt *time.Time    `json:"unpublish_at,omitempty"`
}

// ArticleDraft is the client-side payload for create and update calls.
// Scheduling times only make sense for published articles; Payload enforces
// that rule at serialization time.
type ArticleDraft struct {
	Title       string
	URL         string
	Status      ArticleStatus
	PublishAt   *time.Time
	UnpublishAt *time.Time
}

// Payload is the wire shape of a draft. The scheduling fields carry no
// omitempty so an unscheduled draft serializes them as explicit nulls.
type Payload struct {
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Status      ArticleStatus `json:"status"`
	PublishAt   *time.Time    `json:"publish_at"`
	UnpublishAt *time.Time    `json:"unpublish_at"`
}

// Validate checks the draft before it goes on the wire.
func (d ArticleDraft) Validate() error {
	if d.Title == "" {
		return fmt.Errorf("draft title is required")
	}
	if _, err := ParseStatus(string(d.Status)); err != nil {
		return err
	}
	u, err := url.Parse(d.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("draft url %q is not an absolute http(s) url", d.URL)
	}
	return nil
}

// Payload converts the draft to its wire shape. Drafts that are not
// published always send null scheduling times, even when the caller set one.
func (d ArticleDraft) Payload() Payload {
	p := Payload{
		Title:  d.Title,
		URL:    d.URL,
		Status: d.Status,
	}
	if d.Status == StatusPublished {
		p.PublishAt = d.PublishAt
		p.UnpublishAt = d.UnpublishAt
	}
	return p
}

// DraftOf rebuilds a draft from a fetched article, for unmodified
// round-trips through update.
func DraftOf(a Article) ArticleDraft {
	return ArticleDraft{
		Title:       a.Title,
		URL:         a.URL,
		Status:      a.Status,
		PublishAt:   a.PublishAt,
		UnpublishAt: a.UnpublishAt,
	}
}
