// Package models defines the request and response bodies of the HTTP API.
package models

import (
	"fmt"
	"strings"

	"github.com/hyperjump/matomeru/pkg/utils"
)

// Item kinds. Kinds only change how clusters are reported, never how they are formed.
const (
	KindPage = "page"
	KindNote = "note"
)

// ItemInput is the body for adding or replacing an item. Either Text or Title and
// Content may be given; Text wins when set.
type ItemInput struct {
	ID      *int   `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Text    string `json:"text,omitempty"`
	// Kind is "page" (the default) or "note".
	Kind string `json:"kind,omitempty"`
	// URL is the page address; items on a title-only host embed the title alone.
	URL string `json:"url,omitempty"`
}

// Validate checks the input. requireID is set for adds, where the id comes from the
// body rather than the URL.
func (in *ItemInput) Validate(requireID bool) error {
	if requireID && in.ID == nil {
		return fmt.Errorf("id is required")
	}
	if in.ID != nil && *in.ID < 0 {
		return fmt.Errorf("id must be non-negative, got %d", *in.ID)
	}
	if _, err := ParseKind(in.Kind); err != nil {
		return err
	}
	return nil
}

// ItemKind returns the kind of the item, KindPage when unset.
func (in *ItemInput) ItemKind() string {
	kind, _ := ParseKind(in.Kind)
	return kind
}

// ItemText returns the text to embed.
func (in *ItemInput) ItemText(titleOnlyHosts []string) string {
	if strings.TrimSpace(in.Text) != "" {
		return in.Text
	}
	return utils.ItemText(in.Title, in.Content, in.URL, titleOnlyHosts)
}

// ParseKind normalizes kind. Blank means KindPage.
func ParseKind(kind string) (string, error) {
	switch k := strings.ToLower(strings.TrimSpace(kind)); k {
	case "", KindPage:
		return KindPage, nil
	case KindNote:
		return KindNote, nil
	default:
		return KindPage, fmt.Errorf("kind must be %q or %q, got %q", KindPage, KindNote, kind)
	}
}

// ThresholdInput is the body of PUT /api/v1/threshold.
type ThresholdInput struct {
	Threshold float64 `json:"threshold"`
}
