// Package entity defines the core domain entities and validation logic for the bot.
// It contains the fundamental business objects such as Channel, Subscriber and
// ContentItem, along with their validation rules and domain-specific errors.
package entity

import (
	"strings"
	"time"
)

// Channel represents a YouTube channel tracked by the bot.
// URL is the channel's original URL as reported by YouTube, CanonicalURL is the
// alternate unique form used for lookups when users submit different spellings
// of the same channel.
type Channel struct {
	ID           int64
	Name         string
	URL          string
	CanonicalURL string
	CreatedAt    time.Time
}

// Validate validates the Channel entity fields.
func (c *Channel) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "is required"}
	}
	if err := ValidateURL(c.URL); err != nil {
		return err
	}
	if err := ValidateURL(c.CanonicalURL); err != nil {
		return err
	}
	return nil
}

// ExternalID extracts the opaque YouTube channel identifier from the canonical
// URL when it has the /channel/<id> form. Returns "" for handle-style URLs.
func (c *Channel) ExternalID() string {
	const marker = "/channel/"
	idx := strings.Index(c.CanonicalURL, marker)
	if idx < 0 {
		return ""
	}
	id := c.CanonicalURL[idx+len(marker):]
	if cut := strings.IndexAny(id, "/?&"); cut >= 0 {
		id = id[:cut]
	}
	return id
}
