package entity

import (
	"fmt"
	"time"
)

// ContentKind distinguishes the two listing pages a channel exposes.
// Each kind carries its own listing-page suffix; dispatch is always an
// explicit switch, never string-keyed lookup.
type ContentKind string

const (
	KindVideo  ContentKind = "video"
	KindStream ContentKind = "stream"
)

// Kinds lists every content kind the poller checks per channel.
var Kinds = []ContentKind{KindVideo, KindStream}

// PathSuffix returns the channel-page path segment that lists this kind.
func (k ContentKind) PathSuffix() string {
	switch k {
	case KindVideo:
		return "videos"
	case KindStream:
		return "streams"
	}
	return ""
}

// Validate checks that the kind is one of the known variants.
func (k ContentKind) Validate() error {
	switch k {
	case KindVideo, KindStream:
		return nil
	}
	return fmt.Errorf("invalid content kind: %q (must be video or stream)", string(k))
}

// ContentItem is a discovered video or stream URL belonging to a channel.
// URL holds the relative watch path as scraped (e.g. "/watch?v=AAA").
// Items are append-only: created when the change detector first sees the URL,
// never updated or deleted.
type ContentItem struct {
	ID        int64
	ChannelID int64
	Kind      ContentKind
	URL       string
	CreatedAt time.Time
}
