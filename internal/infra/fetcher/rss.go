package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"tubenotify/internal/domain/entity"
)

// feedURLFormat is YouTube's per-channel RSS feed. It only works with the
// canonical channel ID, not handles, and only covers uploads, so it serves
// as a fallback for the video listing when scraping comes back empty.
const feedURLFormat = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// RSSFetcher resolves recent uploads through the channel RSS feed.
type RSSFetcher struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewRSSFetcher creates an RSSFetcher.
func NewRSSFetcher(logger *slog.Logger) *RSSFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSFetcher{
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// VideoPaths returns the watch paths of the channel's recent uploads, newest
// first, in the same relative form the scraper produces. Returns nil when
// the channel has no extractable ID or the feed is unreachable.
func (r *RSSFetcher) VideoPaths(ctx context.Context, channel *entity.Channel) []string {
	externalID := channel.ExternalID()
	if externalID == "" {
		return nil
	}

	feedURL := fmt.Sprintf(feedURLFormat, externalID)
	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		r.logger.Warn("channel feed fetch failed",
			slog.String("channel", channel.Name),
			slog.String("url", feedURL),
			slog.String("error", err.Error()))
		return nil
	}

	paths := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if path := watchPathFromLink(item.Link); path != "" {
			paths = append(paths, path)
		}
	}
	return dedupe(paths)
}

// watchPathFromLink converts an absolute watch link into the relative path
// form used everywhere else ("/watch?v=ID").
func watchPathFromLink(link string) string {
	idx := strings.Index(link, "/watch?v=")
	if idx < 0 {
		return ""
	}
	path := link[idx:]
	if amp := strings.IndexAny(path, "&"); amp >= 0 {
		path = path[:amp]
	}
	return path
}
