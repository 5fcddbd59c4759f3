// Package scraper extracts channel metadata and content links from YouTube
// pages. The primary finder works on raw HTML with regular expressions since
// most of the interesting data lives in embedded JSON, with a goquery based
// fallback for the DOM anchored fields.
package scraper

import (
	"log/slog"
	"regexp"
)

const logTextMaxLen = 200

var (
	authorSpanRe  = regexp.MustCompile(`(?s)<span itemprop="author".*?<link itemprop="url" href="([^"]+)"`)
	canonicalRe   = regexp.MustCompile(`<link rel="canonical" href="([^"]+)"`)
	originalURLRe = regexp.MustCompile(`"originalUrl":"([^"]+)"`)
	channelNameRe = regexp.MustCompile(`"name": "([^"]*)"`)
	watchPathRe   = regexp.MustCompile(`/watch\?v=[^"'\\&?]{1,11}`)
	// tab names only count as path segments, a handle like @aboutcars is
	// still a channel root
	contentPathRe = regexp.MustCompile(`(?:/(?:watch|videos|streams|shorts|playlists|community|channels|about)|\?).+`)
)

// Finder locates channel attributes in raw page HTML.
type Finder struct {
	logger *slog.Logger
}

// NewFinder creates a Finder logging misses through the given logger.
func NewFinder(logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{logger: logger}
}

// excerpt truncates page text for log lines so a miss does not dump the
// whole document into the log stream.
func excerpt(text string) string {
	if len(text) < logTextMaxLen {
		return text
	}
	return text[:logTextMaxLen]
}

// ChannelURL extracts the channel URL from a video, stream or channel page.
// The value sits in the author microdata span. Returns "" when absent.
func (f *Finder) ChannelURL(page, fromURL string) string {
	if m := authorSpanRe.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	f.logger.Warn("channel URL not found",
		slog.String("url", fromURL),
		slog.String("text", excerpt(page)))
	return ""
}

// CanonicalURL extracts the canonical link of the page. Returns "" when
// absent.
func (f *Finder) CanonicalURL(page, fromURL string) string {
	if m := canonicalRe.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	f.logger.Warn("canonical URL not found",
		slog.String("url", fromURL),
		slog.String("text", excerpt(page)))
	return ""
}

// OriginalURL extracts the originalUrl field from the embedded player JSON.
// Returns "" when absent.
func (f *Finder) OriginalURL(page, fromURL string) string {
	if m := originalURLRe.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	f.logger.Warn("original URL not found",
		slog.String("url", fromURL),
		slog.String("text", excerpt(page)))
	return ""
}

// ChannelName extracts the channel name from the embedded metadata JSON.
// Returns "" when absent.
func (f *Finder) ChannelName(page, fromURL string) string {
	if m := channelNameRe.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	f.logger.Warn("channel name not found",
		slog.String("url", fromURL),
		slog.String("text", excerpt(page)))
	return ""
}

// ContentURLs extracts all watch paths from a channel listing page. The paths
// are relative (e.g. "/watch?v=abc123defgh") and may repeat; callers dedupe.
func (f *Finder) ContentURLs(page, fromURL string) []string {
	urls := watchPathRe.FindAllString(page, -1)
	if len(urls) == 0 {
		f.logger.Warn("content URLs not found",
			slog.String("url", fromURL),
			slog.String("text", excerpt(page)))
	}
	return urls
}

// IsContentPath reports whether a URL path points at content below a channel
// root (a watch page, a tab or a query) rather than the channel itself.
func IsContentPath(path string) bool {
	return contentPathRe.MatchString(path)
}
