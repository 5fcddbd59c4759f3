package scraper

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOMFinder resolves the same fields as Finder but through a parsed DOM.
// Slower than the regex path, so it only runs when the raw-text finder comes
// back empty. YouTube occasionally reorders attributes inside tags, which
// breaks fixed-pattern matching but not selector lookups.
type DOMFinder struct {
	logger *slog.Logger
}

// NewDOMFinder creates a DOMFinder logging misses through the given logger.
func NewDOMFinder(logger *slog.Logger) *DOMFinder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOMFinder{logger: logger}
}

func (f *DOMFinder) parse(page, fromURL string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		f.logger.Warn("page not parseable as HTML",
			slog.String("url", fromURL),
			slog.String("error", err.Error()))
		return nil
	}
	return doc
}

// ChannelURL looks up the author microdata link. Returns "" when absent.
func (f *DOMFinder) ChannelURL(page, fromURL string) string {
	doc := f.parse(page, fromURL)
	if doc == nil {
		return ""
	}
	href, _ := doc.Find(`span[itemprop="author"] link[itemprop="url"]`).Attr("href")
	return href
}

// CanonicalURL looks up the canonical link element. Returns "" when absent.
func (f *DOMFinder) CanonicalURL(page, fromURL string) string {
	doc := f.parse(page, fromURL)
	if doc == nil {
		return ""
	}
	href, _ := doc.Find(`link[rel="canonical"]`).Attr("href")
	return href
}

// ChannelName looks up the og:title meta tag, which mirrors the channel name
// on channel pages. Returns "" when absent.
func (f *DOMFinder) ChannelName(page, fromURL string) string {
	doc := f.parse(page, fromURL)
	if doc == nil {
		return ""
	}
	name, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	return name
}
