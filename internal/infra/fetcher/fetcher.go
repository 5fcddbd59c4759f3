package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/infra/scraper"
	"tubenotify/internal/observability/metrics"
	"tubenotify/internal/resilience/circuitbreaker"
	"tubenotify/internal/resilience/retry"
	"tubenotify/pkg/ratelimit"
)

// baseHeaders are sent with every page request, on top of the randomized
// Chrome identity headers.
var baseHeaders = map[string]string{
	"authority": "www.youtube.com",
	"accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/" +
		"webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9",
	"cache-control":                       "max-age=0",
	"sec-ch-ua-wow64":                     "?0",
	"sec-fetch-dest":                      "document",
	"sec-fetch-mode":                      "navigate",
	"sec-fetch-site":                      "none",
	"sec-fetch-user":                      "?1",
	"service-worker-navigation-preload":   "true",
	"upgrade-insecure-requests":           "1",
}

// ErrRateLimited reports that the fetch was skipped because the rate limit
// bucket was stopped before a token became available.
var ErrRateLimited = errors.New("fetch skipped: rate limit bucket stopped")

// StatusError reports a non-2xx response. Status failures are terminal on the
// page fetch path: only transport errors get retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// PageFetcher downloads pages and resolves channel content from them.
type PageFetcher struct {
	cfg     Config
	client  *http.Client
	bucket  *ratelimit.Bucket
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config

	finder *scraper.Finder
	dom    *scraper.DOMFinder
	logger *slog.Logger
}

// New creates a PageFetcher. The bucket comes from the shared registry so
// every component hitting YouTube drains the same token pool.
func New(cfg Config, client *http.Client, bucket *ratelimit.Bucket, logger *slog.Logger) *PageFetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageFetcher{
		cfg:     cfg,
		client:  client,
		bucket:  bucket,
		breaker: circuitbreaker.New(circuitbreaker.PageFetchConfig()),
		retry:   retry.PageFetchConfig(),
		finder:  scraper.NewFinder(logger),
		dom:     scraper.NewDOMFinder(logger),
		logger:  logger,
	}
}

// GetPage downloads one page through the rate limiter, the retry wrapper and
// the circuit breaker. Retries cover transport errors only; a non-2xx status
// fails immediately. Returns the body as a string.
func (f *PageFetcher) GetPage(ctx context.Context, url string) (string, error) {
	var page string
	fetch := func() error {
		return retry.WithBackoff(ctx, f.retry, func() error {
			result, err := f.breaker.Execute(func() (interface{}, error) {
				return f.doFetch(ctx, url)
			})
			if err != nil {
				if errors.Is(err, gobreaker.ErrOpenState) {
					f.logger.Warn("fetch circuit open, request rejected",
						slog.String("url", url))
				}
				return err
			}
			page = result.(string)
			return nil
		})
	}

	if f.bucket == nil {
		return page, fetch()
	}
	ran, err := f.bucket.Do(ctx, 1, fetch)
	if err != nil {
		return "", err
	}
	if !ran {
		return "", ErrRateLimited
	}
	return page, nil
}

// doFetch performs the raw HTTP request. Only 2xx responses count as
// success.
func (f *PageFetcher) doFetch(ctx context.Context, url string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header = scraper.RandomHeaders()
	for k, v := range baseHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues("network_error").Inc()
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ScrapeRequestsTotal.WithLabelValues("http_error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 50))
		f.logger.Warn("non-2xx response",
			slog.Int("status", resp.StatusCode),
			slog.String("url", url),
			slog.String("body", string(body)))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		metrics.ScrapeRequestsTotal.WithLabelValues("network_error").Inc()
		return "", fmt.Errorf("read body: %w", err)
	}

	metrics.ScrapeRequestsTotal.WithLabelValues("ok").Inc()
	metrics.ScrapeDuration.Observe(time.Since(start).Seconds())
	return string(body), nil
}

// ResolveChannelPage turns any YouTube URL a user pastes into the HTML of
// the channel root page. Content URLs (watch pages, tabs, queries) are
// fetched first to locate the owning channel; channel roots are fetched
// directly.
func (f *PageFetcher) ResolveChannelPage(ctx context.Context, rawURL string) (string, error) {
	if !scraper.IsContentPath(rawURL) {
		return f.GetPage(ctx, rawURL)
	}

	contentPage, err := f.GetPage(ctx, rawURL)
	if err != nil {
		return "", err
	}

	channelURL := f.finder.ChannelURL(contentPage, rawURL)
	if channelURL == "" {
		channelURL = f.dom.ChannelURL(contentPage, rawURL)
	}
	if channelURL == "" {
		return "", fmt.Errorf("channel URL not found on %s: %w", rawURL, entity.ErrNotFound)
	}
	return f.GetPage(ctx, channelURL)
}

// BuildChannel parses a channel root page into a Channel entity. Name,
// original URL and canonical URL must all be present.
func (f *PageFetcher) BuildChannel(page, fromURL string) (*entity.Channel, error) {
	name := f.finder.ChannelName(page, fromURL)
	if name == "" {
		name = f.dom.ChannelName(page, fromURL)
	}
	originalURL := f.finder.OriginalURL(page, fromURL)
	canonicalURL := f.finder.CanonicalURL(page, fromURL)
	if canonicalURL == "" {
		canonicalURL = f.dom.CanonicalURL(page, fromURL)
	}

	if name == "" || originalURL == "" || canonicalURL == "" {
		return nil, fmt.Errorf("channel attributes missing on %s: %w", fromURL, entity.ErrNotFound)
	}

	return &entity.Channel{
		Name:         name,
		URL:          originalURL,
		CanonicalURL: canonicalURL,
	}, nil
}

// ContentURLs downloads the listing page for one content kind and returns
// the deduplicated watch paths in page order. Failures come back as an empty
// slice so one unreachable channel never aborts a poll cycle.
func (f *PageFetcher) ContentURLs(ctx context.Context, channel *entity.Channel, kind entity.ContentKind) []string {
	base := channel.CanonicalURL
	if base == "" {
		base = channel.URL
	}
	url := strings.TrimSuffix(base, "/") + "/" + kind.PathSuffix()

	page, err := f.GetPage(ctx, url)
	if err != nil {
		f.logger.Warn("listing page fetch failed",
			slog.String("channel", channel.Name),
			slog.String("url", url),
			slog.String("error", err.Error()))
		return nil
	}

	return dedupe(f.finder.ContentURLs(page, url))
}

// dedupe removes repeated paths keeping first-seen order.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
