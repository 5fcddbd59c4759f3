// Package detect decides which scraped content URLs are new for a channel.
package detect

import (
	"context"
	"fmt"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/observability/metrics"
	"tubenotify/internal/repository"
)

// maxFoundPerPage caps how many scraped paths one listing page contributes.
// A listing page shows far fewer entries; anything beyond this is scraper
// noise.
const maxFoundPerPage = 60

// Detector computes the set difference between scraped paths and the
// channel's recorded history, then records the newcomers.
type Detector struct {
	contents repository.ContentRepository
}

// NewDetector creates a Detector backed by the content repository.
func NewDetector(contents repository.ContentRepository) *Detector {
	return &Detector{contents: contents}
}

// Diff returns the elements of found that are absent from known, preserving
// the order of found. Duplicates within found collapse to one entry.
func Diff(known, found []string) []string {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}

	var fresh []string
	for _, f := range found {
		if _, ok := knownSet[f]; ok {
			continue
		}
		knownSet[f] = struct{}{} // collapse duplicates inside found
		fresh = append(fresh, f)
	}
	return fresh
}

// DetectNew compares scraped paths against the recorded history of one
// channel and kind, persists the new items and returns them. An empty
// scrape yields no new items, never a wipe of history.
func (d *Detector) DetectNew(ctx context.Context, channelID int64, kind entity.ContentKind, scraped []string) ([]*entity.ContentItem, error) {
	if len(scraped) == 0 {
		return nil, nil
	}
	if len(scraped) > maxFoundPerPage {
		scraped = scraped[:maxFoundPerPage]
	}

	known, err := d.contents.ListURLs(ctx, channelID, kind)
	if err != nil {
		return nil, fmt.Errorf("list known URLs: %w", err)
	}

	fresh := Diff(known, scraped)
	if len(fresh) == 0 {
		return nil, nil
	}

	items := make([]*entity.ContentItem, 0, len(fresh))
	for _, url := range fresh {
		items = append(items, &entity.ContentItem{
			ChannelID: channelID,
			Kind:      kind,
			URL:       url,
		})
	}

	if err := d.contents.CreateBatch(ctx, items); err != nil {
		return nil, fmt.Errorf("record new items: %w", err)
	}

	metrics.ContentDiscoveredTotal.WithLabelValues(string(kind)).Add(float64(len(items)))
	return items, nil
}
