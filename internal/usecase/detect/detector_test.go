package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubenotify/internal/domain/entity"
)

type fakeContentRepo struct {
	known    map[entity.ContentKind][]string
	created  []*entity.ContentItem
	listErr  error
	batchErr error
}

func (f *fakeContentRepo) ListURLs(_ context.Context, _ int64, kind entity.ContentKind) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.known[kind], nil
}

func (f *fakeContentRepo) CreateBatch(_ context.Context, items []*entity.ContentItem) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	f.created = append(f.created, items...)
	return nil
}

func (f *fakeContentRepo) CountSince(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name  string
		known []string
		found []string
		want  []string
	}{
		{
			name:  "all new",
			known: nil,
			found: []string{"/watch?v=a", "/watch?v=b"},
			want:  []string{"/watch?v=a", "/watch?v=b"},
		},
		{
			name:  "partially known keeps order",
			known: []string{"/watch?v=b"},
			found: []string{"/watch?v=c", "/watch?v=b", "/watch?v=a"},
			want:  []string{"/watch?v=c", "/watch?v=a"},
		},
		{
			name:  "all known",
			known: []string{"/watch?v=a", "/watch?v=b"},
			found: []string{"/watch?v=b", "/watch?v=a"},
			want:  nil,
		},
		{
			name:  "duplicates in found collapse",
			known: nil,
			found: []string{"/watch?v=a", "/watch?v=a"},
			want:  []string{"/watch?v=a"},
		},
		{
			name:  "empty found",
			known: []string{"/watch?v=a"},
			found: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff(tt.known, tt.found))
		})
	}
}

func TestDetectNew_RecordsOnlyFresh(t *testing.T) {
	repo := &fakeContentRepo{known: map[entity.ContentKind][]string{
		entity.KindVideo: {"/watch?v=old00000000"},
	}}
	d := NewDetector(repo)

	items, err := d.DetectNew(context.Background(), 1, entity.KindVideo,
		[]string{"/watch?v=old00000000", "/watch?v=new00000000"})
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "/watch?v=new00000000", items[0].URL)
	assert.Equal(t, entity.KindVideo, items[0].Kind)
	assert.Equal(t, int64(1), items[0].ChannelID)
	assert.Len(t, repo.created, 1)
}

func TestDetectNew_EmptyScrapeIsNoop(t *testing.T) {
	repo := &fakeContentRepo{listErr: errors.New("must not be called")}
	d := NewDetector(repo)

	items, err := d.DetectNew(context.Background(), 1, entity.KindVideo, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDetectNew_NothingNewSkipsWrite(t *testing.T) {
	repo := &fakeContentRepo{known: map[entity.ContentKind][]string{
		entity.KindStream: {"/watch?v=live0000000"},
	}}
	d := NewDetector(repo)

	items, err := d.DetectNew(context.Background(), 1, entity.KindStream,
		[]string{"/watch?v=live0000000"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, repo.created)
}

func TestDetectNew_CapsScrapedInput(t *testing.T) {
	repo := &fakeContentRepo{}
	d := NewDetector(repo)

	scraped := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		scraped = append(scraped, "/watch?v="+string(rune('a'+i%26))+string(rune('0'+i/26)))
	}

	items, err := d.DetectNew(context.Background(), 1, entity.KindVideo, scraped)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(items), maxFoundPerPage)
}

func TestDetectNew_ListError(t *testing.T) {
	repo := &fakeContentRepo{listErr: errors.New("db down")}
	d := NewDetector(repo)

	_, err := d.DetectNew(context.Background(), 1, entity.KindVideo, []string{"/watch?v=x"})
	assert.ErrorContains(t, err, "list known URLs")
}
