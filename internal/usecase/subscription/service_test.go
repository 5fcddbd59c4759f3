package subscription

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/repository"
)

/* ──────────────────────────────── fakes ──────────────────────────────── */

type fakeSubscriberRepo struct {
	byTelegram map[int64]*entity.Subscriber
	statuses   map[int64]entity.Status
	total      int64
	nextID     int64
}

func newFakeSubscriberRepo(subs ...*entity.Subscriber) *fakeSubscriberRepo {
	r := &fakeSubscriberRepo{
		byTelegram: make(map[int64]*entity.Subscriber),
		statuses:   make(map[int64]entity.Status),
		nextID:     1,
	}
	for _, s := range subs {
		r.byTelegram[s.TelegramID] = s
		r.statuses[s.ID] = s.Status
		if s.ID >= r.nextID {
			r.nextID = s.ID + 1
		}
	}
	return r
}

func (r *fakeSubscriberRepo) GetByTelegramID(_ context.Context, id int64) (*entity.Subscriber, error) {
	return r.byTelegram[id], nil
}

func (r *fakeSubscriberRepo) Create(_ context.Context, s *entity.Subscriber) error {
	if s.Status == "" {
		s.Status = entity.StatusActive
	}
	if s.SubsLimit == 0 {
		s.SubsLimit = entity.DefaultSubsLimit
	}
	s.ID = r.nextID
	r.nextID++
	r.byTelegram[s.TelegramID] = s
	r.statuses[s.ID] = s.Status
	return nil
}

func (r *fakeSubscriberRepo) UpdateStatus(_ context.Context, id int64, status entity.Status) error {
	r.statuses[id] = status
	return nil
}

func (r *fakeSubscriberRepo) List(context.Context, int, int) ([]*entity.Subscriber, error) {
	return nil, nil
}
func (r *fakeSubscriberRepo) Count(context.Context) (int64, error) { return r.total, nil }

type fakeChannelRepo struct {
	byURL   map[string]*entity.Channel
	created []*entity.Channel
	total   int64
	nextID  int64
}

func newFakeChannelRepo(channels ...*entity.Channel) *fakeChannelRepo {
	r := &fakeChannelRepo{byURL: make(map[string]*entity.Channel), nextID: 1}
	for _, c := range channels {
		r.byURL[c.URL] = c
		r.byURL[c.CanonicalURL] = c
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	return r
}

func (r *fakeChannelRepo) GetByURL(_ context.Context, url string) (*entity.Channel, error) {
	return r.byURL[url], nil
}

func (r *fakeChannelRepo) Create(_ context.Context, c *entity.Channel) error {
	c.ID = r.nextID
	r.nextID++
	r.byURL[c.URL] = c
	r.byURL[c.CanonicalURL] = c
	r.created = append(r.created, c)
	return nil
}

func (r *fakeChannelRepo) Count(context.Context) (int64, error) { return r.total, nil }
func (r *fakeChannelRepo) ListWithActiveSubscribers(context.Context, int, int) ([]*repository.ChannelSubscribers, bool, error) {
	return nil, false, nil
}

type fakeSubscriptionRepo struct {
	links     map[string]bool
	createErr error
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{links: make(map[string]bool)}
}

func linkKey(subscriberID, channelID int64) string {
	return fmt.Sprintf("%d:%d", subscriberID, channelID)
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, subscriberID, channelID int64) error {
	if r.createErr != nil {
		return r.createErr
	}
	key := linkKey(subscriberID, channelID)
	if r.links[key] {
		return entity.ErrDuplicate
	}
	r.links[key] = true
	return nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, subscriberID, channelID int64) error {
	delete(r.links, linkKey(subscriberID, channelID))
	return nil
}

func (r *fakeSubscriptionRepo) CountBySubscriber(_ context.Context, subscriberID int64) (int, error) {
	count := 0
	prefix := fmt.Sprintf("%d:", subscriberID)
	for key := range r.links {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) ListChannels(context.Context, int64) ([]*entity.Channel, error) {
	return nil, nil
}

type fakeContentRepo struct {
	created []*entity.ContentItem
	today   int64
}

func (r *fakeContentRepo) ListURLs(context.Context, int64, entity.ContentKind) ([]string, error) {
	return nil, nil
}

func (r *fakeContentRepo) CreateBatch(_ context.Context, items []*entity.ContentItem) error {
	r.created = append(r.created, items...)
	return nil
}

func (r *fakeContentRepo) CountSince(context.Context, time.Time) (int64, error) {
	return r.today, nil
}

type fakeResolver struct {
	channel    *entity.Channel
	resolveErr error
	listing    map[entity.ContentKind][]string
}

func (f *fakeResolver) ResolveChannelPage(_ context.Context, rawURL string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "<html>" + rawURL + "</html>", nil
}

func (f *fakeResolver) BuildChannel(_, _ string) (*entity.Channel, error) {
	if f.channel == nil {
		return nil, entity.ErrNotFound
	}
	c := *f.channel
	return &c, nil
}

func (f *fakeResolver) ContentURLs(_ context.Context, _ *entity.Channel, kind entity.ContentKind) []string {
	return f.listing[kind]
}

/* ──────────────────────────────── tests ──────────────────────────────── */

const channelURL = "https://www.youtube.com/@nasa"

func activeSubscriber() *entity.Subscriber {
	return &entity.Subscriber{
		ID:         1,
		TelegramID: 100,
		Status:     entity.StatusActive,
		SubsLimit:  entity.DefaultSubsLimit,
	}
}

func TestRegisterSubscriber_CreatesNewWithDefaults(t *testing.T) {
	subs := newFakeSubscriberRepo()
	svc := NewService(subs, newFakeChannelRepo(), newFakeSubscriptionRepo(), &fakeContentRepo{}, &fakeResolver{}, nil)

	got, err := svc.RegisterSubscriber(context.Background(), 100, "Ada", "ada")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusActive, got.Status)
	assert.Equal(t, entity.DefaultSubsLimit, got.SubsLimit)
	assert.NotZero(t, got.ID)
}

func TestRegisterSubscriber_ReactivatesBlocked(t *testing.T) {
	blocked := &entity.Subscriber{ID: 1, TelegramID: 100, Status: entity.StatusBlocked}
	subs := newFakeSubscriberRepo(blocked)
	svc := NewService(subs, newFakeChannelRepo(), newFakeSubscriptionRepo(), &fakeContentRepo{}, &fakeResolver{}, nil)

	got, err := svc.RegisterSubscriber(context.Background(), 100, "Ada", "ada")
	require.NoError(t, err)

	assert.Equal(t, entity.StatusActive, got.Status)
	assert.Equal(t, entity.StatusActive, subs.statuses[1])
}

func TestRegisterSubscriber_BannedStaysBanned(t *testing.T) {
	banned := &entity.Subscriber{ID: 1, TelegramID: 100, Status: entity.StatusBanned}
	subs := newFakeSubscriberRepo(banned)
	svc := NewService(subs, newFakeChannelRepo(), newFakeSubscriptionRepo(), &fakeContentRepo{}, &fakeResolver{}, nil)

	got, err := svc.RegisterSubscriber(context.Background(), 100, "Ada", "ada")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusBanned, got.Status)
}

func TestSubscribe_KnownChannel(t *testing.T) {
	channel := &entity.Channel{ID: 7, Name: "NASA", URL: channelURL, CanonicalURL: channelURL}
	channels := newFakeChannelRepo(channel)
	links := newFakeSubscriptionRepo()
	svc := NewService(newFakeSubscriberRepo(), channels, links, &fakeContentRepo{}, &fakeResolver{}, nil)

	got, err := svc.Subscribe(context.Background(), activeSubscriber(), channelURL)
	require.NoError(t, err)

	assert.Equal(t, int64(7), got.ID)
	assert.True(t, links.links[linkKey(1, 7)])
	// no new channel row written
	assert.Empty(t, channels.created)
}

func TestSubscribe_NewChannelIsCreatedAndSeeded(t *testing.T) {
	channels := newFakeChannelRepo()
	contents := &fakeContentRepo{}
	resolver := &fakeResolver{
		channel: &entity.Channel{Name: "NASA", URL: channelURL, CanonicalURL: channelURL},
		listing: map[entity.ContentKind][]string{
			entity.KindVideo:  {"/watch?v=a0000000000", "/watch?v=b0000000000"},
			entity.KindStream: {"/watch?v=c0000000000"},
		},
	}
	svc := NewService(newFakeSubscriberRepo(), channels, newFakeSubscriptionRepo(), contents, resolver, nil)

	got, err := svc.Subscribe(context.Background(), activeSubscriber(), channelURL)
	require.NoError(t, err)

	require.Len(t, channels.created, 1)
	assert.Equal(t, "NASA", got.Name)
	// current listing is recorded so it is never announced as new
	assert.Len(t, contents.created, 3)
	for _, item := range contents.created {
		assert.Equal(t, got.ID, item.ChannelID)
	}
}

func TestSubscribe_DuplicateIsIdempotent(t *testing.T) {
	channel := &entity.Channel{ID: 7, Name: "NASA", URL: channelURL, CanonicalURL: channelURL}
	links := newFakeSubscriptionRepo()
	links.links[linkKey(1, 7)] = true
	svc := NewService(newFakeSubscriberRepo(), newFakeChannelRepo(channel), links, &fakeContentRepo{}, &fakeResolver{}, nil)

	got, err := svc.Subscribe(context.Background(), activeSubscriber(), channelURL)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
}

func TestSubscribe_LimitReached(t *testing.T) {
	subscriber := activeSubscriber()
	links := newFakeSubscriptionRepo()
	for i := 0; i < subscriber.SubsLimit; i++ {
		links.links[linkKey(subscriber.ID, int64(i+100))] = true
	}
	svc := NewService(newFakeSubscriberRepo(), newFakeChannelRepo(), links, &fakeContentRepo{}, &fakeResolver{}, nil)

	_, err := svc.Subscribe(context.Background(), subscriber, channelURL)
	assert.ErrorIs(t, err, ErrSubscriptionLimit)
}

func TestSubscribe_InvalidURL(t *testing.T) {
	svc := NewService(newFakeSubscriberRepo(), newFakeChannelRepo(), newFakeSubscriptionRepo(), &fakeContentRepo{}, &fakeResolver{}, nil)

	_, err := svc.Subscribe(context.Background(), activeSubscriber(), "ftp://nope")
	require.Error(t, err)

	var vErr *entity.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestSubscribe_ResolveFailure(t *testing.T) {
	resolver := &fakeResolver{resolveErr: errors.New("upstream down")}
	svc := NewService(newFakeSubscriberRepo(), newFakeChannelRepo(), newFakeSubscriptionRepo(), &fakeContentRepo{}, resolver, nil)

	_, err := svc.Subscribe(context.Background(), activeSubscriber(), channelURL)
	assert.ErrorContains(t, err, "upstream down")
}

func TestSubscribe_CanonicalDedupes(t *testing.T) {
	// the channel exists under its canonical URL but the user submits a
	// different spelling
	canonical := "https://www.youtube.com/channel/UCabc"
	existing := &entity.Channel{ID: 7, Name: "NASA", URL: canonical, CanonicalURL: canonical}
	channels := newFakeChannelRepo(existing)
	resolver := &fakeResolver{
		channel: &entity.Channel{Name: "NASA", URL: channelURL, CanonicalURL: canonical},
	}
	svc := NewService(newFakeSubscriberRepo(), channels, newFakeSubscriptionRepo(), &fakeContentRepo{}, resolver, nil)

	got, err := svc.Subscribe(context.Background(), activeSubscriber(), channelURL)
	require.NoError(t, err)

	assert.Equal(t, int64(7), got.ID)
	assert.Empty(t, channels.created)
}

func TestStats(t *testing.T) {
	subs := newFakeSubscriberRepo()
	subs.total = 42
	channels := newFakeChannelRepo()
	channels.total = 7
	contents := &fakeContentRepo{today: 3}
	svc := NewService(subs, channels, newFakeSubscriptionRepo(), contents, &fakeResolver{}, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.Subscribers)
	assert.Equal(t, int64(7), stats.Channels)
	assert.Equal(t, int64(3), stats.ContentToday)
}
