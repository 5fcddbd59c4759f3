package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubenotify/internal/domain/entity"
	"tubenotify/internal/infra/telegram"
)

/* ──────────────────────────────── fakes ──────────────────────────────── */

type fakeMessenger struct {
	mu       sync.Mutex
	sent     map[int64][]string
	failWith map[int64]error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{sent: make(map[int64][]string), failWith: make(map[int64]error)}
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failWith[chatID]; ok {
		return 0, err
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return 1, nil
}

func (f *fakeMessenger) Edit(context.Context, int64, int, string) error { return nil }
func (f *fakeMessenger) Delete(context.Context, int64, int) error       { return nil }

func (f *fakeMessenger) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[chatID]
}

type fakeSubscriberRepo struct {
	mu         sync.Mutex
	byTelegram map[int64]*entity.Subscriber
	statusByID map[int64]entity.Status
}

func newFakeSubscriberRepo(subs ...*entity.Subscriber) *fakeSubscriberRepo {
	r := &fakeSubscriberRepo{
		byTelegram: make(map[int64]*entity.Subscriber),
		statusByID: make(map[int64]entity.Status),
	}
	for _, s := range subs {
		r.byTelegram[s.TelegramID] = s
		r.statusByID[s.ID] = s.Status
	}
	return r
}

func (r *fakeSubscriberRepo) GetByTelegramID(_ context.Context, id int64) (*entity.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byTelegram[id], nil
}

func (r *fakeSubscriberRepo) Create(_ context.Context, s *entity.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTelegram[s.TelegramID] = s
	return nil
}

func (r *fakeSubscriberRepo) UpdateStatus(_ context.Context, id int64, status entity.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusByID[id] = status
	return nil
}

func (r *fakeSubscriberRepo) List(context.Context, int, int) ([]*entity.Subscriber, error) {
	return nil, nil
}
func (r *fakeSubscriberRepo) Count(context.Context) (int64, error) { return 0, nil }

func (r *fakeSubscriberRepo) status(id int64) entity.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusByID[id]
}

type fakePendingRepo struct {
	mu      sync.Mutex
	stored  []*entity.PendingMessage
	listErr error
}

func (r *fakePendingRepo) Create(_ context.Context, msgs []*entity.PendingMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, msgs...)
	return nil
}

func (r *fakePendingRepo) ListAll(context.Context) ([]*entity.PendingMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := r.stored
	return out, nil
}

func (r *fakePendingRepo) DeleteAll(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.stored))
	r.stored = nil
	return n, nil
}

func newTestDispatcher(m *fakeMessenger, subs *fakeSubscriberRepo, pending *fakePendingRepo, admins ...int64) (*Dispatcher, *PendingCache) {
	cache := NewPendingCache()
	return NewDispatcher(m, subs, pending, cache, nil, admins, nil), cache
}

/* ──────────────────────────────── tests ──────────────────────────────── */

func TestBuildContentMessage(t *testing.T) {
	channel := &entity.Channel{Name: "NASA"}
	msg := BuildContentMessage(channel, []string{"/watch?v=a", "/watch?v=b"})

	assert.Contains(t, msg, "~ NASA ~")
	assert.Contains(t, msg, "New content!")
	assert.Contains(t, msg, "https://www.youtube.com/watch?v=a")
	assert.Contains(t, msg, "https://www.youtube.com/watch?v=b")
}

func TestNotifyChannel_OneMessagePerChat(t *testing.T) {
	m := newFakeMessenger()
	d, _ := newTestDispatcher(m, newFakeSubscriberRepo(), &fakePendingRepo{})

	channel := &entity.Channel{Name: "NASA"}
	d.NotifyChannel(context.Background(), channel, []int64{100, 200}, []string{"/watch?v=a", "/watch?v=b"})

	// both new items travel in a single message per chat
	require.Len(t, m.sentTo(100), 1)
	require.Len(t, m.sentTo(200), 1)
	assert.Equal(t, m.sentTo(100), m.sentTo(200))
}

func TestNotifyChannel_NoNewContentSendsNothing(t *testing.T) {
	m := newFakeMessenger()
	d, _ := newTestDispatcher(m, newFakeSubscriberRepo(), &fakePendingRepo{})

	d.NotifyChannel(context.Background(), &entity.Channel{Name: "x"}, []int64{100}, nil)
	assert.Empty(t, m.sentTo(100))
}

func TestSendToChats_RejectionMarksBlocked(t *testing.T) {
	subscriber := &entity.Subscriber{ID: 5, TelegramID: 100, Status: entity.StatusActive}
	subs := newFakeSubscriberRepo(subscriber)

	m := newFakeMessenger()
	m.failWith[100] = &telegram.DeliveryError{ChatID: 100, Code: 403, Err: telegram.ErrRejected}

	d, cache := newTestDispatcher(m, subs, &fakePendingRepo{})
	d.SendToChats(context.Background(), []int64{100, 200}, "hi")

	assert.Equal(t, entity.StatusBlocked, subs.status(5))
	// rejected messages are dropped, not queued
	assert.Equal(t, 0, cache.Len())
	// the other chat still got its message
	assert.Len(t, m.sentTo(200), 1)
}

func TestSendToChats_TransientFailureQueues(t *testing.T) {
	m := newFakeMessenger()
	m.failWith[100] = &telegram.DeliveryError{ChatID: 100, Err: telegram.ErrNetworkFailure}

	d, cache := newTestDispatcher(m, newFakeSubscriberRepo(), &fakePendingRepo{})
	d.SendToChats(context.Background(), []int64{100}, "hi")

	require.Equal(t, 1, cache.Len())
	entries := cache.Drain()
	assert.Equal(t, int64(100), entries[0].ChatID)
	assert.Equal(t, "hi", entries[0].Text)
}

func TestPersistCache(t *testing.T) {
	pending := &fakePendingRepo{}
	d, cache := newTestDispatcher(newFakeMessenger(), newFakeSubscriberRepo(), pending)

	cache.Add(100, "queued")
	require.NoError(t, d.PersistCache(context.Background()))

	require.Len(t, pending.stored, 1)
	assert.Equal(t, 0, cache.Len())

	// empty cache writes nothing
	require.NoError(t, d.PersistCache(context.Background()))
	assert.Len(t, pending.stored, 1)
}

func TestRedeliverPending(t *testing.T) {
	pending := &fakePendingRepo{stored: []*entity.PendingMessage{
		{ChatID: 100, Text: "a"},
		{ChatID: 200, Text: "b"},
	}}
	m := newFakeMessenger()
	d, _ := newTestDispatcher(m, newFakeSubscriberRepo(), pending)

	require.NoError(t, d.RedeliverPending(context.Background()))

	assert.Len(t, m.sentTo(100), 1)
	assert.Len(t, m.sentTo(200), 1)
	// the durable table is cleared once redelivery ran
	assert.Empty(t, pending.stored)
}

func TestRedeliverPending_FailedAgainGoesBackToCache(t *testing.T) {
	pending := &fakePendingRepo{stored: []*entity.PendingMessage{{ChatID: 100, Text: "a"}}}
	m := newFakeMessenger()
	m.failWith[100] = &telegram.DeliveryError{ChatID: 100, Err: telegram.ErrNetworkFailure}

	d, cache := newTestDispatcher(m, newFakeSubscriberRepo(), pending)
	require.NoError(t, d.RedeliverPending(context.Background()))

	assert.Equal(t, 1, cache.Len())
	assert.Empty(t, pending.stored)
}

func TestRedeliverPending_ListError(t *testing.T) {
	pending := &fakePendingRepo{listErr: errors.New("db down")}
	d, _ := newTestDispatcher(newFakeMessenger(), newFakeSubscriberRepo(), pending)

	assert.ErrorContains(t, d.RedeliverPending(context.Background()), "load pending messages")
}

func TestNotifyAdmins(t *testing.T) {
	m := newFakeMessenger()
	d, cache := newTestDispatcher(m, newFakeSubscriberRepo(), &fakePendingRepo{}, 1, 2)

	d.NotifyAdmins(context.Background(), "bot started")
	assert.Len(t, m.sentTo(1), 1)
	assert.Len(t, m.sentTo(2), 1)

	// admin notifications never queue on failure
	m.failWith[1] = &telegram.DeliveryError{ChatID: 1, Err: telegram.ErrNetworkFailure}
	d.NotifyAdmins(context.Background(), "again")
	assert.Equal(t, 0, cache.Len())
}

func TestSendToChats_FanOutReachesEveryChat(t *testing.T) {
	m := newFakeMessenger()
	d, _ := newTestDispatcher(m, newFakeSubscriberRepo(), &fakePendingRepo{})

	chats := make([]int64, 50)
	for i := range chats {
		chats[i] = int64(i + 1)
	}
	d.SendToChats(context.Background(), chats, "hello")

	var got []int64
	m.mu.Lock()
	for id := range m.sent {
		got = append(got, id)
	}
	m.mu.Unlock()
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, chats, got)
}
