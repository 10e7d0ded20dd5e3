package chatclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeFeed hands out in-memory subscriptions and lets tests emit events.
type fakeFeed struct {
	mu           sync.Mutex
	subs         []*fakeSubscription
	subscribeErr error
}

type fakeSubscription struct {
	mu      sync.Mutex
	closed  bool
	deliver func(Message)
}

func (f *fakeFeed) Subscribe(_ context.Context, deliver func(Message)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	sub := &fakeSubscription{deliver: deliver}
	f.subs = append(f.subs, sub)
	return sub, nil
}

// emit fans an event out to every open subscription, as the shared feed does.
func (f *fakeFeed) emit(msg Message) {
	f.mu.Lock()
	subs := make([]*fakeSubscription, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()
	for _, sub := range subs {
		sub.mu.Lock()
		closed, deliver := sub.closed, sub.deliver
		sub.mu.Unlock()
		if !closed {
			deliver(msg)
		}
	}
}

func (f *fakeFeed) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sub := range f.subs {
		sub.mu.Lock()
		if !sub.closed {
			n++
		}
		sub.mu.Unlock()
	}
	return n
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestLiveChannelLifecycle(t *testing.T) {
	feed := &fakeFeed{}
	channel := NewLiveChannel(feed, func(Message) {})

	require.Equal(t, StateUnsubscribed, channel.State())

	require.NoError(t, channel.Attach(context.Background(), 4))
	require.Equal(t, StateSubscribed, channel.State())
	require.Equal(t, int64(4), channel.ConversationID())
	require.Equal(t, 1, feed.openCount())

	channel.Detach()
	require.Equal(t, StateUnsubscribed, channel.State())
	require.Zero(t, channel.ConversationID())
	require.Equal(t, 0, feed.openCount())

	// Detach is idempotent.
	channel.Detach()
	require.Equal(t, StateUnsubscribed, channel.State())
}

func TestLiveChannelScopesByConversation(t *testing.T) {
	feed := &fakeFeed{}
	var delivered []Message
	var mu sync.Mutex
	channel := NewLiveChannel(feed, func(msg Message) {
		mu.Lock()
		delivered = append(delivered, msg)
		mu.Unlock()
	})

	require.NoError(t, channel.Attach(context.Background(), 4))

	feed.emit(Message{ID: 1, ConversationID: 4, Content: "in scope"})
	feed.emit(Message{ID: 2, ConversationID: 9, Content: "other conversation"})
	feed.emit(Message{ID: 3, ConversationID: 4, Content: "also in scope"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 2)
	require.Equal(t, int64(1), delivered[0].ID)
	require.Equal(t, int64(3), delivered[1].ID)
}

func TestLiveChannelReattachReplacesSubscription(t *testing.T) {
	feed := &fakeFeed{}
	var delivered []Message
	var mu sync.Mutex
	channel := NewLiveChannel(feed, func(msg Message) {
		mu.Lock()
		delivered = append(delivered, msg)
		mu.Unlock()
	})

	require.NoError(t, channel.Attach(context.Background(), 4))
	require.NoError(t, channel.Attach(context.Background(), 9))

	// The first subscription must be gone before the second is live.
	require.Equal(t, 1, feed.openCount())
	require.Equal(t, int64(9), channel.ConversationID())

	feed.emit(Message{ID: 1, ConversationID: 4})
	feed.emit(Message{ID: 2, ConversationID: 9})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
	require.Equal(t, int64(2), delivered[0].ID)
}

func TestLiveChannelDeliveryStopsAfterDetach(t *testing.T) {
	feed := &fakeFeed{}
	var delivered []Message
	var mu sync.Mutex
	channel := NewLiveChannel(feed, func(msg Message) {
		mu.Lock()
		delivered = append(delivered, msg)
		mu.Unlock()
	})

	require.NoError(t, channel.Attach(context.Background(), 4))
	channel.Detach()
	feed.emit(Message{ID: 1, ConversationID: 4})

	mu.Lock()
	defer mu.Unlock()
	require.Empty(t, delivered)
}

func TestLiveChannelSubscribeFailure(t *testing.T) {
	feed := &fakeFeed{subscribeErr: errors.New("feed unreachable")}
	channel := NewLiveChannel(feed, func(Message) {})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := channel.Attach(ctx, 4)
	require.Error(t, err)
	require.Equal(t, StateUnsubscribed, channel.State())
	require.Zero(t, channel.ConversationID())
}
