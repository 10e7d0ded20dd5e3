package chatclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory storeAPI. Message history is held newest-first,
// as the server returns it.
type fakeStore struct {
	mu                   sync.Mutex
	conversations        []Conversation
	listConversationsErr error
	createResult         *Conversation
	createCalls          int
	messages             map[int64][]Message
	listMessagesErr      error
	sendErr              error
	sendCalls            int
	sent                 []Message

	// listStarted, when set, receives the conversation id of every
	// ListMessages call as it begins; gates block the call until released.
	listStarted chan int64
	gates       map[int64]chan struct{}
}

func (f *fakeStore) ListConversations(_ context.Context, _ int64, _, _ int) ([]Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listConversationsErr != nil {
		return nil, f.listConversationsErr
	}
	out := make([]Conversation, len(f.conversations))
	copy(out, f.conversations)
	return out, nil
}

func (f *fakeStore) CreateConversation(_ context.Context, userID int64, other *int64) (*Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createResult == nil {
		return nil, errors.New("create not configured")
	}
	return f.createResult, nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID int64, page, limit int) ([]Message, error) {
	f.mu.Lock()
	started := f.listStarted
	gate := f.gates[conversationID]
	listErr := f.listMessagesErr
	f.mu.Unlock()

	if started != nil {
		started <- conversationID
	}
	if gate != nil {
		<-gate
	}
	if listErr != nil {
		return nil, listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.messages[conversationID]
	offset := (page - 1) * limit
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]Message, end-offset)
	copy(out, all[offset:end])
	return out, nil
}

func (f *fakeStore) SendMessage(_ context.Context, conversationID, senderID int64, content string) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	msg := Message{
		ID:             int64(1000 + f.sendCalls),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.sent = append(f.sent, msg)
	return &msg, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newestFirst builds n messages for a conversation, ids 1..n, returned in
// the server's newest-first order.
func newestFirst(conversationID int64, n int) []Message {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := make([]Message, 0, n)
	for id := n; id >= 1; id-- {
		out = append(out, Message{
			ID:             int64(id),
			ConversationID: conversationID,
			SenderID:       3,
			Content:        "m",
			CreatedAt:      base.Add(time.Duration(id) * time.Minute),
		})
	}
	return out
}

func pairConversation(id, user1, user2 int64) Conversation {
	u2 := user2
	return Conversation{
		ID:      id,
		User1ID: user1,
		User2ID: &u2,
		User2:   &Identity{ID: user2},
	}
}

func TestSessionOpenLoadsHistoryOldestFirst(t *testing.T) {
	viewer := Identity{ID: 7, FullName: "Ana"}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: newestFirst(4, 3)},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)

	require.NoError(t, session.Open(context.Background(), 0))

	messages := session.Messages()
	require.Len(t, messages, 3)
	require.Equal(t, int64(1), messages[0].ID)
	require.Equal(t, int64(2), messages[1].ID)
	require.Equal(t, int64(3), messages[2].ID)

	require.Equal(t, StateSubscribed, session.ChannelState())
	require.NotNil(t, session.Active())
	require.Equal(t, int64(4), session.Active().ID)
}

func TestSessionOpenCreatesOnEmpty(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		createResult: &Conversation{ID: 11, User1ID: 7, User2ID: ptr(9), User2: &Identity{ID: 9, FullName: "Club Este"}},
		messages:     map[int64][]Message{},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)

	require.NoError(t, session.Open(context.Background(), 9))
	require.Equal(t, 1, store.createCalls)
	require.Equal(t, int64(11), session.Active().ID)
	require.Equal(t, int64(9), session.Active().Counterpart.ID)
	require.Empty(t, session.Messages())
	require.Equal(t, StateSubscribed, session.ChannelState())
}

func TestSessionSendRejectsEmptyContent(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: newestFirst(4, 2)},
	}
	session := NewSession(store, &fakeFeed{}, viewer)
	require.NoError(t, session.Open(context.Background(), 0))

	before := len(session.Messages())
	for _, content := range []string{"", "   ", "\t\n"} {
		require.ErrorIs(t, session.Send(context.Background(), content), ErrValidation)
	}
	require.Equal(t, 0, store.sendCalls, "empty sends must never reach the store")
	require.Len(t, session.Messages(), before)
}

func TestSessionSendOptimisticThenEchoReconciles(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: newestFirst(4, 2)},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)
	require.NoError(t, session.Open(context.Background(), 0))

	require.NoError(t, session.Send(context.Background(), "see you at six"))

	messages := session.Messages()
	require.Len(t, messages, 3)
	last := messages[len(messages)-1]
	require.True(t, last.Pending())
	require.Equal(t, viewer.ID, last.SenderID)
	require.Equal(t, "see you at six", last.Content)

	echo := Message{ID: 1001, ConversationID: 4, SenderID: 7, Content: "see you at six", CreatedAt: time.Now()}
	feed.emit(echo)

	messages = session.Messages()
	require.Len(t, messages, 3, "echo must replace the optimistic entry, not duplicate it")
	last = messages[len(messages)-1]
	require.False(t, last.Pending())
	require.Equal(t, int64(1001), last.ID)

	// A replayed echo with a known id is dropped.
	feed.emit(echo)
	require.Len(t, session.Messages(), 3)
}

func TestSessionSendRollsBackOnStoreError(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: newestFirst(4, 2)},
		sendErr:       errors.New("store unavailable"),
	}
	session := NewSession(store, &fakeFeed{}, viewer)
	require.NoError(t, session.Open(context.Background(), 0))

	err := session.Send(context.Background(), "hola")
	require.Error(t, err)
	require.Len(t, session.Messages(), 2, "failed send must not leave an optimistic entry behind")
}

func TestSessionLiveAppendsForeignMessages(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: newestFirst(4, 1)},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)
	require.NoError(t, session.Open(context.Background(), 0))

	feed.emit(Message{ID: 50, ConversationID: 4, SenderID: 9, Content: "hi"})
	feed.emit(Message{ID: 51, ConversationID: 99, SenderID: 9, Content: "other room"})

	messages := session.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, int64(50), messages[1].ID)
}

func TestSessionEchoOutsideWindowIsAppended(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: nil},
	}
	feed := &fakeFeed{}
	clock := &fakeClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	session := NewSession(store, feed, viewer, withClock(clock.now))
	require.NoError(t, session.Open(context.Background(), 0))

	require.NoError(t, session.Send(context.Background(), "hola"))
	clock.advance(echoMatchWindow + time.Second)

	feed.emit(Message{ID: 1001, ConversationID: 4, SenderID: 7, Content: "hola"})

	// Too old to be treated as the echo of the pending entry.
	require.Len(t, session.Messages(), 2)
}

func TestSessionSelectSwitchesConversation(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{
			pairConversation(4, 7, 9),
			pairConversation(5, 7, 3),
		},
		messages: map[int64][]Message{
			4: newestFirst(4, 2),
			5: {{ID: 90, ConversationID: 5, SenderID: 3, Content: "welcome"}},
		},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)
	require.NoError(t, session.Open(context.Background(), 0))
	require.Equal(t, int64(4), session.Active().ID)

	require.NoError(t, session.Select(context.Background(), 5))
	require.Equal(t, int64(5), session.Active().ID)
	require.Equal(t, 1, feed.openCount(), "exactly one live subscription after switching")

	messages := session.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, int64(90), messages[0].ID)

	// Events for the previous conversation no longer land here.
	feed.emit(Message{ID: 91, ConversationID: 4, SenderID: 9, Content: "late"})
	require.Len(t, session.Messages(), 1)

	require.ErrorIs(t, session.Select(context.Background(), 999), ErrValidation)
}

func TestSessionStaleHistoryResponseDiscarded(t *testing.T) {
	viewer := Identity{ID: 7}
	gate := make(chan struct{})
	store := &fakeStore{
		conversations: []Conversation{
			pairConversation(4, 7, 9),
			pairConversation(5, 7, 3),
		},
		messages: map[int64][]Message{
			4: newestFirst(4, 3),
			5: {{ID: 90, ConversationID: 5, SenderID: 3, Content: "welcome"}},
		},
		listStarted: make(chan int64, 8),
		gates:       map[int64]chan struct{}{4: gate},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)

	done := make(chan error, 1)
	go func() { done <- session.Open(context.Background(), 0) }()

	// Wait for the history load of conversation 4 to be in flight.
	require.Equal(t, int64(4), <-store.listStarted)

	require.NoError(t, session.Select(context.Background(), 5))
	require.Equal(t, int64(5), <-store.listStarted)

	close(gate)
	require.NoError(t, <-done)

	// The slow response for conversation 4 must not overwrite the view.
	messages := session.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, int64(90), messages[0].ID)
	require.Equal(t, int64(5), session.Active().ID)
	require.Equal(t, 1, feed.openCount())
	require.Equal(t, int64(5), session.channel.ConversationID())
}

func TestSessionStaleActivationCannotStealChannel(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{
			pairConversation(4, 7, 9),
			pairConversation(5, 7, 3),
		},
		messages: map[int64][]Message{
			4: newestFirst(4, 2),
			5: {{ID: 90, ConversationID: 5, SenderID: 3, Content: "welcome"}},
		},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)

	require.NoError(t, session.Open(context.Background(), 0))
	openGen := session.currentGeneration()
	require.NoError(t, session.Select(context.Background(), 5))

	// An attach carried over from the superseded activation must be a no-op.
	require.NoError(t, session.attachCurrent(context.Background(), openGen, 4))
	require.Equal(t, int64(5), session.channel.ConversationID())
	require.Equal(t, StateSubscribed, session.ChannelState())
	require.Equal(t, 1, feed.openCount())

	// And after Close, even a current-looking attach must not survive.
	closeGen := session.currentGeneration()
	session.Close()
	require.NoError(t, session.attachCurrent(context.Background(), closeGen, 5))
	require.Equal(t, StateUnsubscribed, session.ChannelState())
	require.Equal(t, 0, feed.openCount())
}

func TestSessionLoadOlderMessages(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: newestFirst(4, 45)},
	}
	session := NewSession(store, &fakeFeed{}, viewer)
	require.NoError(t, session.Open(context.Background(), 0))

	require.Len(t, session.Messages(), 20)
	require.True(t, session.HasMoreHistory())

	require.NoError(t, session.LoadOlderMessages(context.Background()))
	require.Len(t, session.Messages(), 40)
	require.True(t, session.HasMoreHistory())

	require.NoError(t, session.LoadOlderMessages(context.Background()))
	messages := session.Messages()
	require.Len(t, messages, 45)
	require.False(t, session.HasMoreHistory())

	for i, msg := range messages {
		require.Equal(t, int64(i+1), msg.ID, "transcript must stay oldest-first across pages")
	}

	// Exhausted history makes further calls no-ops.
	require.NoError(t, session.LoadOlderMessages(context.Background()))
	require.Len(t, session.Messages(), 45)
}

func TestSessionCloseAlwaysDetaches(t *testing.T) {
	viewer := Identity{ID: 7}
	store := &fakeStore{
		conversations: []Conversation{pairConversation(4, 7, 9)},
		messages:      map[int64][]Message{4: newestFirst(4, 1)},
	}
	feed := &fakeFeed{}
	session := NewSession(store, feed, viewer)
	require.NoError(t, session.Open(context.Background(), 0))
	require.Equal(t, 1, feed.openCount())

	session.Close()
	require.Equal(t, StateUnsubscribed, session.ChannelState())
	require.Equal(t, 0, feed.openCount())

	feed.emit(Message{ID: 60, ConversationID: 4, SenderID: 9, Content: "late"})
	require.Len(t, session.Messages(), 1)

	// Closing an already-closed session is harmless.
	session.Close()

	// A session that never opened can be closed too.
	fresh := NewSession(store, feed, viewer)
	fresh.Close()
	require.Equal(t, StateUnsubscribed, fresh.ChannelState())
}
