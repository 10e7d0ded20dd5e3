package chatclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// echoMatchWindow bounds how old an optimistic entry may be and still be
	// reconciled against an incoming echo from the live feed.
	echoMatchWindow = 30 * time.Second
)

// storeAPI is the slice of the store client the session controller uses.
type storeAPI interface {
	conversationAPI
	ListMessages(ctx context.Context, conversationID int64, page, limit int) ([]Message, error)
	SendMessage(ctx context.Context, conversationID, senderID int64, content string) (*Message, error)
}

// Session drives one conversation view for one viewer: it resolves the
// conversation list, loads history oldest-first, keeps a live subscription
// scoped to the active conversation, and applies sends optimistically.
//
// Async responses carry the generation current when the request started;
// responses from a superseded generation are discarded, so switching
// conversations can never interleave stale history or echoes into the new
// view.
type Session struct {
	api     storeAPI
	channel *LiveChannel
	viewer  Identity

	timeout  time.Duration
	pageSize int
	now      func() time.Time

	// attachMu serializes live-channel attachments so a straggling
	// activation from a superseded generation cannot steal the channel
	// from a newer one.
	attachMu sync.Mutex

	mu            sync.Mutex
	generation    uint64
	conversations []ConversationView
	active        *ConversationView
	messages      []Message
	pending       []pendingSend
	historyPage   int
	hasMore       bool
}

// pendingSend tracks an optimistic entry awaiting its echo.
type pendingSend struct {
	localID string
	content string
	sentAt  time.Time
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithTimeout sets the per-request deadline for store calls.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPageSize sets the history page size.
func WithPageSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession builds a session for the given viewer. The viewer identity is
// explicit; the session never reads it from anywhere else.
func NewSession(api storeAPI, feed Feed, viewer Identity, opts ...SessionOption) *Session {
	s := &Session{
		api:      api,
		viewer:   viewer,
		timeout:  defaultRequestTimeout,
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.channel = NewLiveChannel(feed, s.handleLiveMessage)
	return s
}

// Viewer returns the identity the session acts as.
func (s *Session) Viewer() Identity { return s.viewer }

// Open resolves the viewer's conversations and activates one. A non-zero
// targetID prefers the conversation with that counterpart; see
// ResolveConversations for the selection and create-on-empty rules.
func (s *Session) Open(ctx context.Context, targetID int64) error {
	gen := s.bumpGeneration()

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resolution, err := ResolveConversations(rctx, s.api, s.viewer, targetID)
	if err != nil {
		return fmt.Errorf("resolve conversations: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.conversations = resolution.Conversations
	s.active = resolution.Active
	s.mu.Unlock()

	if resolution.Active == nil {
		return nil
	}
	return s.activate(ctx, gen, resolution.Active.ID)
}

// Select switches the active conversation to one already in the list. The
// previous live subscription is released before the new history loads.
func (s *Session) Select(ctx context.Context, conversationID int64) error {
	s.mu.Lock()
	var view *ConversationView
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			view = &s.conversations[i]
			break
		}
	}
	if view == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: conversation %d not in list", ErrValidation, conversationID)
	}
	s.generation++
	gen := s.generation
	s.active = view
	s.messages = nil
	s.pending = nil
	s.mu.Unlock()

	s.channel.Detach()
	return s.activate(ctx, gen, conversationID)
}

// activate loads the first history page and attaches the live channel.
// History is applied only if gen is still current.
func (s *Session) activate(ctx context.Context, gen uint64, conversationID int64) error {
	hctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	page, err := s.api.ListMessages(hctx, conversationID, 1, s.pageSize)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.messages = reverseMessages(page)
	s.pending = nil
	s.historyPage = 1
	s.hasMore = len(page) == s.pageSize
	s.mu.Unlock()

	if err := s.attachCurrent(ctx, gen, conversationID); err != nil {
		return fmt.Errorf("attach live channel: %w", err)
	}
	return nil
}

// attachCurrent attaches the live channel only while gen is still current.
// The generation is re-checked on both sides of the attach: before, so a
// superseded activation never tears down a newer subscription, and after, so
// an attach that raced a Close does not outlive it.
func (s *Session) attachCurrent(ctx context.Context, gen uint64, conversationID int64) error {
	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	if s.currentGeneration() != gen {
		return nil
	}
	if err := s.channel.Attach(ctx, conversationID); err != nil {
		return err
	}
	if s.currentGeneration() != gen {
		s.channel.Detach()
	}
	return nil
}

func (s *Session) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Send validates content, appends an optimistic entry, then persists. On a
// store failure the optimistic entry is rolled back and the error returned.
// Nothing leaves the process for empty content.
func (s *Session) Send(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("%w: message content is empty", ErrValidation)
	}

	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return ErrNoActiveConversation
	}
	conversationID := s.active.ID
	now := s.now()
	local := Message{
		LocalID:        uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       s.viewer.ID,
		Content:        trimmed,
		CreatedAt:      now,
	}
	s.messages = append(s.messages, local)
	s.pending = append(s.pending, pendingSend{localID: local.LocalID, content: trimmed, sentAt: now})
	s.mu.Unlock()

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.api.SendMessage(sctx, conversationID, s.viewer.ID, trimmed); err != nil {
		s.dropLocal(local.LocalID)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// LoadOlderMessages prepends the next history page. It is a no-op when no
// conversation is active or all history is loaded.
func (s *Session) LoadOlderMessages(ctx context.Context) error {
	s.mu.Lock()
	if s.active == nil || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	gen := s.generation
	conversationID := s.active.ID
	page := s.historyPage + 1
	s.mu.Unlock()

	hctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	older, err := s.api.ListMessages(hctx, conversationID, page, s.pageSize)
	if err != nil {
		return fmt.Errorf("load older messages: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.messages = append(reverseMessages(older), s.messages...)
	s.historyPage = page
	s.hasMore = len(older) == s.pageSize
	return nil
}

// HasMoreHistory reports whether older pages remain for the active
// conversation.
func (s *Session) HasMoreHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Messages returns the current transcript, oldest first, including
// unconfirmed optimistic entries.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Conversations returns the resolved conversation list.
func (s *Session) Conversations() []ConversationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConversationView, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Active returns a copy of the active conversation, or nil.
func (s *Session) Active() *ConversationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	view := *s.active
	return &view
}

// ChannelState exposes the live channel's lifecycle state.
func (s *Session) ChannelState() ChannelState {
	return s.channel.State()
}

// Close releases the live subscription and invalidates in-flight responses.
// It always runs the teardown, whatever state the session is in.
func (s *Session) Close() {
	s.bumpGeneration()
	s.channel.Detach()
}

// handleLiveMessage folds a feed delivery into the transcript: duplicates of
// already-known messages are dropped, an echo of an optimistic entry
// replaces it in place, and anything else is appended.
func (s *Session) handleLiveMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || msg.ConversationID != s.active.ID {
		return
	}
	for _, existing := range s.messages {
		if existing.ID != 0 && existing.ID == msg.ID {
			return
		}
	}
	if msg.SenderID == s.viewer.ID {
		now := s.now()
		for i, p := range s.pending {
			if p.content == msg.Content && now.Sub(p.sentAt) <= echoMatchWindow {
				for j := range s.messages {
					if s.messages[j].LocalID == p.localID {
						s.messages[j] = msg
						break
					}
				}
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				return
			}
		}
	}
	s.messages = append(s.messages, msg)
}

// dropLocal removes a rolled-back optimistic entry.
func (s *Session) dropLocal(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].LocalID == localID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	for i := range s.pending {
		if s.pending[i].localID == localID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
}

func (s *Session) bumpGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// reverseMessages flips a newest-first server page into transcript order.
func reverseMessages(page []Message) []Message {
	out := make([]Message, len(page))
	for i, m := range page {
		out[len(page)-1-i] = m
	}
	return out
}
