package chatclient

import (
	"context"
	"sync"
)

// ChannelState is the lifecycle state of a LiveChannel.
type ChannelState int32

const (
	StateUnsubscribed ChannelState = iota
	StateSubscribing
	StateSubscribed
	StateUnsubscribing
)

func (s ChannelState) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateUnsubscribing:
		return "unsubscribing"
	default:
		return "unknown"
	}
}

// Subscription is a live handle on the realtime feed.
type Subscription interface {
	Close() error
}

// Feed delivers newly inserted messages. The feed carries inserts for every
// conversation; scoping to one conversation happens in the LiveChannel.
type Feed interface {
	Subscribe(ctx context.Context, deliver func(Message)) (Subscription, error)
}

// LiveChannel scopes the shared feed to a single conversation. Attach tears
// down any previous subscription first, so at most one is live at a time;
// Detach is idempotent and safe to call in any state.
type LiveChannel struct {
	feed    Feed
	deliver func(Message)

	mu             sync.Mutex
	state          ChannelState
	sub            Subscription
	conversationID int64
}

// NewLiveChannel wraps feed, forwarding in-scope messages to deliver.
func NewLiveChannel(feed Feed, deliver func(Message)) *LiveChannel {
	return &LiveChannel{feed: feed, deliver: deliver}
}

// Attach subscribes for messages of the given conversation. A previous
// attachment is always released first, even if the new subscription fails.
func (c *LiveChannel) Attach(ctx context.Context, conversationID int64) error {
	c.Detach()

	c.mu.Lock()
	c.state = StateSubscribing
	c.conversationID = conversationID
	c.mu.Unlock()

	sub, err := c.feed.Subscribe(ctx, c.onMessage)
	if err != nil {
		c.mu.Lock()
		c.state = StateUnsubscribed
		c.conversationID = 0
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.state != StateSubscribing || c.conversationID != conversationID {
		// Detached while the subscribe was in flight.
		c.mu.Unlock()
		return sub.Close()
	}
	c.sub = sub
	c.state = StateSubscribed
	c.mu.Unlock()
	return nil
}

// Detach releases the current subscription, if any.
func (c *LiveChannel) Detach() {
	c.mu.Lock()
	if c.state == StateUnsubscribed {
		c.mu.Unlock()
		return
	}
	c.state = StateUnsubscribing
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}

	c.mu.Lock()
	c.state = StateUnsubscribed
	c.conversationID = 0
	c.mu.Unlock()
}

// State returns the current lifecycle state.
func (c *LiveChannel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConversationID returns the conversation currently attached, or zero.
func (c *LiveChannel) ConversationID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

func (c *LiveChannel) onMessage(msg Message) {
	c.mu.Lock()
	inScope := c.state == StateSubscribed && msg.ConversationID == c.conversationID
	deliver := c.deliver
	c.mu.Unlock()

	if inScope && deliver != nil {
		deliver(msg)
	}
}
