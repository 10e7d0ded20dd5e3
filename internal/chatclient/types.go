// Package chatclient implements the client side of the conversation
// subsystem: a REST store client, a conversation resolver, a live update
// channel over the realtime feed, and the session controller that ties them
// together for one view.
package chatclient

import "time"

// Identity is a stable account reference with its display name. The viewer
// identity is passed in explicitly; nothing in this package reads ambient
// state.
type Identity struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

// Conversation mirrors the backend row, with both participant refs embedded.
type Conversation struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   *int64    `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User1     *Identity `json:"user1,omitempty"`
	User2     *Identity `json:"user2,omitempty"`
}

// Message is immutable once created. LocalID is set only on optimistic
// entries that have not yet been confirmed by the live feed.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`

	LocalID string `json:"-"`
}

// Pending reports whether the message is an optimistic local entry still
// waiting for its echo from the live feed.
func (m Message) Pending() bool {
	return m.LocalID != ""
}

// ConversationView is a conversation annotated with the counterpart as seen
// by the viewer. Counterpart is zero-valued for a degenerate shell
// conversation without a second participant.
type ConversationView struct {
	Conversation
	Counterpart Identity `json:"counterpart"`
}
