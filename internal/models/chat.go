package models

import "time"

// Participant is the slim user projection embedded in conversation rows so
// clients can derive the counterpart display name without extra lookups.
type Participant struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

// Conversation pairs two accounts. User2ID is nullable: a conversation shell
// may be opened before the second participant is known.
type Conversation struct {
	ID        int64        `json:"id"`
	User1ID   int64        `json:"user1_id"`
	User2ID   *int64       `json:"user2_id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	User1     *Participant `json:"user1,omitempty"`
	User2     *Participant `json:"user2,omitempty"`
}

// ChatMessage rows are append-only; there is no edit or delete path.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
