package repository

import (
	"context"
	"database/sql"

	"github.com/nvelasco/ClubBookBack/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `id, user1_id, user2_id, created_at, updated_at`

// CreateOrGetPair enforces one conversation per unordered participant pair.
// The conflict target is the (LEAST, GREATEST) expression index, so (a, b)
// and (b, a) land on the same row. The index is partial (shells with a NULL
// user2_id are exempt), and Postgres only matches a partial index as the
// arbiter when the statement repeats its predicate.
func (r *ConversationRepository) CreateOrGetPair(
	ctx context.Context,
	user1ID int64,
	user2ID int64,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (user1_id, user2_id)
		VALUES ($1, $2)
		ON CONFLICT ((LEAST(user1_id, user2_id)), (GREATEST(user1_id, user2_id)))
			WHERE user2_id IS NOT NULL
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING ` + conversationColumns + `
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, user1ID, user2ID).Scan(
		&conversation.ID,
		&conversation.User1ID,
		&conversation.User2ID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// CreateShell opens a conversation whose second participant is not yet known.
func (r *ConversationRepository) CreateShell(ctx context.Context, user1ID int64) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (user1_id)
		VALUES ($1)
		RETURNING ` + conversationColumns + `
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, user1ID).Scan(
		&conversation.ID,
		&conversation.User1ID,
		&conversation.User2ID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	conversationID int64,
	participantID int64,
) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = $1 AND (user1_id = $2 OR user2_id = $2)
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, participantID).Scan(
		&conversation.ID,
		&conversation.User1ID,
		&conversation.User2ID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// ListForParticipant returns the viewer's conversations ordered by recency
// with both participant refs embedded.
func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
	limit int,
	offset int,
) ([]models.Conversation, error) {
	query := `
		SELECT
			c.id, c.user1_id, c.user2_id, c.created_at, c.updated_at,
			u1.id, u1.full_name,
			u2.id, u2.full_name
		FROM conversations c
		JOIN users u1 ON u1.id = c.user1_id
		LEFT JOIN users u2 ON u2.id = c.user2_id
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY c.updated_at DESC, c.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, participantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		var conversation models.Conversation
		var user1 models.Participant
		var user2ID sql.NullInt64
		var user2Name sql.NullString

		if err := rows.Scan(
			&conversation.ID,
			&conversation.User1ID,
			&conversation.User2ID,
			&conversation.CreatedAt,
			&conversation.UpdatedAt,
			&user1.ID,
			&user1.FullName,
			&user2ID,
			&user2Name,
		); err != nil {
			return nil, err
		}

		conversation.User1 = &user1
		if user2ID.Valid {
			conversation.User2 = &models.Participant{ID: user2ID.Int64, FullName: user2Name.String}
		}

		conversations = append(conversations, conversation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *ConversationRepository) Touch(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}
