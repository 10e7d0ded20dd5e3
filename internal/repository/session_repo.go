package repository

import (
	"context"
	"time"

	"github.com/nvelasco/ClubBookBack/internal/models"
)

type CreateSessionInput struct {
	ClubID      int64
	PlaceID     int64
	Title       string
	Description *string
	ScheduledAt time.Time
	Price       float64
	Capacity    int
}

type UpdateSessionInput struct {
	Title       *string
	Description *string
	ScheduledAt *time.Time
	Price       *float64
	Capacity    *int
	Status      *string
	IsDelete    *bool
}

// SessionListFilter narrows the public listing. ClubID and Status are
// mutually compatible; Search matches the title case-insensitively.
type SessionListFilter struct {
	ClubID int64
	Status string
	Search string
	Limit  int
	Offset int
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, place_id, title, description, scheduled_at, price, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, user_id, place_id, title, description, scheduled_at, price, capacity, status, is_delete, created_at, updated_at
	`

	var session models.Session
	err := r.db.QueryRow(
		ctx,
		query,
		input.ClubID,
		input.PlaceID,
		input.Title,
		input.Description,
		input.ScheduledAt,
		input.Price,
		input.Capacity,
		models.SessionStatusAvailable,
	).Scan(
		&session.ID,
		&session.ClubID,
		&session.PlaceID,
		&session.Title,
		&session.Description,
		&session.ScheduledAt,
		&session.Price,
		&session.Capacity,
		&session.Status,
		&session.IsDelete,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		SELECT id, user_id, place_id, title, description, scheduled_at, price, capacity, status, is_delete, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	var session models.Session
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&session.ID,
		&session.ClubID,
		&session.PlaceID,
		&session.Title,
		&session.Description,
		&session.ScheduledAt,
		&session.Price,
		&session.Capacity,
		&session.Status,
		&session.IsDelete,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, int, error) {
	where := `
		WHERE s.is_delete = FALSE
		  AND ($1 = 0 OR s.user_id = $1)
		  AND ($2 = '' OR s.status = $2)
		  AND ($3 = '' OR s.title ILIKE '%' || $3 || '%')
	`

	var total int
	totalQuery := `SELECT COUNT(*) FROM sessions s` + where
	if err := r.db.QueryRow(ctx, totalQuery, filter.ClubID, filter.Status, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT s.id, s.user_id, s.place_id, s.title, s.description, s.scheduled_at, s.price, s.capacity, s.status, s.is_delete, s.created_at, s.updated_at
		FROM sessions s` + where + `
		ORDER BY s.scheduled_at ASC, s.id ASC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Query(ctx, query, filter.ClubID, filter.Status, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(
			&session.ID,
			&session.ClubID,
			&session.PlaceID,
			&session.Title,
			&session.Description,
			&session.ScheduledAt,
			&session.Price,
			&session.Capacity,
			&session.Status,
			&session.IsDelete,
			&session.CreatedAt,
			&session.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *SessionRepository) Update(ctx context.Context, sessionID int64, input UpdateSessionInput) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			scheduled_at = COALESCE($4, scheduled_at),
			price = COALESCE($5, price),
			capacity = COALESCE($6, capacity),
			status = COALESCE($7, status),
			is_delete = COALESCE($8, is_delete),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, place_id, title, description, scheduled_at, price, capacity, status, is_delete, created_at, updated_at
	`

	var session models.Session
	err := r.db.QueryRow(
		ctx,
		query,
		sessionID,
		input.Title,
		input.Description,
		input.ScheduledAt,
		input.Price,
		input.Capacity,
		input.Status,
		input.IsDelete,
	).Scan(
		&session.ID,
		&session.ClubID,
		&session.PlaceID,
		&session.Title,
		&session.Description,
		&session.ScheduledAt,
		&session.Price,
		&session.Capacity,
		&session.Status,
		&session.IsDelete,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
