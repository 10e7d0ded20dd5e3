package repository

import (
	"context"

	"github.com/nvelasco/ClubBookBack/internal/models"
)

type CreateBookingInput struct {
	SessionID int64
	PlaceID   int64
	UserID    int64
	Status    string
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (session_id, place_id, user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, place_id, user_id, status, created_at
	`

	var booking models.Booking
	err := r.db.QueryRow(ctx, query, input.SessionID, input.PlaceID, input.UserID, input.Status).Scan(
		&booking.ID,
		&booking.SessionID,
		&booking.PlaceID,
		&booking.UserID,
		&booking.Status,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) CountForSession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE session_id = $1 AND status = $2
	`, sessionID, models.BookingStatusConfirmed).Scan(&count)
	return count, err
}

func (r *BookingRepository) ExistsForUser(ctx context.Context, sessionID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE session_id = $1 AND user_id = $2 AND status = $3
		)
	`, sessionID, userID, models.BookingStatusConfirmed).Scan(&exists)
	return exists, err
}

const bookingDetailColumns = `
	b.id, b.session_id, b.place_id, b.user_id, b.status, b.created_at,
	s.id, s.user_id, s.place_id, s.title, s.description, s.scheduled_at, s.price, s.capacity, s.status, s.is_delete, s.created_at, s.updated_at,
	p.id, p.user_id, p.name, p.type, p.address, p.city, p.is_delete, p.created_at, p.updated_at
`

// ListByUser returns the member's bookings, newest first, with the session
// and place rows they point at.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]models.BookingDetail, error) {
	query := `
		SELECT ` + bookingDetailColumns + `
		FROM bookings b
		JOIN sessions s ON s.id = b.session_id
		JOIN places p ON p.id = b.place_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.id DESC
	`
	return r.listDetails(ctx, query, userID)
}

// ListForClub returns bookings placed against sessions the club owns.
func (r *BookingRepository) ListForClub(ctx context.Context, clubID int64) ([]models.BookingDetail, error) {
	query := `
		SELECT ` + bookingDetailColumns + `
		FROM bookings b
		JOIN sessions s ON s.id = b.session_id
		JOIN places p ON p.id = b.place_id
		WHERE s.user_id = $1
		ORDER BY b.created_at DESC, b.id DESC
	`
	return r.listDetails(ctx, query, clubID)
}

func (r *BookingRepository) listDetails(ctx context.Context, query string, id int64) ([]models.BookingDetail, error) {
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]models.BookingDetail, 0)
	for rows.Next() {
		var detail models.BookingDetail
		var session models.Session
		var place models.Place

		if err := rows.Scan(
			&detail.ID,
			&detail.SessionID,
			&detail.PlaceID,
			&detail.UserID,
			&detail.Status,
			&detail.CreatedAt,
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
			&place.ID,
			&place.ClubID,
			&place.Name,
			&place.Type,
			&place.Address,
			&place.City,
			&place.IsDelete,
			&place.CreatedAt,
			&place.UpdatedAt,
		); err != nil {
			return nil, err
		}

		detail.Session = &session
		detail.Place = &place
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}
