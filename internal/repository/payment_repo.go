package repository

import (
	"context"

	"github.com/nvelasco/ClubBookBack/internal/models"
)

type CreatePaymentInput struct {
	BookingID   int64
	UserID      int64
	Amount      float64
	Currency    string
	Status      string
	ProviderRef *string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (booking_id, user_id, amount, currency, status, provider_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, booking_id, user_id, amount, currency, status, provider_ref, created_at
	`

	var payment models.Payment
	err := r.db.QueryRow(
		ctx,
		query,
		input.BookingID,
		input.UserID,
		input.Amount,
		input.Currency,
		input.Status,
		input.ProviderRef,
	).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.ProviderRef,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	query := `
		SELECT id, booking_id, user_id, amount, currency, status, provider_ref, created_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var payment models.Payment
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.ProviderRef,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]models.Payment, error) {
	query := `
		SELECT id, booking_id, user_id, amount, currency, status, provider_ref, created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		var payment models.Payment
		if err := rows.Scan(
			&payment.ID,
			&payment.BookingID,
			&payment.UserID,
			&payment.Amount,
			&payment.Currency,
			&payment.Status,
			&payment.ProviderRef,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *PaymentRepository) ListByBookingIDs(ctx context.Context, bookingIDs []int64) (map[int64]models.Payment, error) {
	result := make(map[int64]models.Payment, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT DISTINCT ON (booking_id) id, booking_id, user_id, amount, currency, status, provider_ref, created_at
		FROM payments
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, id DESC
	`

	rows, err := r.db.Query(ctx, query, bookingIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var payment models.Payment
		if err := rows.Scan(
			&payment.ID,
			&payment.BookingID,
			&payment.UserID,
			&payment.Amount,
			&payment.Currency,
			&payment.Status,
			&payment.ProviderRef,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[payment.BookingID] = payment
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
