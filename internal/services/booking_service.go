package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/repository"
)

const paymentCurrency = "USD"

type BookingService struct {
	db          *pgxpool.Pool
	bookingRepo *repository.BookingRepository
	paymentRepo *repository.PaymentRepository
	sessionRepo *repository.SessionRepository
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	paymentRepo *repository.PaymentRepository,
	sessionRepo *repository.SessionRepository,
) *BookingService {
	return &BookingService{
		db:          db,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		sessionRepo: sessionRepo,
	}
}

type CreateBookingInput struct {
	SessionID int64
	PlaceID   int64
	// PaymentRef is the opaque reference handed back by the external payment
	// collaborator. Absent for free sessions.
	PaymentRef *string
}

type BookingResult struct {
	Booking *models.Booking `json:"booking"`
	Payment *models.Payment `json:"payment"`
}

// CreateBooking reserves a spot and records the payment row in one
// transaction. An advisory lock on the session id serializes concurrent
// bookings so the capacity check cannot race.
func (s *BookingService) CreateBooking(
	ctx context.Context,
	userID int64,
	role string,
	input CreateBookingInput,
) (*BookingResult, error) {
	if role != models.AccountTypeUser {
		return nil, ErrForbidden
	}
	if input.SessionID <= 0 || input.PlaceID <= 0 {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.IsDelete || session.Status == models.SessionStatusCancelled {
		return nil, ErrInvalidInput
	}
	if session.PlaceID != input.PlaceID {
		return nil, ErrInvalidInput
	}
	if session.ClubID == userID {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.SessionID); err != nil {
		return nil, err
	}

	alreadyBooked, err := txBookingRepo.ExistsForUser(ctx, input.SessionID, userID)
	if err != nil {
		return nil, err
	}
	if alreadyBooked {
		return nil, ErrAlreadyBooked
	}

	confirmed, err := txBookingRepo.CountForSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if confirmed >= session.Capacity {
		return nil, ErrSessionFull
	}

	booking, err := txBookingRepo.Create(ctx, repository.CreateBookingInput{
		SessionID: input.SessionID,
		PlaceID:   input.PlaceID,
		UserID:    userID,
		Status:    models.BookingStatusConfirmed,
	})
	if err != nil {
		return nil, err
	}

	paymentStatus := models.PaymentStatusFree
	if session.Price > 0 {
		// The provider captured the funds before this call; we only record it.
		if input.PaymentRef == nil || *input.PaymentRef == "" {
			return nil, ErrInvalidInput
		}
		paymentStatus = models.PaymentStatusPaid
	}

	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		BookingID:   booking.ID,
		UserID:      userID,
		Amount:      session.Price,
		Currency:    paymentCurrency,
		Status:      paymentStatus,
		ProviderRef: input.PaymentRef,
	})
	if err != nil {
		return nil, err
	}

	if confirmed+1 >= session.Capacity {
		full := models.SessionStatusFull
		if _, err := txSessionRepo.Update(ctx, session.ID, repository.UpdateSessionInput{Status: &full}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &BookingResult{Booking: booking, Payment: payment}, nil
}

func (s *BookingService) ListForUser(ctx context.Context, userID int64) ([]models.BookingDetail, error) {
	return s.attachPayments(ctx, func() ([]models.BookingDetail, error) {
		return s.bookingRepo.ListByUser(ctx, userID)
	})
}

// ListForClub returns the bookings placed against the club's sessions.
func (s *BookingService) ListForClub(ctx context.Context, actorID int64, role string, clubID int64) ([]models.BookingDetail, error) {
	if role != models.AccountTypeClub || actorID != clubID {
		return nil, ErrForbidden
	}
	return s.attachPayments(ctx, func() ([]models.BookingDetail, error) {
		return s.bookingRepo.ListForClub(ctx, clubID)
	})
}

func (s *BookingService) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	return s.paymentRepo.ListByUser(ctx, userID)
}

func (s *BookingService) attachPayments(
	ctx context.Context,
	list func() ([]models.BookingDetail, error),
) ([]models.BookingDetail, error) {
	details, err := list()
	if err != nil {
		return nil, err
	}

	bookingIDs := make([]int64, 0, len(details))
	for _, detail := range details {
		bookingIDs = append(bookingIDs, detail.ID)
	}

	paymentsByBooking, err := s.paymentRepo.ListByBookingIDs(ctx, bookingIDs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	for i := range details {
		if payment, ok := paymentsByBooking[details[i].ID]; ok {
			paymentCopy := payment
			details[i].Payment = &paymentCopy
		}
	}

	return details, nil
}
