package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/repository"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")
	ErrSessionFull   = errors.New("session full")
	ErrAlreadyBooked = errors.New("already booked")
	ErrUserNotFound  = errors.New("user not found")
)

type SessionService struct {
	db          *pgxpool.Pool
	sessionRepo *repository.SessionRepository
	placeRepo   *repository.PlaceRepository
}

func NewSessionService(
	db *pgxpool.Pool,
	sessionRepo *repository.SessionRepository,
	placeRepo *repository.PlaceRepository,
) *SessionService {
	return &SessionService{
		db:          db,
		sessionRepo: sessionRepo,
		placeRepo:   placeRepo,
	}
}

type CreateSessionInput struct {
	Title       string
	Description *string
	ScheduledAt time.Time
	Price       float64
	Capacity    int
}

type CreatePlaceInput struct {
	Name    string
	Type    string
	Address *string
	City    *string
}

// CreateSession creates the place and the session that uses it in one
// transaction; a session row never points at a place that failed to insert.
func (s *SessionService) CreateSession(
	ctx context.Context,
	clubID int64,
	role string,
	sessionInput CreateSessionInput,
	placeInput CreatePlaceInput,
) (*models.SessionDetail, error) {
	if role != models.AccountTypeClub {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(sessionInput.Title) == "" || sessionInput.Capacity <= 0 || sessionInput.Price < 0 {
		return nil, ErrInvalidInput
	}
	if sessionInput.ScheduledAt.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(placeInput.Name) == "" {
		return nil, ErrInvalidInput
	}
	if placeInput.Type != models.PlaceTypePhysical && placeInput.Type != models.PlaceTypeVirtual {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPlaceRepo := repository.NewPlaceRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)

	place, err := txPlaceRepo.Create(ctx, repository.CreatePlaceInput{
		ClubID:  clubID,
		Name:    strings.TrimSpace(placeInput.Name),
		Type:    placeInput.Type,
		Address: placeInput.Address,
		City:    placeInput.City,
	})
	if err != nil {
		return nil, err
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		ClubID:      clubID,
		PlaceID:     place.ID,
		Title:       strings.TrimSpace(sessionInput.Title),
		Description: sessionInput.Description,
		ScheduledAt: sessionInput.ScheduledAt.UTC(),
		Price:       sessionInput.Price,
		Capacity:    sessionInput.Capacity,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.SessionDetail{Session: *session, Place: place}, nil
}

func (s *SessionService) ListSessions(
	ctx context.Context,
	filter repository.SessionListFilter,
) ([]models.SessionDetail, int, error) {
	sessions, total, err := s.sessionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	details := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		detail := models.SessionDetail{Session: session}
		place, err := s.placeRepo.GetByID(ctx, session.PlaceID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, err
		}
		if err == nil {
			detail.Place = place
		}
		details = append(details, detail)
	}

	return details, total, nil
}

func (s *SessionService) GetSession(ctx context.Context, sessionID int64) (*models.SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	detail := &models.SessionDetail{Session: *session}
	place, err := s.placeRepo.GetByID(ctx, session.PlaceID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Place = place
	}
	return detail, nil
}

func (s *SessionService) UpdateSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID int64,
	input repository.UpdateSessionInput,
) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != models.AccountTypeClub || session.ClubID != actorID {
		return nil, ErrForbidden
	}
	if input.Status != nil && !validSessionStatus(*input.Status) {
		return nil, ErrInvalidInput
	}

	return s.sessionRepo.Update(ctx, sessionID, input)
}

func (s *SessionService) GetPlace(ctx context.Context, placeID int64) (*models.Place, error) {
	return s.placeRepo.GetByID(ctx, placeID)
}

func (s *SessionService) UpdatePlace(
	ctx context.Context,
	actorID int64,
	role string,
	placeID int64,
	input repository.UpdatePlaceInput,
) (*models.Place, error) {
	place, err := s.placeRepo.GetByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if role != models.AccountTypeClub || place.ClubID != actorID {
		return nil, ErrForbidden
	}
	if input.Type != nil && *input.Type != models.PlaceTypePhysical && *input.Type != models.PlaceTypeVirtual {
		return nil, ErrInvalidInput
	}

	return s.placeRepo.Update(ctx, placeID, input)
}

func validSessionStatus(status string) bool {
	switch status {
	case models.SessionStatusAvailable, models.SessionStatusFull, models.SessionStatusCancelled:
		return true
	}
	return false
}
