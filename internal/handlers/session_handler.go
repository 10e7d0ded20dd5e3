package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/repository"
	"github.com/nvelasco/ClubBookBack/internal/services"
)

type sessionApplicationService interface {
	CreateSession(ctx context.Context, clubID int64, role string, sessionInput services.CreateSessionInput, placeInput services.CreatePlaceInput) (*models.SessionDetail, error)
	ListSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.SessionDetail, int, error)
	GetSession(ctx context.Context, sessionID int64) (*models.SessionDetail, error)
	UpdateSession(ctx context.Context, actorID int64, role string, sessionID int64, input repository.UpdateSessionInput) (*models.Session, error)
	GetPlace(ctx context.Context, placeID int64) (*models.Place, error)
	UpdatePlace(ctx context.Context, actorID int64, role string, placeID int64, input repository.UpdatePlaceInput) (*models.Place, error)
}

type SessionHandler struct {
	service sessionApplicationService
}

func NewSessionHandler(service sessionApplicationService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	Session struct {
		Title       string    `json:"title"`
		Description *string   `json:"description"`
		ScheduledAt time.Time `json:"scheduled_at"`
		Price       float64   `json:"price"`
		Capacity    int       `json:"capacity"`
	} `json:"session"`
	Place struct {
		Name    string  `json:"name"`
		Type    string  `json:"type"`
		Address *string `json:"address"`
		City    *string `json:"city"`
	} `json:"place"`
}

type updateSessionRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Price       *float64   `json:"price"`
	Capacity    *int       `json:"capacity"`
	Status      *string    `json:"status"`
	IsDelete    *bool      `json:"is_delete"`
}

type updatePlaceRequest struct {
	Name     *string `json:"name"`
	Type     *string `json:"type"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
	IsDelete *bool   `json:"is_delete"`
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	clubID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	detail, err := h.service.CreateSession(
		c.Context(),
		clubID,
		actorRole(c),
		services.CreateSessionInput{
			Title:       req.Session.Title,
			Description: req.Session.Description,
			ScheduledAt: req.Session.ScheduledAt,
			Price:       req.Session.Price,
			Capacity:    req.Session.Capacity,
		},
		services.CreatePlaceInput{
			Name:    req.Place.Name,
			Type:    req.Place.Type,
			Address: req.Place.Address,
			City:    req.Place.City,
		},
	)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusCreated, detail)
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	var clubID int64
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return errorResponse(c, fiber.StatusBadRequest, "Invalid user id")
		}
		clubID = parsed
	}

	details, total, err := h.service.ListSessions(c.Context(), repository.SessionListFilter{
		ClubID: clubID,
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"data": details,
		"meta": buildPaginationMeta(page, limit, total),
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid session id")
	}

	detail, err := h.service.GetSession(c.Context(), sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, detail)
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	clubID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	sessionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid session id")
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	session, err := h.service.UpdateSession(c.Context(), clubID, actorRole(c), sessionID, repository.UpdateSessionInput{
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Price:       req.Price,
		Capacity:    req.Capacity,
		Status:      req.Status,
		IsDelete:    req.IsDelete,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, session)
}

func (h *SessionHandler) GetPlace(c *fiber.Ctx) error {
	placeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || placeID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid place id")
	}

	place, err := h.service.GetPlace(c.Context(), placeID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, place)
}

func (h *SessionHandler) UpdatePlace(c *fiber.Ctx) error {
	clubID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	placeID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || placeID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid place id")
	}

	var req updatePlaceRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	place, err := h.service.UpdatePlace(c.Context(), clubID, actorRole(c), placeID, repository.UpdatePlaceInput{
		Name:     req.Name,
		Type:     req.Type,
		Address:  req.Address,
		City:     req.City,
		IsDelete: req.IsDelete,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, place)
}
