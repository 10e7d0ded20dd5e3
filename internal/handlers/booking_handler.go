package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/services"
)

type bookingApplicationService interface {
	CreateBooking(ctx context.Context, userID int64, role string, input services.CreateBookingInput) (*services.BookingResult, error)
	ListForUser(ctx context.Context, userID int64) ([]models.BookingDetail, error)
	ListForClub(ctx context.Context, actorID int64, role string, clubID int64) ([]models.BookingDetail, error)
	ListPayments(ctx context.Context, userID int64) ([]models.Payment, error)
}

type BookingHandler struct {
	service bookingApplicationService
}

func NewBookingHandler(service bookingApplicationService) *BookingHandler {
	return &BookingHandler{service: service}
}

type createBookingRequest struct {
	SessionID int64   `json:"session_id"`
	PlaceID   int64   `json:"place_id"`
	UserID    int64   `json:"user_id"`
	PaymentID *string `json:"payment_id"`
}

func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	var req createBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	// The body's user_id is legacy from the web client; the token decides.
	if req.UserID != 0 && req.UserID != userID {
		return errorResponse(c, fiber.StatusForbidden, "Forbidden")
	}

	result, err := h.service.CreateBooking(c.Context(), userID, actorRole(c), services.CreateBookingInput{
		SessionID:  req.SessionID,
		PlaceID:    req.PlaceID,
		PaymentRef: req.PaymentID,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusCreated, result)
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}
	if err := requireOwnUserID(c, userID); err != nil {
		return errorResponse(c, fiber.StatusForbidden, "Forbidden")
	}

	details, err := h.service.ListForUser(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, details)
}

func (h *BookingHandler) ListBookingsForClub(c *fiber.Ctx) error {
	clubID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}
	if err := requireOwnUserID(c, clubID); err != nil {
		return errorResponse(c, fiber.StatusForbidden, "Forbidden")
	}

	details, err := h.service.ListForClub(c.Context(), clubID, actorRole(c), clubID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, details)
}

func (h *BookingHandler) ListPayments(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}
	if err := requireOwnUserID(c, userID); err != nil {
		return errorResponse(c, fiber.StatusForbidden, "Forbidden")
	}

	payments, err := h.service.ListPayments(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, payments)
}

// requireOwnUserID rejects a user_id query parameter naming someone else.
func requireOwnUserID(c *fiber.Ctx, actor int64) error {
	raw := c.Query("user_id")
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || parsed != actor {
		return services.ErrForbidden
	}
	return nil
}
