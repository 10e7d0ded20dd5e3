package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/services"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// actorID pulls the authenticated user id set by the auth middleware.
func actorID(c *fiber.Ctx) (int64, error) {
	value, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(value, 10, 64)
}

func actorRole(c *fiber.Ctx) string {
	role, _ := c.Locals("role").(string)
	return role
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return models.PaginationMeta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func dataResponse(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return errorResponse(c, fiber.StatusForbidden, "Forbidden")
	case errors.Is(err, services.ErrInvalidInput):
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request")
	case errors.Is(err, services.ErrSessionFull):
		return errorResponse(c, fiber.StatusConflict, "Session is full")
	case errors.Is(err, services.ErrAlreadyBooked):
		return errorResponse(c, fiber.StatusConflict, "Already booked")
	case errors.Is(err, services.ErrUserNotFound):
		return errorResponse(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, pgx.ErrNoRows):
		return errorResponse(c, fiber.StatusNotFound, "Not found")
	default:
		return errorResponse(c, fiber.StatusInternalServerError, "Request failed")
	}
}
