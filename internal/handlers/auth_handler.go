package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/services"
	"github.com/nvelasco/ClubBookBack/pkg/utils"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, fullName string, description *string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id int64, avatarURL string) error
}

type AuthHandler struct {
	userRepo  userStore
	storage   services.StorageService
	jwtSecret string
}

func NewAuthHandler(
	userRepo userStore,
	storage services.StorageService,
	jwtSecret string,
) *AuthHandler {
	return &AuthHandler{
		userRepo:  userRepo,
		storage:   storage,
		jwtSecret: jwtSecret,
	}
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Type     string `json:"type"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if strings.TrimSpace(req.FullName) == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Full name is required")
	}
	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid email format")
	}
	req.Email = strings.ToLower(parsedEmail.Address)
	if len(req.Password) < 8 {
		return errorResponse(c, fiber.StatusBadRequest, "Password must be at least 8 characters")
	}
	if req.Type != models.AccountTypeUser && req.Type != models.AccountTypeClub {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid account type")
	}

	existing, err := h.userRepo.GetByEmail(c.Context(), req.Email)
	if err == nil && existing != nil {
		return errorResponse(c, fiber.StatusConflict, "Email already exists")
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to check email")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		PasswordHash: hash,
		Type:         req.Type,
	}
	if err := h.userRepo.Create(c.Context(), user); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to create account")
	}

	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), user.Type, h.jwtSecret)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to issue token")
	}

	return dataResponse(c, fiber.StatusCreated, authResponse{AccessToken: token, User: user})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Email and password are required")
	}

	user, err := h.userRepo.GetByEmail(c.Context(), email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to look up account")
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), user.Type, h.jwtSecret)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to issue token")
	}

	return dataResponse(c, fiber.StatusOK, authResponse{AccessToken: token, User: user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	user, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorResponse(c, fiber.StatusNotFound, "Account not found")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load account")
	}

	return dataResponse(c, fiber.StatusOK, user)
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Full name is required")
	}

	user, err := h.userRepo.UpdateProfile(c.Context(), userID, strings.TrimSpace(req.FullName), req.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorResponse(c, fiber.StatusNotFound, "Account not found")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to update profile")
	}

	return dataResponse(c, fiber.StatusOK, user)
}

// UpdateProfilePicture stores the uploaded avatar in the bucket and points
// the account at its public URL. The replaced object is deleted best-effort
// so the bucket does not accumulate orphans.
func (h *AuthHandler) UpdateProfilePicture(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}
	if h.storage == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable, "Storage is not configured")
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Avatar file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Failed to read avatar file")
	}
	defer file.Close()

	current, err := h.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorResponse(c, fiber.StatusNotFound, "Account not found")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to load account")
	}

	filename := fmt.Sprintf("%d-%d-%s", userID, time.Now().Unix(), fileHeader.Filename)
	avatarURL, err := h.storage.UploadFile(c.Context(), file, filename, "avatars")
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to upload avatar")
	}

	if err := h.userRepo.UpdateAvatar(c.Context(), userID, avatarURL); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to save avatar")
	}

	if current.AvatarURL != nil && *current.AvatarURL != "" && *current.AvatarURL != avatarURL {
		_ = h.storage.DeleteFile(c.Context(), *current.AvatarURL)
	}

	return dataResponse(c, fiber.StatusOK, fiber.Map{"avatar_url": avatarURL})
}
