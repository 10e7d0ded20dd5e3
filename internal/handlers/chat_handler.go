package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/services"
	realtime "github.com/nvelasco/ClubBookBack/internal/websocket"
	"github.com/nvelasco/ClubBookBack/pkg/utils"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, actorID int64, requestedUserID int64, page int, limit int) ([]models.Conversation, error)
	CreateConversation(ctx context.Context, actorID int64, user1ID int64, user2ID *int64) (*models.Conversation, error)
	ListMessages(ctx context.Context, actorID int64, conversationID int64, page int, limit int) ([]models.ChatMessage, int, error)
	SendMessage(ctx context.Context, actorID int64, conversationID int64, senderID int64, content string) (*services.ChatDelivery, error)
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *realtime.Hub
	jwtSecret string
}

func NewChatHandler(service chatApplicationService, hub *realtime.Hub, jwtSecret string) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

type createConversationRequest struct {
	User1ID int64  `json:"user1_id"`
	User2ID *int64 `json:"user2_id"`
}

type sendMessageRequest struct {
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Content        string `json:"content"`
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	requestedUserID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || requestedUserID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid user id")
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	conversations, err := h.service.ListConversations(c.Context(), userID, requestedUserID, page, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, conversations)
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	conversation, err := h.service.CreateConversation(c.Context(), userID, req.User1ID, req.User2ID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusCreated, conversation)
}

// ListMessages returns one page newest-first; clients reverse before display.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	conversationID, err := strconv.ParseInt(c.Query("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid conversation id")
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, _, err := h.service.ListMessages(c.Context(), userID, conversationID, page, limit)
	if err != nil {
		return mapServiceError(c, err)
	}

	return dataResponse(c, fiber.StatusOK, messages)
}

// SendMessage persists the message and pushes the insert event through the
// realtime feed. The response carries the created row, but connected clients
// are expected to pick it up from the feed.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid token")
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, req.ConversationID, req.SenderID, req.Content)
	if err != nil {
		return mapServiceError(c, err)
	}

	h.hub.Broadcast(&realtime.ChangeEvent{
		Type:   realtime.EventInsert,
		Table:  realtime.TableMessages,
		Record: delivery.Message,
	})

	return dataResponse(c, fiber.StatusCreated, delivery.Message)
}

// RealtimeAuth guards the websocket upgrade. The token rides in the query
// string because browsers cannot set headers on websocket dials.
func (h *ChatHandler) RealtimeAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return errorResponse(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required")
	}

	if _, err := h.parseRealtimeClaims(c); err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token")
	}

	return c.Next()
}

func (h *ChatHandler) HandleRealtime(conn *websocket.Conn) {
	client := realtime.NewClient(h.hub, conn)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *ChatHandler) parseRealtimeClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}
