package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/services"
	realtime "github.com/nvelasco/ClubBookBack/internal/websocket"
)

type stubChatService struct {
	conversations        []models.Conversation
	createdConversation  *models.Conversation
	messages             []models.ChatMessage
	total                int
	delivery             *services.ChatDelivery
	err                  error

	lastActorID         int64
	lastRequestedUserID int64
	lastConversationID  int64
	lastContent         string
}

func (s *stubChatService) ListConversations(_ context.Context, actorID, requestedUserID int64, page, limit int) ([]models.Conversation, error) {
	s.lastActorID = actorID
	s.lastRequestedUserID = requestedUserID
	if s.err != nil {
		return nil, s.err
	}
	return s.conversations, nil
}

func (s *stubChatService) CreateConversation(_ context.Context, actorID, user1ID int64, user2ID *int64) (*models.Conversation, error) {
	s.lastActorID = actorID
	if s.err != nil {
		return nil, s.err
	}
	return s.createdConversation, nil
}

func (s *stubChatService) ListMessages(_ context.Context, actorID, conversationID int64, page, limit int) ([]models.ChatMessage, int, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.messages, s.total, nil
}

func (s *stubChatService) SendMessage(_ context.Context, actorID, conversationID, senderID int64, content string) (*services.ChatDelivery, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	s.lastContent = content
	if s.err != nil {
		return nil, s.err
	}
	return s.delivery, nil
}

func newChatTestApp(service *stubChatService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "7")
		c.Locals("role", "user")
		return c.Next()
	})

	hub := realtime.NewHub()
	go hub.Run()

	handler := NewChatHandler(service, hub, "test-secret")
	app.Get("/conversations", handler.ListConversations)
	app.Post("/conversations", handler.CreateConversation)
	app.Get("/messages", handler.ListMessages)
	app.Post("/messages", handler.SendMessage)
	return app
}

func TestListConversations(t *testing.T) {
	service := &stubChatService{
		conversations: []models.Conversation{
			{ID: 1, User1ID: 7},
			{ID: 2, User1ID: 7},
		},
	}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations?user_id=7", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Data []models.Conversation `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(body.Data))
	}
	if service.lastActorID != 7 || service.lastRequestedUserID != 7 {
		t.Errorf("service called with actor %d requested %d", service.lastActorID, service.lastRequestedUserID)
	}
}

func TestListConversationsRequiresUserID(t *testing.T) {
	app := newChatTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListConversationsForbidden(t *testing.T) {
	service := &stubChatService{err: services.ErrForbidden}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest("GET", "/conversations?user_id=9", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateConversation(t *testing.T) {
	other := int64(9)
	service := &stubChatService{
		createdConversation: &models.Conversation{ID: 5, User1ID: 7, User2ID: &other},
	}
	app := newChatTestApp(service)

	payload := bytes.NewBufferString(`{"user1_id":7,"user2_id":9}`)
	req := httptest.NewRequest("POST", "/conversations", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var body struct {
		Data models.Conversation `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Data.ID != 5 {
		t.Errorf("expected conversation 5, got %d", body.Data.ID)
	}
}

func TestListMessagesNewestFirstPassthrough(t *testing.T) {
	now := time.Now()
	service := &stubChatService{
		messages: []models.ChatMessage{
			{ID: 3, ConversationID: 4, SenderID: 9, Content: "latest", CreatedAt: now},
			{ID: 2, ConversationID: 4, SenderID: 7, Content: "middle", CreatedAt: now.Add(-time.Minute)},
			{ID: 1, ConversationID: 4, SenderID: 9, Content: "oldest", CreatedAt: now.Add(-2 * time.Minute)},
		},
		total: 3,
	}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest("GET", "/messages?conversation_id=4", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Data []models.ChatMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Data) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(body.Data))
	}
	if body.Data[0].ID != 3 {
		t.Errorf("order must stay newest-first, got first id %d", body.Data[0].ID)
	}
	if service.lastConversationID != 4 {
		t.Errorf("service called with conversation %d", service.lastConversationID)
	}
}

func TestListMessagesRequiresConversationID(t *testing.T) {
	app := newChatTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/messages", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSendMessage(t *testing.T) {
	message := &models.ChatMessage{ID: 42, ConversationID: 4, SenderID: 7, Content: "hola"}
	service := &stubChatService{
		delivery: &services.ChatDelivery{Message: message},
	}
	app := newChatTestApp(service)

	payload := bytes.NewBufferString(`{"conversation_id":4,"sender_id":7,"content":"hola"}`)
	req := httptest.NewRequest("POST", "/messages", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var body struct {
		Data models.ChatMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Data.ID != 42 {
		t.Errorf("expected message 42, got %d", body.Data.ID)
	}
	if service.lastContent != "hola" {
		t.Errorf("service received content %q", service.lastContent)
	}
}

func TestSendMessageInvalidBody(t *testing.T) {
	app := newChatTestApp(&stubChatService{})

	req := httptest.NewRequest("POST", "/messages", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]string
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected an error field in the response")
	}
}
