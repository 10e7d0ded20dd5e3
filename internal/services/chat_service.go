package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nvelasco/ClubBookBack/internal/models"
	"github.com/nvelasco/ClubBookBack/internal/repository"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         userReader
}

// ChatDelivery is what the realtime feed broadcasts after a committed insert.
type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

// ListConversations returns the actor's conversations ordered by recency.
// The user_id query parameter must match the authenticated actor.
func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	requestedUserID int64,
	page int,
	limit int,
) ([]models.Conversation, error) {
	if requestedUserID != actorID {
		return nil, ErrForbidden
	}
	if page <= 0 || limit <= 0 {
		return nil, ErrInvalidInput
	}

	return s.conversationRepo.ListForParticipant(ctx, actorID, limit, (page-1)*limit)
}

// CreateConversation finds or creates the conversation for the pair. With no
// second participant it creates a degenerate shell; the backend keeps that
// contract so first-contact deep links without a target still resolve.
func (s *ChatService) CreateConversation(
	ctx context.Context,
	actorID int64,
	user1ID int64,
	user2ID *int64,
) (*models.Conversation, error) {
	if user1ID != actorID {
		return nil, ErrForbidden
	}

	if user2ID == nil {
		conversation, err := s.conversationRepo.CreateShell(ctx, user1ID)
		if err != nil {
			return nil, err
		}
		return s.annotate(ctx, conversation)
	}

	if *user2ID <= 0 || *user2ID == user1ID {
		return nil, ErrInvalidInput
	}
	if _, err := s.userRepo.GetByID(ctx, *user2ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	conversation, err := s.conversationRepo.CreateOrGetPair(ctx, user1ID, *user2ID)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, conversation)
}

// ListMessages returns one newest-first page for a conversation the actor
// participates in.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		return nil, 0, err
	}

	return s.messageRepo.ListByConversation(ctx, conversationID, limit, (page-1)*limit)
}

// SendMessage appends a message and bumps the conversation's recency in one
// transaction. The claimed sender must be the authenticated actor.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	senderID int64,
	content string,
) (*ChatDelivery, error) {
	if senderID != actorID {
		return nil, ErrForbidden
	}
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, conversationID, actorID, trimmed)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.Touch(ctx, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
	}, nil
}

func (s *ChatService) annotate(ctx context.Context, conversation *models.Conversation) (*models.Conversation, error) {
	user1, err := s.userRepo.GetByID(ctx, conversation.User1ID)
	if err != nil {
		return nil, err
	}
	conversation.User1 = &models.Participant{ID: user1.ID, FullName: user1.FullName}

	if conversation.User2ID != nil {
		user2, err := s.userRepo.GetByID(ctx, *conversation.User2ID)
		if err != nil {
			return nil, err
		}
		conversation.User2 = &models.Participant{ID: user2.ID, FullName: user2.FullName}
	}

	return conversation, nil
}
