package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"spark_server/apperrors"
	"spark_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// ChatService handles the append/read surface of match chats. Chats
// themselves are created and deleted by the formation engine and unmatch.
type ChatService struct {
	Dynamo *DynamoService
}

// GetMessages returns a chat's messages in timestamp-ascending order.
// Only participants may read.
func (s *ChatService) GetMessages(ctx context.Context, userID, chatID string, limit int32) ([]models.Message, error) {
	if _, err := s.requireMembership(ctx, userID, chatID); err != nil {
		return nil, err
	}

	items, err := s.Dynamo.QueryItems(ctx, models.MessagesTable, "",
		"#c = :chatId",
		map[string]types.AttributeValue{
			":chatId": &types.AttributeValueMemberS{Value: chatID},
		},
		map[string]string{"#c": "chatId"},
		limit, true,
	)
	if err != nil {
		return nil, apperrors.Unavailable("failed to fetch messages", err)
	}

	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, apperrors.Unavailable("failed to parse messages", err)
	}

	return messages, nil
}

// SendMessage appends a message to a chat the sender participates in.
// Messages are immutable once written.
func (s *ChatService) SendMessage(ctx context.Context, userID, chatID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.InvalidArgument("message text is required")
	}

	if _, err := s.requireMembership(ctx, userID, chatID); err != nil {
		return nil, err
	}

	message := models.Message{
		ChatID:    chatID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		MessageID: uuid.NewString(),
		SenderID:  userID,
		Text:      text,
	}

	if err := s.Dynamo.PutItem(ctx, models.MessagesTable, message); err != nil {
		return nil, apperrors.Unavailable("failed to store message", err)
	}

	return &message, nil
}

func (s *ChatService) requireMembership(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	item, err := s.Dynamo.GetItem(ctx, models.ChatsTable, map[string]types.AttributeValue{
		"chatId": &types.AttributeValueMemberS{Value: chatID},
	})
	if errors.Is(err, ErrItemNotFound) {
		return nil, apperrors.NotFound("chat not found")
	} else if err != nil {
		return nil, apperrors.Unavailable("failed to fetch chat", err)
	}

	var chat models.Chat
	if err := attributevalue.UnmarshalMap(item, &chat); err != nil {
		return nil, apperrors.Unavailable("failed to parse chat", err)
	}

	if !chat.Contains(userID) {
		return nil, apperrors.PermissionDenied("not a participant of this chat")
	}

	return &chat, nil
}
