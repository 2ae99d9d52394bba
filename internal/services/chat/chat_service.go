package chat

import (
	"errors"
	"sync"
	"time"

	"guidia_backend/internal/logger"
	modelChat "guidia_backend/internal/models/chat"
	"guidia_backend/internal/repositories"
	repoChat "guidia_backend/internal/repositories/chat"
	"guidia_backend/internal/services/dto"
	"guidia_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// MessageNotifier emits the peer's new-message notification. The delivery
// facade satisfies this; the indirection keeps the chat package free of the
// notification wiring.
type MessageNotifier interface {
	NotifyNewMessage(recipientID, senderName, conversationID, messageID string) error
}

type ChatService struct {
	conversations *repoChat.ConversationRepository
	messages      *repoChat.MessageRepository
	users         repositories.UserRepository
	notifier      MessageNotifier

	locks appendLocks
}

func NewChatService(
	conversations *repoChat.ConversationRepository,
	messages *repoChat.MessageRepository,
	users repositories.UserRepository,
	notifier MessageNotifier,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		notifier:      notifier,
	}
}

// StartConversation returns the single conversation between the caller and
// the peer, creating it if needed. Starting it twice, even concurrently,
// yields the same conversation.
func (s *ChatService) StartConversation(userID, peerID string) (*dto.ConversationResponse, error) {
	if peerID == userID {
		return nil, apperrors.NewBadRequestError("cannot start a conversation with yourself")
	}
	if _, err := s.users.FindByID(peerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrStorageFailure(err)
	}

	conversation, err := s.conversations.GetOrCreate(userID, peerID)
	if err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}
	return s.toConversationResponse(conversation, userID), nil
}

func (s *ChatService) GetConversations(userID string) ([]dto.ConversationResponse, error) {
	conversations, err := s.conversations.FindForUser(userID)
	if err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}

	responses := make([]dto.ConversationResponse, 0, len(conversations))
	for i := range conversations {
		responses = append(responses, *s.toConversationResponse(&conversations[i], userID))
	}
	return responses, nil
}

// SendMessage appends one message. Appends to the same conversation are
// serialized so sequence numbers are gapless per conversation and list order
// matches append order. The peer's notification is best effort: the message
// is already durable when it is emitted.
func (s *ChatService) SendMessage(userID, conversationID, content string) (*dto.MessageResponse, error) {
	if content == "" {
		return nil, apperrors.NewBadRequestError("message content is required")
	}

	conversation, err := s.findAuthorized(conversationID, userID)
	if err != nil {
		return nil, err
	}

	message, err := s.appendMessage(conversation, userID, content)
	if err != nil {
		return nil, err
	}

	s.notifyPeer(conversation, userID, message)

	return toMessageResponse(message), nil
}

func (s *ChatService) appendMessage(conversation *modelChat.Conversation, senderID, content string) (*modelChat.Message, error) {
	unlock := s.locks.Lock(conversation.ID)
	defer unlock()

	seq, err := s.messages.NextSeq(conversation.ID)
	if err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}

	message := &modelChat.Message{
		ID:             uuid.New().String(),
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Content:        content,
		Seq:            seq,
		CreatedAt:      time.Now(),
	}
	if err := s.messages.Create(message); err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}

	if err := s.conversations.UpdateLastMessage(conversation.ID, content, message.CreatedAt); err != nil {
		logger.WithError(err).Warn("failed to update conversation preview", "conversation_id", conversation.ID)
	}
	return message, nil
}

func (s *ChatService) notifyPeer(conversation *modelChat.Conversation, senderID string, message *modelChat.Message) {
	if s.notifier == nil {
		return
	}

	senderName := senderID
	if sender, err := s.users.FindByID(senderID); err == nil {
		senderName = sender.Name
	}

	peerID := conversation.PeerOf(senderID)
	if err := s.notifier.NotifyNewMessage(peerID, senderName, conversation.ID, message.ID); err != nil {
		logger.WithError(err).Warn("new message notification failed",
			"conversation_id", conversation.ID, "message_id", message.ID)
	}
}

func (s *ChatService) ListMessages(userID, conversationID string, page, pageSize int) (*dto.MessageListResponse, error) {
	if _, err := s.findAuthorized(conversationID, userID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	messages, total, err := s.messages.ListMessages(conversationID, page, pageSize)
	if err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}

	responses := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, *toMessageResponse(&messages[i]))
	}
	return &dto.MessageListResponse{
		Messages: responses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// MarkRead marks every unread message from the peer and returns how many
// were newly marked. Repeating it returns zero.
func (s *ChatService) MarkRead(userID, conversationID string) (int64, error) {
	if _, err := s.findAuthorized(conversationID, userID); err != nil {
		return 0, err
	}

	count, err := s.messages.MarkRead(conversationID, userID)
	if err != nil {
		return 0, apperrors.ErrStorageFailure(err)
	}
	return count, nil
}

func (s *ChatService) findAuthorized(conversationID, userID string) (*modelChat.Conversation, error) {
	conversation, err := s.conversations.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, repoChat.ErrConversationNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.ErrStorageFailure(err)
	}
	if !conversation.HasParticipant(userID) {
		return nil, apperrors.NewForbiddenError("not a participant of this conversation")
	}
	return conversation, nil
}

func (s *ChatService) toConversationResponse(conversation *modelChat.Conversation, userID string) *dto.ConversationResponse {
	resp := &dto.ConversationResponse{
		ID:          conversation.ID,
		PeerID:      conversation.PeerOf(userID),
		LastMessage: conversation.LastMessage,
	}
	resp.LastMessageAt = conversation.LastMessageAt
	if unread, err := s.messages.GetUnreadCount(conversation.ID, userID); err == nil {
		resp.UnreadCount = unread
	}
	return resp
}

func toMessageResponse(message *modelChat.Message) *dto.MessageResponse {
	return &dto.MessageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		Seq:            message.Seq,
		IsRead:         message.IsRead,
		ReadAt:         message.ReadAt,
		CreatedAt:      message.CreatedAt,
	}
}

// appendLocks serializes appends per conversation. Entries are dropped when
// the last holder releases.
type appendLocks struct {
	mu    sync.Mutex
	locks map[string]*appendLock
}

type appendLock struct {
	mu   sync.Mutex
	refs int
}

func (a *appendLocks) Lock(key string) func() {
	a.mu.Lock()
	if a.locks == nil {
		a.locks = make(map[string]*appendLock)
	}
	l, ok := a.locks[key]
	if !ok {
		l = &appendLock{}
		a.locks[key] = l
	}
	l.refs++
	a.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, key)
		}
		a.mu.Unlock()
	}
}
