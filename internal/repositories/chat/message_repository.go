package chat

import (
	"errors"
	"time"

	modelChat "guidia_backend/internal/models/chat"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("message not found")

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *modelChat.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByID(id string) (*modelChat.Message, error) {
	var message modelChat.Message
	err := r.db.First(&message, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// NextSeq returns the next per-conversation sequence number. Callers must
// hold the conversation's append lock so two appends cannot read the same
// maximum.
func (r *MessageRepository) NextSeq(conversationID string) (int64, error) {
	var maxSeq int64
	err := r.db.Model(&modelChat.Message{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, err
	}
	return maxSeq + 1, nil
}

// ListMessages pages through a conversation oldest-first. Ordering is
// (created_at, seq): non-decreasing timestamps with insertion order breaking
// ties.
func (r *MessageRepository) ListMessages(conversationID string, page, pageSize int) ([]modelChat.Message, int64, error) {
	var messages []modelChat.Message

	query := r.db.Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Model(&modelChat.Message{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	err := query.Order("created_at ASC, seq ASC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&messages).Error

	return messages, total, err
}

// MarkRead flips the read flag on every message the reader has not yet seen
// and returns how many were newly marked. A repeat call matches no rows and
// returns zero.
func (r *MessageRepository) MarkRead(conversationID, readerID string) (int64, error) {
	result := r.db.Model(&modelChat.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *MessageRepository) GetUnreadCount(conversationID, readerID string) (int64, error) {
	var count int64
	err := r.db.Model(&modelChat.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Count(&count).Error
	return count, err
}
