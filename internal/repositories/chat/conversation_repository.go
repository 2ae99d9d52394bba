package chat

import (
	"errors"
	"time"

	modelChat "guidia_backend/internal/models/chat"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetOrCreate resolves the single conversation for an unordered participant
// pair. The pair is canonicalized and protected by a uniqueness constraint,
// so two concurrent callers both end up with the same row: the loser of the
// insert race simply re-reads the winner's row.
func (r *ConversationRepository) GetOrCreate(userA, userB string) (*modelChat.Conversation, error) {
	a, b := modelChat.ParticipantPair(userA, userB)

	var conversation modelChat.Conversation
	err := r.db.Where("participant_a = ? AND participant_b = ?", a, b).First(&conversation).Error
	if err == nil {
		return &conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	candidate := modelChat.Conversation{
		ID:           uuid.New().String(),
		ParticipantA: a,
		ParticipantB: b,
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return &candidate, nil
	}

	// Lost the race; the winner's row exists now.
	err = r.db.Where("participant_a = ? AND participant_b = ?", a, b).First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) FindByID(id string) (*modelChat.Conversation, error) {
	var conversation modelChat.Conversation
	err := r.db.First(&conversation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

// FindForUser lists the user's conversations, most recently active first.
func (r *ConversationRepository) FindForUser(userID string) ([]modelChat.Conversation, error) {
	var conversations []modelChat.Conversation
	err := r.db.
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&conversations).Error
	return conversations, err
}

// UpdateLastMessage refreshes the denormalized last-message cache.
func (r *ConversationRepository) UpdateLastMessage(conversationID, body string, at time.Time) error {
	return r.db.Model(&modelChat.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message":    body,
			"last_message_at": at,
		}).Error
}
