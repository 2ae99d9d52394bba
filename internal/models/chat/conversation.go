package chat

import "time"

// Conversation holds exactly one row per unordered participant pair:
// ParticipantA/ParticipantB are stored in lexicographic order and covered by
// a uniqueness constraint, so concurrent creators converge on one row.
type Conversation struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	ParticipantA  string `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	ParticipantB  string `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	LastMessage   string `gorm:"type:text"` // denormalized cache of the latest body
	LastMessageAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Conversation) TableName() string {
	return "chat_conversations"
}

// ParticipantPair returns the canonical ordering for an unordered pair.
func ParticipantPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether the user belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// PeerOf returns the other participant of a two-party conversation.
func (c *Conversation) PeerOf(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}
