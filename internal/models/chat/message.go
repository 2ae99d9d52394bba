package chat

import "time"

// Message content, sender and timestamp are immutable once persisted; only
// the read flag mutates. Seq is assigned per conversation under the append
// lock and breaks ties between messages sharing a timestamp.
type Message struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	ConversationID string `gorm:"index;not null"`
	SenderID       string `gorm:"index;not null"`
	Content        string `gorm:"type:text"`
	Seq            int64  `gorm:"not null;index:idx_message_order"`
	IsRead         bool   `gorm:"default:false"`
	ReadAt         *time.Time
	CreatedAt      time.Time `gorm:"index:idx_message_order"`
}

func (Message) TableName() string {
	return "chat_messages"
}
