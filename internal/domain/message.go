package domain

import "time"

type Message struct {
	ID         string     `bson:"_id" json:"id"`
	SenderID   string     `bson:"sender_id" json:"senderId"`
	ReceiverID string     `bson:"receiver_id" json:"receiverId"`
	Content    string     `bson:"content" json:"content"`
	IsRead     bool       `bson:"is_read" json:"isRead"`
	ReadAt     *time.Time `bson:"read_at,omitempty" json:"readAt,omitempty"`
	IsEdited   bool       `bson:"is_edited" json:"isEdited"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updatedAt"`

	Reactions []MessageReaction `bson:"-" json:"reactions,omitempty"`
}

func (m *Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// MessageReaction is unique per (MessageID, UserID).
type MessageReaction struct {
	ID        string    `bson:"_id" json:"id"`
	MessageID string    `bson:"message_id" json:"messageId"`
	UserID    string    `bson:"user_id" json:"userId"`
	Emoji     string    `bson:"emoji" json:"emoji"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
