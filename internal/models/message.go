package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Message directions
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Message types
const (
	TypeText        = "text"
	TypeImage       = "image"
	TypeVideo       = "video"
	TypeAudio       = "audio"
	TypeFile        = "file"
	TypeInteractive = "interactive"
)

// Message is one unit of communication inside a conversation. Direction and
// type are fixed at creation; only content and metadata may change afterwards.
type Message struct {
	ID             string            `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID string            `json:"conversationId" gorm:"column:conversation_id;type:uuid;not null;index"`
	Direction      string            `json:"direction" gorm:"not null;index"`
	Type           string            `json:"type" gorm:"not null;index"`
	Content        *string           `json:"content,omitempty" gorm:"type:text"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"createdAt" gorm:"column:created_at;index"`
	UpdatedAt      time.Time         `json:"updatedAt" gorm:"column:updated_at"`

	// Relations
	Conversation *Conversation       `json:"conversation,omitempty" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	Attachments  []MessageAttachment `json:"attachments,omitempty" gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate sets the UUID before creating
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ValidDirection reports whether d is a known message direction
func ValidDirection(d string) bool {
	return d == DirectionIncoming || d == DirectionOutgoing
}

// ValidType reports whether t is a known message type
func ValidType(t string) bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeAudio, TypeFile, TypeInteractive:
		return true
	}
	return false
}
