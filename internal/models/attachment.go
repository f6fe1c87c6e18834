package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment types
const (
	AttachmentImage   = "image"
	AttachmentVideo   = "video"
	AttachmentAudio   = "audio"
	AttachmentFile    = "file"
	AttachmentSticker = "sticker"
)

// MessageAttachment is a reference to an out-of-band media object belonging
// to a message. Rows live and die with their message.
type MessageAttachment struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	MessageID string    `json:"messageId" gorm:"column:message_id;type:uuid;not null;index"`
	Type      string    `json:"type" gorm:"not null"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	MimeType  *string   `json:"mimeType,omitempty" gorm:"column:mime_type"`
	Filename  *string   `json:"filename,omitempty"`
	Size      *int64    `json:"size,omitempty"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

// TableName specifies the table name
func (MessageAttachment) TableName() string {
	return "message_attachments"
}

// BeforeCreate sets the UUID before creating
func (a *MessageAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
