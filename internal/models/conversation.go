package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation statuses
const (
	StatusActive  = "active"
	StatusClosed  = "closed"
	StatusPending = "pending"
)

// Conversation is a thread of messages between one customer and the
// service over one channel
type Conversation struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	CustomerID string    `json:"customerId" gorm:"column:customer_id;not null;index:idx_conversations_customer_channel,priority:1"`
	Channel    string    `json:"channel" gorm:"not null;index:idx_conversations_customer_channel,priority:2"`
	Status     string    `json:"status" gorm:"not null;default:active;index"`
	CreatedAt  time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"column:updated_at"`

	// Relations
	Messages []Message `json:"messages,omitempty" gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate sets the UUID and default status before creating
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	return nil
}

// ValidStatus reports whether s is one of the known conversation statuses
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusClosed, StatusPending:
		return true
	}
	return false
}
