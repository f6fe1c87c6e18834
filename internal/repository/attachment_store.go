package repository

import (
	"context"

	"gorm.io/gorm"

	"message-processor/internal/models"
)

// AttachmentStore persists attachment rows. There is no query surface:
// attachments are only ever read through their owning message.
type AttachmentStore interface {
	CreateBatch(ctx context.Context, attachments []models.MessageAttachment) error
	Save(ctx context.Context, attachment *models.MessageAttachment) error
	// WithTx returns a store bound to an open transaction, so attachment
	// writes can share a unit of work with the owning message.
	WithTx(tx *gorm.DB) AttachmentStore
}

// GormAttachmentStore implements AttachmentStore on PostgreSQL
type GormAttachmentStore struct {
	db *gorm.DB
}

// NewGormAttachmentStore creates an attachment store over the given DB handle
func NewGormAttachmentStore(db *gorm.DB) *GormAttachmentStore {
	return &GormAttachmentStore{db: db}
}

// CreateBatch inserts all attachments in one statement
func (s *GormAttachmentStore) CreateBatch(ctx context.Context, attachments []models.MessageAttachment) error {
	if len(attachments) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&attachments).Error
}

func (s *GormAttachmentStore) Save(ctx context.Context, attachment *models.MessageAttachment) error {
	return s.db.WithContext(ctx).Save(attachment).Error
}

func (s *GormAttachmentStore) WithTx(tx *gorm.DB) AttachmentStore {
	return &GormAttachmentStore{db: tx}
}
