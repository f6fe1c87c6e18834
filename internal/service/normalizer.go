package service

import (
	"context"

	"message-processor/internal/models"
	"message-processor/pkg/logger"
)

// InboundAttachment is one attachment reference on a raw channel event.
// Channels send the mime type under snake_case.
type InboundAttachment struct {
	Type     string  `json:"type"`
	URL      string  `json:"url"`
	MimeType *string `json:"mime_type"`
}

// InboundEvent is a raw inbound event as delivered by a channel connector
type InboundEvent struct {
	SenderID    string              `json:"senderId"`
	RecipientID string              `json:"recipientId"`
	Channel     string              `json:"channel"`
	Text        *string             `json:"text"`
	Attachments []InboundAttachment `json:"attachments"`
	Timestamp   int64               `json:"timestamp"`
	Metadata    map[string]any      `json:"metadata"`
}

// NormalizeResult pairs the stored message with its conversation
type NormalizeResult struct {
	Message      *models.Message      `json:"message"`
	Conversation *models.Conversation `json:"conversation"`
}

// Normalizer turns raw channel events into stored messages attached to the
// right conversation
type Normalizer struct {
	conversations *ConversationService
	messages      *MessageService
	log           *logger.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(conversations *ConversationService, messages *MessageService, log *logger.Logger) *Normalizer {
	return &Normalizer{
		conversations: conversations,
		messages:      messages,
		log:           log,
	}
}

// Normalize resolves the owning conversation, classifies the event and
// persists it as an incoming message. A failure at any step aborts the whole
// pipeline; a conversation created in step one is intentionally not rolled
// back when message creation fails, so the next event for the pair lands in
// it.
func (n *Normalizer) Normalize(ctx context.Context, event InboundEvent) (*NormalizeResult, error) {
	n.log.Info("normalizing inbound event",
		"channel", event.Channel,
		"sender_id", event.SenderID,
	)

	conversation, err := n.conversations.FindOrCreate(ctx, event.SenderID, event.Channel)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"senderId":  event.SenderID,
		"timestamp": event.Timestamp,
		"channel":   event.Channel,
	}
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	attachments := make([]AttachmentInput, 0, len(event.Attachments))
	for _, att := range event.Attachments {
		attachments = append(attachments, AttachmentInput{
			Type:     att.Type,
			URL:      att.URL,
			MimeType: att.MimeType,
		})
	}

	message, err := n.messages.Create(ctx, CreateMessageInput{
		ConversationID: conversation.ID,
		// Channel events only ever flow inward
		Direction:   models.DirectionIncoming,
		Type:        classifyType(event.Attachments),
		Content:     event.Text,
		Metadata:    metadata,
		Attachments: attachments,
	})
	if err != nil {
		return nil, err
	}

	return &NormalizeResult{
		Message:      message,
		Conversation: conversation,
	}, nil
}

// classifyType maps an event to a message type from its first attachment.
// Without attachments everything is text, including events with empty or
// missing text.
func classifyType(attachments []InboundAttachment) string {
	if len(attachments) == 0 {
		return models.TypeText
	}

	switch attachments[0].Type {
	case models.AttachmentImage:
		return models.TypeImage
	case models.AttachmentVideo:
		return models.TypeVideo
	case models.AttachmentAudio:
		return models.TypeAudio
	case models.AttachmentFile:
		return models.TypeFile
	default:
		return models.TypeFile
	}
}
