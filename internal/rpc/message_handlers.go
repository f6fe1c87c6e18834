package rpc

import (
	"context"

	"message-processor/internal/models"
	"message-processor/internal/service"
	"message-processor/pkg/logger"
)

// MessageHandlers exposes the message store and the normalization pipeline
// over the bus
type MessageHandlers struct {
	service    *service.MessageService
	normalizer *service.Normalizer
	log        *logger.Logger
}

// NewMessageHandlers creates the message handler set
func NewMessageHandlers(s *service.MessageService, n *service.Normalizer, log *logger.Logger) *MessageHandlers {
	return &MessageHandlers{service: s, normalizer: n, log: log}
}

// Register binds every message subject
func (h *MessageHandlers) Register(r *Registrar) {
	r.handle("create.message", h.create)
	r.handle("get.messages", h.list)
	r.handle("get.message", h.get)
	r.handle("get.conversation.messages", h.listByConversation)
	r.handle("search.messages", h.search)
	r.handle("update.message", h.update)
	r.handle("delete.message", h.remove)
	r.handle("get.stats", h.stats)
	r.handle("mark.read", h.markAsRead)
	r.handle("normalize.message", h.normalize)
	r.handle("create.quick", h.createQuick)
}

func (h *MessageHandlers) create(ctx context.Context, data []byte) (any, bool) {
	var input service.CreateMessageInput
	if err := decode(data, &input); err != nil {
		return failValidation("invalid create.message payload")
	}
	if input.ConversationID == "" {
		return failValidation("conversationId is required")
	}

	message, err := h.service.Create(ctx, input)
	if err != nil {
		h.log.LogError(err, "failed to create message", "conversation_id", input.ConversationID)
		return fail(err)
	}
	return okMsg(message, "Message created successfully")
}

// createQuick is create.message sugar: just a conversation and a content
// string, with direction and type defaulted
func (h *MessageHandlers) createQuick(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ConversationID string `json:"conversationId"`
		Content        string `json:"content"`
		Direction      string `json:"direction"`
		Type           string `json:"type"`
	}
	if err := decode(data, &payload); err != nil {
		return failValidation("invalid create.quick payload")
	}
	if payload.ConversationID == "" {
		return failValidation("conversationId is required")
	}

	if payload.Direction == "" {
		payload.Direction = models.DirectionIncoming
	}
	if payload.Type == "" {
		payload.Type = models.TypeText
	}

	message, err := h.service.Create(ctx, service.CreateMessageInput{
		ConversationID: payload.ConversationID,
		Direction:      payload.Direction,
		Type:           payload.Type,
		Content:        &payload.Content,
	})
	if err != nil {
		h.log.LogError(err, "failed to create quick message", "conversation_id", payload.ConversationID)
		return fail(err)
	}
	return okMsg(message, "Quick message created successfully")
}

func (h *MessageHandlers) list(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		Page           int    `json:"page"`
		Limit          int    `json:"limit"`
		ConversationID string `json:"conversationId"`
		Direction      string `json:"direction"`
		Type           string `json:"type"`
		Search         string `json:"search"`
		DateFrom       string `json:"dateFrom"`
		DateTo         string `json:"dateTo"`
		Channel        string `json:"channel"`
	}
	if err := decode(data, &payload); err != nil {
		return failValidation("invalid get.messages payload")
	}

	dateFrom, err := parseDate(payload.DateFrom)
	if err != nil {
		return failValidation("dateFrom must be an ISO 8601 date")
	}
	dateTo, err := parseDate(payload.DateTo)
	if err != nil {
		return failValidation("dateTo must be an ISO 8601 date")
	}

	messages, info, err := h.service.List(ctx, service.ListMessagesInput{
		Page:           payload.Page,
		Limit:          payload.Limit,
		ConversationID: payload.ConversationID,
		Direction:      payload.Direction,
		Type:           payload.Type,
		Search:         payload.Search,
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		Channel:        payload.Channel,
	})
	if err != nil {
		h.log.LogError(err, "failed to list messages")
		return fail(err)
	}
	return okPage(messages, info)
}

func (h *MessageHandlers) get(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	message, err := h.service.Get(ctx, payload.ID)
	if err != nil {
		h.log.LogError(err, "failed to get message", "message_id", payload.ID)
		return fail(err)
	}
	return ok(message)
}

func (h *MessageHandlers) listByConversation(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ConversationID string `json:"conversationId"`
		Page           int    `json:"page"`
		Limit          int    `json:"limit"`
		Direction      string `json:"direction"`
	}
	if err := decode(data, &payload); err != nil || payload.ConversationID == "" {
		return failValidation("conversationId is required")
	}

	messages, info, err := h.service.ListByConversation(ctx, payload.ConversationID, service.ListByConversationInput{
		Page:      payload.Page,
		Limit:     payload.Limit,
		Direction: payload.Direction,
	})
	if err != nil {
		h.log.LogError(err, "failed to list conversation messages", "conversation_id", payload.ConversationID)
		return fail(err)
	}
	return okPage(messages, info)
}

func (h *MessageHandlers) search(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		Q              string `json:"q"`
		Page           int    `json:"page"`
		Limit          int    `json:"limit"`
		ConversationID string `json:"conversationId"`
		Channel        string `json:"channel"`
	}
	if err := decode(data, &payload); err != nil {
		return failValidation("invalid search.messages payload")
	}

	messages, info, err := h.service.Search(ctx, payload.Q, service.SearchMessagesInput{
		Page:           payload.Page,
		Limit:          payload.Limit,
		ConversationID: payload.ConversationID,
		Channel:        payload.Channel,
	})
	if err != nil {
		h.log.LogError(err, "failed to search messages", "term", payload.Q)
		return fail(err)
	}

	reply, _ := okPage(messages, info)
	reply.(*Envelope).Meta.SearchTerm = payload.Q
	return reply, true
}

func (h *MessageHandlers) update(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID         string                     `json:"id"`
		UpdateData service.UpdateMessageInput `json:"updateData"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	message, err := h.service.Update(ctx, payload.ID, payload.UpdateData)
	if err != nil {
		h.log.LogError(err, "failed to update message", "message_id", payload.ID)
		return fail(err)
	}
	return okMsg(message, "Message updated successfully")
}

func (h *MessageHandlers) remove(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	if err := h.service.Delete(ctx, payload.ID); err != nil {
		h.log.LogError(err, "failed to delete message", "message_id", payload.ID)
		return fail(err)
	}
	return okMsg(nil, "Message deleted successfully")
}

func (h *MessageHandlers) stats(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		DateFrom       string `json:"dateFrom"`
		DateTo         string `json:"dateTo"`
		ConversationID string `json:"conversationId"`
		Channel        string `json:"channel"`
	}
	if err := decode(data, &payload); err != nil {
		return failValidation("invalid get.stats payload")
	}

	dateFrom, err := parseDate(payload.DateFrom)
	if err != nil {
		return failValidation("dateFrom must be an ISO 8601 date")
	}
	dateTo, err := parseDate(payload.DateTo)
	if err != nil {
		return failValidation("dateTo must be an ISO 8601 date")
	}

	stats, err := h.service.Stats(ctx, service.StatsInput{
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		ConversationID: payload.ConversationID,
		Channel:        payload.Channel,
	})
	if err != nil {
		h.log.LogError(err, "failed to aggregate message stats")
		return fail(err)
	}
	return ok(stats)
}

func (h *MessageHandlers) markAsRead(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ConversationID string `json:"conversationId"`
	}
	if err := decode(data, &payload); err != nil || payload.ConversationID == "" {
		return failValidation("conversationId is required")
	}

	if err := h.service.MarkAsRead(ctx, payload.ConversationID); err != nil {
		return fail(err)
	}
	return okMsg(nil, "Messages marked as read")
}

func (h *MessageHandlers) normalize(ctx context.Context, data []byte) (any, bool) {
	var event service.InboundEvent
	if err := decode(data, &event); err != nil {
		return failValidation("invalid normalize.message payload")
	}
	if event.SenderID == "" || event.Channel == "" {
		return failValidation("senderId and channel are required")
	}

	result, err := h.normalizer.Normalize(ctx, event)
	if err != nil {
		h.log.LogError(err, "failed to normalize message",
			"channel", event.Channel,
			"sender_id", event.SenderID,
		)
		return fail(err)
	}
	return okMsg(result, "Message normalized and stored successfully")
}
