package rpc

import (
	"context"

	"message-processor/internal/service"
	"message-processor/pkg/logger"
)

// ConversationHandlers exposes the conversation store over the bus
type ConversationHandlers struct {
	service *service.ConversationService
	log     *logger.Logger
}

// NewConversationHandlers creates the conversation handler set
func NewConversationHandlers(s *service.ConversationService, log *logger.Logger) *ConversationHandlers {
	return &ConversationHandlers{service: s, log: log}
}

// Register binds every conversation subject
func (h *ConversationHandlers) Register(r *Registrar) {
	r.handle("create.conversation", h.create)
	r.handle("get.conversations", h.list)
	r.handle("get.conversation", h.get)
	r.handle("find.conversation.by.customer.channel", h.findByCustomerAndChannel)
	r.handle("find.or.create.conversation", h.findOrCreate)
	r.handle("update.conversation", h.update)
	r.handle("close.conversation", h.close)
	r.handle("reactivate.conversation", h.reactivate)
	r.handle("delete.conversation", h.remove)
	r.handle("get.conversations.stats", h.stats)
	r.handle("get.conversations.by.channel", h.listByChannel)
	r.handle("get.conversations.by.customer", h.listByCustomer)
}

func (h *ConversationHandlers) create(ctx context.Context, data []byte) (any, bool) {
	var input service.CreateConversationInput
	if err := decode(data, &input); err != nil {
		return failValidation("invalid create.conversation payload")
	}
	if input.CustomerID == "" || input.Channel == "" {
		return failValidation("customerId and channel are required")
	}

	conversation, err := h.service.Create(ctx, input)
	if err != nil {
		h.log.LogError(err, "failed to create conversation")
		return fail(err)
	}
	return okMsg(conversation, "Conversation created successfully")
}

func (h *ConversationHandlers) list(ctx context.Context, data []byte) (any, bool) {
	var input service.ListConversationsInput
	if err := decode(data, &input); err != nil {
		return failValidation("invalid get.conversations payload")
	}

	conversations, info, err := h.service.List(ctx, input)
	if err != nil {
		h.log.LogError(err, "failed to list conversations")
		return fail(err)
	}
	return okPage(conversations, info)
}

func (h *ConversationHandlers) get(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	conversation, err := h.service.Get(ctx, payload.ID)
	if err != nil {
		h.log.LogError(err, "failed to get conversation", "conversation_id", payload.ID)
		return fail(err)
	}
	return ok(conversation)
}

func (h *ConversationHandlers) findByCustomerAndChannel(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		CustomerID string `json:"customerId"`
		Channel    string `json:"channel"`
	}
	if err := decode(data, &payload); err != nil || payload.CustomerID == "" || payload.Channel == "" {
		return failValidation("customerId and channel are required")
	}

	conversation, err := h.service.FindByCustomerAndChannel(ctx, payload.CustomerID, payload.Channel)
	if err != nil {
		h.log.LogError(err, "failed to find conversation",
			"customer_id", payload.CustomerID,
			"channel", payload.Channel,
		)
		return fail(err)
	}

	found := conversation != nil
	return &Envelope{Success: true, Data: conversation, Found: &found}, true
}

func (h *ConversationHandlers) findOrCreate(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		CustomerID string `json:"customerId"`
		Channel    string `json:"channel"`
	}
	if err := decode(data, &payload); err != nil || payload.CustomerID == "" || payload.Channel == "" {
		return failValidation("customerId and channel are required")
	}

	conversation, err := h.service.FindOrCreate(ctx, payload.CustomerID, payload.Channel)
	if err != nil {
		h.log.LogError(err, "failed to find or create conversation",
			"customer_id", payload.CustomerID,
			"channel", payload.Channel,
		)
		return fail(err)
	}
	return ok(conversation)
}

func (h *ConversationHandlers) update(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID         string                          `json:"id"`
		UpdateData service.UpdateConversationInput `json:"updateData"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	conversation, err := h.service.Update(ctx, payload.ID, payload.UpdateData)
	if err != nil {
		h.log.LogError(err, "failed to update conversation", "conversation_id", payload.ID)
		return fail(err)
	}
	return okMsg(conversation, "Conversation updated successfully")
}

func (h *ConversationHandlers) close(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	conversation, err := h.service.Close(ctx, payload.ID)
	if err != nil {
		h.log.LogError(err, "failed to close conversation", "conversation_id", payload.ID)
		return fail(err)
	}
	return okMsg(conversation, "Conversation closed successfully")
}

func (h *ConversationHandlers) reactivate(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	conversation, err := h.service.Reactivate(ctx, payload.ID)
	if err != nil {
		h.log.LogError(err, "failed to reactivate conversation", "conversation_id", payload.ID)
		return fail(err)
	}
	return okMsg(conversation, "Conversation reactivated successfully")
}

func (h *ConversationHandlers) remove(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := decode(data, &payload); err != nil || payload.ID == "" {
		return failValidation("id is required")
	}

	if err := h.service.Delete(ctx, payload.ID); err != nil {
		h.log.LogError(err, "failed to delete conversation", "conversation_id", payload.ID)
		return fail(err)
	}
	return okMsg(nil, "Conversation deleted successfully")
}

func (h *ConversationHandlers) listByChannel(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		Channel string `json:"channel"`
		Page    int    `json:"page"`
		Limit   int    `json:"limit"`
		Status  string `json:"status"`
	}
	if err := decode(data, &payload); err != nil || payload.Channel == "" {
		return failValidation("channel is required")
	}

	conversations, info, err := h.service.List(ctx, service.ListConversationsInput{
		Page:    payload.Page,
		Limit:   payload.Limit,
		Status:  payload.Status,
		Channel: payload.Channel,
	})
	if err != nil {
		h.log.LogError(err, "failed to list conversations by channel", "channel", payload.Channel)
		return fail(err)
	}

	reply, _ := okPage(conversations, info)
	reply.(*Envelope).Meta.Channel = payload.Channel
	return reply, true
}

func (h *ConversationHandlers) listByCustomer(ctx context.Context, data []byte) (any, bool) {
	var payload struct {
		CustomerID string `json:"customerId"`
		Page       int    `json:"page"`
		Limit      int    `json:"limit"`
		Status     string `json:"status"`
	}
	if err := decode(data, &payload); err != nil || payload.CustomerID == "" {
		return failValidation("customerId is required")
	}

	conversations, info, err := h.service.List(ctx, service.ListConversationsInput{
		Page:       payload.Page,
		Limit:      payload.Limit,
		Status:     payload.Status,
		CustomerID: payload.CustomerID,
	})
	if err != nil {
		h.log.LogError(err, "failed to list conversations by customer", "customer_id", payload.CustomerID)
		return fail(err)
	}

	reply, _ := okPage(conversations, info)
	reply.(*Envelope).Meta.CustomerID = payload.CustomerID
	return reply, true
}

func (h *ConversationHandlers) stats(ctx context.Context, data []byte) (any, bool) {
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.log.LogError(err, "failed to aggregate conversation stats")
		return fail(err)
	}
	return ok(stats)
}
