// Package rpc exposes the store operations as bus request/reply handlers.
// Subjects follow the `<service>.<operation>` convention, e.g.
// `message-processor.create.message`. Every reply is a JSON envelope; the
// transport never sees a raw error.
package rpc

import (
	"context"
	"encoding/json"
	"time"

	"message-processor/internal/service"
	"message-processor/pkg/bus"
	apperrors "message-processor/pkg/errors"
	"message-processor/pkg/logger"
	"message-processor/pkg/metrics"
)

// Meta carries paging information alongside a listed result. The optional
// fields echo the scope a listing was narrowed to.
type Meta struct {
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
	SearchTerm string `json:"searchTerm,omitempty"`
	Channel    string `json:"channel,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
}

// Envelope is the reply shape shared by all handlers
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Found   *bool  `json:"found,omitempty"`
}

func ok(data any) (any, bool) {
	return &Envelope{Success: true, Data: data}, true
}

func okMsg(data any, message string) (any, bool) {
	return &Envelope{Success: true, Data: data, Message: message}, true
}

func okPage(data any, info service.PageInfo) (any, bool) {
	return &Envelope{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      info.Total,
			Page:       info.Page,
			Limit:      info.Limit,
			TotalPages: info.TotalPages,
		},
	}, true
}

func fail(err error) (any, bool) {
	return &Envelope{
		Success: false,
		Message: apperrors.MessageOf(err),
		Code:    apperrors.CodeOf(err),
	}, false
}

func failValidation(message string) (any, bool) {
	return &Envelope{
		Success: false,
		Message: message,
		Code:    apperrors.CodeValidation,
	}, false
}

// handlerFunc produces the full reply object plus a success flag for
// instrumentation
type handlerFunc func(ctx context.Context, data []byte) (any, bool)

// Registrar binds handlers to subjects on the bus server, wrapping each with
// logging and metrics
type Registrar struct {
	server  *bus.Server
	prefix  string
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewRegistrar creates a registrar for the given subject prefix
func NewRegistrar(server *bus.Server, prefix string, m *metrics.Metrics, log *logger.Logger) *Registrar {
	return &Registrar{
		server:  server,
		prefix:  prefix,
		metrics: m,
		log:     log,
	}
}

func (r *Registrar) handle(suffix string, fn handlerFunc) {
	subject := r.prefix + "." + suffix
	r.server.Handle(subject, func(ctx context.Context, data []byte) []byte {
		start := time.Now()

		reply, success := fn(ctx, data)
		elapsed := time.Since(start)

		r.metrics.ObserveRequest(subject, success, elapsed)
		r.log.LogRPC(subject, success, elapsed)

		payload, err := json.Marshal(reply)
		if err != nil {
			r.log.LogError(err, "failed to encode reply", "subject", subject)
			return nil
		}
		return payload
	})
}

// decode unmarshals a request payload, tolerating empty payloads for
// requests that carry no arguments
func decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// parseDate accepts RFC 3339 timestamps or plain dates; empty means unset
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
