package rpc

import (
	"context"
	"time"

	"message-processor/pkg/health"
)

// HealthReply is the health.check reply shape. It deliberately does not use
// the standard envelope: monitoring consumers read it directly.
type HealthReply struct {
	Success   bool   `json:"success"`
	Service   string `json:"service"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// HealthHandlers answers health checks for the service and its
// conversations sub-component
type HealthHandlers struct {
	checker *health.Checker
	service string
}

// NewHealthHandlers creates the health handler set
func NewHealthHandlers(checker *health.Checker, serviceName string) *HealthHandlers {
	return &HealthHandlers{checker: checker, service: serviceName}
}

// Register binds the health subjects
func (h *HealthHandlers) Register(r *Registrar) {
	r.handle("health.check", h.check(h.service))
	r.handle("conversations.health.check", h.check(h.service+"-conversations"))
}

func (h *HealthHandlers) check(component string) handlerFunc {
	return func(ctx context.Context, data []byte) (any, bool) {
		reply := HealthReply{
			Success:   true,
			Service:   component,
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		if !h.checker.IsSystemHealthy() {
			reply.Status = "unhealthy"
			reply.Error = h.checker.FirstError()
		}

		return reply, reply.Status == "healthy"
	}
}
