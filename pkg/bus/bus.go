// Package bus wraps the NATS connection and the request/reply subscription
// loop. Callers publish a JSON request on a subject and receive the JSON
// reply on their inbox; correlation is handled by NATS itself.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"message-processor/pkg/logger"
)

// Handler processes one request payload and returns the reply payload.
// The returned bytes are always published, even for application failures;
// a nil return means the handler could not produce a reply at all.
type Handler func(ctx context.Context, data []byte) []byte

// Connect opens a NATS connection with sane reconnect defaults
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}

// Server dispatches bus requests to registered handlers over a queue group,
// so multiple service instances share the load
type Server struct {
	conn     *nats.Conn
	queue    string
	timeout  time.Duration
	log      *logger.Logger
	handlers map[string]Handler
	subs     []*nats.Subscription
}

// NewServer creates a bus server on an existing connection
func NewServer(conn *nats.Conn, queue string, timeout time.Duration, log *logger.Logger) *Server {
	return &Server{
		conn:     conn,
		queue:    queue,
		timeout:  timeout,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Handle registers a handler for a subject. Must be called before Start.
func (s *Server) Handle(subject string, handler Handler) {
	s.handlers[subject] = handler
}

// Start subscribes every registered subject on the queue group
func (s *Server) Start() error {
	for subject, handler := range s.handlers {
		sub, err := s.conn.QueueSubscribe(subject, s.queue, s.dispatch(subject, handler))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}

	if err := s.conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}

	s.log.Info("bus server started", "subjects", len(s.handlers), "queue", s.queue)
	return nil
}

// dispatch wraps a handler with timeout, panic recovery and reply publishing
func (s *Server) dispatch(subject string, handler Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		reply := s.safeHandle(ctx, subject, handler, msg.Data)
		if reply == nil {
			reply = []byte(`{"success":false,"message":"internal error"}`)
		}

		if msg.Reply == "" {
			// Fire-and-forget publish; nothing to correlate the reply to.
			return
		}
		if err := msg.Respond(reply); err != nil {
			s.log.LogError(err, "failed to publish reply", "subject", subject)
		}
	}
}

func (s *Server) safeHandle(ctx context.Context, subject string, handler Handler, data []byte) (reply []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panicked", "subject", subject, "panic", fmt.Sprint(r))
			reply = nil
		}
	}()
	return handler(ctx, data)
}

// Drain unsubscribes all handlers and waits for in-flight requests
func (s *Server) Drain() error {
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			return err
		}
	}
	return nil
}
