// Package eventbus provides the topic based publish/subscribe channel that the
// host and its plugins talk through.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Handler receives a payload published on a topic and may return a result.
// A nil result is not collected by Request.
type Handler func(ctx context.Context, payload any) (any, error)

// Bus is the interface plugins depend on
type Bus interface {
	On(topic string, h Handler)
	Off(topic string)
	Has(topic string) bool
	Trigger(topic string, payload any)
	Request(ctx context.Context, topic string, payload any) ([]any, error)
}

// EventBus is the in-process Bus implementation
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      logrus.FieldLogger
}

// NewEventBus creates an empty event bus. Handler failures during Trigger are
// reported through log; a nil log uses the logrus standard logger.
func NewEventBus(log logrus.FieldLogger) *EventBus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// On registers h for topic. Handlers run in registration order.
func (eb *EventBus) On(topic string, h Handler) {
	if h == nil {
		return
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[topic] = append(eb.handlers[topic], h)
}

// Off removes every handler registered for topic
func (eb *EventBus) Off(topic string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	delete(eb.handlers, topic)
}

// Has reports whether topic has at least one handler
func (eb *EventBus) Has(topic string) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[topic]) > 0
}

// Trigger publishes payload and discards any results.
func (eb *EventBus) Trigger(topic string, payload any) {
	for _, h := range eb.snapshot(topic) {
		if _, err := h(context.Background(), payload); err != nil {
			eb.log.WithFields(logrus.Fields{
				"topic": topic,
				"error": err.Error(),
			}).Warn("Event handler failed")
		}
	}
}

// Request publishes payload and collects the non-nil results of every handler.
// Handler errors do not stop the remaining handlers; they are joined and
// returned together with the results collected.
func (eb *EventBus) Request(ctx context.Context, topic string, payload any) ([]any, error) {
	var (
		results []any
		errs    []error
	)
	for _, h := range eb.snapshot(topic) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := h(ctx, payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, errors.Join(errs...)
}

func (eb *EventBus) snapshot(topic string) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	handlers := eb.handlers[topic]
	out := make([]Handler, len(handlers))
	copy(out, handlers)
	return out
}

// First returns the first result or nil. Used for topics with a single responder.
func First(results []any) any {
	if len(results) == 0 {
		return nil
	}
	return results[0]
}
