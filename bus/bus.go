package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
)

type EventTopic string

const (
	// TopicKeyChanged carries the name of a key whose source value changed.
	TopicKeyChanged EventTopic = "key.changed"
	// TopicTablesPublished carries the id of the newly published tables.
	TopicTablesPublished EventTopic = "tables.published"
)

type Event struct {
	Topic EventTopic
	Key   string
}

type Handler func(ctx context.Context, e Event) error

type Subscriber interface {
	Subscribe(topic EventTopic, h Handler)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Bus interface {
	Subscriber
	Publisher
}

// EventBus delivers events synchronously, in subscription order.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventTopic][]Handler
}

func New() *EventBus {
	return &EventBus{handlers: make(map[EventTopic][]Handler)}
}

func (e *EventBus) Subscribe(topic EventTopic, h Handler) {
	if h == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[topic] = append(e.handlers[topic], h)
}

// Publish runs every handler of e.Topic. A failing handler does not stop the rest;
// all errors are joined.
func (e *EventBus) Publish(ctx context.Context, ev Event) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers[ev.Topic]))
	copy(handlers, e.handlers[ev.Topic])
	e.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			logx.WithContext(ctx).Errorw("event handler failed",
				logx.Field("topic", string(ev.Topic)),
				logx.Field("key", ev.Key),
				logx.Field("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
