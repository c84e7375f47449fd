package relay

import (
	"context"
	"fmt"
	"sync"

	"food-delivery/internal/util"

	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue length
const DefaultBuffer = 64

// Publisher broadcasts a message to every current subscriber of a topic
type Publisher interface {
	Publish(ctx context.Context, topic Topic, msg Outbound) error
}

// Hub is an in-process topic fan-out. Delivery is best effort: a topic with
// no subscribers drops the message, and a subscriber whose queue is full
// misses it.
type Hub struct {
	mu     sync.RWMutex
	topics map[Topic]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub creates a hub whose subscriptions queue up to buffer messages
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		topics: make(map[Topic]map[*Subscription]struct{}),
		buffer: buffer,
		logger: util.GetLogger(),
	}
}

// Subscription receives every message published to its topics, in
// publish order per topic.
type Subscription struct {
	hub    *Hub
	topics []Topic
	ch     chan []byte
	closed bool
}

// Messages returns the queue of encoded messages. It is closed by Close.
func (s *Subscription) Messages() <-chan []byte {
	return s.ch
}

// Topics returns the topics this subscription listens on
func (s *Subscription) Topics() []Topic {
	return s.topics
}

// Close removes the subscription from every topic
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Subscribe registers a new subscription on the given topics
func (h *Hub) Subscribe(topics ...Topic) *Subscription {
	sub := &Subscription{
		hub:    h,
		topics: topics,
		ch:     make(chan []byte, h.buffer),
	}

	h.mu.Lock()
	for _, t := range topics {
		subs, ok := h.topics[t]
		if !ok {
			subs = make(map[*Subscription]struct{})
			h.topics[t] = subs
		}
		subs[sub] = struct{}{}
	}
	h.mu.Unlock()

	util.RelaySubscribers.Inc()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.closed {
		return
	}
	sub.closed = true

	for _, t := range sub.topics {
		subs := h.topics[t]
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, t)
		}
	}
	close(sub.ch)
	util.RelaySubscribers.Dec()
}

// SubscriberCount returns the number of subscriptions on topic
func (h *Hub) SubscriberCount(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish encodes msg once and enqueues it to every subscriber of topic
func (h *Hub) Publish(ctx context.Context, topic Topic, msg Outbound) error {
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", msg.MessageType(), err)
	}
	util.RelayMessagesPublished.WithLabelValues(msg.MessageType()).Inc()
	h.Deliver(topic, data)
	return nil
}

// Deliver enqueues an already encoded message and returns how many
// subscribers received it.
func (h *Hub) Deliver(topic Topic, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.topics[topic]
	if len(subs) == 0 {
		util.RelayMessagesDropped.WithLabelValues("no_subscribers").Inc()
		return 0
	}

	delivered := 0
	for sub := range subs {
		select {
		case sub.ch <- data:
			delivered++
		default:
			util.RelayMessagesDropped.WithLabelValues("buffer_full").Inc()
			h.logger.Warn("Relay subscriber queue full, message dropped",
				zap.String("topic", string(topic)))
		}
	}
	return delivered
}
