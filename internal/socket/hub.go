// internal/socket/hub.go
package socket

import (
	"sync"

	"driver-punch-api-server/internal/metrics"
)

// Topics pushed to live subscribers.
const (
	TopicPunchLogs   = "punchLogs"
	TopicReturnForms = "returnForms"
)

// Subscription receives full snapshots for one topic. Only the newest snapshot is kept
// for a slow reader; older ones are dropped since each push replaces the previous.
type Subscription struct {
	Topic string
	C     <-chan []byte

	ch chan []byte
}

// Hub fans snapshots out to the subscribers of each topic.
type Hub struct {
	// mu guards topics and last; publishing holds it so pushes stay ordered per topic.
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	last   map[string][]byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		last:   make(map[string][]byte),
	}
}

// Subscribe registers a subscriber. The latest snapshot of the topic, if any, is
// delivered right away. The returned cancel func is idempotent.
func (h *Hub) Subscribe(topic string) (*Subscription, func()) {
	ch := make(chan []byte, 1)
	sub := &Subscription{Topic: topic, C: ch, ch: ch}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	if msg, ok := h.last[topic]; ok {
		ch <- msg
	}
	h.mu.Unlock()
	metrics.LiveSubscribers.WithLabelValues(topic).Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.topics[topic], sub)
			if len(h.topics[topic]) == 0 {
				delete(h.topics, topic)
			}
			close(sub.ch)
			h.mu.Unlock()
			metrics.LiveSubscribers.WithLabelValues(topic).Dec()
		})
	}
	return sub, cancel
}

// Publish replaces the topic snapshot and pushes it to every subscriber.
func (h *Hub) Publish(topic string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[topic] = message
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- message:
		default:
			// Drop the stale snapshot the reader has not picked up yet.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- message
		}
	}
}

// Subscribers returns the number of open subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
