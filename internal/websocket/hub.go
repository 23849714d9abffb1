// Package websocket pushes listing and review change notifications to
// connected browsers.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/roamstay/internal/metrics"
)

const (
	EntityListing = "listing"
	EntityReview  = "review"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Message is a change notification. ListingID is set on review messages.
type Message struct {
	Type      string `json:"type"`
	Entity    string `json:"entity"`
	Action    string `json:"action"`
	ID        string `json:"id,omitempty"`
	ListingID string `json:"listing_id,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, id string) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// ReviewMessage creates a review notification scoped to its listing.
func ReviewMessage(action, reviewID, listingID string) Message {
	msg := NewMessage(EntityReview, action, reviewID)
	msg.ListingID = listingID
	return msg
}

// Hub fans change notifications out to subscribed browsers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe adds a subscriber with an empty queue.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{out: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	metrics.WebsocketClients.Set(float64(len(h.subs)))
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its queue. It is safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.out)
	}
	metrics.WebsocketClients.Set(float64(len(h.subs)))
	h.mu.Unlock()
}

// Broadcast queues msg for every subscriber. A subscriber whose queue is
// full misses it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.out <- data:
		default:
			h.logger.Debug("subscriber queue full, dropping message", "type", msg.Type)
		}
	}
}

// Subscribers reports how many browsers are connected.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
