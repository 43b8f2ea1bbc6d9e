// services/broadcaster.go
package services

import (
	"encoding/json"
	"log"
	"sync"
)

// Channel key helpers. Each room owns three channels: a best-effort primary
// channel for general traffic, a state channel for room snapshots and a
// reliable channel for critical health/game-over events.
func RoomChannel(roomID string) string         { return "room:" + roomID }
func RoomStateChannel(roomID string) string    { return RoomChannel(roomID) + ":state" }
func RoomReliableChannel(roomID string) string { return RoomChannel(roomID) + ":reliable" }

// Broadcaster fans payloads out to the current subscribers of a channel.
// Delivery is one-way and at-most-once: no acknowledgment, no backpressure,
// no retry.
type Broadcaster interface {
	Publish(channelKey string, payload any)
}

// Subscriber receives the marshaled payloads published to its channels. The
// buffered channel is never written to with blocking: a full subscriber
// misses the message.
type Subscriber struct {
	ID       string
	Messages chan []byte

	hub      *Hub
	channels []string
}

// Close detaches the subscriber from every channel it joined.
func (sub *Subscriber) Close() {
	sub.hub.unsubscribe(sub)
}

// Hub is an in-process Broadcaster with channel-keyed subscriber sets.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber on the given channel keys.
func (h *Hub) Subscribe(id string, channelKeys ...string) *Subscriber {
	sub := &Subscriber{
		ID:       id,
		Messages: make(chan []byte, 64),
		hub:      h,
		channels: channelKeys,
	}
	h.mu.Lock()
	for _, key := range channelKeys {
		if h.channels[key] == nil {
			h.channels[key] = make(map[*Subscriber]struct{})
		}
		h.channels[key][sub] = struct{}{}
	}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	for _, key := range sub.channels {
		if subs, ok := h.channels[key]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(h.channels, key)
			}
		}
	}
	h.mu.Unlock()
}

// Publish marshals the payload once and hands it to every subscriber of the
// channel. Subscribers with a full buffer are skipped; the pipeline must
// never block on a slow client.
func (h *Hub) Publish(channelKey string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[hub] failed to marshal payload for %s: %v", channelKey, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.channels[channelKey] {
		select {
		case sub.Messages <- data:
		default:
			log.Printf("[hub] dropping message for slow subscriber %s on %s", sub.ID, channelKey)
		}
	}
}

// SubscriberCount reports how many subscribers a channel currently has.
func (h *Hub) SubscriberCount(channelKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelKey])
}

// ActiveChannelCount reports how many channels have at least one subscriber.
func (h *Hub) ActiveChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
