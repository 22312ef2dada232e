package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chili-cookoff-backend/models"

	"github.com/gorilla/websocket"
)

// TopicLeaderboard receives updates for every entry.
const TopicLeaderboard = "leaderboard"

// EntryTopic is the topic of a single entry.
func EntryTopic(entryID string) string {
	return "entry:" + entryID
}

var ErrTooManyClients = errors.New("websocket: connection limit reached")

// Client is one subscriber. conn is nil for SSE subscribers.
type Client struct {
	topic string
	conn  *websocket.Conn
	send  chan []byte
}

// Hub keeps subscribers grouped by topic and fans messages out to them.
type Hub struct {
	clients        map[string]map[*Client]bool
	register       chan *Client
	unregister     chan *Client
	done           chan struct{}
	mu             sync.RWMutex
	total          int
	maxConnections int
	log            *slog.Logger
}

// NewHub creates a hub. maxConnections <= 0 means unlimited.
func NewHub(maxConnections int, log *slog.Logger) *Hub {
	return &Hub{
		clients:        make(map[string]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		maxConnections: maxConnections,
		log:            log,
	}
}

// Run processes registrations until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for topic, clients := range h.clients {
				for c := range clients {
					close(c.send)
				}
				delete(h.clients, topic)
			}
			h.total = 0
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[c.topic]; !ok {
				h.clients[c.topic] = make(map[*Client]bool)
			}
			h.clients[c.topic][c] = true
			h.total++
			n := len(h.clients[c.topic])
			h.mu.Unlock()
			h.log.Debug("live client registered", "topic", c.topic, "topic_clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
		}
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Client) {
	clients, ok := h.clients[c.topic]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.topic)
	}
}

// RegisterClient adds c to the hub. It fails once the connection limit is reached
// or the hub has stopped.
func (h *Hub) RegisterClient(c *Client) error {
	if h.maxConnections > 0 && h.ClientCount() >= h.maxConnections {
		return ErrTooManyClients
	}
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return context.Canceled
	}
}

func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Subscribe registers a connectionless subscriber on topic. The returned channel
// is closed after cancel is called or the hub stops.
func (h *Hub) Subscribe(topic string) (<-chan []byte, func(), error) {
	c := &Client{topic: topic, send: make(chan []byte, 64)}
	if err := h.RegisterClient(c); err != nil {
		return nil, nil, err
	}
	var once sync.Once
	return c.send, func() { once.Do(func() { h.UnregisterClient(c) }) }, nil
}

// Broadcast sends msg to every subscriber of topic. Subscribers whose buffer is
// full are dropped.
func (h *Hub) Broadcast(topic string, msg *models.LiveMessage) {
	payload, err := msg.ToJSON()
	if err != nil {
		h.log.Error("live message encode failed", "error", err)
		return
	}
	h.broadcastRaw(topic, payload)
}

func (h *Hub) broadcastRaw(topic string, payload []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.clients[topic] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow live client", "topic", topic)
		go h.UnregisterClient(c)
	}
}

// PublishEntryStats announces new aggregates on the entry topic and the leaderboard.
func (h *Hub) PublishEntryStats(entryID string, stats models.EntryStats) {
	msg := &models.LiveMessage{
		Type:      models.MessageEntryStats,
		EntryID:   entryID,
		Payload:   stats,
		Timestamp: time.Now().UTC(),
	}
	h.Broadcast(EntryTopic(entryID), msg)
	h.Broadcast(TopicLeaderboard, msg)
}

// PublishEntryRemoved announces that an entry was deleted.
func (h *Hub) PublishEntryRemoved(entryID string) {
	msg := &models.LiveMessage{
		Type:      models.MessageEntryRemove,
		EntryID:   entryID,
		Timestamp: time.Now().UTC(),
	}
	h.Broadcast(EntryTopic(entryID), msg)
	h.Broadcast(TopicLeaderboard, msg)
}

// ClientCount returns the number of registered subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// TopicCount returns the number of subscribers of topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}
