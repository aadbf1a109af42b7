// Package feed fans review events out to WebSocket subscribers.
package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	writeWait = 2 * time.Second

	// sendBuffer is how many events a subscriber may fall behind before it
	// is dropped.
	sendBuffer = 64
)

// client owns the only goroutine that writes data frames to ws.
type client struct {
	ws   *websocket.Conn
	send chan []byte
}

type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*client

	// Optional.
	Gauge prometheus.Gauge
	Log   logrus.FieldLogger
}

type Stats struct {
	Clients int `json:"clients"`
}

func NewHub(log logrus.FieldLogger, gauge prometheus.Gauge) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*client),
		Gauge:   gauge,
		Log:     log,
	}
}

// setGauge must be called with mu held.
func (h *Hub) setGauge() {
	if h.Gauge != nil {
		h.Gauge.Set(float64(len(h.clients)))
	}
}

// Add subscribes ws and starts its writer. The caller keeps reading from ws
// and calls Remove once the read fails.
func (h *Hub) Add(ws *websocket.Conn) {
	c := &client{ws: ws, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[ws] = c
	h.setGauge()
	h.mu.Unlock()

	go h.writePump(c)
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			if h.Log != nil {
				h.Log.WithError(err).Debug("feed: write failed, dropping client")
			}
			h.Remove(c.ws)
			return
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c.ws]; !ok {
		return
	}
	delete(h.clients, c.ws)
	close(c.send)
	_ = c.ws.Close()
	h.setGauge()
}

// Remove unsubscribes ws. It is safe to call more than once.
func (h *Hub) Remove(ws *websocket.Conn) {
	h.mu.Lock()
	if c, ok := h.clients[ws]; ok {
		h.drop(c)
	}
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish sends ev to every subscriber, dropping those that fail to keep up.
func (h *Hub) Publish(ev ReviewEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.BroadcastJSON(ev)
}

// BroadcastJSON queues v for every subscriber without waiting on any
// network write. A subscriber whose queue is full is disconnected.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		if h.Log != nil {
			h.Log.WithError(err).Warn("feed: marshal event")
		}
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		select {
		case c.send <- b:
		default:
			if h.Log != nil {
				h.Log.Warn("feed: slow client dropped")
			}
			h.drop(c)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Clients: len(h.clients)}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		h.drop(c)
	}
}
