package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const keepaliveInterval = 30 * time.Second

// Event is one server-sent event: `id: ...\nevent: ...\ndata: ...\n\n`
// (spec §6).
type Event struct {
	ID   string
	Name string
	Data interface{}
}

// Broker fans out events to every connected SSE client.
type Broker struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	nextID  int64
}

func NewBroker() *Broker {
	return &Broker{clients: make(map[chan Event]struct{})}
}

// Publish sends an event to every currently connected client, assigning
// a monotonically increasing event ID.
func (b *Broker) Publish(name string, data interface{}) {
	b.mu.Lock()
	b.nextID++
	ev := Event{ID: fmt.Sprintf("%d", b.nextID), Name: name, Data: data}
	for ch := range b.clients {
		select {
		case ch <- ev:
		default: // slow client: drop rather than block the broadcaster
		}
	}
	b.mu.Unlock()
}

// ServeHTTP upgrades the connection to an SSE stream and relays every
// published event, with a 30s keepalive comment when idle.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	b.register(ch)
	defer b.unregister(ch)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev := <-ch:
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev Event) {
	buf, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Name, buf)
}

func (b *Broker) register(ch chan Event) {
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
}

func (b *Broker) unregister(ch chan Event) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}
