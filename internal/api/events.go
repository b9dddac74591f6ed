package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const heartbeatInterval = 15 * time.Second

// typeFilter reads ?types=optimization.,cache.hit into prefixes.
func typeFilter(r *http.Request) []string {
	var out []string
	for _, p := range strings.Split(r.URL.Query().Get("types"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EventsStreamHandler handles GET /v1/events/stream (Server-Sent Events).
func (s *Server) EventsStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	filter := typeFilter(r)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(eventsTopic)
	defer s.Broker.Unsubscribe(eventsTopic, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"ts\":\"%s\"}\n\n", time.Now().UTC().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if !evt.Matches(filter) {
				continue
			}
			b, _ := json.Marshal(evt)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	Types []string `json:"types"`
}

// EventsWSHandler handles /v1/events/ws. Clients send
// {"type":"subscribe","id":"1","payload":{"types":["cache."]}} and receive
// "next" messages until they send "complete" for the id or disconnect.
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	subs := map[string]chan SSEEvent{}
	defer func() {
		for id, ch := range subs {
			s.Broker.Unsubscribe(eventsTopic, ch)
			delete(subs, id)
		}
	}()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				wmu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				wmu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			if msg.ID == "" {
				_ = write(wsMessage{Type: "error", Payload: []byte(`{"message":"id required"}`)})
				continue
			}
			if _, dup := subs[msg.ID]; dup {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"duplicate id"}`)})
				continue
			}
			var pl subscribePayload
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &pl); err != nil {
					_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"invalid payload"}`)})
					continue
				}
			}
			ch := s.Broker.Subscribe(eventsTopic)
			subs[msg.ID] = ch
			go func(id string, c chan SSEEvent, filter []string) {
				for evt := range c {
					if !evt.Matches(filter) {
						continue
					}
					payload, _ := json.Marshal(evt)
					if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil {
						return
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch, pl.Types)
		case "complete":
			if ch, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(eventsTopic, ch)
				delete(subs, msg.ID)
			}
		}
	}
}
