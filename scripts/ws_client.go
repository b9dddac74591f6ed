// Package main runs a demo WebSocket client for cache and optimization events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	// subscribe to cache and optimization events
	pl, _ := json.Marshal(map[string]any{"types": []string{"cache.", "optimization."}})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger events: an exact hit and a resolved miss
	time.Sleep(500 * time.Millisecond)
	lookups := []string{
		`{"vehicle":"e4","priorities":{"speed":9,"range":3,"acceleration":7,"efficiency":2,"hillClimbing":4,"regen":3},"conditions":{"temperature":75,"grade":0,"load":200}}`,
		`{"vehicle":"eL","priorities":{"range":9},"conditions":{"temperature":45,"grade":6,"load":600},"resolve":true}`,
	}
	for _, body := range lookups {
		req, _ := http.NewRequest(http.MethodPost, base+"/v1/cache/lookup", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("lookup -> %s", resp.Status)
		_ = resp.Body.Close()
	}

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
