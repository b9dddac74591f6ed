package api

import (
    "strings"
    "sync"
    "time"
)

// Event types published by the service.
const (
    EventOptimizationCompleted = "optimization.completed"
    EventCacheHit              = "cache.hit"
    EventCacheMiss             = "cache.miss"
    EventCacheInserted         = "cache.inserted"
    EventCachePruned           = "cache.pruned"
)

// eventsTopic is the single fan-out topic; consumers filter by type prefix.
const eventsTopic = "events"

type SSEEvent struct {
    Type string         `json:"type"`
    TS   time.Time      `json:"ts"`
    Data map[string]any `json:"data"`
}

// Matches reports whether the event type starts with any of the prefixes.
// No prefixes matches everything.
func (e SSEEvent) Matches(prefixes []string) bool {
    if len(prefixes) == 0 { return true }
    for _, p := range prefixes {
        if strings.HasPrefix(e.Type, p) { return true }
    }
    return false
}

type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan SSEEvent]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe(topic string) chan SSEEvent {
    ch := make(chan SSEEvent, 8)
    b.mu.Lock()
    if b.subs[topic] == nil { b.subs[topic] = map[chan SSEEvent]struct{}{} }
    b.subs[topic][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan SSEEvent) {
    b.mu.Lock()
    defer b.mu.Unlock()
    m := b.subs[topic]
    if _, ok := m[ch]; !ok { return }
    delete(m, ch)
    if len(m) == 0 { delete(b.subs, topic) }
    close(ch)
}

// Publish never blocks; slow subscribers drop events.
func (b *Broker) Publish(topic string, evt SSEEvent) {
    b.mu.Lock()
    m := b.subs[topic]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}

func (b *Broker) Close() error { return nil }
