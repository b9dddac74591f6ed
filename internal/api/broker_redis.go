package api

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

type EventBroker interface {
    Subscribe(topic string) chan SSEEvent
    Unsubscribe(topic string, ch chan SSEEvent)
    Publish(topic string, evt SSEEvent)
    Close() error
}

// RedisBroker implements EventBroker over Redis Pub/Sub so that every API
// replica sees events published by any other.
type RedisBroker struct {
    rdb  *redis.Client
    log  logrus.FieldLogger
    mu   sync.Mutex
    subs map[chan SSEEvent]*redis.PubSub
}

func NewRedisBroker(url string, log logrus.FieldLogger) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    rdb := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("ping redis: %w", err)
    }
    return &RedisBroker{rdb: rdb, log: log, subs: map[chan SSEEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(topic string) chan SSEEvent {
    ch := make(chan SSEEvent, 16)
    ctx := context.Background()
    ps := b.rdb.Subscribe(ctx, b.chanName(topic))
    // wait for the subscription confirmation
    if _, err := ps.Receive(ctx); err != nil {
        b.log.WithError(err).Warn("redis subscribe failed")
    }
    b.mu.Lock()
    b.subs[ch] = ps
    b.mu.Unlock()
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt SSEEvent
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
                select { case ch <- evt: default: }
            }
        }
    }()
    return ch
}

// Unsubscribe closes the Pub/Sub connection; ch is closed once its reader
// goroutine drains.
func (b *RedisBroker) Unsubscribe(topic string, ch chan SSEEvent) {
    b.mu.Lock()
    ps, ok := b.subs[ch]
    delete(b.subs, ch)
    b.mu.Unlock()
    if ok { _ = ps.Close() }
}

func (b *RedisBroker) Publish(topic string, evt SSEEvent) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, _ := json.Marshal(evt)
    if err := b.rdb.Publish(ctx, b.chanName(topic), data).Err(); err != nil {
        b.log.WithError(err).WithField("type", evt.Type).Warn("redis publish failed")
    }
}

func (b *RedisBroker) Close() error { return b.rdb.Close() }

func (b *RedisBroker) chanName(topic string) string { return "ctrltune:" + topic }
