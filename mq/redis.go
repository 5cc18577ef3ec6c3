package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus carries events over Redis pub/sub so every API instance sees
// every order change.
type RedisBus struct {
	conn   *redis.Client
	logger *zap.Logger
}

func NewRedisBus(conn *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{conn: conn, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.conn.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error) {
	sub := b.conn.Subscribe(ctx, topic)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	out := make(chan Event, 16)
	ctx, stop := context.WithCancel(ctx)
	var once sync.Once
	cancel := func() { once.Do(stop) }

	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Warn("bad event payload", zap.String("topic", topic), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()
	return out, cancel, nil
}
