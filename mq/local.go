package mq

import (
	"context"
	"sync"
)

// LocalBus is an in-process Bus. Slow subscribers miss events rather than
// block publishers.
type LocalBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan Event
	buffer      int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subscribers: make(map[string][]chan Event), buffer: 16}
}

func (b *LocalBus) Publish(ctx context.Context, topic string, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.remove(topic, ch)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

// remove takes ch out of the topic and closes it under the lock, so no
// Publish can send on a closed channel.
func (b *LocalBus) remove(topic string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[topic]
	kept := subs[:0]
	for _, c := range subs {
		if c != ch {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(b.subscribers, topic)
	} else {
		b.subscribers[topic] = kept
	}
	close(ch)
}

// Subscribers reports how many live subscriptions topic has.
func (b *LocalBus) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[topic])
}
