package mq

import (
	"context"
	"errors"
	"time"
)

// Event types published on the order lifecycle.
const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	DeliveryUpdated    = "order.delivery_updated"
)

// Event is the payload carried on every bus. It names what changed; readers
// go back to the store for the current state.
type Event struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	TrackingID string    `json:"trackingId,omitempty"`
	UserID     string    `json:"userId"`
	ShopID     string    `json:"shopId,omitempty"`
	Status     string    `json:"status,omitempty"`
	At         time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event) error
}

// Subscriber delivers events for topic until ctx is done or the returned
// cancel func is called; the channel is closed after either.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error)
}

// Bus is a Publisher that can also be subscribed to.
type Bus interface {
	Publisher
	Subscriber
}

func UserTopic(userID string) string { return "orders:user:" + userID }
func ShopTopic(shopID string) string { return "orders:shop:" + shopID }

// Topics lists every topic an order event is fanned out to.
func Topics(ev Event) []string {
	topics := []string{UserTopic(ev.UserID)}
	if ev.ShopID != "" {
		topics = append(topics, ShopTopic(ev.ShopID))
	}
	return topics
}

// PublishAll sends ev to each of its topics.
func PublishAll(ctx context.Context, p Publisher, ev Event) error {
	var errs []error
	for _, t := range Topics(ev) {
		if err := p.Publish(ctx, t, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, string, Event) error { return nil }
