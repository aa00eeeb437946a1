package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Additional-Code/handyman/internal/messaging"
)

const (
	eventOrderCreated  = "order_created"
	eventStatusChanged = "status_changed"
)

// ErrMalformed marks queued payloads that can never be delivered.
var ErrMalformed = errors.New("malformed notification")

// Envelope is the bus representation of an order event.
type Envelope struct {
	Type          string         `json:"type"`
	OrderCreated  *OrderCreated  `json:"order_created,omitempty"`
	StatusChanged *StatusChanged `json:"status_changed,omitempty"`
}

// Queue publishes events to the message bus for a worker to deliver.
type Queue struct {
	client messaging.Client
}

// NewQueue wraps a messaging client.
func NewQueue(client messaging.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) NotifyNewOrder(ctx context.Context, evt OrderCreated) error {
	return q.publish(ctx, evt.OrderID, Envelope{Type: eventOrderCreated, OrderCreated: &evt})
}

func (q *Queue) NotifyStatusChange(ctx context.Context, evt StatusChanged) error {
	return q.publish(ctx, evt.OrderID, Envelope{Type: eventStatusChanged, StatusChanged: &evt})
}

func (q *Queue) publish(ctx context.Context, orderID int64, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.client.Publish(ctx, messaging.Message{
		Key:     []byte(fmt.Sprintf("order-%d", orderID)),
		Value:   payload,
		Headers: map[string]string{messaging.HeaderEventType: env.Type},
	})
}

// Deliver decodes a queued envelope and hands it to n.
func Deliver(ctx context.Context, n Notifier, payload []byte) error {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case env.Type == eventOrderCreated && env.OrderCreated != nil:
		return n.NotifyNewOrder(ctx, *env.OrderCreated)
	case env.Type == eventStatusChanged && env.StatusChanged != nil:
		return n.NotifyStatusChange(ctx, *env.StatusChanged)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
}
