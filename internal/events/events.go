// Package events publishes the ledger's outbound events for notification
// and audit consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Event types on the wire.
const (
	TypeOrderSettled    = "OrderSettled"
	TypeDividendClaimed = "DividendClaimed"
	TypeInvoicePaid     = "InvoicePaid"
)

// OrderSettled is emitted once per settled order.
type OrderSettled struct {
	OrderID string `json:"orderId"`
	FeeUsd6 int64  `json:"feeUsd6"`
	NetUsd6 int64  `json:"netUsd6"`
}

// DividendClaimed is emitted once per successful dividend payout.
type DividendClaimed struct {
	InvestorID   string `json:"investorId"`
	RestaurantID string `json:"restaurantId"`
	AmountUsd6   int64  `json:"amountUsd6"`
}

// InvoicePaid is emitted once per repaid invoice.
type InvoicePaid struct {
	InvoiceID string `json:"invoiceId"`
}

// envelope is the wire format: a type tag around the payload.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher delivers events to external collaborators. Publishing happens
// after the state change has committed; a delivery failure never rolls the
// operation back.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// KafkaPublisher writes events to a Kafka topic, keyed by entity ID so
// events for one entity stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher wraps an existing kafka writer.
func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish marshals the payload and writes one message.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	value, err := json.Marshal(envelope{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs events instead of delivering them. Used when no
// brokers are configured and in tests.
type LogPublisher struct{}

// Publish logs the event at debug level.
func (LogPublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	slog.Debug("event", "type", eventType, "key", key, "payload", payload)
	return nil
}
