package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/carrental/car-rental-api/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingEventType names a committed order transition
type BookingEventType string

const (
	EventBookingCreated   BookingEventType = "booking.created"
	EventBookingPaid      BookingEventType = "booking.paid"
	EventBookingCancelled BookingEventType = "booking.cancelled"
	EventBookingExpired   BookingEventType = "booking.expired"
	EventCarReturned      BookingEventType = "booking.returned"
	EventFinePaid         BookingEventType = "booking.fine_paid"
)

// BookingEvent describes a committed order transition. Order and User are
// available to in-process hooks but are not serialized.
type BookingEvent struct {
	ID            string           `json:"id"`
	Type          BookingEventType `json:"type"`
	OrderID       uint             `json:"order_id"`
	UserID        uint             `json:"user_id"`
	CarID         uint             `json:"car_id"`
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	Price         string           `json:"price"`
	FineAmount    string           `json:"fine_amount"`
	FineGenerated bool             `json:"fine_generated"`
	Refunded      bool             `json:"refunded"`
	OccurredAt    time.Time        `json:"occurred_at"`

	Order *models.Order `json:"-"`
	User  *models.User  `json:"-"`
}

// NewBookingEvent snapshots order for an event of type t
func NewBookingEvent(t BookingEventType, order *models.Order, user *models.User, at time.Time) BookingEvent {
	return BookingEvent{
		ID:            uuid.NewString(),
		Type:          t,
		OrderID:       order.ID,
		UserID:        order.UserID,
		CarID:         order.CarID,
		StartDate:     order.StartDate.String(),
		EndDate:       order.EndDate.String(),
		Price:         order.Price.StringFixed(moneyScale),
		FineAmount:    order.FineAmount.StringFixed(moneyScale),
		FineGenerated: order.FineGenerated,
		Refunded:      order.Refunded,
		OccurredAt:    at.UTC(),
		Order:         order,
		User:          user,
	}
}

// EventPublisher ships booking events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// KafkaEventPublisher writes booking events to a Kafka topic keyed by order id,
// so every event for one order lands on the same partition
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher creates a publisher for brokers and topic
func NewKafkaEventPublisher(brokers []string, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: PublishTimeout,
		},
	}
}

// Publish writes one event
func (p *KafkaEventPublisher) Publish(ctx context.Context, event BookingEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode booking event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.OrderID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
		Time: event.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish booking event: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes broker connections
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// LogEventPublisher logs events instead of sending them to a broker
type LogEventPublisher struct {
	logger *zap.Logger
}

// NewLogEventPublisher creates a publisher that only logs
func NewLogEventPublisher(logger *zap.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) Publish(ctx context.Context, event BookingEvent) error {
	p.logger.Info("booking event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.Uint("order_id", event.OrderID))
	return nil
}

func (p *LogEventPublisher) Close() error {
	return nil
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mu     sync.RWMutex
	events []BookingEvent
	Err    error
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (p *MockEventPublisher) Publish(ctx context.Context, event BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *MockEventPublisher) Close() error {
	return nil
}

// Types returns the published event types in order
func (p *MockEventPublisher) Types() []BookingEventType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]BookingEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
