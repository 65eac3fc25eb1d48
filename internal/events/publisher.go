package events

import (
	"context"
	"time"

	"spotbook/pkg/kafka"
	"spotbook/pkg/model"
)

const sourceService = "bookings"

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher emits booking lifecycle events to a Kafka topic.
type KafkaPublisher struct {
	producer messagePublisher
}

func NewKafkaPublisher(producer messagePublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, TypeBookingCreated, booking)
}

func (p *KafkaPublisher) BookingUpdated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, TypeBookingUpdated, booking)
}

func (p *KafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, TypeBookingCancelled, booking)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) error {
	event := BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		SpotID:     booking.SpotID,
		UserID:     booking.UserID,
		StartDate:  booking.StartDate,
		EndDate:    booking.EndDate,
		OccurredAt: time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(booking.SpotID).
		WithValue(event).
		WithEventType(eventType).
		WithSource(sourceService).
		Build()

	return p.producer.Publish(ctx, msg)
}

// NoopPublisher discards events. Used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error   { return nil }
func (NoopPublisher) BookingUpdated(ctx context.Context, booking *model.Booking) error   { return nil }
func (NoopPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error { return nil }
