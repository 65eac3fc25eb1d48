package events

import (
	"context"
	"time"

	"spotbook/pkg/model"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingUpdated   = "booking.updated"
	TypeBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload published on every booking lifecycle change.
// Messages are keyed by spot ID so changes to one spot stay ordered.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	SpotID     string    `json:"spot_id"`
	UserID     string    `json:"user_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	BookingUpdated(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
}
