package model

import (
	"time"
)

type Booking struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SpotID    string    `json:"spotId" bson:"spot_id" validate:"required"`
	UserID    string    `json:"userId" bson:"user_id" validate:"required"`
	StartDate time.Time `json:"startDate" bson:"start_date" validate:"required"`
	EndDate   time.Time `json:"endDate" bson:"end_date" validate:"required,gtfield=StartDate"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at" validate:"omitempty"`
}

// BookingDates is the request payload for create and update. Both bounds
// arrive as ISO-8601 strings and are parsed by the interval package.
type BookingDates struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

// BookingWithSpot is the shape returned by GET /api/bookings/current.
type BookingWithSpot struct {
	Booking `bson:",inline"`
	Spot    SpotSummary `json:"Spot" bson:"spot"`
}

// BookingWithUser is the owner view of a spot's bookings.
type BookingWithUser struct {
	Booking `bson:",inline"`
	User    UserSummary `json:"User" bson:"user"`
}

// BookingDatesOnly is the restricted view non-owners get when listing a
// spot's bookings. No user identity is exposed.
type BookingDatesOnly struct {
	SpotID    string    `json:"spotId" bson:"spot_id"`
	StartDate time.Time `json:"startDate" bson:"start_date"`
	EndDate   time.Time `json:"endDate" bson:"end_date"`
}
