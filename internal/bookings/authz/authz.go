package authz

import (
	apperrors "spotbook/pkg/errors"
	"spotbook/pkg/model"
)

// Action enumerates the booking operations gated by the policy.
type Action int

const (
	CreateBooking Action = iota
	ViewSpotBookings
	UpdateBooking
	DeleteBooking
)

func (a Action) String() string {
	switch a {
	case CreateBooking:
		return "create_booking"
	case ViewSpotBookings:
		return "view_spot_bookings"
	case UpdateBooking:
		return "update_booking"
	case DeleteBooking:
		return "delete_booking"
	}
	return "unknown"
}

// Policy holds the ownership rules for bookings. It performs no I/O; callers
// load the booking and spot first and run the policy before any write.
type Policy struct{}

func NewPolicy() Policy {
	return Policy{}
}

// Authorize decides whether the actor may perform the action. The booking
// argument is nil for CreateBooking and ViewSpotBookings. Failures come back
// as AppError so handlers map them directly.
func (Policy) Authorize(actor string, action Action, booking *model.Booking, spot *model.Spot) error {
	switch action {
	case CreateBooking:
		// An owner cannot book their own spot.
		if actor == spot.OwnerID {
			return apperrors.Forbidden("You cannot book your own spot")
		}
		return nil

	case ViewSpotBookings:
		// Any authenticated actor may view; OwnerView decides the shape.
		return nil

	case UpdateBooking:
		if booking == nil {
			return apperrors.NotFound("Booking")
		}
		if actor != booking.UserID {
			return apperrors.Forbidden("You do not own this booking")
		}
		return nil

	case DeleteBooking:
		if booking == nil {
			return apperrors.NotFound("Booking")
		}
		// Either the renter or the spot owner may cancel.
		if actor != booking.UserID && actor != spot.OwnerID {
			return apperrors.Forbidden("You do not have permission to delete this booking")
		}
		return nil
	}

	return apperrors.Forbidden("Unknown action")
}

// OwnerView reports whether the actor gets the elevated listing shape for a
// spot. Non-owners only ever see spot ID and dates.
func (Policy) OwnerView(actor string, spot *model.Spot) bool {
	return actor == spot.OwnerID
}
