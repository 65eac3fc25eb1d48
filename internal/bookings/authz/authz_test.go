package authz

import (
	"testing"

	apperrors "spotbook/pkg/errors"
	"spotbook/pkg/model"
)

func TestAuthorize(t *testing.T) {
	spot := &model.Spot{ID: "spot1", OwnerID: "owner"}
	booking := &model.Booking{ID: "b1", SpotID: "spot1", UserID: "renter"}

	tests := []struct {
		name     string
		actor    string
		action   Action
		booking  *model.Booking
		spot     *model.Spot
		wantCode string
	}{
		{
			name:   "renter creates booking",
			actor:  "renter",
			action: CreateBooking,
			spot:   spot,
		},
		{
			name:     "owner cannot book own spot",
			actor:    "owner",
			action:   CreateBooking,
			spot:     spot,
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:   "anyone can view spot bookings",
			actor:  "stranger",
			action: ViewSpotBookings,
			spot:   spot,
		},
		{
			name:    "renter updates own booking",
			actor:   "renter",
			action:  UpdateBooking,
			booking: booking,
		},
		{
			name:     "owner cannot update renter's booking",
			actor:    "owner",
			action:   UpdateBooking,
			booking:  booking,
			wantCode: apperrors.CodeForbidden,
		},
		{
			name:     "update of missing booking",
			actor:    "renter",
			action:   UpdateBooking,
			wantCode: apperrors.CodeNotFound,
		},
		{
			name:    "renter deletes own booking",
			actor:   "renter",
			action:  DeleteBooking,
			booking: booking,
			spot:    spot,
		},
		{
			name:    "spot owner deletes renter's booking",
			actor:   "owner",
			action:  DeleteBooking,
			booking: booking,
			spot:    spot,
		},
		{
			name:     "stranger cannot delete booking",
			actor:    "stranger",
			action:   DeleteBooking,
			booking:  booking,
			spot:     spot,
			wantCode: apperrors.CodeForbidden,
		},
	}

	policy := NewPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Authorize(tt.actor, tt.action, tt.booking, tt.spot)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error with code %s, got nil", tt.wantCode)
			}
			appErr := apperrors.AsAppError(err)
			if appErr.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, appErr.Code)
			}
		})
	}
}

func TestOwnerView(t *testing.T) {
	policy := NewPolicy()
	spot := &model.Spot{ID: "spot1", OwnerID: "owner"}

	if !policy.OwnerView("owner", spot) {
		t.Error("expected owner to get the owner view")
	}
	if policy.OwnerView("renter", spot) {
		t.Error("expected non-owner to get the restricted view")
	}
}

func TestActionString(t *testing.T) {
	if CreateBooking.String() != "create_booking" {
		t.Errorf("unexpected name: %s", CreateBooking.String())
	}
	if Action(99).String() != "unknown" {
		t.Errorf("unexpected name for out-of-range action: %s", Action(99).String())
	}
}
