package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, wrapped.Code)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	unwrapped := errors.Unwrap(appErr)
	if unwrapped != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Booking"), CodeNotFound, http.StatusNotFound},
		{"forbidden", Forbidden("You cannot book your own spot"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("dates conflict"), CodeConflict, http.StatusConflict},
		{"past booking", PastBooking("Cannot modify a past booking"), CodePastBooking, http.StatusForbidden},
		{"already started", AlreadyStarted("Cannot delete a booking that has already started"), CodeAlreadyStarted, http.StatusForbidden},
		{"invalid input", InvalidInput("bad limit"), CodeInvalidInput, http.StatusBadRequest},
		{"validation", Validation("invalid dates", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"unavailable", Unavailable("booking store"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.appErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.appErr.Code)
			}
			if tt.appErr.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.appErr.StatusCode())
			}
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Booking", "67f1c9a2e13b5a7d9c0441aa")

	if err.Details["id"] != "67f1c9a2e13b5a7d9c0441aa" {
		t.Errorf("expected id detail, got %v", err.Details["id"])
	}
	if err.Message != "Booking not found" {
		t.Errorf("expected message 'Booking not found', got %s", err.Message)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Conflict("overlap")
	if got := AsAppError(appErr); got != appErr {
		t.Errorf("AsAppError should pass AppError through unchanged")
	}

	plain := errors.New("boom")
	wrapped := AsAppError(plain)
	if wrapped.Code != CodeInternal {
		t.Errorf("expected plain errors to become %s, got %s", CodeInternal, wrapped.Code)
	}
	if errors.Unwrap(wrapped) != plain {
		t.Errorf("expected original error to be preserved")
	}
}
