package interval

import (
	"fmt"
	"time"
)

// Layouts accepted for booking date bounds. Plain calendar dates are the
// common case; full RFC3339 instants are accepted for clients that send them.
var layouts = []string{"2006-01-02", time.RFC3339}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	ErrInvalidStartDate = ValidationError{Field: "startDate", Message: "Start date must be a valid date"}
	ErrInvalidEndDate   = ValidationError{Field: "endDate", Message: "End date must be a valid date"}
	ErrStartInPast      = ValidationError{Field: "startDate", Message: "Start date cannot be in the past"}
	ErrEndNotAfterStart = ValidationError{Field: "endDate", Message: "End date must be after start date"}
)

// Interval is a date range with inclusive bounds.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Parse builds an Interval from two ISO-8601 strings. It reports the first
// bound that fails to parse; well-formedness of the range itself is checked
// separately by Validate.
func Parse(start, end string) (Interval, error) {
	s, err := parseDate(start)
	if err != nil {
		return Interval{}, ErrInvalidStartDate
	}
	e, err := parseDate(end)
	if err != nil {
		return Interval{}, ErrInvalidEndDate
	}
	return Interval{Start: s, End: e}, nil
}

func parseDate(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Validate checks the temporal invariants against an explicit now so the
// result is deterministic. Zero bounds are treated as unparsed dates.
func (iv Interval) Validate(now time.Time) error {
	if iv.Start.IsZero() {
		return ErrInvalidStartDate
	}
	if iv.End.IsZero() {
		return ErrInvalidEndDate
	}
	if iv.Start.Before(now) {
		return ErrStartInPast
	}
	if !iv.End.After(iv.Start) {
		return ErrEndNotAfterStart
	}
	return nil
}
