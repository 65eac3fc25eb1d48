package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"spotbook/internal/bookings/interval"
	"spotbook/pkg/logger"
	"spotbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields returns the errors as a field-to-message map for error responses.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: validator.New(),
		logger:   log,
	}
}

// ValidateDates checks the payload structurally, parses both bounds and
// verifies the temporal invariants against the supplied now.
func (v *BookingValidator) ValidateDates(dates *model.BookingDates, now time.Time) (interval.Interval, error) {
	if err := v.validate.Struct(dates); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return interval.Interval{}, v.translateValidationErrors(validationErrs)
		}
		return interval.Interval{}, err
	}

	iv, err := interval.Parse(dates.StartDate, dates.EndDate)
	if err != nil {
		return interval.Interval{}, err
	}

	if err := iv.Validate(now); err != nil {
		return interval.Interval{}, err
	}

	return iv, nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", jsonField(err.Field()))
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", jsonField(err.Field()), jsonField(err.Param()))
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   jsonField(err.Field()),
			Message: message,
		})
	}

	return validationErrors
}

// jsonField maps struct field names to their wire names.
func jsonField(name string) string {
	switch name {
	case "StartDate":
		return "startDate"
	case "EndDate":
		return "endDate"
	}
	return name
}
