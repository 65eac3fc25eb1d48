package service

import (
	"context"
	"errors"
	"time"

	"spotbook/internal/bookings/authz"
	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/internal/bookings/interval"
	"spotbook/internal/bookings/repository"
	"spotbook/internal/bookings/validator"
	"spotbook/internal/events"
	"spotbook/pkg/config"
	apperrors "spotbook/pkg/errors"
	"spotbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// SpotBookingsResult carries one of two listing shapes. The spot owner sees
// renter identities; everyone else only sees the occupied date ranges.
type SpotBookingsResult struct {
	OwnerView bool
	WithUsers []*model.BookingWithUser
	DatesOnly []*model.BookingDatesOnly
}

type BookingService interface {
	Create(ctx context.Context, actor string, spotID string, dates *model.BookingDates, now time.Time) (*model.Booking, error)
	Update(ctx context.Context, actor string, bookingID string, dates *model.BookingDates, now time.Time) (*model.Booking, error)
	Delete(ctx context.Context, actor string, bookingID string, now time.Time) error
	ListForSpot(ctx context.Context, actor string, spotID string) (*SpotBookingsResult, error)
	ListForUser(ctx context.Context, actor string) ([]*model.BookingWithSpot, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	spotRepo  repository.SpotRepository
	userRepo  repository.UserRepository
	lockRepo  repository.SpotLockRepository
	validator *validator.BookingValidator
	detector  interval.Detector
	policy    authz.Policy
	events    events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	spotRepo repository.SpotRepository,
	userRepo repository.UserRepository,
	lockRepo repository.SpotLockRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		spotRepo:  spotRepo,
		userRepo:  userRepo,
		lockRepo:  lockRepo,
		validator: validator,
		detector:  interval.NewScanDetector(),
		policy:    authz.NewPolicy(),
		events:    publisher,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, actor string, spotID string, dates *model.BookingDates, now time.Time) (*model.Booking, error) {
	if spotID == "" {
		return nil, apperrors.InvalidInput("Spot ID cannot be empty")
	}

	iv, err := s.validator.ValidateDates(dates, now)
	if err != nil {
		s.cfg.Log.Warn("Booking date validation failed", "spot_id", spotID, "error", err)
		return nil, mapDateError(err)
	}

	spot, err := s.findSpot(ctx, spotID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(actor, authz.CreateBooking, nil, spot); err != nil {
		return nil, err
	}

	lock, err := s.acquireSpotLock(ctx, spotID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lock.ID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release spot lock", "lock_id", lock.ID, "error", releaseErr)
		}
	}()

	booking := &model.Booking{
		SpotID:    spotID,
		UserID:    actor,
		StartDate: iv.Start,
		EndDate:   iv.End,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, spotID, iv, ""); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "spot_id", spotID, "error", err)
		return nil, storageError(err)
	}

	s.publish(ctx, s.events.BookingCreated, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"spot_id", spotID,
		"start_date", booking.StartDate,
		"end_date", booking.EndDate,
	)
	return booking, nil
}

func (s *bookingService) Update(ctx context.Context, actor string, bookingID string, dates *model.BookingDates, now time.Time) (*model.Booking, error) {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(actor, authz.UpdateBooking, booking, nil); err != nil {
		return nil, err
	}

	// A booking whose stay is already over is immutable. Checked before the
	// new dates are even parsed so expired bookings always answer the same way.
	if booking.EndDate.Before(now) {
		return nil, apperrors.PastBooking("Cannot modify a past booking")
	}

	iv, err := s.validator.ValidateDates(dates, now)
	if err != nil {
		s.cfg.Log.Warn("Booking date validation failed", "id", bookingID, "error", err)
		return nil, mapDateError(err)
	}

	lock, err := s.acquireSpotLock(ctx, booking.SpotID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lock.ID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release spot lock", "lock_id", lock.ID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, booking.SpotID, iv, booking.ID); err != nil {
			return err
		}
		if err := s.repo.UpdateDates(sessCtx, booking.ID, iv.Start, iv.End); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", bookingID)
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", bookingID, "error", err)
		return nil, storageError(err)
	}

	booking.StartDate = iv.Start
	booking.EndDate = iv.End
	booking.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	s.publish(ctx, s.events.BookingUpdated, booking)

	s.cfg.Log.Info("Booking updated successfully", "id", booking.ID)
	return booking, nil
}

func (s *bookingService) Delete(ctx context.Context, actor string, bookingID string, now time.Time) error {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	spot, err := s.spotRepo.FindByID(ctx, booking.SpotID)
	if err != nil {
		if !errors.Is(err, bookingserrors.ErrSpotNotFound) {
			s.cfg.Log.Error("Failed to load spot", "spot_id", booking.SpotID, "error", err)
			return storageError(apperrors.Internal("Failed to retrieve spot", err))
		}
		// The spot owner clause cannot match without a spot; the renter
		// still may cancel their own booking.
		spot = &model.Spot{}
	}

	if err := s.policy.Authorize(actor, authz.DeleteBooking, booking, spot); err != nil {
		return err
	}

	if !booking.StartDate.After(now) {
		return apperrors.AlreadyStarted("Cannot delete a booking that has already started")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, booking.ID); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", bookingID)
			}
			return apperrors.Internal("Failed to delete booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to delete booking", "id", bookingID, "error", err)
		return storageError(err)
	}

	s.publish(ctx, s.events.BookingCancelled, booking)

	s.cfg.Log.Info("Booking deleted successfully", "id", booking.ID)
	return nil
}

func (s *bookingService) ListForSpot(ctx context.Context, actor string, spotID string) (*SpotBookingsResult, error) {
	spot, err := s.findSpot(ctx, spotID)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(actor, authz.ViewSpotBookings, nil, spot); err != nil {
		return nil, err
	}

	bookings, err := s.repo.FindBySpot(ctx, spotID)
	if err != nil {
		s.cfg.Log.Error("Failed to list spot bookings", "spot_id", spotID, "error", err)
		return nil, storageError(apperrors.Internal("Failed to retrieve bookings", err))
	}

	result := &SpotBookingsResult{OwnerView: s.policy.OwnerView(actor, spot)}

	if !result.OwnerView {
		result.DatesOnly = make([]*model.BookingDatesOnly, 0, len(bookings))
		for _, b := range bookings {
			result.DatesOnly = append(result.DatesOnly, &model.BookingDatesOnly{
				SpotID:    b.SpotID,
				StartDate: b.StartDate,
				EndDate:   b.EndDate,
			})
		}
		return result, nil
	}

	users := map[string]*model.User{}
	result.WithUsers = make([]*model.BookingWithUser, 0, len(bookings))
	for _, b := range bookings {
		user, ok := users[b.UserID]
		if !ok {
			user, err = s.userRepo.FindByID(ctx, b.UserID)
			if err != nil {
				if !errors.Is(err, bookingserrors.ErrUserNotFound) {
					s.cfg.Log.Error("Failed to load renter", "user_id", b.UserID, "error", err)
					return nil, storageError(apperrors.Internal("Failed to retrieve bookings", err))
				}
				user = &model.User{ID: b.UserID}
			}
			users[b.UserID] = user
		}
		result.WithUsers = append(result.WithUsers, &model.BookingWithUser{
			Booking: *b,
			User:    model.UserSummary{ID: user.ID, Username: user.Username},
		})
	}

	return result, nil
}

func (s *bookingService) ListForUser(ctx context.Context, actor string) ([]*model.BookingWithSpot, error) {
	bookings, err := s.repo.FindByUser(ctx, actor)
	if err != nil {
		s.cfg.Log.Error("Failed to list user bookings", "user_id", actor, "error", err)
		return nil, storageError(apperrors.Internal("Failed to retrieve bookings", err))
	}

	spots := map[string]*model.Spot{}
	result := make([]*model.BookingWithSpot, 0, len(bookings))
	for _, b := range bookings {
		spot, ok := spots[b.SpotID]
		if !ok {
			spot, err = s.spotRepo.FindByID(ctx, b.SpotID)
			if err != nil {
				if !errors.Is(err, bookingserrors.ErrSpotNotFound) {
					s.cfg.Log.Error("Failed to load spot", "spot_id", b.SpotID, "error", err)
					return nil, storageError(apperrors.Internal("Failed to retrieve bookings", err))
				}
				spot = &model.Spot{ID: b.SpotID}
			}
			spots[b.SpotID] = spot
		}
		result = append(result, &model.BookingWithSpot{
			Booking: *b,
			Spot:    spot.Summary(),
		})
	}

	return result, nil
}

// --- Helpers ---

func (s *bookingService) findBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, storageError(apperrors.Internal("Failed to retrieve booking", err))
	}

	return booking, nil
}

func (s *bookingService) findSpot(ctx context.Context, id string) (*model.Spot, error) {
	spot, err := s.spotRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrSpotNotFound) {
			return nil, apperrors.NotFoundWithID("Spot", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid spot ID format")
		}
		return nil, storageError(apperrors.Internal("Failed to retrieve spot", err))
	}

	return spot, nil
}

// verifyNoConflict runs inside the transaction so the read and the write are
// a single atomic step under the spot lock.
func (s *bookingService) verifyNoConflict(ctx context.Context, spotID string, iv interval.Interval, excludeID string) error {
	existing, err := s.repo.FindBySpot(ctx, spotID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	entries := make([]interval.Entry, 0, len(existing))
	for _, b := range existing {
		entries = append(entries, interval.Entry{
			ID:    b.ID,
			Range: interval.Interval{Start: b.StartDate, End: b.EndDate},
		})
	}

	if conflicting := s.detector.Conflicts(iv, entries, excludeID); len(conflicting) > 0 {
		return apperrors.Conflict("The specified dates conflict with an existing booking").
			WithDetails(map[string]any{
				"startDate": "Start date conflicts with an existing booking",
				"endDate":   "End date conflicts with an existing booking",
			})
	}
	return nil
}

func (s *bookingService) acquireSpotLock(ctx context.Context, spotID string) (*model.SpotLock, error) {
	lock, err := s.lockRepo.Acquire(ctx, spotID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return nil, apperrors.Conflict("This spot is currently being booked by another request. Please try again.")
		}
		return nil, storageError(apperrors.Internal("Failed to acquire spot lock", err))
	}
	return lock, nil
}

// publish emits a lifecycle event after the write committed. Event delivery
// is best effort; a broker outage never fails the booking operation.
func (s *bookingService) publish(ctx context.Context, emit func(context.Context, *model.Booking) error, booking *model.Booking) {
	if err := emit(ctx, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "id", booking.ID, "error", err)
	}
}

// storageError surfaces storage timeouts as a retryable 503 instead of a
// generic internal error.
func storageError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Unavailable("bookings storage")
	}
	return err
}

// mapDateError converts validation failures to transport errors. Unparseable
// input is a malformed request; well-formed dates that break a temporal rule
// are a semantic validation failure.
func mapDateError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for field, message := range fieldErrs.Fields() {
			details[field] = message
		}
		return apperrors.InvalidInput("Invalid booking dates").WithDetails(details)
	}

	var ve interval.ValidationError
	if errors.As(err, &ve) {
		details := map[string]any{ve.Field: ve.Message}
		switch ve {
		case interval.ErrInvalidStartDate, interval.ErrInvalidEndDate:
			return apperrors.InvalidInput(ve.Message).WithDetails(details)
		default:
			return apperrors.Validation(ve.Message, details)
		}
	}

	return apperrors.InvalidInput("Invalid booking dates")
}
