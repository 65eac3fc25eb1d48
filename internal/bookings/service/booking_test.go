package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	bookingserrors "spotbook/internal/bookings/errors"
	"spotbook/internal/bookings/validator"
	"spotbook/pkg/config"
	mongotx "spotbook/pkg/db/mongo"
	apperrors "spotbook/pkg/errors"
	"spotbook/pkg/logger"
	"spotbook/pkg/model"
)

// ────────────────────────────────────────────────
// Mock repositories
// ────────────────────────────────────────────────

type mockBookingRepository struct {
	mu       sync.Mutex
	bookings []*model.Booking
	nextID   int

	findByIDFunc func(ctx context.Context, id string) (*model.Booking, error)
	createFunc   func(ctx context.Context, booking *model.Booking) error
	executeFunc  func(ctx context.Context, fn mongotx.TransactionFunc) error
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	booking.ID = fmt.Sprintf("booking-%d", m.nextID)
	booking.CreatedAt = time.Now().UTC()
	stored := *booking
	m.bookings = append(m.bookings, &stored)
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			found := *b
			return &found, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindBySpot(ctx context.Context, spotID string) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Booking
	for _, b := range m.bookings {
		if b.SpotID == spotID {
			found := *b
			result = append(result, &found)
		}
	}
	return result, nil
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*model.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			found := *b
			result = append(result, &found)
		}
	}
	return result, nil
}

func (m *mockBookingRepository) UpdateDates(ctx context.Context, id string, startDate, endDate time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			b.StartDate = startDate
			b.EndDate = endDate
			b.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bookings {
		if b.ID == id {
			m.bookings = append(m.bookings[:i], m.bookings[i+1:]...)
			return nil
		}
	}
	return bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, fn)
	}
	return fn(nil)
}

func (m *mockBookingRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

func (m *mockBookingRepository) add(b *model.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, b)
}

type mockSpotRepository struct {
	spots map[string]*model.Spot

	findByIDFunc func(ctx context.Context, id string) (*model.Spot, error)
}

func (m *mockSpotRepository) FindByID(ctx context.Context, id string) (*model.Spot, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	if spot, ok := m.spots[id]; ok {
		return spot, nil
	}
	return nil, bookingserrors.ErrSpotNotFound
}

type mockUserRepository struct {
	users map[string]*model.User
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, bookingserrors.ErrUserNotFound
}

type mockSpotLockRepository struct {
	mu    sync.Mutex
	held  map[string]bool
	fails bool
}

func (m *mockSpotLockRepository) Acquire(ctx context.Context, spotID string) (*model.SpotLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return nil, bookingserrors.ErrLockHeld
	}
	if m.held == nil {
		m.held = map[string]bool{}
	}
	if m.held[spotID] {
		return nil, bookingserrors.ErrLockHeld
	}
	m.held[spotID] = true
	return &model.SpotLock{ID: "spot_lock_" + spotID}, nil
}

func (m *mockSpotLockRepository) Release(ctx context.Context, lockID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for spotID := range m.held {
		if "spot_lock_"+spotID == lockID {
			delete(m.held, spotID)
		}
	}
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	created   int
	updated   int
	cancelled int
}

func (p *recordingPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created++
	return nil
}

func (p *recordingPublisher) BookingUpdated(ctx context.Context, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated++
	return nil
}

func (p *recordingPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled++
	return nil
}

// ────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────

type fixture struct {
	service   BookingService
	repo      *mockBookingRepository
	spots     *mockSpotRepository
	users     *mockUserRepository
	locks     *mockSpotLockRepository
	publisher *recordingPublisher
}

func newFixture() *fixture {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	f := &fixture{
		repo: &mockBookingRepository{},
		spots: &mockSpotRepository{spots: map[string]*model.Spot{
			"spot1": {ID: "spot1", OwnerID: "owner", Name: "Lakeside Cabin", Address: "1 Shore Rd"},
		}},
		users: &mockUserRepository{users: map[string]*model.User{
			"renter": {ID: "renter", Username: "renter_joe"},
			"owner":  {ID: "owner", Username: "owner_sam"},
		}},
		locks:     &mockSpotLockRepository{},
		publisher: &recordingPublisher{},
	}

	f.service = NewBookingService(
		f.repo,
		f.spots,
		f.users,
		f.locks,
		validator.NewBookingValidator(log),
		f.publisher,
		cfg,
	)
	return f
}

var testNow = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func dates(start, end string) *model.BookingDates {
	return &model.BookingDates{StartDate: start, EndDate: end}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate(t *testing.T) {
	f := newFixture()

	booking, err := f.service.Create(context.Background(), "renter", "spot1", dates("2030-02-01", "2030-02-10"), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.ID == "" {
		t.Error("expected booking to be assigned an ID")
	}
	if booking.UserID != "renter" || booking.SpotID != "spot1" {
		t.Errorf("unexpected booking: %+v", booking)
	}
	if f.repo.count() != 1 {
		t.Errorf("expected 1 stored booking, got %d", f.repo.count())
	}
	if f.publisher.created != 1 {
		t.Errorf("expected 1 created event, got %d", f.publisher.created)
	}
	if len(f.locks.held) != 0 {
		t.Error("expected lock to be released")
	}
}

func TestCreateOwnSpotForbidden(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "owner", "spot1", dates("2030-02-01", "2030-02-10"), testNow)
	assertCode(t, err, apperrors.CodeForbidden)
	if f.repo.count() != 0 {
		t.Error("rejected create must not touch the store")
	}
}

func TestCreateSpotNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "renter", "missing", dates("2030-02-01", "2030-02-10"), testNow)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCreateDateValidation(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name     string
		dates    *model.BookingDates
		wantCode string
	}{
		{"unparseable start", dates("sometime", "2030-02-10"), apperrors.CodeInvalidInput},
		{"missing end", dates("2030-02-01", ""), apperrors.CodeInvalidInput},
		{"start in past", dates("2029-11-01", "2030-02-10"), apperrors.CodeValidation},
		{"end not after start", dates("2030-02-10", "2030-02-10"), apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Create(context.Background(), "renter", "spot1", tt.dates, testNow)
			assertCode(t, err, tt.wantCode)
		})
	}

	if f.repo.count() != 0 {
		t.Error("rejected creates must not touch the store")
	}
}

func TestCreateConflict(t *testing.T) {
	f := newFixture()
	f.repo.add(&model.Booking{
		ID:        "existing",
		SpotID:    "spot1",
		UserID:    "other",
		StartDate: time.Date(2030, 2, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2030, 2, 12, 0, 0, 0, 0, time.UTC),
	})

	tests := []struct {
		name  string
		dates *model.BookingDates
	}{
		{"overlapping range", dates("2030-02-01", "2030-02-10")},
		{"back to back, starts on existing end day", dates("2030-02-12", "2030-02-20")},
		{"back to back, ends on existing start day", dates("2030-02-01", "2030-02-05")},
		{"enveloping range", dates("2030-02-01", "2030-02-20")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Create(context.Background(), "renter", "spot1", tt.dates, testNow)
			assertCode(t, err, apperrors.CodeConflict)
		})
	}

	if f.repo.count() != 1 {
		t.Errorf("expected only the pre-existing booking, got %d", f.repo.count())
	}
	if f.publisher.created != 0 {
		t.Error("rejected creates must not publish events")
	}
}

func TestCreateAdjacentWithGapSucceeds(t *testing.T) {
	f := newFixture()
	f.repo.add(&model.Booking{
		ID:        "existing",
		SpotID:    "spot1",
		UserID:    "other",
		StartDate: time.Date(2030, 2, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2030, 2, 12, 0, 0, 0, 0, time.UTC),
	})

	_, err := f.service.Create(context.Background(), "renter", "spot1", dates("2030-02-13", "2030-02-20"), testNow)
	if err != nil {
		t.Fatalf("a one-day gap must not conflict: %v", err)
	}
}

func TestCreateLockHeld(t *testing.T) {
	f := newFixture()
	f.locks.fails = true

	_, err := f.service.Create(context.Background(), "renter", "spot1", dates("2030-02-01", "2030-02-10"), testNow)
	assertCode(t, err, apperrors.CodeConflict)
	if f.repo.count() != 0 {
		t.Error("lock contention must not create a booking")
	}
}

func TestCreateStorageTimeout(t *testing.T) {
	f := newFixture()
	f.repo.executeFunc = func(ctx context.Context, fn mongotx.TransactionFunc) error {
		return context.DeadlineExceeded
	}

	_, err := f.service.Create(context.Background(), "renter", "spot1", dates("2030-02-01", "2030-02-10"), testNow)
	assertCode(t, err, apperrors.CodeUnavailable)
}

func TestCreateConcurrentSameDates(t *testing.T) {
	f := newFixture()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Create(context.Background(), "renter", "spot1", dates("2030-02-01", "2030-02-10"), testNow)
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if apperrors.AsAppError(err).Code == apperrors.CodeConflict {
			conflicted++
		}
	}

	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("expected exactly one success and one conflict, got %d successes, %d conflicts (%v)", succeeded, conflicted, errs)
	}
	if f.repo.count() != 1 {
		t.Fatalf("expected exactly 1 stored booking, got %d", f.repo.count())
	}
}

// ────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────

func seedBooking(f *fixture, id string, start, end time.Time) {
	f.repo.add(&model.Booking{
		ID:        id,
		SpotID:    "spot1",
		UserID:    "renter",
		StartDate: start,
		EndDate:   end,
	})
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	booking, err := f.service.Update(context.Background(), "renter", "b1", dates("2030-03-01", "2030-03-10"), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !booking.StartDate.Equal(time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected new start date, got %v", booking.StartDate)
	}
	if f.publisher.updated != 1 {
		t.Errorf("expected 1 updated event, got %d", f.publisher.updated)
	}
}

func TestUpdateToSameDates(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	// The booking's own dates must be excluded from conflict detection.
	_, err := f.service.Update(context.Background(), "renter", "b1", dates("2030-02-01", "2030-02-10"), testNow)
	if err != nil {
		t.Fatalf("updating a booking to its own dates must succeed: %v", err)
	}
}

func TestUpdateConflictWithOtherBooking(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))
	f.repo.add(&model.Booking{
		ID:        "b2",
		SpotID:    "spot1",
		UserID:    "other",
		StartDate: time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	_, err := f.service.Update(context.Background(), "renter", "b1", dates("2030-03-05", "2030-03-15"), testNow)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestUpdateNotRenterForbidden(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	// Not even the spot owner may edit a renter's booking.
	_, err := f.service.Update(context.Background(), "owner", "b1", dates("2030-03-01", "2030-03-10"), testNow)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestUpdatePastBooking(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2029, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2029, 11, 10, 0, 0, 0, 0, time.UTC))

	// The guard fires before the new dates are validated; even garbage input
	// gets the past-booking answer.
	_, err := f.service.Update(context.Background(), "renter", "b1", dates("garbage", "also-garbage"), testNow)
	assertCode(t, err, apperrors.CodePastBooking)
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.Update(context.Background(), "renter", "missing", dates("2030-03-01", "2030-03-10"), testNow)
	assertCode(t, err, apperrors.CodeNotFound)
}

// ────────────────────────────────────────────────
// Delete
// ────────────────────────────────────────────────

func TestDeleteByRenter(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	if err := f.service.Delete(context.Background(), "renter", "b1", testNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.count() != 0 {
		t.Error("expected booking to be removed")
	}
	if f.publisher.cancelled != 1 {
		t.Errorf("expected 1 cancelled event, got %d", f.publisher.cancelled)
	}
}

func TestDeleteBySpotOwner(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	if err := f.service.Delete(context.Background(), "owner", "b1", testNow); err != nil {
		t.Fatalf("spot owner must be able to delete: %v", err)
	}
}

func TestDeleteSpotGone(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))
	delete(f.spots.spots, "spot1")

	if err := f.service.Delete(context.Background(), "renter", "b1", testNow); err != nil {
		t.Fatalf("renter must be able to cancel after the spot is gone: %v", err)
	}
	if f.repo.count() != 0 {
		t.Error("expected booking to be removed")
	}
}

func TestDeleteSpotLoadTimeout(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))
	f.spots.findByIDFunc = func(ctx context.Context, id string) (*model.Spot, error) {
		return nil, context.DeadlineExceeded
	}

	err := f.service.Delete(context.Background(), "owner", "b1", testNow)
	assertCode(t, err, apperrors.CodeUnavailable)
	if f.repo.count() != 1 {
		t.Error("failed delete must not touch the store")
	}
	if f.publisher.cancelled != 0 {
		t.Errorf("expected no cancelled events, got %d", f.publisher.cancelled)
	}
}

func TestDeleteByStrangerForbidden(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	err := f.service.Delete(context.Background(), "stranger", "b1", testNow)
	assertCode(t, err, apperrors.CodeForbidden)
	if f.repo.count() != 1 {
		t.Error("rejected delete must not touch the store")
	}
}

func TestDeleteAlreadyStarted(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name  string
		start time.Time
	}{
		{"started in the past", time.Date(2029, 12, 20, 0, 0, 0, 0, time.UTC)},
		{"starts exactly now", testNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.repo.bookings = nil
			seedBooking(f, "b1", tt.start, tt.start.AddDate(0, 0, 9))

			err := f.service.Delete(context.Background(), "renter", "b1", testNow)
			assertCode(t, err, apperrors.CodeAlreadyStarted)
			if f.repo.count() != 1 {
				t.Error("rejected delete must not touch the store")
			}
		})
	}
}

// ────────────────────────────────────────────────
// Listings
// ────────────────────────────────────────────────

func TestListForSpotOwnerView(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	result, err := f.service.ListForSpot(context.Background(), "owner", "spot1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OwnerView {
		t.Fatal("expected owner view")
	}
	if len(result.WithUsers) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(result.WithUsers))
	}
	if result.WithUsers[0].User.Username != "renter_joe" {
		t.Errorf("expected renter identity in owner view, got %+v", result.WithUsers[0].User)
	}
}

func TestListForSpotNonOwnerView(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))

	result, err := f.service.ListForSpot(context.Background(), "stranger", "spot1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OwnerView {
		t.Fatal("expected restricted view")
	}
	if len(result.DatesOnly) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(result.DatesOnly))
	}
	if result.DatesOnly[0].SpotID != "spot1" {
		t.Errorf("unexpected entry: %+v", result.DatesOnly[0])
	}
}

func TestListForSpotNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.ListForSpot(context.Background(), "renter", "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestListForUser(t *testing.T) {
	f := newFixture()
	seedBooking(f, "b1",
		time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 2, 10, 0, 0, 0, 0, time.UTC))
	f.repo.add(&model.Booking{
		ID:        "b2",
		SpotID:    "spot1",
		UserID:    "other",
		StartDate: time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	bookings, err := f.service.ListForUser(context.Background(), "renter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected only the renter's booking, got %d", len(bookings))
	}
	if bookings[0].Spot.Name != "Lakeside Cabin" {
		t.Errorf("expected spot summary attached, got %+v", bookings[0].Spot)
	}
}

func TestListForUserEmpty(t *testing.T) {
	f := newFixture()

	bookings, err := f.service.ListForUser(context.Background(), "renter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 0 {
		t.Fatalf("expected empty list, got %d", len(bookings))
	}
}
