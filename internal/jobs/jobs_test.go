package jobs

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carrental/internal/model"
	"carrental/internal/repository/memstore"
)

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateCache(ctx context.Context) {
	m.Called(ctx)
}

func addCar(t *testing.T, store *memstore.Store, plate string, available bool) model.Car {
	t.Helper()
	car := &model.Car{PlateNumber: plate, Available: available}
	require.NoError(t, store.Cars().Create(context.Background(), car))
	return *car
}

func addHeldCar(t *testing.T, store *memstore.Store, plate string) model.Car {
	t.Helper()
	car := &model.Car{PlateNumber: plate, Available: false, RentalHold: true}
	require.NoError(t, store.Cars().Create(context.Background(), car))
	return *car
}

func addRental(t *testing.T, store *memstore.Store, carID uuid.UUID, status model.RentStatus) {
	t.Helper()
	ctx := context.Background()
	rent := &model.Rent{RenterID: uuid.New(), Status: status, ApplicationTime: time.Now()}
	require.NoError(t, store.Rentals().Create(ctx, rent))
	now := time.Now()
	require.NoError(t, store.Rentals().CreateCarRent(ctx, &model.CarRent{
		RentID: rent.ID, CarID: carID, StartDate: now, EndDate: now.Add(48 * time.Hour),
	}))
}

func availability(t *testing.T, store *memstore.Store, id uuid.UUID) bool {
	t.Helper()
	car, err := store.Cars().FindByID(context.Background(), id)
	require.NoError(t, err)
	return car.Available
}

func TestReconcileAvailability(t *testing.T) {
	store := memstore.New()
	driving := addCar(t, store, "IN-001", true)
	cancelled := addHeldCar(t, store, "CA-001")
	returned := addCar(t, store, "RE-001", true)
	workshop := addCar(t, store, "WS-001", false)
	addRental(t, store, driving.ID, model.RentStatusInProcess)
	addRental(t, store, cancelled.ID, model.RentStatusCancelled)
	addRental(t, store, returned.ID, model.RentStatusReturned)

	cars := &MockInvalidator{}
	cars.On("InvalidateCache", mock.Anything).Once()
	runner := NewJobRunner(store, cars, zerolog.Nop())

	changed, err := runner.ReconcileAvailability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
	assert.False(t, availability(t, store, driving.ID))
	assert.True(t, availability(t, store, cancelled.ID))
	assert.True(t, availability(t, store, returned.ID))
	assert.False(t, availability(t, store, workshop.ID), "staff setting kept")
	cars.AssertExpectations(t)

	changed, err = runner.ReconcileAvailability(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed)
	cars.AssertNumberOfCalls(t, "InvalidateCache", 1)
}

func TestReconcileAvailability_StaffFlipSurvives(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	car := addHeldCar(t, store, "SF-001")
	addRental(t, store, car.ID, model.RentStatusReturned)

	// staff take the car out of service after its rental ended
	flipped, err := store.Cars().FindByID(ctx, car.ID)
	require.NoError(t, err)
	flipped.Available, flipped.RentalHold = false, false
	require.NoError(t, store.Cars().Update(ctx, flipped))

	runner := NewJobRunner(store, &MockInvalidator{}, zerolog.Nop())
	for i := 0; i < 2; i++ {
		changed, err := runner.ReconcileAvailability(ctx)
		require.NoError(t, err)
		assert.Zero(t, changed)
		assert.False(t, availability(t, store, car.ID))
	}
}

func TestReconcileAvailability_StoreFault(t *testing.T) {
	store := memstore.New()
	addCar(t, store, "IN-001", false)
	store.FailAvailability = stderrors.New("lock wait timeout")

	cars := &MockInvalidator{}
	runner := NewJobRunner(store, cars, zerolog.Nop())

	_, err := runner.ReconcileAvailability(context.Background())
	assert.Error(t, err)
	cars.AssertNotCalled(t, "InvalidateCache", mock.Anything)
}

func TestRunWithRecovery_SwallowsPanic(t *testing.T) {
	runner := NewJobRunner(memstore.New(), &MockInvalidator{}, zerolog.Nop())

	assert.NotPanics(t, func() {
		runner.runWithRecovery("boom", func(context.Context) error { panic("boom") })
	})
}

func TestNewScheduler(t *testing.T) {
	runner := NewJobRunner(memstore.New(), &MockInvalidator{}, zerolog.Nop())

	s, err := NewScheduler(runner, "0 */15 * * * *", zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)

	_, err = NewScheduler(runner, "every now and then", zerolog.Nop())
	assert.Error(t, err)
}
