package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carrental/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

var carColumns = []string{"id", "plate_number", "type", "odometer", "available", "category_id", "description", "created_at", "updated_at", "deleted_at"}

func TestCarRepository_FindByIDForUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCarRepository(db)
	carID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `cars` WHERE id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(carColumns).
			AddRow(carID.String(), "AB-123", "Sedan", 1200, true, nil, "", now, now, nil))

	car, err := repo.FindByIDForUpdate(context.Background(), carID)
	require.NoError(t, err)
	assert.Equal(t, carID, car.ID)
	assert.Equal(t, "AB-123", car.PlateNumber)
	assert.Nil(t, car.CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCarRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `cars`").
		WillReturnRows(sqlmock.NewRows(carColumns))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCarRepository_DeleteIsSoft(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCarRepository(db)

	mock.ExpectExec("UPDATE `cars` SET `deleted_at`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), uuid.New()))

	mock.ExpectExec("UPDATE `cars` SET `deleted_at`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarRepository_SyncAvailability(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCarRepository(db)

	mock.ExpectExec("UPDATE `cars` SET `available`=\\?,`rental_hold`=\\?.*id IN.*available = \\? OR rental_hold = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `cars` SET `available`=\\?,`rental_hold`=\\?.*rental_hold = \\?.*id NOT IN").
		WillReturnResult(sqlmock.NewResult(0, 2))

	changed, err := repo.SyncAvailability(context.Background(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarRepository_SyncAvailabilityWithoutBusyOnlyReleasesHolds(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCarRepository(db)

	mock.ExpectExec("UPDATE `cars` SET `available`=\\?,`rental_hold`=\\?.*WHERE rental_hold = \\?").
		WithArgs(true, false, sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.SyncAvailability(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCarRepository_SetRentalHold(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCarRepository(db)
	id := uuid.New()

	mock.ExpectExec("UPDATE `cars` SET `available`=\\?,`rental_hold`=\\?").
		WithArgs(false, true, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetRentalHold(context.Background(), id, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_ListCarRentsByCar(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRentalRepository(db)
	carID, rentID, renterID := uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM `car_rents` JOIN rents ON rents.id = car_rents.rent_id WHERE car_rents.car_id = \\? ORDER BY car_rents.start_date ASC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "rent_id", "car_id", "start_date", "end_date", "renter_id", "status", "application_time", "owed"}).
			AddRow(uuid.NewString(), rentID.String(), carID.String(), start, end, renterID.String(), "Request", start, 20000))

	details, err := repo.ListCarRentsByCar(context.Background(), carID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, rentID, details[0].RentID)
	assert.Equal(t, renterID, details[0].RenterID)
	assert.Equal(t, model.RentStatusRequest, details[0].Status)
	assert.Equal(t, 20000, details[0].Owed)
	assert.True(t, details[0].EndDate.Equal(end))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `rents`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `car_rents`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx Store) error {
		rent := &model.Rent{RenterID: uuid.New(), Status: model.RentStatusRequest, ApplicationTime: time.Now()}
		if err := tx.Rentals().Create(ctx, rent); err != nil {
			return err
		}
		return tx.Rentals().CreateCarRent(ctx, &model.CarRent{RentID: rent.ID, CarID: uuid.New(), StartDate: time.Now(), EndDate: time.Now()})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTransactionRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `rents`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `car_rents`").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx Store) error {
		rent := &model.Rent{RenterID: uuid.New(), Status: model.RentStatusRequest, ApplicationTime: time.Now()}
		if err := tx.Rentals().Create(ctx, rent); err != nil {
			return err
		}
		return tx.Rentals().CreateCarRent(ctx, &model.CarRent{RentID: rent.ID, CarID: uuid.New(), StartDate: time.Now(), EndDate: time.Now()})
	})
	assert.EqualError(t, err, "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "access_level", "password_hash", "enabled"}).
			AddRow(id.String(), "Ana", "ana@example.com", "User", "hash", true))

	user, err := repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, model.AccessUser, user.AccessLevel)
	assert.True(t, user.Enabled)
}
