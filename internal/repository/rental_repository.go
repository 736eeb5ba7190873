package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carrental/internal/model"
)

// RentalRepository defines persistence for rents and their car bindings.
type RentalRepository interface {
	Create(ctx context.Context, rent *model.Rent) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Rent, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Rent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RentStatus) error
	List(ctx context.Context) ([]model.Rent, error)

	CreateCarRent(ctx context.Context, carRent *model.CarRent) error
	FindCarRentByRentID(ctx context.Context, rentID uuid.UUID) (*model.CarRent, error)
	// ListCarRentsByCar returns every binding of the car joined with its rent,
	// ordered by start date.
	ListCarRentsByCar(ctx context.Context, carID uuid.UUID) ([]model.CarRentDetail, error)
	// ListCarIDsWithStatus returns the distinct cars bound to rents in status.
	ListCarIDsWithStatus(ctx context.Context, status model.RentStatus) ([]uuid.UUID, error)
}

type rentalRepository struct {
	db *gorm.DB
}

// NewRentalRepository creates a new rental repository.
func NewRentalRepository(db *gorm.DB) RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) Create(ctx context.Context, rent *model.Rent) error {
	return r.db.WithContext(ctx).Create(rent).Error
}

func (r *rentalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Rent, error) {
	var rent model.Rent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rent).Error; err != nil {
		return nil, err
	}
	return &rent, nil
}

// FindByIDForUpdate locks the rent row so concurrent status changes serialise.
func (r *rentalRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Rent, error) {
	var rent model.Rent
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&rent).Error; err != nil {
		return nil, err
	}
	return &rent, nil
}

func (r *rentalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RentStatus) error {
	return r.db.WithContext(ctx).Model(&model.Rent{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *rentalRepository) List(ctx context.Context) ([]model.Rent, error) {
	var rents []model.Rent
	if err := r.db.WithContext(ctx).Order("application_time DESC").Find(&rents).Error; err != nil {
		return nil, err
	}
	return rents, nil
}

func (r *rentalRepository) CreateCarRent(ctx context.Context, carRent *model.CarRent) error {
	return r.db.WithContext(ctx).Create(carRent).Error
}

func (r *rentalRepository) FindCarRentByRentID(ctx context.Context, rentID uuid.UUID) (*model.CarRent, error) {
	var carRent model.CarRent
	if err := r.db.WithContext(ctx).Where("rent_id = ?", rentID).
		Order("start_date ASC").First(&carRent).Error; err != nil {
		return nil, err
	}
	return &carRent, nil
}

func (r *rentalRepository) ListCarRentsByCar(ctx context.Context, carID uuid.UUID) ([]model.CarRentDetail, error) {
	var details []model.CarRentDetail
	err := r.db.WithContext(ctx).Table("car_rents").
		Select("car_rents.id, car_rents.rent_id, car_rents.car_id, car_rents.start_date, car_rents.end_date, " +
			"rents.renter_id, rents.status, rents.application_time, rents.owed").
		Joins("JOIN rents ON rents.id = car_rents.rent_id").
		Where("car_rents.car_id = ?", carID).
		Order("car_rents.start_date ASC").
		Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *rentalRepository) ListCarIDsWithStatus(ctx context.Context, status model.RentStatus) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Table("car_rents").
		Distinct("car_rents.car_id").
		Joins("JOIN rents ON rents.id = car_rents.rent_id").
		Where("rents.status = ?", status).
		Pluck("car_rents.car_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
