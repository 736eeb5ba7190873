package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carrental/internal/model"
)

// CarRepository defines car persistence operations.
type CarRepository interface {
	Create(ctx context.Context, car *model.Car) error
	Update(ctx context.Context, car *model.Car) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Car, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Car, error)
	FindByPlate(ctx context.Context, plate string) (*model.Car, error)
	List(ctx context.Context) ([]model.Car, error)
	SetRentalHold(ctx context.Context, id uuid.UUID, held bool) error
	// SyncAvailability puts the busy cars under rental hold and releases the
	// hold on every other held car, returning how many rows changed. Cars
	// made unavailable by staff carry no hold and are left alone.
	SyncAvailability(ctx context.Context, busy []uuid.UUID) (int64, error)
}

type carRepository struct {
	db *gorm.DB
}

// NewCarRepository creates a new car repository.
func NewCarRepository(db *gorm.DB) CarRepository {
	return &carRepository{db: db}
}

// Create creates a new car.
func (r *carRepository) Create(ctx context.Context, car *model.Car) error {
	return r.db.WithContext(ctx).Create(car).Error
}

// Update saves every column of car.
func (r *carRepository) Update(ctx context.Context, car *model.Car) error {
	return r.db.WithContext(ctx).Save(car).Error
}

// Delete soft-deletes a car so rental history keeps its reference.
func (r *carRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Car{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID finds a car by ID.
func (r *carRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Car, error) {
	var car model.Car
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&car).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

// FindByIDForUpdate finds a car by ID with a row-level lock held until the
// surrounding transaction ends.
func (r *carRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Car, error) {
	var car model.Car
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&car).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *carRepository) FindByPlate(ctx context.Context, plate string) (*model.Car, error) {
	var car model.Car
	if err := r.db.WithContext(ctx).Where("plate_number = ?", plate).First(&car).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *carRepository) List(ctx context.Context) ([]model.Car, error) {
	var cars []model.Car
	if err := r.db.WithContext(ctx).Order("plate_number ASC").Find(&cars).Error; err != nil {
		return nil, err
	}
	return cars, nil
}

// SetRentalHold takes a car out of service for a rental (held) or returns it
// (released). Both clear any earlier staff setting.
func (r *carRepository) SetRentalHold(ctx context.Context, id uuid.UUID, held bool) error {
	return r.db.WithContext(ctx).Model(&model.Car{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"available": !held, "rental_hold": held}).Error
}

func (r *carRepository) SyncAvailability(ctx context.Context, busy []uuid.UUID) (int64, error) {
	var changed int64
	if len(busy) > 0 {
		res := r.db.WithContext(ctx).Model(&model.Car{}).
			Where("id IN ?", busy).
			Where("available = ? OR rental_hold = ?", true, false).
			Updates(map[string]interface{}{"available": false, "rental_hold": true})
		if res.Error != nil {
			return 0, res.Error
		}
		changed += res.RowsAffected
	}

	released := r.db.WithContext(ctx).Model(&model.Car{}).Where("rental_hold = ?", true)
	if len(busy) > 0 {
		released = released.Where("id NOT IN ?", busy)
	}
	res := released.Updates(map[string]interface{}{"available": true, "rental_hold": false})
	if res.Error != nil {
		return 0, res.Error
	}
	return changed + res.RowsAffected, nil
}
