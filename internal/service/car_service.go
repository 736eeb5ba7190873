package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/cache"
	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

// DescriptionTimeLayout prefixes every description entry.
const DescriptionTimeLayout = "2006-01-02 15:04:05"

// CreateCarInput carries the fields of a new car.
type CreateCarInput struct {
	PlateNumber string
	Type        string
	Odometer    int
	Available   bool
	CategoryID  *uuid.UUID
	Description string
}

// CarService handles the fleet: CRUD, availability and rental history.
type CarService interface {
	ListCars(ctx context.Context) ([]model.CarView, error)
	GetCar(ctx context.Context, id uuid.UUID) (*model.CarView, error)
	ListCarsByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.CarView, error)
	DoesCarExist(ctx context.Context, id uuid.UUID) (bool, error)
	CreateCar(ctx context.Context, input CreateCarInput) (*model.CarView, error)
	UpdateCarCategory(ctx context.Context, id, categoryID uuid.UUID) (*model.CarView, error)
	UpdateCarOdometer(ctx context.Context, id uuid.UUID, odometer int) (*model.CarView, error)
	UpdateCarAvailability(ctx context.Context, id uuid.UUID, available bool) (*model.CarView, error)
	AppendCarDescription(ctx context.Context, id uuid.UUID, text string) (*model.CarView, error)
	DeleteCar(ctx context.Context, id uuid.UUID) error
	IsAvailableOnDayInterval(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error)
	GetCarRentHistory(ctx context.Context, id uuid.UUID) ([]model.CarRentView, error)
	InvalidateCache(ctx context.Context)
}

type carService struct {
	store      repository.Store
	categories CategoryService
	cache      *cache.Collection[model.Car]
	log        zerolog.Logger
	now        func() time.Time
}

// NewCarService creates a new car service.
func NewCarService(store repository.Store, categories CategoryService, client *cache.Client, policy cache.Policy, log zerolog.Logger) CarService {
	return &carService{
		store:      store,
		categories: categories,
		cache:      cache.NewCollection[model.Car](client, cache.KeyCars, policy, log),
		log:        log.With().Str("service", "car").Logger(),
		now:        time.Now,
	}
}

func (s *carService) cars(ctx context.Context) ([]model.Car, error) {
	return s.cache.ReadThrough(ctx, s.store.Cars().List)
}

func (s *carService) toViews(ctx context.Context, cars []model.Car) ([]model.CarView, error) {
	categories, err := s.categories.CategoriesByID(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]model.CarView, 0, len(cars))
	for _, car := range cars {
		views = append(views, carView(car, categories))
	}
	return views, nil
}

func carView(car model.Car, categories map[uuid.UUID]model.Category) model.CarView {
	view := model.CarView{
		ID:          car.ID,
		PlateNumber: car.PlateNumber,
		Type:        car.Type,
		Odometer:    car.Odometer,
		Available:   car.Available,
		Description: car.Description,
		CategoryID:  car.CategoryID,
	}
	if car.CategoryID != nil {
		if category, ok := categories[*car.CategoryID]; ok {
			view.CategoryName = category.Name
			view.DailyRate = category.DailyRate
		}
	}
	return view
}

func (s *carService) ListCars(ctx context.Context) ([]model.CarView, error) {
	cars, err := s.cars(ctx)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, cars)
}

func (s *carService) GetCar(ctx context.Context, id uuid.UUID) (*model.CarView, error) {
	cars, err := s.cars(ctx)
	if err != nil {
		return nil, err
	}
	for _, car := range cars {
		if car.ID == id {
			return s.view(ctx, car)
		}
	}
	return nil, errors.ErrCarNotFound
}

func (s *carService) ListCarsByCategory(ctx context.Context, categoryID uuid.UUID) ([]model.CarView, error) {
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	cars, err := s.cars(ctx)
	if err != nil {
		return nil, err
	}
	matching := make([]model.Car, 0)
	for _, car := range cars {
		if car.CategoryID != nil && *car.CategoryID == categoryID {
			matching = append(matching, car)
		}
	}
	return s.toViews(ctx, matching)
}

func (s *carService) DoesCarExist(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.store.Cars().FindByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *carService) stamp(text string) string {
	return s.now().Format(DescriptionTimeLayout) + " : " + text
}

func (s *carService) CreateCar(ctx context.Context, input CreateCarInput) (*model.CarView, error) {
	plate := strings.TrimSpace(input.PlateNumber)
	if plate == "" {
		return nil, errors.Validation("plate number is required")
	}
	if input.Odometer < 0 {
		return nil, errors.Validation("odometer must not be negative")
	}

	car := &model.Car{
		PlateNumber: plate,
		Type:        strings.TrimSpace(input.Type),
		Odometer:    input.Odometer,
		Available:   input.Available,
		CategoryID:  input.CategoryID,
		Description: s.stamp(input.Description),
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Cars().FindByPlate(ctx, plate); err == nil {
			return errors.ErrPlateTaken
		} else if !isNotFound(err) {
			return err
		}
		if car.CategoryID != nil {
			if _, err := tx.Categories().FindByID(ctx, *car.CategoryID); err != nil {
				if isNotFound(err) {
					return errors.ErrCategoryNotFound
				}
				return err
			}
		}
		return tx.Cars().Create(ctx, car)
	})
	if err != nil {
		return nil, wrapPersistence("error creating car", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("car_id", car.ID.String()).Str("plate", plate).Msg("car created")
	return s.view(ctx, *car)
}

func (s *carService) UpdateCarCategory(ctx context.Context, id, categoryID uuid.UUID) (*model.CarView, error) {
	return s.update(ctx, id, func(ctx context.Context, tx repository.Store, car *model.Car) error {
		if _, err := tx.Categories().FindByID(ctx, categoryID); err != nil {
			if isNotFound(err) {
				return errors.ErrCategoryNotFound
			}
			return err
		}
		car.CategoryID = &categoryID
		return nil
	})
}

func (s *carService) UpdateCarOdometer(ctx context.Context, id uuid.UUID, odometer int) (*model.CarView, error) {
	if odometer < 0 {
		return nil, errors.Validation("odometer must not be negative")
	}
	return s.update(ctx, id, func(_ context.Context, _ repository.Store, car *model.Car) error {
		car.Odometer = odometer
		return nil
	})
}

func (s *carService) UpdateCarAvailability(ctx context.Context, id uuid.UUID, available bool) (*model.CarView, error) {
	return s.update(ctx, id, func(_ context.Context, _ repository.Store, car *model.Car) error {
		car.Available = available
		car.RentalHold = false
		return nil
	})
}

// AppendCarDescription adds a timestamped entry; earlier text is never replaced.
func (s *carService) AppendCarDescription(ctx context.Context, id uuid.UUID, text string) (*model.CarView, error) {
	entry := s.stamp(text)
	return s.update(ctx, id, func(_ context.Context, _ repository.Store, car *model.Car) error {
		if car.Description == "" {
			car.Description = entry
		} else {
			car.Description += "\n" + entry
		}
		return nil
	})
}

func (s *carService) update(ctx context.Context, id uuid.UUID, mutate func(ctx context.Context, tx repository.Store, car *model.Car) error) (*model.CarView, error) {
	var updated model.Car
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		car, err := tx.Cars().FindByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return errors.ErrCarNotFound
			}
			return err
		}
		if err := mutate(ctx, tx, car); err != nil {
			return err
		}
		if err := tx.Cars().Update(ctx, car); err != nil {
			return err
		}
		updated = *car
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("error updating car", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("car_id", id.String()).Msg("car updated")
	return s.view(ctx, updated)
}

func (s *carService) DeleteCar(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Cars().Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return errors.ErrCarNotFound
		}
		return errors.Persistence("error deleting car", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("car_id", id.String()).Msg("car deleted")
	return nil
}

func (s *carService) IsAvailableOnDayInterval(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error) {
	if end.Before(start) {
		return false, errors.ErrInvalidDateRange
	}
	exists, err := s.DoesCarExist(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, errors.ErrCarNotFound
	}

	bookings, err := s.store.Rentals().ListCarRentsByCar(ctx, id)
	if err != nil {
		return false, err
	}
	return IsIntervalFree(bookings, start, end), nil
}

func (s *carService) GetCarRentHistory(ctx context.Context, id uuid.UUID) ([]model.CarRentView, error) {
	exists, err := s.DoesCarExist(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.ErrCarNotFound
	}

	bookings, err := s.store.Rentals().ListCarRentsByCar(ctx, id)
	if err != nil {
		return nil, err
	}
	history := make([]model.CarRentView, 0, len(bookings))
	for i, b := range bookings {
		history = append(history, model.NewCarRentView(b, i))
	}
	return history, nil
}

func (s *carService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

func (s *carService) view(ctx context.Context, car model.Car) (*model.CarView, error) {
	views, err := s.toViews(ctx, []model.Car{car})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
