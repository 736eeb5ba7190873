package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/cache"
	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

// RentalService is the booking engine: rental creation, pricing, status
// transitions and the car availability they drive.
type RentalService interface {
	ListRentals(ctx context.Context) ([]model.RentView, error)
	GetRental(ctx context.Context, id uuid.UUID) (*model.RentView, error)
	SearchRentals(ctx context.Context, term string) ([]model.RentView, error)
	GetUserRentals(ctx context.Context, userID uuid.UUID) ([]model.RentView, error)
	GetCarForRental(ctx context.Context, id uuid.UUID) (*model.CarView, error)
	// GetRentalDetailsForInvoice returns nil without error when the rental
	// has no car binding.
	GetRentalDetailsForInvoice(ctx context.Context, id uuid.UUID) (*model.CarRentView, error)
	CreateRental(ctx context.Context, renterID uuid.UUID, owed int) (*model.RentView, error)
	CreateRentalWithDetails(ctx context.Context, renterID, carID uuid.UUID, start, end time.Time) (*model.CarRentView, error)
	UpdateRentalStatus(ctx context.Context, id uuid.UUID, status model.RentStatus) (*model.RentView, error)
}

type rentalService struct {
	store repository.Store
	cars  CarService
	users UserService
	cache *cache.Collection[model.Rent]
	log   zerolog.Logger
	now   func() time.Time

	// carMutexes serialises bookings per car id within this process. Entries
	// are never evicted, so the map is bounded by the size of the fleet.
	carMutexes sync.Map
}

// NewRentalService creates a new rental service.
func NewRentalService(store repository.Store, cars CarService, users UserService, client *cache.Client, policy cache.Policy, log zerolog.Logger) RentalService {
	return &rentalService{
		store: store,
		cars:  cars,
		users: users,
		cache: cache.NewCollection[model.Rent](client, cache.KeyRentals, policy, log),
		log:   log.With().Str("service", "rental").Logger(),
		now:   time.Now,
	}
}

// getMutex returns a mutex for a specific car ID.
func (s *rentalService) getMutex(carID uuid.UUID) *sync.Mutex {
	value, _ := s.carMutexes.LoadOrStore(carID, &sync.Mutex{})
	return value.(*sync.Mutex)
}

func (s *rentalService) rents(ctx context.Context) ([]model.Rent, error) {
	return s.cache.ReadThrough(ctx, s.store.Rentals().List)
}

func (s *rentalService) toViews(ctx context.Context, rents []model.Rent) ([]model.RentView, error) {
	names, err := s.users.RenterNames(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]model.RentView, 0, len(rents))
	for _, r := range rents {
		views = append(views, model.RentView{
			ID:              r.ID,
			RenterID:        r.RenterID,
			RenterName:      names[r.RenterID],
			Status:          r.Status,
			ApplicationTime: r.ApplicationTime,
			Owed:            r.Owed,
		})
	}
	return views, nil
}

func (s *rentalService) view(ctx context.Context, rent model.Rent) (*model.RentView, error) {
	views, err := s.toViews(ctx, []model.Rent{rent})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *rentalService) ListRentals(ctx context.Context) ([]model.RentView, error) {
	rents, err := s.rents(ctx)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, rents)
}

func (s *rentalService) GetRental(ctx context.Context, id uuid.UUID) (*model.RentView, error) {
	rents, err := s.rents(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rents {
		if r.ID == id {
			return s.view(ctx, r)
		}
	}
	return nil, errors.ErrRentalNotFound
}

// SearchRentals matches term case-insensitively against rental ids and renter names.
func (s *rentalService) SearchRentals(ctx context.Context, term string) ([]model.RentView, error) {
	views, err := s.ListRentals(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return views, nil
	}
	matches := make([]model.RentView, 0)
	for _, v := range views {
		if strings.Contains(v.ID.String(), term) || strings.Contains(strings.ToLower(v.RenterName), term) {
			matches = append(matches, v)
		}
	}
	return matches, nil
}

func (s *rentalService) GetUserRentals(ctx context.Context, userID uuid.UUID) ([]model.RentView, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	rents, err := s.rents(ctx)
	if err != nil {
		return nil, err
	}
	owned := make([]model.Rent, 0)
	for _, r := range rents {
		if r.RenterID == userID {
			owned = append(owned, r)
		}
	}
	return s.toViews(ctx, owned)
}

func (s *rentalService) findRent(ctx context.Context, id uuid.UUID) (*model.Rent, error) {
	rent, err := s.store.Rentals().FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrRentalNotFound
		}
		return nil, err
	}
	return rent, nil
}

func (s *rentalService) GetCarForRental(ctx context.Context, id uuid.UUID) (*model.CarView, error) {
	if _, err := s.findRent(ctx, id); err != nil {
		return nil, err
	}
	binding, err := s.store.Rentals().FindCarRentByRentID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrCarNotFound
		}
		return nil, err
	}
	return s.cars.GetCar(ctx, binding.CarID)
}

func (s *rentalService) GetRentalDetailsForInvoice(ctx context.Context, id uuid.UUID) (*model.CarRentView, error) {
	rent, err := s.findRent(ctx, id)
	if err != nil {
		return nil, err
	}
	binding, err := s.store.Rentals().FindCarRentByRentID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	view := model.NewCarRentView(detailOf(*rent, *binding), 0)
	return &view, nil
}

func detailOf(rent model.Rent, binding model.CarRent) model.CarRentDetail {
	return model.CarRentDetail{
		CarRent:         binding,
		RenterID:        rent.RenterID,
		Status:          rent.Status,
		ApplicationTime: rent.ApplicationTime,
		Owed:            rent.Owed,
	}
}

// CreateRental records a rental without a car binding.
func (s *rentalService) CreateRental(ctx context.Context, renterID uuid.UUID, owed int) (*model.RentView, error) {
	if owed < 0 {
		return nil, errors.Validation("owed must not be negative")
	}

	rent := &model.Rent{
		RenterID:        renterID,
		Status:          model.RentStatusRequest,
		ApplicationTime: s.now(),
		Owed:            owed,
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := activeUser(ctx, tx, renterID); err != nil {
			return err
		}
		return tx.Rentals().Create(ctx, rent)
	})
	if err != nil {
		s.log.Error().Err(err).Str("renter_id", renterID.String()).Msg("create rental rolled back")
		return nil, wrapPersistence("error creating rental", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("rent_id", rent.ID.String()).Str("renter_id", renterID.String()).Msg("rental created")
	return s.view(ctx, *rent)
}

// CreateRentalWithDetails books carID for [start, end]. The interval scan and
// the inserts run in one transaction holding the car row lock, and bookers of
// the same car are serialised in-process as well.
func (s *rentalService) CreateRentalWithDetails(ctx context.Context, renterID, carID uuid.UUID, start, end time.Time) (*model.CarRentView, error) {
	if end.Before(start) {
		return nil, errors.ErrInvalidDateRange
	}

	mutex := s.getMutex(carID)
	mutex.Lock()
	defer mutex.Unlock()

	var (
		rent    *model.Rent
		binding *model.CarRent
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := activeUser(ctx, tx, renterID); err != nil {
			return err
		}

		car, err := tx.Cars().FindByIDForUpdate(ctx, carID)
		if err != nil {
			if isNotFound(err) {
				return errors.ErrCarNotFound
			}
			return err
		}

		bookings, err := tx.Rentals().ListCarRentsByCar(ctx, carID)
		if err != nil {
			return err
		}
		if !IsIntervalFree(bookings, start, end) {
			return errors.ErrCarUnavailable
		}

		owed, err := s.price(ctx, tx, car, start, end)
		if err != nil {
			return err
		}

		rent = &model.Rent{
			RenterID:        renterID,
			Status:          model.RentStatusRequest,
			ApplicationTime: s.now(),
			Owed:            owed,
		}
		if err := tx.Rentals().Create(ctx, rent); err != nil {
			return err
		}
		binding = &model.CarRent{RentID: rent.ID, CarID: carID, StartDate: start, EndDate: end}
		return tx.Rentals().CreateCarRent(ctx, binding)
	})
	if err != nil {
		if errors.KindOf(err) != errors.KindConflict {
			s.log.Error().Err(err).Str("car_id", carID.String()).Msg("create rental rolled back")
		}
		return nil, wrapPersistence("error creating rental", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().
		Str("rent_id", rent.ID.String()).
		Str("car_id", carID.String()).
		Int("owed", rent.Owed).
		Msg("rental booked")

	view := model.NewCarRentView(detailOf(*rent, *binding), 0)
	return &view, nil
}

// price returns 0 when the car has no category or the category is gone.
func (s *rentalService) price(ctx context.Context, tx repository.Store, car *model.Car, start, end time.Time) (int, error) {
	if car.CategoryID == nil {
		return 0, nil
	}
	category, err := tx.Categories().FindByID(ctx, *car.CategoryID)
	if err != nil {
		if isNotFound(err) {
			s.log.Warn().Str("car_id", car.ID.String()).Msg("car category missing, pricing at zero")
			return 0, nil
		}
		return 0, err
	}
	return Owed(start, end, category.DailyRate), nil
}

// UpdateRentalStatus moves a rental along its state machine. InProcess takes
// the bound car out of service and Returned puts it back, in the same
// transaction as the status write.
func (s *rentalService) UpdateRentalStatus(ctx context.Context, id uuid.UUID, status model.RentStatus) (*model.RentView, error) {
	if !status.Valid() {
		return nil, errors.Validation("unknown rental status " + string(status))
	}

	var (
		updated    model.Rent
		carTouched bool
	)
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		rent, err := tx.Rentals().FindByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return errors.ErrRentalNotFound
			}
			return err
		}
		if !rent.Status.CanTransitionTo(status) {
			return errors.ErrInvalidStatusTransition
		}
		if err := tx.Rentals().UpdateStatus(ctx, id, status); err != nil {
			return err
		}

		if status == model.RentStatusInProcess || status == model.RentStatusReturned {
			binding, err := tx.Rentals().FindCarRentByRentID(ctx, id)
			switch {
			case err == nil:
				if err := tx.Cars().SetRentalHold(ctx, binding.CarID, status == model.RentStatusInProcess); err != nil {
					return err
				}
				carTouched = true
			case !isNotFound(err):
				return err
			}
		}

		rent.Status = status
		updated = *rent
		return nil
	})
	if err != nil {
		if errors.IsDomain(err) {
			return nil, err
		}
		s.log.Error().Err(err).Str("rent_id", id.String()).Msg("status update rolled back")
		return nil, errors.Persistence("error updating rental", err)
	}

	s.cache.Invalidate(ctx)
	if carTouched {
		s.cars.InvalidateCache(ctx)
	}
	s.log.Info().Str("rent_id", id.String()).Str("status", string(status)).Msg("rental status changed")
	return s.view(ctx, updated)
}
