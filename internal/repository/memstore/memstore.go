// Package memstore provides an in-memory repository.Store for tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"carrental/internal/model"
	"carrental/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type memData struct {
	categories map[uuid.UUID]model.Category
	cars       map[uuid.UUID]model.Car
	deleted    map[uuid.UUID]bool
	rents      map[uuid.UUID]model.Rent
	carRents   map[uuid.UUID]model.CarRent
	users      map[uuid.UUID]model.User
}

// Store is an in-memory repository.Store for tests. Transactions run
// concurrently: FindByIDForUpdate takes a row lock held until the transaction
// ends, and a failed transaction undoes its own writes.
type Store struct {
	*shared
	tx *txn
}

type shared struct {
	mu   sync.Mutex
	data *memData

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex

	// FailCarRent, when set, is returned by CreateCarRent.
	FailCarRent error
	// FailAvailability, when set, is returned by Cars().SetRentalHold
	// and Cars().SyncAvailability.
	FailAvailability error
	// ReadDelay, when set, stalls ListCarRentsByCar after it has read, so
	// check-then-insert races surface reliably.
	ReadDelay time.Duration
}

// txn is the state of one open transaction.
type txn struct {
	undo []func(d *memData)
	held []*sync.Mutex
	ids  map[uuid.UUID]bool
}

// New returns an empty store.
func New() *Store {
	return &Store{shared: &shared{
		data: &memData{
			categories: map[uuid.UUID]model.Category{},
			cars:       map[uuid.UUID]model.Car{},
			deleted:    map[uuid.UUID]bool{},
			rents:      map[uuid.UUID]model.Rent{},
			carRents:   map[uuid.UUID]model.CarRent{},
			users:      map[uuid.UUID]model.User{},
		},
		locks: map[uuid.UUID]*sync.Mutex{},
	}}
}

func (s *Store) Categories() repository.CategoryRepository { return memCategories{s} }
func (s *Store) Cars() repository.CarRepository             { return memCars{s} }
func (s *Store) Rentals() repository.RentalRepository       { return memRentals{s} }
func (s *Store) Users() repository.UserRepository           { return memUsers{s} }

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	tx := &Store{shared: s.shared, tx: &txn{ids: map[uuid.UUID]bool{}}}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		s.mu.Lock()
		for i := len(tx.tx.undo) - 1; i >= 0; i-- {
			tx.tx.undo[i](s.data)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// lockRow blocks until the transaction owns the row lock of id. Outside a
// transaction the lock would be released at once, so it is skipped.
func (s *Store) lockRow(id uuid.UUID) {
	if s.tx == nil || s.tx.ids[id] {
		return
	}
	s.locksMu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	s.tx.ids[id] = true
	s.tx.held = append(s.tx.held, m)
}

func (s *Store) release() {
	for _, m := range s.tx.held {
		m.Unlock()
	}
	s.tx.held = nil
}

func (s *Store) read(fn func(d *memData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}

// write applies fn and, inside a transaction, records the undo it returns.
func (s *Store) write(fn func(d *memData) func(d *memData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	undo := fn(s.data)
	if s.tx != nil && undo != nil {
		s.tx.undo = append(s.tx.undo, undo)
	}
}

func putCategory(d *memData, c model.Category) func(d *memData) {
	prev, existed := d.categories[c.ID]
	d.categories[c.ID] = c
	return func(d *memData) {
		if existed {
			d.categories[c.ID] = prev
		} else {
			delete(d.categories, c.ID)
		}
	}
}

func putCar(d *memData, c model.Car) func(d *memData) {
	prev, existed := d.cars[c.ID]
	d.cars[c.ID] = c
	return func(d *memData) {
		if existed {
			d.cars[c.ID] = prev
		} else {
			delete(d.cars, c.ID)
		}
	}
}

func putRent(d *memData, r model.Rent) func(d *memData) {
	prev, existed := d.rents[r.ID]
	d.rents[r.ID] = r
	return func(d *memData) {
		if existed {
			d.rents[r.ID] = prev
		} else {
			delete(d.rents, r.ID)
		}
	}
}

func putCarRent(d *memData, cr model.CarRent) func(d *memData) {
	prev, existed := d.carRents[cr.ID]
	d.carRents[cr.ID] = cr
	return func(d *memData) {
		if existed {
			d.carRents[cr.ID] = prev
		} else {
			delete(d.carRents, cr.ID)
		}
	}
}

func putUser(d *memData, u model.User) func(d *memData) {
	prev, existed := d.users[u.ID]
	d.users[u.ID] = u
	return func(d *memData) {
		if existed {
			d.users[u.ID] = prev
		} else {
			delete(d.users, u.ID)
		}
	}
}

// chain runs undos in reverse order.
func chain(undos []func(d *memData)) func(d *memData) {
	return func(d *memData) {
		for i := len(undos) - 1; i >= 0; i-- {
			undos[i](d)
		}
	}
}

// RentCount reports the number of stored rents.
func (s *Store) RentCount() int {
	var n int
	s.read(func(d *memData) { n = len(d.rents) })
	return n
}

// CarRentCount reports the number of stored car bindings.
func (s *Store) CarRentCount() int {
	var n int
	s.read(func(d *memData) { n = len(d.carRents) })
	return n
}

type memCategories struct{ s *Store }

func (r memCategories) Create(_ context.Context, c *model.Category) error {
	_ = c.BeforeCreate(nil)
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	r.s.write(func(d *memData) func(d *memData) { return putCategory(d, *c) })
	return nil
}

func (r memCategories) Update(_ context.Context, c *model.Category) error {
	r.s.write(func(d *memData) func(d *memData) { return putCategory(d, *c) })
	return nil
}

func (r memCategories) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	var (
		c  model.Category
		ok bool
	)
	r.s.read(func(d *memData) { c, ok = d.categories[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memCategories) FindByName(_ context.Context, name string) (*model.Category, error) {
	var found *model.Category
	r.s.read(func(d *memData) {
		for _, c := range d.categories {
			if c.Name == name {
				c := c
				found = &c
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r memCategories) List(_ context.Context) ([]model.Category, error) {
	var out []model.Category
	r.s.read(func(d *memData) {
		for _, c := range d.categories {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memCars struct{ s *Store }

func (r memCars) Create(_ context.Context, c *model.Car) error {
	_ = c.BeforeCreate(nil)
	r.s.write(func(d *memData) func(d *memData) { return putCar(d, *c) })
	return nil
}

func (r memCars) Update(_ context.Context, c *model.Car) error {
	r.s.write(func(d *memData) func(d *memData) { return putCar(d, *c) })
	return nil
}

func (r memCars) Delete(_ context.Context, id uuid.UUID) error {
	var ok bool
	r.s.write(func(d *memData) func(d *memData) {
		if _, exists := d.cars[id]; !exists || d.deleted[id] {
			return nil
		}
		d.deleted[id] = true
		ok = true
		return func(d *memData) { delete(d.deleted, id) }
	})
	if !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r memCars) FindByID(_ context.Context, id uuid.UUID) (*model.Car, error) {
	var (
		c  model.Car
		ok bool
	)
	r.s.read(func(d *memData) {
		c, ok = d.cars[id]
		ok = ok && !d.deleted[id]
	})
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memCars) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Car, error) {
	r.s.lockRow(id)
	return r.FindByID(ctx, id)
}

func (r memCars) FindByPlate(_ context.Context, plate string) (*model.Car, error) {
	var found *model.Car
	r.s.read(func(d *memData) {
		for id, c := range d.cars {
			if c.PlateNumber == plate && !d.deleted[id] {
				c := c
				found = &c
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r memCars) List(_ context.Context) ([]model.Car, error) {
	var out []model.Car
	r.s.read(func(d *memData) {
		for id, c := range d.cars {
			if !d.deleted[id] {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PlateNumber < out[j].PlateNumber })
	return out, nil
}

func (r memCars) SetRentalHold(_ context.Context, id uuid.UUID, held bool) error {
	if r.s.FailAvailability != nil {
		return r.s.FailAvailability
	}
	r.s.write(func(d *memData) func(d *memData) {
		c, ok := d.cars[id]
		if !ok {
			return nil
		}
		c.Available, c.RentalHold = !held, held
		return putCar(d, c)
	})
	return nil
}

func (r memCars) SyncAvailability(_ context.Context, busy []uuid.UUID) (int64, error) {
	if r.s.FailAvailability != nil {
		return 0, r.s.FailAvailability
	}
	isBusy := make(map[uuid.UUID]bool, len(busy))
	for _, id := range busy {
		isBusy[id] = true
	}
	var changed int64
	r.s.write(func(d *memData) func(d *memData) {
		var undos []func(d *memData)
		for id, c := range d.cars {
			if d.deleted[id] {
				continue
			}
			switch {
			case isBusy[id] && (c.Available || !c.RentalHold):
				c.Available, c.RentalHold = false, true
			case !isBusy[id] && c.RentalHold:
				c.Available, c.RentalHold = true, false
			default:
				continue
			}
			undos = append(undos, putCar(d, c))
			changed++
		}
		return chain(undos)
	})
	return changed, nil
}

type memRentals struct{ s *Store }

func (r memRentals) Create(_ context.Context, rent *model.Rent) error {
	_ = rent.BeforeCreate(nil)
	r.s.write(func(d *memData) func(d *memData) { return putRent(d, *rent) })
	return nil
}

func (r memRentals) FindByID(_ context.Context, id uuid.UUID) (*model.Rent, error) {
	var (
		rent model.Rent
		ok   bool
	)
	r.s.read(func(d *memData) { rent, ok = d.rents[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rent, nil
}

func (r memRentals) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Rent, error) {
	r.s.lockRow(id)
	return r.FindByID(ctx, id)
}

func (r memRentals) UpdateStatus(_ context.Context, id uuid.UUID, status model.RentStatus) error {
	r.s.write(func(d *memData) func(d *memData) {
		rent, ok := d.rents[id]
		if !ok {
			return nil
		}
		rent.Status = status
		return putRent(d, rent)
	})
	return nil
}

func (r memRentals) List(_ context.Context) ([]model.Rent, error) {
	var out []model.Rent
	r.s.read(func(d *memData) {
		for _, rent := range d.rents {
			out = append(out, rent)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicationTime.After(out[j].ApplicationTime) })
	return out, nil
}

func (r memRentals) CreateCarRent(_ context.Context, cr *model.CarRent) error {
	if r.s.FailCarRent != nil {
		return r.s.FailCarRent
	}
	_ = cr.BeforeCreate(nil)
	r.s.write(func(d *memData) func(d *memData) { return putCarRent(d, *cr) })
	return nil
}

func (r memRentals) FindCarRentByRentID(_ context.Context, rentID uuid.UUID) (*model.CarRent, error) {
	var found *model.CarRent
	r.s.read(func(d *memData) {
		for _, cr := range d.carRents {
			if cr.RentID == rentID {
				cr := cr
				found = &cr
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r memRentals) ListCarRentsByCar(_ context.Context, carID uuid.UUID) ([]model.CarRentDetail, error) {
	var out []model.CarRentDetail
	r.s.read(func(d *memData) {
		for _, cr := range d.carRents {
			if cr.CarID != carID {
				continue
			}
			rent := d.rents[cr.RentID]
			out = append(out, model.CarRentDetail{
				CarRent:         cr,
				RenterID:        rent.RenterID,
				Status:          rent.Status,
				ApplicationTime: rent.ApplicationTime,
				Owed:            rent.Owed,
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	if r.s.ReadDelay > 0 {
		time.Sleep(r.s.ReadDelay)
	}
	return out, nil
}

func (r memRentals) ListCarIDsWithStatus(_ context.Context, status model.RentStatus) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	r.s.read(func(d *memData) {
		for _, cr := range d.carRents {
			if d.rents[cr.RentID].Status == status && !seen[cr.CarID] {
				seen[cr.CarID] = true
				out = append(out, cr.CarID)
			}
		}
	})
	return out, nil
}

type memUsers struct{ s *Store }

func (r memUsers) Create(_ context.Context, u *model.User) error {
	_ = u.BeforeCreate(nil)
	r.s.write(func(d *memData) func(d *memData) { return putUser(d, *u) })
	return nil
}

func (r memUsers) Update(_ context.Context, u *model.User) error {
	r.s.write(func(d *memData) func(d *memData) { return putUser(d, *u) })
	return nil
}

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	var (
		u  model.User
		ok bool
	)
	r.s.read(func(d *memData) { u, ok = d.users[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) find(match func(model.User) bool) (*model.User, error) {
	var found *model.User
	r.s.read(func(d *memData) {
		for _, u := range d.users {
			if match(u) {
				u := u
				found = &u
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r memUsers) FindByRefreshToken(_ context.Context, token string) (*model.User, error) {
	return r.find(func(u model.User) bool { return token != "" && u.RefreshToken == token })
}

func (r memUsers) List(_ context.Context) ([]model.User, error) {
	var out []model.User
	r.s.read(func(d *memData) {
		for _, u := range d.users {
			out = append(out, u)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
