package repository

import (
	"context"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = gorm.ErrRecordNotFound

// Store groups the repositories into one unit of work.
type Store interface {
	Categories() CategoryRepository
	Cars() CarRepository
	Rentals() RentalRepository
	Users() UserRepository
	// WithTransaction runs fn with a Store bound to one database transaction.
	// A non-nil error from fn rolls the transaction back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db         *gorm.DB
	categories CategoryRepository
	cars       CarRepository
	rentals    RentalRepository
	users      UserRepository
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:         db,
		categories: NewCategoryRepository(db),
		cars:       NewCarRepository(db),
		rentals:    NewRentalRepository(db),
		users:      NewUserRepository(db),
	}
}

func (s *gormStore) Categories() CategoryRepository { return s.categories }
func (s *gormStore) Cars() CarRepository             { return s.cars }
func (s *gormStore) Rentals() RentalRepository       { return s.rentals }
func (s *gormStore) Users() UserRepository           { return s.users }

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewStore(tx))
	})
}
