package seed

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository/memstore"
)

const fixtureJSON = `{
  "categories": [
    {"name": "Economy", "dailyRate": 10000, "cars": [
      {"plateNumber": "EC-001", "type": "Hatchback", "odometer": 1200},
      {"plateNumber": "EC-002", "type": "Sedan", "odometer": 800, "available": false}
    ]},
    {"name": "Premium", "dailyRate": 25000}
  ],
  "users": [
    {"name": "Admin", "email": "Admin@Example.com", "password": "secret", "accessLevel": "administrator"},
    {"name": "Ana", "email": "ana@example.com", "password": "secret"}
  ]
}`

func newSeeder(store *memstore.Store) *Seeder {
	s := NewSeeder(store, zerolog.Nop())
	s.cost = bcrypt.MinCost
	return s
}

func writeFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApply_CreatesEverything(t *testing.T) {
	fixture, err := Load(writeFixture(t, fixtureJSON))
	require.NoError(t, err)

	store := memstore.New()
	res, err := newSeeder(store).Apply(context.Background(), fixture)
	require.NoError(t, err)
	assert.Equal(t, Result{Categories: 2, Cars: 2, Users: 2}, res)

	ctx := context.Background()
	economy, err := store.Categories().FindByName(ctx, "Economy")
	require.NoError(t, err)

	car, err := store.Cars().FindByPlate(ctx, "EC-001")
	require.NoError(t, err)
	assert.True(t, car.Available)
	require.NotNil(t, car.CategoryID)
	assert.Equal(t, economy.ID, *car.CategoryID)

	parked, err := store.Cars().FindByPlate(ctx, "EC-002")
	require.NoError(t, err)
	assert.False(t, parked.Available)

	admin, err := store.Users().FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.AccessAdministrator, admin.AccessLevel)
	assert.True(t, admin.Enabled)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("secret")))

	ana, err := store.Users().FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.AccessUser, ana.AccessLevel)
}

func TestApply_Idempotent(t *testing.T) {
	fixture, err := Load(writeFixture(t, fixtureJSON))
	require.NoError(t, err)

	store := memstore.New()
	seeder := newSeeder(store)
	_, err = seeder.Apply(context.Background(), fixture)
	require.NoError(t, err)

	res, err := seeder.Apply(context.Background(), fixture)
	require.NoError(t, err)
	assert.False(t, res.Changed())

	cars, err := store.Cars().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, cars, 2)
}

func TestApply_InvalidRowRollsBack(t *testing.T) {
	store := memstore.New()
	fixture := &Fixture{
		Categories: []CategoryFixture{{Name: "Economy", DailyRate: 100}},
		Users:      []UserFixture{{Name: "Bad", Email: "bad@example.com", Password: "x", AccessLevel: "root"}},
	}

	_, err := newSeeder(store).Apply(context.Background(), fixture)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))

	_, err = store.Categories().FindByName(context.Background(), "Economy")
	assert.Error(t, err, "category insert rolled back with the failing user")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, stderrors.Is(err, os.ErrNotExist))

	_, err = Load(writeFixture(t, "{not json"))
	assert.Error(t, err)
}
