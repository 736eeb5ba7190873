package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"carrental/internal/auth"
	"carrental/internal/cache"
	"carrental/internal/model"
	"carrental/internal/repository/memstore"
)

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

type testEnv struct {
	store      *memstore.Store
	mr         *miniredis.Miniredis
	categories CategoryService
	cars       CarService
	users      UserService
	rentals    RentalService
	auth       AuthService
	tokens     *MockTokenStore
	jwt        *auth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0, zerolog.Nop())
	t.Cleanup(func() { _ = client.Close() })

	log := zerolog.Nop()
	store := memstore.New()
	categories := NewCategoryService(store, client, cache.DefaultPolicy, log)
	cars := NewCarService(store, categories, client, cache.DefaultPolicy, log)
	users := NewUserService(store, client, cache.DefaultPolicy, log)
	rentals := NewRentalService(store, cars, users, client, cache.DefaultPolicy, log)
	tokens := &MockTokenStore{}
	jwtService := auth.NewJWTService("test-secret", "carrental", time.Minute)

	return &testEnv{
		store:      store,
		mr:         mr,
		categories: categories,
		cars:       cars,
		users:      users,
		rentals:    rentals,
		auth:       NewAuthService(store, users, jwtService, tokens, time.Hour, log),
		tokens:     tokens,
		jwt:        jwtService,
	}
}

func (e *testEnv) addUser(t *testing.T, name, email string, level model.AccessLevel) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		Name:         name,
		Email:        email,
		AccessLevel:  level,
		PasswordHash: string(hash),
		Enabled:      true,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return *user
}

func (e *testEnv) addCar(t *testing.T, plate string, category *model.Category) model.CarView {
	t.Helper()
	input := CreateCarInput{PlateNumber: plate, Type: "Sedan", Available: true}
	if category != nil {
		input.CategoryID = &category.ID
	}
	car, err := e.cars.CreateCar(context.Background(), input)
	require.NoError(t, err)
	return *car
}
