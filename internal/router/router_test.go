package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/auth"
	"carrental/internal/cache"
	"carrental/internal/config"
	"carrental/internal/handler"
	"carrental/internal/repository/memstore"
	"carrental/internal/seed"
	"carrental/internal/service"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	Data       json.RawMessage `json:"data"`
}

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	mr := miniredis.RunT(t)
	log := zerolog.Nop()
	client := cache.New(mr.Addr(), "", 0, log)
	t.Cleanup(func() { _ = client.Close() })

	store := memstore.New()
	categories := service.NewCategoryService(store, client, cache.DefaultPolicy, log)
	cars := service.NewCarService(store, categories, client, cache.DefaultPolicy, log)
	users := service.NewUserService(store, client, cache.DefaultPolicy, log)
	rentals := service.NewRentalService(store, cars, users, client, cache.DefaultPolicy, log)
	jwtService := auth.NewJWTService("router-test-secret", "carrental", time.Minute)
	tokens := auth.NewTokenStore(client)
	authService := service.NewAuthService(store, users, jwtService, tokens, time.Hour, log)
	seeder := seed.NewSeeder(store, log)

	_, err := seeder.Apply(context.Background(), &seed.Fixture{
		Users: []seed.UserFixture{{Name: "Root", Email: "root@example.com", Password: "rootpass", AccessLevel: "Administrator"}},
	})
	require.NoError(t, err)

	cfg := &config.Config{
		CORSAllowedOrigins: []string{"*"},
		AuthRateLimit:      1000,
		AuthRateBurst:      1000,
	}
	e := echo.New()
	Register(e, cfg, Dependencies{
		Auth:     handler.NewAuthHandler(authService),
		Car:      handler.NewCarHandler(cars),
		Category: handler.NewCategoryHandler(categories),
		Rental:   handler.NewRentalHandler(rentals),
		User:     handler.NewUserHandler(users),
		Seed:     handler.NewSeedHandler(seeder, categories, cars, users),
		JWT:      jwtService,
		Tokens:   tokens,
		Health:   map[string]HealthCheck{"redis": client.Ping},
		Log:      log,
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *api) login(email, password string) handler.AuthResponse {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, status, env.Message)
	var res handler.AuthResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &res))
	return res
}

func (a *api) register(name, email string) handler.AuthResponse {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(a.t, http.StatusOK, status, env.Message)
	var res handler.AuthResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &res))
	return res
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	admin := a.login("root@example.com", "rootpass")
	ana := a.register("Ana", "ana@example.com")
	bo := a.register("Bo", "bo@example.com")

	status, env := a.do(http.MethodPost, "/api/category", admin.AccessToken, map[string]interface{}{"name": "Economy", "dailyRate": 10000})
	require.Equal(t, http.StatusOK, status, env.Message)
	category := decode[struct {
		ID string `json:"id"`
	}](t, env)

	status, env = a.do(http.MethodPost, "/api/car", admin.AccessToken, map[string]interface{}{
		"plateNumber": "EC-001", "type": "Hatchback", "odometer": 1000, "categoryId": category.ID,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	car := decode[struct {
		ID        string `json:"id"`
		DailyRate int    `json:"dailyRate"`
	}](t, env)
	assert.Equal(t, 10000, car.DailyRate)

	status, env = a.do(http.MethodPost, "/api/rental/withDetails", ana.AccessToken, map[string]string{
		"carId": car.ID, "startDate": "2025-03-01", "endDate": "2025-03-03",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	booking := decode[struct {
		RentID   string `json:"rentId"`
		RenterID string `json:"renterId"`
		Owed     int    `json:"owed"`
	}](t, env)
	assert.Equal(t, 20000, booking.Owed)
	assert.Equal(t, ana.UserID.String(), booking.RenterID)

	status, env = a.do(http.MethodPost, "/api/rental/withDetails", bo.AccessToken, map[string]string{
		"carId": car.ID, "startDate": "2025-03-02T10:00:00Z", "endDate": "2025-03-05T10:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "CONFLICT", env.Code)

	status, env = a.do(http.MethodGet, "/api/car/isAvailable/"+car.ID+"?startDate=2025-03-04&endDate=2025-03-06", "", nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "true", string(env.Data))

	status, _ = a.do(http.MethodGet, "/api/rental/"+booking.RentID, ana.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodGet, "/api/rental/"+booking.RentID, bo.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, env = a.do(http.MethodGet, "/api/rental/invoice/"+booking.RentID, ana.AccessToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = a.do(http.MethodPut, "/api/rental/status", admin.AccessToken, map[string]string{"id": booking.RentID, "status": "InProcess"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = a.do(http.MethodGet, "/api/car/"+car.ID, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[struct {
		Available bool `json:"available"`
	}](t, env).Available)

	status, env = a.do(http.MethodPut, "/api/rental/status", admin.AccessToken, map[string]string{"id": booking.RentID, "status": "Request"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILURE", env.Code)
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)
	ana := a.register("Ana", "ana@example.com")
	bo := a.register("Bo", "bo@example.com")

	status, env := a.do(http.MethodPost, "/api/category", "", map[string]interface{}{"name": "Economy", "dailyRate": 1})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_FAILURE", env.Code)

	status, env = a.do(http.MethodPost, "/api/category", ana.AccessToken, map[string]interface{}{"name": "Economy", "dailyRate": 1})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Code)

	status, _ = a.do(http.MethodGet, "/api/user/"+bo.UserID.String(), ana.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(http.MethodGet, "/api/user/"+ana.UserID.String(), ana.AccessToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodPut, "/api/user", ana.AccessToken, map[string]string{
		"id": ana.UserID.String(), "property": "accessLevel", "value": "Administrator",
	})
	assert.Equal(t, http.StatusForbidden, status, "users cannot promote themselves")

	status, _ = a.do(http.MethodPost, "/api/rental", ana.AccessToken, map[string]interface{}{"renterId": bo.UserID.String(), "owed": 10})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.do(http.MethodGet, "/api/car", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRentalLookupHidesWhichIDsExist(t *testing.T) {
	a := newAPI(t)
	admin := a.login("root@example.com", "rootpass")
	ana := a.register("Ana", "ana@example.com")
	bo := a.register("Bo", "bo@example.com")

	status, env := a.do(http.MethodPost, "/api/rental", ana.AccessToken, map[string]interface{}{"owed": 10})
	require.Equal(t, http.StatusOK, status, env.Message)
	rental := decode[struct {
		ID string `json:"id"`
	}](t, env)
	unknown := "00000000-0000-0000-0000-0000000000aa"

	for _, path := range []string{"/api/rental/%s", "/api/rental/%s/car", "/api/rental/invoice/%s"} {
		foreignStatus, foreign := a.do(http.MethodGet, fmt.Sprintf(path, rental.ID), bo.AccessToken, nil)
		missingStatus, missing := a.do(http.MethodGet, fmt.Sprintf(path, unknown), bo.AccessToken, nil)

		assert.Equal(t, http.StatusForbidden, foreignStatus, path)
		assert.Equal(t, foreignStatus, missingStatus, path)
		assert.Equal(t, foreign.Code, missing.Code, path)
		assert.Equal(t, foreign.Message, missing.Message, path)
	}

	status, env = a.do(http.MethodGet, "/api/rental/"+unknown, admin.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	a := newAPI(t)
	ana := a.register("Ana", "ana@example.com")

	status, env := a.do(http.MethodPost, "/api/auth/logout", ana.AccessToken, nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = a.do(http.MethodGet, "/api/user/"+ana.UserID.String(), ana.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_FAILURE", env.Code)

	status, env = a.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": ana.RefreshToken})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "AUTH_FAILURE", env.Code)
}

func TestValidationFailures(t *testing.T) {
	a := newAPI(t)

	status, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Ana", "email": "not-an-email", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILURE", env.Code)

	status, env = a.do(http.MethodGet, "/api/car/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILURE", env.Code)

	status, env = a.do(http.MethodGet, "/api/car/isAvailable/"+"00000000-0000-0000-0000-000000000001"+"?startDate=03/01/2025&endDate=2025-03-02", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILURE", env.Code)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"redis":"ok"}`, rec.Body.String())
}
