package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"carrental/internal/auth"
	"carrental/internal/config"
	"carrental/internal/errors"
	"carrental/internal/handler"
	"carrental/internal/middleware"
	"carrental/internal/model"
)

// HealthCheck checks one backing service.
type HealthCheck func(ctx context.Context) error

// Dependencies carries everything the routes need.
type Dependencies struct {
	Auth     *handler.AuthHandler
	Car      *handler.CarHandler
	Category *handler.CategoryHandler
	Rental   *handler.RentalHandler
	User     *handler.UserHandler
	Seed     *handler.SeedHandler

	JWT    *auth.JWTService
	Tokens auth.TokenStoreInterface
	Health map[string]HealthCheck
	Log    zerolog.Logger
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, deps Dependencies) {
	e.HTTPErrorHandler = errorHandler(deps.Log)
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomw.Recover())
	e.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	e.GET("/healthz", healthz(deps.Health))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	bearer := echojwt.WithConfig(echojwt.Config{
		SigningKey:  deps.JWT.Secret(),
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
	})
	revoked := middleware.RejectRevoked(deps.Tokens)
	authenticated := []echo.MiddlewareFunc{bearer, revoked}
	staff := []echo.MiddlewareFunc{bearer, revoked, middleware.RequireAccess(middleware.Staff...)}
	admin := []echo.MiddlewareFunc{bearer, revoked, middleware.RequireAccess(model.AccessAdministrator)}

	// Auth
	limiter := middleware.NewRateLimiter(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", deps.Auth.Register, limiter.Middleware())
	authGroup.POST("/login", deps.Auth.Login, limiter.Middleware())
	authGroup.POST("/refresh", deps.Auth.Refresh, limiter.Middleware())
	authGroup.POST("/logout", deps.Auth.Logout, authenticated...)

	// Cars
	cars := api.Group("/car")
	cars.GET("", deps.Car.ListCars)
	cars.GET("/withCategory/:categoryId", deps.Car.ListCarsByCategory)
	cars.GET("/isAvailable/:id", deps.Car.IsAvailable)
	cars.GET("/rentHistory/:id", deps.Car.GetCarRentHistory, staff...)
	cars.GET("/:id", deps.Car.GetCar)
	cars.POST("", deps.Car.CreateCar, staff...)
	cars.PUT("/category", deps.Car.UpdateCarCategory, staff...)
	cars.PUT("/odometer", deps.Car.UpdateCarOdometer, staff...)
	cars.PUT("/available", deps.Car.UpdateCarAvailable, staff...)
	cars.PUT("/description", deps.Car.AppendCarDescription, staff...)
	cars.DELETE("/:id", deps.Car.DeleteCar, staff...)

	// Categories
	categories := api.Group("/category")
	categories.GET("", deps.Category.ListCategories)
	categories.GET("/:id", deps.Category.GetCategory)
	categories.POST("", deps.Category.CreateCategory, staff...)
	categories.PUT("/name", deps.Category.UpdateCategoryName, staff...)
	categories.PUT("/rate", deps.Category.UpdateCategoryRate, staff...)

	// Rentals
	rentals := api.Group("/rental")
	rentals.GET("", deps.Rental.ListRentals, staff...)
	rentals.GET("/search", deps.Rental.SearchRentals, staff...)
	rentals.PUT("/status", deps.Rental.UpdateRentalStatus, staff...)
	rentals.GET("/invoice/:id", deps.Rental.GetInvoice, authenticated...)
	rentals.GET("/user/:userId", deps.Rental.GetUserRentals, authenticated...)
	rentals.GET("/:id/car", deps.Rental.GetCarForRental, authenticated...)
	rentals.GET("/:id", deps.Rental.GetRental, authenticated...)
	rentals.POST("", deps.Rental.CreateRental, authenticated...)
	rentals.POST("/withDetails", deps.Rental.CreateRentalWithDetails, authenticated...)

	// Users
	users := api.Group("/user")
	users.GET("", deps.User.ListUsers, staff...)
	users.GET("/search", deps.User.SearchUsers, staff...)
	users.GET("/:id", deps.User.GetUser, authenticated...)
	users.PUT("", deps.User.UpdateUser, authenticated...)
	users.PUT("/data", deps.User.AddUserData, authenticated...)
	users.DELETE("/:id", deps.User.DeleteUser, admin...)

	api.POST("/seed", deps.Seed.Seed, admin...)
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if errors.KindOf(err) == errors.KindPersistence {
			log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("request failed")
		}
		if werr := handler.Failure(c, err); werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}

func healthz(checks map[string]HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		return c.JSON(status, report)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
