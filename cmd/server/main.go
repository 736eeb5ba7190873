package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"carrental/docs"
	"carrental/internal/auth"
	"carrental/internal/cache"
	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/handler"
	"carrental/internal/jobs"
	"carrental/internal/logger"
	"carrental/internal/repository"
	"carrental/internal/router"
	"carrental/internal/seed"
	"carrental/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Car Rental API
// @version 1.0
// @description Car rental backend: fleet, categories, bookings and users with JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.Bootstrap(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	gormDB, err := db.Open(db.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}

	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.Fatal().Err(err).Msg("reset database")
		}
	} else if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, reads fall back to the database")
	}
	policy := cache.Policy{Absolute: cfg.CacheAbsoluteTTL, Sliding: cfg.CacheSlidingTTL}

	store := repository.NewStore(gormDB)

	// Auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Services
	categoryService := service.NewCategoryService(store, cacheClient, policy, log)
	carService := service.NewCarService(store, categoryService, cacheClient, policy, log)
	userService := service.NewUserService(store, cacheClient, policy, log)
	rentalService := service.NewRentalService(store, carService, userService, cacheClient, policy, log)
	authService := service.NewAuthService(store, userService, jwtService, tokenStore, cfg.RefreshTokenTTL, log)
	seeder := seed.NewSeeder(store, log)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Dependencies{
		Auth:     handler.NewAuthHandler(authService),
		Car:      handler.NewCarHandler(carService),
		Category: handler.NewCategoryHandler(categoryService),
		Rental:   handler.NewRentalHandler(rentalService),
		User:     handler.NewUserHandler(userService),
		Seed:     handler.NewSeedHandler(seeder, categoryService, carService, userService),
		JWT:      jwtService,
		Tokens:   tokenStore,
		Health: map[string]router.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := gormDB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": cacheClient.Ping,
		},
		Log: log,
	})

	scheduler, err := jobs.NewScheduler(jobs.NewJobRunner(store, carService, log), cfg.ReconcileSchedule, log)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler init")
	}
	scheduler.Start()

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info().Str("addr", addr).Str("swagger", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html").Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	scheduler.Stop()
}
