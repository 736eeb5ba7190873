package main

import (
	"context"
	"flag"
	"os"


	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/logger"
	"carrental/internal/repository"
	"carrental/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.Bootstrap(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	path := flag.String("file", cfg.SeedFile, "seed fixture (JSON)")
	flag.Parse()

	fixture, err := seed.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("load fixture")
	}

	gormDB, err := db.Open(db.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	result, err := seed.NewSeeder(repository.NewStore(gormDB), log).Apply(context.Background(), fixture)
	if err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().
		Str("file", *path).
		Int("categories", result.Categories).
		Int("cars", result.Cars).
		Int("users", result.Users).
		Msg("seed completed")
}
