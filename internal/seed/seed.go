// Package seed loads fixture data into an empty or partially filled store.
package seed

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

// Fixture is the seed file layout.
type Fixture struct {
	Categories []CategoryFixture `json:"categories"`
	Users      []UserFixture     `json:"users"`
}

// CategoryFixture is a category with the cars that belong to it.
type CategoryFixture struct {
	Name      string       `json:"name"`
	DailyRate int          `json:"dailyRate"`
	Cars      []CarFixture `json:"cars"`
}

// CarFixture is one fleet car.
type CarFixture struct {
	PlateNumber string `json:"plateNumber"`
	Type        string `json:"type"`
	Odometer    int    `json:"odometer"`
	Available   *bool  `json:"available,omitempty"`
	Description string `json:"description"`
}

// UserFixture is an account with a clear-text password.
type UserFixture struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
	Description string `json:"description"`
	AccessLevel string `json:"accessLevel"`
}

// Result counts the rows Apply created.
type Result struct {
	Categories int `json:"categories"`
	Cars       int `json:"cars"`
	Users      int `json:"users"`
}

// Changed reports whether anything was written.
func (r Result) Changed() bool {
	return r.Categories+r.Cars+r.Users > 0
}

// Load reads a fixture from a JSON file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &f, nil
}

// Seeder writes fixtures through the repository store.
type Seeder struct {
	store repository.Store
	log   zerolog.Logger
	cost  int
}

// NewSeeder creates a new seeder.
func NewSeeder(store repository.Store, log zerolog.Logger) *Seeder {
	return &Seeder{store: store, log: log, cost: bcrypt.DefaultCost}
}

// Apply inserts every fixture row that does not exist yet, in one
// transaction. Categories match by name, cars by plate and users by email.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		res = Result{}
		for _, cf := range f.Categories {
			if err := s.applyCategory(ctx, tx, cf, &res); err != nil {
				return err
			}
		}
		for _, uf := range f.Users {
			if err := s.applyUser(ctx, tx, uf, &res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.IsDomain(err) {
			return Result{}, err
		}
		return Result{}, errors.Persistence("error seeding data", err)
	}

	s.log.Info().
		Int("categories", res.Categories).
		Int("cars", res.Cars).
		Int("users", res.Users).
		Msg("seed applied")
	return res, nil
}

func (s *Seeder) applyCategory(ctx context.Context, tx repository.Store, cf CategoryFixture, res *Result) error {
	name := strings.TrimSpace(cf.Name)
	if name == "" {
		return errors.Validation("category name is required")
	}
	if cf.DailyRate < 0 {
		return errors.Validation("daily rate must not be negative")
	}

	category, err := tx.Categories().FindByName(ctx, name)
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		category = &model.Category{Name: name, DailyRate: cf.DailyRate}
		if err := tx.Categories().Create(ctx, category); err != nil {
			return err
		}
		res.Categories++
	case err != nil:
		return err
	}

	for _, carFixture := range cf.Cars {
		if err := s.applyCar(ctx, tx, category, carFixture, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) applyCar(ctx context.Context, tx repository.Store, category *model.Category, cf CarFixture, res *Result) error {
	plate := strings.TrimSpace(cf.PlateNumber)
	if plate == "" {
		return errors.Validation("car plate number is required")
	}
	if cf.Odometer < 0 {
		return errors.Validation("odometer must not be negative")
	}

	_, err := tx.Cars().FindByPlate(ctx, plate)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return err
	}

	available := true
	if cf.Available != nil {
		available = *cf.Available
	}
	categoryID := category.ID
	car := &model.Car{
		PlateNumber: plate,
		Type:        cf.Type,
		Odometer:    cf.Odometer,
		Available:   available,
		CategoryID:  &categoryID,
		Description: cf.Description,
	}
	if err := tx.Cars().Create(ctx, car); err != nil {
		return err
	}
	res.Cars++
	return nil
}

func (s *Seeder) applyUser(ctx context.Context, tx repository.Store, uf UserFixture, res *Result) error {
	email := strings.ToLower(strings.TrimSpace(uf.Email))
	if email == "" || uf.Password == "" {
		return errors.Validation("user email and password are required")
	}

	_, err := tx.Users().FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return err
	}

	level := model.AccessUser
	if uf.AccessLevel != "" {
		parsed, ok := model.ParseAccessLevel(uf.AccessLevel)
		if !ok {
			return errors.Validation("unknown access level " + uf.AccessLevel)
		}
		level = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uf.Password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Name:         uf.Name,
		Email:        email,
		Address:      uf.Address,
		PhoneNumber:  uf.PhoneNumber,
		Description:  uf.Description,
		AccessLevel:  level,
		PasswordHash: string(hash),
		Enabled:      true,
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return err
	}
	res.Users++
	return nil
}
