package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"carrental/internal/cache"
	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

// UserUpdate is one typed change to a user's profile.
type UserUpdate interface {
	isUserUpdate()
}

type (
	SetName        string
	SetEmail       string
	SetAddress     string
	SetPhoneNumber string
	SetDescription string
	SetAccessLevel model.AccessLevel
)

func (SetName) isUserUpdate()        {}
func (SetEmail) isUserUpdate()       {}
func (SetAddress) isUserUpdate()     {}
func (SetPhoneNumber) isUserUpdate() {}
func (SetDescription) isUserUpdate() {}
func (SetAccessLevel) isUserUpdate() {}

// ParseUserUpdate maps a {property, value} pair onto a UserUpdate.
func ParseUserUpdate(property, value string) (UserUpdate, error) {
	switch strings.ToLower(strings.TrimSpace(property)) {
	case "name":
		return SetName(value), nil
	case "email":
		return SetEmail(value), nil
	case "address":
		return SetAddress(value), nil
	case "phonenumber", "phone_number", "phone":
		return SetPhoneNumber(value), nil
	case "description":
		return SetDescription(value), nil
	case "accesslevel", "access_level":
		level, ok := model.ParseAccessLevel(value)
		if !ok {
			return nil, errors.Validation("unknown access level " + value)
		}
		return SetAccessLevel(level), nil
	}
	return nil, errors.Validation("property " + property + " cannot be updated")
}

// UserData is a bulk profile fill.
type UserData struct {
	Name        string
	Address     string
	PhoneNumber string
	Description string
}

// UserService handles user accounts.
type UserService interface {
	ListUsers(ctx context.Context) ([]model.UserView, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.UserView, error)
	SearchUsers(ctx context.Context, term string) ([]model.UserView, error)
	UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) (*model.UserView, error)
	// AddUserData fills empty profile fields; populated ones change only with override.
	AddUserData(ctx context.Context, id uuid.UUID, data UserData, override bool) (*model.UserView, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// ActiveUser returns the user when it exists and is enabled.
	ActiveUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	// RenterNames maps every user id, disabled users included, to its name.
	RenterNames(ctx context.Context) (map[uuid.UUID]string, error)
	InvalidateCache(ctx context.Context)
}

type userService struct {
	store    repository.Store
	cache    *cache.Collection[model.UserView]
	validate *validator.Validate
	log      zerolog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store repository.Store, client *cache.Client, policy cache.Policy, log zerolog.Logger) UserService {
	return &userService{
		store:    store,
		cache:    cache.NewCollection[model.UserView](client, cache.KeyUsers, policy, log),
		validate: validator.New(),
		log:      log.With().Str("service", "user").Logger(),
	}
}

func (s *userService) all(ctx context.Context) ([]model.UserView, error) {
	return s.cache.ReadThrough(ctx, func(ctx context.Context) ([]model.UserView, error) {
		users, err := s.store.Users().List(ctx)
		if err != nil {
			return nil, err
		}
		views := make([]model.UserView, 0, len(users))
		for _, u := range users {
			views = append(views, model.NewUserView(u))
		}
		return views, nil
	})
}

func (s *userService) ListUsers(ctx context.Context) ([]model.UserView, error) {
	users, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]model.UserView, 0, len(users))
	for _, u := range users {
		if u.Enabled {
			enabled = append(enabled, u)
		}
	}
	return enabled, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.UserView, error) {
	user, err := s.ActiveUser(ctx, id)
	if err != nil {
		return nil, err
	}
	view := model.NewUserView(*user)
	return &view, nil
}

func (s *userService) SearchUsers(ctx context.Context, term string) ([]model.UserView, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return users, nil
	}
	matches := make([]model.UserView, 0)
	for _, u := range users {
		for _, field := range []string{u.ID.String(), u.Name, u.Email, u.Address, u.Description} {
			if strings.Contains(strings.ToLower(field), term) {
				matches = append(matches, u)
				break
			}
		}
	}
	return matches, nil
}

func (s *userService) ActiveUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return activeUser(ctx, s.store, id)
}

func activeUser(ctx context.Context, store repository.Store, id uuid.UUID) (*model.User, error) {
	user, err := store.Users().FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, errors.ErrUserDeleted
	}
	return user, nil
}

func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) (*model.UserView, error) {
	return s.mutate(ctx, id, func(ctx context.Context, tx repository.Store, user *model.User) error {
		switch u := update.(type) {
		case SetName:
			name := strings.TrimSpace(string(u))
			if name == "" {
				return errors.Validation("name is required")
			}
			user.Name = name
		case SetEmail:
			email := normalizeEmail(string(u))
			if err := s.validate.Var(email, "required,email"); err != nil {
				return errors.Validation("invalid email address")
			}
			if email == user.Email {
				return nil
			}
			if _, err := tx.Users().FindByEmail(ctx, email); err == nil {
				return errors.ErrEmailTaken
			} else if !isNotFound(err) {
				return err
			}
			user.Email = email
		case SetAddress:
			user.Address = string(u)
		case SetPhoneNumber:
			user.PhoneNumber = string(u)
		case SetDescription:
			user.Description = string(u)
		case SetAccessLevel:
			user.AccessLevel = model.AccessLevel(u)
		default:
			return errors.Validation("unsupported user update")
		}
		return nil
	})
}

func (s *userService) AddUserData(ctx context.Context, id uuid.UUID, data UserData, override bool) (*model.UserView, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ repository.Store, user *model.User) error {
		fill(&user.Name, strings.TrimSpace(data.Name), override)
		fill(&user.Address, data.Address, override)
		fill(&user.PhoneNumber, data.PhoneNumber, override)
		fill(&user.Description, data.Description, override)
		return nil
	})
}

func fill(field *string, value string, override bool) {
	if value == "" {
		return
	}
	if *field == "" || override {
		*field = value
	}
}

func (s *userService) mutate(ctx context.Context, id uuid.UUID, apply func(ctx context.Context, tx repository.Store, user *model.User) error) (*model.UserView, error) {
	var updated model.User
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := activeUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := apply(ctx, tx, user); err != nil {
			return err
		}
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		updated = *user
		return nil
	})
	if err != nil {
		return nil, wrapPersistence("error updating user", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("user_id", id.String()).Msg("user updated")
	view := model.NewUserView(updated)
	return &view, nil
}

// DeleteUser disables the account; the row is kept for rental history.
func (s *userService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		user, err := tx.Users().FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return errors.ErrUserNotFound
			}
			return err
		}
		if !user.Enabled {
			return errors.ErrUserAlreadyDeleted
		}
		user.Enabled = false
		user.RefreshToken = ""
		user.RefreshTokenExpiry = nil
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return wrapPersistence("error deleting user", err)
	}

	s.cache.Invalidate(ctx)
	s.log.Info().Str("user_id", id.String()).Msg("user disabled")
	return nil
}

func (s *userService) RenterNames(ctx context.Context) (map[uuid.UUID]string, error) {
	users, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

func (s *userService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
