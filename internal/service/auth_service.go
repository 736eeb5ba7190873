package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"carrental/internal/auth"
	"carrental/internal/errors"
	"carrental/internal/model"
	"carrental/internal/repository"
)

const bcryptCost = 10

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Address     string
	PhoneNumber string
}

// AuthResult is returned by every operation that issues tokens.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Expiration   time.Time
	UserID       uuid.UUID
	Name         string
	Email        string
	AccessLevel  model.AccessLevel
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	// Logout revokes the user's refresh token and blacklists the access
	// token tokenID until expiresAt.
	Logout(ctx context.Context, userID uuid.UUID, tokenID string, expiresAt time.Time) error
}

type authService struct {
	store      repository.Store
	users      UserService
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	refreshTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(store repository.Store, users UserService, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, refreshTTL time.Duration, log zerolog.Logger) AuthService {
	if refreshTTL <= 0 {
		refreshTTL = auth.DefaultRefreshTokenExpiry
	}
	return &authService{
		store:      store,
		users:      users,
		jwtService: jwtService,
		tokenStore: tokenStore,
		refreshTTL: refreshTTL,
		log:        log.With().Str("service", "auth").Logger(),
		now:        time.Now,
	}
}

// Register creates a User-level account with a hashed password and signs it in.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return nil, errors.Validation("name, email and password are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		Address:      input.Address,
		PhoneNumber:  input.PhoneNumber,
		AccessLevel:  model.AccessUser,
		PasswordHash: string(hashedPassword),
		Enabled:      true,
	}

	var result *AuthResult
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().FindByEmail(ctx, email); err == nil {
			return errors.ErrEmailTaken
		} else if !isNotFound(err) {
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		result, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, wrapPersistence("error registering user", err)
	}

	s.users.InvalidateCache(ctx)
	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return result, nil
}

// Login authenticates an enabled user and returns fresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, errors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	result, err := s.issue(ctx, s.store, user)
	if err != nil {
		return nil, wrapPersistence("error signing in", err)
	}
	return result, nil
}

// RefreshToken exchanges a live refresh token for a new token pair.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	user, err := s.store.Users().FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !user.Enabled || user.RefreshTokenExpiry == nil || !s.now().Before(*user.RefreshTokenExpiry) {
		return nil, errors.ErrInvalidRefreshToken
	}

	result, err := s.issue(ctx, s.store, user)
	if err != nil {
		return nil, wrapPersistence("error refreshing token", err)
	}
	return result, nil
}

func (s *authService) Logout(ctx context.Context, userID uuid.UUID, tokenID string, expiresAt time.Time) error {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return errors.ErrUserNotFound
		}
		return err
	}

	user.RefreshToken = ""
	user.RefreshTokenExpiry = nil
	if err := s.store.Users().Update(ctx, user); err != nil {
		return errors.Persistence("error signing out", err)
	}

	if err := s.tokenStore.BlacklistAccessToken(ctx, tokenID, expiresAt.Sub(s.now())); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("blacklist access token")
	}
	return nil
}

// issue signs an access token and rotates the stored refresh token.
func (s *authService) issue(ctx context.Context, store repository.Store, user *model.User) (*AuthResult, error) {
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := auth.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	refreshExpiry := s.now().Add(s.refreshTTL)
	user.RefreshToken = refreshToken
	user.RefreshTokenExpiry = &refreshExpiry
	if err := store.Users().Update(ctx, user); err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiration:   expiresAt,
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		AccessLevel:  user.AccessLevel,
	}, nil
}
