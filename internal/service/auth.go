// Package service holds the diagram server's business logic, sitting between
// the HTTP handlers and the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mindmapapp/mindmap/internal/auth"
	"github.com/mindmapapp/mindmap/internal/domain"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/id"
	"github.com/mindmapapp/mindmap/internal/store"
	"github.com/mindmapapp/mindmap/internal/validation"
)

// AuthService handles accounts and bearer tokens.
type AuthService struct {
	store     store.Store
	tokens    *auth.TokenService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(store store.Store, tokens *auth.TokenService, validator *validation.Validator, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{
		store:     store,
		tokens:    tokens,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Nombre   string `json:"nombre" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=1024"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest changes the caller's display name and/or password.
// Nil fields are left alone.
type UpdateProfileRequest struct {
	Nombre   *string `json:"nombre,omitempty" validate:"omitnil,notblank,max=100"`
	Password *string `json:"password,omitempty" validate:"omitnil,min=6,max=1024"`
}

// UserView is the public projection of a user sent to clients.
type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewUserView projects u for clients.
func NewUserView(u *domain.User) UserView {
	return UserView{ID: u.ID, Name: u.Nombre, Email: u.Email}
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      UserView
	Token     string
	ExpiresIn time.Duration
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           userID,
		Nombre:       strings.TrimSpace(req.Nombre),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.ConflictWithFields("Email already registered",
				map[string]string{"email": "Email already registered"})
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return s.issue(user)
}

// Login verifies credentials and returns a fresh token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, domainerrors.Validation("Email and password required").WithCause(err)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("Invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("Invalid credentials")
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{
		User:      NewUserView(user),
		Token:     token,
		ExpiresIn: s.tokens.TokenDuration(),
	}, nil
}

// VerifyToken validates a bearer token and returns its user.
// Used by the authentication middleware.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("Invalid or expired token").WithCause(err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("Invalid or expired token")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	return user, claims, nil
}

// CurrentUser returns the profile of userID.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*UserView, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	view := NewUserView(user)
	return &view, nil
}

// UpdateProfile applies req to userID's account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if req.Nombre != nil {
		user.Nombre = strings.TrimSpace(*req.Nombre)
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("User profile updated", "user_id", user.ID, "password_changed", req.Password != nil)
	view := NewUserView(user)
	return &view, nil
}
