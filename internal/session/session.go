// Package session holds the authenticated identity of the editor client.
//
// A Session is created at start-up, restored from the device store, and torn
// down at logout. The user and token are cached under the device keys
// mindmap_user and mindmap_jwt.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/remote"
	"github.com/mindmapapp/mindmap/internal/snapshot"
	"github.com/mindmapapp/mindmap/internal/validation"
)

// Device keys.
const (
	UserKey  = "mindmap_user"
	TokenKey = "mindmap_jwt"
)

var (
	// ErrCorrupt reports a cached session that could not be read back. The
	// cache has already been cleared when it is returned.
	ErrCorrupt = domainerrors.Validation("stored session was corrupt and has been cleared")
	// ErrNotLoggedIn is returned by operations that need an identity.
	ErrNotLoggedIn = domainerrors.Unauthorized("please log in")
)

// User is the authenticated identity.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Store is the device key-value store. *snapshot.Store implements it.
type Store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Backend is the remote side of authentication. *remote.Client implements it.
type Backend interface {
	Login(ctx context.Context, email, password string) (*remote.AuthResult, error)
	Register(ctx context.Context, nombre, email, password string) (*remote.AuthResult, error)
	Logout(ctx context.Context) error
	SetToken(token string)
	OnUnauthorized(fn func(ctx context.Context))
}

type loginForm struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type registerForm struct {
	Nombre   string `json:"nombre" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Session is the explicit authentication context threaded through the client.
type Session struct {
	store     Store
	backend   Backend
	validator *validation.Validator
	logger    *slog.Logger

	mu    sync.RWMutex
	user  *User
	token string
}

// New creates an empty session and subscribes it to the backend's 401s.
func New(store Store, backend Backend, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		store:     store,
		backend:   backend,
		validator: validation.New(),
		logger:    logger,
	}
	backend.OnUnauthorized(s.expire)
	return s
}

// Restore loads the cached identity. A missing cache leaves the session
// anonymous. A half-written or undecodable cache is cleared and reported
// with ErrCorrupt.
func (s *Session) Restore(ctx context.Context) error {
	var (
		user  User
		token string
	)
	userErr := s.store.Get(ctx, UserKey, &user)
	tokenErr := s.store.Get(ctx, TokenKey, &token)

	if errors.Is(userErr, snapshot.ErrNotFound) && errors.Is(tokenErr, snapshot.ErrNotFound) {
		return nil
	}
	if userErr != nil || tokenErr != nil || user.ID == "" || token == "" {
		s.logger.Warn("clearing corrupt session cache",
			"user_error", userErr,
			"token_error", tokenErr,
		)
		if err := s.clear(ctx); err != nil {
			return err
		}
		return ErrCorrupt
	}

	s.set(&user, token)
	return nil
}

// Login authenticates with the service and caches the result.
// Missing credentials are rejected before any network call.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	form := loginForm{Email: strings.TrimSpace(email), Password: password}
	if err := s.validator.Validate(form); err != nil {
		return User{}, err
	}

	res, err := s.backend.Login(ctx, form.Email, form.Password)
	if err != nil {
		return User{}, err
	}
	return s.adopt(ctx, res)
}

// Register creates an account and logs into it.
func (s *Session) Register(ctx context.Context, nombre, email, password string) (User, error) {
	form := registerForm{Nombre: strings.TrimSpace(nombre), Email: strings.TrimSpace(email), Password: password}
	if err := s.validator.Validate(form); err != nil {
		return User{}, err
	}

	res, err := s.backend.Register(ctx, form.Nombre, form.Email, form.Password)
	if err != nil {
		return User{}, err
	}
	return s.adopt(ctx, res)
}

// Logout tells the service (best effort) and tears the session down.
func (s *Session) Logout(ctx context.Context) error {
	if _, ok := s.Current(); ok {
		if err := s.backend.Logout(ctx); err != nil {
			s.logger.Warn("remote logout failed", "error", err)
		}
	}
	return s.clear(ctx)
}

// Current returns the authenticated user, if any.
func (s *Session) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Token returns the bearer token, empty when anonymous.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UpdateUser replaces the cached identity after a profile change.
func (s *Session) UpdateUser(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ErrNotLoggedIn
	}
	if err := s.store.Set(ctx, UserKey, u); err != nil {
		return err
	}
	s.user = &u
	return nil
}

func (s *Session) adopt(ctx context.Context, res *remote.AuthResult) (User, error) {
	user := User{ID: res.User.ID, Name: res.User.Name, Email: res.User.Email}
	if err := s.store.Set(ctx, UserKey, user); err != nil {
		return User{}, err
	}
	if err := s.store.Set(ctx, TokenKey, res.Token); err != nil {
		return User{}, err
	}
	s.set(&user, res.Token)
	return user, nil
}

func (s *Session) set(user *User, token string) {
	s.mu.Lock()
	s.user = user
	s.token = token
	s.mu.Unlock()
	s.backend.SetToken(token)
}

func (s *Session) clear(ctx context.Context) error {
	s.set(nil, "")
	if err := s.store.Delete(ctx, UserKey); err != nil {
		return err
	}
	return s.store.Delete(ctx, TokenKey)
}

// expire drops a token the service rejected.
func (s *Session) expire(ctx context.Context) {
	s.logger.Info("session expired, please log in again")
	if err := s.clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("failed to clear expired session", "error", err)
	}
}
