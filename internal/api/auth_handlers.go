package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mindmapapp/mindmap/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/auth/register",
		Summary:       "Register new user",
		Description:   "Creates an account and returns a token for it",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns a bearer token",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyToken",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/auth/verify",
		Summary:     "Verify token",
		Description: "Reports whether the presented token is still valid",
		Tags:        []string{"Authentication"},
		Security:    bearerSecurity,
	}, s.handleVerify)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/logout",
		Summary:     "Logout",
		Description: "Expires the session cookie. Bearer tokens are stateless; clients discard their copy.",
		Tags:        []string{"Authentication"},
	}, s.handleLogout)
}

// === DTOs ===

// RegisterRequest is the request body for user registration.
// Fields are checked by the service so that failures carry field messages.
type RegisterRequest struct {
	Nombre   string `json:"nombre" required:"false" doc:"Display name"`
	Email    string `json:"email" required:"false" doc:"User email address"`
	Password string `json:"password" required:"false" doc:"User password (at least 6 characters)"`
}

// RegisterInput wraps the register request for Huma.
type RegisterInput struct {
	Body RegisterRequest
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" required:"false" doc:"User email"`
	Password string `json:"password" required:"false" doc:"User password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// UserResponse contains user information in auth responses.
type UserResponse struct {
	ID    string `json:"id" doc:"User ID"`
	Name  string `json:"name" doc:"Display name"`
	Email string `json:"email" doc:"User email"`
}

// AuthResponse contains the token and the signed-in user.
type AuthResponse struct {
	User      UserResponse `json:"user" doc:"Authenticated user"`
	Token     string       `json:"token" doc:"PASETO bearer token"`
	ExpiresIn int          `json:"expires_in" doc:"Token expiry in seconds"`
	Message   string       `json:"message,omitempty" doc:"Status message"`
}

// AuthOutput wraps the auth response for Huma. The token is also set as a cookie
// for browser clients.
type AuthOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      AuthResponse
}

// VerifyResponse reports token validity.
type VerifyResponse struct {
	Valid     bool         `json:"valid" doc:"Always true; invalid tokens get 401"`
	User      UserResponse `json:"user" doc:"Token subject"`
	ExpiresAt time.Time    `json:"expires_at" doc:"Token expiry"`
}

// VerifyOutput wraps the verify response for Huma.
type VerifyOutput struct {
	Body VerifyResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// LogoutOutput wraps the logout response for Huma.
type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      MessageResponse
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	res, err := s.services.Auth.Register(ctx, service.RegisterRequest{
		Nombre:   input.Body.Nombre,
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	out := s.authOutput(res)
	out.Body.Message = "User registered successfully"
	return out, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	res, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return s.authOutput(res), nil
}

func (s *Server) handleVerify(ctx context.Context, _ *struct{}) (*VerifyOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := VerifyResponse{Valid: true, User: mapUser(*user)}
	if claims := getClaims(ctx); claims != nil {
		resp.ExpiresAt = claims.Expiration.UTC()
	}
	return &VerifyOutput{Body: resp}, nil
}

func (s *Server) handleLogout(_ context.Context, _ *struct{}) (*LogoutOutput, error) {
	cookie := s.sessionCookie("", -1)
	return &LogoutOutput{
		SetCookie: cookie,
		Body:      MessageResponse{Message: "Logged out successfully"},
	}, nil
}

// === Helpers ===

func (s *Server) authOutput(res *service.AuthResult) *AuthOutput {
	expiresIn := int(res.ExpiresIn / time.Second)
	return &AuthOutput{
		SetCookie: s.sessionCookie(res.Token, expiresIn),
		Body: AuthResponse{
			User:      mapUser(res.User),
			Token:     res.Token,
			ExpiresIn: expiresIn,
		},
	}
}

// sessionCookie builds the token cookie. A negative maxAge expires it.
func (s *Server) sessionCookie(value string, maxAge int) http.Cookie {
	return http.Cookie{
		Name:     s.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func mapUser(u service.UserView) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}
