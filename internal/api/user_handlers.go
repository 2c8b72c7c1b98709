package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mindmapapp/mindmap/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/users/me",
		Summary:     "Get current user",
		Description: "Returns the profile of the authenticated user",
		Tags:        []string{"Users"},
		Security:    bearerSecurity,
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCurrentUser",
		Method:      http.MethodPut,
		Path:        apiPrefix + "/users/me",
		Summary:     "Update current user",
		Description: "Changes the display name and/or password of the authenticated user",
		Tags:        []string{"Users"},
		Security:    bearerSecurity,
	}, s.handleUpdateCurrentUser)
}

// UserOutput wraps a user for Huma.
type UserOutput struct {
	Body UserResponse
}

// UpdateUserRequest changes profile fields. Omitted fields are unchanged.
type UpdateUserRequest struct {
	Nombre   *string `json:"nombre,omitempty" doc:"New display name"`
	Password *string `json:"password,omitempty" doc:"New password"`
}

// UpdateUserInput wraps the update request for Huma.
type UpdateUserInput struct {
	Body UpdateUserRequest
}

// UpdateUserResponse contains the updated user.
type UpdateUserResponse struct {
	User    UserResponse `json:"user" doc:"Updated user"`
	Message string       `json:"message" doc:"Status message"`
}

// UpdateUserOutput wraps the update response for Huma.
type UpdateUserOutput struct {
	Body UpdateUserResponse
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUser(*user)}, nil
}

func (s *Server) handleUpdateCurrentUser(ctx context.Context, input *UpdateUserInput) (*UpdateUserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.UpdateProfile(ctx, userID, service.UpdateProfileRequest{
		Nombre:   input.Body.Nombre,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}

	return &UpdateUserOutput{Body: UpdateUserResponse{
		User:    mapUser(*user),
		Message: "User updated successfully",
	}}, nil
}
