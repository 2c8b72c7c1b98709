package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/validation"
)

type registerForm struct {
	Nombre   string `json:"nombre" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=1024"`
}

type diagramForm struct {
	Titulo   string `json:"titulo" validate:"title"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,httpurl"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(registerForm{Nombre: "Ana", Email: "ana@example.com", Password: "secreto1"}))
	assert.NoError(t, v.Validate(diagramForm{Titulo: "Plan A", ImageURL: "https://img.example.com/a.png"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		form      any
		wantField string
	}{
		{"blank name", registerForm{Nombre: "   ", Email: "ana@example.com", Password: "secreto1"}, "nombre"},
		{"invalid email", registerForm{Nombre: "Ana", Email: "not-an-email", Password: "secreto1"}, "email"},
		{"short password", registerForm{Nombre: "Ana", Email: "ana@example.com", Password: "abc"}, "password"},
		{"blank title", diagramForm{Titulo: "  "}, "titulo"},
		{"long title", diagramForm{Titulo: strings.Repeat("a", 256)}, "titulo"},
		{"relative image url", diagramForm{Titulo: "ok", ImageURL: "/img/a.png"}, "imageUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.form)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Contains(t, domainErr.Fields(), tt.wantField)
			assert.True(t, strings.HasPrefix(domainErr.Message, tt.wantField))
		})
	}
}

func TestValidator_MultipleFields(t *testing.T) {
	v := validation.New()

	err := v.Validate(registerForm{})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "validation failed", domainErr.Message)
	assert.Len(t, domainErr.Fields(), 3)
	assert.Equal(t, "is required", domainErr.Fields()["email"])
}

func TestValidTitle(t *testing.T) {
	assert.True(t, validation.ValidTitle("Plan A"))
	assert.True(t, validation.ValidTitle(strings.Repeat("ñ", 255)))
	assert.False(t, validation.ValidTitle(strings.Repeat("ñ", 256)))
	assert.False(t, validation.ValidTitle(" \t "))
}

func TestValidImageURL(t *testing.T) {
	assert.True(t, validation.ValidImageURL("http://example.com/a.png"))
	assert.False(t, validation.ValidImageURL("ftp://example.com/a.png"))
	assert.False(t, validation.ValidImageURL("example.com/a.png"))
	assert.False(t, validation.ValidImageURL(""))
}
