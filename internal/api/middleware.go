package api

import (
	"net/http"

	"github.com/mindmapapp/mindmap/internal/http/response"
)

// requireAuth guards plain chi routes that live outside huma.
// Must run after authMiddleware.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := GetUserID(r.Context()); err != nil {
			response.Unauthorized(w, msgInvalidToken, s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}
