package api

import (
	"github.com/mindmapapp/mindmap/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Auth    *service.AuthService
	Diagram *service.DiagramService
	Search  *service.SearchService // nil disables index health reporting
}
