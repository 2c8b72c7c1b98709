package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mindmapapp/mindmap/internal/domain"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/service"
)

func (s *Server) registerDiagramRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listDiagrams",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/mindmaps",
		Summary:     "List diagrams",
		Description: "Returns the caller's diagrams, most recently modified first",
		Tags:        []string{"Mindmaps"},
		Security:    bearerSecurity,
	}, s.handleListDiagrams)

	huma.Register(s.api, huma.Operation{
		OperationID: "listAllDiagrams",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/mindmaps/all",
		Summary:     "List all diagrams",
		Description: "Alias of the list endpoint used by the catalog view",
		Tags:        []string{"Mindmaps"},
		Security:    bearerSecurity,
	}, s.handleListDiagrams)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchDiagrams",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/mindmaps/search",
		Summary:     "Search diagrams",
		Description: "Full-text search over the caller's diagram titles and node labels",
		Tags:        []string{"Mindmaps"},
		Security:    bearerSecurity,
	}, s.handleSearchDiagrams)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDiagram",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/mindmaps/{id}",
		Summary:     "Get diagram",
		Description: "Returns one of the caller's diagrams with its payload",
		Tags:        []string{"Mindmaps"},
		Security:    bearerSecurity,
	}, s.handleGetDiagram)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createDiagram",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/mindmaps",
		Summary:       "Create diagram",
		Description:   "Stores a new diagram owned by the caller",
		Tags:          []string{"Mindmaps"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateDiagram)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateDiagram",
		Method:      http.MethodPut,
		Path:        apiPrefix + "/mindmaps",
		Summary:     "Update diagram",
		Description: "Overwrites the title and payload of one of the caller's diagrams",
		Tags:        []string{"Mindmaps"},
		Security:    bearerSecurity,
	}, s.handleUpdateDiagram)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteDiagram",
		Method:      http.MethodDelete,
		Path:        apiPrefix + "/mindmaps/{id}",
		Summary:     "Delete diagram",
		Description: "Removes one of the caller's diagrams",
		Tags:        []string{"Mindmaps"},
		Security:    bearerSecurity,
	}, s.handleDeleteDiagram)
}

// === DTOs ===

// DiagramIDInput carries the diagram id path parameter. It is parsed by the
// handler so that malformed ids get the documented message.
type DiagramIDInput struct {
	ID string `path:"id" doc:"Numeric diagram ID"`
}

// SearchDiagramsInput contains the search query.
type SearchDiagramsInput struct {
	Query string `query:"q" maxLength:"200" doc:"Search text; empty lists everything"`
}

// DiagramResponse is a full diagram record.
type DiagramResponse struct {
	ID                 int64     `json:"id" doc:"Diagram ID"`
	UsuarioID          string    `json:"usuario_id" doc:"Owner user ID"`
	Titulo             string    `json:"titulo" doc:"Title"`
	DatosJSON          string    `json:"datos_json" doc:"Serialized graph"`
	FechaCreacion      time.Time `json:"fecha_creacion" doc:"Creation time"`
	UltimaModificacion time.Time `json:"ultima_modificacion" doc:"Last modification time"`
}

// DiagramOutput wraps a diagram for Huma.
type DiagramOutput struct {
	Body DiagramResponse
}

// DiagramListResponse is the catalog listing.
type DiagramListResponse struct {
	Mapas []DiagramResponse `json:"mapas" doc:"Diagrams, newest first"`
}

// DiagramListOutput wraps the listing for Huma.
type DiagramListOutput struct {
	Body DiagramListResponse
}

// CreateDiagramRequest is the body of a create.
type CreateDiagramRequest struct {
	Titulo    string `json:"titulo" required:"false" doc:"Title, 1..255 characters"`
	DatosJSON string `json:"datos_json" required:"false" doc:"Serialized graph; must be a JSON object"`
}

// CreateDiagramInput wraps the create request for Huma.
type CreateDiagramInput struct {
	Body CreateDiagramRequest
}

// DiagramSavedResponse acknowledges a create or update.
type DiagramSavedResponse struct {
	ID                 int64     `json:"id" doc:"Diagram ID"`
	UsuarioID          string    `json:"usuario_id" doc:"Owner user ID"`
	Titulo             string    `json:"titulo" doc:"Stored title"`
	FechaCreacion      time.Time `json:"fecha_creacion,omitzero" doc:"Creation time (create only)"`
	UltimaModificacion time.Time `json:"ultima_modificacion" doc:"Modification time"`
	Message            string    `json:"message" doc:"Status message"`
}

// DiagramSavedOutput wraps the acknowledgement for Huma.
type DiagramSavedOutput struct {
	Body DiagramSavedResponse
}

// UpdateDiagramRequest is the body of an update.
type UpdateDiagramRequest struct {
	ID        int64  `json:"id" required:"false" doc:"Diagram ID"`
	Titulo    string `json:"titulo" required:"false" doc:"Title, 1..255 characters"`
	DatosJSON string `json:"datos_json" required:"false" doc:"Serialized graph; must be a JSON object"`
}

// UpdateDiagramInput wraps the update request for Huma.
type UpdateDiagramInput struct {
	Body UpdateDiagramRequest
}

// DiagramDeletedResponse acknowledges a delete.
type DiagramDeletedResponse struct {
	ID      int64  `json:"id" doc:"Deleted diagram ID"`
	Message string `json:"message" doc:"Status message"`
}

// DiagramDeletedOutput wraps the acknowledgement for Huma.
type DiagramDeletedOutput struct {
	Body DiagramDeletedResponse
}

// === Handlers ===

func (s *Server) handleListDiagrams(ctx context.Context, _ *struct{}) (*DiagramListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	diagrams, err := s.services.Diagram.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &DiagramListOutput{Body: DiagramListResponse{Mapas: mapDiagrams(diagrams)}}, nil
}

func (s *Server) handleSearchDiagrams(ctx context.Context, input *SearchDiagramsInput) (*DiagramListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	diagrams, err := s.services.Diagram.Search(ctx, userID, input.Query)
	if err != nil {
		return nil, err
	}
	return &DiagramListOutput{Body: DiagramListResponse{Mapas: mapDiagrams(diagrams)}}, nil
}

func (s *Server) handleGetDiagram(ctx context.Context, input *DiagramIDInput) (*DiagramOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseDiagramID(input.ID)
	if err != nil {
		return nil, err
	}

	d, err := s.services.Diagram.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return &DiagramOutput{Body: mapDiagram(d)}, nil
}

func (s *Server) handleCreateDiagram(ctx context.Context, input *CreateDiagramInput) (*DiagramSavedOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	d, err := s.services.Diagram.Create(ctx, userID, service.CreateDiagramRequest{
		Titulo:    input.Body.Titulo,
		DatosJSON: input.Body.DatosJSON,
	})
	if err != nil {
		return nil, err
	}

	return &DiagramSavedOutput{Body: DiagramSavedResponse{
		ID:                 d.ID,
		UsuarioID:          d.UsuarioID,
		Titulo:             d.Titulo,
		FechaCreacion:      d.FechaCreacion,
		UltimaModificacion: d.UltimaModificacion,
		Message:            "Map created successfully",
	}}, nil
}

func (s *Server) handleUpdateDiagram(ctx context.Context, input *UpdateDiagramInput) (*DiagramSavedOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	d, err := s.services.Diagram.Update(ctx, userID, service.UpdateDiagramRequest{
		ID:        input.Body.ID,
		Titulo:    input.Body.Titulo,
		DatosJSON: input.Body.DatosJSON,
	})
	if err != nil {
		return nil, err
	}

	return &DiagramSavedOutput{Body: DiagramSavedResponse{
		ID:                 d.ID,
		UsuarioID:          d.UsuarioID,
		Titulo:             d.Titulo,
		UltimaModificacion: d.UltimaModificacion,
		Message:            "Map updated successfully",
	}}, nil
}

func (s *Server) handleDeleteDiagram(ctx context.Context, input *DiagramIDInput) (*DiagramDeletedOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseDiagramID(input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Diagram.Delete(ctx, userID, id); err != nil {
		return nil, err
	}
	return &DiagramDeletedOutput{Body: DiagramDeletedResponse{ID: id, Message: "Map deleted successfully"}}, nil
}

// === Helpers ===

func parseDiagramID(raw string) (int64, error) {
	if raw == "" {
		return 0, domainerrors.Validation("Map ID required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domainerrors.Validation("Invalid map ID")
	}
	return id, nil
}

func mapDiagram(d *domain.Diagram) DiagramResponse {
	return DiagramResponse{
		ID:                 d.ID,
		UsuarioID:          d.UsuarioID,
		Titulo:             d.Titulo,
		DatosJSON:          d.DatosJSON,
		FechaCreacion:      d.FechaCreacion,
		UltimaModificacion: d.UltimaModificacion,
	}
}

func mapDiagrams(diagrams []*domain.Diagram) []DiagramResponse {
	out := make([]DiagramResponse, len(diagrams))
	for i, d := range diagrams {
		out[i] = mapDiagram(d)
	}
	return out
}
