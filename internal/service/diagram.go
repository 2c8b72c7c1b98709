package service

import (
	"context"
	"encoding/json/jsontext"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindmapapp/mindmap/internal/domain"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/logger"
	"github.com/mindmapapp/mindmap/internal/store"
	"github.com/mindmapapp/mindmap/internal/validation"
)

// Error messages shared with clients; the editor shows them verbatim.
const (
	msgMapNotFound     = "Map not found"
	msgMapNotOwned     = "Map not found or not owned by user"
	msgInvalidTitle    = "Title must be between 1 and 255 characters"
	msgInvalidJSON     = "Invalid JSON data"
	msgMapIDRequired   = "Map ID is required for update"
	msgPayloadTooLarge = "Diagram data exceeds the maximum size"
)

const (
	maxPayloadBytes     = 4 << 20
	defaultSearchResult = 50
)

// DiagramSearcher finds diagram ids for an owner's query.
type DiagramSearcher interface {
	SearchDiagramIDs(ctx context.Context, ownerID, query string, limit int) ([]int64, error)
}

// DiagramService implements the owner-scoped diagram CRUD behind /mindmaps.
type DiagramService struct {
	store    store.Store
	searcher DiagramSearcher
	logger   *slog.Logger
}

// NewDiagramService creates a diagram service. searcher may be nil, in which
// case Search falls back to a title scan.
func NewDiagramService(store store.Store, searcher DiagramSearcher, log *slog.Logger) *DiagramService {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &DiagramService{
		store:    store,
		searcher: searcher,
		logger:   log,
	}
}

// CreateDiagramRequest is the body of POST /mindmaps.
type CreateDiagramRequest struct {
	Titulo    string `json:"titulo"`
	DatosJSON string `json:"datos_json"`
}

// UpdateDiagramRequest is the body of PUT /mindmaps.
type UpdateDiagramRequest struct {
	ID        int64  `json:"id"`
	Titulo    string `json:"titulo"`
	DatosJSON string `json:"datos_json"`
}

// Create stores a new diagram for ownerID.
func (s *DiagramService) Create(ctx context.Context, ownerID string, req CreateDiagramRequest) (*domain.Diagram, error) {
	if err := validateDiagramInput(req.Titulo, req.DatosJSON); err != nil {
		return nil, err
	}

	d := &domain.Diagram{
		UsuarioID: ownerID,
		Titulo:    strings.TrimSpace(req.Titulo),
		DatosJSON: req.DatosJSON,
	}
	if err := s.store.CreateDiagram(ctx, d); err != nil {
		return nil, fmt.Errorf("create diagram: %w", err)
	}

	s.log(d.ID).Info("Diagram created", "user_id", ownerID, "bytes", len(d.DatosJSON))
	return d, nil
}

// Get returns diagram id if ownerID owns it.
func (s *DiagramService) Get(ctx context.Context, ownerID string, id int64) (*domain.Diagram, error) {
	d, err := s.store.GetDiagram(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound(msgMapNotFound)
		}
		return nil, fmt.Errorf("get diagram: %w", err)
	}
	return d, nil
}

// List returns ownerID's diagrams, most recently modified first.
func (s *DiagramService) List(ctx context.Context, ownerID string) ([]*domain.Diagram, error) {
	diagrams, err := s.store.ListDiagrams(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	return diagrams, nil
}

// Update overwrites title and payload of a diagram ownerID owns.
func (s *DiagramService) Update(ctx context.Context, ownerID string, req UpdateDiagramRequest) (*domain.Diagram, error) {
	if req.ID <= 0 {
		return nil, domainerrors.ValidationWithDetails(msgMapIDRequired, map[string]string{"id": "is required"})
	}
	if err := validateDiagramInput(req.Titulo, req.DatosJSON); err != nil {
		return nil, err
	}

	d := &domain.Diagram{
		ID:        req.ID,
		UsuarioID: ownerID,
		Titulo:    strings.TrimSpace(req.Titulo),
		DatosJSON: req.DatosJSON,
	}
	if err := s.store.UpdateDiagram(ctx, d); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound(msgMapNotOwned)
		}
		return nil, fmt.Errorf("update diagram: %w", err)
	}

	s.log(d.ID).Info("Diagram updated", "user_id", ownerID, "bytes", len(d.DatosJSON))
	return d, nil
}

// Delete removes a diagram ownerID owns.
func (s *DiagramService) Delete(ctx context.Context, ownerID string, id int64) error {
	if err := s.store.DeleteDiagram(ctx, id, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound(msgMapNotOwned)
		}
		return fmt.Errorf("delete diagram: %w", err)
	}

	s.log(id).Info("Diagram deleted", "user_id", ownerID)
	return nil
}

// Search returns ownerID's diagrams matching query in title or node labels.
func (s *DiagramService) Search(ctx context.Context, ownerID, query string) ([]*domain.Diagram, error) {
	if strings.TrimSpace(query) == "" {
		return s.List(ctx, ownerID)
	}

	if s.searcher == nil {
		return s.scanTitles(ctx, ownerID, query)
	}

	ids, err := s.searcher.SearchDiagramIDs(ctx, ownerID, query, defaultSearchResult)
	if err != nil {
		s.logger.Warn("search index failed, falling back to title scan", "error", err)
		return s.scanTitles(ctx, ownerID, query)
	}
	return s.store.GetDiagramsByIDs(ctx, ownerID, ids)
}

func (s *DiagramService) scanTitles(ctx context.Context, ownerID, query string) ([]*domain.Diagram, error) {
	all, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	matches := []*domain.Diagram{}
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.Titulo), needle) {
			matches = append(matches, d)
		}
	}
	return matches, nil
}

func (s *DiagramService) log(id int64) *logger.Logger {
	return (&logger.Logger{Logger: s.logger}).WithDiagram(id)
}

// validateDiagramInput enforces the title length and that the payload is a JSON object.
func validateDiagramInput(titulo, datosJSON string) error {
	if !validation.ValidTitle(titulo) {
		return domainerrors.ValidationWithDetails(msgInvalidTitle, map[string]string{"titulo": msgInvalidTitle})
	}
	if len(datosJSON) > maxPayloadBytes {
		return domainerrors.ValidationWithDetails(msgPayloadTooLarge, map[string]string{"datos_json": msgPayloadTooLarge})
	}
	v := jsontext.Value(datosJSON)
	if !v.IsValid() || v.Kind() != '{' {
		return domainerrors.ValidationWithDetails(msgInvalidJSON, map[string]string{"datos_json": msgInvalidJSON})
	}
	return nil
}
