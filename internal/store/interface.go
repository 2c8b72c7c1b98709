// Package store defines the persistence interface for the diagram server.
package store

import (
	"context"

	"github.com/mindmapapp/mindmap/internal/domain"
)

// Store defines the interface for all server-side persistence operations.
// Diagram operations are owner-scoped: a diagram owned by someone else is
// reported as ErrNotFound.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error
	SetSearchIndexer(indexer SearchIndexer)
	SetEmitter(emitter EventEmitter)

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error

	// Diagrams
	CreateDiagram(ctx context.Context, d *domain.Diagram) error
	GetDiagram(ctx context.Context, id int64, ownerID string) (*domain.Diagram, error)
	UpdateDiagram(ctx context.Context, d *domain.Diagram) error
	DeleteDiagram(ctx context.Context, id int64, ownerID string) error
	ListDiagrams(ctx context.Context, ownerID string) ([]*domain.Diagram, error)
	GetDiagramsByIDs(ctx context.Context, ownerID string, ids []int64) ([]*domain.Diagram, error)
	ListAllDiagrams(ctx context.Context) ([]*domain.Diagram, error)
}

// EventEmitter is the interface for emitting SSE events.
// Store uses this to broadcast changes without depending on SSE delivery details.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// SearchIndexer keeps the full-text index in sync with stored diagrams.
type SearchIndexer interface {
	IndexDiagram(ctx context.Context, d *domain.Diagram) error
	DeleteDiagram(ctx context.Context, id int64) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexDiagram is a no-op.
func (NoopSearchIndexer) IndexDiagram(context.Context, *domain.Diagram) error { return nil }

// DeleteDiagram is a no-op.
func (NoopSearchIndexer) DeleteDiagram(context.Context, int64) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer { return NoopSearchIndexer{} }
