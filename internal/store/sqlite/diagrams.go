package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mindmapapp/mindmap/internal/domain"
	"github.com/mindmapapp/mindmap/internal/sse"
	"github.com/mindmapapp/mindmap/internal/store"
)

// diagramColumns must match the scan order in scanDiagram.
const diagramColumns = `id, usuario_id, titulo, datos_json, fecha_creacion, ultima_modificacion`

func scanDiagram(scanner interface{ Scan(dest ...any) error }) (*domain.Diagram, error) {
	var (
		d        domain.Diagram
		created  string
		modified string
	)

	err := scanner.Scan(&d.ID, &d.UsuarioID, &d.Titulo, &d.DatosJSON, &created, &modified)
	if err != nil {
		return nil, err
	}

	if d.FechaCreacion, err = parseTime(created); err != nil {
		return nil, err
	}
	if d.UltimaModificacion, err = parseTime(modified); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDiagrams(rows *sql.Rows) ([]*domain.Diagram, error) {
	defer rows.Close()

	diagrams := []*domain.Diagram{}
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, err
		}
		diagrams = append(diagrams, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return diagrams, nil
}

// CreateDiagram inserts d and assigns its ID. Zero timestamps are set to now.
func (s *Store) CreateDiagram(ctx context.Context, d *domain.Diagram) error {
	now := time.Now().UTC()
	if d.FechaCreacion.IsZero() {
		d.FechaCreacion = now
	}
	if d.UltimaModificacion.IsZero() {
		d.UltimaModificacion = d.FechaCreacion
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO diagrams (usuario_id, titulo, datos_json, fecha_creacion, ultima_modificacion)
		VALUES (?, ?, ?, ?, ?)`,
		d.UsuarioID,
		d.Titulo,
		d.DatosJSON,
		formatTime(d.FechaCreacion),
		formatTime(d.UltimaModificacion),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return store.ErrNotFound.WithMessage("owner not found")
		}
		return fmt.Errorf("insert diagram: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("read diagram id: %w", err)
	}
	d.ID = id

	s.afterWrite(ctx, d)
	s.emitter.Emit(sse.NewDiagramCreatedEvent(d))
	return nil
}

// GetDiagram retrieves a diagram owned by ownerID.
// Returns store.ErrNotFound if it does not exist or belongs to someone else.
func (s *Store) GetDiagram(ctx context.Context, id int64, ownerID string) (*domain.Diagram, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+diagramColumns+` FROM diagrams WHERE id = ? AND usuario_id = ?`, id, ownerID)

	d, err := scanDiagram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDiagram overwrites the title and payload of a diagram owned by d.UsuarioID
// and bumps its modification time. On success d is refreshed from the database.
// Returns store.ErrNotFound if the diagram is absent or owned by someone else.
func (s *Store) UpdateDiagram(ctx context.Context, d *domain.Diagram) error {
	modified := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE diagrams SET titulo = ?, datos_json = ?, ultima_modificacion = ?
		WHERE id = ? AND usuario_id = ?`,
		d.Titulo, d.DatosJSON, formatTime(modified), d.ID, d.UsuarioID)
	if err != nil {
		return fmt.Errorf("update diagram: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	fresh, err := s.GetDiagram(ctx, d.ID, d.UsuarioID)
	if err != nil {
		return err
	}
	*d = *fresh

	s.afterWrite(ctx, d)
	s.emitter.Emit(sse.NewDiagramUpdatedEvent(d))
	return nil
}

// DeleteDiagram removes a diagram owned by ownerID.
// Returns store.ErrNotFound if it does not exist or belongs to someone else.
func (s *Store) DeleteDiagram(ctx context.Context, id int64, ownerID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM diagrams WHERE id = ? AND usuario_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	if err := s.searchIndexer.DeleteDiagram(ctx, id); err != nil {
		s.logger.Warn("failed to remove diagram from search index",
			"diagram_id", id,
			"error", err,
		)
	}
	s.emitter.Emit(sse.NewDiagramDeletedEvent(ownerID, id))
	return nil
}

// ListDiagrams returns every diagram owned by ownerID, most recently modified first.
func (s *Store) ListDiagrams(ctx context.Context, ownerID string) ([]*domain.Diagram, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+diagramColumns+` FROM diagrams
		WHERE usuario_id = ?
		ORDER BY ultima_modificacion DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanDiagrams(rows)
}

// GetDiagramsByIDs returns the diagrams among ids owned by ownerID, in the order
// of ids. Unknown or foreign ids are skipped.
func (s *Store) GetDiagramsByIDs(ctx context.Context, ownerID string, ids []int64) ([]*domain.Diagram, error) {
	if len(ids) == 0 {
		return []*domain.Diagram{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+diagramColumns+` FROM diagrams
		WHERE usuario_id = ? AND id IN (`+placeholders[:len(placeholders)-1]+`)`, args...)
	if err != nil {
		return nil, err
	}
	found, err := scanDiagrams(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.Diagram, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}
	ordered := make([]*domain.Diagram, 0, len(found))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// ListAllDiagrams returns every diagram regardless of owner. Used to rebuild
// the search index.
func (s *Store) ListAllDiagrams(ctx context.Context) ([]*domain.Diagram, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+diagramColumns+` FROM diagrams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanDiagrams(rows)
}

// afterWrite keeps the search index in step with a written diagram. Index
// failures are logged; the row is already committed.
func (s *Store) afterWrite(ctx context.Context, d *domain.Diagram) {
	if err := s.searchIndexer.IndexDiagram(ctx, d); err != nil {
		s.logger.Warn("failed to index diagram",
			"diagram_id", d.ID,
			"error", err,
		)
	}
}
