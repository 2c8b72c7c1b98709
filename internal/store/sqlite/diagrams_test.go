package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mindmapapp/mindmap/internal/domain"
	"github.com/mindmapapp/mindmap/internal/sse"
	"github.com/mindmapapp/mindmap/internal/store"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(sse.Event))
}

type recordingIndexer struct {
	indexed map[int64]string
	deleted []int64
}

func (r *recordingIndexer) IndexDiagram(_ context.Context, d *domain.Diagram) error {
	r.indexed[d.ID] = d.Titulo
	return nil
}

func (r *recordingIndexer) DeleteDiagram(_ context.Context, id int64) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func newDiagramTestStore(t *testing.T) (*Store, *recordingEmitter, *recordingIndexer) {
	t.Helper()
	s := newTestStore(t)
	ctx := context.Background()
	for _, u := range []*domain.User{
		makeTestUser("user-alice", "alice@example.com"),
		makeTestUser("user-bob", "bob@example.com"),
	} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	em := &recordingEmitter{}
	idx := &recordingIndexer{indexed: map[int64]string{}}
	s.SetEmitter(em)
	s.SetSearchIndexer(idx)
	return s, em, idx
}

const payload = `{"nodes":[],"edges":[]}`

func TestCreateAndGetDiagram(t *testing.T) {
	s, em, idx := newDiagramTestStore(t)
	ctx := context.Background()

	d := &domain.Diagram{UsuarioID: "user-alice", Titulo: "Plan A", DatosJSON: payload}
	if err := s.CreateDiagram(ctx, d); err != nil {
		t.Fatalf("CreateDiagram: %v", err)
	}
	if d.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if d.FechaCreacion.IsZero() || !d.UltimaModificacion.Equal(d.FechaCreacion) {
		t.Errorf("timestamps not initialised: %+v", d)
	}

	got, err := s.GetDiagram(ctx, d.ID, "user-alice")
	if err != nil {
		t.Fatalf("GetDiagram: %v", err)
	}
	if got.Titulo != "Plan A" || got.DatosJSON != payload {
		t.Errorf("unexpected diagram: %+v", got)
	}

	if idx.indexed[d.ID] != "Plan A" {
		t.Errorf("diagram not indexed")
	}
	if len(em.events) != 1 || em.events[0].Type != sse.EventDiagramCreated || em.events[0].UserID != "user-alice" {
		t.Errorf("unexpected events: %+v", em.events)
	}
}

func TestGetDiagram_OwnerScoped(t *testing.T) {
	s, _, _ := newDiagramTestStore(t)
	ctx := context.Background()

	d := &domain.Diagram{UsuarioID: "user-alice", Titulo: "private", DatosJSON: payload}
	if err := s.CreateDiagram(ctx, d); err != nil {
		t.Fatalf("CreateDiagram: %v", err)
	}

	if _, err := s.GetDiagram(ctx, d.ID, "user-bob"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if _, err := s.GetDiagram(ctx, 9999, "user-alice"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestCreateDiagram_UnknownOwner(t *testing.T) {
	s, _, _ := newDiagramTestStore(t)

	err := s.CreateDiagram(context.Background(), &domain.Diagram{UsuarioID: "ghost", Titulo: "x", DatosJSON: payload})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDiagram(t *testing.T) {
	s, em, _ := newDiagramTestStore(t)
	ctx := context.Background()

	d := &domain.Diagram{UsuarioID: "user-alice", Titulo: "v1", DatosJSON: payload}
	if err := s.CreateDiagram(ctx, d); err != nil {
		t.Fatalf("CreateDiagram: %v", err)
	}
	created := d.FechaCreacion

	time.Sleep(2 * time.Millisecond)
	update := &domain.Diagram{ID: d.ID, UsuarioID: "user-alice", Titulo: "v2", DatosJSON: `{"nodes":[{"id":"1"}],"edges":[]}`}
	if err := s.UpdateDiagram(ctx, update); err != nil {
		t.Fatalf("UpdateDiagram: %v", err)
	}

	if update.Titulo != "v2" {
		t.Errorf("Titulo: got %q", update.Titulo)
	}
	if !update.FechaCreacion.Equal(created) {
		t.Errorf("FechaCreacion changed: %v -> %v", created, update.FechaCreacion)
	}
	if !update.UltimaModificacion.After(created) {
		t.Errorf("UltimaModificacion not bumped")
	}
	if last := em.events[len(em.events)-1]; last.Type != sse.EventDiagramUpdated {
		t.Errorf("expected update event, got %s", last.Type)
	}
}

func TestUpdateDiagram_NotOwned(t *testing.T) {
	s, _, _ := newDiagramTestStore(t)
	ctx := context.Background()

	d := &domain.Diagram{UsuarioID: "user-alice", Titulo: "v1", DatosJSON: payload}
	if err := s.CreateDiagram(ctx, d); err != nil {
		t.Fatalf("CreateDiagram: %v", err)
	}

	err := s.UpdateDiagram(ctx, &domain.Diagram{ID: d.ID, UsuarioID: "user-bob", Titulo: "hijack", DatosJSON: payload})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := s.GetDiagram(ctx, d.ID, "user-alice")
	if err != nil {
		t.Fatalf("GetDiagram: %v", err)
	}
	if got.Titulo != "v1" {
		t.Errorf("foreign update leaked: %q", got.Titulo)
	}
}

func TestDeleteDiagram(t *testing.T) {
	s, em, idx := newDiagramTestStore(t)
	ctx := context.Background()

	d := &domain.Diagram{UsuarioID: "user-alice", Titulo: "gone", DatosJSON: payload}
	if err := s.CreateDiagram(ctx, d); err != nil {
		t.Fatalf("CreateDiagram: %v", err)
	}

	if err := s.DeleteDiagram(ctx, d.ID, "user-bob"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteDiagram(ctx, d.ID, "user-alice"); err != nil {
		t.Fatalf("DeleteDiagram: %v", err)
	}
	if err := s.DeleteDiagram(ctx, d.ID, "user-alice"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}

	if len(idx.deleted) != 1 || idx.deleted[0] != d.ID {
		t.Errorf("index not updated: %v", idx.deleted)
	}
	if last := em.events[len(em.events)-1]; last.Type != sse.EventDiagramDeleted {
		t.Errorf("expected delete event, got %s", last.Type)
	}
}

func TestListDiagrams_NewestFirst(t *testing.T) {
	s, _, _ := newDiagramTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, title := range []string{"old", "newest", "middle"} {
		offset := map[string]time.Duration{"old": 0, "newest": 2 * time.Minute, "middle": time.Minute}[title]
		d := &domain.Diagram{
			UsuarioID:          "user-alice",
			Titulo:             title,
			DatosJSON:          payload,
			FechaCreacion:      base.Add(time.Duration(i) * time.Second),
			UltimaModificacion: base.Add(offset),
		}
		if err := s.CreateDiagram(ctx, d); err != nil {
			t.Fatalf("CreateDiagram: %v", err)
		}
	}
	if err := s.CreateDiagram(ctx, &domain.Diagram{UsuarioID: "user-bob", Titulo: "bob's", DatosJSON: payload}); err != nil {
		t.Fatalf("CreateDiagram: %v", err)
	}

	list, err := s.ListDiagrams(ctx, "user-alice")
	if err != nil {
		t.Fatalf("ListDiagrams: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 diagrams, got %d", len(list))
	}
	want := []string{"newest", "middle", "old"}
	for i, d := range list {
		if d.Titulo != want[i] {
			t.Errorf("position %d: got %q, want %q", i, d.Titulo, want[i])
		}
	}

	all, err := s.ListAllDiagrams(ctx)
	if err != nil {
		t.Fatalf("ListAllDiagrams: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("expected 4 diagrams overall, got %d", len(all))
	}

	empty, err := s.ListDiagrams(ctx, "user-nobody")
	if err != nil {
		t.Fatalf("ListDiagrams: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}

func TestGetDiagramsByIDs_KeepsOrderAndScope(t *testing.T) {
	s, _, _ := newDiagramTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, owner := range []string{"user-alice", "user-alice", "user-bob"} {
		d := &domain.Diagram{UsuarioID: owner, Titulo: owner, DatosJSON: payload}
		if err := s.CreateDiagram(ctx, d); err != nil {
			t.Fatalf("CreateDiagram: %v", err)
		}
		ids = append(ids, d.ID)
	}

	got, err := s.GetDiagramsByIDs(ctx, "user-alice", []int64{ids[1], ids[2], 999, ids[0]})
	if err != nil {
		t.Fatalf("GetDiagramsByIDs: %v", err)
	}
	if len(got) != 2 || got[0].ID != ids[1] || got[1].ID != ids[0] {
		t.Errorf("unexpected result: %+v", got)
	}

	none, err := s.GetDiagramsByIDs(ctx, "user-alice", nil)
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty result, got %v, %v", none, err)
	}
}
