package autosave

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mindmapapp/mindmap/internal/diagram"
	"github.com/mindmapapp/mindmap/internal/id"
	"github.com/mindmapapp/mindmap/internal/remote"
	"github.com/mindmapapp/mindmap/internal/session"
	"github.com/mindmapapp/mindmap/internal/snapshot"
)

type fakeSession struct {
	mu      sync.Mutex
	user    *session.User
	logouts int
}

func loggedIn() *fakeSession {
	return &fakeSession{user: &session.User{ID: "user-1", Name: "Ana", Email: "ana@example.com"}}
}

func (s *fakeSession) Current() (session.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return session.User{}, false
	}
	return *s.user, true
}

func (s *fakeSession) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.logouts++
	return nil
}

type remoteCall struct {
	method  string
	id      int64
	titulo  string
	payload string
}

// fakeRemote is an in-memory diagram service.
type fakeRemote struct {
	mu       sync.Mutex
	nextID   int64
	diagrams map[int64]*remote.Diagram
	calls    []remoteCall

	// err, when set, fails every call.
	err error
	// block, when set, holds create and update until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{nextID: 100, diagrams: map[int64]*remote.Diagram{}}
}

func (r *fakeRemote) record(call remoteCall) error {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	block, entered := r.block, r.entered
	err := r.err
	r.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return err
}

func (r *fakeRemote) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *fakeRemote) lastCall() remoteCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func (r *fakeRemote) put(d remote.Diagram) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagrams[d.ID] = &d
}

func (r *fakeRemote) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.diagrams, id)
}

func (r *fakeRemote) GetDiagram(_ context.Context, id int64) (*remote.Diagram, error) {
	if err := r.record(remoteCall{method: "GET", id: id}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.diagrams[id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *fakeRemote) CreateDiagram(_ context.Context, titulo, datos string) (*remote.SavedDiagram, error) {
	if err := r.record(remoteCall{method: "POST", titulo: titulo, payload: datos}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC()
	r.diagrams[r.nextID] = &remote.Diagram{ID: r.nextID, UsuarioID: "user-1", Titulo: titulo, DatosJSON: datos, FechaCreacion: now, UltimaModificacion: now}
	return &remote.SavedDiagram{ID: r.nextID, UsuarioID: "user-1", Titulo: titulo, FechaCreacion: now, UltimaModificacion: now}, nil
}

func (r *fakeRemote) UpdateDiagram(_ context.Context, id int64, titulo, datos string) (*remote.SavedDiagram, error) {
	if err := r.record(remoteCall{method: "PUT", id: id, titulo: titulo, payload: datos}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.diagrams[id]
	if !ok {
		return nil, remote.ErrNotFound
	}
	d.Titulo, d.DatosJSON, d.UltimaModificacion = titulo, datos, time.Now().UTC()
	return &remote.SavedDiagram{ID: id, UsuarioID: d.UsuarioID, Titulo: titulo, UltimaModificacion: d.UltimaModificacion}, nil
}

type harness struct {
	ctl     *Controller
	store   *snapshot.Store
	remote  *fakeRemote
	session *fakeSession
}

func newHarness(t *testing.T, sess *fakeSession, maxBytes int64) *harness {
	t.Helper()
	store, err := snapshot.Open(snapshot.Options{InMemory: true, MaxRecordBytes: maxBytes})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newHarnessWithStore(t, store, newFakeRemote(), sess)
}

func newHarnessWithStore(t *testing.T, store *snapshot.Store, rem *fakeRemote, sess *fakeSession) *harness {
	t.Helper()
	ctl := New(Options{
		Store:   store,
		Remote:  rem,
		Session: sess,
		IDs:     id.NewSequence(1_700_000_000_000),
		Rand:    rand.New(rand.NewPCG(1, 2)),
		Now:     func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) },
	})
	return &harness{ctl: ctl, store: store, remote: rem, session: sess}
}

// reopen builds a second controller over the same device store and server,
// like reloading the page.
func (h *harness) reopen(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, h.store, h.remote, h.session)
}

func encode(t *testing.T, d diagram.Document) string {
	t.Helper()
	s, err := diagram.EncodeString(d)
	require.NoError(t, err)
	return s
}
