package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmapapp/mindmap/internal/domain"
)

func startManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = m.Shutdown(context.Background())
	})
	return m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case evt := <-c.EventChan:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestManager_DeliversOnlyToOwner(t *testing.T) {
	m := startManager(t)

	alice, err := m.Connect("user-alice")
	require.NoError(t, err)
	bob, err := m.Connect("user-bob")
	require.NoError(t, err)

	m.Emit(NewDiagramUpdatedEvent(&domain.Diagram{ID: 7, UsuarioID: "user-alice", Titulo: "Plan A"}))

	evt := receive(t, alice)
	assert.Equal(t, EventDiagramUpdated, evt.Type)
	assert.Equal(t, int64(7), evt.Data.(DiagramEventData).ID)

	select {
	case evt := <-bob.EventChan:
		t.Fatalf("bob received %s", evt.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_EmitToUser(t *testing.T) {
	m := startManager(t)

	c, err := m.Connect("user-1")
	require.NoError(t, err)

	m.EmitToUser("user-1", NewHeartbeatEvent())
	assert.Equal(t, EventHeartbeat, receive(t, c).Type)
}

func TestManager_IgnoresForeignTypes(t *testing.T) {
	m := startManager(t)
	assert.NotPanics(t, func() { m.Emit("not an event") })
}

func TestManager_Disconnect(t *testing.T) {
	m := startManager(t)

	c, err := m.Connect("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, m.ClientCount())

	m.Disconnect(c.ID)
	m.Disconnect(c.ID)
	assert.Equal(t, 0, m.ClientCount())

	_, open := <-c.Done
	assert.False(t, open)
}

func TestManager_EmitAfterShutdownIsDropped(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.NotPanics(t, func() {
		m.Emit(NewDiagramDeletedEvent("user-1", 3))
	})
}

func TestManager_Heartbeat(t *testing.T) {
	m := NewManager(nil)
	m.SetHeartbeatInterval(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Start(ctx)

	c, err := m.Connect("user-1")
	require.NoError(t, err)
	assert.Equal(t, EventHeartbeat, receive(t, c).Type)
}

func TestHandler_StreamsUserEvents(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, func(context.Context) (string, bool) { return "user-1", true }, nil)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return name, data
			}
		}
	}

	name, _ := readEvent()
	assert.Equal(t, "connected", name)

	require.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	m.Emit(NewDiagramDeletedEvent("user-1", 42))

	name, data := readEvent()
	assert.Equal(t, "diagram.deleted", name)
	assert.Contains(t, data, `"diagram_id":42`)
}

func TestHandler_RequiresUser(t *testing.T) {
	h := NewHandler(NewManager(nil), func(context.Context) (string, bool) { return "", false }, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManager_StreamCapPerUser(t *testing.T) {
	m := startManager(t)
	m.SetMaxStreamsPerUser(2)

	first, err := m.Connect("user-1")
	require.NoError(t, err)
	_, err = m.Connect("user-1")
	require.NoError(t, err)

	_, err = m.Connect("user-1")
	require.ErrorIs(t, err, ErrTooManyStreams)
	assert.Equal(t, 2, m.UserClientCount("user-1"))

	// Other users are unaffected.
	_, err = m.Connect("user-2")
	require.NoError(t, err)

	m.Disconnect(first.ID)
	assert.Equal(t, 1, m.UserClientCount("user-1"))
	_, err = m.Connect("user-1")
	require.NoError(t, err)
}

func TestHandler_RejectsOverCap(t *testing.T) {
	m := startManager(t)
	m.SetMaxStreamsPerUser(1)
	_, err := m.Connect("user-1")
	require.NoError(t, err)

	h := NewHandler(m, func(context.Context) (string, bool) { return "user-1", true }, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mindmaps/events", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1, m.UserClientCount("user-1"))
}
