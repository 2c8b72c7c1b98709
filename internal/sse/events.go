// Package sse implements Server-Sent Events so editors learn about changes
// to their diagrams made from another tab or device.
package sse

import (
	"time"

	"github.com/mindmapapp/mindmap/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventDiagramCreated is sent after a diagram is first saved.
	EventDiagramCreated EventType = "diagram.created"
	// EventDiagramUpdated is sent after a diagram is overwritten.
	EventDiagramUpdated EventType = "diagram.updated"
	// EventDiagramDeleted is sent after a diagram is removed. Editors holding
	// the diagram use it to drop their remote identity.
	EventDiagramDeleted EventType = "diagram.deleted"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
	// EventConnected is the first event on every stream.
	EventConnected EventType = "connected"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// UserID restricts delivery to one user's streams. Not sent to clients.
	UserID string `json:"-"`
}

// DiagramEventData is the payload of created/updated events. The graph
// payload is omitted; clients that care fetch the diagram.
type DiagramEventData struct {
	ID                 int64     `json:"id"`
	Titulo             string    `json:"titulo"`
	UltimaModificacion time.Time `json:"ultima_modificacion"`
}

// DiagramDeletedEventData is the payload of delete events.
type DiagramDeletedEventData struct {
	DeletedAt time.Time `json:"deleted_at"`
	DiagramID int64     `json:"diagram_id"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// ConnectedEventData is the data payload of the first event on a stream.
type ConnectedEventData struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

func diagramEvent(t EventType, d *domain.Diagram) Event {
	return Event{
		Type: t,
		Data: DiagramEventData{
			ID:                 d.ID,
			Titulo:             d.Titulo,
			UltimaModificacion: d.UltimaModificacion,
		},
		Timestamp: time.Now(),
		UserID:    d.UsuarioID,
	}
}

// NewDiagramCreatedEvent creates a diagram.created event scoped to the owner.
func NewDiagramCreatedEvent(d *domain.Diagram) Event {
	return diagramEvent(EventDiagramCreated, d)
}

// NewDiagramUpdatedEvent creates a diagram.updated event scoped to the owner.
func NewDiagramUpdatedEvent(d *domain.Diagram) Event {
	return diagramEvent(EventDiagramUpdated, d)
}

// NewDiagramDeletedEvent creates a diagram.deleted event scoped to the owner.
func NewDiagramDeletedEvent(ownerID string, diagramID int64) Event {
	now := time.Now()
	return Event{
		Type:      EventDiagramDeleted,
		Data:      DiagramDeletedEventData{DiagramID: diagramID, DeletedAt: now},
		Timestamp: now,
		UserID:    ownerID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
