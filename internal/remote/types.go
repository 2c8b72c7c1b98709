package remote

import (
	"encoding/json/jsontext"
	"time"
)

// User is the account summary returned by the auth endpoints.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResult is the body of a successful login or registration.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int    `json:"expires_in"`
	Message   string `json:"message,omitempty"`
}

// Diagram is a Diagram Record as served by the remote service.
type Diagram struct {
	ID                 int64     `json:"id"`
	UsuarioID          string    `json:"usuario_id"`
	Titulo             string    `json:"titulo"`
	DatosJSON          string    `json:"datos_json"`
	FechaCreacion      time.Time `json:"fecha_creacion"`
	UltimaModificacion time.Time `json:"ultima_modificacion"`
}

// SavedDiagram is the acknowledgement of a create or update.
type SavedDiagram struct {
	ID                 int64     `json:"id"`
	UsuarioID          string    `json:"usuario_id"`
	Titulo             string    `json:"titulo"`
	FechaCreacion      time.Time `json:"fecha_creacion,omitzero"`
	UltimaModificacion time.Time `json:"ultima_modificacion"`
	Message            string    `json:"message"`
}

type diagramList struct {
	Mapas []Diagram `json:"mapas"`
}

type diagramBody struct {
	ID        int64  `json:"id,omitzero"`
	Titulo    string `json:"titulo"`
	DatosJSON string `json:"datos_json"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerBody struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileBody struct {
	Nombre   *string `json:"nombre,omitempty"`
	Password *string `json:"password,omitempty"`
}

type profileResponse struct {
	User    User   `json:"user"`
	Message string `json:"message"`
}

// errorBody is the error envelope of the service: a message, optionally a
// field map, and on some paths a bare "error" reason.
type errorBody struct {
	Code    string            `json:"code"`
	Reason  string            `json:"error"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// Event is one message read from the change stream.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      jsontext.Value `json:"data"`
}

// Event types sent on the change stream.
const (
	EventConnected      = "connected"
	EventHeartbeat      = "heartbeat"
	EventDiagramCreated = "diagram.created"
	EventDiagramUpdated = "diagram.updated"
	EventDiagramDeleted = "diagram.deleted"
)

// DiagramChange is the data of a created or updated event.
type DiagramChange struct {
	ID                 int64     `json:"id"`
	Titulo             string    `json:"titulo"`
	UltimaModificacion time.Time `json:"ultima_modificacion"`
}

// DiagramDeletion is the data of a deleted event.
type DiagramDeletion struct {
	DiagramID int64     `json:"diagram_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
