package domain

import "time"

// Diagram is a persisted, titled mind map owned by one user.
// DatosJSON holds the serialized graph exactly as the editor sent it.
type Diagram struct {
	ID                 int64     `json:"id"`
	UsuarioID          string    `json:"usuario_id"`
	Titulo             string    `json:"titulo"`
	DatosJSON          string    `json:"datos_json"`
	FechaCreacion      time.Time `json:"fecha_creacion"`
	UltimaModificacion time.Time `json:"ultima_modificacion"`
}
