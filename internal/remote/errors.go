package remote

import (
	"encoding/json/v2"
	"fmt"
	"net/http"
	"strings"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
)

// Sentinel errors. Domain errors match by code, so errors.Is(err, ErrAuthRequired)
// holds for every 401 the service returns whatever its message.
var (
	ErrAuthRequired = domainerrors.Unauthorized("authentication required")
	ErrNotFound     = domainerrors.NotFound("diagram not found")
)

// genericFailure is reported when the service gives no message of its own.
const genericFailure = "the server could not complete the request, try again"

// statusError converts a non-2xx response into a domain error carrying the
// service's message and field errors when it sent them.
func statusError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	msg := strings.TrimSpace(eb.Message)
	if msg == "" {
		msg = strings.TrimSpace(eb.Reason)
	}
	if msg == "" {
		msg = genericFailure
	}

	code := domainerrors.CodeForStatus(status)
	switch {
	case status == http.StatusTooManyRequests:
		code = domainerrors.CodeNetwork
	case domainerrors.Code(eb.Code) == domainerrors.CodeInvalidCredentials:
		code = domainerrors.CodeInvalidCredentials
	}

	e := domainerrors.NewCode(code, msg)
	if len(eb.Errors) > 0 {
		e = e.WithDetails(eb.Errors)
	}
	return e
}

// networkError wraps a transport failure.
func networkError(op string, err error) error {
	return domainerrors.Network(fmt.Sprintf("%s: could not reach the server", op)).WithCause(err)
}
