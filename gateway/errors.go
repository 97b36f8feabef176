package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotJoined is returned by Sign when no token has been obtained.
	ErrNotJoined = errors.New("no token: call Join first")

	// ErrNotAuthenticated is returned by RPC calls made before a successful join.
	ErrNotAuthenticated = errors.New("must authenticate first (call Join and Authenticate)")

	// ErrMissingResult is returned when a response has neither result nor error.
	ErrMissingResult = errors.New("response missing result")

	// ErrAuthRejected is returned by RequireAuth when the gateway does not answer "success".
	ErrAuthRejected = errors.New("gateway rejected authentication")
)

// maxErrorBody bounds the response body kept in a StatusError.
const maxErrorBody = 512

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Op         string // "join", "authenticate" or the RPC method
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func newStatusError(op string, code int, body []byte) *StatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{Op: op, StatusCode: code, Body: string(body)}
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
