package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/MensaSverige/swagapp-sub001/internal/errors"
)

// NetworkError is a request that never produced an HTTP response: DNS, connect,
// TLS or timeout failures. It matches apperrors.ErrNetwork.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == apperrors.ErrNetwork
}

// HTTPStatusError is a non-2xx response. A 401 matches apperrors.ErrAuthRejected,
// every other status matches apperrors.ErrServer.
type HTTPStatusError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *HTTPStatusError) Is(target error) bool {
	if e.Status == http.StatusUnauthorized {
		return target == apperrors.ErrAuthRejected
	}
	return target == apperrors.ErrServer
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTPStatusError.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
