package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MensaSverige/swagapp-sub001/apiclient"
	apperrors "github.com/MensaSverige/swagapp-sub001/internal/errors"
)

var (
	// ErrSessionEnded is returned once refresh and re-login have both been rejected
	// and the stored credentials were erased.
	ErrSessionEnded = fmt.Errorf("session ended: %w", apperrors.ErrAuthRejected)

	// ErrNoSavedLogin means the member did not keep a username/password for silent re-login.
	ErrNoSavedLogin = fmt.Errorf("no saved login: %w", apperrors.ErrAuthRejected)

	errNoRefreshToken = errors.New("no refresh token stored")
)

// isRejection reports whether the server refused the credentials, as opposed to
// being unreachable or failing on its own.
func isRejection(err error) bool {
	if errors.Is(err, ErrNoSavedLogin) {
		return true
	}
	switch apiclient.StatusCode(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// UserMessage renders err for display to the member.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apperrors.ErrNetwork):
		return "The server could not be reached. We will try again shortly."
	case errors.Is(err, ErrSessionEnded):
		return "Your session has ended. Please log in again."
	case errors.Is(err, apperrors.ErrAuthRejected):
		return "Wrong username or password."
	case errors.Is(err, apperrors.ErrServer):
		return "The server had a problem. Please try again later."
	case errors.Is(err, apperrors.ErrStorage):
		return "Your login could not be saved on this device."
	default:
		return "Something went wrong."
	}
}

// refreshRecoverable reports whether a failed refresh left the refresh token usable
// for a later retry.
func refreshRecoverable(err error) bool {
	return err != nil && !errors.Is(err, errNoRefreshToken) && !isRejection(err)
}
