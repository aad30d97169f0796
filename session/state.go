package session

// State is the authentication state of the client.
type State int

const (
	StateLoggedOut State = iota
	StateLoggingIn
	StateLoggedIn
	StateRefreshingToken
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "LoggedOut"
	case StateLoggingIn:
		return "LoggingIn"
	case StateLoggedIn:
		return "LoggedIn"
	case StateRefreshingToken:
		return "RefreshingToken"
	default:
		return "Unknown"
	}
}
