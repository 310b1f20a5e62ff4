package steprun

import "errors"

// ErrHTTP is a server-rejected request. Message is the server-supplied
// message field (or a generic fallback); Error() returns it verbatim so
// stores surface exactly what the backend said.
type ErrHTTP struct {
	Status  int
	Message string
}

func (e *ErrHTTP) Error() string {
	return e.Message
}

var (
	// ErrNoResponse is returned when the request was sent but no
	// response arrived (network failure).
	ErrNoResponse = errors.New("No response received from server")

	// ErrNotAuthenticated is returned by auth-store operations that
	// require a logged-in user, before any network call is made.
	ErrNotAuthenticated = errors.New("User not authenticated")

	// ErrNoSession is returned by session-store operations that require
	// a current session, before any network call is made.
	ErrNoSession = errors.New("No active session")
)
