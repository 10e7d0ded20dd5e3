package chatclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned before any network request when no
	// bearer credential is present.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrValidation is returned before dispatch for input the client
	// rejects, such as empty message content.
	ErrValidation = errors.New("validation failed")

	// ErrTimeout marks a request that exceeded its deadline, as opposed to
	// one that failed in transit or on the server.
	ErrTimeout = errors.New("request timed out")

	// ErrNoActiveConversation is returned by session operations that need a
	// selected conversation when resolution produced none.
	ErrNoActiveConversation = errors.New("no active conversation")
)

// APIError is the normalized form of any non-2xx response or
// payload-embedded error field. The client does not distinguish error
// subtypes beyond this.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}
