package source

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthRequired means the user must authorize again: the token is missing,
// expired, or could not be refreshed.
var ErrAuthRequired = errors.New("source: authorization required")

// FetchError is a non-2xx answer from the activity API.
type FetchError struct {
	Status  int
	Message string
	Hint    string
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Hint != "" {
		return fmt.Sprintf("activity source: HTTP %d: %s (%s)", e.Status, msg, e.Hint)
	}
	return fmt.Sprintf("activity source: HTTP %d: %s", e.Status, msg)
}

// Is makes a 401 match ErrAuthRequired.
func (e *FetchError) Is(target error) bool {
	return target == ErrAuthRequired && e.Status == http.StatusUnauthorized
}

func hintFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "authorization expired, sign in again"
	case http.StatusForbidden:
		return "token lacks the activity:read_all scope, authorize again and grant it"
	case http.StatusTooManyRequests:
		return "rate limit reached, retry in 15 minutes"
	}
	return ""
}
