package store

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotFound           = errors.New("record not found")
)

// RemoteError is a non-2xx reply from the remote store, carried verbatim.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("store request failed: %d - %s", e.Status, e.Body)
}
