package store

import (
	"context"
	"errors"
)

// ErrAlreadyExists is returned by Register when the username is taken.
var ErrAlreadyExists = errors.New("username already exists")

// ErrNotFound is returned by Lookup when the username is not registered.
var ErrNotFound = errors.New("user not found")

// Store defines the credential store interface. Register persists a
// username with its password hash; duplicate usernames fail with
// ErrAlreadyExists. Lookup returns the stored hash or ErrNotFound.
// Implementations must serialize concurrent registrations so two callers
// cannot both claim the same username.
type Store interface {
	Register(ctx context.Context, username, passwordHash string) error
	Lookup(ctx context.Context, username string) (string, error)
	Ping() error
	Close() error
}
