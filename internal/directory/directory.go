// Package directory talks to the external identity directory that mirrors
// local accounts. Provisioning reserves an identity here before the local row
// is committed.
package directory

import (
	"context"
	"errors"
)

var (
	// ErrConflict signals the identity already exists in the directory.
	ErrConflict = errors.New("directory: identity already exists")
	// ErrUnavailable signals the directory cannot be reached.
	ErrUnavailable = errors.New("directory: unavailable")
)

// Identity is the directory's record of an account.
type Identity struct {
	// ID is the directory-assigned external identifier.
	ID string
	// Username is the employee id used to log in.
	Username string
	Email    string
	Name     string
}

// Directory defines the operations the provisioning saga needs.
type Directory interface {
	// Create reserves an identity and returns it with its assigned ID.
	Create(ctx context.Context, identity Identity, password string) (Identity, error)
	// Delete removes a previously created identity. Used as the saga's
	// compensation step.
	Delete(ctx context.Context, id string) error
}
