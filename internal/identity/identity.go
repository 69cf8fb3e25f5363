// Package identity abstracts "who is making this call" away from the
// credential backend issuing sessions. Handlers depend on Resolver only, so
// swapping the token scheme never touches the rest of the system.
package identity

import (
	"errors"
	"net/http"
)

// ErrUnauthenticated signals a missing or invalid credential.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// Resolver extracts the authenticated user id from an incoming request.
type Resolver interface {
	Resolve(r *http.Request) (int, error)
}
