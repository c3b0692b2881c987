package auth

import (
	"fmt"
	"time"
)

const sessionTokenPrefix = "tijzi-token"

// TokenIssuer mints the session token handed to the client after a successful verification
type TokenIssuer interface {
	Issue(identity string, issuedAt time.Time) (string, error)
}

// PrefixTokenIssuer produces "tijzi-token-<identity>-<unix seconds>".
// The token is not signed and nothing server-side can validate it; it is a bearer placeholder
// for frontends that only need an opaque value. Use JWTService when integrity matters.
type PrefixTokenIssuer struct{}

// Issue never fails
func (PrefixTokenIssuer) Issue(identity string, issuedAt time.Time) (string, error) {
	return fmt.Sprintf("%s-%s-%d", sessionTokenPrefix, identity, issuedAt.Unix()), nil
}
