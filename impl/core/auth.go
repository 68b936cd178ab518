package core

import (
	"crypto/subtle"
	"errors"
)

var ErrUnauthorized = errors.New("token not recognized")

// SetOwnerToken connects the API token used by the HTTP surface. The token
// maps to the single designated owner identity.
func (c *Core) SetOwnerToken(token string, ownerId int64) {
	c.ownerToken = token
	c.ownerId = ownerId
}

// AuthorizeToken resolves a bearer token to the owner identity.
func (c *Core) AuthorizeToken(token string) (int64, error) {
	if c.ownerToken == "" {
		return 0, errors.New("api access not enabled")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(c.ownerToken)) != 1 {
		return 0, ErrUnauthorized
	}
	return c.ownerId, nil
}
