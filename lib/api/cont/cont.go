package cont

import "context"

type ctxKey string

const ownerKey ctxKey = "ownerId"

// PutOwner stores the authenticated owner identity in the request context.
func PutOwner(c context.Context, ownerId int64) context.Context {
	return context.WithValue(c, ownerKey, ownerId)
}

// GetOwner returns the owner identity, or 0 for unauthenticated contexts.
func GetOwner(c context.Context) int64 {
	id, ok := c.Value(ownerKey).(int64)
	if !ok {
		return 0
	}
	return id
}
