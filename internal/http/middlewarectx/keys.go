// Package middlewarectx contains the HTTP middleware chain: JWT
// authentication and rate limiting, plus the context keys the handlers use
// to read the authenticated identity.
package middlewarectx

// Key is the type for request context keys.
type Key string

const (
	// User is the context key for the username.
	User Key = "username"
	// Role is the context key for the user role.
	Role Key = "role"
	// UserUID is the context key for the user UID. Payment handlers key all
	// state on this value.
	UserUID Key = "user_uid"
)
