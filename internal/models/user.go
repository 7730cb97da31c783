package models

import "time"

// User represents a registered account. Payments and subscriptions reference
// the user by UID, never by username.
type User struct {
	UID          string    // Unique user identifier
	Email        string    // E-mail address
	Username     string    // Unique login name
	PasswordHash string    // bcrypt hash of the password
	Role         string    // admin or user
	CreatedAt    time.Time // Registration time
}
