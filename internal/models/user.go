package models

import "time"

// User is a row of auth_users in the self-hosted backend.
type User struct {
	ID               string
	Email            string
	PasswordHash     []byte
	EmailConfirmedAt *time.Time
	LastSignInAt     *time.Time
	CreatedAt        time.Time
}
