package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Passwords are stored as bcrypt hashes in Password field.
// Emails are kept lower-cased; lookups are case-insensitive.
type User struct {
	ID         string
	Email      string
	Password   string
	Name       string
	AvatarURL  string
	Role       Role
	IsVerified bool

	VerifyCode   string
	VerifyExpiry time.Time
	ResetCode    string
	ResetExpiry  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
