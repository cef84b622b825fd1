package models

import "time"

// User is a studio account. PasswordHash is a bcrypt digest of the
// client side password hash that login requests carry.
type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	CreatedAt    time.Time
}
