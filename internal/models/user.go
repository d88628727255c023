package models

import "time"

// User is a registered account. PasswordHash is a bcrypt hash; the plaintext
// password is never stored and the hash is never serialized.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
