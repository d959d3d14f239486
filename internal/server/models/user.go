package models

import "time"

// User is a row of the user directory. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserUpdate carries the optional fields of a directory update; nil means
// "leave unchanged".
type UserUpdate struct {
	Name         *string
	PasswordHash *string
}
