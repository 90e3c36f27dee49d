package models

import "time"

// Role values stored on User records.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string
	UserName     string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
}
