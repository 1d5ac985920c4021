package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string   // lowercased; may be empty for OAuth-provisioned accounts
	PasswordHash string   // argon2id PHC encoded
	Roles        []string // role names, resolved by the store on read
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Default role names seeded at startup.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
