package domain

import "time"

// User is the wire representation of an account.
// The password hash never leaves the repository layer.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}
