package domain

import "time"

// Roles recognized by the authorization middleware.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a registered account. Each user owns at most one cart,
// created lazily on registration.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Age          int       `json:"age,omitempty"`
	Role         string    `json:"role"`
	CartID       string    `json:"cartId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
