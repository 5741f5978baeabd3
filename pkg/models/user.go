package models

import "time"

// User is a denormalized profile snapshot, updated opportunistically from
// any event that carries actor/user data.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Image      string    `json:"image,omitempty"`
	Role       string    `json:"role,omitempty"`
	Online     bool      `json:"online,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	LastActive time.Time `json:"last_active,omitempty"`
}

// Member is a channel membership entry for one user.
type Member struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	Invited   bool      `json:"invited,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
