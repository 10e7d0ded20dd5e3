package models

import "time"

// Account types. A "user" books sessions, a "club" publishes them.
const (
	AccountTypeUser = "user"
	AccountTypeClub = "club"
)

type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Type         string    `json:"type"`
	Description  *string   `json:"description"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
