package models

import "time"

const (
	SessionStatusAvailable = "Available"
	SessionStatusFull      = "Full"
	SessionStatusCancelled = "Cancelled"
)

const (
	PlaceTypePhysical = "Physical"
	PlaceTypeVirtual  = "Virtual"
)

type Session struct {
	ID          int64     `json:"id"`
	ClubID      int64     `json:"user_id"`
	PlaceID     int64     `json:"place_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
	IsDelete    bool      `json:"is_delete"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Place struct {
	ID        int64     `json:"id"`
	ClubID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   *string   `json:"address"`
	City      *string   `json:"city"`
	IsDelete  bool      `json:"is_delete"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionDetail struct {
	Session
	Place *Place `json:"place,omitempty"`
}
