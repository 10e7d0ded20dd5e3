package models

import "time"

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

const (
	PaymentStatusFree = "free"
	PaymentStatusPaid = "paid"
)

type Booking struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	PlaceID   int64     `json:"place_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Payment struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	UserID      int64     `json:"user_id"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	ProviderRef *string   `json:"provider_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

type BookingDetail struct {
	Booking
	Session *Session `json:"session,omitempty"`
	Place   *Place   `json:"place,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
}
