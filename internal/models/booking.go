package models

// Booking statuses used by the backend.
const (
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// TimeSlot is one bookable slot of a day as reported by the availability endpoint.
type TimeSlot struct {
	Time      string `json:"time"` // "HH:MM"
	Available bool   `json:"available"`
}

// BookingCreate is the POST /bookings payload.
type BookingCreate struct {
	SaunaID       string `json:"sauna_id"`
	BookingDate   string `json:"booking_date"` // YYYY-MM-DD
	StartTime     string `json:"start_time"`   // HH:MM
	EndTime       string `json:"end_time"`     // HH:MM
	GuestCount    int    `json:"guest_count"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	Notes         string `json:"notes,omitempty"`
}

// Booking is a created booking as returned by the backend.
type Booking struct {
	ID            string  `json:"id"`
	SaunaID       string  `json:"sauna_id"`
	BookingDate   string  `json:"booking_date"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	GuestCount    int     `json:"guest_count"`
	TotalPrice    float64 `json:"total_price"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	CustomerEmail string  `json:"customer_email"`
	Notes         string  `json:"notes,omitempty"`
	Status        string  `json:"status"`
	SaunaName     string  `json:"sauna_name,omitempty"`
	HasReview     bool    `json:"has_review,omitempty"`
	UserID        string  `json:"user_id,omitempty"`
}

// IsActive reports whether the booking still holds its slot.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// Reviewable reports whether a review may be written for the booking.
func (b *Booking) Reviewable() bool {
	return !b.HasReview && (b.Status == StatusConfirmed || b.Status == StatusCompleted)
}
