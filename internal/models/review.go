package models

import "time"

// Review is a customer review of a sauna.
type Review struct {
	ID        string    `json:"id"`
	SaunaID   string    `json:"sauna_id"`
	UserID    string    `json:"user_id"`
	BookingID string    `json:"booking_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UserName  string    `json:"user_name"`
}

// ReviewCreate is the POST /reviews payload.
type ReviewCreate struct {
	SaunaID   string `json:"sauna_id"`
	BookingID string `json:"booking_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// ReviewSummary aggregates the reviews of one sauna.
type ReviewSummary struct {
	AverageRating      float64        `json:"average_rating"`
	ReviewCount        int            `json:"review_count"`
	RatingDistribution map[string]int `json:"rating_distribution"`
}
