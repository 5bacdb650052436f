package booking

import (
	"strings"
	"time"

	"github.com/AWS-JaeminJung/sauna-app/internal/calendar"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/slots"
)

// Customer holds the contact details of the person booking.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// Missing lists the names of empty required fields.
func (c Customer) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	return missing
}

// Draft is the booking under construction.
type Draft struct {
	Sauna      *models.Sauna
	Date       time.Time
	Range      slots.Range
	GuestCount int
	Customer   Customer
	Notes      string
}

// Clone returns a copy. The sauna is shared since it is never mutated.
func (d Draft) Clone() Draft {
	return d
}

// DateKey returns the selected date as YYYY-MM-DD, or "" if none.
func (d Draft) DateKey() string {
	if d.Date.IsZero() {
		return ""
	}
	return d.Date.Format(calendar.DateLayout)
}

// SaunaID returns the selected sauna id, or "" if none.
func (d Draft) SaunaID() string {
	if d.Sauna == nil {
		return ""
	}
	return d.Sauna.ID
}

// CreateRequest builds the create-booking payload.
func (d Draft) CreateRequest() models.BookingCreate {
	return models.BookingCreate{
		SaunaID:       d.SaunaID(),
		BookingDate:   d.DateKey(),
		StartTime:     d.Range.Start,
		EndTime:       d.Range.End,
		GuestCount:    d.GuestCount,
		CustomerName:  strings.TrimSpace(d.Customer.Name),
		CustomerPhone: strings.TrimSpace(d.Customer.Phone),
		CustomerEmail: strings.TrimSpace(d.Customer.Email),
		Notes:         strings.TrimSpace(d.Notes),
	}
}
