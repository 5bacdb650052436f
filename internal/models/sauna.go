package models

import (
	"encoding/json"
	"strings"
)

// Sauna is the catalog entry returned by GET /saunas.
type Sauna struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Capacity       int       `json:"capacity"`
	HourlyRate     float64   `json:"hourly_rate"`
	ImageURL       string    `json:"image_url,omitempty"`
	Amenities      Amenities `json:"amenities"`
	IsActive       bool      `json:"is_active"`
	OpenTime       string    `json:"open_time"`  // "10:00"
	CloseTime      string    `json:"close_time"` // "22:00"
	Address        string    `json:"address,omitempty"`
	RoadAddress    string    `json:"road_address,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	SaunaType      string    `json:"sauna_type,omitempty"`
	TemperatureMin *int      `json:"temperature_min,omitempty"`
	TemperatureMax *int      `json:"temperature_max,omitempty"`
	AverageRating  *float64  `json:"average_rating,omitempty"`
	ReviewCount    int       `json:"review_count,omitempty"`
}

// SaunaImage is one gallery image of a sauna.
type SaunaImage struct {
	ID           string `json:"id"`
	SaunaID      string `json:"sauna_id"`
	ImageURL     string `json:"image_url"`
	DisplayOrder int    `json:"display_order"`
	IsPrimary    bool   `json:"is_primary"`
}

// OperatingHours describes one weekday of a sauna schedule.
type OperatingHours struct {
	ID        string `json:"id"`
	SaunaID   string `json:"sauna_id"`
	DayOfWeek int    `json:"day_of_week"` // 0=Monday, 6=Sunday
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	IsClosed  bool   `json:"is_closed"`
}

// SaunaDetail is the GET /saunas/{id} payload.
type SaunaDetail struct {
	Sauna
	Images         []SaunaImage     `json:"images"`
	OperatingHours []OperatingHours `json:"operating_hours"`
}

// PrimaryImage returns the primary image URL, falling back to the first image
// and then to the catalog image.
func (d *SaunaDetail) PrimaryImage() string {
	for _, img := range d.Images {
		if img.IsPrimary {
			return img.ImageURL
		}
	}
	if len(d.Images) > 0 {
		return d.Images[0].ImageURL
	}
	return d.ImageURL
}

// Amenities is the typed amenity list. The backend stores it as a serialized
// JSON list inside a string column, so decoding accepts a JSON array, a string
// holding a JSON array, or a comma separated string.
type Amenities []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amenities) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*a = nil
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = cleanAmenities(list)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = ParseAmenities(s)
	return nil
}

// ParseAmenities decodes the serialized amenity string stored by the backend.
func ParseAmenities(s string) Amenities {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err == nil {
			return cleanAmenities(list)
		}
	}
	return cleanAmenities(strings.Split(s, ","))
}

func cleanAmenities(list []string) Amenities {
	out := make(Amenities, 0, len(list))
	for _, v := range list {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
