package models

// DashboardStats is the GET /admin/stats payload.
type DashboardStats struct {
	TotalBookings     int     `json:"total_bookings"`
	ConfirmedBookings int     `json:"confirmed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
	TotalRevenue      float64 `json:"total_revenue"`
	TodayBookings     int     `json:"today_bookings"`
	TodayRevenue      float64 `json:"today_revenue"`
	TotalCustomers    int     `json:"total_customers"`
	TotalSaunas       int     `json:"total_saunas"`
	AverageRating     float64 `json:"average_rating"`
}

// RevenueByDate is one point of the revenue series.
type RevenueByDate struct {
	Date         string  `json:"date"`
	Revenue      float64 `json:"revenue"`
	BookingCount int     `json:"booking_count"`
}

// BookingsBySauna aggregates bookings per sauna.
type BookingsBySauna struct {
	SaunaID      string  `json:"sauna_id"`
	SaunaName    string  `json:"sauna_name"`
	BookingCount int     `json:"booking_count"`
	Revenue      float64 `json:"revenue"`
}

// RecentBooking is a row of the admin recent bookings list.
type RecentBooking struct {
	ID           string  `json:"id"`
	CustomerName string  `json:"customer_name"`
	SaunaName    string  `json:"sauna_name,omitempty"`
	BookingDate  string  `json:"booking_date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	TotalPrice   float64 `json:"total_price"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
}
