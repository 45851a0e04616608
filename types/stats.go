package types

// Stats summarizes the marketplace for the admin dashboard.
type Stats struct {
	Users             int `json:"users"`
	Admins            int `json:"admins"`
	Announcements     int `json:"announcements"`
	BookingsPending   int `json:"bookings_pending"`
	BookingsConfirmed int `json:"bookings_confirmed"`
	Items             int `json:"items"`
}
