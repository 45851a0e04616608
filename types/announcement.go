package types

import "time"

// Announcement is a published carpooling trip offer.
type Announcement struct {
	// ID is the unique identifier of the announcement.
	ID int `json:"id" db:"id"`

	// UserID references the publishing driver.
	UserID int `json:"user_id" db:"user_id"`

	// Departure is the start city of the trip.
	Departure string `json:"departure" db:"departure"`

	// Destination is the end city of the trip.
	Destination string `json:"destination" db:"destination"`

	// Datetime is the scheduled departure.
	Datetime time.Time `json:"datetime" db:"datetime"`

	// Seats is the number of offered seats.
	Seats int `json:"seats" db:"seats"`

	// CreatedAt is the timestamp at which the announcement was published.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AnnouncementFilter narrows an announcement search. Zero values disable a
// criterion.
type AnnouncementFilter struct {
	Departure   string `json:"departure,omitempty"`
	Destination string `json:"destination,omitempty"`
	MinSeats    int    `json:"seats,omitempty"`
}
