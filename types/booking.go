package types

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	// BookingCancelled is reserved; no operation produces it yet.
	BookingCancelled BookingStatus = "cancelled"
)

const (
	// DateLayout is the wire and storage layout of a travel date.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire layout of a travel time.
	TimeLayout = "15:04"
)

// Booking is a rider's reservation for a trip.
type Booking struct {
	// ID is the unique identifier of the booking.
	ID int `json:"id" db:"id"`

	// UserID references the rider owning the booking.
	UserID int `json:"user_id" db:"user_id"`

	// Departure is the pick-up city.
	Departure string `json:"departure" db:"departure"`

	// Arrival is the drop-off city.
	Arrival string `json:"arrival" db:"arrival"`

	// TravelDate is the travel day formatted as YYYY-MM-DD.
	TravelDate string `json:"travel_date" db:"travel_date"`

	// TravelTime is the departure time formatted as HH:MM.
	TravelTime string `json:"travel_time" db:"travel_time"`

	// Seats is the number of reserved seats.
	Seats int `json:"seats" db:"seats"`

	// Price is always zero: no fare model exists.
	Price float64 `json:"price" db:"price"`

	// Status is the booking state.
	Status BookingStatus `json:"status" db:"status"`

	// CreatedAt is the timestamp at which the booking was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BookingContact joins a booking with the contact details of its owner.
type BookingContact struct {
	Booking Booking
	Email   string
	Phone   *string
}
