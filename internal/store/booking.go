package store

import (
	"context"
	"time"

	"github.com/charismamove/apiserver/internal/db"
	"github.com/charismamove/apiserver/types"
)

const bookingColumns = `b.id, b.user_id, b.departure, b.arrival, b.travel_date, b.travel_time, b.seats, b.price, b.status, b.created_at`

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *db.DB
}

func NewBookingRepository(conn *db.DB) *BookingRepository {
	return &BookingRepository{db: conn}
}

func scanBooking(row rowScanner, extra ...any) (types.Booking, error) {
	var (
		booking types.Booking
		date    dateColumn
		clock   clockColumn
		status  string
	)
	dest := []any{
		&booking.ID,
		&booking.UserID,
		&booking.Departure,
		&booking.Arrival,
		&date,
		&clock,
		&booking.Seats,
		&booking.Price,
		&status,
		&booking.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return types.Booking{}, err
	}
	booking.TravelDate = date.value
	booking.TravelTime = clock.value
	booking.Status = types.BookingStatus(status)
	return booking, nil
}

func (r *BookingRepository) Create(ctx context.Context, booking types.Booking) (types.Booking, error) {
	booking.CreatedAt = time.Now().UTC().Truncate(time.Second)

	const query = `
		INSERT INTO bookings (user_id, departure, arrival, travel_date, travel_time, seats, price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.Insert(
		ctx,
		query,
		booking.UserID,
		booking.Departure,
		booking.Arrival,
		booking.TravelDate,
		booking.TravelTime,
		booking.Seats,
		booking.Price,
		string(booking.Status),
		booking.CreatedAt,
	)
	if err != nil {
		return types.Booking{}, mapError(err)
	}
	booking.ID = id
	return booking, nil
}

func (r *BookingRepository) Get(ctx context.Context, id int) (types.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = ?`
	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return types.Booking{}, mapError(err)
	}
	return booking, nil
}

// GetWithContact loads a booking together with the email and phone of its
// owner.
func (r *BookingRepository) GetWithContact(ctx context.Context, id int) (types.BookingContact, error) {
	const query = `
		SELECT ` + bookingColumns + `, u.email, u.phone
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.id = ?`
	var contact types.BookingContact
	booking, err := scanBooking(r.db.QueryRow(ctx, query, id), &contact.Email, &contact.Phone)
	if err != nil {
		return types.BookingContact{}, mapError(err)
	}
	contact.Booking = booking
	return contact, nil
}

// ListByUser returns the bookings of one user, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int) ([]types.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`
	return r.list(ctx, query, userID)
}

// ListAll returns every booking, newest first.
func (r *BookingRepository) ListAll(ctx context.Context) ([]types.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings b ORDER BY b.created_at DESC, b.id DESC`
	return r.list(ctx, query)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]types.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]types.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id int, status types.BookingStatus) error {
	const query = `UPDATE bookings SET status = ? WHERE id = ?`
	result, err := r.db.Exec(ctx, query, string(status), id)
	if err != nil {
		return mapError(err)
	}
	// MySQL reports zero affected rows when the status is unchanged, so a
	// missing row is detected with a lookup instead.
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// CountByStatus returns the number of bookings per status.
func (r *BookingRepository) CountByStatus(ctx context.Context) (map[types.BookingStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(1) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.BookingStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[types.BookingStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
