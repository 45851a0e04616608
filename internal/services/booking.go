package services

import (
	"context"
	"strings"

	"github.com/charismamove/apiserver/internal/metrics"
	"github.com/charismamove/apiserver/internal/notify"
	"github.com/charismamove/apiserver/types"
)

// ConfirmPolicy decides who may confirm a booking.
type ConfirmPolicy string

const (
	// ConfirmAny lets any authenticated user confirm any booking.
	ConfirmAny ConfirmPolicy = "any"
	// ConfirmOwnerOrAdmin restricts confirmation to the booking owner and
	// admins.
	ConfirmOwnerOrAdmin ConfirmPolicy = "owner_or_admin"
)

// ParseConfirmPolicy maps a configuration value to a policy. Unknown values
// select ConfirmAny.
func ParseConfirmPolicy(value string) ConfirmPolicy {
	if ConfirmPolicy(strings.ToLower(strings.TrimSpace(value))) == ConfirmOwnerOrAdmin {
		return ConfirmOwnerOrAdmin
	}
	return ConfirmAny
}

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking types.Booking) (types.Booking, error)
	Get(ctx context.Context, id int) (types.Booking, error)
	GetWithContact(ctx context.Context, id int) (types.BookingContact, error)
	ListByUser(ctx context.Context, userID int) ([]types.Booking, error)
	ListAll(ctx context.Context) ([]types.Booking, error)
	UpdateStatus(ctx context.Context, id int, status types.BookingStatus) error
	CountByStatus(ctx context.Context) (map[types.BookingStatus]int, error)
}

// BookingService encapsulates booking use-cases.
type BookingService struct {
	repo       BookingRepository
	dispatcher notify.Dispatcher
	policy     ConfirmPolicy
}

func NewBookingService(repo BookingRepository, dispatcher notify.Dispatcher, policy ConfirmPolicy) *BookingService {
	if dispatcher == nil {
		dispatcher = notify.Discard{}
	}
	return &BookingService{repo: repo, dispatcher: dispatcher, policy: policy}
}

// Policy returns the active confirmation policy.
func (s *BookingService) Policy() ConfirmPolicy {
	return s.policy
}

// Create stores a pending booking owned by principal. Price is always zero.
func (s *BookingService) Create(ctx context.Context, principal types.Principal, booking types.Booking) (types.Booking, error) {
	booking.ID = 0
	booking.UserID = principal.UserID
	booking.Price = 0
	booking.Status = types.BookingPending

	created, err := s.repo.Create(ctx, booking)
	if err != nil {
		return types.Booking{}, err
	}
	metrics.IncBooking(string(types.BookingPending))
	return created, nil
}

// ListOwn returns the principal's bookings, newest first.
func (s *BookingService) ListOwn(ctx context.Context, principal types.Principal) ([]types.Booking, error) {
	return s.repo.ListByUser(ctx, principal.UserID)
}

func (s *BookingService) ListAll(ctx context.Context) ([]types.Booking, error) {
	return s.repo.ListAll(ctx)
}

// Confirm marks a booking confirmed and hands a notification to the
// dispatcher. Confirming twice succeeds and notifies again.
func (s *BookingService) Confirm(ctx context.Context, principal types.Principal, id int) (types.Booking, error) {
	contact, err := s.repo.GetWithContact(ctx, id)
	if err != nil {
		return types.Booking{}, err
	}

	if s.policy == ConfirmOwnerOrAdmin && contact.Booking.UserID != principal.UserID && !principal.IsAdmin {
		return types.Booking{}, ErrForbidden
	}

	if err := s.repo.UpdateStatus(ctx, id, types.BookingConfirmed); err != nil {
		return types.Booking{}, err
	}
	contact.Booking.Status = types.BookingConfirmed
	metrics.IncBooking(string(types.BookingConfirmed))

	s.dispatcher.Dispatch(ctx, notify.NewNotification(contact))
	return contact.Booking, nil
}
