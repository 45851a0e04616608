// Package notify delivers booking confirmation messages by email and SMS.
package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/metrics"
	"github.com/charismamove/apiserver/types"
)

const (
	Subject = "Confirmation de réservation"

	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Notification is the payload handed over when a booking is confirmed.
type Notification struct {
	Booking types.Booking `json:"booking"`
	Email   string        `json:"email"`
	Phone   *string       `json:"phone,omitempty"`
}

// NewNotification builds the notification for a confirmed booking.
func NewNotification(contact types.BookingContact) Notification {
	return Notification{Booking: contact.Booking, Email: contact.Email, Phone: contact.Phone}
}

// EmailText is the body of the confirmation email.
func (n Notification) EmailText() string {
	return "Votre réservation du " + n.Booking.TravelDate + " est confirmée."
}

// SMSText is the body of the confirmation SMS.
func (n Notification) SMSText() string {
	return "Réservation confirmée pour le " + n.Booking.TravelDate
}

// Dispatcher accepts notifications without blocking the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

// Deliverer performs the delivery of one notification.
type Deliverer interface {
	Deliver(ctx context.Context, n Notification) error
}

// EmailSender sends a plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, text string) error
}

// SMSSender sends a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// Sender delivers a notification as one email and, when the user has a phone
// number, one SMS. A nil sender skips its channel.
type Sender struct {
	Email EmailSender
	SMS   SMSSender
	log   *logrus.Entry
}

func NewSender(email EmailSender, sms SMSSender) *Sender {
	return &Sender{Email: email, SMS: sms, log: logging.Component("notify")}
}

// Deliver attempts every applicable channel and returns the joined errors.
// Failures are logged and counted; nothing is retried.
func (s *Sender) Deliver(ctx context.Context, n Notification) error {
	var errs []error
	log := s.log.WithField("booking_id", n.Booking.ID)

	if s.Email != nil && strings.TrimSpace(n.Email) != "" {
		if err := s.Email.SendEmail(ctx, n.Email, Subject, n.EmailText()); err != nil {
			log.WithError(err).Warn("confirmation email failed")
			metrics.IncNotification(ChannelEmail, "error")
			errs = append(errs, err)
		} else {
			metrics.IncNotification(ChannelEmail, "sent")
		}
	}

	if s.SMS != nil && n.Phone != nil && strings.TrimSpace(*n.Phone) != "" {
		if err := s.SMS.SendSMS(ctx, *n.Phone, n.SMSText()); err != nil {
			log.WithError(err).Warn("confirmation sms failed")
			metrics.IncNotification(ChannelSMS, "error")
			errs = append(errs, err)
		} else {
			metrics.IncNotification(ChannelSMS, "sent")
		}
	}

	return errors.Join(errs...)
}

// Discard logs notifications and delivers nothing.
type Discard struct{}

func (Discard) Dispatch(ctx context.Context, n Notification) {
	logging.FromContext(ctx).WithField("booking_id", n.Booking.ID).Info("notification discarded")
	metrics.IncNotification("none", "skipped")
}
