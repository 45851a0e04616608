package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charismamove/apiserver/internal/export"
	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/storage"
	"github.com/charismamove/apiserver/types"
)

// Export is a generated report.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
	// Location is where the report was archived; empty when archiving is
	// disabled or failed.
	Location string
}

// AdminService serves the dashboard: counts and exports.
type AdminService struct {
	users         UserRepository
	items         ItemRepository
	bookings      BookingRepository
	announcements AnnouncementRepository
	archive       storage.ObjectStorage
	now           func() time.Time
	log           *logrus.Entry
}

// NewAdminService builds the service. archive may be nil.
func NewAdminService(users UserRepository, items ItemRepository, bookings BookingRepository, announcements AnnouncementRepository, archive storage.ObjectStorage) *AdminService {
	return &AdminService{
		users:         users,
		items:         items,
		bookings:      bookings,
		announcements: announcements,
		archive:       archive,
		now:           time.Now,
		log:           logging.Component("admin"),
	}
}

func (s *AdminService) Stats(ctx context.Context) (types.Stats, error) {
	var stats types.Stats
	var err error

	if stats.Users, err = s.users.Count(ctx); err != nil {
		return types.Stats{}, err
	}
	if stats.Admins, err = s.users.CountAdmins(ctx); err != nil {
		return types.Stats{}, err
	}
	if stats.Items, err = s.items.Count(ctx); err != nil {
		return types.Stats{}, err
	}
	if stats.Announcements, err = s.announcements.Count(ctx); err != nil {
		return types.Stats{}, err
	}

	byStatus, err := s.bookings.CountByStatus(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	stats.BookingsPending = byStatus[types.BookingPending]
	stats.BookingsConfirmed = byStatus[types.BookingConfirmed]
	return stats, nil
}

// ExportBookings renders every booking as XLSX and archives a copy when
// object storage is configured. Archive failures are logged only.
func (s *AdminService) ExportBookings(ctx context.Context) (Export, error) {
	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		return Export{}, err
	}

	data, err := export.Bookings(bookings)
	if err != nil {
		return Export{}, err
	}

	report := Export{
		Filename:    export.Filename(s.now()),
		ContentType: export.ContentTypeXLSX,
		Data:        data,
	}

	if s.archive != nil {
		location, err := storage.PutBytes(ctx, s.archive, "exports/"+report.Filename, data, report.ContentType)
		if err != nil {
			s.log.WithError(err).Warn("bookings export archive failed")
		} else {
			report.Location = location
			s.log.WithField("location", location).Info("bookings export archived")
		}
	}
	return report, nil
}
