package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charismamove/apiserver/internal/logging"
	"github.com/charismamove/apiserver/internal/metrics"
	"github.com/charismamove/apiserver/types"
)

// AnnouncementRepository defines persistence operations for announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement types.Announcement) (types.Announcement, error)
	List(ctx context.Context, filter types.AnnouncementFilter) ([]types.Announcement, error)
	Count(ctx context.Context) (int, error)
}

// AnnouncementCache stores search results between publishes. Get reports
// the cache generation it observed and Set writes under that generation, so
// results read before an Invalidate never become visible after it.
type AnnouncementCache interface {
	Get(ctx context.Context, filter types.AnnouncementFilter) ([]types.Announcement, int64, bool)
	Set(ctx context.Context, generation int64, filter types.AnnouncementFilter, announcements []types.Announcement) error
	Invalidate(ctx context.Context) error
}

type AnnouncementService struct {
	repo  AnnouncementRepository
	cache AnnouncementCache
	log   *logrus.Entry
}

// NewAnnouncementService builds the service. cache may be nil.
func NewAnnouncementService(repo AnnouncementRepository, cache AnnouncementCache) *AnnouncementService {
	return &AnnouncementService{repo: repo, cache: cache, log: logging.Component("announcements")}
}

// Publish stores an announcement owned by principal.
func (s *AnnouncementService) Publish(ctx context.Context, principal types.Principal, announcement types.Announcement) (types.Announcement, error) {
	announcement.ID = 0
	announcement.UserID = principal.UserID

	created, err := s.repo.Create(ctx, announcement)
	if err != nil {
		return types.Announcement{}, err
	}
	metrics.IncAnnouncement()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithError(err).Warn("announcement cache invalidation failed")
		}
	}
	return created, nil
}

// Search lists announcements matching filter, ordered by departure time.
func (s *AnnouncementService) Search(ctx context.Context, filter types.AnnouncementFilter) ([]types.Announcement, error) {
	var generation int64
	if s.cache != nil {
		cached, gen, ok := s.cache.Get(ctx, filter)
		if ok {
			return cached, nil
		}
		generation = gen
	}

	announcements, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, generation, filter, announcements); err != nil {
			s.log.WithError(err).Debug("announcement cache write failed")
		}
	}
	return announcements, nil
}
