package store

import (
	"context"
	"strings"
	"time"

	"github.com/charismamove/apiserver/internal/db"
	"github.com/charismamove/apiserver/types"
)

// AnnouncementRepository handles persistence for trip announcements.
type AnnouncementRepository struct {
	db *db.DB
}

func NewAnnouncementRepository(conn *db.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: conn}
}

func (r *AnnouncementRepository) Create(ctx context.Context, announcement types.Announcement) (types.Announcement, error) {
	announcement.Datetime = announcement.Datetime.UTC().Truncate(time.Second)
	announcement.CreatedAt = time.Now().UTC().Truncate(time.Second)

	const query = `
		INSERT INTO announcements (user_id, departure, destination, datetime, seats, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.Insert(
		ctx,
		query,
		announcement.UserID,
		announcement.Departure,
		announcement.Destination,
		announcement.Datetime,
		announcement.Seats,
		announcement.CreatedAt,
	)
	if err != nil {
		return types.Announcement{}, mapError(err)
	}
	announcement.ID = id
	return announcement, nil
}

// List returns the announcements matching filter ordered by departure time.
func (r *AnnouncementRepository) List(ctx context.Context, filter types.AnnouncementFilter) ([]types.Announcement, error) {
	var (
		where []string
		args  []any
	)
	if term := strings.TrimSpace(filter.Departure); term != "" {
		where = append(where, `LOWER(departure) LIKE LOWER(?) ESCAPE '!'`)
		args = append(args, likePattern(term))
	}
	if term := strings.TrimSpace(filter.Destination); term != "" {
		where = append(where, `LOWER(destination) LIKE LOWER(?) ESCAPE '!'`)
		args = append(args, likePattern(term))
	}
	if filter.MinSeats > 0 {
		where = append(where, `seats >= ?`)
		args = append(args, filter.MinSeats)
	}

	query := `SELECT id, user_id, departure, destination, datetime, seats, created_at FROM announcements`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY datetime ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	announcements := make([]types.Announcement, 0)
	for rows.Next() {
		var a types.Announcement
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.Departure,
			&a.Destination,
			&a.Datetime,
			&a.Seats,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return announcements, nil
}

func (r *AnnouncementRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM announcements`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
