package store

import (
	"context"
	"strings"

	"github.com/charismamove/apiserver/internal/db"
	"github.com/charismamove/apiserver/types"
)

// ItemRepository handles persistence for catalogue items.
type ItemRepository struct {
	db *db.DB
}

func NewItemRepository(conn *db.DB) *ItemRepository {
	return &ItemRepository{db: conn}
}

// Search lists items whose name contains term, ignoring case. An empty term
// lists every item.
func (r *ItemRepository) Search(ctx context.Context, term string) ([]types.Item, error) {
	query := `SELECT id, name FROM items`
	var args []any
	if term = strings.TrimSpace(term); term != "" {
		query += ` WHERE LOWER(name) LIKE LOWER(?) ESCAPE '!'`
		args = append(args, likePattern(term))
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Item, 0)
	for rows.Next() {
		var item types.Item
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ItemRepository) Create(ctx context.Context, name string) (types.Item, error) {
	id, err := r.db.Insert(ctx, `INSERT INTO items (name) VALUES (?)`, name)
	if err != nil {
		return types.Item{}, mapError(err)
	}
	return types.Item{ID: id, Name: name}, nil
}

func (r *ItemRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM items`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
