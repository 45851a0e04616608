package store

import (
	"context"
	"strings"
	"time"

	"github.com/charismamove/apiserver/internal/db"
	"github.com/charismamove/apiserver/types"
)

const userColumns = `id, name, first_name, gender, email, password, phone, is_admin, created_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *db.DB
}

func NewUserRepository(conn *db.DB) *UserRepository {
	return &UserRepository{db: conn}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.FirstName,
		&user.Gender,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.IsAdmin,
		&user.CreatedAt,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	user, err := scanUser(r.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM users WHERE is_admin = ?`, true).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC().Truncate(time.Second)

	const query = `
		INSERT INTO users (name, first_name, gender, email, password, phone, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.Insert(
		ctx,
		query,
		user.Name,
		user.FirstName,
		user.Gender,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.IsAdmin,
		user.CreatedAt,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	user.ID = id
	return user, nil
}

// UpdateProfile writes the non-nil fields of update and returns the stored
// user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.User, error) {
	if update.Empty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	add("name", update.Name)
	add("first_name", update.FirstName)
	add("gender", update.Gender)
	add("phone", update.Phone)
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return types.User{}, mapError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = ?`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
