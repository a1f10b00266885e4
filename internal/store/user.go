package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/diet-horizon/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, name, email, role, password_hash,
			COALESCE(reset_token_hash, ''), COALESCE(reset_token_expires, 'epoch'),
			created_at, updated_at
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, name, email, role, password_hash,
			COALESCE(reset_token_hash, ''), COALESCE(reset_token_expires, 'epoch'),
			created_at, updated_at
		FROM users
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByResetToken returns the user whose stored reset-token hash matches
// and whose token has not expired yet.
func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error) {
	const query = `
		SELECT id, name, email, role, password_hash,
			COALESCE(reset_token_hash, ''), COALESCE(reset_token_expires, 'epoch'),
			created_at, updated_at
		FROM users
		WHERE reset_token_hash = $1 AND reset_token_expires > $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash, now))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (name, email, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.Role,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translate(err)
	}
	return user, nil
}

// UpdateProfile updates the user's name and email.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, name, email string) (types.User, error) {
	const query = `
		UPDATE users
		SET name = $1, email = $2, updated_at = $3
		WHERE id = $4`
	if err := r.exec(ctx, query, name, email, time.Now(), id); err != nil {
		return types.User{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword replaces the password hash and clears any outstanding
// reset token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL,
			reset_token_expires = NULL, updated_at = $2
		WHERE id = $3`
	return r.exec(ctx, query, passwordHash, time.Now(), id)
}

// SetResetToken stores the hash and expiry of a newly issued reset token.
func (r *UserRepository) SetResetToken(ctx context.Context, id int, tokenHash string, expires time.Time) error {
	const query = `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expires = $2, updated_at = $3
		WHERE id = $4`
	return r.exec(ctx, query, tokenHash, expires, time.Now(), id)
}

// UpdateRole changes the user's role.
func (r *UserRepository) UpdateRole(ctx context.Context, id int, role string) (types.User, error) {
	const query = `
		UPDATE users
		SET role = $1, updated_at = $2
		WHERE id = $3`
	if err := r.exec(ctx, query, role, time.Now(), id); err != nil {
		return types.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	const countQuery = `SELECT COUNT(1) FROM users`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, name, email, role, password_hash,
			COALESCE(reset_token_hash, ''), COALESCE(reset_token_expires, 'epoch'),
			created_at, updated_at
		FROM users
		ORDER BY id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetSummaries fetches the public fields of the given users in one query.
func (r *UserRepository) GetSummaries(ctx context.Context, ids []int) (map[int]types.UserSummary, error) {
	if len(ids) == 0 {
		return map[int]types.UserSummary{}, nil
	}

	const query = `SELECT id, name, email FROM users WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make(map[int]types.UserSummary, len(ids))
	for rows.Next() {
		var s types.UserSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email); err != nil {
			return nil, err
		}
		summaries[s.ID] = s
	}
	return summaries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.PasswordHash,
		&user.ResetTokenHash,
		&user.ResetTokenExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err)
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
