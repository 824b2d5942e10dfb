package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/civicfix/civicfix-server/internal/domain"
)

const userColumns = `id, name, email, password_hash, photo_url, role, issue_count, is_premium, is_blocked, created_at, updated_at`

type userRepository struct {
	db dbtx
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, password_hash, photo_url, role, issue_count, is_premium, is_blocked, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.PhotoURL,
		user.Role,
		user.IssueCount,
		user.IsPremium,
		user.IsBlocked,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
	if err != nil {
		return nil, mapPgError(err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	where, args := "1=1", []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		where = "role=$1"
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC, email LIMIT %d OFFSET %d`,
		userColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func (r *userRepository) Count(ctx context.Context, filter UserFilter) (int64, error) {
	var count int64
	var err error
	if filter.Role != nil {
		err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, *filter.Role).Scan(&count)
	} else {
		err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	}
	return count, err
}

func (r *userRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	return r.exec(ctx, `UPDATE users SET role=$1, updated_at=$2 WHERE id=$3`, role, nowUTC(), id)
}

func (r *userRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.exec(ctx, `UPDATE users SET is_blocked=$1, updated_at=$2 WHERE id=$3`, blocked, nowUTC(), id)
}

func (r *userRepository) SetPremium(ctx context.Context, email string, premium bool) error {
	return r.exec(ctx, `UPDATE users SET is_premium=$1, updated_at=$2 WHERE LOWER(email)=LOWER($3)`, premium, nowUTC(), email)
}

func (r *userRepository) AdjustIssueCount(ctx context.Context, email string, delta int) error {
	return r.exec(ctx, `UPDATE users SET issue_count=GREATEST(issue_count + $1, 0), updated_at=$2 WHERE LOWER(email)=LOWER($3)`,
		delta, nowUTC(), email)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.PhotoURL,
		&user.Role,
		&user.IssueCount,
		&user.IsPremium,
		&user.IsBlocked,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
