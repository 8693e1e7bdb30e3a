package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"lgcms/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db      DB
	timeout time.Duration
}

func NewUserRepository(db DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

const userColumns = `id, username, email, full_name, password_hash, role, department_id, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, username, email, full_name, password_hash, role, department_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $8
		)
	`
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Username,
		strings.ToLower(user.Email),
		user.FullName,
		user.PasswordHash,
		string(user.Role),
		user.DepartmentID,
		user.CreatedAt,
	)
	return classify("create user", err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "get user")
}

// FindByIdentifier looks a user up by email or username.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = lower($1) OR username = $1 LIMIT 1`,
		strings.TrimSpace(identifier),
	)
	return scanUser(row, "find user")
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	cmd, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return classify("update password", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[models.Role]int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, classify("count users", err)
	}
	defer rows.Close()

	counts := make(map[models.Role]int, 3)
	for rows.Next() {
		var (
			role  string
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, classify("count users", err)
		}
		counts[models.Role(role)] = count
	}
	return counts, classify("count users", rows.Err())
}

func (r *UserRepository) DepartmentExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, id).Scan(&exists)
	return exists, classify("department exists", err)
}

func scanUser(row pgx.Row, op string) (models.User, error) {
	var (
		user models.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&role,
		&user.DepartmentID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, classify(op, err)
	}

	parsed, ok := models.ParseRole(role)
	if !ok {
		return models.User{}, fmt.Errorf("%s: unknown role %q for user %s", op, role, user.ID)
	}
	user.Role = parsed
	return user, nil
}
