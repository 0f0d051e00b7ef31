package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
	"github.com/oksasatya/taskboard-api/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, full_name, email, password_hash, role, gender, age, is_verified,
	verification_token, reset_token, reset_token_expires_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Password, &role, &u.Gender, &u.Age, &u.IsVerified,
		&u.VerificationToken, &u.ResetToken, &u.ResetTokenExpiresAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.Role = entity.Profession(role)
	return u, nil
}

func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (full_name, email, password_hash, role, gender, age, is_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, u.FullName, u.Email, u.Password, string(u.Role), u.Gender, u.Age, u.IsVerified, u.VerificationToken)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return affectedOne(r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) MarkVerified(ctx context.Context, email, tokenHash string) error {
	return affectedOne(r.pool.Exec(ctx, `
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, updated_at = now()
		WHERE email = $1 AND verification_token = $2
	`, email, tokenHash))
}

func (r *UserRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	return affectedOne(r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token = $1, reset_token_expires_at = $2, updated_at = now()
		WHERE id = $3
	`, tokenHash, expiresAt, id))
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id int64) error {
	return affectedOne(r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE id = $1
	`, id))
}

func (r *UserRepository) GetByResetToken(ctx context.Context, email, tokenHash string, now time.Time) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 AND reset_token = $2 AND reset_token_expires_at > $3
	`, email, tokenHash, now))
}

func (r *UserRepository) ResetPassword(ctx context.Context, id int64, tokenHash, passwordHash string) error {
	return affectedOne(r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, reset_token = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE id = $2 AND reset_token = $3
	`, passwordHash, id, tokenHash))
}

var _ repository.UserRepository = (*UserRepository)(nil)
