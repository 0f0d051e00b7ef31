package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("duplicate email")

// UserRepository defines the credential store operations.
// Conditional updates report ErrNotFound when their predicate matched no row.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// MarkVerified flips is_verified and clears the verification token when
	// the stored token equals tokenHash.
	MarkVerified(ctx context.Context, email, tokenHash string) error
	SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	// GetByResetToken returns the user whose email, reset token and unexpired
	// deadline all match.
	GetByResetToken(ctx context.Context, email, tokenHash string, now time.Time) (*entity.User, error)
	// ResetPassword replaces the hash and clears the reset fields, provided
	// the reset token still equals tokenHash.
	ResetPassword(ctx context.Context, id int64, tokenHash, passwordHash string) error
}
