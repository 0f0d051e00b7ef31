package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/internal/domain/entity"
	repo "github.com/oksasatya/taskboard-api/internal/domain/repository"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
)

// MinPasswordLength applies to registration and password reset.
const MinPasswordLength = 8

// Notifier delivers one-time codes and account notices out of band.
// Code deliveries are synchronous: a returned error means the user never
// received the code.
type Notifier interface {
	SendVerificationCode(ctx context.Context, u *entity.User, code string) error
	SendResetCode(ctx context.Context, u *entity.User, code string, expiresAt time.Time) error
	// NotifyLogin runs on the login path and must bound its own latency.
	NotifyLogin(ctx context.Context, u *entity.User, meta LoginMeta) error
}

// LoginMeta describes the request a login came from.
type LoginMeta struct {
	IP        string
	UserAgent string
}

type AuthService struct {
	Users    repo.UserRepository
	JWT      *helpers.JWTManager
	Notifier Notifier
	Logger   *logrus.Logger
	ResetTTL time.Duration

	now     func() time.Time
	genCode func() (string, error)
}

func NewAuthService(users repo.UserRepository, jwt *helpers.JWTManager, notifier Notifier, logger *logrus.Logger, resetTTL time.Duration) *AuthService {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	if resetTTL <= 0 {
		resetTTL = 10 * time.Minute
	}
	return &AuthService{
		Users:    users,
		JWT:      jwt,
		Notifier: notifier,
		Logger:   logger,
		ResetTTL: resetTTL,
		now:      time.Now,
		genCode:  helpers.GenOTPCode,
	}
}

type RegisterInput struct {
	FullName   string
	Email      string
	Password   string
	Profession string
	Gender     string
	Age        int
}

// LoginResult carries the session token and the sanitized user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      entity.PublicUser
}

// TokenResult is returned when only a fresh session token is issued.
type TokenResult struct {
	Token     string
	ExpiresAt time.Time
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Register creates an unverified user and emails a verification code.
//
// The insert and the email are not atomic. When delivery fails the new row
// is deleted again; if that delete fails too (or the process dies between
// the steps) an unverified user remains and re-registration reports a
// conflict until it is removed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	if blank(in.FullName) || blank(in.Email) || in.Password == "" || blank(in.Gender) || in.Age <= 0 {
		return fmt.Errorf("%w: please provide all required fields", ErrValidation)
	}
	profession := entity.Profession(in.Profession)
	if !profession.Valid() {
		return fmt.Errorf("%w: please provide a valid profession", ErrValidation)
	}
	if len(in.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
	}
	email := strings.TrimSpace(in.Email)

	existing, err := s.Users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if existing != nil {
		return ErrConflict
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return err
	}
	code, err := s.genCode()
	if err != nil {
		return err
	}
	tokenHash := helpers.HashOTP(code)

	u := &entity.User{
		FullName:          strings.TrimSpace(in.FullName),
		Email:             email,
		Password:          hash,
		Role:              profession,
		Gender:            strings.TrimSpace(in.Gender),
		Age:               in.Age,
		IsVerified:        false,
		VerificationToken: &tokenHash,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return ErrConflict
		}
		return err
	}

	if err := s.Notifier.SendVerificationCode(ctx, u, code); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("verification email failed, rolling back registration")
		if delErr := s.Users.Delete(context.WithoutCancel(ctx), u.ID); delErr != nil {
			s.Logger.WithError(delErr).WithField("user_id", u.ID).Error("rollback of unverified user failed")
		}
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	s.Logger.WithField("user_id", u.ID).Info("user registered")
	return nil
}

// VerifyEmail consumes the verification code. A consumed code cannot be
// reused since the stored digest is cleared on success.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	if blank(email) || blank(code) {
		return fmt.Errorf("%w: please provide email and otp", ErrValidation)
	}
	email = strings.TrimSpace(email)
	if _, err := s.Users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := s.Users.MarkVerified(ctx, email, helpers.HashOTP(strings.TrimSpace(code))); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	s.Logger.WithField("email", email).Info("email verified")
	return nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords both cost one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string, meta LoginMeta) (*LoginResult, error) {
	if blank(email) || password == "" {
		return nil, fmt.Errorf("%w: please provide email and password", ErrValidation)
	}
	u, err := s.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	stored := ""
	if u != nil {
		stored = u.Password
	}
	if !helpers.CompareHashAndPassword(stored, password) || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return nil, ErrEmailNotVerified
	}

	token, exp, err := s.JWT.GenerateAccessToken(u.ID)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return nil, err
	}

	switch err := s.Notifier.NotifyLogin(ctx, u, meta); {
	case err == nil:
	case errors.Is(err, ErrNoLoginQueue):
		s.Logger.WithField("user_id", u.ID).Debug("login notification skipped, no queue")
	default:
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("login notification not queued")
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u.Public()}, nil
}

// ForgotPassword stores a reset code digest with an absolute expiry and
// emails the code. On delivery failure the reset fields are cleared again.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if blank(email) {
		return fmt.Errorf("%w: please provide email", ErrValidation)
	}
	u, err := s.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	code, err := s.genCode()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.ResetTTL)
	if err := s.Users.SetResetToken(ctx, u.ID, helpers.HashOTP(code), expiresAt); err != nil {
		return err
	}

	if err := s.Notifier.SendResetCode(ctx, u, code, expiresAt); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("reset email failed, clearing reset token")
		if clrErr := s.Users.ClearResetToken(context.WithoutCancel(ctx), u.ID); clrErr != nil {
			s.Logger.WithError(clrErr).WithField("user_id", u.ID).Error("clearing reset token failed")
		}
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	return nil
}

// ResetPassword replaces the password when email, code and expiry all match,
// then issues a fresh session token. Each code works once.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) (*TokenResult, error) {
	if blank(email) || blank(code) || newPassword == "" {
		return nil, fmt.Errorf("%w: please provide email, otp and password", ErrValidation)
	}
	if len(newPassword) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
	}
	tokenHash := helpers.HashOTP(strings.TrimSpace(code))

	u, err := s.Users.GetByResetToken(ctx, strings.TrimSpace(email), tokenHash, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.Users.ResetPassword(ctx, u.ID, tokenHash, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	token, exp, err := s.JWT.GenerateAccessToken(u.ID)
	if err != nil {
		return nil, err
	}
	s.Logger.WithField("user_id", u.ID).Info("password reset")
	return &TokenResult{Token: token, ExpiresAt: exp}, nil
}

// Profile returns the sanitized user behind an authenticated session.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*entity.PublicUser, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p := u.Public()
	return &p, nil
}
