package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/oksasatya/taskboard-api/internal/testsupport/memrepo"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
)

func newAuthFixture(t *testing.T) (*AuthService, *memrepo.Users, *fakeNotifier) {
	t.Helper()
	users := memrepo.NewUsers()
	notifier := newFakeNotifier()
	svc := NewAuthService(users, helpers.NewJWTManager("secret", time.Hour), notifier, nil, 10*time.Minute)
	return svc, users, notifier
}

func validRegistration(email string) RegisterInput {
	return RegisterInput{
		FullName:   "Ada Lovelace",
		Email:      email,
		Password:   "pw123456",
		Profession: "Developer",
		Gender:     "female",
		Age:        36,
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	ctx := context.Background()

	missing := validRegistration("a@x.com")
	missing.Gender = ""
	if err := svc.Register(ctx, missing); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing field, got %v", err)
	}

	badProfession := validRegistration("a@x.com")
	badProfession.Profession = "Pilot"
	if err := svc.Register(ctx, badProfession); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for profession, got %v", err)
	}

	shortPwd := validRegistration("a@x.com")
	shortPwd.Password = "short"
	if err := svc.Register(ctx, shortPwd); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
	if users.Count() != 0 {
		t.Fatalf("no user should be stored on validation failure")
	}
}

func TestRegisterStoresHashesOnly(t *testing.T) {
	svc, users, notifier := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.Register(ctx, validRegistration("a@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	u, err := users.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	code := notifier.verifyCode["a@x.com"]
	if len(code) != 6 {
		t.Fatalf("expected 6 digit code sent, got %q", code)
	}
	if u.IsVerified {
		t.Fatalf("new users start unverified")
	}
	if u.Password == "pw123456" || !helpers.CompareHashAndPassword(u.Password, "pw123456") {
		t.Fatalf("password must be stored as bcrypt hash")
	}
	if u.VerificationToken == nil || *u.VerificationToken == code || *u.VerificationToken != helpers.HashOTP(code) {
		t.Fatalf("verification token must be the code digest")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.Register(ctx, validRegistration("a@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Register(ctx, validRegistration("a@x.com")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if users.Count() != 1 {
		t.Fatalf("expected exactly one user, got %d", users.Count())
	}
}

func TestRegisterRollsBackOnDeliveryFailure(t *testing.T) {
	svc, users, notifier := newAuthFixture(t)
	notifier.sendErr = errBoom

	err := svc.Register(context.Background(), validRegistration("a@x.com"))
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	if users.Count() != 0 {
		t.Fatalf("user must be deleted after delivery failure")
	}

	notifier.sendErr = nil
	if err := svc.Register(context.Background(), validRegistration("a@x.com")); err != nil {
		t.Fatalf("retry after rollback should succeed: %v", err)
	}
}

func TestRegisterVerifyLoginScenario(t *testing.T) {
	svc, _, notifier := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.Register(ctx, validRegistration("a@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, "a@x.com", "pw123456", LoginMeta{}); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}

	code := notifier.verifyCode["a@x.com"]
	if err := svc.VerifyEmail(ctx, "a@x.com", code); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.VerifyEmail(ctx, "a@x.com", code); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reusing a consumed code must fail, got %v", err)
	}

	res, err := svc.Login(ctx, "a@x.com", "pw123456", LoginMeta{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := svc.JWT.ParseAccessToken(res.Token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if claims.UserID != res.User.ID || res.User.Email != "a@x.com" {
		t.Fatalf("token does not bind user: %+v", res.User)
	}
	if notifier.logins != 1 {
		t.Fatalf("expected one login notification, got %d", notifier.logins)
	}
}

func TestVerifyEmailErrors(t *testing.T) {
	svc, _, notifier := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.VerifyEmail(ctx, "ghost@x.com", "123456"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.Register(ctx, validRegistration("a@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	wrong := "000000"
	if notifier.verifyCode["a@x.com"] == wrong {
		wrong = "000001"
	}
	if err := svc.VerifyEmail(ctx, "a@x.com", wrong); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := svc.VerifyEmail(ctx, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func registerVerified(t *testing.T, svc *AuthService, notifier *fakeNotifier, email string) {
	t.Helper()
	ctx := context.Background()
	if err := svc.Register(ctx, validRegistration(email)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.VerifyEmail(ctx, email, notifier.verifyCode[email]); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _, notifier := newAuthFixture(t)
	registerVerified(t, svc, notifier, "a@x.com")
	ctx := context.Background()

	if _, err := svc.Login(ctx, "a@x.com", "wrong-password", LoginMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@x.com", "pw123456", LoginMeta{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := svc.Login(ctx, "", "", LoginMeta{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLoginSucceedsWhenNotificationFails(t *testing.T) {
	svc, _, notifier := newAuthFixture(t)
	registerVerified(t, svc, notifier, "a@x.com")
	notifier.loginErr = errBoom
	if _, err := svc.Login(context.Background(), "a@x.com", "pw123456", LoginMeta{}); err != nil {
		t.Fatalf("login must not depend on notification: %v", err)
	}
}

func TestLoginWithoutQueueLogsNoWarning(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	notifier := newFakeNotifier()
	svc := NewAuthService(memrepo.NewUsers(), helpers.NewJWTManager("secret", time.Hour), notifier, logger, 10*time.Minute)
	registerVerified(t, svc, notifier, "a@x.com")

	notifier.loginErr = ErrNoLoginQueue
	hook.Reset()
	if _, err := svc.Login(context.Background(), "a@x.com", "pw123456", LoginMeta{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, e := range hook.AllEntries() {
		if e.Level <= logrus.WarnLevel {
			t.Fatalf("unconfigured queue must not warn: %q", e.Message)
		}
	}

	notifier.loginErr = errBoom
	hook.Reset()
	if _, err := svc.Login(context.Background(), "a@x.com", "pw123456", LoginMeta{}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Fatalf("a real queue failure should warn, got %+v", e)
	}
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, users, notifier := newAuthFixture(t)
	registerVerified(t, svc, notifier, "a@x.com")
	ctx := context.Background()

	if err := svc.ForgotPassword(ctx, "ghost@x.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	code := notifier.resetCode["a@x.com"]

	if _, err := svc.ResetPassword(ctx, "b@x.com", code, "newpass123"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong email must fail, got %v", err)
	}
	res, err := svc.ResetPassword(ctx, "a@x.com", code, "newpass123")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected fresh session token")
	}
	u, _ := users.GetByEmail(ctx, "a@x.com")
	if u.ResetToken != nil || u.ResetTokenExpiresAt != nil {
		t.Fatalf("reset fields must be cleared")
	}
	if _, err := svc.ResetPassword(ctx, "a@x.com", code, "another123"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("code must be single-use, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@x.com", "newpass123", LoginMeta{}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestResetPasswordAfterExpiry(t *testing.T) {
	svc, _, notifier := newAuthFixture(t)
	registerVerified(t, svc, notifier, "a@x.com")
	ctx := context.Background()

	base := time.Now()
	svc.now = func() time.Time { return base }
	if err := svc.ForgotPassword(ctx, "a@x.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	svc.now = func() time.Time { return base.Add(10*time.Minute + time.Second) }
	if _, err := svc.ResetPassword(ctx, "a@x.com", notifier.resetCode["a@x.com"], "newpass123"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired code must fail, got %v", err)
	}
}

func TestForgotPasswordClearsTokenOnDeliveryFailure(t *testing.T) {
	svc, users, notifier := newAuthFixture(t)
	registerVerified(t, svc, notifier, "a@x.com")
	notifier.sendErr = errBoom

	if err := svc.ForgotPassword(context.Background(), "a@x.com"); !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
	u, _ := users.GetByEmail(context.Background(), "a@x.com")
	if u.ResetToken != nil || u.ResetTokenExpiresAt != nil {
		t.Fatalf("reset fields must be cleared after failed delivery")
	}
}

func TestProfileIsSanitized(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	ctx := context.Background()
	if err := svc.Register(ctx, validRegistration("p@x.com")); err != nil {
		t.Fatalf("register: %v", err)
	}
	u, _ := users.GetByEmail(ctx, "p@x.com")

	p, err := svc.Profile(ctx, u.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Email != "p@x.com" || p.IsVerified {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := svc.Profile(ctx, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
