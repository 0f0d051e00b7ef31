package application

import "errors"

// Domain errors. Services wrap them with detail via fmt.Errorf("%w: ...");
// callers classify with errors.Is. Anything else is an internal fault.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired code")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrForbidden          = errors.New("user not authorized")
	ErrDelivery           = errors.New("email could not be delivered")
)

// ErrNoLoginQueue is returned by a Notifier that has no queue for login
// notices. Login treats it as a configured skip, not a failure.
var ErrNoLoginQueue = errors.New("login notification queue not configured")
