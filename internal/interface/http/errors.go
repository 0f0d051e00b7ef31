package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/pkg/response"
	"github.com/oksasatya/taskboard-api/pkg/validation"
)

// statusOverrides lets a route remap a domain error, e.g. an unknown user
// is 400 on verify-email but 404 on forgot-password.
type statusOverrides map[error]int

var errorStatus = []struct {
	err    error
	status int
}{
	{application.ErrValidation, http.StatusBadRequest},
	{application.ErrConflict, http.StatusBadRequest},
	{application.ErrUserNotFound, http.StatusNotFound},
	{application.ErrTaskNotFound, http.StatusNotFound},
	{application.ErrInvalidCredentials, http.StatusUnauthorized},
	{application.ErrEmailNotVerified, http.StatusUnauthorized},
	{application.ErrInvalidToken, http.StatusBadRequest},
	{application.ErrForbidden, http.StatusUnauthorized},
	{application.ErrDelivery, http.StatusInternalServerError},
}

// errorMessage returns the user-facing text. Validation errors carry their
// detail after the sentinel prefix; every other domain error is reported
// by its sentinel text only.
func errorMessage(sentinel, err error) string {
	if errors.Is(sentinel, application.ErrValidation) {
		msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
		if msg == "" || msg == sentinel.Error() {
			return "Invalid input"
		}
		return capitalize(msg)
	}
	return capitalize(sentinel.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// writeError maps err to a status and message. Unknown errors are logged
// and reported as a generic 500 without detail.
func writeError(c *gin.Context, logger *logrus.Logger, err error, overrides statusOverrides) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		status := e.status
		if s, ok := overrides[e.err]; ok {
			status = s
		}
		if status >= http.StatusInternalServerError {
			logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
		}
		_ = c.Error(err)
		response.Error(c, status, errorMessage(e.err, err), nil)
		return
	}

	logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("internal error")
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, "Internal server error", nil)
}

func bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "Invalid payload", validation.ToDetails(err))
}
