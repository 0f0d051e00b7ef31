package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/taskboard-api/internal/application"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
	"github.com/oksasatya/taskboard-api/pkg/response"
)

// UserHandler serves the signed-in user's own record.
type UserHandler struct {
	Service *application.AuthService
	Logger  *logrus.Logger
}

func NewUserHandler(service *application.AuthService, logger *logrus.Logger) *UserHandler {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &UserHandler{Service: service, Logger: logger}
}

// GetProfile GET /api/users/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	uid, ok := owner(c)
	if !ok {
		return
	}
	p, err := h.Service.Profile(c.Request.Context(), uid)
	if err != nil {
		writeError(c, h.Logger, err, nil)
		return
	}
	response.JSON(c, http.StatusOK, p)
}
