package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/taskboard-api/internal/interface/http"
	"github.com/oksasatya/taskboard-api/internal/interface/middleware"
	"github.com/oksasatya/taskboard-api/pkg/helpers"
)

// AuthModule mounts the public credential routes and the profile route.
// Public: register, login, verify-email, forgot-password, reset-password
// Protected: GET /users/me
type AuthModule struct {
	Handler     *handlers.AuthHandler
	UserHandler *handlers.UserHandler
	JWT         *helpers.JWTManager
	RDB         *redis.Client
	Limit       int // requests per minute per IP and route
}

func NewAuthModule(h *handlers.AuthHandler, uh *handlers.UserHandler, jwt *helpers.JWTManager, rdb *redis.Client, limit int) *AuthModule {
	return &AuthModule{Handler: h, UserHandler: uh, JWT: jwt, RDB: rdb, Limit: limit}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	limiter := middleware.RateLimit(m.RDB, m.Limit, time.Minute, middleware.KeyByIPAndPath(), nil)
	// reset codes are only six digits, so guessing gets a tighter budget
	codeLimiter := middleware.RateLimit(m.RDB, max(m.Limit/2, 1), time.Minute, middleware.KeyByIPAndPath(), nil)

	auth := rg.Group("/auth")
	{
		auth.POST("/register", limiter, m.Handler.Register)
		auth.POST("/login", limiter, m.Handler.Login)
		auth.POST("/verify-email", codeLimiter, m.Handler.VerifyEmail)
		auth.POST("/forgot-password", codeLimiter, m.Handler.ForgotPassword)
		auth.POST("/reset-password", codeLimiter, m.Handler.ResetPassword)
	}

	if m.UserHandler != nil {
		rg.GET("/users/me", middleware.Auth(m.JWT), m.UserHandler.GetProfile)
	}
}
